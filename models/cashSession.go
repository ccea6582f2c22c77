package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/cashdesk_backend/config"
	"bitbucket.org/mmdatafocus/cashdesk_backend/utils"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
)

// CashSession is one cashier shift at one business. Its status only ever
// moves OPEN -> CLOSED; flagging and soft deletion are orthogonal markers on
// top of that. The open_slot generated column (see migration.go) enforces at
// most one live OPEN session per (operator, business) inside MySQL itself.
type CashSession struct {
	ID         int           `gorm:"primary_key" json:"id"`
	BusinessId string        `gorm:"index;size:191;not null" json:"business_id"`
	OperatorId int           `gorm:"index;not null" json:"operator_id"`
	Status     SessionStatus `gorm:"type:enum('OPEN', 'CLOSED');default:OPEN" json:"status"`
	OpenedAt   time.Time     `gorm:"not null" json:"opened_at"`
	ClosedAt   *time.Time    `json:"closed_at"`

	InitialCash       decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"initial_cash"`
	FinalCash         decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"final_cash"`
	EnvelopeAmount    decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"envelope_amount"`
	CreditCardTotal   decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"credit_card_total"`
	DebitCardTotal    decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"debit_card_total"`
	BankTransferTotal decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"bank_transfer_total"`
	ExpenseTotal      decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"expense_total"`

	// derived at close and on every later amendment, always via Reconcile
	CashSales  decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"cash_sales"`
	TotalSales decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"total_sales"`
	Difference decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"difference"`

	IsFlagged  *bool  `gorm:"not null;default:false" json:"is_flagged"`
	FlagReason string `gorm:"type:text" json:"flag_reason"`

	IsDeleted   *bool      `gorm:"not null;default:false" json:"is_deleted"`
	DeletedById int        `gorm:"default:null" json:"deleted_by_id"`
	DeletedAt   *time.Time `json:"deleted_at"`

	Expenses  []ExpenseItem  `gorm:"foreignKey:SessionId" json:"expenses"`
	Transfers []TransferItem `gorm:"foreignKey:SessionId" json:"transfers"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCashSession struct {
	BusinessId  string           `json:"business_id" binding:"required"`
	InitialCash *decimal.Decimal `json:"initial_cash" binding:"required"`
}

type CloseCashSession struct {
	FinalCash         *decimal.Decimal `json:"final_cash" binding:"required"`
	EnvelopeAmount    *decimal.Decimal `json:"envelope_amount"`
	CreditCardTotal   *decimal.Decimal `json:"credit_card_total"`
	DebitCardTotal    *decimal.Decimal `json:"debit_card_total"`
	BankTransferTotal *decimal.Decimal `json:"bank_transfer_total"`
}

// EditCashSession amends counted amounts after the fact. Nil fields are left
// untouched.
type EditCashSession struct {
	InitialCash       *decimal.Decimal `json:"initial_cash"`
	FinalCash         *decimal.Decimal `json:"final_cash"`
	EnvelopeAmount    *decimal.Decimal `json:"envelope_amount"`
	CreditCardTotal   *decimal.Decimal `json:"credit_card_total"`
	DebitCardTotal    *decimal.Decimal `json:"debit_card_total"`
	BankTransferTotal *decimal.Decimal `json:"bank_transfer_total"`
}

func validateNonNegative(field string, value *decimal.Decimal) error {
	if value != nil && value.IsNegative() {
		return utils.InvalidFields("amounts cannot be negative", map[string]string{field: "must be >= 0"})
	}
	return nil
}

// fetchSession loads a session by id. Admins see soft-deleted rows (they may
// need to restore them); for everyone else the row predicate hides them and
// the result is a plain not-found.
func fetchSession(ctx context.Context, id int) (*CashSession, error) {
	if isAdmin, _ := utils.GetIsAdminFromContext(ctx); isAdmin {
		ctx = utils.SetIncludeDeletedInContext(ctx, true)
	}
	return utils.FetchSingleModel[CashSession](ctx, id)
}

// isDuplicateOpenSlot detects the unique open_slot index rejecting a second
// OPEN session for the same (operator, business).
func isDuplicateOpenSlot(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

// OpenSession starts a shift. The redis lock narrows the race window; the
// unique index is the authority. Losing either way maps to AlreadyOpen.
func OpenSession(ctx context.Context, input *NewCashSession) (*CashSession, error) {

	if err := AuthorizeSessionAction(ctx, ActionOpenSession, input.BusinessId, nil); err != nil {
		return nil, err
	}

	business, err := GetBusinessById(ctx, input.BusinessId)
	if err != nil {
		return nil, err
	}
	if !utils.DereferencePtr(business.IsActive) {
		return nil, utils.Invalid("business is inactive")
	}
	if err := validateNonNegative("initial_cash", input.InitialCash); err != nil {
		return nil, err
	}

	userId, _ := utils.GetUserIdFromContext(ctx)

	release, err := utils.AcquireOperatorSlotLock(ctx, userId, input.BusinessId)
	if err != nil {
		return nil, err
	}
	defer release()

	session := CashSession{
		BusinessId:  input.BusinessId,
		OperatorId:  userId,
		Status:      SessionStatusOpen,
		OpenedAt:    time.Now().UTC(),
		InitialCash: utils.DereferencePtr(input.InitialCash),
		IsFlagged:   utils.NewFalse(),
		IsDeleted:   utils.NewFalse(),
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Create(&session).Error; err != nil {
		tx.Rollback()
		if isDuplicateOpenSlot(err) {
			return nil, alreadyOpenConflict(ctx, userId, input.BusinessId)
		}
		return nil, utils.Integrity("OpenSession", err)
	}
	if err := recordAudit(tx.WithContext(ctx), session.ID, session.BusinessId,
		AuditActionOpen, nil, snapshotSession(&session), ""); err != nil {
		tx.Rollback()
		return nil, utils.Integrity("OpenSession", err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, utils.Integrity("OpenSession", err)
	}
	return &session, nil
}

// alreadyOpenConflict builds the AlreadyOpen error with a pointer to the
// blocking session. The caller already passed the guard for this business,
// so naming the session leaks nothing.
func alreadyOpenConflict(ctx context.Context, operatorId int, businessId string) error {
	var existing CashSession
	db := config.GetDB()
	err := db.WithContext(ctx).
		Where("operator_id = ? AND business_id = ? AND status = ?", operatorId, businessId, SessionStatusOpen).
		First(&existing).Error
	if err != nil {
		return utils.Conflicted(utils.ConflictAlreadyOpen, "an open session already exists")
	}
	return utils.Conflicted(utils.ConflictAlreadyOpen,
		fmt.Sprintf("session %d has been open since %s", existing.ID, existing.OpenedAt.Format(time.RFC3339)))
}

// CloseSession ends a shift, recording the counted amounts and deriving the
// sales figures in the same transaction as the audit line.
func CloseSession(ctx context.Context, id int, input *CloseCashSession) (*CashSession, error) {

	session, err := fetchSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeSessionAction(ctx, ActionCloseSession, session.BusinessId, session); err != nil {
		return nil, err
	}
	if session.Status != SessionStatusOpen {
		return nil, utils.Conflicted(utils.ConflictSessionClosed, "session is already closed")
	}
	for field, value := range map[string]*decimal.Decimal{
		"final_cash":          input.FinalCash,
		"envelope_amount":     input.EnvelopeAmount,
		"credit_card_total":   input.CreditCardTotal,
		"debit_card_total":    input.DebitCardTotal,
		"bank_transfer_total": input.BankTransferTotal,
	} {
		if err := validateNonNegative(field, value); err != nil {
			return nil, err
		}
	}

	before := snapshotSession(session)

	now := time.Now().UTC()
	session.Status = SessionStatusClosed
	session.ClosedAt = &now
	session.FinalCash = utils.DereferencePtr(input.FinalCash)
	session.EnvelopeAmount = utils.DereferencePtr(input.EnvelopeAmount, session.EnvelopeAmount)
	session.CreditCardTotal = utils.DereferencePtr(input.CreditCardTotal, session.CreditCardTotal)
	session.DebitCardTotal = utils.DereferencePtr(input.DebitCardTotal, session.DebitCardTotal)
	session.BankTransferTotal = utils.DereferencePtr(input.BankTransferTotal, session.BankTransferTotal)

	result := Reconcile(ReconciliationFor(session))
	session.CashSales = result.CashSales
	session.TotalSales = result.TotalSales
	session.Difference = result.Difference

	db := config.GetDB()
	tx := db.Begin()
	res := tx.WithContext(ctx).Model(&CashSession{}).Where("id = ? AND status = ?", id, SessionStatusOpen).
		Updates(map[string]interface{}{
			"Status":            session.Status,
			"ClosedAt":          session.ClosedAt,
			"FinalCash":         session.FinalCash,
			"EnvelopeAmount":    session.EnvelopeAmount,
			"CreditCardTotal":   session.CreditCardTotal,
			"DebitCardTotal":    session.DebitCardTotal,
			"BankTransferTotal": session.BankTransferTotal,
			"CashSales":         session.CashSales,
			"TotalSales":        session.TotalSales,
			"Difference":        session.Difference,
		})
	if res.Error != nil {
		tx.Rollback()
		return nil, utils.Integrity("CloseSession", res.Error)
	}
	if res.RowsAffected == 0 {
		// someone else closed it between our read and this write
		tx.Rollback()
		return nil, utils.Conflicted(utils.ConflictSessionNotOpen, "session is already closed")
	}
	if auditErr := recordAudit(tx.WithContext(ctx), session.ID, session.BusinessId,
		AuditActionClose, before, snapshotSession(session), ""); auditErr != nil {
		tx.Rollback()
		return nil, utils.Integrity("CloseSession", auditErr)
	}
	if commitErr := tx.Commit().Error; commitErr != nil {
		return nil, utils.Integrity("CloseSession", commitErr)
	}
	return session, nil
}

// applySessionEdit merges the non-nil amendments into the session and
// re-derives the sales figures from the amended amounts. Open sessions get
// interim figures (the final count is still zero); close re-derives them from
// the real count. Returns the column set for the UPDATE.
func applySessionEdit(session *CashSession, input *EditCashSession) map[string]interface{} {
	session.InitialCash = utils.DereferencePtr(input.InitialCash, session.InitialCash)
	session.FinalCash = utils.DereferencePtr(input.FinalCash, session.FinalCash)
	session.EnvelopeAmount = utils.DereferencePtr(input.EnvelopeAmount, session.EnvelopeAmount)
	session.CreditCardTotal = utils.DereferencePtr(input.CreditCardTotal, session.CreditCardTotal)
	session.DebitCardTotal = utils.DereferencePtr(input.DebitCardTotal, session.DebitCardTotal)
	session.BankTransferTotal = utils.DereferencePtr(input.BankTransferTotal, session.BankTransferTotal)

	result := Reconcile(ReconciliationFor(session))
	session.CashSales = result.CashSales
	session.TotalSales = result.TotalSales
	session.Difference = result.Difference

	return map[string]interface{}{
		"InitialCash":       session.InitialCash,
		"FinalCash":         session.FinalCash,
		"EnvelopeAmount":    session.EnvelopeAmount,
		"CreditCardTotal":   session.CreditCardTotal,
		"DebitCardTotal":    session.DebitCardTotal,
		"BankTransferTotal": session.BankTransferTotal,
		"CashSales":         session.CashSales,
		"TotalSales":        session.TotalSales,
		"Difference":        session.Difference,
	}
}

// EditSession amends a session's counted amounts. Operators can touch their
// own sessions, and a closed one only inside the 32 hour window; the guard
// holds both rules. The derived figures are re-derived on every amendment.
func EditSession(ctx context.Context, id int, input *EditCashSession) (*CashSession, error) {

	session, err := fetchSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeSessionAction(ctx, ActionEditSession, session.BusinessId, session); err != nil {
		return nil, err
	}
	for field, value := range map[string]*decimal.Decimal{
		"initial_cash":        input.InitialCash,
		"final_cash":          input.FinalCash,
		"envelope_amount":     input.EnvelopeAmount,
		"credit_card_total":   input.CreditCardTotal,
		"debit_card_total":    input.DebitCardTotal,
		"bank_transfer_total": input.BankTransferTotal,
	} {
		if err := validateNonNegative(field, value); err != nil {
			return nil, err
		}
	}

	before := snapshotSession(session)
	updates := applySessionEdit(session, input)

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Model(&CashSession{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		tx.Rollback()
		return nil, utils.Integrity("EditSession", err)
	}
	if err := recordAudit(tx.WithContext(ctx), session.ID, session.BusinessId,
		AuditActionEdit, before, snapshotSession(session), ""); err != nil {
		tx.Rollback()
		return nil, utils.Integrity("EditSession", err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, utils.Integrity("EditSession", err)
	}
	return session, nil
}

// FlagSession marks a session for review. Re-flagging with the same reason is
// a no-op and leaves no audit entry; changing the reason counts as a new flag.
func FlagSession(ctx context.Context, id int, reason string) (*CashSession, error) {
	return setSessionFlag(ctx, id, ActionFlagSession, true, reason)
}

func UnflagSession(ctx context.Context, id int) (*CashSession, error) {
	return setSessionFlag(ctx, id, ActionUnflagSession, false, "")
}

// flagChangesNothing reports whether the requested flag state is already in
// place, reason included.
func flagChangesNothing(session *CashSession, flagged bool, reason string) bool {
	if utils.DereferencePtr(session.IsFlagged) != flagged {
		return false
	}
	if !flagged {
		return true
	}
	return session.FlagReason == reason
}

func setSessionFlag(ctx context.Context, id int, action GuardAction, flagged bool, reason string) (*CashSession, error) {

	session, err := fetchSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeSessionAction(ctx, action, session.BusinessId, session); err != nil {
		return nil, err
	}
	if flagged && reason == "" {
		return nil, utils.Invalid("flag reason is required")
	}

	if flagChangesNothing(session, flagged, reason) {
		return session, nil
	}

	before := snapshotSession(session)
	session.IsFlagged = &flagged
	session.FlagReason = reason

	auditAction := AuditActionFlag
	if !flagged {
		auditAction = AuditActionUnflag
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Model(&CashSession{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"IsFlagged":  session.IsFlagged,
			"FlagReason": session.FlagReason,
		}).Error; err != nil {
		tx.Rollback()
		return nil, utils.Integrity("FlagSession", err)
	}
	if err := recordAudit(tx.WithContext(ctx), session.ID, session.BusinessId,
		auditAction, before, snapshotSession(session), reason); err != nil {
		tx.Rollback()
		return nil, utils.Integrity("FlagSession", err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, utils.Integrity("FlagSession", err)
	}
	return session, nil
}

// SoftDeleteSession hides a session from operators and from every report.
// The row and its audit trail stay put; only admins can still see it.
func SoftDeleteSession(ctx context.Context, id int, reason string) (*CashSession, error) {

	session, err := fetchSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeSessionAction(ctx, ActionDeleteSession, session.BusinessId, session); err != nil {
		return nil, err
	}
	if utils.DereferencePtr(session.IsDeleted) {
		return session, nil
	}

	before := snapshotSession(session)
	userId, _ := utils.GetUserIdFromContext(ctx)
	now := time.Now().UTC()
	session.IsDeleted = utils.NewTrue()
	session.DeletedById = userId
	session.DeletedAt = &now

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Model(&CashSession{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"IsDeleted":   session.IsDeleted,
			"DeletedById": session.DeletedById,
			"DeletedAt":   session.DeletedAt,
		}).Error; err != nil {
		tx.Rollback()
		return nil, utils.Integrity("SoftDeleteSession", err)
	}
	if err := recordAudit(tx.WithContext(ctx), session.ID, session.BusinessId,
		AuditActionDelete, before, snapshotSession(session), reason); err != nil {
		tx.Rollback()
		return nil, utils.Integrity("SoftDeleteSession", err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, utils.Integrity("SoftDeleteSession", err)
	}
	return session, nil
}

// RestoreSession brings a soft-deleted session back, clearing the deletion
// metadata. Restoring a live session is a no-op.
func RestoreSession(ctx context.Context, id int) (*CashSession, error) {

	session, err := fetchSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeSessionAction(ctx, ActionRestoreSession, session.BusinessId, session); err != nil {
		return nil, err
	}
	if !utils.DereferencePtr(session.IsDeleted) {
		return session, nil
	}

	before := snapshotSession(session)
	session.IsDeleted = utils.NewFalse()
	session.DeletedById = 0
	session.DeletedAt = nil

	// the row is currently hidden by the deleted predicate
	writeCtx := utils.SetIncludeDeletedInContext(ctx, true)

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(writeCtx).Model(&CashSession{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"IsDeleted":   session.IsDeleted,
			"DeletedById": nil,
			"DeletedAt":   nil,
		}).Error; err != nil {
		tx.Rollback()
		return nil, utils.Integrity("RestoreSession", err)
	}
	if err := recordAudit(tx.WithContext(ctx), session.ID, session.BusinessId,
		AuditActionRestore, before, snapshotSession(session), ""); err != nil {
		tx.Rollback()
		return nil, utils.Integrity("RestoreSession", err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, utils.Integrity("RestoreSession", err)
	}
	return session, nil
}

func GetSession(ctx context.Context, id int) (*CashSession, error) {

	session, err := fetchSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeSessionAction(ctx, ActionViewSession, session.BusinessId, session); err != nil {
		return nil, err
	}

	// load line items for the detail view
	fetchCtx := ctx
	if isAdmin, _ := utils.GetIsAdminFromContext(ctx); isAdmin {
		fetchCtx = utils.SetIncludeDeletedInContext(ctx, true)
	}
	return utils.FetchSingleModel[CashSession](fetchCtx, id, "Expenses", "Transfers")
}

// SessionFilter narrows ListSessions. IncludeDeleted is honored for admins
// only; operators never see deleted rows no matter what they ask for.
type SessionFilter struct {
	BusinessId     *string    `json:"business_id"`
	OperatorId     *int       `json:"operator_id"`
	Status         *string    `json:"status"`
	Flagged        *bool      `json:"flagged"`
	FromDate       *time.Time `json:"from_date"`
	ToDate         *time.Time `json:"to_date"`
	IncludeDeleted bool       `json:"include_deleted"`
}

// ListSessions returns sessions inside the caller's scope, newest first.
func ListSessions(ctx context.Context, filter *SessionFilter) ([]*CashSession, error) {

	if filter == nil {
		filter = &SessionFilter{}
	}

	p, err := GetPrincipal(ctx)
	if err != nil {
		return nil, err
	}

	targetBusiness := ""
	if filter.BusinessId != nil {
		targetBusiness = *filter.BusinessId
	}
	if err := AuthorizeSessionAction(ctx, ActionListSessions, targetBusiness, nil); err != nil {
		return nil, err
	}

	db := config.GetDB()

	queryCtx := ctx
	if p.Role == UserRoleAdmin && filter.IncludeDeleted {
		queryCtx = utils.SetIncludeDeletedInContext(ctx, true)
	}
	dbCtx := db.WithContext(queryCtx)

	if p.Role == UserRoleOperator {
		businessIds, err := GetMemberBusinessIds(ctx, p.Id)
		if err != nil {
			return nil, err
		}
		if len(businessIds) == 0 {
			return []*CashSession{}, nil
		}
		dbCtx = dbCtx.Where("business_id IN ?", businessIds)
	}

	if targetBusiness != "" {
		dbCtx = dbCtx.Where("business_id = ?", targetBusiness)
	}
	if filter.OperatorId != nil && *filter.OperatorId > 0 {
		dbCtx = dbCtx.Where("operator_id = ?", *filter.OperatorId)
	}
	if filter.Status != nil && *filter.Status != "" {
		dbCtx = dbCtx.Where("status = ?", *filter.Status)
	}
	if filter.Flagged != nil {
		dbCtx = dbCtx.Where("is_flagged = ?", *filter.Flagged)
	}
	if filter.FromDate != nil {
		dbCtx = dbCtx.Where("opened_at >= ?", filter.FromDate.UTC())
	}
	if filter.ToDate != nil {
		dbCtx = dbCtx.Where("opened_at <= ?", filter.ToDate.UTC())
	}

	var results []*CashSession
	if err := dbCtx.Order("opened_at DESC, id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
