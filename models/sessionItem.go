package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/cashdesk_backend/config"
	"bitbucket.org/mmdatafocus/cashdesk_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ExpenseItem is money taken out of the drawer during a shift (supplies,
// petty cash). It rolls up into the session's expense_total and is carried
// for review; it does not enter the sales formula.
type ExpenseItem struct {
	ID          int             `gorm:"primary_key" json:"id"`
	SessionId   int             `gorm:"index;not null" json:"session_id"`
	BusinessId  string          `gorm:"index;size:191;not null" json:"business_id"`
	Description string          `gorm:"size:255;not null" json:"description"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	SpentAt     time.Time       `gorm:"not null" json:"spent_at"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// TransferItem is one bank transfer received during a shift. The items sum
// into the session's bank_transfer_total, which the reconciliation uses.
type TransferItem struct {
	ID            int             `gorm:"primary_key" json:"id"`
	SessionId     int             `gorm:"index;not null" json:"session_id"`
	BusinessId    string          `gorm:"index;size:191;not null" json:"business_id"`
	Description   string          `gorm:"size:255" json:"description"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	TransferredAt time.Time       `gorm:"not null" json:"transferred_at"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewSessionItem struct {
	Description string           `json:"description" binding:"required"`
	Amount      *decimal.Decimal `json:"amount" binding:"required"`
	OccurredAt  *time.Time       `json:"occurred_at"`
}

func (input *NewSessionItem) validate() error {
	if input.Amount == nil || !input.Amount.IsPositive() {
		return utils.InvalidFields("invalid item", map[string]string{"amount": "must be > 0"})
	}
	return nil
}

func (input *NewSessionItem) occurredOrNow() time.Time {
	if input.OccurredAt != nil {
		return input.OccurredAt.UTC()
	}
	return time.Now().UTC()
}

// itemMutableSession loads the target session and checks the caller may amend
// it. Line item changes follow the same rules as field edits, ownership and
// the closed-session window included.
func itemMutableSession(ctx context.Context, sessionId int) (*CashSession, error) {
	session, err := fetchSession(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeSessionAction(ctx, ActionEditSession, session.BusinessId, session); err != nil {
		return nil, err
	}
	return session, nil
}

func sumItemAmounts(tx *gorm.DB, model interface{}, sessionId int) (decimal.Decimal, error) {
	var raw *string
	if err := tx.Model(model).Where("session_id = ?", sessionId).
		Select("SUM(amount)").Row().Scan(&raw); err != nil {
		return decimal.Zero, err
	}
	if raw == nil {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(*raw)
}

// refreshSessionItemTotals recomputes the affected rollup column after an
// item change, and the derived figures when the session is already closed.
func refreshSessionItemTotals(tx *gorm.DB, session *CashSession, expenses bool) error {
	updates := map[string]interface{}{}

	if expenses {
		total, err := sumItemAmounts(tx, &ExpenseItem{}, session.ID)
		if err != nil {
			return err
		}
		session.ExpenseTotal = total
		updates["ExpenseTotal"] = total
	} else {
		total, err := sumItemAmounts(tx, &TransferItem{}, session.ID)
		if err != nil {
			return err
		}
		session.BankTransferTotal = total
		updates["BankTransferTotal"] = total
		if session.Status == SessionStatusClosed {
			result := Reconcile(ReconciliationFor(session))
			session.CashSales = result.CashSales
			session.TotalSales = result.TotalSales
			session.Difference = result.Difference
			updates["CashSales"] = session.CashSales
			updates["TotalSales"] = session.TotalSales
			updates["Difference"] = session.Difference
		}
	}

	return tx.Model(&CashSession{}).Where("id = ?", session.ID).Updates(updates).Error
}

func AddExpenseItem(ctx context.Context, sessionId int, input *NewSessionItem) (*ExpenseItem, error) {

	session, err := itemMutableSession(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	before := snapshotSession(session)
	item := ExpenseItem{
		SessionId:   sessionId,
		BusinessId:  session.BusinessId,
		Description: input.Description,
		Amount:      *input.Amount,
		SpentAt:     input.occurredOrNow(),
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Create(&item).Error; err != nil {
		tx.Rollback()
		return nil, utils.Integrity("AddExpenseItem", err)
	}
	if err := refreshSessionItemTotals(tx.WithContext(ctx), session, true); err != nil {
		tx.Rollback()
		return nil, utils.Integrity("AddExpenseItem", err)
	}
	if err := recordAudit(tx.WithContext(ctx), session.ID, session.BusinessId,
		AuditActionEdit, before, snapshotSession(session), "expense item added: "+input.Description); err != nil {
		tx.Rollback()
		return nil, utils.Integrity("AddExpenseItem", err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, utils.Integrity("AddExpenseItem", err)
	}
	return &item, nil
}

func RemoveExpenseItem(ctx context.Context, itemId int) (bool, error) {

	db := config.GetDB()
	var item ExpenseItem
	if err := db.WithContext(ctx).First(&item, itemId).Error; err != nil {
		return false, utils.ErrorRecordNotFound
	}

	session, err := itemMutableSession(ctx, item.SessionId)
	if err != nil {
		return false, err
	}

	before := snapshotSession(session)

	tx := db.Begin()
	if err := tx.WithContext(ctx).Delete(&item).Error; err != nil {
		tx.Rollback()
		return false, utils.Integrity("RemoveExpenseItem", err)
	}
	if err := refreshSessionItemTotals(tx.WithContext(ctx), session, true); err != nil {
		tx.Rollback()
		return false, utils.Integrity("RemoveExpenseItem", err)
	}
	if err := recordAudit(tx.WithContext(ctx), session.ID, session.BusinessId,
		AuditActionEdit, before, snapshotSession(session), "expense item removed: "+item.Description); err != nil {
		tx.Rollback()
		return false, utils.Integrity("RemoveExpenseItem", err)
	}
	if err := tx.Commit().Error; err != nil {
		return false, utils.Integrity("RemoveExpenseItem", err)
	}
	return true, nil
}

func AddTransferItem(ctx context.Context, sessionId int, input *NewSessionItem) (*TransferItem, error) {

	session, err := itemMutableSession(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	before := snapshotSession(session)
	item := TransferItem{
		SessionId:     sessionId,
		BusinessId:    session.BusinessId,
		Description:   input.Description,
		Amount:        *input.Amount,
		TransferredAt: input.occurredOrNow(),
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Create(&item).Error; err != nil {
		tx.Rollback()
		return nil, utils.Integrity("AddTransferItem", err)
	}
	if err := refreshSessionItemTotals(tx.WithContext(ctx), session, false); err != nil {
		tx.Rollback()
		return nil, utils.Integrity("AddTransferItem", err)
	}
	if err := recordAudit(tx.WithContext(ctx), session.ID, session.BusinessId,
		AuditActionEdit, before, snapshotSession(session), "transfer item added: "+input.Description); err != nil {
		tx.Rollback()
		return nil, utils.Integrity("AddTransferItem", err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, utils.Integrity("AddTransferItem", err)
	}
	return &item, nil
}

func RemoveTransferItem(ctx context.Context, itemId int) (bool, error) {

	db := config.GetDB()
	var item TransferItem
	if err := db.WithContext(ctx).First(&item, itemId).Error; err != nil {
		return false, utils.ErrorRecordNotFound
	}

	session, err := itemMutableSession(ctx, item.SessionId)
	if err != nil {
		return false, err
	}

	before := snapshotSession(session)

	tx := db.Begin()
	if err := tx.WithContext(ctx).Delete(&item).Error; err != nil {
		tx.Rollback()
		return false, utils.Integrity("RemoveTransferItem", err)
	}
	if err := refreshSessionItemTotals(tx.WithContext(ctx), session, false); err != nil {
		tx.Rollback()
		return false, utils.Integrity("RemoveTransferItem", err)
	}
	if err := recordAudit(tx.WithContext(ctx), session.ID, session.BusinessId,
		AuditActionEdit, before, snapshotSession(session), "transfer item removed: "+item.Description); err != nil {
		tx.Rollback()
		return false, utils.Integrity("RemoveTransferItem", err)
	}
	if err := tx.Commit().Error; err != nil {
		return false, utils.Integrity("RemoveTransferItem", err)
	}
	return true, nil
}
