package models

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/cashdesk_backend/config"
	"bitbucket.org/mmdatafocus/cashdesk_backend/utils"
	"gorm.io/gorm"
)

// AuditLogEntry is one line of a session's history. The table is append
// only: there is no update or delete path anywhere in this package, and
// entries survive the session being soft deleted.
type AuditLogEntry struct {
	ID         int         `gorm:"primary_key" json:"id"`
	SessionId  int         `gorm:"index;not null" json:"session_id"`
	BusinessId string      `gorm:"index;size:191;not null" json:"business_id"`
	Action     AuditAction `gorm:"size:10;not null" json:"action"`
	Before     string      `gorm:"type:text" json:"before"`
	After      string      `gorm:"type:text" json:"after"`
	Reason     string      `gorm:"type:text" json:"reason"`
	ActorId    int         `gorm:"index;not null" json:"actor_id"`
	ActorName  string      `gorm:"size:100" json:"actor_name"`
	CreatedAt  time.Time   `gorm:"autoCreateTime" json:"created_at"`
}

// recordAudit appends one entry inside the caller's transaction, so a session
// mutation and its audit line commit or roll back together. The actor comes
// from the transaction context, never from client input.
func recordAudit(tx *gorm.DB,
	sessionId int,
	businessId string,
	action AuditAction,
	before interface{},
	after interface{},
	reason string) error {

	// a snapshot that cannot be encoded must fail the whole transaction, not
	// leave an empty blob in the trail
	b, err := json.Marshal(before)
	if err != nil {
		return err
	}
	a, err := json.Marshal(after)
	if err != nil {
		return err
	}

	ctx := tx.Statement.Context
	actorId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || actorId == 0 {
		return errors.New("user id is required")
	}
	actorName, ok := utils.GetUserNameFromContext(ctx)
	if !ok {
		return errors.New("user name is required")
	}

	entry := AuditLogEntry{
		SessionId:  sessionId,
		BusinessId: businessId,
		Action:     action,
		Before:     string(b),
		After:      string(a),
		Reason:     reason,
		ActorId:    actorId,
		ActorName:  actorName,
	}

	return tx.Create(&entry).Error
}

// auditSnapshot is the slice of a session that goes into before/after blobs.
// Keeping it narrow makes entries stable across schema additions.
type auditSnapshot struct {
	Status            SessionStatus   `json:"status"`
	InitialCash       string          `json:"initial_cash"`
	FinalCash         string          `json:"final_cash"`
	EnvelopeAmount    string          `json:"envelope_amount"`
	CreditCardTotal   string          `json:"credit_card_total"`
	DebitCardTotal    string          `json:"debit_card_total"`
	BankTransferTotal string          `json:"bank_transfer_total"`
	IsFlagged         bool            `json:"is_flagged"`
	FlagReason        string          `json:"flag_reason"`
	IsDeleted         bool            `json:"is_deleted"`
	ClosedAt          *time.Time      `json:"closed_at,omitempty"`
}

func snapshotSession(session *CashSession) *auditSnapshot {
	if session == nil {
		return nil
	}
	return &auditSnapshot{
		Status:            session.Status,
		InitialCash:       session.InitialCash.String(),
		FinalCash:         session.FinalCash.String(),
		EnvelopeAmount:    session.EnvelopeAmount.String(),
		CreditCardTotal:   session.CreditCardTotal.String(),
		DebitCardTotal:    session.DebitCardTotal.String(),
		BankTransferTotal: session.BankTransferTotal.String(),
		IsFlagged:         utils.DereferencePtr(session.IsFlagged),
		FlagReason:        session.FlagReason,
		IsDeleted:         utils.DereferencePtr(session.IsDeleted),
		ClosedAt:          session.ClosedAt,
	}
}

// GetSessionAudit lists a session's trail, newest first. The caller must be
// able to view the session itself; the entries then come back whole.
func GetSessionAudit(ctx context.Context, sessionId int) ([]*AuditLogEntry, error) {

	session, err := fetchSession(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeSessionAction(ctx, ActionViewSession, session.BusinessId, session); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var results []*AuditLogEntry
	if err := db.WithContext(ctx).
		Where("session_id = ?", sessionId).
		Order("created_at DESC, id DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
