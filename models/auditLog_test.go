package models

import (
	"context"
	"testing"

	"bitbucket.org/mmdatafocus/cashdesk_backend/utils"
	"gorm.io/gorm"
)

// auditTx carries just enough of a transaction for the pre-write checks; the
// cases below all fail before anything would touch the database.
func auditTx(ctx context.Context) *gorm.DB {
	return &gorm.DB{Statement: &gorm.Statement{Context: ctx}}
}

func actorContext() context.Context {
	ctx := utils.SetUserIdInContext(context.Background(), 1)
	return utils.SetUserNameInContext(ctx, "Admin")
}

func TestRecordAudit_RejectsUnencodableSnapshot(t *testing.T) {
	err := recordAudit(auditTx(actorContext()), 10, "biz-1", AuditActionEdit, make(chan int), nil, "")
	if err == nil {
		t.Fatal("an unencodable snapshot must fail the write")
	}
}

func TestRecordAudit_RequiresActorInContext(t *testing.T) {
	session := openSessionOwnedBy(7)

	err := recordAudit(auditTx(context.Background()), session.ID, session.BusinessId,
		AuditActionFlag, nil, snapshotSession(session), "short drawer")
	if err == nil {
		t.Fatal("the actor must come from the authenticated context")
	}

	// a user id alone is not enough; the entry also names the actor
	ctx := utils.SetUserIdInContext(context.Background(), 1)
	err = recordAudit(auditTx(ctx), session.ID, session.BusinessId,
		AuditActionFlag, nil, snapshotSession(session), "short drawer")
	if err == nil {
		t.Fatal("an entry without an actor name must be rejected")
	}
}
