package models

import (
	"fmt"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/cashdesk_backend/utils"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
)

func TestFlagChangesNothing(t *testing.T) {
	flaggedShort := &CashSession{IsFlagged: utils.NewTrue(), FlagReason: "short drawer"}
	unflagged := &CashSession{IsFlagged: utils.NewFalse()}

	cases := []struct {
		name    string
		session *CashSession
		flagged bool
		reason  string
		noop    bool
	}{
		{"same flag same reason", flaggedShort, true, "short drawer", true},
		{"same flag different reason", flaggedShort, true, "missing envelope", false},
		{"unflag a flagged session", flaggedShort, false, "", false},
		{"unflag an unflagged session", unflagged, false, "", true},
		{"flag an unflagged session", unflagged, true, "short drawer", false},
	}
	for _, tc := range cases {
		if got := flagChangesNothing(tc.session, tc.flagged, tc.reason); got != tc.noop {
			t.Fatalf("%s: expected noop=%v, got %v", tc.name, tc.noop, got)
		}
	}
}

func TestIsDuplicateOpenSlot(t *testing.T) {
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry '7:biz-1' for key 'idx_open_slot'"}
	if !isDuplicateOpenSlot(dup) {
		t.Fatal("1062 should be recognized as a duplicate open slot")
	}
	if !isDuplicateOpenSlot(fmt.Errorf("create: %w", dup)) {
		t.Fatal("wrapped 1062 should still be recognized")
	}
	if isDuplicateOpenSlot(&mysql.MySQLError{Number: 1213}) {
		t.Fatal("deadlock is not a duplicate open slot")
	}
	if isDuplicateOpenSlot(fmt.Errorf("plain error")) {
		t.Fatal("non-mysql errors are not duplicates")
	}
}

func TestValidateNonNegative(t *testing.T) {
	neg := decimal.NewFromInt(-1)
	zero := decimal.Zero

	if err := validateNonNegative("initial_cash", nil); err != nil {
		t.Fatalf("nil amount: unexpected %v", err)
	}
	if err := validateNonNegative("initial_cash", &zero); err != nil {
		t.Fatalf("zero amount: unexpected %v", err)
	}
	err := validateNonNegative("initial_cash", &neg)
	var validation *utils.ValidationError
	if !asValidation(err, &validation) {
		t.Fatalf("negative amount: expected validation error, got %v", err)
	}
	if validation.Fields["initial_cash"] == "" {
		t.Fatal("validation error should name the offending field")
	}
}

func asValidation(err error, target **utils.ValidationError) bool {
	v, ok := err.(*utils.ValidationError)
	if ok {
		*target = v
	}
	return ok
}

func TestApplySessionEdit_RederivesFiguresOnEveryAmendment(t *testing.T) {
	closed := closedSessionOwnedBy(7, time.Hour)
	closed.InitialCash = dec("100")
	closed.FinalCash = dec("450")

	envelope := dec("200")
	updates := applySessionEdit(closed, &EditCashSession{EnvelopeAmount: &envelope})

	if closed.CashSales.String() != "550" {
		t.Fatalf("closed edit: cash sales expected 550, got %s", closed.CashSales)
	}
	if got := updates["TotalSales"].(decimal.Decimal); got.String() != "550" {
		t.Fatalf("closed edit: updates must carry the re-derived total, got %s", got)
	}

	// an open session's figures track the amendment too; close re-derives
	// them from the real final count
	open := openSessionOwnedBy(7)
	open.InitialCash = dec("100")

	initial := dec("80")
	updates = applySessionEdit(open, &EditCashSession{InitialCash: &initial})

	if open.CashSales.String() != "-80" {
		t.Fatalf("open edit: cash sales expected -80, got %s", open.CashSales)
	}
	if _, ok := updates["Difference"]; !ok {
		t.Fatal("open edit: derived columns must be written back")
	}

	// untouched fields survive the merge
	if open.InitialCash.String() != "80" {
		t.Fatalf("initial cash expected 80, got %s", open.InitialCash)
	}
	if closed.FinalCash.String() != "450" {
		t.Fatalf("final cash must be untouched, got %s", closed.FinalCash)
	}
}

func TestStatusAndActionEnums(t *testing.T) {
	if !SessionStatusOpen.Valid() || !SessionStatusClosed.Valid() {
		t.Fatal("lifecycle statuses must be valid")
	}
	if SessionStatus("VOID").Valid() {
		t.Fatal("unknown status must be rejected")
	}

	adminOnly := map[GuardAction]bool{
		ActionFlagSession:    true,
		ActionUnflagSession:  true,
		ActionDeleteSession:  true,
		ActionRestoreSession: true,
	}
	all := []GuardAction{
		ActionOpenSession, ActionViewSession, ActionListSessions,
		ActionCloseSession, ActionEditSession, ActionFlagSession,
		ActionUnflagSession, ActionDeleteSession, ActionRestoreSession,
		ActionViewReport,
	}
	for _, action := range all {
		if action.IsAdminOnly() != adminOnly[action] {
			t.Fatalf("%s: admin-only classification wrong", action)
		}
	}
	if !ActionCloseSession.IsSessionMutation() || !ActionEditSession.IsSessionMutation() {
		t.Fatal("close and edit are session mutations")
	}
	if ActionViewSession.IsSessionMutation() || ActionFlagSession.IsSessionMutation() {
		t.Fatal("view and flag must not require ownership")
	}
}
