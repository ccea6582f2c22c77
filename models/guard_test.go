package models

import (
	"errors"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/cashdesk_backend/utils"
)

var guardNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func activeAdmin() Principal {
	return Principal{Id: 1, Name: "Admin", Role: UserRoleAdmin, IsActive: true}
}

func activeOperator(id int) Principal {
	return Principal{Id: id, Name: "Operator", Role: UserRoleOperator, IsActive: true}
}

func openSessionOwnedBy(operatorId int) *CashSession {
	return &CashSession{
		ID:         10,
		BusinessId: "biz-1",
		OperatorId: operatorId,
		Status:     SessionStatusOpen,
		OpenedAt:   guardNow.Add(-2 * time.Hour),
		IsFlagged:  utils.NewFalse(),
		IsDeleted:  utils.NewFalse(),
	}
}

func closedSessionOwnedBy(operatorId int, closedAgo time.Duration) *CashSession {
	closedAt := guardNow.Add(-closedAgo)
	s := openSessionOwnedBy(operatorId)
	s.Status = SessionStatusClosed
	s.ClosedAt = &closedAt
	return s
}

func wantDeny(t *testing.T, err error, reason utils.DenyReason) {
	t.Helper()
	if !utils.IsDenied(err, reason) {
		t.Fatalf("expected denial %s, got %v", reason, err)
	}
}

func TestDecide_DisabledPrincipalLosesEverything(t *testing.T) {
	disabledAdmin := activeAdmin()
	disabledAdmin.IsActive = false
	disabledOperator := activeOperator(7)
	disabledOperator.IsActive = false

	actions := []GuardAction{ActionViewSession, ActionOpenSession, ActionFlagSession, ActionListSessions}
	for _, action := range actions {
		wantDeny(t, decideSessionAccess(disabledAdmin, action, false, nil, guardNow), utils.DenyPrincipalDisabled)
		// disabled wins over every later check, membership included
		wantDeny(t, decideSessionAccess(disabledOperator, action, true, openSessionOwnedBy(7), guardNow), utils.DenyPrincipalDisabled)
	}
}

func TestDecide_AdminPassesAllChecks(t *testing.T) {
	admin := activeAdmin()
	deleted := openSessionOwnedBy(99)
	deleted.IsDeleted = utils.NewTrue()
	old := closedSessionOwnedBy(99, 1000*time.Hour)

	cases := []struct {
		action  GuardAction
		session *CashSession
	}{
		{ActionViewSession, openSessionOwnedBy(99)},
		{ActionEditSession, old},
		{ActionFlagSession, openSessionOwnedBy(99)},
		{ActionDeleteSession, openSessionOwnedBy(99)},
		{ActionRestoreSession, deleted},
		{ActionViewSession, deleted},
	}
	for _, tc := range cases {
		// isMember false: admins have no memberships at all
		if err := decideSessionAccess(admin, tc.action, false, tc.session, guardNow); err != nil {
			t.Fatalf("admin %s: unexpected %v", tc.action, err)
		}
	}
}

func TestDecide_OperatorAdminOnlyActions(t *testing.T) {
	op := activeOperator(7)
	own := openSessionOwnedBy(7)

	for _, action := range []GuardAction{ActionFlagSession, ActionUnflagSession, ActionDeleteSession, ActionRestoreSession} {
		// even on their own session, with membership
		wantDeny(t, decideSessionAccess(op, action, true, own, guardNow), utils.DenyAdminOnly)
	}
}

func TestDecide_NonMemberGetsNoTargetDetail(t *testing.T) {
	op := activeOperator(7)
	session := openSessionOwnedBy(7)

	err := decideSessionAccess(op, ActionViewSession, false, session, guardNow)
	wantDeny(t, err, utils.DenyNotAssigned)

	var pd *utils.PermissionDeniedError
	if !errors.As(err, &pd) {
		t.Fatalf("expected PermissionDeniedError, got %T", err)
	}
	if pd.Detail != "" {
		t.Fatalf("membership denial must not describe the target, got %q", pd.Detail)
	}
}

func TestDecide_MembershipAndOwnership(t *testing.T) {
	op := activeOperator(7)

	// member may view and list colleagues' sessions
	if err := decideSessionAccess(op, ActionViewSession, true, openSessionOwnedBy(99), guardNow); err != nil {
		t.Fatalf("member view: unexpected %v", err)
	}
	if err := decideSessionAccess(op, ActionOpenSession, true, nil, guardNow); err != nil {
		t.Fatalf("member open: unexpected %v", err)
	}

	// but mutating another operator's session is NotOwner
	wantDeny(t, decideSessionAccess(op, ActionCloseSession, true, openSessionOwnedBy(99), guardNow), utils.DenyNotOwner)
	wantDeny(t, decideSessionAccess(op, ActionEditSession, true, closedSessionOwnedBy(99, time.Hour), guardNow), utils.DenyNotOwner)

	// own sessions are mutable
	if err := decideSessionAccess(op, ActionCloseSession, true, openSessionOwnedBy(7), guardNow); err != nil {
		t.Fatalf("close own: unexpected %v", err)
	}
}

func TestImpliedMembership_UnfilteredScopedReads(t *testing.T) {
	cases := []struct {
		action     GuardAction
		businessId string
		implied    bool
	}{
		{ActionListSessions, "", true},
		{ActionViewReport, "", true},
		{ActionListSessions, "biz-1", false},
		{ActionViewReport, "biz-1", false},
		{ActionOpenSession, "", false},
		{ActionViewSession, "", false},
	}
	for _, tc := range cases {
		if got := impliedMembership(tc.action, tc.businessId); got != tc.implied {
			t.Fatalf("%s with business %q: implied=%v, want %v", tc.action, tc.businessId, got, tc.implied)
		}
	}

	// an operator listing or reporting without a business filter must not be
	// turned away as NotAssigned; the membership-scoped IN clause in the query
	// is what narrows the rows
	op := activeOperator(7)
	for _, action := range []GuardAction{ActionListSessions, ActionViewReport} {
		err := decideSessionAccess(op, action, impliedMembership(action, ""), nil, guardNow)
		if err != nil {
			t.Fatalf("%s without business filter: unexpected %v", action, err)
		}
	}
}

func TestDecide_EditWindowBoundary(t *testing.T) {
	op := activeOperator(7)

	cases := []struct {
		name      string
		closedAgo time.Duration
		allowed   bool
	}{
		{"just closed", time.Minute, true},
		{"one second inside the window", OperatorEditWindow - time.Second, true},
		{"exactly at the boundary", OperatorEditWindow, false},
		{"well past", OperatorEditWindow + 24*time.Hour, false},
	}
	for _, tc := range cases {
		err := decideSessionAccess(op, ActionEditSession, true, closedSessionOwnedBy(7, tc.closedAgo), guardNow)
		if tc.allowed && err != nil {
			t.Fatalf("%s: expected allow, got %v", tc.name, err)
		}
		if !tc.allowed {
			wantDeny(t, err, utils.DenyEditWindowExpired)
		}
	}

	// the window only applies to closed sessions
	if err := decideSessionAccess(op, ActionEditSession, true, openSessionOwnedBy(7), guardNow); err != nil {
		t.Fatalf("edit open session: unexpected %v", err)
	}
}

func TestDecide_DeletedSessionInvisibleToOperators(t *testing.T) {
	op := activeOperator(7)
	deleted := openSessionOwnedBy(7)
	deleted.IsDeleted = utils.NewTrue()

	for _, action := range []GuardAction{ActionViewSession, ActionCloseSession, ActionEditSession} {
		err := decideSessionAccess(op, action, true, deleted, guardNow)
		// not a denial: the record simply does not exist for this caller
		if !errors.Is(err, utils.ErrorRecordNotFound) {
			t.Fatalf("%s on deleted session: expected not-found, got %v", action, err)
		}
	}
}
