package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

// UserRole is the closed global role set. There is no dynamic role dispatch:
// every guard decision branches on this tagged value.
type UserRole string

const (
	UserRoleAdmin    UserRole = "A"
	UserRoleOperator UserRole = "O"
)

func (r UserRole) Valid() bool {
	return r == UserRoleAdmin || r == UserRoleOperator
}

func (r *UserRole) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		*r = UserRole(v)
	case string:
		*r = UserRole(v)
	default:
		return fmt.Errorf("unsupported user role value: %v", value)
	}
	if !r.Valid() {
		return errors.New("invalid user role")
	}
	return nil
}

func (r UserRole) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, errors.New("invalid user role")
	}
	return string(r), nil
}

func (r UserRole) DisplayName() string {
	if r == UserRoleAdmin {
		return "Admin"
	}
	return "Operator"
}

type SessionStatus string

const (
	SessionStatusOpen   SessionStatus = "OPEN"
	SessionStatusClosed SessionStatus = "CLOSED"
)

func (s SessionStatus) Valid() bool {
	return s == SessionStatusOpen || s == SessionStatusClosed
}

func (s *SessionStatus) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		*s = SessionStatus(v)
	case string:
		*s = SessionStatus(v)
	default:
		return fmt.Errorf("unsupported session status value: %v", value)
	}
	if !s.Valid() {
		return errors.New("invalid session status")
	}
	return nil
}

func (s SessionStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, errors.New("invalid session status")
	}
	return string(s), nil
}

// AuditAction tags an audit trail entry with the lifecycle transition that
// produced it.
type AuditAction string

const (
	AuditActionOpen    AuditAction = "OPEN"
	AuditActionClose   AuditAction = "CLOSE"
	AuditActionEdit    AuditAction = "EDIT"
	AuditActionFlag    AuditAction = "FLAG"
	AuditActionUnflag  AuditAction = "UNFLAG"
	AuditActionDelete  AuditAction = "DELETE"
	AuditActionRestore AuditAction = "RESTORE"
)

// GuardAction names the operation being authorized. Every entry point that
// touches sessions declares its action explicitly; the guard's decision table
// keys off it.
type GuardAction string

const (
	ActionOpenSession    GuardAction = "OpenSession"
	ActionViewSession    GuardAction = "ViewSession"
	ActionListSessions   GuardAction = "ListSessions"
	ActionCloseSession   GuardAction = "CloseSession"
	ActionEditSession    GuardAction = "EditSession"
	ActionFlagSession    GuardAction = "FlagSession"
	ActionUnflagSession  GuardAction = "UnflagSession"
	ActionDeleteSession  GuardAction = "DeleteSession"
	ActionRestoreSession GuardAction = "RestoreSession"
	ActionViewReport     GuardAction = "ViewReport"
)

func (a GuardAction) IsAdminOnly() bool {
	switch a {
	case ActionFlagSession, ActionUnflagSession, ActionDeleteSession, ActionRestoreSession:
		return true
	}
	return false
}

// IsScopedRead reports whether the action reads across the caller's whole
// membership scope rather than one named record.
func (a GuardAction) IsScopedRead() bool {
	switch a {
	case ActionListSessions, ActionViewReport:
		return true
	}
	return false
}

// IsSessionMutation reports whether the action rewrites an existing session's
// own fields. Operators must own the record for these.
func (a GuardAction) IsSessionMutation() bool {
	switch a {
	case ActionCloseSession, ActionEditSession:
		return true
	}
	return false
}
