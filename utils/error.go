package utils

import (
	"errors"
	"fmt"
)

var ErrorRecordNotFound = errors.New("record not found")

// DenyReason is the closed set of guard denial subtypes. The caller relies on
// the specific subtype to pick a recovery action, so these are never collapsed
// into a generic failure.
type DenyReason string

const (
	DenyPrincipalDisabled DenyReason = "PrincipalDisabled"
	DenyNotAssigned       DenyReason = "NotAssigned"
	DenyNotOwner          DenyReason = "NotOwner"
	DenyEditWindowExpired DenyReason = "EditWindowExpired"
	DenyAdminOnly         DenyReason = "AdminOnly"
)

type PermissionDeniedError struct {
	Reason DenyReason
	Detail string
}

func (e *PermissionDeniedError) Error() string {
	if e.Detail == "" {
		return "permission denied: " + string(e.Reason)
	}
	return "permission denied: " + string(e.Reason) + ": " + e.Detail
}

func Denied(reason DenyReason, detail string) error {
	return &PermissionDeniedError{Reason: reason, Detail: detail}
}

func IsDenied(err error, reason DenyReason) bool {
	var pd *PermissionDeniedError
	return errors.As(err, &pd) && pd.Reason == reason
}

type ConflictReason string

const (
	ConflictAlreadyOpen    ConflictReason = "AlreadyOpen"
	ConflictSessionClosed  ConflictReason = "SessionClosed"
	ConflictSessionNotOpen ConflictReason = "SessionNotOpen"
)

type ConflictError struct {
	Reason ConflictReason
	Detail string
}

func (e *ConflictError) Error() string {
	if e.Detail == "" {
		return "conflict: " + string(e.Reason)
	}
	return "conflict: " + string(e.Reason) + ": " + e.Detail
}

func Conflicted(reason ConflictReason, detail string) error {
	return &ConflictError{Reason: reason, Detail: detail}
}

func IsConflict(err error, reason ConflictReason) bool {
	var c *ConflictError
	return errors.As(err, &c) && c.Reason == reason
}

// ValidationError aborts a transition before any write occurs.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func Invalid(message string) error {
	return &ValidationError{Message: message}
}

func InvalidFields(message string, fields map[string]string) error {
	return &ValidationError{Message: message, Fields: fields}
}

// IntegrityError wraps an unexpected storage-layer failure. It is logged with
// full context and surfaced opaquely; the domain is financial, so it must
// never silently succeed or auto-retry.
type IntegrityError struct {
	Op  string
	Err error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity failure in %s: %v", e.Op, e.Err)
}

func (e *IntegrityError) Unwrap() error { return e.Err }

func Integrity(op string, err error) error {
	return &IntegrityError{Op: op, Err: err}
}
