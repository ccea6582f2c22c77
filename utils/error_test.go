package utils

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsDenied_MatchesSubtypeThroughWrapping(t *testing.T) {
	err := Denied(DenyEditWindowExpired, "too late")

	if !IsDenied(err, DenyEditWindowExpired) {
		t.Fatal("direct match failed")
	}
	if IsDenied(err, DenyNotOwner) {
		t.Fatal("subtypes must not be interchangeable")
	}

	wrapped := fmt.Errorf("edit session: %w", err)
	if !IsDenied(wrapped, DenyEditWindowExpired) {
		t.Fatal("wrapped match failed")
	}
	if IsDenied(errors.New("plain"), DenyEditWindowExpired) {
		t.Fatal("plain errors are not denials")
	}
}

func TestIsConflict(t *testing.T) {
	err := Conflicted(ConflictAlreadyOpen, "session 5 has been open since 09:00")
	if !IsConflict(err, ConflictAlreadyOpen) {
		t.Fatal("direct match failed")
	}
	if IsConflict(err, ConflictSessionNotOpen) {
		t.Fatal("conflict reasons must not be interchangeable")
	}
	if !IsConflict(fmt.Errorf("open: %w", err), ConflictAlreadyOpen) {
		t.Fatal("wrapped match failed")
	}
}

func TestIntegrityError_WrapsCause(t *testing.T) {
	cause := errors.New("driver: bad connection")
	err := Integrity("CloseSession", cause)

	if !errors.Is(err, cause) {
		t.Fatal("integrity errors must preserve their cause")
	}
	var ie *IntegrityError
	if !errors.As(err, &ie) || ie.Op != "CloseSession" {
		t.Fatalf("expected IntegrityError with op, got %v", err)
	}
}

func TestValidationError_CarriesFields(t *testing.T) {
	err := InvalidFields("amounts cannot be negative", map[string]string{"final_cash": "must be >= 0"})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if ve.Fields["final_cash"] == "" {
		t.Fatal("field detail lost")
	}
}
