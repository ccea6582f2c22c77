package models

import (
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/cashdesk_backend/utils"
)

func TestSessionExportRow_ClosedSession(t *testing.T) {
	closedAt := time.Date(2025, 6, 10, 21, 15, 0, 0, time.UTC)
	session := &CashSession{
		ID:          42,
		BusinessId:  "biz-1",
		OperatorId:  7,
		Status:      SessionStatusClosed,
		OpenedAt:    time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC),
		ClosedAt:    &closedAt,
		InitialCash: dec("100"),
		FinalCash:   dec("450"),
		IsFlagged:   utils.NewFalse(),
	}

	row := sessionExportRow(session, "Downtown Branch")

	if len(row) != len(sessionExportHeadings) {
		t.Fatalf("row width %d != heading width %d", len(row), len(sessionExportHeadings))
	}
	if row[1] != "Downtown Branch" {
		t.Fatalf("business name expected, got %v", row[1])
	}
	if row[5] != "2025-06-10T21:15:00Z" {
		t.Fatalf("closed_at formatting wrong: %v", row[5])
	}
	// money figures come from the reconciliation, not the zeroed stored columns
	if row[13] != "350" {
		t.Fatalf("total sales expected 350, got %v", row[13])
	}
}

func TestSessionExportRow_OpenSessionHasNoMoneyFigures(t *testing.T) {
	session := &CashSession{
		ID:          43,
		Status:      SessionStatusOpen,
		OpenedAt:    time.Date(2025, 6, 11, 9, 0, 0, 0, time.UTC),
		InitialCash: dec("100"),
		IsFlagged:   utils.NewFalse(),
	}

	row := sessionExportRow(session, "Downtown Branch")

	if row[5] != "" {
		t.Fatalf("open session must have blank closed_at, got %v", row[5])
	}
	if row[12] != "" || row[13] != "" || row[14] != "" {
		t.Fatal("open session must not report sales figures")
	}
}
