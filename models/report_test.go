package models

import (
	"testing"

	"bitbucket.org/mmdatafocus/cashdesk_backend/utils"
)

func TestSummarizeSessions_MixedBatch(t *testing.T) {
	closed := &CashSession{
		Status:            SessionStatusClosed,
		InitialCash:       dec("100"),
		FinalCash:         dec("450"),
		EnvelopeAmount:    dec("200"),
		CreditCardTotal:   dec("300"),
		DebitCardTotal:    dec("150"),
		BankTransferTotal: dec("80"),
		IsFlagged:         utils.NewFalse(),
	}
	closedFlagged := &CashSession{
		Status:      SessionStatusClosed,
		InitialCash: dec("50"),
		FinalCash:   dec("250"),
		IsFlagged:   utils.NewTrue(),
		FlagReason:  "count mismatch",
	}
	open := &CashSession{
		Status:      SessionStatusOpen,
		InitialCash: dec("100"),
		IsFlagged:   utils.NewFalse(),
	}
	openFlagged := &CashSession{
		Status:      SessionStatusOpen,
		InitialCash: dec("100"),
		IsFlagged:   utils.NewTrue(),
		FlagReason:  "left unattended",
	}

	totals := SummarizeSessions([]*CashSession{closed, closedFlagged, open, openFlagged})

	if totals.SessionCount != 4 {
		t.Fatalf("session count expected 4, got %d", totals.SessionCount)
	}
	if totals.ClosedCount != 2 {
		t.Fatalf("closed count expected 2, got %d", totals.ClosedCount)
	}
	if totals.FlaggedCount != 2 {
		t.Fatalf("flagged count expected 2, got %d", totals.FlaggedCount)
	}
	if totals.FlagRate.String() != "0.5" {
		t.Fatalf("flag rate expected 0.5, got %s", totals.FlagRate)
	}
	// closed: 1080 + 200; open sessions contribute no money
	if totals.TotalSales.String() != "1280" {
		t.Fatalf("total sales expected 1280, got %s", totals.TotalSales)
	}
	if totals.CashSales.String() != "750" {
		t.Fatalf("cash sales expected 750, got %s", totals.CashSales)
	}
	if totals.Difference.String() != "530" {
		t.Fatalf("difference expected 530, got %s", totals.Difference)
	}
}

func TestSummarizeSessions_Empty(t *testing.T) {
	totals := SummarizeSessions(nil)
	if totals.SessionCount != 0 || totals.FlaggedCount != 0 {
		t.Fatal("empty batch must count nothing")
	}
	if !totals.TotalSales.IsZero() || !totals.FlagRate.IsZero() {
		t.Fatal("empty batch money figures must be zero")
	}
}

// The report ignores stored derived columns and recomputes from counted
// amounts, so a stale stored total cannot leak into an aggregate.
func TestSummarizeSessions_IgnoresStoredDerivedColumns(t *testing.T) {
	session := &CashSession{
		Status:      SessionStatusClosed,
		InitialCash: dec("100"),
		FinalCash:   dec("450"),
		IsFlagged:   utils.NewFalse(),
		TotalSales:  dec("123456"),
		CashSales:   dec("123456"),
		Difference:  dec("123456"),
	}
	totals := SummarizeSessions([]*CashSession{session})
	if totals.TotalSales.String() != "350" {
		t.Fatalf("expected recomputed 350, got %s", totals.TotalSales)
	}
}
