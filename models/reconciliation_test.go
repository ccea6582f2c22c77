package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestReconcile_DerivesSalesFigures(t *testing.T) {
	cases := []struct {
		name       string
		in         ReconciliationInput
		cashSales  string
		totalSales string
		difference string
	}{
		{
			name: "full shift",
			in: ReconciliationInput{
				InitialCash:       dec("100"),
				FinalCash:         dec("450"),
				EnvelopeAmount:    dec("200"),
				CreditCardTotal:   dec("300"),
				DebitCardTotal:    dec("150"),
				BankTransferTotal: dec("80"),
			},
			cashSales:  "550",
			totalSales: "1080",
			difference: "530",
		},
		{
			name: "cash only",
			in: ReconciliationInput{
				InitialCash: dec("50"),
				FinalCash:   dec("320.75"),
			},
			cashSales:  "270.75",
			totalSales: "270.75",
			difference: "0",
		},
		{
			name: "drawer shortfall yields negative cash sales",
			in: ReconciliationInput{
				InitialCash:     dec("500"),
				FinalCash:       dec("420"),
				CreditCardTotal: dec("90"),
			},
			cashSales:  "-80",
			totalSales: "10",
			difference: "90",
		},
		{
			name:       "all zero",
			in:         ReconciliationInput{},
			cashSales:  "0",
			totalSales: "0",
			difference: "0",
		},
	}

	for _, tc := range cases {
		got := Reconcile(tc.in)
		if got.CashSales.String() != tc.cashSales {
			t.Fatalf("%s: cash sales expected %s, got %s", tc.name, tc.cashSales, got.CashSales)
		}
		if got.TotalSales.String() != tc.totalSales {
			t.Fatalf("%s: total sales expected %s, got %s", tc.name, tc.totalSales, got.TotalSales)
		}
		if got.Difference.String() != tc.difference {
			t.Fatalf("%s: difference expected %s, got %s", tc.name, tc.difference, got.Difference)
		}
	}
}

// The difference is by construction the sum of the non-cash tenders. If the
// formula ever drifts, this catches it independently of the fixture values.
func TestReconcile_DifferenceEqualsNonCashTenders(t *testing.T) {
	inputs := []ReconciliationInput{
		{InitialCash: dec("10"), FinalCash: dec("99.99"), EnvelopeAmount: dec("5"), CreditCardTotal: dec("12.34"), DebitCardTotal: dec("0.01"), BankTransferTotal: dec("7")},
		{InitialCash: dec("1000"), FinalCash: dec("1"), CreditCardTotal: dec("3000")},
		{},
	}
	for i, in := range inputs {
		got := Reconcile(in)
		nonCash := in.CreditCardTotal.Add(in.DebitCardTotal).Add(in.BankTransferTotal)
		if !got.Difference.Equal(nonCash) {
			t.Fatalf("case %d: difference %s != non-cash tenders %s", i, got.Difference, nonCash)
		}
		if !got.TotalSales.Equal(got.CashSales.Add(nonCash)) {
			t.Fatalf("case %d: total %s != cash %s + non-cash %s", i, got.TotalSales, got.CashSales, nonCash)
		}
	}
}

func TestReconcile_ExactDecimalArithmetic(t *testing.T) {
	// 0.1 + 0.2 must be exactly 0.3, not a float approximation
	got := Reconcile(ReconciliationInput{
		FinalCash:      dec("0.1"),
		EnvelopeAmount: dec("0.2"),
	})
	if got.CashSales.String() != "0.3" {
		t.Fatalf("expected exactly 0.3, got %s", got.CashSales)
	}
}

func TestReconciliationFor_ReadsCountedColumns(t *testing.T) {
	session := &CashSession{
		InitialCash:       dec("100"),
		FinalCash:         dec("450"),
		EnvelopeAmount:    dec("200"),
		CreditCardTotal:   dec("300"),
		DebitCardTotal:    dec("150"),
		BankTransferTotal: dec("80"),
		// stored derived columns are deliberately garbage; they must not
		// influence a recomputation
		CashSales:  dec("999999"),
		TotalSales: dec("999999"),
		Difference: dec("999999"),
	}
	got := Reconcile(ReconciliationFor(session))
	if got.TotalSales.String() != "1080" {
		t.Fatalf("expected 1080, got %s", got.TotalSales)
	}
}
