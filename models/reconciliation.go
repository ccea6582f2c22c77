package models

import (
	"github.com/shopspring/decimal"
)

// ReconciliationInput carries the counted amounts a reconciliation is derived
// from. All values are exact decimals; float arithmetic never touches money.
type ReconciliationInput struct {
	InitialCash       decimal.Decimal `json:"initial_cash"`
	FinalCash         decimal.Decimal `json:"final_cash"`
	EnvelopeAmount    decimal.Decimal `json:"envelope_amount"`
	CreditCardTotal   decimal.Decimal `json:"credit_card_total"`
	DebitCardTotal    decimal.Decimal `json:"debit_card_total"`
	BankTransferTotal decimal.Decimal `json:"bank_transfer_total"`
}

type ReconciliationResult struct {
	CashSales  decimal.Decimal `json:"cash_sales"`
	TotalSales decimal.Decimal `json:"total_sales"`
	Difference decimal.Decimal `json:"difference"`
}

// Reconcile derives the session's sales figures from its counted amounts:
//
//	cash sales  = (final cash - initial cash) + envelope
//	total sales = cash sales + credit card + debit card + bank transfer
//	difference  = total sales - cash sales
//
// It is the single definition of these figures. Session close, session edit,
// reporting and the daily cross-check all call it; none of them restates the
// arithmetic. Negative cash sales are a legal result (drawer shortfall), not
// an error.
func Reconcile(in ReconciliationInput) ReconciliationResult {
	cashSales := in.FinalCash.Sub(in.InitialCash).Add(in.EnvelopeAmount)
	totalSales := cashSales.Add(in.CreditCardTotal).Add(in.DebitCardTotal).Add(in.BankTransferTotal)
	difference := totalSales.Sub(cashSales)

	return ReconciliationResult{
		CashSales:  cashSales,
		TotalSales: totalSales,
		Difference: difference,
	}
}

// ReconciliationFor rebuilds the input from a session's stored columns.
func ReconciliationFor(session *CashSession) ReconciliationInput {
	return ReconciliationInput{
		InitialCash:       session.InitialCash,
		FinalCash:         session.FinalCash,
		EnvelopeAmount:    session.EnvelopeAmount,
		CreditCardTotal:   session.CreditCardTotal,
		DebitCardTotal:    session.DebitCardTotal,
		BankTransferTotal: session.BankTransferTotal,
	}
}
