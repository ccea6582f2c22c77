package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/cashdesk_backend/config"
	"bitbucket.org/mmdatafocus/cashdesk_backend/utils"
	"github.com/shopspring/decimal"
)

// ReportTotals aggregates one set of sessions. Money figures cover closed
// sessions only (an open session has no final count yet); session and flag
// counts cover everything in range.
type ReportTotals struct {
	SessionCount int             `json:"session_count"`
	ClosedCount  int             `json:"closed_count"`
	FlaggedCount int             `json:"flagged_count"`
	FlagRate     decimal.Decimal `json:"flag_rate"`
	CashSales    decimal.Decimal `json:"cash_sales"`
	TotalSales   decimal.Decimal `json:"total_sales"`
	Difference   decimal.Decimal `json:"difference"`
}

// SessionsReport is the period view with a same-length previous period for
// comparison.
type SessionsReport struct {
	BusinessId      *string         `json:"business_id"`
	FromDate        time.Time       `json:"from_date"`
	ToDate          time.Time       `json:"to_date"`
	Current         ReportTotals    `json:"current"`
	Previous        ReportTotals    `json:"previous"`
	TotalSalesDelta decimal.Decimal `json:"total_sales_delta"`
}

// SummarizeSessions folds a batch of sessions into report totals. Closed
// sessions run through the reconciliation again rather than trusting their
// stored columns, so the report can never drift from the formula.
func SummarizeSessions(sessions []*CashSession) ReportTotals {
	totals := ReportTotals{
		FlagRate:   decimal.Zero,
		CashSales:  decimal.Zero,
		TotalSales: decimal.Zero,
		Difference: decimal.Zero,
	}

	for _, session := range sessions {
		totals.SessionCount++
		if utils.DereferencePtr(session.IsFlagged) {
			totals.FlaggedCount++
		}
		if session.Status != SessionStatusClosed {
			continue
		}
		totals.ClosedCount++
		result := Reconcile(ReconciliationFor(session))
		totals.CashSales = totals.CashSales.Add(result.CashSales)
		totals.TotalSales = totals.TotalSales.Add(result.TotalSales)
		totals.Difference = totals.Difference.Add(result.Difference)
	}

	if totals.SessionCount > 0 {
		totals.FlagRate = decimal.NewFromInt(int64(totals.FlaggedCount)).
			DivRound(decimal.NewFromInt(int64(totals.SessionCount)), 4)
	}
	return totals
}

// reportSessions fetches one period's sessions under the caller's scope.
// Both periods of a report go through this same query shape, so a session is
// either visible to the whole report or to none of it. Periods are half-open
// [from, to): the previous period ends exactly where the current one starts
// and no session can land in both or in neither.
func reportSessions(ctx context.Context, scopeBusinessIds []string, businessId *string, from time.Time, to time.Time) ([]*CashSession, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).
		Where("opened_at >= ? AND opened_at < ?", from.UTC(), to.UTC())

	if businessId != nil && *businessId != "" {
		dbCtx = dbCtx.Where("business_id = ?", *businessId)
	} else if scopeBusinessIds != nil {
		dbCtx = dbCtx.Where("business_id IN ?", scopeBusinessIds)
	}

	var sessions []*CashSession
	if err := dbCtx.Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// GetSessionsReport aggregates the caller's visible sessions over a period,
// with the immediately preceding period of the same length for comparison.
// Operators get their assigned businesses; admins get everything or the one
// business they name. Soft-deleted sessions are excluded by the shared row
// predicate, never by per-report logic.
func GetSessionsReport(ctx context.Context, businessId *string, fromDate time.Time, toDate time.Time) (*SessionsReport, error) {

	if toDate.Before(fromDate) {
		return nil, utils.Invalid("to_date must not precede from_date")
	}

	target := ""
	if businessId != nil {
		target = *businessId
	}
	if err := AuthorizeSessionAction(ctx, ActionViewReport, target, nil); err != nil {
		return nil, err
	}
	if target != "" {
		// an unknown business is a not-found, not an empty report
		if err := utils.ValidateResourceId[Business](ctx, target); err != nil {
			return nil, err
		}
	}

	p, err := GetPrincipal(ctx)
	if err != nil {
		return nil, err
	}

	var scopeBusinessIds []string
	if p.Role == UserRoleOperator {
		scopeBusinessIds, err = GetMemberBusinessIds(ctx, p.Id)
		if err != nil {
			return nil, err
		}
		if len(scopeBusinessIds) == 0 {
			return &SessionsReport{
				BusinessId:      businessId,
				FromDate:        fromDate,
				ToDate:          toDate,
				TotalSalesDelta: decimal.Zero,
				Current:         SummarizeSessions(nil),
				Previous:        SummarizeSessions(nil),
			}, nil
		}
	}

	current, err := reportSessions(ctx, scopeBusinessIds, businessId, fromDate, toDate)
	if err != nil {
		return nil, err
	}

	prevFrom, prevTo := utils.PreviousPeriodRange(fromDate, toDate)
	previous, err := reportSessions(ctx, scopeBusinessIds, businessId, prevFrom, prevTo)
	if err != nil {
		return nil, err
	}

	report := SessionsReport{
		BusinessId: businessId,
		FromDate:   fromDate,
		ToDate:     toDate,
		Current:    SummarizeSessions(current),
		Previous:   SummarizeSessions(previous),
	}
	report.TotalSalesDelta = report.Current.TotalSales.Sub(report.Previous.TotalSales)
	return &report, nil
}

// FlaggedSessionRow is one line of the review queue.
type FlaggedSessionRow struct {
	Session    *CashSession    `json:"session"`
	FlagReason string          `json:"flag_reason"`
	Difference decimal.Decimal `json:"difference"`
}

// GetFlaggedSessions lists sessions awaiting review inside the caller's
// scope, oldest first so the backlog drains in order.
func GetFlaggedSessions(ctx context.Context, businessId *string) ([]*FlaggedSessionRow, error) {

	flagged := true
	sessions, err := ListSessions(ctx, &SessionFilter{
		BusinessId: businessId,
		Flagged:    &flagged,
	})
	if err != nil {
		return nil, err
	}

	rows := make([]*FlaggedSessionRow, 0, len(sessions))
	for i := len(sessions) - 1; i >= 0; i-- {
		session := sessions[i]
		row := &FlaggedSessionRow{
			Session:    session,
			FlagReason: session.FlagReason,
			Difference: decimal.Zero,
		}
		if session.Status == SessionStatusClosed {
			row.Difference = Reconcile(ReconciliationFor(session)).Difference
		}
		rows = append(rows, row)
	}
	return rows, nil
}
