package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/cashdesk_backend/config"
	"bitbucket.org/mmdatafocus/cashdesk_backend/utils"
	"github.com/shopspring/decimal"
)

// DailyAggregate is an admin-entered figure for one business day, recorded
// independently of the sessions (from the POS till report, bank slip, etc).
// It exists purely so the session totals have something external to be
// checked against.
type DailyAggregate struct {
	ID            int             `gorm:"primary_key" json:"id"`
	BusinessId    string          `gorm:"index;size:191;not null;uniqueIndex:idx_business_date" json:"business_id"`
	Date          time.Time       `gorm:"type:date;not null;uniqueIndex:idx_business_date" json:"date"`
	ReportedTotal decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"reported_total"`
	Notes         string          `gorm:"type:text" json:"notes"`
	CreatedById   int             `gorm:"not null" json:"created_by_id"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// NewDailyAggregate takes the total as a string because it is typed in from a
// till report: "MMK 20,000" and "1,250.50" both parse.
type NewDailyAggregate struct {
	BusinessId    string    `json:"business_id" binding:"required"`
	Date          time.Time `json:"date" binding:"required"`
	ReportedTotal string    `json:"reported_total" binding:"required"`
	Notes         string    `json:"notes"`
}

// UpsertDailyAggregate records or corrects the externally reported total for
// one (business, day).
func UpsertDailyAggregate(ctx context.Context, input *NewDailyAggregate) (*DailyAggregate, error) {

	if err := RequireAdmin(ctx); err != nil {
		return nil, err
	}

	business, err := GetBusinessById(ctx, input.BusinessId)
	if err != nil {
		return nil, err
	}
	reported, err := utils.ParseDecimal(input.ReportedTotal)
	if err != nil {
		return nil, utils.InvalidFields("invalid daily aggregate", map[string]string{"reported_total": "not a valid amount"})
	}
	if reported.IsNegative() {
		return nil, utils.InvalidFields("invalid daily aggregate", map[string]string{"reported_total": "must be >= 0"})
	}

	date, err := utils.ConvertToDate(input.Date, business.Timezone)
	if err != nil {
		return nil, err
	}

	userId, _ := utils.GetUserIdFromContext(ctx)
	db := config.GetDB()

	var existing DailyAggregate
	err = db.WithContext(ctx).
		Where("business_id = ? AND date = ?", input.BusinessId, date).
		First(&existing).Error
	if err == nil {
		if err := db.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{
			"ReportedTotal": reported,
			"Notes":         input.Notes,
		}).Error; err != nil {
			return nil, err
		}
		existing.ReportedTotal = reported
		existing.Notes = input.Notes
		return &existing, nil
	}

	aggregate := DailyAggregate{
		BusinessId:    input.BusinessId,
		Date:          date,
		ReportedTotal: reported,
		Notes:         input.Notes,
		CreatedById:   userId,
	}
	if err := db.WithContext(ctx).Create(&aggregate).Error; err != nil {
		return nil, err
	}
	return &aggregate, nil
}

// DailyCrossCheck compares the admin-entered figure against what the closed
// sessions of that day add up to.
type DailyCrossCheck struct {
	BusinessId    string          `json:"business_id"`
	Date          time.Time       `json:"date"`
	ReportedTotal decimal.Decimal `json:"reported_total"`
	SessionsTotal decimal.Decimal `json:"sessions_total"`
	Variance      decimal.Decimal `json:"variance"`
	SessionCount  int             `json:"session_count"`
}

// CrossCheckDailyAggregate recomputes every closed session of the business
// day through the reconciliation and diffs the sum against the reported
// total. Soft-deleted sessions are excluded by the row predicate, the same
// one every listing uses.
func CrossCheckDailyAggregate(ctx context.Context, businessId string, day time.Time) (*DailyCrossCheck, error) {

	if err := RequireAdmin(ctx); err != nil {
		return nil, err
	}

	business, err := GetBusinessById(ctx, businessId)
	if err != nil {
		return nil, err
	}

	date, err := utils.ConvertToDate(day, business.Timezone)
	if err != nil {
		return nil, err
	}
	dayStart, dayEnd, err := utils.DayRangeUTC(day, business.Timezone)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()

	var aggregate DailyAggregate
	if err := db.WithContext(ctx).
		Where("business_id = ? AND date = ?", businessId, date).
		First(&aggregate).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	// half-open range: a close in the last second of the day still counts
	sessions, err := utils.FetchModelsWhere[CashSession](ctx,
		"business_id = ? AND status = ? AND closed_at >= ? AND closed_at < ?",
		businessId, SessionStatusClosed, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	sessionsTotal := decimal.Zero
	for _, session := range sessions {
		result := Reconcile(ReconciliationFor(session))
		sessionsTotal = sessionsTotal.Add(result.TotalSales)
	}

	return &DailyCrossCheck{
		BusinessId:    businessId,
		Date:          date,
		ReportedTotal: aggregate.ReportedTotal,
		SessionsTotal: sessionsTotal,
		Variance:      aggregate.ReportedTotal.Sub(sessionsTotal),
		SessionCount:  len(sessions),
	}, nil
}
