package utils

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/cashdesk_backend/config"
	"github.com/bsm/redislock"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

func IsValidEmail(email string) bool {
	// Basic email validation regex pattern
	pattern := `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	regex := regexp.MustCompile(pattern)
	return regex.MatchString(email)
}

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}

func ProcessValidationErrors(err error) map[string]string {
	errorsMap := make(map[string]string)
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, fieldErr := range validationErrors {
			errorsMap[fieldErr.Field()] = fmt.Sprintf("failed on '%s'", fieldErr.Tag())
		}
	}
	return errorsMap
}

// ConvertToDate truncates a timestamp to its calendar date in the given
// timezone. Timestamps are stored in UTC; bucketing for reports and the daily
// cross-check happens in the business's configured timezone.
func ConvertToDate(t time.Time, timezone string) (time.Time, error) {
	if timezone == "" {
		timezone = "UTC"
	}

	location, err := time.LoadLocation(timezone)
	if err != nil {
		return t, err
	}
	localTime := t.In(location)

	dateOnly := time.Date(localTime.Year(), localTime.Month(), localTime.Day(), 0, 0, 0, 0, location)
	return dateOnly, nil
}

// DayRangeUTC converts a local calendar date into the half-open UTC range
// [start, next day start) it covers. Timestamps are stored with sub-second
// precision, so the upper bound must be exclusive: an inclusive 23:59:59 end
// would drop anything in the last second of the day.
func DayRangeUTC(t time.Time, timezone string) (time.Time, time.Time, error) {
	d, err := ConvertToDate(t, timezone)
	if err != nil {
		return t, t, err
	}
	return d.UTC(), d.AddDate(0, 0, 1).UTC(), nil
}

// PreviousPeriodRange returns the half-open window of the same length that
// ends exactly where [fromDate, toDate) begins, so adjacent periods tile with
// no gap and no overlap. Used for period-over-period report deltas.
func PreviousPeriodRange(fromDate time.Time, toDate time.Time) (time.Time, time.Time) {
	length := toDate.Sub(fromDate)
	return fromDate.Add(-length), fromDate
}

func DereferencePtr[T any](ptr *T, defaults ...T) T {
	if ptr != nil {
		return *ptr
	}
	if len(defaults) > 0 {
		return defaults[0]
	}
	var zero T
	return zero
}

func NilIfEmpty[T comparable](value T) *T {
	var defaultZero T
	if value == defaultZero {
		return nil
	}
	return &value
}

// ParseDecimal converts a string to a decimal.Decimal value.
// Accepts common user-formatted strings like:
// - "20,000"
// - "MMK 20,000"
// - "Ks -20,000"
func ParseDecimal(value string) (decimal.Decimal, error) {
	s := strings.TrimSpace(value)
	if s != "" {
		s = strings.ReplaceAll(s, ",", "")
		s = strings.ReplaceAll(s, "MMK", "")
		s = strings.ReplaceAll(s, "mmk", "")
		s = strings.ReplaceAll(s, "Ks", "")
		s = strings.ReplaceAll(s, "ks", "")
		s = strings.TrimSpace(s)
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = strings.TrimSpace(strings.TrimPrefix(s, "-"))
	}
	// Keep digits and '.' only.
	var b strings.Builder
	b.Grow(len(s) + 1)
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	clean := b.String()
	if clean == "" {
		return decimal.NewFromInt(0), fmt.Errorf("invalid value")
	}
	if neg {
		clean = "-" + clean
	}
	return decimal.NewFromString(clean)
}

// AcquireOperatorSlotLock serializes OpenSession per (operator, business)
// across instances. The DB's unique open-slot index remains the source of
// truth; this lock narrows the race window so the common path sees a clean
// AlreadyOpen conflict instead of a duplicate-key rollback.
// The returned release func must be called after the transaction finishes.
func AcquireOperatorSlotLock(ctx context.Context, operatorId int, businessId string) (func(), error) {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		// Redis lock is optional; the unique index still protects us.
		return func() {}, nil
	}
	lockKey := fmt.Sprintf("openSlot:%d:%s", operatorId, businessId)
	lock, err := locker.Obtain(ctx, lockKey, 30*time.Second, nil)
	if err == redislock.ErrNotObtained {
		config.LogError(logger, "utils", "AcquireOperatorSlotLock", "could not obtain open-slot lock", lockKey, err)
		return nil, Conflicted(ConflictAlreadyOpen, "another open attempt is in progress")
	} else if err != nil {
		config.LogError(logger, "utils", "AcquireOperatorSlotLock", "error obtaining open-slot lock", lockKey, err)
		return nil, err
	}
	return func() { _ = lock.Release(ctx) }, nil
}
