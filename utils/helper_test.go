package utils

import (
	"testing"
	"time"
)

func TestParseDecimal_AcceptsFormattedStrings(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"20000", "20000"},
		{"20,000", "20000"},
		{"MMK 20,000", "20000"},
		{"MMK -20,000", "-20000"},
		{"  ks 1,234.50  ", "1234.5"},
	}
	for _, tc := range cases {
		d, err := ParseDecimal(tc.in)
		if err != nil {
			t.Fatalf("ParseDecimal(%q) error: %v", tc.in, err)
		}
		if d.String() != tc.expected {
			t.Fatalf("ParseDecimal(%q) expected %s, got %s", tc.in, tc.expected, d.String())
		}
	}
}

func TestParseDecimal_RejectsEmpty(t *testing.T) {
	if _, err := ParseDecimal("   "); err == nil {
		t.Fatal("expected error for blank input")
	}
	if _, err := ParseDecimal("MMK"); err == nil {
		t.Fatal("expected error for currency marker only")
	}
}

func TestConvertToDate_BucketsByBusinessTimezone(t *testing.T) {
	// 2025-06-10 18:30 UTC is already 2025-06-11 morning in Yangon (UTC+6:30)
	ts := time.Date(2025, 6, 10, 18, 30, 0, 0, time.UTC)

	utcDay, err := ConvertToDate(ts, "UTC")
	if err != nil {
		t.Fatalf("UTC: %v", err)
	}
	if utcDay.Day() != 10 {
		t.Fatalf("UTC bucket expected day 10, got %d", utcDay.Day())
	}

	yangonDay, err := ConvertToDate(ts, "Asia/Yangon")
	if err != nil {
		t.Fatalf("Yangon: %v", err)
	}
	if yangonDay.Day() != 11 {
		t.Fatalf("Yangon bucket expected day 11, got %d", yangonDay.Day())
	}

	// blank timezone falls back to UTC
	fallback, err := ConvertToDate(ts, "")
	if err != nil {
		t.Fatalf("fallback: %v", err)
	}
	if !fallback.Equal(utcDay) {
		t.Fatalf("blank timezone should bucket as UTC")
	}

	if _, err := ConvertToDate(ts, "Not/AZone"); err == nil {
		t.Fatal("unknown timezone must error, not silently rebucket")
	}
}

func TestPreviousPeriodRange_TilesWithoutGap(t *testing.T) {
	from := time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	prevFrom, prevTo := PreviousPeriodRange(from, to)

	// half-open periods: the previous one ends exactly where the current one
	// starts, so a session opened at that instant lands in exactly one of them
	if !prevTo.Equal(from) {
		t.Fatalf("previous period must end at %v, got %v", from, prevTo)
	}
	if got, want := prevTo.Sub(prevFrom), to.Sub(from); got != want {
		t.Fatalf("previous period length %v != current length %v", got, want)
	}
}

func TestDayRangeUTC_CoversTheWholeDay(t *testing.T) {
	day := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	start, end, err := DayRangeUTC(day, "UTC")
	if err != nil {
		t.Fatalf("DayRangeUTC: %v", err)
	}
	if !end.Equal(start.AddDate(0, 0, 1)) {
		t.Fatalf("end %v must be the next day start after %v", end, start)
	}

	// a timestamp inside the last second of the day is still in range
	lastMoment := start.Add(24*time.Hour - 500*time.Millisecond)
	if lastMoment.Before(start) || !lastMoment.Before(end) {
		t.Fatalf("%v must fall inside [%v, %v)", lastMoment, start, end)
	}

	yangonStart, yangonEnd, err := DayRangeUTC(day, "Asia/Yangon")
	if err != nil {
		t.Fatalf("Yangon: %v", err)
	}
	if got := yangonEnd.Sub(yangonStart); got != 24*time.Hour {
		t.Fatalf("Yangon day length %v != 24h", got)
	}
	// Yangon is UTC+6:30, so its day starts the previous UTC evening
	if !yangonStart.Before(start) {
		t.Fatalf("Yangon day start %v should precede the UTC day start %v", yangonStart, start)
	}

	if _, _, err := DayRangeUTC(day, "Not/AZone"); err == nil {
		t.Fatal("unknown timezone must error")
	}
}
