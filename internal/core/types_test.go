package core

import (
	"testing"
	"time"
)

func TestDateRangeKey(t *testing.T) {
	r := DateRange{From: date(2024, time.January, 1), To: date(2024, time.December, 31)}
	if got := r.Key(); got != "2024-01-01_to_2024-12-31" {
		t.Errorf("Key() = %q", got)
	}

	open := DateRange{To: date(2024, time.December, 31)}
	if got := open.Key(); got != "open_to_2024-12-31" {
		t.Errorf("Key() = %q", got)
	}
}

func TestDateRangeContains(t *testing.T) {
	year := DateRange{From: date(2024, time.January, 1), To: date(2024, time.December, 31)}

	march := DateRange{From: date(2024, time.March, 1), To: date(2024, time.March, 31)}
	if !year.Contains(march) {
		t.Error("year should cover march")
	}
	if march.Contains(year) {
		t.Error("march should not cover year")
	}

	spill := DateRange{From: date(2024, time.December, 1), To: date(2025, time.January, 5)}
	if year.Contains(spill) {
		t.Error("range spilling past To should not match")
	}

	onlyTo := DateRange{To: date(2024, time.June, 1)}
	if !year.Contains(onlyTo) {
		t.Error("single-boundary request should match on that boundary")
	}

	if year.Contains(DateRange{}) {
		t.Error("fully open request should never match")
	}
}

func TestDateRangeDays(t *testing.T) {
	r := DateRange{From: date(2024, time.March, 1), To: date(2024, time.March, 31)}
	if got := r.Days(); got != 31 {
		t.Errorf("Days() = %d, want 31", got)
	}
	single := DateRange{From: date(2024, time.March, 1), To: date(2024, time.March, 1)}
	if got := single.Days(); got != 1 {
		t.Errorf("Days() = %d, want 1", got)
	}
}

func TestWindowMonths(t *testing.T) {
	cases := []struct {
		days int
		want int
	}{
		{1, 1},
		{31, 1},
		{32, 2},
		{62, 2},
		{93, 3},
		{365, 12},
		{4000, 12},
	}
	for _, tc := range cases {
		from := date(2020, time.January, 1)
		r := DateRange{From: from, To: from.AddDate(0, 0, tc.days-1)}
		if got := r.WindowMonths(); got != tc.want {
			t.Errorf("WindowMonths(%d days) = %d, want %d", tc.days, got, tc.want)
		}
	}

	if got := (DateRange{}).WindowMonths(); got != 1 {
		t.Errorf("open range WindowMonths = %d, want 1", got)
	}
}

func TestResultTotals(t *testing.T) {
	res := NewResult()
	if !res.Empty() {
		t.Error("fresh result should be empty")
	}
	res.Costs["gpt-4"] = 1.5
	res.Costs["claude-3-opus"] = 0.5
	if got := res.TotalCost(); got != 2.0 {
		t.Errorf("TotalCost() = %v, want 2.0", got)
	}
}
