package core

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var testNow = time.Date(2024, time.June, 15, 10, 30, 0, 0, time.UTC)

func TestResolveRange_FlagsWin(t *testing.T) {
	r := ResolveRange(testNow,
		RangeSource{From: "2024-03-01", To: "2024-03-31"},
		RangeSource{From: "2024-01-01", To: "2024-12-31"},
	)
	if !r.From.Equal(date(2024, time.March, 1)) {
		t.Errorf("From = %v, want 2024-03-01", r.From)
	}
	if !r.To.Equal(date(2024, time.March, 31)) {
		t.Errorf("To = %v, want 2024-03-31", r.To)
	}
}

func TestResolveRange_FillsMissingBoundaryWithinTier(t *testing.T) {
	t.Run("missing to becomes today", func(t *testing.T) {
		r := ResolveRange(testNow,
			RangeSource{From: "2024-06-01"},
			RangeSource{From: "2024-01-01", To: "2024-01-31"},
		)
		if !r.From.Equal(date(2024, time.June, 1)) {
			t.Errorf("From = %v, want 2024-06-01", r.From)
		}
		if !r.To.Equal(date(2024, time.June, 15)) {
			t.Errorf("To = %v, want 2024-06-15 (today), not a lower tier value", r.To)
		}
	})

	t.Run("missing from becomes month start of to", func(t *testing.T) {
		r := ResolveRange(testNow, RangeSource{To: "2024-05-20"})
		if !r.From.Equal(date(2024, time.May, 1)) {
			t.Errorf("From = %v, want 2024-05-01", r.From)
		}
		if !r.To.Equal(date(2024, time.May, 20)) {
			t.Errorf("To = %v, want 2024-05-20", r.To)
		}
	})
}

func TestResolveRange_SkipsEmptyTiers(t *testing.T) {
	r := ResolveRange(testNow,
		RangeSource{},
		RangeSource{From: "not a date", To: ""},
		RangeSource{From: "2024-02-01", To: "2024-02-29"},
	)
	if !r.From.Equal(date(2024, time.February, 1)) || !r.To.Equal(date(2024, time.February, 29)) {
		t.Errorf("range = %v..%v, want 2024-02-01..2024-02-29", r.From, r.To)
	}
}

func TestResolveRange_DefaultsToCurrentMonth(t *testing.T) {
	r := ResolveRange(testNow)
	if !r.From.Equal(date(2024, time.June, 1)) {
		t.Errorf("From = %v, want 2024-06-01", r.From)
	}
	// Month end lies in the future, so it clamps to today.
	if !r.To.Equal(date(2024, time.June, 15)) {
		t.Errorf("To = %v, want 2024-06-15", r.To)
	}
}

func TestNormalizeRange_Idempotent(t *testing.T) {
	r := DateRange{From: date(2024, time.January, 10), To: date(2024, time.February, 20)}
	once := NormalizeRange(r, testNow)
	twice := NormalizeRange(once, testNow)
	if once != r {
		t.Errorf("valid range changed: %v", once)
	}
	if twice != once {
		t.Errorf("normalization not idempotent: %v vs %v", twice, once)
	}
}

func TestNormalizeRange_ClampsFutureTo(t *testing.T) {
	r := NormalizeRange(DateRange{From: date(2024, time.June, 1), To: date(2024, time.December, 31)}, testNow)
	if !r.To.Equal(date(2024, time.June, 15)) {
		t.Errorf("To = %v, want clamped to 2024-06-15", r.To)
	}
}

func TestNormalizeRange_CollapsesInvertedRange(t *testing.T) {
	// From after today: clamping To drags From down with it.
	r := NormalizeRange(DateRange{From: date(2024, time.July, 1), To: date(2024, time.July, 31)}, testNow)
	if !r.To.Equal(date(2024, time.June, 15)) {
		t.Errorf("To = %v, want 2024-06-15", r.To)
	}
	if !r.From.Equal(r.To) {
		t.Errorf("From = %v, want equal to To after collapse", r.From)
	}
}

func TestParseDate_Layouts(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Time
		ok   bool
	}{
		{"2024-03-05", date(2024, time.March, 5), true},
		{" 2024-03-05 ", date(2024, time.March, 5), true},
		{"2024-03-05T14:22:01Z", date(2024, time.March, 5), true},
		{"2024-03-05 14:22:01", date(2024, time.March, 5), true},
		{"2024/03/05", date(2024, time.March, 5), true},
		{"yesterday", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tc := range cases {
		got, ok := ParseDate(tc.raw)
		if ok != tc.ok {
			t.Errorf("ParseDate(%q) ok = %v, want %v", tc.raw, ok, tc.ok)
			continue
		}
		if ok && !got.Equal(tc.want) {
			t.Errorf("ParseDate(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}
