package core

import (
	"strings"
	"time"
)

// RangeSource is one tier of candidate date boundaries: CLI flags, env vars,
// configured defaults. Tiers are consulted in order; the first tier that
// supplies at least one boundary wins, and its missing boundary is filled
// within the tier rather than from a lower one.
type RangeSource struct {
	From string
	To   string
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
}

// ParseDate parses a date string in any of the accepted layouts, truncated
// to date granularity in UTC.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// ResolveRange derives the effective date window from the given source tiers,
// falling back to the current calendar month when no tier supplies a
// boundary. The result is always normalized: To never lies in the future and
// From never follows To.
func ResolveRange(now time.Time, tiers ...RangeSource) DateRange {
	today := dateOnly(now)

	for _, tier := range tiers {
		from, okFrom := ParseDate(tier.From)
		to, okTo := ParseDate(tier.To)
		if !okFrom && !okTo {
			continue
		}
		if !okFrom {
			// Fill within the tier: a lone end date implies its month start.
			from = time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)
		}
		if !okTo {
			to = today
		}
		return NormalizeRange(DateRange{From: from, To: to}, now)
	}

	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, -1)
	return NormalizeRange(DateRange{From: monthStart, To: monthEnd}, now)
}

// NormalizeRange clamps To to today and collapses inverted ranges so that
// From never follows To. Applying it twice yields the same range.
func NormalizeRange(r DateRange, now time.Time) DateRange {
	today := dateOnly(now)
	if r.HasTo() && r.To.After(today) {
		r.To = today
	}
	if r.HasFrom() && r.HasTo() && r.From.After(r.To) {
		r.From = r.To
	}
	return r
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
