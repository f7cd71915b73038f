package core

import "time"

// DateRange is a date-granular window over transaction activity. A zero From
// or To marks an open boundary; callers that need a fully bounded range go
// through ResolveRange first.
type DateRange struct {
	From time.Time
	To   time.Time
}

const dateLayout = "2006-01-02"

func (r DateRange) HasFrom() bool { return !r.From.IsZero() }
func (r DateRange) HasTo() bool   { return !r.To.IsZero() }

// Key returns the date-only cache key for this range, e.g.
// "2024-01-01_to_2024-12-31". Open boundaries render as "open".
func (r DateRange) Key() string {
	from := "open"
	if r.HasFrom() {
		from = r.From.Format(dateLayout)
	}
	to := "open"
	if r.HasTo() {
		to = r.To.Format(dateLayout)
	}
	return from + "_to_" + to
}

// Contains reports whether r fully covers req. A single-boundary request
// matches on the bounded side only; an open boundary on r never covers a
// bounded request side.
func (r DateRange) Contains(req DateRange) bool {
	if req.HasFrom() {
		if !r.HasFrom() || r.From.After(req.From) {
			return false
		}
	}
	if req.HasTo() {
		if !r.HasTo() || r.To.Before(req.To) {
			return false
		}
	}
	return req.HasFrom() || req.HasTo()
}

// Days returns the inclusive day span of the range.
func (r DateRange) Days() int {
	if !r.HasFrom() || !r.HasTo() {
		return 0
	}
	return int(r.To.Sub(r.From).Hours()/24) + 1
}

// WindowMonths maps the range span onto the coarse month-granular window
// parameter the transaction endpoint accepts, capped at 12.
func (r DateRange) WindowMonths() int {
	days := r.Days()
	if days <= 0 {
		return 1
	}
	months := (days + 30) / 31
	if months > 12 {
		months = 12
	}
	return months
}

// Result is one aggregation pass over a transaction payload: per-model cost
// and token totals plus the count of records the skip policy rejected.
type Result struct {
	Costs       map[string]float64
	Tokens      map[string]int
	TotalTokens int
	Skipped     int
}

func NewResult() Result {
	return Result{
		Costs:  make(map[string]float64),
		Tokens: make(map[string]int),
	}
}

// TotalCost sums the per-model cost mapping.
func (r Result) TotalCost() float64 {
	var total float64
	for _, c := range r.Costs {
		total += c
	}
	return total
}

func (r Result) Empty() bool {
	return len(r.Costs) == 0 && len(r.Tokens) == 0 && r.TotalTokens == 0
}
