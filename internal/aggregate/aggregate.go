package aggregate

import (
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/janekbaraniewski/routerspend/internal/core"
)

// The transaction endpoint has no stable record schema; each quantity is
// probed over an ordered list of alternative field names, first present wins.
var (
	modelFields      = []string{"model_permaslug", "model", "model_slug", "model_name", "slug"}
	costFields       = []string{"usage", "cost", "total_cost", "amount", "price"}
	promptFields     = []string{"prompt_tokens", "tokens", "input_tokens"}
	completionFields = []string{"completion_tokens", "output_tokens"}
	dateFields       = []string{"date", "timestamp", "created_at", "createdAt"}
)

// dateVerdict is the tri-state outcome of filtering a record by date.
// Records whose date cannot be established are treated as in range: the
// filter fails open rather than silently losing spend.
type dateVerdict int

const (
	dateInRange dateVerdict = iota
	dateBefore
	dateAfter
	dateUnknown
)

// Aggregate parses the raw payload and folds its transaction records into
// per-model cost and token totals. Malformed payloads and unusable records
// never fail the pass; the worst case is the zero-value Result.
func Aggregate(raw string, r core.DateRange, log *logrus.Logger) core.Result {
	result := core.NewResult()

	raw = strings.TrimSpace(raw)
	if raw == "" || !gjson.Valid(raw) {
		log.WithField("bytes", len(raw)).Debug("payload is not valid JSON, returning empty aggregate")
		return result
	}

	records, ok := transactionRecords(gjson.Parse(raw))
	if !ok {
		log.Debug("no transaction array found in payload")
		return result
	}

	for i, rec := range records {
		if !rec.IsObject() {
			result.Skipped++
			continue
		}

		switch filterByDate(rec, r) {
		case dateBefore, dateAfter:
			continue
		}

		model := firstString(rec, modelFields)
		cost, costOK := firstFloat(rec, costFields)
		tokens := firstInt(rec, promptFields) + firstInt(rec, completionFields)
		// Totals only ever grow during a pass.
		if cost < 0 {
			cost = 0
		}
		if tokens < 0 {
			tokens = 0
		}

		if model == "" {
			model = "unknown"
		}
		if model == "unknown" || !costOK {
			result.Skipped++
			log.WithFields(logrus.Fields{
				"record": i,
				"model":  model,
			}).Debug("skipping record with unusable model or cost")
			continue
		}
		if cost == 0 && tokens == 0 {
			result.Skipped++
			continue
		}

		key := normalizeModelKey(model)
		result.Costs[key] += cost
		result.Tokens[key] += tokens
		result.TotalTokens += tokens
	}

	return result
}

// transactionRecords locates the record array: a `data` field, a nested
// `data.data` field, or the payload itself.
func transactionRecords(payload gjson.Result) ([]gjson.Result, bool) {
	if arr := payload.Get("data"); arr.IsArray() {
		return arr.Array(), true
	}
	if arr := payload.Get("data.data"); arr.IsArray() {
		return arr.Array(), true
	}
	if payload.IsArray() {
		return payload.Array(), true
	}
	return nil, false
}

func filterByDate(rec gjson.Result, r core.DateRange) dateVerdict {
	if !r.HasFrom() && !r.HasTo() {
		return dateInRange
	}

	recDate, ok := recordDate(rec)
	if !ok {
		return dateUnknown
	}
	if r.HasFrom() && recDate.Before(r.From) {
		return dateBefore
	}
	if r.HasTo() && recDate.After(r.To) {
		return dateAfter
	}
	return dateInRange
}

func recordDate(rec gjson.Result) (time.Time, bool) {
	for _, field := range dateFields {
		val := rec.Get(field)
		if !val.Exists() {
			continue
		}
		if val.Type == gjson.Number {
			return epochDate(val.Float())
		}
		if t, ok := core.ParseDate(val.String()); ok {
			return t, true
		}
		return time.Time{}, false
	}
	return time.Time{}, false
}

func epochDate(v float64) (time.Time, bool) {
	if v <= 0 {
		return time.Time{}, false
	}
	sec := int64(v)
	// Values this large are milliseconds since epoch.
	if sec > 1_000_000_000_000 {
		sec /= 1000
	}
	t := time.Unix(sec, 0).UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
}

func firstString(rec gjson.Result, fields []string) string {
	for _, field := range fields {
		val := rec.Get(field)
		if !val.Exists() {
			continue
		}
		if s := strings.TrimSpace(val.String()); s != "" {
			return s
		}
	}
	return ""
}

// firstFloat returns the first present cost-like field parsed as a float.
// A missing field is a valid zero; a present but non-numeric one is not.
func firstFloat(rec gjson.Result, fields []string) (float64, bool) {
	for _, field := range fields {
		val := rec.Get(field)
		if !val.Exists() {
			continue
		}
		switch val.Type {
		case gjson.Number:
			return val.Float(), true
		case gjson.String:
			f, err := strconv.ParseFloat(strings.TrimSpace(val.Str), 64)
			if err != nil {
				return 0, false
			}
			return f, true
		default:
			return 0, false
		}
	}
	return 0, true
}

// firstInt parses the first present token-count field; unparsable values
// count as zero rather than invalidating the record.
func firstInt(rec gjson.Result, fields []string) int {
	for _, field := range fields {
		val := rec.Get(field)
		if !val.Exists() {
			continue
		}
		switch val.Type {
		case gjson.Number:
			return int(val.Float())
		case gjson.String:
			f, err := strconv.ParseFloat(strings.TrimSpace(val.Str), 64)
			if err != nil {
				return 0
			}
			return int(f)
		default:
			return 0
		}
	}
	return 0
}

// normalizeModelKey strips any provider prefix, keeping the part after the
// final slash: "anthropic/claude-3-opus" aggregates under "claude-3-opus".
func normalizeModelKey(model string) string {
	if idx := strings.LastIndex(model, "/"); idx >= 0 && idx+1 < len(model) {
		return model[idx+1:]
	}
	return model
}
