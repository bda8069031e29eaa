// Package cleaning normalizes freshly imported datasets so downstream
// aggregation sees consistent types and canonical labels. Normalization runs
// once at import time and is idempotent, so re-importing already clean data
// is a no-op.
package cleaning

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"datapulse/internal/dataset"
)

const batchSize = 1000

// rule tags how a column's values get normalized, picked from the column
// name rather than its position.
type rule int

const (
	ruleNone rule = iota
	ruleMoney
	ruleQuantity
	ruleDate
	ruleEmail
	rulePhone
	rulePayment
	ruleStatus
)

var (
	moneyKeywords    = []string{"amount", "price", "total", "cost", "revenue", "value", "spent", "spend"}
	quantityKeywords = []string{"quantity", "qty", "stock", "count", "units"}
	dateKeywords     = []string{"date", "created", "updated", "time"}
	phoneKeywords    = []string{"phone", "mobile", "contact"}
	statusKeywords   = []string{"status", "state"}

	currencyJunk = regexp.MustCompile(`[₹$,\s]|Rs\.?`)
	nonDigits    = regexp.MustCompile(`[^\d]`)
)

// classify picks the normalization rule for a column name. Monetary wins
// over quantity so a column like "total_units_price" is treated as money.
func classify(column string) rule {
	name := strings.ToLower(strings.TrimSpace(column))
	switch {
	case containsAny(name, "payment"):
		return rulePayment
	case containsAny(name, statusKeywords...):
		return ruleStatus
	case containsAny(name, moneyKeywords...):
		return ruleMoney
	case containsAny(name, quantityKeywords...):
		return ruleQuantity
	case containsAny(name, dateKeywords...):
		return ruleDate
	case strings.Contains(name, "email"):
		return ruleEmail
	case containsAny(name, phoneKeywords...):
		return rulePhone
	default:
		return ruleNone
	}
}

func containsAny(s string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// Normalize cleans a dataset in three stages: column-name whitespace, row
// level pruning (fully empty rows, exact duplicates), then per-column value
// rules. It returns a new dataset plus a human-readable change report; the
// input is not modified.
func Normalize(ds *dataset.Dataset) (*dataset.Dataset, []string) {
	var report []string

	columns := make([]string, len(ds.Columns))
	for i, c := range ds.Columns {
		columns[i] = strings.Join(strings.Fields(c), " ")
	}

	out := dataset.New(ds.Name, ds.Type, columns)
	out.Rows = make([]dataset.Row, len(ds.Rows))
	for i, r := range ds.Rows {
		row := make(dataset.Row, len(r))
		copy(row, r)
		out.Rows[i] = row
	}

	if n := dropEmptyRows(out); n > 0 {
		report = append(report, fmt.Sprintf("Removed %d empty rows", n))
	}
	if n := dropDuplicateRows(out); n > 0 {
		report = append(report, fmt.Sprintf("Removed %d duplicate rows", n))
	}

	rules := make([]rule, len(out.Columns))
	for i, c := range out.Columns {
		rules[i] = classify(c)
	}

	applyRules(out, rules)

	for i, c := range out.Columns {
		switch rules[i] {
		case ruleMoney:
			report = append(report, fmt.Sprintf("Converted %s to numeric", c))
		case ruleQuantity:
			report = append(report, fmt.Sprintf("Converted %s to whole counts", c))
		case ruleDate:
			report = append(report, fmt.Sprintf("Converted %s to dates", c))
		case ruleStatus:
			report = append(report, fmt.Sprintf("Standardized %s values", c))
		case rulePayment:
			report = append(report, fmt.Sprintf("Standardized %s values", c))
		}
	}

	return out, report
}

// applyRules rewrites every cell according to its column's rule. Rows are
// independent, so batches run concurrently.
func applyRules(ds *dataset.Dataset, rules []rule) {
	var g errgroup.Group
	g.SetLimit(4)

	for start := 0; start < len(ds.Rows); start += batchSize {
		end := min(start+batchSize, len(ds.Rows))
		batch := ds.Rows[start:end]
		g.Go(func() error {
			for _, row := range batch {
				for i, r := range rules {
					if r == ruleNone || i >= len(row) {
						continue
					}
					row[i] = normalizeCell(row[i], r)
				}
			}
			return nil
		})
	}
	g.Wait()
}

func normalizeCell(v dataset.Value, r rule) dataset.Value {
	switch r {
	case ruleMoney:
		return normalizeMoney(v)
	case ruleQuantity:
		return normalizeQuantity(v)
	case ruleDate:
		return normalizeDate(v)
	case ruleEmail:
		if v.Kind == dataset.KindText {
			return dataset.Text(strings.ToLower(strings.TrimSpace(v.Text)))
		}
		return v
	case rulePhone:
		return normalizePhone(v)
	case ruleStatus:
		if v.IsMissing() {
			return dataset.Text(dataset.StatusUnknown)
		}
		return dataset.Text(dataset.CanonicalStatus(v.Display()))
	case rulePayment:
		if v.IsMissing() {
			return dataset.Text(dataset.PaymentOther)
		}
		return dataset.Text(dataset.CanonicalPayment(v.Display()))
	default:
		return v
	}
}

// normalizeMoney strips currency symbols and separators, then coerces to a
// number. Unparseable cells become missing rather than zero so sums stay
// honest.
func normalizeMoney(v dataset.Value) dataset.Value {
	if v.Kind == dataset.KindNumber {
		return v
	}
	if v.IsMissing() {
		return dataset.Missing()
	}
	cleaned := currencyJunk.ReplaceAllString(v.Display(), "")
	if n, ok := dataset.Text(cleaned).AsNumber(); ok {
		return dataset.Number(n)
	}
	return dataset.Missing()
}

// normalizeQuantity coerces to a whole count; missing becomes zero.
// Negative values pass through for validation to flag later.
func normalizeQuantity(v dataset.Value) dataset.Value {
	if n, ok := v.AsNumber(); ok {
		return dataset.Number(float64(int64(n)))
	}
	return dataset.Number(0)
}

func normalizeDate(v dataset.Value) dataset.Value {
	if v.Kind == dataset.KindTime {
		return v
	}
	if v.IsMissing() {
		return dataset.Missing()
	}
	if t, ok := parseDayFirst(v.Display()); ok {
		return dataset.Timestamp(t)
	}
	return dataset.Missing()
}

// normalizePhone keeps digits plus a leading '+' and drops the rest.
func normalizePhone(v dataset.Value) dataset.Value {
	if v.Kind != dataset.KindText {
		return v
	}
	raw := strings.TrimSpace(v.Text)
	digits := nonDigits.ReplaceAllString(raw, "")
	if digits == "" {
		return dataset.Missing()
	}
	if strings.HasPrefix(raw, "+") {
		digits = "+" + digits
	}
	return dataset.Text(digits)
}

func dropEmptyRows(ds *dataset.Dataset) int {
	kept := ds.Rows[:0]
	for _, row := range ds.Rows {
		empty := true
		for _, v := range row {
			if !v.IsMissing() {
				empty = false
				break
			}
		}
		if !empty {
			kept = append(kept, row)
		}
	}
	dropped := len(ds.Rows) - len(kept)
	ds.Rows = kept
	return dropped
}

func dropDuplicateRows(ds *dataset.Dataset) int {
	seen := make(map[string]bool, len(ds.Rows))
	kept := ds.Rows[:0]
	for _, row := range ds.Rows {
		var b strings.Builder
		for _, v := range row {
			b.WriteString(v.Display())
			b.WriteByte('\x1f')
		}
		key := b.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, row)
	}
	dropped := len(ds.Rows) - len(kept)
	ds.Rows = kept
	return dropped
}
