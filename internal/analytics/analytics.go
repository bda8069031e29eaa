// Package analytics computes the canonical business metrics over cleaned
// datasets. Every computation is pure: it reads the store, resolves the
// columns it needs, and returns a structured result or a typed error that
// names exactly what was missing. Formulas here are the product's
// correctness contract; in particular revenue and AOV cover delivered
// orders only, and RTO rate uses delivered plus RTO as its denominator.
package analytics

import (
	"fmt"
	"time"

	"datapulse/internal/dataset"
	"datapulse/internal/enrich"
	"datapulse/internal/schema"
)

// columnSample caps how many physical column names a MissingColumnError
// carries for the user-facing hint.
const columnSample = 15

// MissingDatasetError reports that a query needs a dataset type with no
// rows loaded.
type MissingDatasetError struct {
	Type dataset.Type
}

func (e *MissingDatasetError) Error() string {
	return fmt.Sprintf("no %s data loaded", e.Type.Label())
}

// MissingColumnError reports that a logical field has no matching physical
// column, along with a sample of the columns that do exist.
type MissingColumnError struct {
	Field   schema.Field
	Columns []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("no column found for %s", e.Field)
}

// Analyzer runs metric computations against the current store contents.
type Analyzer struct {
	store    *dataset.Store
	mappings *schema.MappingStore
	now      func() time.Time
}

func NewAnalyzer(store *dataset.Store, mappings *schema.MappingStore) *Analyzer {
	return &Analyzer{store: store, mappings: mappings, now: time.Now}
}

// orders returns the cleaned orders dataset and its effective mapping, or a
// MissingDatasetError.
func (a *Analyzer) orders() (*dataset.Dataset, schema.Mapping, error) {
	ds := a.store.Get(dataset.TypeOrders)
	if ds.Len() == 0 {
		return nil, nil, &MissingDatasetError{Type: dataset.TypeOrders}
	}
	return ds, a.mappings.Get(dataset.TypeOrders), nil
}

// resolve wraps schema.Resolve with the typed error carrying a column
// sample.
func resolve(ds *dataset.Dataset, mapping schema.Mapping, field schema.Field) (string, error) {
	col, ok := schema.Resolve(ds, mapping, field)
	if !ok {
		sample := ds.Columns
		if len(sample) > columnSample {
			sample = sample[:columnSample]
		}
		return "", &MissingColumnError{Field: field, Columns: sample}
	}
	return col, nil
}

// lookups builds fresh entity ID-to-name tables for this computation.
func (a *Analyzer) lookups() *enrich.Lookups {
	return enrich.BuildLookups(a.store, a.mappings)
}

// rowSet is a view over a subset of a dataset's rows.
type rowSet struct {
	ds   *dataset.Dataset
	rows []int
}

func allRows(ds *dataset.Dataset) rowSet {
	rows := make([]int, ds.Len())
	for i := range rows {
		rows[i] = i
	}
	return rowSet{ds: ds, rows: rows}
}

func (s rowSet) len() int { return len(s.rows) }

func (s rowSet) cell(i int, column string) dataset.Value {
	return s.ds.Cell(s.rows[i], column)
}

// filter keeps rows the predicate accepts.
func (s rowSet) filter(keep func(row int) bool) rowSet {
	out := rowSet{ds: s.ds}
	for _, r := range s.rows {
		if keep(r) {
			out.rows = append(out.rows, r)
		}
	}
	return out
}

// sum adds the numeric cells of a column; missing cells contribute nothing.
func (s rowSet) sum(column string) float64 {
	total := 0.0
	for _, r := range s.rows {
		if n, ok := s.ds.Cell(r, column).AsNumber(); ok {
			total += n
		}
	}
	return total
}

// mean averages numeric cells; zero when none parse.
func (s rowSet) mean(column string) float64 {
	total, count := 0.0, 0
	for _, r := range s.rows {
		if n, ok := s.ds.Cell(r, column).AsNumber(); ok {
			total += n
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

func (s rowSet) minMax(column string) (float64, float64) {
	lo, hi := 0.0, 0.0
	first := true
	for _, r := range s.rows {
		n, ok := s.ds.Cell(r, column).AsNumber()
		if !ok {
			continue
		}
		if first {
			lo, hi = n, n
			first = false
			continue
		}
		if n < lo {
			lo = n
		}
		if n > hi {
			hi = n
		}
	}
	return lo, hi
}

// statusSets partitions orders by canonical status. The dataset is cleaned
// at import, so cells already hold canonical labels; CanonicalStatus is
// still applied for safety against uncleaned inputs.
func statusSets(all rowSet, statusCol string) (delivered, rto, shipped rowSet) {
	delivered = all.filter(func(r int) bool {
		return dataset.CanonicalStatus(all.ds.Cell(r, statusCol).Display()) == dataset.StatusDelivered
	})
	rto = all.filter(func(r int) bool {
		return dataset.CanonicalStatus(all.ds.Cell(r, statusCol).Display()) == dataset.StatusRTO
	})
	shipped = rowSet{ds: all.ds, rows: append(append([]int{}, delivered.rows...), rto.rows...)}
	return delivered, rto, shipped
}

// deliveredOrAll returns the delivered subset, or every row when no order
// carries a Delivered label, so unlabeled datasets still produce output.
func deliveredOrAll(all rowSet, statusCol string, haveStatus bool) (rowSet, bool) {
	if !haveStatus {
		return all, true
	}
	delivered := all.filter(func(r int) bool {
		return dataset.CanonicalStatus(all.ds.Cell(r, statusCol).Display()) == dataset.StatusDelivered
	})
	if delivered.len() == 0 {
		return all, true
	}
	return delivered, false
}

// timeWindow resolves a classifier time-filter tag into a half-open range
// [from, to). A zero "to" means unbounded.
func timeWindow(tag string, now time.Time) (time.Time, time.Time, bool) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch tag {
	case "today":
		return day, day.AddDate(0, 0, 1), true
	case "yesterday":
		return day.AddDate(0, 0, -1), day, true
	case "week":
		offset := (int(day.Weekday()) + 6) % 7 // Monday start
		return day.AddDate(0, 0, -offset), day.AddDate(0, 0, 1), true
	case "month":
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), day.AddDate(0, 0, 1), true
	case "7days":
		return day.AddDate(0, 0, -7), day.AddDate(0, 0, 1), true
	case "30days":
		return day.AddDate(0, 0, -30), day.AddDate(0, 0, 1), true
	default:
		return time.Time{}, time.Time{}, false
	}
}

// applyTimeFilter narrows a row set to the tag's window using the orders
// date column. Rows without a parsed date drop out of a filtered view. When
// the tag is empty or no date column resolves, the set is unchanged.
func applyTimeFilter(all rowSet, mapping schema.Mapping, tag string, now time.Time) rowSet {
	if tag == "" {
		return all
	}
	dateCol, ok := schema.Resolve(all.ds, mapping, schema.FieldOrderDate)
	if !ok {
		return all
	}
	from, to, ok := timeWindow(tag, now)
	if !ok {
		return all
	}
	return all.filter(func(r int) bool {
		t, ok := all.ds.Cell(r, dateCol).AsTime()
		if !ok {
			return false
		}
		return !t.Before(from) && t.Before(to)
	})
}

// ratio divides and returns 0 on a zero denominator so presentation never
// sees NaN.
func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
