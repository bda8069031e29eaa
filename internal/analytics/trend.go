package analytics

import (
	"sort"
	"time"

	"datapulse/internal/query"
	"datapulse/internal/schema"
)

// TrendPoint is one day of a time series.
type TrendPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// TrendResult is a daily series with its headline statistics.
type TrendResult struct {
	Points  []TrendPoint
	Average float64
	Best    float64
	Days    int
}

// RevenueTrend groups delivered revenue by order date. Rows without a
// parsed date are skipped.
func (a *Analyzer) RevenueTrend(p query.Params) (*TrendResult, error) {
	return a.trend(p, true)
}

// OrdersTrend counts orders per day across all statuses.
func (a *Analyzer) OrdersTrend(p query.Params) (*TrendResult, error) {
	return a.trend(p, false)
}

func (a *Analyzer) trend(p query.Params, revenue bool) (*TrendResult, error) {
	ds, mapping, err := a.orders()
	if err != nil {
		return nil, err
	}
	dateCol, err := resolve(ds, mapping, schema.FieldOrderDate)
	if err != nil {
		return nil, err
	}

	var amountCol string
	if revenue {
		if amountCol, err = resolve(ds, mapping, schema.FieldTotalAmount); err != nil {
			return nil, err
		}
	}

	base := applyTimeFilter(allRows(ds), mapping, p.TimeFilter, a.now())
	if revenue {
		statusCol, haveStatus := schema.Resolve(ds, mapping, schema.FieldOrderStatus)
		base, _ = deliveredOrAll(base, statusCol, haveStatus)
	}

	daily := make(map[time.Time]float64)
	for i := 0; i < base.len(); i++ {
		t, ok := base.cell(i, dateCol).AsTime()
		if !ok {
			continue
		}
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		if revenue {
			if n, ok := base.cell(i, amountCol).AsNumber(); ok {
				daily[day] += n
			}
			continue
		}
		daily[day]++
	}

	res := &TrendResult{Days: len(daily)}
	for day, v := range daily {
		res.Points = append(res.Points, TrendPoint{Date: day, Value: v})
	}
	sort.Slice(res.Points, func(i, j int) bool { return res.Points[i].Date.Before(res.Points[j].Date) })

	total := 0.0
	for _, pt := range res.Points {
		total += pt.Value
		if pt.Value > res.Best {
			res.Best = pt.Value
		}
	}
	res.Average = ratio(total, float64(len(res.Points)))
	return res, nil
}
