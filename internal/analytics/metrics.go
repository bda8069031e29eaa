package analytics

import (
	"sort"

	"datapulse/internal/dataset"
	"datapulse/internal/query"
	"datapulse/internal/schema"
)

// Group is one bucket of a grouped aggregation.
type Group struct {
	Key   string  `json:"key"`
	Sum   float64 `json:"sum"`
	Mean  float64 `json:"mean"`
	Count int     `json:"count"`
	// Pct is this group's share of the displayed subset's total, so the
	// shares of a top-N table always sum to 100.
	Pct float64 `json:"pct"`
}

// RevenueResult carries the delivered-only revenue metrics.
type RevenueResult struct {
	Total          float64
	AOV            float64
	MaxOrder       float64
	MinOrder       float64
	DeliveredCount int
	ByPayment      []Group
}

// Revenue computes total revenue, AOV and order extremes over the delivered
// set. Only rows whose canonical status is Delivered contribute.
func (a *Analyzer) Revenue(p query.Params) (*RevenueResult, error) {
	ds, mapping, err := a.orders()
	if err != nil {
		return nil, err
	}
	amountCol, err := resolve(ds, mapping, schema.FieldTotalAmount)
	if err != nil {
		return nil, err
	}

	all := applyTimeFilter(allRows(ds), mapping, p.TimeFilter, a.now())

	statusCol, haveStatus := schema.Resolve(ds, mapping, schema.FieldOrderStatus)
	delivered := all
	if haveStatus {
		delivered, _, _ = statusSets(all, statusCol)
	}

	lo, hi := delivered.minMax(amountCol)
	res := &RevenueResult{
		Total:          delivered.sum(amountCol),
		AOV:            delivered.mean(amountCol),
		MaxOrder:       hi,
		MinOrder:       lo,
		DeliveredCount: delivered.len(),
	}

	if payCol, ok := schema.Resolve(ds, mapping, schema.FieldPaymentMethod); ok {
		res.ByPayment = groupSum(delivered, payCol, amountCol, 0)
	}
	return res, nil
}

// AOV computes the mean delivered order value on its own.
func (a *Analyzer) AOV(p query.Params) (*RevenueResult, error) {
	return a.Revenue(p)
}

// RTOResult carries the return-to-origin rate and its inputs.
type RTOResult struct {
	Rate           float64
	RTOCount       int
	DeliveredCount int
	Base           int
	ByPayment      []RateGroup
}

// RateGroup is a per-bucket RTO rate.
type RateGroup struct {
	Key      string  `json:"key"`
	Rate     float64 `json:"rate"`
	RTOCount int     `json:"rto_count"`
	Base     int     `json:"base"`
}

// RTORate computes RTO / (Delivered + RTO) x 100. An empty base yields a
// plain zero, never NaN.
func (a *Analyzer) RTORate(p query.Params) (*RTOResult, error) {
	ds, mapping, err := a.orders()
	if err != nil {
		return nil, err
	}
	statusCol, err := resolve(ds, mapping, schema.FieldOrderStatus)
	if err != nil {
		return nil, err
	}

	all := applyTimeFilter(allRows(ds), mapping, p.TimeFilter, a.now())
	delivered, rto, shipped := statusSets(all, statusCol)

	res := &RTOResult{
		Rate:           ratio(float64(rto.len()), float64(shipped.len())) * 100,
		RTOCount:       rto.len(),
		DeliveredCount: delivered.len(),
		Base:           shipped.len(),
	}

	if payCol, ok := schema.Resolve(ds, mapping, schema.FieldPaymentMethod); ok {
		res.ByPayment = rateByBucket(all, payCol, statusCol, 0)
	}
	return res, nil
}

// OrdersResult summarizes order counts.
type OrdersResult struct {
	Total    int
	ByStatus []Group
}

// OrderCount counts orders overall and per canonical status.
func (a *Analyzer) OrderCount(p query.Params) (*OrdersResult, error) {
	ds, mapping, err := a.orders()
	if err != nil {
		return nil, err
	}

	all := applyTimeFilter(allRows(ds), mapping, p.TimeFilter, a.now())
	res := &OrdersResult{Total: all.len()}

	if statusCol, ok := schema.Resolve(ds, mapping, schema.FieldOrderStatus); ok {
		counts := make(map[string]int)
		for i := 0; i < all.len(); i++ {
			counts[dataset.CanonicalStatus(all.cell(i, statusCol).Display())]++
		}
		for status, n := range counts {
			res.ByStatus = append(res.ByStatus, Group{
				Key:   status,
				Count: n,
				Pct:   ratio(float64(n), float64(all.len())) * 100,
			})
		}
		sort.Slice(res.ByStatus, func(i, j int) bool {
			if res.ByStatus[i].Count != res.ByStatus[j].Count {
				return res.ByStatus[i].Count > res.ByStatus[j].Count
			}
			return res.ByStatus[i].Key < res.ByStatus[j].Key
		})
	}
	return res, nil
}

// groupSum groups a row set by a dimension column and aggregates an amount
// column. Groups sort by sum descending; limit 0 keeps all. Percentages are
// relative to the kept groups' combined sum.
func groupSum(s rowSet, dimCol, amountCol string, limit int) []Group {
	type agg struct {
		sum   float64
		count int
	}
	buckets := make(map[string]*agg)
	for i := 0; i < s.len(); i++ {
		key := s.cell(i, dimCol).Display()
		if key == "" {
			key = "Unknown"
		}
		b := buckets[key]
		if b == nil {
			b = &agg{}
			buckets[key] = b
		}
		b.count++
		if n, ok := s.cell(i, amountCol).AsNumber(); ok {
			b.sum += n
		}
	}

	groups := make([]Group, 0, len(buckets))
	for key, b := range buckets {
		groups = append(groups, Group{
			Key:   key,
			Sum:   b.sum,
			Mean:  ratio(b.sum, float64(b.count)),
			Count: b.count,
		})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Sum != groups[j].Sum {
			return groups[i].Sum > groups[j].Sum
		}
		return groups[i].Key < groups[j].Key
	})

	if limit > 0 && len(groups) > limit {
		groups = groups[:limit]
	}

	displayed := 0.0
	for _, g := range groups {
		displayed += g.Sum
	}
	for i := range groups {
		groups[i].Pct = ratio(groups[i].Sum, displayed) * 100
	}
	return groups
}

// rateByBucket computes a per-bucket RTO rate. Limit 0 keeps all buckets;
// otherwise the highest rates are kept.
func rateByBucket(all rowSet, dimCol, statusCol string, limit int) []RateGroup {
	type agg struct {
		rto  int
		base int
	}
	buckets := make(map[string]*agg)
	for i := 0; i < all.len(); i++ {
		key := all.cell(i, dimCol).Display()
		if key == "" {
			key = "Unknown"
		}
		b := buckets[key]
		if b == nil {
			b = &agg{}
			buckets[key] = b
		}
		switch dataset.CanonicalStatus(all.cell(i, statusCol).Display()) {
		case dataset.StatusRTO:
			b.rto++
			b.base++
		case dataset.StatusDelivered:
			b.base++
		}
	}

	groups := make([]RateGroup, 0, len(buckets))
	for key, b := range buckets {
		groups = append(groups, RateGroup{
			Key:      key,
			Rate:     ratio(float64(b.rto), float64(b.base)) * 100,
			RTOCount: b.rto,
			Base:     b.base,
		})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Rate != groups[j].Rate {
			return groups[i].Rate > groups[j].Rate
		}
		return groups[i].Key < groups[j].Key
	})
	if limit > 0 && len(groups) > limit {
		groups = groups[:limit]
	}
	return groups
}
