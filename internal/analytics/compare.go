package analytics

import (
	"datapulse/internal/dataset"
	"datapulse/internal/query"
	"datapulse/internal/schema"
)

// PaymentSide is one half of the COD versus prepaid comparison.
type PaymentSide struct {
	Orders     int
	OrderPct   float64
	Revenue    float64
	RevenuePct float64
	AOV        float64
	RTORate    float64
}

// CODPrepaidResult compares cash-on-delivery orders against everything
// else. Prepaid means any payment type not classified as COD.
type CODPrepaidResult struct {
	COD     PaymentSide
	Prepaid PaymentSide
}

// CODvsPrepaid partitions orders into COD and prepaid and computes each
// side's delivered revenue, AOV and RTO rate using the same status
// definitions as the standalone metrics.
func (a *Analyzer) CODvsPrepaid(p query.Params) (*CODPrepaidResult, error) {
	ds, mapping, err := a.orders()
	if err != nil {
		return nil, err
	}
	payCol, err := resolve(ds, mapping, schema.FieldPaymentMethod)
	if err != nil {
		return nil, err
	}

	all := applyTimeFilter(allRows(ds), mapping, p.TimeFilter, a.now())
	cod := all.filter(func(r int) bool {
		return dataset.IsCOD(dataset.CanonicalPayment(ds.Cell(r, payCol).Display()))
	})
	prepaid := all.filter(func(r int) bool {
		return !dataset.IsCOD(dataset.CanonicalPayment(ds.Cell(r, payCol).Display()))
	})

	amountCol, _ := schema.Resolve(ds, mapping, schema.FieldTotalAmount)
	statusCol, haveStatus := schema.Resolve(ds, mapping, schema.FieldOrderStatus)

	res := &CODPrepaidResult{
		COD:     sideMetrics(cod, amountCol, statusCol, haveStatus),
		Prepaid: sideMetrics(prepaid, amountCol, statusCol, haveStatus),
	}
	total := float64(all.len())
	res.COD.OrderPct = ratio(float64(cod.len()), total) * 100
	res.Prepaid.OrderPct = ratio(float64(prepaid.len()), total) * 100

	revTotal := res.COD.Revenue + res.Prepaid.Revenue
	res.COD.RevenuePct = ratio(res.COD.Revenue, revTotal) * 100
	res.Prepaid.RevenuePct = ratio(res.Prepaid.Revenue, revTotal) * 100
	return res, nil
}

func sideMetrics(side rowSet, amountCol, statusCol string, haveStatus bool) PaymentSide {
	out := PaymentSide{Orders: side.len()}
	base := side
	if haveStatus {
		delivered, rto, shipped := statusSets(side, statusCol)
		out.RTORate = ratio(float64(rto.len()), float64(shipped.len())) * 100
		base = delivered
	}
	if amountCol != "" {
		out.Revenue = base.sum(amountCol)
		out.AOV = base.mean(amountCol)
	}
	return out
}

// minCityOrders filters out cities with too few shipped orders for their
// RTO rate to mean anything.
const minCityOrders = 5

// RTOByCity ranks cities by RTO rate, highest first, skipping cities whose
// delivered-plus-RTO base is below minCityOrders.
func (a *Analyzer) RTOByCity(p query.Params) (*RTOResult, []RateGroup, error) {
	res, err := a.RTORate(p)
	if err != nil {
		return nil, nil, err
	}

	ds, mapping, err := a.orders()
	if err != nil {
		return nil, nil, err
	}
	cityCol, err := resolve(ds, mapping, schema.FieldCity)
	if err != nil {
		return res, nil, err
	}
	statusCol, err := resolve(ds, mapping, schema.FieldOrderStatus)
	if err != nil {
		return res, nil, err
	}

	all := applyTimeFilter(allRows(ds), mapping, p.TimeFilter, a.now())
	groups := rateByBucket(all, cityCol, statusCol, 0)

	kept := groups[:0]
	for _, g := range groups {
		if g.Base >= minCityOrders {
			kept = append(kept, g)
		}
	}
	limit := p.Limit
	if limit <= 0 {
		limit = 10
	}
	if len(kept) > limit {
		kept = kept[:limit]
	}
	return res, kept, nil
}
