package analytics

import (
	"sort"

	"datapulse/internal/dataset"
	"datapulse/internal/query"
	"datapulse/internal/schema"
)

// lowStockThreshold marks an inventory row as low stock.
const lowStockThreshold = 10

// SummaryResult is the cross-dataset business overview.
type SummaryResult struct {
	TotalOrders    int
	Delivered      int
	RTO            int
	Revenue        float64
	AOV            float64
	RTORate        float64
	StatusCounts   []Group
	TotalCustomers int
	TotalProducts  int
	Inventory      *InventoryResult
}

// Summary walks every loaded dataset and assembles the headline numbers.
// It needs at least one dataset of any type; individual sections degrade to
// zero values when their dataset or columns are absent.
func (a *Analyzer) Summary() (*SummaryResult, error) {
	if a.store.TotalRows() == 0 {
		return nil, &MissingDatasetError{Type: dataset.TypeOrders}
	}

	res := &SummaryResult{}

	if ds := a.store.Get(dataset.TypeOrders); ds.Len() > 0 {
		mapping := a.mappings.Get(dataset.TypeOrders)
		all := allRows(ds)
		res.TotalOrders = all.len()

		if statusCol, ok := schema.Resolve(ds, mapping, schema.FieldOrderStatus); ok {
			delivered, rto, shipped := statusSets(all, statusCol)
			res.Delivered = delivered.len()
			res.RTO = rto.len()
			res.RTORate = ratio(float64(rto.len()), float64(shipped.len())) * 100

			if amountCol, ok := schema.Resolve(ds, mapping, schema.FieldTotalAmount); ok {
				res.Revenue = delivered.sum(amountCol)
				res.AOV = delivered.mean(amountCol)
			}

			counts := make(map[string]int)
			for i := 0; i < all.len(); i++ {
				counts[dataset.CanonicalStatus(all.cell(i, statusCol).Display())]++
			}
			for status, n := range counts {
				res.StatusCounts = append(res.StatusCounts, Group{Key: status, Count: n})
			}
			sort.Slice(res.StatusCounts, func(i, j int) bool {
				if res.StatusCounts[i].Count != res.StatusCounts[j].Count {
					return res.StatusCounts[i].Count > res.StatusCounts[j].Count
				}
				return res.StatusCounts[i].Key < res.StatusCounts[j].Key
			})
		} else if amountCol, ok := schema.Resolve(ds, mapping, schema.FieldTotalAmount); ok {
			res.Revenue = all.sum(amountCol)
			res.AOV = all.mean(amountCol)
		}
	}

	res.TotalCustomers = a.store.Get(dataset.TypeCustomers).Len()
	res.TotalProducts = a.store.Get(dataset.TypeProducts).Len()

	if inv, err := a.InventorySummary(); err == nil {
		res.Inventory = inv
	}
	return res, nil
}

// CustomerStats profiles the customer base from whichever dataset serves
// it best.
type CustomerStats struct {
	TotalCustomers  int
	UniqueBuyers    int
	RepeatBuyers    int
	RepeatRate      float64
	AverageLifetime float64
	TotalLifetime   float64
}

// Customers computes customer counts and repeat-purchase rate. Lifetime
// value figures come from the customers dataset when loaded; buyer counts
// come from the orders table's customer column.
func (a *Analyzer) Customers(p query.Params) (*CustomerStats, error) {
	res := &CustomerStats{}
	haveAny := false

	if ds := a.store.Get(dataset.TypeCustomers); ds.Len() > 0 {
		haveAny = true
		res.TotalCustomers = ds.Len()
		mapping := a.mappings.Get(dataset.TypeCustomers)
		if col, ok := schema.Resolve(ds, mapping, schema.FieldTotalSpent); ok {
			all := allRows(ds)
			res.TotalLifetime = all.sum(col)
			res.AverageLifetime = all.mean(col)
		}
	}

	if ds := a.store.Get(dataset.TypeOrders); ds.Len() > 0 {
		mapping := a.mappings.Get(dataset.TypeOrders)
		if col, ok := schema.Resolve(ds, mapping, schema.FieldCustomerName); ok {
			haveAny = true
			all := applyTimeFilter(allRows(ds), mapping, p.TimeFilter, a.now())
			orders := make(map[string]int)
			for i := 0; i < all.len(); i++ {
				v := all.cell(i, col)
				if v.IsMissing() {
					continue
				}
				orders[v.Display()]++
			}
			res.UniqueBuyers = len(orders)
			for _, n := range orders {
				if n > 1 {
					res.RepeatBuyers++
				}
			}
			res.RepeatRate = ratio(float64(res.RepeatBuyers), float64(res.UniqueBuyers)) * 100
		}
	}

	if !haveAny {
		return nil, &MissingDatasetError{Type: dataset.TypeCustomers}
	}
	return res, nil
}

// LowStockItem is an inventory row at or below the reorder threshold.
type LowStockItem struct {
	Name  string
	Units float64
}

// InventoryResult summarizes stock holdings.
type InventoryResult struct {
	SKUs       int
	TotalUnits float64
	LowStock   []LowStockItem
}

// InventorySummary totals stock and flags items under the low-stock
// threshold or their row's reorder level when one is present.
func (a *Analyzer) InventorySummary() (*InventoryResult, error) {
	ds := a.store.Get(dataset.TypeInventory)
	if ds.Len() == 0 {
		return nil, &MissingDatasetError{Type: dataset.TypeInventory}
	}
	mapping := a.mappings.Get(dataset.TypeInventory)
	qtyCol, err := resolve(ds, mapping, schema.FieldQuantity)
	if err != nil {
		return nil, err
	}

	nameCol, _ := schema.Resolve(ds, mapping, schema.FieldProductName)
	reorderCol, haveReorder := schema.Resolve(ds, mapping, schema.FieldReorderLevel)

	all := allRows(ds)
	res := &InventoryResult{SKUs: ds.Len(), TotalUnits: all.sum(qtyCol)}

	for i := 0; i < all.len(); i++ {
		qty, ok := all.cell(i, qtyCol).AsNumber()
		if !ok {
			continue
		}
		threshold := float64(lowStockThreshold)
		if haveReorder {
			if r, ok := all.cell(i, reorderCol).AsNumber(); ok {
				threshold = r
			}
		}
		if qty >= threshold {
			continue
		}
		name := "item"
		if nameCol != "" {
			name = all.cell(i, nameCol).Display()
		}
		res.LowStock = append(res.LowStock, LowStockItem{Name: name, Units: qty})
	}
	sort.Slice(res.LowStock, func(i, j int) bool {
		if res.LowStock[i].Units != res.LowStock[j].Units {
			return res.LowStock[i].Units < res.LowStock[j].Units
		}
		return res.LowStock[i].Name < res.LowStock[j].Name
	})
	return res, nil
}

// Metrics exposes the scalar figures the alert rules evaluate against.
// Missing inputs simply leave their key absent.
func (a *Analyzer) Metrics() map[string]float64 {
	m := make(map[string]float64)

	if ds := a.store.Get(dataset.TypeOrders); ds.Len() > 0 {
		mapping := a.mappings.Get(dataset.TypeOrders)
		all := allRows(ds)
		if statusCol, ok := schema.Resolve(ds, mapping, schema.FieldOrderStatus); ok {
			delivered, rto, shipped := statusSets(all, statusCol)
			m["rto_rate"] = ratio(float64(rto.len()), float64(shipped.len())) * 100

			cancelled := all.filter(func(r int) bool {
				return dataset.CanonicalStatus(ds.Cell(r, statusCol).Display()) == dataset.StatusCancelled
			})
			m["cancellation_rate"] = ratio(float64(cancelled.len()), float64(all.len())) * 100

			if amountCol, ok := schema.Resolve(ds, mapping, schema.FieldTotalAmount); ok {
				m["revenue"] = delivered.sum(amountCol)
			}
		}
	}

	if inv, err := a.InventorySummary(); err == nil {
		m["low_stock_items"] = float64(len(inv.LowStock))
	}

	if ads, err := a.Ads(); err == nil {
		m["ad_spend"] = ads.Spend
		m["roas"] = ads.ROAS
	}
	return m
}
