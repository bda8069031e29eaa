package analytics

import (
	"datapulse/internal/dataset"
	"datapulse/internal/enrich"
	"datapulse/internal/query"
	"datapulse/internal/schema"
)

// BreakdownResult is a ranked grouping of delivered revenue by one
// dimension.
type BreakdownResult struct {
	Dimension string
	Column    string
	Groups    []Group
	// UsedAllRows is set when no row carried a Delivered status and the
	// full dataset served as the base instead.
	UsedAllRows bool
}

// dimensionFields maps a classifier dimension onto the field resolved
// against the orders table.
var dimensionFields = map[string]schema.Field{
	"city":     schema.FieldCity,
	"state":    schema.FieldState,
	"category": schema.FieldCategory,
	"payment":  schema.FieldPaymentMethod,
	"status":   schema.FieldOrderStatus,
	"product":  schema.FieldProductName,
	"customer": schema.FieldCustomerName,
}

// Breakdown groups delivered revenue by the requested dimension, ranked by
// revenue descending and cut to the top limit. Product and customer
// dimensions go through ID-to-name enrichment when companion datasets allow
// it. When the dataset has no Delivered rows at all, the full set is used
// so unlabeled data still answers.
func (a *Analyzer) Breakdown(dim string, p query.Params) (*BreakdownResult, error) {
	ds, mapping, err := a.orders()
	if err != nil {
		return nil, err
	}
	if dim == "" {
		dim = "city"
	}
	field, ok := dimensionFields[dim]
	if !ok {
		field = schema.FieldCity
		dim = "city"
	}
	amountCol, err := resolve(ds, mapping, schema.FieldTotalAmount)
	if err != nil {
		return nil, err
	}
	dimCol, err := resolve(ds, mapping, field)
	if err != nil {
		return nil, err
	}

	ds, dimCol = a.enrichDimension(ds, dimCol, dim)

	all := applyTimeFilter(allRows(ds), mapping, p.TimeFilter, a.now())
	statusCol, haveStatus := schema.Resolve(ds, mapping, schema.FieldOrderStatus)
	base, usedAll := deliveredOrAll(all, statusCol, haveStatus)

	limit := p.Limit
	if limit <= 0 {
		limit = 10
	}
	return &BreakdownResult{
		Dimension:   dim,
		Column:      dimCol,
		Groups:      groupSum(base, dimCol, amountCol, limit),
		UsedAllRows: usedAll,
	}, nil
}

// enrichDimension swaps an ID-bearing dimension column for a display-name
// column when a lookup table exists.
func (a *Analyzer) enrichDimension(ds *dataset.Dataset, dimCol, dim string) (*dataset.Dataset, string) {
	var entity enrich.Entity
	switch dim {
	case "product":
		entity = enrich.EntityProduct
	case "customer":
		entity = enrich.EntityCustomer
	default:
		return ds, dimCol
	}
	out, col, _ := a.lookups().Enrich(ds, dimCol, entity)
	return out, col
}

// TopProducts ranks products by delivered revenue. The display column is
// chosen name-first, and raw product IDs get translated through the
// products dataset when one is loaded.
func (a *Analyzer) TopProducts(p query.Params) (*BreakdownResult, error) {
	return a.topEntities(enrich.EntityProduct, "product", p)
}

// TopCustomers ranks customers by delivered revenue, preferring a
// name-bearing column over IDs.
func (a *Analyzer) TopCustomers(p query.Params) (*BreakdownResult, error) {
	return a.topEntities(enrich.EntityCustomer, "customer", p)
}

func (a *Analyzer) topEntities(entity enrich.Entity, dim string, p query.Params) (*BreakdownResult, error) {
	ds, mapping, err := a.orders()
	if err != nil {
		return nil, err
	}
	amountCol, err := resolve(ds, mapping, schema.FieldTotalAmount)
	if err != nil {
		return nil, err
	}

	dimCol, ok := enrich.FindDisplayColumn(ds, entity)
	if !ok {
		sample := ds.Columns
		if len(sample) > columnSample {
			sample = sample[:columnSample]
		}
		return nil, &MissingColumnError{Field: schema.Field(dim), Columns: sample}
	}
	ds, dimCol, _ = a.lookups().Enrich(ds, dimCol, entity)

	all := applyTimeFilter(allRows(ds), mapping, p.TimeFilter, a.now())
	statusCol, haveStatus := schema.Resolve(ds, mapping, schema.FieldOrderStatus)
	base, usedAll := deliveredOrAll(all, statusCol, haveStatus)

	limit := p.Limit
	if limit <= 0 {
		limit = 10
	}
	return &BreakdownResult{
		Dimension:   dim,
		Column:      dimCol,
		Groups:      groupSum(base, dimCol, amountCol, limit),
		UsedAllRows: usedAll,
	}, nil
}
