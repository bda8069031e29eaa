// Package enrich swaps entity IDs for human-readable names in analysis
// output. Orders exports often carry a product or customer ID where a name
// belongs; when a companion dataset can translate them, breakdowns should
// show "Cotton Kurta", not "PRD-0042".
package enrich

import (
	"strings"

	"datapulse/internal/dataset"
	"datapulse/internal/schema"
)

// Entity names which lookup table applies to a column.
type Entity string

const (
	EntityProduct  Entity = "product"
	EntityCustomer Entity = "customer"
)

// DisplayName is the column added when enrichment fires.
func (e Entity) DisplayName() string {
	switch e {
	case EntityProduct:
		return "Product Name"
	case EntityCustomer:
		return "Customer Name"
	default:
		return "Name"
	}
}

// Lookups holds the ID-to-name tables built from companion datasets. Build
// once per query; tables are nil-safe to use when a companion dataset is
// absent.
type Lookups struct {
	products  map[string]string
	customers map[string]string
}

// BuildLookups assembles ID-to-name tables from whatever products and
// customers datasets the store currently holds.
func BuildLookups(store *dataset.Store, mappings *schema.MappingStore) *Lookups {
	l := &Lookups{}
	if ds := store.Get(dataset.TypeProducts); ds != nil {
		l.products = buildTable(ds, mappings.Get(dataset.TypeProducts), schema.FieldProductID, schema.FieldProductName)
	}
	if ds := store.Get(dataset.TypeCustomers); ds != nil {
		l.customers = buildTable(ds, mappings.Get(dataset.TypeCustomers), schema.FieldCustomerID, schema.FieldName)
	}
	return l
}

func buildTable(ds *dataset.Dataset, mapping schema.Mapping, idField, nameField schema.Field) map[string]string {
	idCol, ok := schema.Resolve(ds, mapping, idField)
	if !ok {
		return nil
	}
	nameCol, ok := schema.Resolve(ds, mapping, nameField)
	if !ok || nameCol == idCol {
		return nil
	}

	table := make(map[string]string, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		id := ds.Cell(i, idCol)
		name := ds.Cell(i, nameCol)
		if id.IsMissing() || name.IsMissing() {
			continue
		}
		table[id.Display()] = name.Display()
	}
	return table
}

func (l *Lookups) table(e Entity) map[string]string {
	switch e {
	case EntityProduct:
		return l.products
	case EntityCustomer:
		return l.customers
	default:
		return nil
	}
}

// sampleSize and matchThreshold tune the ID-likeness test: of up to 20
// non-missing sample values, at least 30% must hit the lookup table.
const (
	sampleSize     = 20
	matchThreshold = 0.3
)

// Enrich checks whether a column holds entity IDs and, if so, returns a
// copy of the dataset with an added display column plus that column's name
// and the fraction of sampled values that matched. When the column does not
// look ID-like, or no lookup table exists, the original dataset and column
// come back unchanged. Row count and existing columns are never altered.
func (l *Lookups) Enrich(ds *dataset.Dataset, column string, e Entity) (*dataset.Dataset, string, float64) {
	table := l.table(e)
	if len(table) == 0 || !ds.HasColumn(column) {
		return ds, column, 0
	}

	sampled, matched := 0, 0
	for i := 0; i < ds.Len() && sampled < sampleSize; i++ {
		v := ds.Cell(i, column)
		if v.IsMissing() {
			continue
		}
		sampled++
		if _, ok := table[v.Display()]; ok {
			matched++
		}
	}
	if sampled == 0 {
		return ds, column, 0
	}

	ratio := float64(matched) / float64(sampled)
	if ratio < matchThreshold {
		return ds, column, ratio
	}

	out := ds.Clone()
	names := make([]dataset.Value, out.Len())
	for i := 0; i < out.Len(); i++ {
		v := out.Cell(i, column)
		if name, ok := table[v.Display()]; ok && !v.IsMissing() {
			names[i] = dataset.Text(name)
			continue
		}
		// Unmatched IDs keep their raw value rather than going blank.
		names[i] = v
	}
	display := e.DisplayName()
	out.AddColumn(display, names)
	return out, display, ratio
}

// displayPriority lists candidate column spellings for an entity in
// preference order. Exact entries must equal the normalized column name;
// loose entries match as substrings unless an exclusion word appears.
type displayCandidate struct {
	pattern string
	exact   bool
}

var displayPriority = map[Entity]struct {
	candidates []displayCandidate
	exclude    []string
	idFallback string
}{
	EntityProduct: {
		candidates: []displayCandidate{
			{"product name", true}, {"lineitem name", true}, {"item name", true},
			{"product title", true}, {"product", false}, {"item", false}, {"sku", false},
		},
		exclude:    []string{"customer", "id", "quantity", "price", "amount"},
		idFallback: "product id",
	},
	EntityCustomer: {
		candidates: []displayCandidate{
			{"customer name", true}, {"buyer name", true}, {"full name", true},
			{"name", false}, {"customer", false},
		},
		exclude:    []string{"product", "id", "email", "phone", "address"},
		idFallback: "customer id",
	},
}

// FindDisplayColumn picks the best column to show for an entity, preferring
// a name-like column and falling back to the raw ID column, which Enrich
// can then translate.
func FindDisplayColumn(ds *dataset.Dataset, e Entity) (string, bool) {
	spec, ok := displayPriority[e]
	if !ok || ds == nil {
		return "", false
	}

	for _, cand := range spec.candidates {
		for _, col := range ds.Columns {
			name := normalizeColumn(col)
			if cand.exact {
				if name == cand.pattern {
					return col, true
				}
				continue
			}
			if strings.Contains(name, cand.pattern) && !containsAny(name, spec.exclude) {
				return col, true
			}
		}
	}

	for _, col := range ds.Columns {
		if strings.Contains(normalizeColumn(col), spec.idFallback) {
			return col, true
		}
	}
	return "", false
}

func normalizeColumn(col string) string {
	s := strings.ToLower(strings.TrimSpace(col))
	s = strings.ReplaceAll(s, "_", " ")
	return strings.Join(strings.Fields(s), " ")
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
