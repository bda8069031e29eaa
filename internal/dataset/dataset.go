package dataset

import (
	"strconv"
	"strings"
	"time"
)

// Type identifies what kind of business data a table holds.
type Type string

const (
	TypeOrders     Type = "orders"
	TypeCustomers  Type = "customers"
	TypeProducts   Type = "products"
	TypeInventory  Type = "inventory"
	TypeAdsMeta    Type = "ads_meta"
	TypeAdsGoogle  Type = "ads_google"
	TypeAdsShopify Type = "ads_shopify"
)

// AllTypes lists every dataset type the store understands, in display order.
var AllTypes = []Type{
	TypeOrders, TypeCustomers, TypeProducts, TypeInventory,
	TypeAdsMeta, TypeAdsGoogle, TypeAdsShopify,
}

// Label returns a human-readable name for the dataset type.
func (t Type) Label() string {
	switch t {
	case TypeOrders:
		return "Orders"
	case TypeCustomers:
		return "Customers"
	case TypeProducts:
		return "Products"
	case TypeInventory:
		return "Inventory"
	case TypeAdsMeta:
		return "Meta Ads"
	case TypeAdsGoogle:
		return "Google Ads"
	case TypeAdsShopify:
		return "Shopify Ads"
	default:
		return string(t)
	}
}

// Kind tags what a cell value holds.
type Kind int

const (
	KindMissing Kind = iota
	KindText
	KindNumber
	KindTime
)

// Value is a single cell. Unparseable or absent data is KindMissing, never a
// zero number, so sums and averages stay honest.
type Value struct {
	Kind Kind
	Text string
	Num  float64
	Time time.Time
}

func Missing() Value              { return Value{Kind: KindMissing} }
func Text(s string) Value         { return Value{Kind: KindText, Text: s} }
func Number(f float64) Value      { return Value{Kind: KindNumber, Num: f} }
func Timestamp(t time.Time) Value { return Value{Kind: KindTime, Time: t} }

// IsMissing reports whether the cell holds no usable value. Text cells that
// are empty after trimming count as missing.
func (v Value) IsMissing() bool {
	if v.Kind == KindMissing {
		return true
	}
	if v.Kind == KindText && strings.TrimSpace(v.Text) == "" {
		return true
	}
	return false
}

// Display renders the cell for grouping keys and table output.
func (v Value) Display() string {
	switch v.Kind {
	case KindText:
		return v.Text
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindTime:
		return v.Time.Format("2006-01-02")
	default:
		return ""
	}
}

// AsNumber attempts numeric interpretation of the cell.
func (v Value) AsNumber() (float64, bool) {
	switch v.Kind {
	case KindNumber:
		return v.Num, true
	case KindText:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Text), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// AsTime returns the cell's timestamp if it holds one.
func (v Value) AsTime() (time.Time, bool) {
	if v.Kind == KindTime {
		return v.Time, true
	}
	return time.Time{}, false
}

// Row is one record, aligned with the owning dataset's Columns.
type Row []Value

// Dataset is a named in-memory table. Either absent from the store or fully
// cleaned; import never leaves a partially-normalized table behind.
type Dataset struct {
	Name    string
	Type    Type
	Columns []string
	Rows    []Row

	colIndex map[string]int
}

// New builds an empty dataset with the given schema.
func New(name string, typ Type, columns []string) *Dataset {
	ds := &Dataset{
		Name:    name,
		Type:    typ,
		Columns: columns,
	}
	ds.reindex()
	return ds
}

func (ds *Dataset) reindex() {
	ds.colIndex = make(map[string]int, len(ds.Columns))
	for i, c := range ds.Columns {
		ds.colIndex[c] = i
	}
}

// ColumnIndex returns the position of a physical column, or -1.
func (ds *Dataset) ColumnIndex(name string) int {
	if ds == nil || ds.colIndex == nil {
		return -1
	}
	if i, ok := ds.colIndex[name]; ok {
		return i
	}
	return -1
}

// HasColumn reports whether the named column exists in the schema.
func (ds *Dataset) HasColumn(name string) bool {
	return ds.ColumnIndex(name) >= 0
}

// Len returns the row count. Safe on nil.
func (ds *Dataset) Len() int {
	if ds == nil {
		return 0
	}
	return len(ds.Rows)
}

// Cell returns the value at (row, column name); Missing when out of range or
// the column does not exist.
func (ds *Dataset) Cell(row int, column string) Value {
	i := ds.ColumnIndex(column)
	if i < 0 || row < 0 || row >= len(ds.Rows) {
		return Missing()
	}
	r := ds.Rows[row]
	if i >= len(r) {
		return Missing()
	}
	return r[i]
}

// AddColumn appends a new column, filling existing rows with the given
// values. len(values) must equal ds.Len(); extra rows get Missing.
func (ds *Dataset) AddColumn(name string, values []Value) {
	ds.Columns = append(ds.Columns, name)
	for i := range ds.Rows {
		v := Missing()
		if i < len(values) {
			v = values[i]
		}
		ds.Rows[i] = append(ds.Rows[i], v)
	}
	ds.reindex()
}

// Clone produces a deep copy, used when a computation needs to annotate rows
// without disturbing the stored table.
func (ds *Dataset) Clone() *Dataset {
	out := New(ds.Name, ds.Type, append([]string(nil), ds.Columns...))
	out.Rows = make([]Row, len(ds.Rows))
	for i, r := range ds.Rows {
		out.Rows[i] = append(Row(nil), r...)
	}
	return out
}
