package schema

import (
	"testing"

	"datapulse/internal/dataset"
)

func TestDetectType(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		want    dataset.Type
	}{
		{"orders", []string{"Order ID", "Order Date", "Total Amount", "Delivery Status", "COD"}, dataset.TypeOrders},
		{"customers", []string{"customer_id", "email", "phone", "city"}, dataset.TypeCustomers},
		{"inventory", []string{"sku", "stock", "warehouse", "reorder_level"}, dataset.TypeInventory},
		{"meta ads", []string{"date", "adset", "reach", "cpm", "spend"}, dataset.TypeAdsMeta},
		{"google ads", []string{"date", "ad_group", "quality_score", "ppc_cost"}, dataset.TypeAdsGoogle},
		{"no signal falls back to orders", []string{"a", "b", "c"}, dataset.TypeOrders},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := DetectType(tt.columns)
			if got != tt.want {
				t.Errorf("DetectType(%v) = %v, want %v", tt.columns, got, tt.want)
			}
		})
	}
}

func ordersFixture(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds := dataset.New("orders.csv", dataset.TypeOrders, []string{
		"Order ID", "Grand Total", "Delivery Status", "Customer_Billing_City", "notes",
	})
	ds.Rows = []dataset.Row{
		{dataset.Text("ORD1"), dataset.Number(500), dataset.Text("Delivered"), dataset.Text("Pune"), dataset.Text("x")},
		{dataset.Text("ORD2"), dataset.Number(700), dataset.Text("RTO"), dataset.Text("Surat"), dataset.Missing()},
	}
	return ds
}

func TestResolveSynonym(t *testing.T) {
	ds := ordersFixture(t)

	tests := []struct {
		field   Field
		want    string
		wantHit bool
	}{
		{FieldOrderID, "Order ID", true},
		{FieldTotalAmount, "Grand Total", true},
		{FieldOrderStatus, "Delivery Status", true},
		{FieldPaymentMethod, "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.field), func(t *testing.T) {
			got, ok := Resolve(ds, nil, tt.field)
			if ok != tt.wantHit || got != tt.want {
				t.Errorf("Resolve(%s) = %q, %v; want %q, %v", tt.field, got, ok, tt.want, tt.wantHit)
			}
		})
	}
}

func TestResolvePatternFallback(t *testing.T) {
	// "customer billing city" is not in the exact synonym list but matches
	// the looser pattern set.
	ds := ordersFixture(t)

	got, ok := Resolve(ds, nil, FieldCity)
	if !ok || got != "Customer_Billing_City" {
		t.Errorf("Resolve(city) = %q, %v; want Customer_Billing_City via pattern", got, ok)
	}
}

func TestResolveExplicitMappingWins(t *testing.T) {
	ds := ordersFixture(t)

	m := Mapping{FieldTotalAmount: "notes"}
	got, ok := Resolve(ds, m, FieldTotalAmount)
	if !ok || got != "notes" {
		t.Errorf("explicit mapping not honored: got %q, %v", got, ok)
	}

	// Stale mapping pointing at a removed column degrades to detection.
	m = Mapping{FieldTotalAmount: "gone"}
	got, ok = Resolve(ds, m, FieldTotalAmount)
	if !ok || got != "Grand Total" {
		t.Errorf("stale mapping should fall through: got %q, %v", got, ok)
	}
}

func TestResolveNumericGate(t *testing.T) {
	ds := dataset.New("orders.csv", dataset.TypeOrders, []string{"amount", "order_total"})
	ds.Rows = []dataset.Row{
		{dataset.Text("n/a"), dataset.Number(250)},
		{dataset.Text("pending"), dataset.Number(400)},
	}

	// "amount" matches first by name but holds no numbers, so resolution
	// moves on to the next candidate.
	got, ok := Resolve(ds, nil, FieldTotalAmount)
	if !ok || got != "order_total" {
		t.Errorf("Resolve(total_amount) = %q, %v; want order_total", got, ok)
	}
}

func TestResolveIdempotent(t *testing.T) {
	ds := ordersFixture(t)
	first, ok1 := Resolve(ds, nil, FieldTotalAmount)
	second, ok2 := Resolve(ds, nil, FieldTotalAmount)
	if first != second || ok1 != ok2 {
		t.Errorf("resolution not stable: %q/%v then %q/%v", first, ok1, second, ok2)
	}
}

func TestAutoMap(t *testing.T) {
	ds := ordersFixture(t)
	m := AutoMap(ds)

	if m[FieldOrderID] != "Order ID" {
		t.Errorf("order_id mapped to %q", m[FieldOrderID])
	}
	if m[FieldTotalAmount] != "Grand Total" {
		t.Errorf("total_amount mapped to %q", m[FieldTotalAmount])
	}
	if _, ok := m[FieldPaymentMethod]; ok {
		t.Error("payment_method should stay unmapped")
	}
}

func TestMappingStoreOverrides(t *testing.T) {
	store := NewMappingStore()
	store.PutAuto(dataset.TypeOrders, Mapping{FieldTotalAmount: "amount"})

	store.SetOverride(dataset.TypeOrders, FieldTotalAmount, "grand_total")
	m := store.Get(dataset.TypeOrders)
	if m[FieldTotalAmount] != "grand_total" {
		t.Errorf("override not applied: %q", m[FieldTotalAmount])
	}

	store.SetOverride(dataset.TypeOrders, FieldTotalAmount, "")
	m = store.Get(dataset.TypeOrders)
	if m[FieldTotalAmount] != "amount" {
		t.Errorf("cleared override should restore auto mapping: %q", m[FieldTotalAmount])
	}
}
