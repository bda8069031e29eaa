package cleaning

import (
	"testing"
	"time"

	"datapulse/internal/dataset"
)

func rawOrders(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds := dataset.New("orders.csv", dataset.TypeOrders, []string{
		"order_id", "total_amount", "order_status", "payment_method",
		"order_date", "quantity", "customer_email", "phone",
	})
	ds.Rows = []dataset.Row{
		{dataset.Text("ORD1"), dataset.Text("₹1,499"), dataset.Text("delivered"), dataset.Text("gpay"),
			dataset.Text("15/03/2024"), dataset.Text("2"), dataset.Text(" Asha@Example.COM "), dataset.Text("+91 98765-43210")},
		{dataset.Text("ORD2"), dataset.Text("Rs. 250"), dataset.Text("rto"), dataset.Text("cash on delivery"),
			dataset.Text("2024-03-16"), dataset.Missing(), dataset.Missing(), dataset.Text("(022) 1234 5678")},
		{dataset.Text("ORD3"), dataset.Text("n/a"), dataset.Missing(), dataset.Text("COD"),
			dataset.Text("garbage"), dataset.Text("3"), dataset.Missing(), dataset.Missing()},
	}
	return ds
}

func TestNormalizeValues(t *testing.T) {
	clean, report := Normalize(rawOrders(t))

	if got := clean.Cell(0, "total_amount"); got.Kind != dataset.KindNumber || got.Num != 1499 {
		t.Errorf("amount[0] = %+v, want 1499", got)
	}
	if got := clean.Cell(1, "total_amount"); got.Num != 250 {
		t.Errorf("amount[1] = %+v, want 250", got)
	}
	if got := clean.Cell(2, "total_amount"); !got.IsMissing() {
		t.Errorf("unparseable amount should be missing, got %+v", got)
	}

	if got := clean.Cell(0, "order_status").Display(); got != dataset.StatusDelivered {
		t.Errorf("status[0] = %q", got)
	}
	if got := clean.Cell(2, "order_status").Display(); got != dataset.StatusUnknown {
		t.Errorf("missing status should become Unknown, got %q", got)
	}

	if got := clean.Cell(0, "payment_method").Display(); got != dataset.PaymentUPI {
		t.Errorf("payment[0] = %q", got)
	}
	if got := clean.Cell(1, "payment_method").Display(); got != dataset.PaymentCOD {
		t.Errorf("payment[1] = %q", got)
	}

	want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	if got, ok := clean.Cell(0, "order_date").AsTime(); !ok || !got.Equal(want) {
		t.Errorf("date[0] = %v, %v; want %v (day first)", got, ok, want)
	}
	if !clean.Cell(2, "order_date").IsMissing() {
		t.Error("unparseable date should be missing")
	}

	if got := clean.Cell(1, "quantity"); got.Kind != dataset.KindNumber || got.Num != 0 {
		t.Errorf("missing quantity should become 0, got %+v", got)
	}
	if got := clean.Cell(2, "quantity").Num; got != 3 {
		t.Errorf("quantity[2] = %v", got)
	}

	if got := clean.Cell(0, "customer_email").Display(); got != "asha@example.com" {
		t.Errorf("email[0] = %q", got)
	}
	if got := clean.Cell(0, "phone").Display(); got != "+919876543210" {
		t.Errorf("phone[0] = %q", got)
	}
	if got := clean.Cell(1, "phone").Display(); got != "02212345678" {
		t.Errorf("phone[1] = %q", got)
	}

	if len(report) == 0 {
		t.Error("expected a non-empty change report")
	}
}

func TestNormalizeRowPruning(t *testing.T) {
	ds := dataset.New("orders.csv", dataset.TypeOrders, []string{"order_id", "total_amount"})
	ds.Rows = []dataset.Row{
		{dataset.Text("ORD1"), dataset.Text("100")},
		{dataset.Missing(), dataset.Missing()},
		{dataset.Text("ORD1"), dataset.Text("100")},
		{dataset.Text("ORD2"), dataset.Text("200")},
	}

	clean, _ := Normalize(ds)
	if clean.Len() != 2 {
		t.Errorf("rows after pruning = %d, want 2", clean.Len())
	}
	// Input untouched.
	if ds.Len() != 4 {
		t.Errorf("input mutated: %d rows", ds.Len())
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	once, _ := Normalize(rawOrders(t))
	twice, _ := Normalize(once)

	if twice.Len() != once.Len() {
		t.Fatalf("second pass changed row count: %d vs %d", twice.Len(), once.Len())
	}
	for i := range once.Rows {
		for _, col := range once.Columns {
			a, b := once.Cell(i, col), twice.Cell(i, col)
			if a.Display() != b.Display() || a.Kind != b.Kind {
				t.Errorf("row %d column %s changed on second pass: %+v vs %+v", i, col, a, b)
			}
		}
	}
}

func TestNormalizeKeepsUnrecognizedStatusText(t *testing.T) {
	ds := dataset.New("orders.csv", dataset.TypeOrders, []string{"order_id", "order_status"})
	ds.Rows = []dataset.Row{
		{dataset.Text("ORD1"), dataset.Text("awaiting pickup")},
		{dataset.Text("ORD2"), dataset.Missing()},
	}

	clean, _ := Normalize(ds)
	if got := clean.Cell(0, "order_status").Display(); got != "Awaiting Pickup" {
		t.Errorf("unrecognized status = %q, want title-cased original", got)
	}
	if got := clean.Cell(1, "order_status").Display(); got != dataset.StatusUnknown {
		t.Errorf("missing status = %q, want Unknown", got)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		column string
		want   rule
	}{
		{"total_amount", ruleMoney},
		{"Ad Spend", ruleMoney},
		{"qty", ruleQuantity},
		{"stock_on_hand", ruleQuantity},
		{"created_at", ruleDate},
		{"customer_email", ruleEmail},
		{"mobile", rulePhone},
		{"payment_mode", rulePayment},
		{"delivery_status", ruleStatus},
		{"notes", ruleNone},
	}

	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			if got := classify(tt.column); got != tt.want {
				t.Errorf("classify(%q) = %v, want %v", tt.column, got, tt.want)
			}
		})
	}
}

func TestParseDayFirst(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"15/03/2024", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"5/3/2024", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"5-3-2024", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"2024-03-15", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"15 Mar 2024", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"not a date", time.Time{}, false},
		{"", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseDayFirst(tt.in)
			if ok != tt.ok || (ok && !got.Equal(tt.want)) {
				t.Errorf("parseDayFirst(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}
