package analytics

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"datapulse/internal/dataset"
	"datapulse/internal/query"
	"datapulse/internal/schema"
)

func newAnalyzer(t *testing.T, sets ...*dataset.Dataset) *Analyzer {
	t.Helper()
	store := dataset.NewStore()
	mappings := schema.NewMappingStore()
	for _, ds := range sets {
		store.Put(ds)
		mappings.PutAuto(ds.Type, schema.AutoMap(ds))
	}
	a := NewAnalyzer(store, mappings)
	a.now = func() time.Time { return time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC) }
	return a
}

// mixedOrders builds 100 orders: 70 delivered summing to 140000, 20 RTO and
// 10 cancelled.
func mixedOrders(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds := dataset.New("orders.csv", dataset.TypeOrders, []string{
		"order_id", "total_amount", "order_status", "payment_method", "city", "order_date",
	})
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	add := func(i int, amount float64, status, payment, city string) {
		ds.Rows = append(ds.Rows, dataset.Row{
			dataset.Text(fmt.Sprintf("ORD%03d", i)),
			dataset.Number(amount),
			dataset.Text(status),
			dataset.Text(payment),
			dataset.Text(city),
			dataset.Timestamp(day.AddDate(0, 0, i%10)),
		})
	}
	i := 0
	for ; i < 70; i++ {
		add(i, 2000, dataset.StatusDelivered, dataset.PaymentCOD, "Mumbai")
	}
	for ; i < 90; i++ {
		add(i, 999, dataset.StatusRTO, dataset.PaymentUPI, "Delhi")
	}
	for ; i < 100; i++ {
		add(i, 5000, dataset.StatusCancelled, dataset.PaymentCard, "Pune")
	}
	return ds
}

func TestRevenueDeliveredOnly(t *testing.T) {
	a := newAnalyzer(t, mixedOrders(t))

	res, err := a.Revenue(query.Params{})
	if err != nil {
		t.Fatalf("Revenue() error: %v", err)
	}
	if res.Total != 140000 {
		t.Errorf("revenue = %v, want 140000", res.Total)
	}
	if res.DeliveredCount != 70 {
		t.Errorf("delivered count = %d, want 70", res.DeliveredCount)
	}
	if res.AOV != 2000 {
		t.Errorf("aov = %v, want 2000", res.AOV)
	}
}

func TestRevenueIgnoresNonDeliveredAmounts(t *testing.T) {
	ds := mixedOrders(t)
	a := newAnalyzer(t, ds)
	before, _ := a.Revenue(query.Params{})

	// Inflate every cancelled order.
	idx := ds.ColumnIndex("total_amount")
	statusIdx := ds.ColumnIndex("order_status")
	for _, row := range ds.Rows {
		if row[statusIdx].Display() == dataset.StatusCancelled {
			row[idx] = dataset.Number(999999)
		}
	}

	after, _ := a.Revenue(query.Params{})
	if before.Total != after.Total {
		t.Errorf("revenue moved with non-delivered amounts: %v vs %v", before.Total, after.Total)
	}
}

func TestRTORate(t *testing.T) {
	a := newAnalyzer(t, mixedOrders(t))

	res, err := a.RTORate(query.Params{})
	if err != nil {
		t.Fatalf("RTORate() error: %v", err)
	}
	want := 20.0 / 90.0 * 100
	if math.Abs(res.Rate-want) > 0.01 {
		t.Errorf("rto rate = %v, want %v", res.Rate, want)
	}
	if res.Base != 90 || res.RTOCount != 20 {
		t.Errorf("base = %d rto = %d, want 90/20", res.Base, res.RTOCount)
	}
}

func TestRTORateEmptyBase(t *testing.T) {
	ds := dataset.New("orders.csv", dataset.TypeOrders, []string{"order_id", "order_status"})
	ds.Rows = []dataset.Row{
		{dataset.Text("ORD1"), dataset.Text(dataset.StatusProcessing)},
		{dataset.Text("ORD2"), dataset.Text(dataset.StatusCancelled)},
	}
	a := newAnalyzer(t, ds)

	res, err := a.RTORate(query.Params{})
	if err != nil {
		t.Fatalf("RTORate() error: %v", err)
	}
	if res.Rate != 0 {
		t.Errorf("rate with empty base = %v, want 0", res.Rate)
	}
}

func TestBreakdownPercentages(t *testing.T) {
	a := newAnalyzer(t, mixedOrders(t))

	res, err := a.Breakdown("city", query.Params{Limit: 10})
	if err != nil {
		t.Fatalf("Breakdown() error: %v", err)
	}
	// Only delivered rows count, and they are all in Mumbai.
	if len(res.Groups) != 1 || res.Groups[0].Key != "Mumbai" {
		t.Fatalf("groups = %+v", res.Groups)
	}

	total := 0.0
	for _, g := range res.Groups {
		total += g.Pct
	}
	if math.Abs(total-100) > 0.01 {
		t.Errorf("percentages sum to %v, want 100", total)
	}
}

func TestBreakdownFallsBackWithoutDelivered(t *testing.T) {
	ds := dataset.New("orders.csv", dataset.TypeOrders, []string{"order_id", "total_amount", "order_status", "city"})
	ds.Rows = []dataset.Row{
		{dataset.Text("ORD1"), dataset.Number(100), dataset.Text(dataset.StatusProcessing), dataset.Text("Pune")},
		{dataset.Text("ORD2"), dataset.Number(300), dataset.Text(dataset.StatusShipped), dataset.Text("Surat")},
	}
	a := newAnalyzer(t, ds)

	res, err := a.Breakdown("city", query.Params{})
	if err != nil {
		t.Fatalf("Breakdown() error: %v", err)
	}
	if !res.UsedAllRows {
		t.Error("expected fallback to all rows")
	}
	if len(res.Groups) != 2 {
		t.Errorf("groups = %+v", res.Groups)
	}
}

func TestBreakdownLimitAndOrder(t *testing.T) {
	ds := dataset.New("orders.csv", dataset.TypeOrders, []string{"order_id", "total_amount", "order_status", "city"})
	cities := []struct {
		name   string
		amount float64
	}{
		{"Mumbai", 900}, {"Delhi", 700}, {"Pune", 500}, {"Surat", 300}, {"Jaipur", 100},
	}
	for i, c := range cities {
		ds.Rows = append(ds.Rows, dataset.Row{
			dataset.Text(fmt.Sprintf("ORD%d", i)),
			dataset.Number(c.amount),
			dataset.Text(dataset.StatusDelivered),
			dataset.Text(c.name),
		})
	}
	a := newAnalyzer(t, ds)

	res, err := a.Breakdown("city", query.Params{Limit: 3})
	if err != nil {
		t.Fatalf("Breakdown() error: %v", err)
	}
	if len(res.Groups) != 3 {
		t.Fatalf("groups = %d, want 3", len(res.Groups))
	}
	if res.Groups[0].Key != "Mumbai" || res.Groups[2].Key != "Pune" {
		t.Errorf("unexpected order: %+v", res.Groups)
	}

	// Shares are relative to the displayed three cities, not all five.
	wantTop := 900.0 / 2100.0 * 100
	if math.Abs(res.Groups[0].Pct-wantTop) > 0.01 {
		t.Errorf("top share = %v, want %v", res.Groups[0].Pct, wantTop)
	}
}

func TestCODvsPrepaid(t *testing.T) {
	ds := dataset.New("orders.csv", dataset.TypeOrders, []string{"order_id", "total_amount", "order_status", "payment_method"})
	payments := []string{"GPay", "PhonePe", "COD", "Cash"}
	for i, p := range payments {
		ds.Rows = append(ds.Rows, dataset.Row{
			dataset.Text(fmt.Sprintf("ORD%d", i)),
			dataset.Number(100),
			dataset.Text(dataset.StatusDelivered),
			dataset.Text(p),
		})
	}
	a := newAnalyzer(t, ds)

	res, err := a.CODvsPrepaid(query.Params{})
	if err != nil {
		t.Fatalf("CODvsPrepaid() error: %v", err)
	}
	if res.COD.Orders != 2 || res.Prepaid.Orders != 2 {
		t.Errorf("split = %d COD / %d prepaid, want 2/2", res.COD.Orders, res.Prepaid.Orders)
	}
	if res.COD.Revenue != 200 || res.Prepaid.Revenue != 200 {
		t.Errorf("revenue split = %v/%v", res.COD.Revenue, res.Prepaid.Revenue)
	}
	if res.COD.OrderPct != 50 {
		t.Errorf("cod order pct = %v", res.COD.OrderPct)
	}
}

func TestTopProductsMissingColumn(t *testing.T) {
	ds := dataset.New("orders.csv", dataset.TypeOrders, []string{"order_id", "total_amount", "order_status"})
	ds.Rows = []dataset.Row{
		{dataset.Text("ORD1"), dataset.Number(100), dataset.Text(dataset.StatusDelivered)},
	}
	a := newAnalyzer(t, ds)

	_, err := a.TopProducts(query.Params{Limit: 5})
	var colErr *MissingColumnError
	if !errors.As(err, &colErr) {
		t.Fatalf("error = %v, want MissingColumnError", err)
	}
	if len(colErr.Columns) == 0 {
		t.Error("error should carry a column sample")
	}
}

func TestTopProductsEnrichesIDs(t *testing.T) {
	orders := dataset.New("orders.csv", dataset.TypeOrders, []string{"order_id", "total_amount", "order_status", "product_id"})
	for i, pid := range []string{"P1", "P1", "P2"} {
		orders.Rows = append(orders.Rows, dataset.Row{
			dataset.Text(fmt.Sprintf("ORD%d", i)),
			dataset.Number(100 * float64(i+1)),
			dataset.Text(dataset.StatusDelivered),
			dataset.Text(pid),
		})
	}
	products := dataset.New("products.csv", dataset.TypeProducts, []string{"product_id", "product_name"})
	products.Rows = []dataset.Row{
		{dataset.Text("P1"), dataset.Text("Cotton Kurta")},
		{dataset.Text("P2"), dataset.Text("Linen Shirt")},
	}
	a := newAnalyzer(t, orders, products)

	res, err := a.TopProducts(query.Params{Limit: 5})
	if err != nil {
		t.Fatalf("TopProducts() error: %v", err)
	}
	if res.Groups[0].Key != "Linen Shirt" && res.Groups[0].Key != "Cotton Kurta" {
		t.Errorf("expected enriched names, got %+v", res.Groups)
	}
}

func TestAdsNoData(t *testing.T) {
	a := newAnalyzer(t)

	_, err := a.Ads()
	var dsErr *MissingDatasetError
	if !errors.As(err, &dsErr) {
		t.Fatalf("error = %v, want MissingDatasetError", err)
	}
}

func TestAdsZeroDenominators(t *testing.T) {
	meta := dataset.New("meta.csv", dataset.TypeAdsMeta, []string{"date", "adset", "spend", "impressions", "clicks", "conversions", "revenue"})
	meta.Rows = []dataset.Row{
		{dataset.Text("01/03/2024"), dataset.Text("Launch"), dataset.Number(5000), dataset.Number(0), dataset.Number(0), dataset.Number(0), dataset.Number(0)},
	}
	a := newAnalyzer(t, meta)

	res, err := a.Ads()
	if err != nil {
		t.Fatalf("Ads() error: %v", err)
	}
	if res.CTR != 0 || res.CPC != 0 || res.CPA != 0 || res.ROAS != 0 {
		t.Errorf("zero denominators should yield zero ratios: %+v", res)
	}
	if res.Spend != 5000 {
		t.Errorf("spend = %v, want 5000", res.Spend)
	}
}

func TestAdsAcrossPlatforms(t *testing.T) {
	meta := dataset.New("meta.csv", dataset.TypeAdsMeta, []string{"date", "adset", "spend", "impressions", "clicks", "conversions", "revenue"})
	meta.Rows = []dataset.Row{
		{dataset.Text("01/03/2024"), dataset.Text("A"), dataset.Number(1000), dataset.Number(10000), dataset.Number(200), dataset.Number(20), dataset.Number(4000)},
	}
	google := dataset.New("google.csv", dataset.TypeAdsGoogle, []string{"date", "ad_group", "cost", "impressions", "clicks", "conversions", "conversion_value"})
	google.Rows = []dataset.Row{
		{dataset.Text("01/03/2024"), dataset.Text("B"), dataset.Number(1000), dataset.Number(10000), dataset.Number(300), dataset.Number(30), dataset.Number(2000)},
	}
	a := newAnalyzer(t, meta, google)

	res, err := a.Ads()
	if err != nil {
		t.Fatalf("Ads() error: %v", err)
	}
	if res.Spend != 2000 || res.Revenue != 6000 {
		t.Errorf("totals = spend %v revenue %v", res.Spend, res.Revenue)
	}
	if res.ROAS != 3 {
		t.Errorf("roas = %v, want 3", res.ROAS)
	}
	want := 500.0 / 20000.0 * 100
	if math.Abs(res.CTR-want) > 0.001 {
		t.Errorf("ctr = %v, want %v", res.CTR, want)
	}
	if len(res.Platforms) != 2 {
		t.Errorf("platforms = %d, want 2", len(res.Platforms))
	}
}

func TestRevenueTrend(t *testing.T) {
	a := newAnalyzer(t, mixedOrders(t))

	res, err := a.RevenueTrend(query.Params{})
	if err != nil {
		t.Fatalf("RevenueTrend() error: %v", err)
	}
	if res.Days == 0 || len(res.Points) != res.Days {
		t.Fatalf("days = %d points = %d", res.Days, len(res.Points))
	}
	total := 0.0
	for _, pt := range res.Points {
		total += pt.Value
	}
	if total != 140000 {
		t.Errorf("trend total = %v, want 140000 (delivered only)", total)
	}
	for i := 1; i < len(res.Points); i++ {
		if res.Points[i].Date.Before(res.Points[i-1].Date) {
			t.Fatal("points not sorted by date")
		}
	}
}

func TestMissingOrdersDataset(t *testing.T) {
	a := newAnalyzer(t)

	_, err := a.Revenue(query.Params{})
	var dsErr *MissingDatasetError
	if !errors.As(err, &dsErr) {
		t.Fatalf("error = %v, want MissingDatasetError", err)
	}
	if dsErr.Type != dataset.TypeOrders {
		t.Errorf("missing type = %v, want orders", dsErr.Type)
	}
}

func TestSummaryAndMetrics(t *testing.T) {
	inv := dataset.New("inventory.csv", dataset.TypeInventory, []string{"sku", "product_name", "stock"})
	inv.Rows = []dataset.Row{
		{dataset.Text("P1"), dataset.Text("Kurta"), dataset.Number(4)},
		{dataset.Text("P2"), dataset.Text("Shirt"), dataset.Number(50)},
	}
	a := newAnalyzer(t, mixedOrders(t), inv)

	sum, err := a.Summary()
	if err != nil {
		t.Fatalf("Summary() error: %v", err)
	}
	if sum.TotalOrders != 100 || sum.Delivered != 70 || sum.RTO != 20 {
		t.Errorf("summary counts = %+v", sum)
	}
	if sum.Revenue != 140000 {
		t.Errorf("summary revenue = %v", sum.Revenue)
	}
	if sum.Inventory == nil || len(sum.Inventory.LowStock) != 1 {
		t.Errorf("inventory section = %+v", sum.Inventory)
	}

	m := a.Metrics()
	if math.Abs(m["rto_rate"]-22.22) > 0.01 {
		t.Errorf("metric rto_rate = %v", m["rto_rate"])
	}
	if m["revenue"] != 140000 {
		t.Errorf("metric revenue = %v", m["revenue"])
	}
	if m["cancellation_rate"] != 10 {
		t.Errorf("metric cancellation_rate = %v", m["cancellation_rate"])
	}
	if m["low_stock_items"] != 1 {
		t.Errorf("metric low_stock_items = %v", m["low_stock_items"])
	}
}

func TestTimeFilter(t *testing.T) {
	ds := dataset.New("orders.csv", dataset.TypeOrders, []string{"order_id", "total_amount", "order_status", "order_date"})
	add := func(id string, amount float64, day time.Time) {
		ds.Rows = append(ds.Rows, dataset.Row{
			dataset.Text(id), dataset.Number(amount),
			dataset.Text(dataset.StatusDelivered), dataset.Timestamp(day),
		})
	}
	add("ORD1", 100, time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)) // today
	add("ORD2", 200, time.Date(2024, 3, 19, 0, 0, 0, 0, time.UTC)) // yesterday
	add("ORD3", 400, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))  // long ago
	a := newAnalyzer(t, ds)

	res, err := a.Revenue(query.Params{TimeFilter: "today"})
	if err != nil {
		t.Fatalf("Revenue() error: %v", err)
	}
	if res.Total != 100 {
		t.Errorf("today revenue = %v, want 100", res.Total)
	}

	res, _ = a.Revenue(query.Params{TimeFilter: "month"})
	if res.Total != 300 {
		t.Errorf("month revenue = %v, want 300", res.Total)
	}

	res, _ = a.Revenue(query.Params{})
	if res.Total != 700 {
		t.Errorf("unfiltered revenue = %v, want 700", res.Total)
	}
}
