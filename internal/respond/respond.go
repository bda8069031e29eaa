// Package respond turns engine results into the presentation contract: a
// markdown content block, zero or more tables, an optional chart-ready
// series and an optional one-line insight. It owns every user-facing
// message, including the guidance shown when data or columns are missing,
// so the rest of the core never formats text.
package respond

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"datapulse/internal/analytics"
	"datapulse/internal/dataset"
	"datapulse/internal/query"
)

// ChartType tags how a series should be drawn.
type ChartType string

const (
	ChartNone ChartType = ""
	ChartBar  ChartType = "bar"
	ChartPie  ChartType = "pie"
	ChartLine ChartType = "line"
)

// Table is one tabular result, already formatted for display.
type Table struct {
	Title   string     `json:"title"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Series is a chart-ready label/value pairing.
type Series struct {
	Title  string    `json:"title"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// Response is what the presentation layer renders. Content is markdown.
type Response struct {
	Content   string    `json:"content"`
	Tables    []Table   `json:"tables,omitempty"`
	ChartData *Series   `json:"chart_data,omitempty"`
	ChartType ChartType `json:"chart_type,omitempty"`
	Insight   string    `json:"insight,omitempty"`
}

// Assembler answers queries end to end: classify, compute, format.
type Assembler struct {
	analyzer *analytics.Analyzer
	store    *dataset.Store
	logger   *slog.Logger
}

func NewAssembler(analyzer *analytics.Analyzer, store *dataset.Store, logger *slog.Logger) *Assembler {
	return &Assembler{analyzer: analyzer, store: store, logger: logger}
}

// Answer runs the full pipeline for one question. It never propagates a
// panic or error to the caller; everything degrades to a readable message.
func (a *Assembler) Answer(text string) (resp *Response) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("query pipeline panic", "query", text, "panic", r)
			resp = &Response{Content: "Something went wrong answering that. Try rephrasing, or check the loaded data in the dataset list."}
		}
	}()

	intent, params := query.Classify(text)
	a.logger.Debug("classified query", "intent", intent, "limit", params.Limit, "time_filter", params.TimeFilter)

	switch intent {
	case query.IntentAds:
		return a.ads(params)
	case query.IntentBreakdown:
		return a.breakdown(params)
	case query.IntentSummary:
		return a.summary()
	case query.IntentRevenueTrend:
		return a.revenueTrend(params)
	case query.IntentRevenue:
		return a.revenue(params)
	case query.IntentAOV:
		return a.aov(params)
	case query.IntentRTO:
		return a.rto(params)
	case query.IntentCODPrepaid:
		return a.codVsPrepaid(params)
	case query.IntentTopProducts:
		return a.topProducts(params)
	case query.IntentTopCustomers:
		return a.topCustomers(params)
	case query.IntentCustomers:
		return a.customers(params)
	case query.IntentInventory:
		return a.inventory()
	case query.IntentTrend:
		return a.ordersTrend(params)
	case query.IntentOrders:
		return a.orders(params)
	default:
		return a.helpMenu()
	}
}

// guidance converts the engine's typed errors into actionable messages.
func (a *Assembler) guidance(err error) *Response {
	var dsErr *analytics.MissingDatasetError
	if errors.As(err, &dsErr) {
		var b strings.Builder
		fmt.Fprintf(&b, "## %s Data Needed\n\n", dsErr.Type.Label())
		fmt.Fprintf(&b, "I don't have any %s data loaded, which this question needs.\n\n", strings.ToLower(dsErr.Type.Label()))

		infos := a.store.List()
		if len(infos) == 0 {
			b.WriteString("No datasets are loaded yet. Upload a CSV export to get started.\n")
		} else {
			b.WriteString("Currently loaded:\n")
			for _, info := range infos {
				fmt.Fprintf(&b, "- **%s** (%s rows)\n", info.Label, FormatCount(info.Rows))
			}
			fmt.Fprintf(&b, "\nUpload a %s export and ask again.\n", strings.ToLower(dsErr.Type.Label()))
		}
		return &Response{Content: b.String()}
	}

	var colErr *analytics.MissingColumnError
	if errors.As(err, &colErr) {
		var b strings.Builder
		b.WriteString("## Column Not Found\n\n")
		fmt.Fprintf(&b, "I couldn't find a **%s** column in the data.\n\n", colErr.Field)
		if len(colErr.Columns) > 0 {
			b.WriteString("Columns I can see:\n")
			for _, c := range colErr.Columns {
				fmt.Fprintf(&b, "- `%s`\n", c)
			}
			b.WriteString("\nSet a column mapping if one of these holds that data.\n")
		}
		return &Response{Content: b.String()}
	}

	a.logger.Error("query failed", "error", err)
	return &Response{Content: "Something went wrong answering that. Try rephrasing the question."}
}

func (a *Assembler) revenue(p query.Params) *Response {
	res, err := a.analyzer.Revenue(p)
	if err != nil {
		return a.guidance(err)
	}

	content := fmt.Sprintf("## Revenue Analysis\n\n**Total Revenue: %s** across %s delivered orders.",
		FormatINR(res.Total), FormatCount(res.DeliveredCount))

	table := Table{
		Title:   "Key Metrics",
		Columns: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Total Revenue", FormatINR(res.Total)},
			{"Average Order Value", FormatINR(res.AOV)},
			{"Highest Order", FormatINR(res.MaxOrder)},
			{"Lowest Order", FormatINR(res.MinOrder)},
			{"Delivered Orders", FormatCount(res.DeliveredCount)},
		},
	}

	resp := &Response{
		Content: content,
		Tables:  []Table{table},
		Insight: "Revenue counts delivered orders only, so cancellations and returns never inflate it.",
	}
	if len(res.ByPayment) > 0 {
		resp.ChartType = ChartBar
		resp.ChartData = groupSeries("Revenue by Payment Method", res.ByPayment)
	}
	return resp
}

func (a *Assembler) aov(p query.Params) *Response {
	res, err := a.analyzer.AOV(p)
	if err != nil {
		return a.guidance(err)
	}
	return &Response{
		Content: fmt.Sprintf("## Average Order Value\n\n**AOV: %s** over %s delivered orders (total %s).",
			FormatINR(res.AOV), FormatCount(res.DeliveredCount), FormatINR(res.Total)),
	}
}

func (a *Assembler) rto(p query.Params) *Response {
	res, byCity, err := a.analyzer.RTOByCity(p)
	if err != nil {
		if res == nil {
			return a.guidance(err)
		}
		// Overall rate still computed, only the city ranking is unavailable.
		byCity = nil
	}

	content := fmt.Sprintf("## RTO Analysis\n\n**RTO Rate: %s** (%s RTO out of %s shipped orders).",
		FormatPercent(res.Rate), FormatCount(res.RTOCount), FormatCount(res.Base))

	resp := &Response{
		Content: content,
		Insight: "RTO rate = RTO / (Delivered + RTO) x 100.",
	}
	if len(res.ByPayment) > 0 {
		t := Table{Title: "RTO by Payment Method", Columns: []string{"Payment Method", "RTO Rate", "RTO Orders", "Base"}}
		series := &Series{Title: "RTO Rate by Payment Method"}
		for _, g := range res.ByPayment {
			t.Rows = append(t.Rows, []string{g.Key, FormatPercent(g.Rate), FormatCount(g.RTOCount), FormatCount(g.Base)})
			series.Labels = append(series.Labels, g.Key)
			series.Values = append(series.Values, g.Rate)
		}
		resp.Tables = []Table{t}
		resp.ChartType = ChartBar
		resp.ChartData = series
	}
	if len(byCity) > 0 {
		t := Table{Title: "Highest RTO Cities", Columns: []string{"City", "RTO Rate", "RTO Orders", "Base"}}
		for _, g := range byCity {
			t.Rows = append(t.Rows, []string{g.Key, FormatPercent(g.Rate), FormatCount(g.RTOCount), FormatCount(g.Base)})
		}
		resp.Tables = append(resp.Tables, t)
	}
	return resp
}

func (a *Assembler) codVsPrepaid(p query.Params) *Response {
	res, err := a.analyzer.CODvsPrepaid(p)
	if err != nil {
		return a.guidance(err)
	}

	t := Table{
		Title:   "COD vs Prepaid",
		Columns: []string{"Type", "Orders", "Share", "Revenue", "AOV", "RTO Rate"},
		Rows: [][]string{
			{"COD", FormatCount(res.COD.Orders), FormatPercent(res.COD.OrderPct),
				FormatINR(res.COD.Revenue), FormatINR(res.COD.AOV), FormatPercent(res.COD.RTORate)},
			{"Prepaid", FormatCount(res.Prepaid.Orders), FormatPercent(res.Prepaid.OrderPct),
				FormatINR(res.Prepaid.Revenue), FormatINR(res.Prepaid.AOV), FormatPercent(res.Prepaid.RTORate)},
		},
	}

	insight := ""
	if res.COD.RTORate > res.Prepaid.RTORate {
		insight = "COD orders return to origin more often than prepaid ones here."
	}
	return &Response{
		Content: fmt.Sprintf("## COD vs Prepaid\n\nCOD takes %s of orders and %s of delivered revenue.",
			FormatPercent(res.COD.OrderPct), FormatPercent(res.COD.RevenuePct)),
		Tables:    []Table{t},
		ChartType: ChartPie,
		ChartData: &Series{
			Title:  "Order Split",
			Labels: []string{"COD", "Prepaid"},
			Values: []float64{float64(res.COD.Orders), float64(res.Prepaid.Orders)},
		},
		Insight: insight,
	}
}

func (a *Assembler) breakdown(p query.Params) *Response {
	res, err := a.analyzer.Breakdown(p.Dimension, p)
	if err != nil {
		return a.guidance(err)
	}
	return a.groupedResponse(fmt.Sprintf("Revenue by %s", titleWord(res.Dimension)), res)
}

func (a *Assembler) topProducts(p query.Params) *Response {
	res, err := a.analyzer.TopProducts(p)
	if err != nil {
		return a.guidance(err)
	}
	return a.groupedResponse(fmt.Sprintf("Top %d Products", len(res.Groups)), res)
}

func (a *Assembler) topCustomers(p query.Params) *Response {
	res, err := a.analyzer.TopCustomers(p)
	if err != nil {
		return a.guidance(err)
	}
	return a.groupedResponse(fmt.Sprintf("Top %d Customers", len(res.Groups)), res)
}

func (a *Assembler) groupedResponse(title string, res *analytics.BreakdownResult) *Response {
	t := Table{
		Title:   title,
		Columns: []string{titleWord(res.Dimension), "Revenue", "Orders", "Share"},
	}
	for _, g := range res.Groups {
		t.Rows = append(t.Rows, []string{g.Key, FormatINR(g.Sum), FormatCount(g.Count), FormatPercent(g.Pct)})
	}

	content := fmt.Sprintf("## %s\n\nRanked by delivered revenue.", title)
	insight := ""
	if res.UsedAllRows {
		insight = "No orders carry a Delivered status, so all orders were counted."
	} else if len(res.Groups) > 0 {
		top := res.Groups[0]
		insight = fmt.Sprintf("%s leads with %s (%s of the shown total).", top.Key, FormatINR(top.Sum), FormatPercent(top.Pct))
	}

	return &Response{
		Content:   content,
		Tables:    []Table{t},
		ChartType: ChartBar,
		ChartData: groupSeries(title, res.Groups),
		Insight:   insight,
	}
}

func (a *Assembler) revenueTrend(p query.Params) *Response {
	res, err := a.analyzer.RevenueTrend(p)
	if err != nil {
		return a.guidance(err)
	}
	return trendResponse("Revenue Trend", res, FormatINR)
}

func (a *Assembler) ordersTrend(p query.Params) *Response {
	res, err := a.analyzer.OrdersTrend(p)
	if err != nil {
		return a.guidance(err)
	}
	return trendResponse("Orders Trend", res, func(v float64) string { return FormatCount(int(v)) })
}

func trendResponse(title string, res *analytics.TrendResult, format func(float64) string) *Response {
	series := &Series{Title: title}
	for _, pt := range res.Points {
		series.Labels = append(series.Labels, pt.Date.Format("2006-01-02"))
		series.Values = append(series.Values, pt.Value)
	}
	return &Response{
		Content: fmt.Sprintf("## %s\n\nDaily average %s over %d days; best day %s.",
			title, format(res.Average), res.Days, format(res.Best)),
		ChartType: ChartLine,
		ChartData: series,
	}
}

func (a *Assembler) orders(p query.Params) *Response {
	res, err := a.analyzer.OrderCount(p)
	if err != nil {
		return a.guidance(err)
	}

	resp := &Response{
		Content: fmt.Sprintf("## Orders\n\n**%s orders** in total.", FormatCount(res.Total)),
	}
	if len(res.ByStatus) > 0 {
		t := Table{Title: "Orders by Status", Columns: []string{"Status", "Orders", "Share"}}
		series := &Series{Title: "Order Status Distribution"}
		for _, g := range res.ByStatus {
			t.Rows = append(t.Rows, []string{g.Key, FormatCount(g.Count), FormatPercent(g.Pct)})
			series.Labels = append(series.Labels, g.Key)
			series.Values = append(series.Values, float64(g.Count))
		}
		resp.Tables = []Table{t}
		resp.ChartType = ChartPie
		resp.ChartData = series
	}
	return resp
}

func (a *Assembler) customers(p query.Params) *Response {
	res, err := a.analyzer.Customers(p)
	if err != nil {
		return a.guidance(err)
	}

	var b strings.Builder
	b.WriteString("## Customer Analysis\n\n")
	if res.TotalCustomers > 0 {
		fmt.Fprintf(&b, "- **Total Customers:** %s\n", FormatCount(res.TotalCustomers))
	}
	if res.UniqueBuyers > 0 {
		fmt.Fprintf(&b, "- **Unique Buyers (orders):** %s\n", FormatCount(res.UniqueBuyers))
		fmt.Fprintf(&b, "- **Repeat Buyers:** %s (%s)\n", FormatCount(res.RepeatBuyers), FormatPercent(res.RepeatRate))
	}
	if res.TotalLifetime > 0 {
		fmt.Fprintf(&b, "- **Average Lifetime Value:** %s\n", FormatINR(res.AverageLifetime))
		fmt.Fprintf(&b, "- **Total Lifetime Value:** %s\n", FormatINR(res.TotalLifetime))
	}
	return &Response{Content: b.String()}
}

func (a *Assembler) inventory() *Response {
	res, err := a.analyzer.InventorySummary()
	if err != nil {
		return a.guidance(err)
	}

	resp := &Response{
		Content: fmt.Sprintf("## Inventory\n\n**%s SKUs** holding %s units; %s below their reorder point.",
			FormatCount(res.SKUs), FormatCount(int(res.TotalUnits)), FormatCount(len(res.LowStock))),
	}
	if len(res.LowStock) > 0 {
		t := Table{Title: "Low Stock", Columns: []string{"Item", "Units Left"}}
		for _, item := range res.LowStock {
			t.Rows = append(t.Rows, []string{item.Name, FormatCount(int(item.Units))})
		}
		resp.Tables = []Table{t}
		resp.Insight = fmt.Sprintf("%s is closest to running out.", res.LowStock[0].Name)
	}
	return resp
}

func (a *Assembler) summary() *Response {
	res, err := a.analyzer.Summary()
	if err != nil {
		return a.guidance(err)
	}

	var b strings.Builder
	b.WriteString("## Business Summary\n\n")
	if res.TotalOrders > 0 {
		b.WriteString("### Orders\n")
		fmt.Fprintf(&b, "- **Total Orders:** %s\n", FormatCount(res.TotalOrders))
		fmt.Fprintf(&b, "- **Delivered:** %s\n", FormatCount(res.Delivered))
		fmt.Fprintf(&b, "- **RTO:** %s\n", FormatCount(res.RTO))
		fmt.Fprintf(&b, "- **Revenue:** %s\n", FormatINR(res.Revenue))
		fmt.Fprintf(&b, "- **AOV:** %s\n", FormatINR(res.AOV))
		fmt.Fprintf(&b, "- **RTO Rate:** %s\n\n", FormatPercent(res.RTORate))
	}
	if res.TotalCustomers > 0 {
		fmt.Fprintf(&b, "### Customers\n- **Total Customers:** %s\n\n", FormatCount(res.TotalCustomers))
	}
	if res.TotalProducts > 0 {
		fmt.Fprintf(&b, "### Products\n- **Total Products:** %s\n\n", FormatCount(res.TotalProducts))
	}
	if res.Inventory != nil {
		fmt.Fprintf(&b, "### Inventory\n- **SKUs:** %s\n- **Total Stock:** %s\n- **Low Stock Items:** %s\n",
			FormatCount(res.Inventory.SKUs), FormatCount(int(res.Inventory.TotalUnits)), FormatCount(len(res.Inventory.LowStock)))
	}

	resp := &Response{Content: b.String()}
	if len(res.StatusCounts) > 0 {
		series := &Series{Title: "Order Status Distribution"}
		for _, g := range res.StatusCounts {
			series.Labels = append(series.Labels, g.Key)
			series.Values = append(series.Values, float64(g.Count))
		}
		resp.ChartType = ChartPie
		resp.ChartData = series
	}
	return resp
}

func (a *Assembler) ads(p query.Params) *Response {
	res, err := a.analyzer.Ads()
	if err != nil {
		return a.guidance(err)
	}

	switch p.AdsMetric {
	case "roas":
		insight := "ROAS above 3x is typically profitable for e-commerce."
		if res.ROAS < 3 {
			insight = "ROAS below 3x usually needs creative or targeting work."
		}
		return &Response{
			Content: fmt.Sprintf("## ROAS\n\n**Overall ROAS: %s**: every ₹1 of ad spend returns %s in revenue (spend %s, revenue %s).",
				FormatMultiple(res.ROAS), FormatINR(res.ROAS), FormatINR(res.Spend), FormatINR(res.Revenue)),
			Insight: insight,
		}
	case "ctr":
		return &Response{
			Content: fmt.Sprintf("## CTR\n\n**Overall CTR: %.2f%%** (%s clicks from %s impressions).",
				res.CTR, FormatCount(int(res.Clicks)), FormatCount(int(res.Impressions))),
		}
	case "cpc":
		return &Response{
			Content: fmt.Sprintf("## CPC\n\n**Average CPC: %s** (%s spend over %s clicks).",
				FormatINR(res.CPC), FormatINR(res.Spend), FormatCount(int(res.Clicks))),
		}
	case "cpa":
		return &Response{
			Content: fmt.Sprintf("## CPA\n\n**Cost per Acquisition: %s** (%s spend over %s conversions).",
				FormatINR(res.CPA), FormatINR(res.Spend), FormatCount(int(res.Conversions))),
		}
	case "spend":
		resp := &Response{
			Content: fmt.Sprintf("## Ad Spend\n\n**Total Ad Spend: %s** across %d platforms.", FormatINR(res.Spend), len(res.Platforms)),
		}
		if len(res.Platforms) > 1 {
			t := Table{Title: "Spend by Platform", Columns: []string{"Platform", "Spend", "Share"}}
			series := &Series{Title: "Spend by Platform"}
			for _, pl := range res.Platforms {
				share := 0.0
				if res.Spend > 0 {
					share = pl.Spend / res.Spend * 100
				}
				t.Rows = append(t.Rows, []string{pl.Label, FormatINR(pl.Spend), FormatPercent(share)})
				series.Labels = append(series.Labels, pl.Label)
				series.Values = append(series.Values, pl.Spend)
			}
			resp.Tables = []Table{t}
			resp.ChartType = ChartPie
			resp.ChartData = series
		}
		return resp
	default:
		t := Table{
			Title:   "Advertising Overview",
			Columns: []string{"Metric", "Value"},
			Rows: [][]string{
				{"Total Ad Spend", FormatINR(res.Spend)},
				{"Impressions", FormatCount(int(res.Impressions))},
				{"Clicks", FormatCount(int(res.Clicks))},
				{"Conversions", FormatCount(int(res.Conversions))},
				{"Ad Revenue", FormatINR(res.Revenue)},
				{"CTR", fmt.Sprintf("%.2f%%", res.CTR)},
				{"CPC", FormatINR(res.CPC)},
				{"CPA", FormatINR(res.CPA)},
				{"ROAS", FormatMultiple(res.ROAS)},
			},
		}
		return &Response{
			Content: fmt.Sprintf("## Advertising Performance\n\n**%s spent** for **%s in attributed revenue** (%s ROAS).",
				FormatINR(res.Spend), FormatINR(res.Revenue), FormatMultiple(res.ROAS)),
			Tables: []Table{t},
		}
	}
}

// helpMenu is the answer for anything the classifier cannot place.
func (a *Assembler) helpMenu() *Response {
	return &Response{
		Content: `## Here's What You Can Ask

**Revenue and orders**
- "What is my revenue this month?"
- "Show revenue trend"
- "How many orders?"

**Returns and payments**
- "What is my RTO rate?"
- "COD vs prepaid performance"

**Rankings and breakdowns**
- "Top 5 products"
- "Top customers"
- "Revenue by city"

**Advertising**
- "What is my ROAS?"
- "Ad spend by platform"

**Everything at once**
- "Give me a business summary"`,
	}
}

func groupSeries(title string, groups []analytics.Group) *Series {
	s := &Series{Title: title}
	for _, g := range groups {
		s.Labels = append(s.Labels, g.Key)
		s.Values = append(s.Values, g.Sum)
	}
	return s
}

func titleWord(s string) string {
	if s == "" {
		return "Dimension"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
