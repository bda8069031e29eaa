// Package query classifies free-text questions into analysis intents.
// Matching is ordered keyword spotting over the lower-cased query; the first
// rule whose keyword groups all hit wins, so the table's order encodes
// precedence for overlapping vocabulary. Classification is pure and
// deterministic: the same text always yields the same intent and parameters.
package query

import (
	"regexp"
	"strconv"
	"strings"
)

// Intent tags which analysis a query asks for.
type Intent string

const (
	IntentAds          Intent = "ads"
	IntentBreakdown    Intent = "breakdown"
	IntentSummary      Intent = "summary"
	IntentRevenueTrend Intent = "revenue_trend"
	IntentRevenue      Intent = "revenue"
	IntentAOV          Intent = "aov"
	IntentRTO          Intent = "rto_rate"
	IntentCODPrepaid   Intent = "cod_vs_prepaid"
	IntentTopProducts  Intent = "top_products"
	IntentTopCustomers Intent = "top_customers"
	IntentCustomers    Intent = "customers"
	IntentInventory    Intent = "inventory"
	IntentTrend        Intent = "trend"
	IntentOrders       Intent = "orders"
	IntentUnknown      Intent = "unknown"
)

// Params carries everything extracted from the query besides the intent.
type Params struct {
	// Limit is the first integer in the query, 10 when absent. Top-N
	// intents read it; others ignore it.
	Limit int
	// TimeFilter is a coarse window tag (today, yesterday, week, month,
	// 7days, 30days) or empty. Consumers turn it into a date range.
	TimeFilter string
	// Dimension is the explicit group-by dimension for breakdown intents:
	// city, state, category, payment, product, customer or status.
	Dimension string
	// AdsMetric picks the ratio for ads intents: roas, ctr, cpc, cpa,
	// spend or overview.
	AdsMetric string
}

// rule fires when every keyword group has at least one hit in the query.
type rule struct {
	intent Intent
	groups [][]string
}

var (
	adsWords = []string{
		"ads", " ad ", "advertising", "campaign", "marketing", "roas", "ctr", "cpc", "cpa",
		"impression", "ad spend", "meta", "facebook", "instagram", "google ads", "ppc",
		"return on ad spend", "click through", "click rate", "cost per click",
		"cost per acquisition", "cost per conversion", "conversion",
	}
	trendWords     = []string{"trend", "over time", "daily", "weekly", "monthly", "growth"}
	revenueWords   = []string{"revenue", "sales", "income", "earning", "money", "total amount"}
	productWords   = []string{"product", "item", "sku", "best selling"}
	customerWords  = []string{"customer", "buyer", "client"}
	topWords       = []string{"top", "best", "highest", "most"}
	breakdownWords = []string{"breakdown", "break down", "split", " by ", "segment", "group"}
)

// rules is the precedence table. Ads metrics outrank everything because ad
// vocabulary ("campaign roas by month") freely collides with breakdown and
// trend words; breakdown outranks single metrics; compound intents come
// before their components.
var rules = []rule{
	{IntentAds, [][]string{adsWords}},
	{IntentBreakdown, [][]string{breakdownWords}},
	{IntentSummary, [][]string{{"summary", "overview", "dashboard", "all data", "how is my business"}}},
	{IntentRevenueTrend, [][]string{revenueWords, trendWords}},
	{IntentBreakdown, [][]string{revenueWords, {"city", "state", "category", "location"}}},
	{IntentRevenue, [][]string{revenueWords}},
	{IntentAOV, [][]string{{"aov", "average order", "avg order", "mean order"}}},
	{IntentRTO, [][]string{{"rto", "return"}}},
	{IntentCODPrepaid, [][]string{{"cod", "cash on delivery", "cash payment", "prepaid", "online payment", "paid online"}}},
	{IntentTopProducts, [][]string{productWords, topWords}},
	{IntentBreakdown, [][]string{productWords}},
	{IntentTopCustomers, [][]string{customerWords, topWords}},
	{IntentCustomers, [][]string{customerWords}},
	{IntentInventory, [][]string{{"inventory", "stock", "warehouse"}}},
	{IntentBreakdown, [][]string{{"city", "location", "region", "area", "geographic", "state", "province", "category", "categories", "payment", "status"}}},
	{IntentTrend, [][]string{trendWords}},
	{IntentOrders, [][]string{{"order", "transaction", "purchase"}}},
}

// dimensionWords maps query vocabulary onto breakdown dimensions, checked
// in declaration order so the more specific word wins.
var dimensionWords = []struct {
	dimension string
	words     []string
}{
	{"city", []string{"city", "location", "region", "area", "geographic"}},
	{"state", []string{"state", "province"}},
	{"category", []string{"category", "categories"}},
	{"payment", []string{"payment"}},
	{"status", []string{"status"}},
	{"product", []string{"product", "item", "sku"}},
	{"customer", []string{"customer", "buyer", "client"}},
}

var firstInteger = regexp.MustCompile(`\d+`)

// Classify maps a raw question to an intent plus extracted parameters.
func Classify(text string) (Intent, Params) {
	q := " " + strings.ToLower(strings.TrimSpace(text)) + " "

	params := Params{Limit: 10}
	if m := firstInteger.FindString(q); m != "" {
		if n, err := strconv.Atoi(m); err == nil && n > 0 {
			params.Limit = n
		}
	}
	params.TimeFilter = timeFilter(q)

	for _, r := range rules {
		if matches(q, r.groups) {
			switch r.intent {
			case IntentBreakdown:
				params.Dimension = dimension(q)
			case IntentAds:
				params.AdsMetric = adsMetric(q)
			}
			return r.intent, params
		}
	}
	return IntentUnknown, params
}

func matches(q string, groups [][]string) bool {
	for _, group := range groups {
		hit := false
		for _, kw := range group {
			if strings.Contains(q, kw) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

func timeFilter(q string) string {
	switch {
	case strings.Contains(q, "today"):
		return "today"
	case strings.Contains(q, "yesterday"):
		return "yesterday"
	case strings.Contains(q, "last 7 days"):
		return "7days"
	case strings.Contains(q, "last 30 days"):
		return "30days"
	case strings.Contains(q, "week"):
		return "week"
	case strings.Contains(q, "month"):
		return "month"
	default:
		return ""
	}
}

func dimension(q string) string {
	for _, d := range dimensionWords {
		for _, w := range d.words {
			if strings.Contains(q, w) {
				return d.dimension
			}
		}
	}
	return ""
}

func adsMetric(q string) string {
	switch {
	case strings.Contains(q, "roas") || strings.Contains(q, "return on ad spend"):
		return "roas"
	case strings.Contains(q, "ctr") || strings.Contains(q, "click through") || strings.Contains(q, "click rate"):
		return "ctr"
	case strings.Contains(q, "cpc") || strings.Contains(q, "cost per click"):
		return "cpc"
	case strings.Contains(q, "cpa") || strings.Contains(q, "cost per acquisition") || strings.Contains(q, "cost per conversion"):
		return "cpa"
	case strings.Contains(q, "spend") || strings.Contains(q, "budget") || strings.Contains(q, "cost"):
		return "spend"
	default:
		return "overview"
	}
}
