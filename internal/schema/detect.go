package schema

import (
	"strings"

	"datapulse/internal/dataset"
)

// typeKeywords scores how strongly a set of column names suggests each
// dataset type. Matching is substring search over the joined, normalized
// column names.
var typeKeywords = map[dataset.Type][]string{
	dataset.TypeOrders:     {"order", "transaction", "sale", "purchase", "invoice", "shipment", "delivery", "cod", "prepaid", "rto"},
	dataset.TypeCustomers:  {"customer", "client", "user", "member", "subscriber", "buyer", "contact", "email", "phone"},
	dataset.TypeProducts:   {"product", "item", "sku", "catalog", "merchandise", "goods", "variant", "category"},
	dataset.TypeInventory:  {"inventory", "stock", "warehouse", "quantity", "available", "reserved", "reorder"},
	dataset.TypeAdsMeta:    {"facebook", "instagram", "meta", "fb ", "ig ", "reach", "cpm", "ad set", "adset"},
	dataset.TypeAdsGoogle:  {"google ads", "adwords", "search term", "quality score", "ad group", "ppc"},
	dataset.TypeAdsShopify: {"shopify marketing", "shop campaign", "shopify ad", "shopify ads"},
}

// DetectType guesses the dataset type from column names alone. Confidence is
// the fraction of the winning type's keywords that appeared; below 0.1 the
// guess falls back to orders, the most common upload.
func DetectType(columns []string) (dataset.Type, float64) {
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = normalizeName(c)
	}
	joined := strings.Join(parts, " ")

	best := dataset.TypeOrders
	bestScore := 0
	for _, t := range dataset.AllTypes {
		score := 0
		for _, kw := range typeKeywords[t] {
			if strings.Contains(joined, kw) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = t, score
		}
	}

	confidence := float64(bestScore) / float64(len(typeKeywords[best]))
	if confidence <= 0.1 {
		return dataset.TypeOrders, confidence
	}
	return best, confidence
}

// normalizeName lowers a column name and flattens separators to single
// spaces so synonym comparison ignores labeling style.
func normalizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")
	return strings.Join(strings.Fields(s), " ")
}
