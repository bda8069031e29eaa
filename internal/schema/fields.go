// Package schema resolves logical field names against the physical columns
// of imported datasets. It carries the synonym vocabulary for every dataset
// type, detects what kind of data a table holds, and keeps per-dataset
// column mappings with user overrides taking precedence over auto-detection.
package schema

import (
	"regexp"
	"sort"

	"datapulse/internal/dataset"
)

// Field is a logical column name the analytics layer asks for, independent
// of how the imported file labels its columns.
type Field string

const (
	FieldOrderID       Field = "order_id"
	FieldOrderDate     Field = "order_date"
	FieldCustomerName  Field = "customer_name"
	FieldCustomerEmail Field = "customer_email"
	FieldProductName   Field = "product_name"
	FieldCategory      Field = "category"
	FieldQuantity      Field = "quantity"
	FieldTotalAmount   Field = "total_amount"
	FieldPaymentMethod Field = "payment_method"
	FieldOrderStatus   Field = "order_status"
	FieldCity          Field = "city"
	FieldState         Field = "state"

	FieldCustomerID Field = "customer_id"
	FieldName       Field = "name"
	FieldEmail      Field = "email"
	FieldPhone      Field = "phone"
	FieldTotalSpent Field = "total_spent"

	FieldProductID    Field = "product_id"
	FieldPrice        Field = "price"
	FieldBrand        Field = "brand"
	FieldReorderLevel Field = "reorder_level"
	FieldWarehouse    Field = "warehouse"

	FieldDate        Field = "date"
	FieldCampaign    Field = "campaign"
	FieldImpressions Field = "impressions"
	FieldClicks      Field = "clicks"
	FieldSpend       Field = "spend"
	FieldConversions Field = "conversions"
	FieldRevenue     Field = "revenue"
)

// columnSynonyms lists, per dataset type, the physical column names that map
// onto each logical field. Comparison is against normalized names (lower
// case, separators as spaces). Specific variants come before generic ones.
var columnSynonyms = map[dataset.Type]map[Field][]string{
	dataset.TypeOrders: {
		FieldOrderID:       {"order id", "orderid", "id", "order number", "transaction id", "invoice id"},
		FieldOrderDate:     {"order date", "date", "created at", "transaction date", "created", "purchase date"},
		FieldCustomerName:  {"customer name", "customer", "name", "buyer", "client", "full name"},
		FieldCustomerEmail: {"email", "customer email", "buyer email", "contact email"},
		FieldProductName:   {"product name", "product", "item", "item name", "sku name"},
		FieldCategory:      {"category", "product category", "type", "product type", "item category"},
		FieldQuantity:      {"quantity", "qty", "units", "count", "amount qty"},
		FieldTotalAmount:   {"total amount", "amount", "total", "price", "revenue", "order value", "total price", "grand total"},
		FieldPaymentMethod: {"payment method", "payment", "payment type", "pay method", "payment mode"},
		FieldOrderStatus:   {"order status", "status", "delivery status", "fulfillment status", "state"},
		FieldCity:          {"city", "customer city", "shipping city", "delivery city", "location"},
		FieldState:         {"state", "region", "province", "customer state", "shipping state"},
	},
	dataset.TypeCustomers: {
		FieldCustomerID: {"customer id", "id", "user id", "client id", "member id"},
		FieldName:       {"name", "full name", "customer name", "display name"},
		FieldEmail:      {"email", "email address", "contact email"},
		FieldPhone:      {"phone", "mobile", "contact", "phone number", "telephone"},
		FieldCity:       {"city", "location", "address city"},
		FieldState:      {"state", "region", "province"},
		FieldTotalSpent: {"total spent", "lifetime value", "ltv", "revenue", "total purchase"},
	},
	dataset.TypeProducts: {
		FieldProductID:   {"product id", "id", "sku", "item id", "sku id"},
		FieldProductName: {"product name", "name", "title", "item name", "description"},
		FieldCategory:    {"category", "product category", "type", "product type"},
		FieldPrice:       {"price", "unit price", "selling price", "mrp", "cost"},
		FieldBrand:       {"brand", "manufacturer", "vendor"},
	},
	dataset.TypeInventory: {
		FieldProductID:    {"product id", "sku", "item id", "id"},
		FieldProductName:  {"product name", "name", "item name", "sku name"},
		FieldQuantity:     {"quantity", "stock", "available", "on hand", "qty"},
		FieldWarehouse:    {"warehouse", "location", "store", "fulfillment center"},
		FieldReorderLevel: {"reorder level", "reorder point", "min stock", "safety stock"},
	},
	dataset.TypeAdsMeta: {
		FieldDate:        {"date", "day", "reporting date"},
		FieldCampaign:    {"campaign name", "campaign", "campaign id"},
		FieldImpressions: {"impressions", "impr"},
		FieldClicks:      {"clicks", "link clicks"},
		FieldSpend:       {"spend", "amount spent", "cost"},
		FieldConversions: {"conversions", "purchases", "results"},
		FieldRevenue:     {"revenue", "purchase value", "conversion value"},
	},
	dataset.TypeAdsGoogle: {
		FieldDate:        {"date", "day", "reporting date"},
		FieldCampaign:    {"campaign", "campaign name"},
		FieldImpressions: {"impressions", "impr"},
		FieldClicks:      {"clicks"},
		FieldSpend:       {"cost", "spend", "amount"},
		FieldConversions: {"conversions", "conv"},
		FieldRevenue:     {"conversion value", "conv value", "revenue"},
	},
	dataset.TypeAdsShopify: {
		FieldDate:        {"date", "day"},
		FieldCampaign:    {"campaign type", "marketing channel", "channel"},
		FieldSpend:       {"spend", "cost", "amount"},
		FieldClicks:      {"clicks", "sessions"},
		FieldConversions: {"orders", "purchases", "conversions"},
		FieldRevenue:     {"revenue", "sales", "total sales"},
	},
}

// columnPatterns is the looser fallback lexicon, tried only when no synonym
// matches exactly. Patterns run against the normalized column name.
var columnPatterns = map[Field][]*regexp.Regexp{
	FieldOrderID:       compilePatterns(`order[_\s]?id`, `order[_\s]?no`, `^id$`, `invoice`),
	FieldTotalAmount:   compilePatterns(`total`, `amount`, `value`, `price`, `revenue`, `sale`),
	FieldOrderStatus:   compilePatterns(`status`, `state`, `delivery.*status`),
	FieldOrderDate:     compilePatterns(`date`, `created`, `placed`, `time`),
	FieldPaymentMethod: compilePatterns(`payment`, `pay.*method`, `pay.*mode`),
	FieldCustomerName:  compilePatterns(`customer.*name`, `^name$`, `buyer`),
	FieldCustomerEmail: compilePatterns(`email`, `mail`),
	FieldCity:          compilePatterns(`^city$`, `customer.*city`, `shipping.*city`),
	FieldProductName:   compilePatterns(`product`, `item`, `sku.*name`),
	FieldCategory:      compilePatterns(`category`, `type`, `department`),
	FieldQuantity:      compilePatterns(`qty`, `quantity`, `units`),
	FieldSpend:         compilePatterns(`spend`, `cost`),
	FieldImpressions:   compilePatterns(`impression`),
	FieldClicks:        compilePatterns(`click`),
	FieldConversions:   compilePatterns(`conversion`, `purchase`),
}

// numericFields lists fields where a resolved column must actually contain
// numbers. A name match alone is not enough; the candidate is rejected when
// numeric coercion yields nothing.
var numericFields = map[Field]bool{
	FieldTotalAmount: true,
	FieldQuantity:    true,
	FieldPrice:       true,
	FieldTotalSpent:  true,
	FieldSpend:       true,
	FieldImpressions: true,
	FieldClicks:      true,
	FieldConversions: true,
	FieldRevenue:     true,
}

func compilePatterns(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// FieldsFor returns the logical fields known for a dataset type, in a stable
// order matching the synonym table's declaration.
func FieldsFor(t dataset.Type) []Field {
	syn := columnSynonyms[t]
	fields := make([]Field, 0, len(syn))
	for f := range syn {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields
}
