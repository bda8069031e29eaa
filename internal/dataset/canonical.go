package dataset

import "strings"

// Canonical order statuses. Raw status text is folded into these at import
// time; aggregation logic compares against the constants only.
const (
	StatusDelivered  = "Delivered"
	StatusShipped    = "Shipped"
	StatusProcessing = "Processing"
	StatusRTO        = "RTO"
	StatusCancelled  = "Cancelled"
	StatusUnknown    = "Unknown"
)

// Canonical payment types.
const (
	PaymentCOD        = "COD"
	PaymentUPI        = "UPI"
	PaymentCard       = "Card"
	PaymentNetBanking = "Net Banking"
	PaymentPrepaid    = "Prepaid"
	PaymentWallet     = "Wallet"
	PaymentEMI        = "EMI"
	PaymentOther      = "Other"
)

// statusSynonyms maps lower-cased raw status text to a canonical status.
// Many-to-one; lookups happen after trimming.
var statusSynonyms = map[string]string{
	"delivered":       StatusDelivered,
	"completed":       StatusDelivered,
	"complete":        StatusDelivered,
	"fulfilled":       StatusDelivered,
	"success":         StatusDelivered,
	"successful":      StatusDelivered,
	"cancelled":       StatusCancelled,
	"canceled":        StatusCancelled,
	"refunded":        StatusCancelled,
	"rto":             StatusRTO,
	"returned":        StatusRTO,
	"return":          StatusRTO,
	"undelivered":     StatusRTO,
	"return to origin": StatusRTO,
	"failed delivery": StatusRTO,
	"failed":          StatusRTO,
	"processing":      StatusProcessing,
	"pending":         StatusProcessing,
	"confirmed":       StatusProcessing,
	"new":             StatusProcessing,
	"placed":          StatusProcessing,
	"shipped":         StatusShipped,
	"in transit":      StatusShipped,
	"dispatched":      StatusShipped,
}

// paymentSynonyms maps lower-cased raw payment text to a canonical type.
var paymentSynonyms = map[string]string{
	"cod":              PaymentCOD,
	"cash on delivery": PaymentCOD,
	"cash":             PaymentCOD,
	"upi":              PaymentUPI,
	"gpay":             PaymentUPI,
	"google pay":       PaymentUPI,
	"phonepe":          PaymentUPI,
	"paytm":            PaymentUPI,
	"bhim":             PaymentUPI,
	"credit card":      PaymentCard,
	"debit card":       PaymentCard,
	"card":             PaymentCard,
	"net banking":      PaymentNetBanking,
	"netbanking":       PaymentNetBanking,
	"prepaid":          PaymentPrepaid,
	"online":           PaymentPrepaid,
	"wallet":           PaymentWallet,
	"emi":              PaymentEMI,
}

// CanonicalStatus folds raw status text into the canonical vocabulary.
// Unrecognized non-empty text keeps its title-cased form; only null/blank
// becomes Unknown. The asymmetry mirrors how imports have always behaved and
// is kept on purpose (see DESIGN.md).
func CanonicalStatus(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return StatusUnknown
	}
	if canon, ok := statusSynonyms[strings.ToLower(trimmed)]; ok {
		return canon
	}
	return titleCase(trimmed)
}

// CanonicalPayment folds raw payment text into the canonical vocabulary.
func CanonicalPayment(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return PaymentOther
	}
	if canon, ok := paymentSynonyms[strings.ToLower(trimmed)]; ok {
		return canon
	}
	return titleCase(trimmed)
}

// IsCOD reports whether a canonical payment value counts as cash on
// delivery. Everything else is treated as prepaid for comparisons.
func IsCOD(canonical string) bool {
	return canonical == PaymentCOD
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
