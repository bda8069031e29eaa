package respond

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var countPrinter = message.NewPrinter(language.English)

// FormatINR renders a rupee amount on the Indian scale: crores above 1e7,
// lakhs above 1e5, comma-grouped rupees below that. The lakh/crore scale is
// what the audience reads, so it must not be swapped for K/M/B.
func FormatINR(v float64) string {
	if math.IsNaN(v) || v == 0 {
		return "₹0"
	}
	switch {
	case v >= 10000000:
		return fmt.Sprintf("₹%.2f Cr", v/10000000)
	case v >= 100000:
		return fmt.Sprintf("₹%.2f L", v/100000)
	default:
		return countPrinter.Sprintf("₹%.0f", v)
	}
}

// FormatPercent renders with one decimal place.
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

// FormatCount renders an integer with thousands separators.
func FormatCount(n int) string {
	return countPrinter.Sprintf("%d", n)
}

// FormatMultiple renders a ratio like ROAS as "2.50x".
func FormatMultiple(v float64) string {
	return fmt.Sprintf("%.2fx", v)
}
