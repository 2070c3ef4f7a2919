package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CurrencyPrefix is shown in front of every formatted amount in summaries.
const CurrencyPrefix = "KES "

var amountPrinter = message.NewPrinter(language.English)

// FormatAmount renders d with thousands separators and two decimals: 50000 -> "50,000.00".
// Cents are exact; the whole part must fit in an int64.
func FormatAmount(d decimal.Decimal) string {
	cents := d.Round(2)
	fixed := cents.StringFixed(2)
	whole := cents.Truncate(0)

	sign := ""
	if cents.IsNegative() && whole.IsZero() {
		sign = "-"
	}
	return sign + amountPrinter.Sprintf("%d", whole.IntPart()) + "." + fixed[len(fixed)-2:]
}

// FormatKES is FormatAmount with the currency prefix.
func FormatKES(d decimal.Decimal) string {
	return CurrencyPrefix + FormatAmount(d)
}

// FormatRatePct renders a percentage with two decimals, e.g. "1.50 %".
func FormatRatePct(pct float64) string {
	return fmt.Sprintf("%.2f %%", pct)
}
