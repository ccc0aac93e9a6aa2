package notify

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/batibatii/textilecom-webhook-receiver/internal/domain/order"
)

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"TRY": "₺",
}

// FormatCurrency renders an amount with its currency symbol, falling back to
// the currency code when no symbol is known.
func FormatCurrency(amount decimal.Decimal, currency string) string {
	symbol, ok := currencySymbols[strings.ToUpper(currency)]
	if !ok {
		symbol = currency
	}
	return symbol + amount.StringFixed(2)
}

// FormatAddress renders an address as an HTML fragment, skipping empty lines.
func FormatAddress(a order.Address) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Line1, a.Line2, a.City + ", " + a.PostalCode, a.Country} {
		if strings.TrimSpace(strings.Trim(p, ", ")) == "" {
			continue
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, "<br/>")
}
