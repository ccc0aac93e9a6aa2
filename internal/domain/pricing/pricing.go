// Package pricing computes line-item and order totals.
//
// Tax rates are multiplier strings as supplied by the payment provider:
// "1.20" means 20% tax, "1.0" means none. All computed amounts are rounded
// half-up to 2 decimal places at each step, which keeps the item equation
// subtotal + tax = total within one cent and makes order totals independent
// of item order.
package pricing

import "github.com/shopspring/decimal"

var (
	one     = decimal.New(1, 0)
	hundred = decimal.New(100, 0)
)

// ItemTotals are the computed amounts for a single line item.
type ItemTotals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// OrderTotals aggregates item totals in a single currency.
type OrderTotals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
	Currency string
}

// taxMultiplier parses a tax multiplier string. Anything unparseable or
// non-positive degrades to 1.0 rather than failing the pipeline.
func taxMultiplier(taxRate string) decimal.Decimal {
	mult, err := decimal.NewFromString(taxRate)
	if err != nil || !mult.IsPositive() {
		return one
	}
	return mult
}

// ComputeItem computes the totals for one line item. discountRate is a
// percentage in [0, 100]; negative values are treated as no discount.
func ComputeItem(basePrice decimal.Decimal, quantity int64, discountRate decimal.Decimal, taxRate string) ItemTotals {
	if quantity < 1 {
		quantity = 1
	}
	gross := basePrice.Mul(decimal.NewFromInt(quantity))

	discounted := gross
	if discountRate.IsPositive() {
		discounted = gross.Mul(one.Sub(discountRate.Div(hundred)))
	}

	mult := taxMultiplier(taxRate)
	subtotal := discounted.Round(2)
	tax := discounted.Mul(mult.Sub(one)).Round(2)
	total := discounted.Mul(mult).Round(2)

	return ItemTotals{Subtotal: subtotal, Tax: tax, Total: total}
}

// ComputeOrder sums already-rounded item totals. Summation over rounded
// values commutes, so the result does not depend on item order.
func ComputeOrder(items []ItemTotals, currency string) OrderTotals {
	var subtotal, tax, total decimal.Decimal
	for _, it := range items {
		subtotal = subtotal.Add(it.Subtotal)
		tax = tax.Add(it.Tax)
		total = total.Add(it.Total)
	}
	return OrderTotals{
		Subtotal: subtotal.Round(2),
		Tax:      tax.Round(2),
		Total:    total.Round(2),
		Currency: currency,
	}
}
