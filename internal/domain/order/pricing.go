package order

import "github.com/shopspring/decimal"

var (
	taxRate         = decimal.NewFromFloat(0.15)
	flatShipping    = decimal.NewFromInt(10)
	freeShippingMin = decimal.NewFromInt(100)
)

// ComputeTotals derives the order amounts from resolved lines, rounding to
// 2 decimal places at every step so that later totals build on the already
// rounded intermediate values:
//
//	items    = round(Σ qty × unitPrice)
//	tax      = round(15% of items)
//	shipping = 0 when items > 100, else 10
//	grand    = round(items + tax + shipping)
//
// Shipping is free only strictly above the threshold; a subtotal of exactly
// 100 still pays the flat rate.
func ComputeTotals(lines []Line) Totals {
	items := decimal.Zero
	for _, l := range lines {
		items = items.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	items = items.Round(2)

	tax := items.Mul(taxRate).Round(2)

	shipping := flatShipping
	if items.GreaterThan(freeShippingMin) {
		shipping = decimal.Zero
	}
	shipping = shipping.Round(2)

	grand := items.Add(tax).Add(shipping).Round(2)

	return Totals{
		Items:    items,
		Tax:      tax,
		Shipping: shipping,
		Grand:    grand,
	}
}
