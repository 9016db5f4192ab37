// Package money centralises line and document total arithmetic. Amounts are
// computed in decimal and rounded half-up to 2 places before they are
// persisted, so repeated recomputation never drifts.
package money

import "github.com/shopspring/decimal"

// LineTotals computes discount amount, tax amount and line total for a
// quantity at a unit price with percentage discount and tax. Tax applies to
// the discounted base.
func LineTotals(quantity, unitPrice, discountPercent, taxPercent float64) (discount, tax, total float64) {
	qty := decimal.NewFromFloat(quantity)
	price := decimal.NewFromFloat(unitPrice)
	gross := qty.Mul(price)

	discountD := gross.Mul(decimal.NewFromFloat(discountPercent)).Div(decimal.NewFromInt(100)).Round(2)
	base := gross.Sub(discountD)
	taxD := base.Mul(decimal.NewFromFloat(taxPercent)).Div(decimal.NewFromInt(100)).Round(2)
	totalD := base.Add(taxD).Round(2)

	discount, _ = discountD.Float64()
	tax, _ = taxD.Float64()
	total, _ = totalD.Float64()
	return discount, tax, total
}

// Round2 rounds an amount to 2 decimal places half-up.
func Round2(amount float64) float64 {
	rounded, _ := decimal.NewFromFloat(amount).Round(2).Float64()
	return rounded
}

// Sum adds amounts without accumulating float error.
func Sum(amounts ...float64) float64 {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(decimal.NewFromFloat(a))
	}
	result, _ := total.Round(2).Float64()
	return result
}
