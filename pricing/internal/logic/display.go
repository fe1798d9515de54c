package logic

import "github.com/shopspring/decimal"

// TaxDisplay converts raw catalog prices into the price shown to shoppers.
type TaxDisplay struct {
	Rate                decimal.Decimal // e.g. 0.20 for 20%
	PricesIncludeTax    bool
	DisplayIncludingTax bool
}

// Display returns price as it should be shown, rounded to cents.
func (t TaxDisplay) Display(price decimal.Decimal) decimal.Decimal {
	if !t.Rate.IsPositive() || t.PricesIncludeTax == t.DisplayIncludingTax {
		return RoundPrice(price)
	}
	factor := decimal.NewFromInt(1).Add(t.Rate)
	if t.DisplayIncludingTax {
		return RoundPrice(price.Mul(factor))
	}
	return RoundPrice(price.Div(factor))
}
