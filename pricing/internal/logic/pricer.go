package logic

import (
	"campaign_pricing/pricing/internal/campaign"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ComputeOfferedPrice derives the price a customer pays for an offer.
// With isUnitPrice set the quantity is treated as 1 for fixed amounts.
func ComputeOfferedPrice(t campaign.DiscountType, value, basePrice decimal.Decimal, quantity int, isUnitPrice bool) decimal.Decimal {
	if quantity < 1 || isUnitPrice {
		quantity = 1
	}
	qty := decimal.NewFromInt(int64(quantity))

	// Negative values are malformed offers, keep the original price.
	if value.IsNegative() {
		return basePrice
	}

	switch t {
	case campaign.Percentage:
		if !basePrice.IsPositive() {
			return decimal.Zero
		}
		price := basePrice.Mul(decimal.NewFromInt(1).Sub(value.Div(hundred)))
		return floorZero(price)

	case campaign.FixedDiscount:
		if !basePrice.IsPositive() {
			return decimal.Zero
		}
		return floorZero(basePrice.Sub(value.Mul(qty)))

	case campaign.FixedPrice:
		return value.Mul(qty)

	case campaign.Free:
		return decimal.Zero

	default:
		return basePrice
	}
}

func floorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// RoundPrice rounds to cents the same way catalog prices are stored.
func RoundPrice(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
