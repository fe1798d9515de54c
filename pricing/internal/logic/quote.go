package logic

import (
	"campaign_pricing/pricing/internal/campaign"

	"github.com/shopspring/decimal"
)

// PriceBaseStrategy picks the price a discount is applied to.
type PriceBaseStrategy interface {
	BasePrice(regular, sale decimal.Decimal) decimal.Decimal
}

// RegularPrice always discounts from the regular price.
type RegularPrice struct{}

func (RegularPrice) BasePrice(regular, _ decimal.Decimal) decimal.Decimal {
	return regular
}

// PreferSalePrice discounts from the sale price when one is set below the regular price.
type PreferSalePrice struct{}

func (PreferSalePrice) BasePrice(regular, sale decimal.Decimal) decimal.Decimal {
	if sale.IsPositive() && sale.LessThan(regular) {
		return sale
	}
	return regular
}

// PriceBaseFunc adapts a plain function to PriceBaseStrategy.
type PriceBaseFunc func(regular, sale decimal.Decimal) decimal.Decimal

func (f PriceBaseFunc) BasePrice(regular, sale decimal.Decimal) decimal.Decimal {
	return f(regular, sale)
}

type Quote struct {
	Regular      decimal.Decimal `json:"regular"`
	Base         decimal.Decimal `json:"base"`
	Offered      decimal.Decimal `json:"offered"`
	SavedPercent decimal.Decimal `json:"saved_percent"`
}

type Calculator struct {
	Base PriceBaseStrategy
}

// NewCalculator returns a calculator using base, or RegularPrice when nil.
func NewCalculator(base PriceBaseStrategy) *Calculator {
	if base == nil {
		base = RegularPrice{}
	}
	return &Calculator{Base: base}
}

// BasePrice resolves the price to discount from for a product.
func (c *Calculator) BasePrice(p campaign.Product) decimal.Decimal {
	return c.Base.BasePrice(p.RegularPrice, p.SalePrice)
}

// UnitPrice is the discounted price of a single unit of p under offer.
func (c *Calculator) UnitPrice(offer campaign.Offer, p campaign.Product) decimal.Decimal {
	return ComputeOfferedPrice(offer.DiscountType.Normalize(), offer.Value, c.BasePrice(p), 1, true)
}

// Quote prices quantity units of p under offer and works out the savings badge.
func (c *Calculator) Quote(offer campaign.Offer, p campaign.Product, quantity int) Quote {
	if quantity < 1 {
		quantity = 1
	}
	qty := decimal.NewFromInt(int64(quantity))
	base := c.BasePrice(p)
	t := offer.DiscountType.Normalize()

	var offered decimal.Decimal
	switch t {
	case campaign.FixedPrice:
		offered = ComputeOfferedPrice(t, offer.Value, base.Mul(qty), quantity, false)
	case campaign.FixedDiscount:
		offered = ComputeOfferedPrice(t, offer.Value, base.Mul(qty), quantity, false)
	default:
		offered = ComputeOfferedPrice(t, offer.Value, base, 1, true).Mul(qty)
	}

	regular := p.RegularPrice.Mul(qty)
	q := Quote{Regular: regular, Base: base.Mul(qty), Offered: offered}

	if t == campaign.Percentage && base.Equal(p.RegularPrice) {
		q.SavedPercent = offer.Value
		return q
	}
	q.SavedPercent = SavedPercent(regular, offered)
	return q
}

// SavedPercent is the share of regular saved by paying offered, in percent.
func SavedPercent(regular, offered decimal.Decimal) decimal.Decimal {
	if !regular.IsPositive() {
		return decimal.Zero
	}
	saved := regular.Sub(offered).Div(regular).Mul(hundred).Round(2)
	if saved.IsNegative() {
		return decimal.Zero
	}
	return saved
}
