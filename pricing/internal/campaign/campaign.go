package campaign

import (
	"errors"
	"slices"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by collaborators when a product or campaign does not exist.
var ErrNotFound = errors.New("not found")

type Type string

const (
	NormalDiscount           Type = "normal_discount"
	VolumeDiscount           Type = "volume_discount"
	BundleDiscount           Type = "bundle_discount"
	BuyXGetY                 Type = "buy_x_get_y"
	MixMatch                 Type = "mix_match"
	FrequentlyBoughtTogether Type = "frequently_bought_together"
	FreeShippingBar          Type = "free_shipping_bar"
	SpendingGoal             Type = "spending_goal"
	CountdownTimer           Type = "countdown_timer"
	StockScarcity            Type = "stock_scarcity"
	NextOrderCoupon          Type = "next_order_coupon"
)

var allTypes = []Type{
	NormalDiscount, VolumeDiscount, BundleDiscount, BuyXGetY, MixMatch,
	FrequentlyBoughtTogether, FreeShippingBar, SpendingGoal, CountdownTimer,
	StockScarcity, NextOrderCoupon,
}

// Valid reports whether t is one of the known campaign types.
func (t Type) Valid() bool {
	return slices.Contains(allTypes, t)
}

// MultiRenderSafe reports whether a campaign of this type may render more
// than once on the same page view.
func (t Type) MultiRenderSafe() bool {
	return t == StockScarcity || t == CountdownTimer
}

type Status string

const (
	StatusDraft   Status = "draft"
	StatusPublish Status = "publish"
)

type Relation string

const (
	RelationAnd Relation = "and"
	RelationOr  Relation = "or"
)

type DiscountType string

const (
	Percentage    DiscountType = "percentage"
	FixedDiscount DiscountType = "fixed_discount"
	FixedPrice    DiscountType = "fixed_price"
	Free          DiscountType = "free"
	NoDiscount    DiscountType = "no_discount"
)

// Normalize maps unknown or empty discount types to NoDiscount.
func (d DiscountType) Normalize() DiscountType {
	switch d {
	case Percentage, FixedDiscount, FixedPrice, Free:
		return d
	default:
		return NoDiscount
	}
}

type TriggerKind string

const (
	TriggerProducts    TriggerKind = "products"
	TriggerCategory    TriggerKind = "category"
	TriggerAllProducts TriggerKind = "all_products"
)

// TriggerGroup is one condition of a campaign trigger. Products and
// categories inside a single group are alternatives.
type TriggerGroup struct {
	Kind        TriggerKind `json:"kind" yaml:"kind"`
	ProductIDs  []int64     `json:"product_ids,omitempty" yaml:"product_ids"`
	CategoryIDs []int64     `json:"category_ids,omitempty" yaml:"category_ids"`
}

type Placement struct {
	Page        string `json:"page" yaml:"page"`
	DisplayMode string `json:"display_mode" yaml:"display_mode"`
	Position    string `json:"position" yaml:"position"`
}

// Offer is a discount definition attached to the products it targets.
type Offer struct {
	DiscountType DiscountType    `json:"discount_type" yaml:"discount_type"`
	Value        decimal.Decimal `json:"value" yaml:"value"`
	Quantity     int             `json:"quantity" yaml:"quantity"`
	ProductIDs   []int64         `json:"product_ids,omitempty" yaml:"product_ids"`
}

// Contains reports whether the offer targets productID.
func (o Offer) Contains(productID int64) bool {
	return slices.Contains(o.ProductIDs, productID)
}

// ScarcitySettings configures a stock_scarcity campaign.
type ScarcitySettings struct {
	FakeEnabled    bool  `json:"fake_enabled" yaml:"fake_enabled"`
	RepeatInterval bool  `json:"repeat_interval" yaml:"repeat_interval"`
	FakeQuantity   int64 `json:"fake_quantity" yaml:"fake_quantity"`
	FakeSold       int64 `json:"fake_sold" yaml:"fake_sold"`
	FakeViews      int64 `json:"fake_views" yaml:"fake_views"`
	FakeUsers      int64 `json:"fake_users" yaml:"fake_users"`
	LowAmount      int64 `json:"low_amount" yaml:"low_amount"`
	UrgentAmount   int64 `json:"urgent_amount" yaml:"urgent_amount"`
}

type Campaign struct {
	ID               int64            `json:"id" yaml:"id"`
	Name             string           `json:"name" yaml:"name"`
	Type             Type             `json:"type" yaml:"type"`
	Status           Status           `json:"status" yaml:"status"`
	Priority         int              `json:"priority" yaml:"priority"`
	Placements       []Placement      `json:"placements" yaml:"placements"`
	Triggers         []TriggerGroup   `json:"triggers" yaml:"triggers"`
	TriggerRelation  Relation         `json:"trigger_relation" yaml:"trigger_relation"`
	Offers           []Offer          `json:"offers" yaml:"offers"`
	FreeShipping     bool             `json:"free_shipping" yaml:"free_shipping"`
	QuantitySelector bool             `json:"quantity_selector" yaml:"quantity_selector"`
	Scarcity         ScarcitySettings `json:"scarcity" yaml:"scarcity"`
}

// EffectiveRelation returns the relation used to combine trigger groups.
// mix_match always requires every group; everything else defaults to OR.
func (c Campaign) EffectiveRelation() Relation {
	if c.Type == MixMatch {
		return RelationAnd
	}
	if c.TriggerRelation == RelationAnd {
		return RelationAnd
	}
	return RelationOr
}

func (c Campaign) Published() bool {
	return c.Status == StatusPublish
}

// ShownAt reports whether the campaign is configured for the placement.
func (c Campaign) ShownAt(p Placement) bool {
	return slices.Contains(c.Placements, p)
}

// OfferProductIDs lists every product targeted by any of the campaign's offers.
func (c Campaign) OfferProductIDs() []int64 {
	var ids []int64
	for _, o := range c.Offers {
		for _, id := range o.ProductIDs {
			if !slices.Contains(ids, id) {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// TriggerProductIDs lists the explicit products named by the trigger groups.
func (c Campaign) TriggerProductIDs() []int64 {
	var ids []int64
	for _, g := range c.Triggers {
		if g.Kind != TriggerProducts {
			continue
		}
		for _, id := range g.ProductIDs {
			if !slices.Contains(ids, id) {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// OfferFor returns the first offer targeting productID.
func (c Campaign) OfferFor(productID int64) (Offer, bool) {
	for _, o := range c.Offers {
		if o.Contains(productID) {
			return o, true
		}
	}
	return Offer{}, false
}
