package cart

import (
	"context"
	"errors"

	"campaign_pricing/pricing/internal/campaign"

	"github.com/shopspring/decimal"
)

var (
	ErrLineNotFound = errors.New("cart line not found")
	ErrAddRejected  = errors.New("cart rejected line")
	ErrBadQuantity  = errors.New("line quantity must be positive")
)

type Role string

const (
	RoleItem    Role = "item"
	RoleTrigger Role = "trigger"
	RoleOffer   Role = "offer"
	RoleBundle  Role = "bundle"
)

// BundleItem is one product carried inside a synthetic bundle line.
type BundleItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// Tag links a cart line to the campaign that added it. It is stored with
// the line, so it must stay JSON serializable.
type Tag struct {
	CampaignID   int64         `json:"campaign_id"`
	CampaignType campaign.Type `json:"campaign_type"`
	FreeShipping bool          `json:"free_shipping"`
	Role         Role          `json:"role,omitempty"`

	Offer  *campaign.Offer  `json:"offer,omitempty"`  // snapshot taken when the line was added
	Offers []campaign.Offer `json:"offers,omitempty"` // quantity tiers or the full bundle offer list

	SiblingKeys      []string      `json:"sibling_keys,omitempty"`
	TriggerKeys      []string      `json:"trigger_keys,omitempty"`
	OfferKeys        []string      `json:"offer_keys,omitempty"`
	RequiredTriggers map[int64]int `json:"required_triggers,omitempty"`
	BundleProducts   []BundleItem  `json:"bundle_products,omitempty"`
	TriggerProducts  []int64       `json:"trigger_products,omitempty"`
}

type Line struct {
	Key         string            `json:"key"`
	ProductID   int64             `json:"product_id"`
	VariationID int64             `json:"variation_id,omitempty"`
	Quantity    int               `json:"quantity"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	UnitPrice   decimal.Decimal   `json:"unit_price"`
	Tag         *Tag              `json:"tag,omitempty"`
}

// ItemID is the purchasable id: the variation when set, else the product.
func (l Line) ItemID() int64 {
	if l.VariationID > 0 {
		return l.VariationID
	}
	return l.ProductID
}

func (l Line) Tagged() bool {
	return l.Tag != nil && l.Tag.CampaignID > 0
}

type LineRequest struct {
	ProductID   int64
	VariationID int64
	Quantity    int
	Attributes  map[string]string
	UnitPrice   decimal.Decimal
	Tag         *Tag
}

type Totals struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	Shipping     decimal.Decimal `json:"shipping"`
	Total        decimal.Decimal `json:"total"`
	FreeShipping bool            `json:"free_shipping"`
	Items        int             `json:"items"`
}

// Cart is the shopping cart collaborator for one session.
type Cart interface {
	Lines(ctx context.Context) ([]Line, error)
	AddLine(ctx context.Context, req LineRequest) (string, error)
	RemoveLine(ctx context.Context, key string) (Line, error)
	RestoreLine(ctx context.Context, key string) (Line, error)
	SetLineTag(ctx context.Context, key string, tag *Tag) error
	SetLinePrice(ctx context.Context, key string, price decimal.Decimal) error
	SetQuantity(ctx context.Context, key string, qty int) error
	SetFreeShipping(ctx context.Context, eligible bool) error
	RecalculateTotals(ctx context.Context) (Totals, error)
	Empty(ctx context.Context) error
}
