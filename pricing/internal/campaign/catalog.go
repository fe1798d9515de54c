package campaign

import (
	"context"
	"slices"

	"github.com/shopspring/decimal"
)

type ProductKind string

const (
	ProductSimple    ProductKind = "simple"
	ProductVariable  ProductKind = "variable"
	ProductVariation ProductKind = "variation"
)

type Product struct {
	ID                int64
	ParentID          int64
	Kind              ProductKind
	RegularPrice      decimal.Decimal
	SalePrice         decimal.Decimal
	Stock             int64
	TotalSales        int64
	VariationIDs      []int64
	HiddenCampaignIDs []int64
}

// MatchIDs returns the ids a trigger or offer list may name for this
// product: the product itself and, for variations, its parent.
func (p Product) MatchIDs() []int64 {
	if p.ParentID > 0 {
		return []int64{p.ID, p.ParentID}
	}
	return []int64{p.ID}
}

func (p Product) Hides(campaignID int64) bool {
	return slices.Contains(p.HiddenCampaignIDs, campaignID)
}

// Catalog is the product and category lookup the engine consumes.
type Catalog interface {
	GetProduct(ctx context.Context, id int64) (*Product, error)
	GetVariations(ctx context.Context, parentID int64) ([]Product, error)
	ProductInCategory(ctx context.Context, productID, categoryID int64) (bool, error)
}

// Repository serves campaigns configured elsewhere. Campaigns are read-only here.
type Repository interface {
	ListCampaigns(ctx context.Context) ([]Campaign, error)
	GetCampaign(ctx context.Context, id int64) (*Campaign, error)
}
