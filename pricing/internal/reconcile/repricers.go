package reconcile

import (
	"context"
	"errors"
	"slices"

	"campaign_pricing/pricing/internal/campaign"
	"campaign_pricing/pricing/internal/cart"
	"campaign_pricing/pricing/internal/logic"

	"github.com/shopspring/decimal"
)

// Env is what a repricer can see during one pass.
type Env struct {
	Catalog campaign.Catalog
	Calc    *logic.Calculator
	Lines   []cart.Line
}

// product loads a catalog product. Unknown products report ok=false.
func (e Env) product(ctx context.Context, id int64) (campaign.Product, bool, error) {
	p, err := e.Catalog.GetProduct(ctx, id)
	if errors.Is(err, campaign.ErrNotFound) {
		return campaign.Product{}, false, nil
	}
	if err != nil {
		return campaign.Product{}, false, err
	}
	return *p, true, nil
}

// campaignQuantity sums the quantity of every line the campaign added.
func (e Env) campaignQuantity(campaignID int64) int {
	total := 0
	for _, l := range e.Lines {
		if l.Tagged() && l.Tag.CampaignID == campaignID {
			total += l.Quantity
		}
	}
	return total
}

func (e Env) hasKeys(keys []string) bool {
	for _, k := range keys {
		if !slices.ContainsFunc(e.Lines, func(l cart.Line) bool { return l.Key == k }) {
			return false
		}
	}
	return true
}

// Repricer derives a tagged line's unit price from the offer snapshot it
// carries. ok=false leaves the line untouched.
type Repricer interface {
	Reprice(ctx context.Context, env Env, line cart.Line) (price decimal.Decimal, ok bool, err error)
}

type RepricerFunc func(ctx context.Context, env Env, line cart.Line) (decimal.Decimal, bool, error)

func (f RepricerFunc) Reprice(ctx context.Context, env Env, line cart.Line) (decimal.Decimal, bool, error) {
	return f(ctx, env, line)
}

type Repricers map[campaign.Type]Repricer

func DefaultRepricers() Repricers {
	return Repricers{
		campaign.NormalDiscount:           RepricerFunc(repriceSnapshot),
		campaign.VolumeDiscount:           RepricerFunc(repriceVolume),
		campaign.MixMatch:                 RepricerFunc(repriceMixMatch),
		campaign.BundleDiscount:           RepricerFunc(repriceBundle),
		campaign.BuyXGetY:                 RepricerFunc(repriceBuyXGetY),
		campaign.FrequentlyBoughtTogether: RepricerFunc(repriceTogether),
	}
}

// unitPrice prices one unit of the line's item under offer, or at base
// price when offer is nil.
func unitPrice(ctx context.Context, env Env, line cart.Line, offer *campaign.Offer) (decimal.Decimal, bool, error) {
	p, ok, err := env.product(ctx, line.ItemID())
	if !ok || err != nil {
		return decimal.Zero, false, err
	}
	if offer == nil {
		return env.Calc.BasePrice(p), true, nil
	}
	return env.Calc.UnitPrice(*offer, p), true, nil
}

func repriceSnapshot(ctx context.Context, env Env, line cart.Line) (decimal.Decimal, bool, error) {
	return unitPrice(ctx, env, line, line.Tag.Offer)
}

// tierFor picks the tier with the largest threshold not above quantity.
func tierFor(tiers []campaign.Offer, quantity int) *campaign.Offer {
	var best *campaign.Offer
	for i := range tiers {
		t := &tiers[i]
		if t.Quantity > quantity {
			continue
		}
		if best == nil || t.Quantity > best.Quantity {
			best = t
		}
	}
	return best
}

func repriceVolume(ctx context.Context, env Env, line cart.Line) (decimal.Decimal, bool, error) {
	return unitPrice(ctx, env, line, tierFor(line.Tag.Offers, line.Quantity))
}

func repriceMixMatch(ctx context.Context, env Env, line cart.Line) (decimal.Decimal, bool, error) {
	return unitPrice(ctx, env, line, tierFor(line.Tag.Offers, env.campaignQuantity(line.Tag.CampaignID)))
}

// repriceBundle prices the bundle line as the sum of every bundled offer.
// Offers naming no products cover the line's own item, and a bundle with
// no offers at all keeps the base price.
func repriceBundle(ctx context.Context, env Env, line cart.Line) (decimal.Decimal, bool, error) {
	if len(line.Tag.Offers) == 0 {
		return unitPrice(ctx, env, line, nil)
	}
	total := decimal.Zero
	for _, o := range line.Tag.Offers {
		ids := o.ProductIDs
		if len(ids) == 0 {
			ids = []int64{line.ItemID()}
		}
		for _, id := range ids {
			p, ok, err := env.product(ctx, id)
			if !ok || err != nil {
				return decimal.Zero, false, err
			}
			total = total.Add(env.Calc.Quote(o, p, o.Quantity).Offered)
		}
	}
	return total, true, nil
}

// buyXGetYMet reports whether the trigger lines of the tag's campaign
// still cover every required quantity.
func buyXGetYMet(lines []cart.Line, tag *cart.Tag) bool {
	if len(tag.RequiredTriggers) == 0 {
		return false
	}
	have := make(map[int64]int)
	for _, l := range lines {
		if l.Tagged() && l.Tag.CampaignID == tag.CampaignID && l.Tag.Role == cart.RoleTrigger {
			have[l.ItemID()] += l.Quantity
		}
	}
	for id, need := range tag.RequiredTriggers {
		if have[id] < need {
			return false
		}
	}
	return true
}

func repriceBuyXGetY(ctx context.Context, env Env, line cart.Line) (decimal.Decimal, bool, error) {
	if line.Tag.Role != cart.RoleOffer || !buyXGetYMet(env.Lines, line.Tag) {
		return unitPrice(ctx, env, line, nil)
	}
	return unitPrice(ctx, env, line, line.Tag.Offer)
}

func repriceTogether(ctx context.Context, env Env, line cart.Line) (decimal.Decimal, bool, error) {
	if line.Tag.Role != cart.RoleOffer || len(line.Tag.TriggerKeys) == 0 || !env.hasKeys(line.Tag.TriggerKeys) {
		return unitPrice(ctx, env, line, nil)
	}
	return unitPrice(ctx, env, line, line.Tag.Offer)
}
