package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"campaign_pricing/pricing/internal/campaign"
	"campaign_pricing/pricing/internal/cart"
	"campaign_pricing/pricing/internal/eligibility"
	"campaign_pricing/pricing/internal/logic"
)

type Result struct {
	// Skipped is set when a pass was already running for the session.
	Skipped      bool        `json:"skipped,omitempty"`
	Repriced     int         `json:"repriced"`
	FreeShipping bool        `json:"free_shipping"`
	Totals       cart.Totals `json:"totals"`
}

// Reconciler re-derives campaign line prices and free shipping before
// cart totals are read.
type Reconciler struct {
	repo      campaign.Repository
	catalog   campaign.Catalog
	calc      *logic.Calculator
	repricers Repricers
	triggers  *eligibility.Resolver
	logger    *slog.Logger
}

func NewReconciler(repo campaign.Repository, catalog campaign.Catalog, calc *logic.Calculator, repricers Repricers, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	if repricers == nil {
		repricers = DefaultRepricers()
	}
	if calc == nil {
		calc = logic.NewCalculator(nil)
	}
	return &Reconciler{
		repo:      repo,
		catalog:   catalog,
		calc:      calc,
		repricers: repricers,
		triggers:  eligibility.NewResolver(repo, catalog, nil, logger),
		logger:    logger.With("component", "reconcile"),
	}
}

// Run reprices every tagged line, settles free shipping and recomputes
// totals. A nested call for the same session returns Skipped.
func (r *Reconciler) Run(ctx context.Context, sess *cart.Session) (Result, error) {
	if !sess.BeginReconcile() {
		return Result{Skipped: true}, nil
	}
	defer sess.EndReconcile()

	lines, err := sess.Cart.Lines(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read cart lines: %w", err)
	}

	var res Result
	env := Env{Catalog: r.catalog, Calc: r.calc, Lines: lines}
	for i, line := range lines {
		if !line.Tagged() {
			continue
		}
		rp, ok := r.repricers[line.Tag.CampaignType]
		if !ok {
			continue
		}
		price, ok, err := rp.Reprice(ctx, env, line)
		if err != nil {
			return res, fmt.Errorf("failed to reprice line %s: %w", line.Key, err)
		}
		if !ok {
			r.logger.Warn("line left at current price", "line", line.Key, "product_id", line.ItemID())
			continue
		}
		price = logic.RoundPrice(price)
		if price.Equal(line.UnitPrice) {
			continue
		}
		if err := sess.Cart.SetLinePrice(ctx, line.Key, price); err != nil {
			return res, fmt.Errorf("failed to set line price: %w", err)
		}
		lines[i].UnitPrice = price
		res.Repriced++
	}

	res.FreeShipping = r.FreeShippingEligible(ctx, lines)
	if err := sess.Cart.SetFreeShipping(ctx, res.FreeShipping); err != nil {
		return res, fmt.Errorf("failed to set free shipping: %w", err)
	}

	res.Totals, err = sess.Cart.RecalculateTotals(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to recalculate totals: %w", err)
	}
	r.logger.Debug("cart reconciled", "session_id", sess.ID, "lines", len(lines), "repriced", res.Repriced, "free_shipping", res.FreeShipping)
	return res, nil
}

// FreeShippingEligible is true only when the cart has lines and every one
// of them still qualifies. Lookup failures count as not eligible.
func (r *Reconciler) FreeShippingEligible(ctx context.Context, lines []cart.Line) bool {
	if len(lines) == 0 {
		return false
	}
	current := make(map[int64]*campaign.Campaign)
	for _, line := range lines {
		if !line.Tagged() || !line.Tag.FreeShipping {
			return false
		}
		if line.Tag.CampaignType == campaign.BuyXGetY && !buyXGetYMet(lines, line.Tag) {
			return false
		}
		c, ok := current[line.Tag.CampaignID]
		if !ok {
			found, err := r.repo.GetCampaign(ctx, line.Tag.CampaignID)
			if err != nil {
				r.logger.Warn("free shipping lookup failed", "campaign_id", line.Tag.CampaignID, "error", err)
			}
			c = found
			current[line.Tag.CampaignID] = c
		}
		if c == nil || !c.Published() || !c.FreeShipping || !r.stillListed(ctx, *c, line) {
			return false
		}
	}
	return true
}

// stillListed checks the line's product against the campaign as it is
// now. Trigger and bundle lines, and offers that name no products of their
// own, are held against the campaign's current triggers.
func (r *Reconciler) stillListed(ctx context.Context, c campaign.Campaign, line cart.Line) bool {
	ids := c.OfferProductIDs()
	if slices.Contains(ids, line.ItemID()) || slices.Contains(ids, line.ProductID) {
		return true
	}
	if line.Tag.Role != cart.RoleTrigger && line.Tag.Role != cart.RoleBundle &&
		!slices.ContainsFunc(c.Offers, func(o campaign.Offer) bool { return len(o.ProductIDs) == 0 }) {
		return false
	}
	p, err := r.catalog.GetProduct(ctx, line.ItemID())
	if err != nil {
		r.logger.Warn("free shipping product lookup failed", "product_id", line.ItemID(), "error", err)
		return false
	}
	ok, err := r.triggers.Matches(ctx, c, *p)
	if err != nil {
		r.logger.Warn("free shipping trigger check failed", "campaign_id", c.ID, "product_id", p.ID, "error", err)
		return false
	}
	return ok
}
