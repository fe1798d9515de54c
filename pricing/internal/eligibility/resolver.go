package eligibility

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"

	"campaign_pricing/pricing/internal/campaign"
)

// Strategy lets callers veto a campaign after trigger matching.
type Strategy interface {
	Allow(ctx context.Context, c campaign.Campaign, p campaign.Product, at campaign.Placement) bool
}

// RenderContext tracks what has been rendered during one page view.
type RenderContext struct {
	rendered map[int64]bool
}

func NewRenderContext() *RenderContext {
	return &RenderContext{rendered: make(map[int64]bool)}
}

func (rc *RenderContext) Rendered(campaignID int64) bool {
	return rc.rendered[campaignID]
}

func (rc *RenderContext) markRendered(campaignID int64) {
	rc.rendered[campaignID] = true
}

type Resolver struct {
	repo     campaign.Repository
	catalog  campaign.Catalog
	strategy Strategy
	logger   *slog.Logger
}

func NewResolver(repo campaign.Repository, catalog campaign.Catalog, strategy Strategy, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		repo:     repo,
		catalog:  catalog,
		strategy: strategy,
		logger:   logger.With("component", "eligibility"),
	}
}

// Resolve returns the campaigns to show for productID at the placement,
// in display priority order. Campaigns returned are marked rendered on rc.
func (r *Resolver) Resolve(ctx context.Context, rc *RenderContext, productID int64, page, displayMode, position string) ([]campaign.Campaign, error) {
	if rc == nil {
		rc = NewRenderContext()
	}
	at := campaign.Placement{Page: page, DisplayMode: displayMode, Position: position}

	product, err := r.catalog.GetProduct(ctx, productID)
	if errors.Is(err, campaign.ErrNotFound) {
		r.logger.Debug("resolve skipped, unknown product", "product_id", productID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product %d: %w", productID, err)
	}

	all, err := r.repo.ListCampaigns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}

	var out []campaign.Campaign
	for _, c := range all {
		if !c.Published() || !c.ShownAt(at) || product.Hides(c.ID) {
			continue
		}
		if rc.Rendered(c.ID) && !c.Type.MultiRenderSafe() {
			continue
		}
		ok, err := r.Matches(ctx, c, *product)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if r.strategy != nil && !r.strategy.Allow(ctx, c, *product, at) {
			continue
		}
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	for _, c := range out {
		rc.markRendered(c.ID)
	}
	return out, nil
}

// Matches evaluates the campaign's trigger groups against p.
func (r *Resolver) Matches(ctx context.Context, c campaign.Campaign, p campaign.Product) (bool, error) {
	if len(c.Triggers) == 0 {
		return false, nil
	}
	and := c.EffectiveRelation() == campaign.RelationAnd

	for _, g := range c.Triggers {
		hit, err := r.groupMatches(ctx, g, p)
		if err != nil {
			return false, err
		}
		if and && !hit {
			return false, nil
		}
		if !and && hit {
			return true, nil
		}
	}
	return and, nil
}

func (r *Resolver) groupMatches(ctx context.Context, g campaign.TriggerGroup, p campaign.Product) (bool, error) {
	switch g.Kind {
	case campaign.TriggerAllProducts:
		return true, nil

	case campaign.TriggerProducts:
		for _, id := range p.MatchIDs() {
			if slices.Contains(g.ProductIDs, id) {
				return true, nil
			}
		}
		return false, nil

	case campaign.TriggerCategory:
		for _, cat := range g.CategoryIDs {
			for _, id := range p.MatchIDs() {
				in, err := r.catalog.ProductInCategory(ctx, id, cat)
				if err != nil {
					return false, fmt.Errorf("failed to check category %d: %w", cat, err)
				}
				if in {
					return true, nil
				}
			}
		}
		return false, nil

	default:
		return false, nil
	}
}
