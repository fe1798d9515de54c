package scarcity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"campaign_pricing/pricing/internal/campaign"
)

// CounterSource reads the live counters a scarcity display is based on.
type CounterSource interface {
	LiveCounters(ctx context.Context, productID, campaignID int64) (Counters, error)
}

// ViewStats reports page views and distinct visitors for a product.
type ViewStats interface {
	ViewStats(ctx context.Context, productID int64) (views, users int64, err error)
}

// CatalogCounters takes stock and sales from the catalog and views from ViewStats.
// A variable product that keeps no stock of its own counts its variations' stock.
type CatalogCounters struct {
	Catalog campaign.Catalog
	Views   ViewStats
}

func (c CatalogCounters) LiveCounters(ctx context.Context, productID, _ int64) (Counters, error) {
	p, err := c.Catalog.GetProduct(ctx, productID)
	if err != nil {
		return Counters{}, err
	}
	out := Counters{Stock: p.Stock, Sold: p.TotalSales}
	if p.Kind == campaign.ProductVariable && p.Stock == 0 {
		variations, err := c.Catalog.GetVariations(ctx, productID)
		if err != nil {
			return Counters{}, fmt.Errorf("failed to read variations: %w", err)
		}
		for _, v := range variations {
			out.Stock += v.Stock
		}
	}
	if c.Views != nil {
		views, users, err := c.Views.ViewStats(ctx, productID)
		if err != nil {
			return Counters{}, fmt.Errorf("failed to read view stats: %w", err)
		}
		out.Views, out.Users = views, users
	}
	return out, nil
}

type Service struct {
	baselines *BaselineStore
	source    CounterSource
	logger    *slog.Logger
}

func NewService(baselines *BaselineStore, source CounterSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		baselines: baselines,
		source:    source,
		logger:    logger.With("component", "scarcity"),
	}
}

// Display returns the numbers a scarcity widget shows for productID.
// A product missing from the catalog yields ok=false.
func (s *Service) Display(ctx context.Context, productID int64, c campaign.Campaign, family Family) (Display, bool, error) {
	live, err := s.source.LiveCounters(ctx, productID, c.ID)
	if errors.Is(err, campaign.ErrNotFound) {
		s.logger.Warn("scarcity skipped, unknown product", "product_id", productID, "campaign_id", c.ID)
		return Display{}, false, nil
	}
	if err != nil {
		return Display{}, false, err
	}

	b, err := s.baselines.EnsureInitialized(ctx, family, productID, c.ID, live)
	if err != nil {
		return Display{}, false, err
	}

	b, reset, err := s.baselines.ApplyRepeatInterval(ctx, family, productID, c.ID, c.Scarcity, live, b)
	if err != nil {
		return Display{}, false, err
	}
	if reset {
		s.logger.Info("scarcity countdown restarted",
			"product_id", productID, "campaign_id", c.ID, "family", family, "stock", live.Stock)
	}

	return Compute(c.Scarcity, live, b), true, nil
}
