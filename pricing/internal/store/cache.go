package store

import (
	"context"
	"log"
	"slices"
	"sync"
	"time"

	"campaign_pricing/pricing/internal/campaign"
)

// CampaignCache serves campaign listings from a periodically refreshed
// snapshot. Single lookups always read through to the source.
type CampaignCache struct {
	source campaign.Repository

	mu     sync.RWMutex
	list   []campaign.Campaign
	loaded bool
}

func NewCampaignCache(source campaign.Repository) *CampaignCache {
	return &CampaignCache{source: source}
}

// Refresh replaces the snapshot with the source's current campaigns.
func (c *CampaignCache) Refresh(ctx context.Context) error {
	list, err := c.source.ListCampaigns(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.list = list
	c.loaded = true
	c.mu.Unlock()
	return nil
}

func (c *CampaignCache) ListCampaigns(ctx context.Context) ([]campaign.Campaign, error) {
	c.mu.RLock()
	list, loaded := c.list, c.loaded
	c.mu.RUnlock()
	if !loaded {
		if err := c.Refresh(ctx); err != nil {
			return nil, err
		}
		c.mu.RLock()
		list = c.list
		c.mu.RUnlock()
	}
	return slices.Clone(list), nil
}

func (c *CampaignCache) GetCampaign(ctx context.Context, id int64) (*campaign.Campaign, error) {
	return c.source.GetCampaign(ctx, id)
}

// Run refreshes the snapshot every interval until ctx is done.
func (c *CampaignCache) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refreshCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			if err := c.Refresh(refreshCtx); err != nil {
				log.Printf("[pricing] campaign refresh failed: %v", err)
			}
			cancel()
		}
	}
}
