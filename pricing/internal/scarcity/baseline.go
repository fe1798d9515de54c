package scarcity

import (
	"context"
	"fmt"
	"strconv"
)

// MetaKey addresses one opaque value in the product metadata store.
type MetaKey struct {
	ProductID  int64
	CampaignID int64
	Field      string
}

// MetaStore is the key-value metadata store baselines are persisted in.
// No transactional guarantees are assumed.
type MetaStore interface {
	Get(ctx context.Context, key MetaKey) (string, bool, error)
	Set(ctx context.Context, key MetaKey, value string) error
	Delete(ctx context.Context, key MetaKey) error
}

// Family separates baseline sets so display modes never share counters.
type Family string

const (
	General Family = "general"
	Flip    Family = "flip"
)

type counter string

const (
	counterQuantity counter = "quantity"
	counterSold     counter = "sold"
	counterViews    counter = "views"
	counterUsers    counter = "users"
)

var counters = []counter{counterQuantity, counterSold, counterViews, counterUsers}

func (f Family) prefix() string {
	if f == Flip {
		return "scarcity_flip_"
	}
	return "scarcity_"
}

func (f Family) field(c counter) string {
	return f.prefix() + "baseline_" + string(c)
}

func (f Family) markerField() string {
	return f.prefix() + "repeat_reset_stock"
}

// Counters are live values read from the catalog and view tracking.
type Counters struct {
	Stock int64
	Sold  int64
	Views int64
	Users int64
}

func (c Counters) get(k counter) int64 {
	switch k {
	case counterQuantity:
		return c.Stock
	case counterSold:
		return c.Sold
	case counterViews:
		return c.Views
	default:
		return c.Users
	}
}

// Baselines are the persisted snapshots of Counters.
type Baselines struct {
	Quantity int64
	Sold     int64
	Views    int64
	Users    int64
}

func (b *Baselines) set(k counter, v int64) {
	switch k {
	case counterQuantity:
		b.Quantity = v
	case counterSold:
		b.Sold = v
	case counterViews:
		b.Views = v
	default:
		b.Users = v
	}
}

type BaselineStore struct {
	meta MetaStore
}

func NewBaselineStore(meta MetaStore) *BaselineStore {
	return &BaselineStore{meta: meta}
}

// EnsureInitialized reads the four baselines for (product, campaign),
// creating each missing one from the matching live value. Existing
// baselines are never overwritten.
func (s *BaselineStore) EnsureInitialized(ctx context.Context, family Family, productID, campaignID int64, live Counters) (Baselines, error) {
	var b Baselines
	for _, c := range counters {
		key := MetaKey{ProductID: productID, CampaignID: campaignID, Field: family.field(c)}
		v, ok, err := s.readInt(ctx, key)
		if err != nil {
			return Baselines{}, err
		}
		if !ok {
			v = live.get(c)
			if err := s.meta.Set(ctx, key, strconv.FormatInt(v, 10)); err != nil {
				return Baselines{}, fmt.Errorf("failed to store baseline %s: %w", key.Field, err)
			}
		}
		b.set(c, v)
	}
	return b, nil
}

// ApplyRepeatInterval restarts the fake countdown once the fake quantity
// has run down to zero while real stock still covers the configured amount.
// It resets at most once for a given live stock value.
func (s *BaselineStore) ApplyRepeatInterval(ctx context.Context, family Family, productID, campaignID int64, cfg Settings, live Counters, b Baselines) (Baselines, bool, error) {
	if !cfg.FakeEnabled || !cfg.RepeatInterval {
		return b, false, nil
	}
	if live.Stock < cfg.FakeQuantity || RawFakeQuantity(cfg, live, b) != 0 {
		return b, false, nil
	}

	marker := MetaKey{ProductID: productID, CampaignID: campaignID, Field: family.markerField()}
	last, ok, err := s.readInt(ctx, marker)
	if err != nil {
		return b, false, err
	}
	if ok && last == live.Stock {
		return b, false, nil
	}

	key := MetaKey{ProductID: productID, CampaignID: campaignID, Field: family.field(counterQuantity)}
	if err := s.meta.Set(ctx, key, strconv.FormatInt(live.Stock, 10)); err != nil {
		return b, false, fmt.Errorf("failed to reset baseline: %w", err)
	}
	if err := s.meta.Set(ctx, marker, strconv.FormatInt(live.Stock, 10)); err != nil {
		return b, false, fmt.Errorf("failed to store repeat marker: %w", err)
	}
	b.Quantity = live.Stock
	return b, true, nil
}

// Reset removes every baseline of the family so the next read starts fresh.
func (s *BaselineStore) Reset(ctx context.Context, family Family, productID, campaignID int64) error {
	fields := []string{family.markerField()}
	for _, c := range counters {
		fields = append(fields, family.field(c))
	}
	for _, f := range fields {
		if err := s.meta.Delete(ctx, MetaKey{ProductID: productID, CampaignID: campaignID, Field: f}); err != nil {
			return fmt.Errorf("failed to delete %s: %w", f, err)
		}
	}
	return nil
}

func (s *BaselineStore) readInt(ctx context.Context, key MetaKey) (int64, bool, error) {
	raw, ok, err := s.meta.Get(ctx, key)
	if err != nil {
		return 0, false, fmt.Errorf("failed to read %s: %w", key.Field, err)
	}
	if !ok {
		return 0, false, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// Garbage in the store is treated as missing and re-seeded.
		return 0, false, nil
	}
	return v, true, nil
}
