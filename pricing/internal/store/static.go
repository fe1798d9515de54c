package store

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sort"
	"sync"

	"campaign_pricing/pricing/internal/campaign"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// FixtureProduct is the YAML shape of a catalog product.
type FixtureProduct struct {
	ID                int64           `yaml:"id"`
	ParentID          int64           `yaml:"parent_id"`
	Kind              string          `yaml:"kind"`
	RegularPrice      decimal.Decimal `yaml:"regular_price"`
	SalePrice         decimal.Decimal `yaml:"sale_price"`
	Stock             int64           `yaml:"stock"`
	TotalSales        int64           `yaml:"total_sales"`
	CategoryIDs       []int64         `yaml:"category_ids"`
	HiddenCampaignIDs []int64         `yaml:"hidden_campaign_ids"`
}

// Fixture is a campaigns file used for local runs without Postgres.
type Fixture struct {
	Campaigns []campaign.Campaign `yaml:"campaigns"`
	Products  []FixtureProduct    `yaml:"products"`
}

// StaticStore serves campaigns and products held in memory.
// It implements both campaign.Repository and campaign.Catalog.
type StaticStore struct {
	mu         sync.RWMutex
	campaigns  map[int64]campaign.Campaign
	products   map[int64]campaign.Product
	categories map[int64][]int64
}

func NewStaticStore() *StaticStore {
	return &StaticStore{
		campaigns:  make(map[int64]campaign.Campaign),
		products:   make(map[int64]campaign.Product),
		categories: make(map[int64][]int64),
	}
}

// LoadCampaignFile reads a YAML fixture from disk.
func LoadCampaignFile(path string) (*StaticStore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read campaigns file: %w", err)
	}
	return ParseFixture(raw)
}

// ParseFixture builds a StaticStore from YAML bytes.
func ParseFixture(raw []byte) (*StaticStore, error) {
	var f Fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse campaigns file: %w", err)
	}
	s := NewStaticStore()
	for _, c := range f.Campaigns {
		if !c.Type.Valid() {
			return nil, fmt.Errorf("campaign %d: unknown type %q", c.ID, c.Type)
		}
		s.PutCampaign(c)
	}
	for _, fp := range f.Products {
		kind := campaign.ProductKind(fp.Kind)
		if kind == "" {
			kind = campaign.ProductSimple
		}
		s.PutProduct(campaign.Product{
			ID:                fp.ID,
			ParentID:          fp.ParentID,
			Kind:              kind,
			RegularPrice:      fp.RegularPrice,
			SalePrice:         fp.SalePrice,
			Stock:             fp.Stock,
			TotalSales:        fp.TotalSales,
			HiddenCampaignIDs: fp.HiddenCampaignIDs,
		}, fp.CategoryIDs...)
	}
	return s, nil
}

func (s *StaticStore) PutCampaign(c campaign.Campaign) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.campaigns[c.ID] = c
}

// PutProduct stores p and links variations to their parent.
func (s *StaticStore) PutProduct(p campaign.Product, categoryIDs ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
	s.categories[p.ID] = categoryIDs
	if p.ParentID > 0 {
		if parent, ok := s.products[p.ParentID]; ok && !slices.Contains(parent.VariationIDs, p.ID) {
			parent.VariationIDs = append(parent.VariationIDs, p.ID)
			s.products[p.ParentID] = parent
		}
	}
}

func (s *StaticStore) ListCampaigns(_ context.Context) ([]campaign.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]campaign.Campaign, 0, len(s.campaigns))
	for _, c := range s.campaigns {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *StaticStore) GetCampaign(_ context.Context, id int64) (*campaign.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.campaigns[id]
	if !ok {
		return nil, campaign.ErrNotFound
	}
	return &c, nil
}

func (s *StaticStore) GetProduct(_ context.Context, id int64) (*campaign.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, campaign.ErrNotFound
	}
	return &p, nil
}

func (s *StaticStore) GetVariations(_ context.Context, parentID int64) ([]campaign.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []campaign.Product
	for _, p := range s.products {
		if p.ParentID == parentID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *StaticStore) ProductInCategory(_ context.Context, productID, categoryID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.categories[productID], categoryID), nil
}
