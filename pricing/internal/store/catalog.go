package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"campaign_pricing/pricing/internal/campaign"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// CatalogStore reads products and category membership from Postgres.
type CatalogStore struct {
	db *sql.DB
}

func NewCatalogStore(db *sql.DB) *CatalogStore {
	return &CatalogStore{db: db}
}

func (s *CatalogStore) GetProduct(ctx context.Context, id int64) (*campaign.Product, error) {
	query := `
		SELECT id, parent_id, kind, regular_price, sale_price, stock, total_sales, hidden_campaign_ids
		FROM products
		WHERE id = $1
	`
	var p campaign.Product
	var parentID sql.NullInt64
	var sale decimal.NullDecimal
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &parentID, &p.Kind, &p.RegularPrice, &sale, &p.Stock, &p.TotalSales,
		pq.Array(&p.HiddenCampaignIDs),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, campaign.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	p.ParentID = parentID.Int64
	if sale.Valid {
		p.SalePrice = sale.Decimal
	}

	if p.Kind == campaign.ProductVariable {
		if p.VariationIDs, err = s.variationIDs(ctx, p.ID); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

func (s *CatalogStore) variationIDs(ctx context.Context, parentID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM products WHERE parent_id = $1 ORDER BY id`, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list variations: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *CatalogStore) GetVariations(ctx context.Context, parentID int64) ([]campaign.Product, error) {
	ids, err := s.variationIDs(ctx, parentID)
	if err != nil {
		return nil, err
	}
	out := make([]campaign.Product, 0, len(ids))
	for _, id := range ids {
		p, err := s.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

func (s *CatalogStore) ProductInCategory(ctx context.Context, productID, categoryID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM product_categories
			WHERE product_id = $1 AND category_id = $2
		)
	`
	var ok bool
	if err := s.db.QueryRowContext(ctx, query, productID, categoryID).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check category: %w", err)
	}
	return ok, nil
}

// CampaignStore reads campaigns kept as JSONB definitions in Postgres.
type CampaignStore struct {
	db *sql.DB
}

func NewCampaignStore(db *sql.DB) *CampaignStore {
	return &CampaignStore{db: db}
}

func scanCampaign(id int64, typ, status string, priority int, definition []byte) (campaign.Campaign, error) {
	var c campaign.Campaign
	if len(definition) > 0 {
		if err := json.Unmarshal(definition, &c); err != nil {
			return c, fmt.Errorf("failed to decode campaign %d: %w", id, err)
		}
	}
	c.ID = id
	c.Type = campaign.Type(typ)
	c.Status = campaign.Status(status)
	c.Priority = priority
	return c, nil
}

func (s *CampaignStore) ListCampaigns(ctx context.Context) ([]campaign.Campaign, error) {
	query := `
		SELECT id, type, status, priority, definition
		FROM campaigns
		ORDER BY priority, id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	var out []campaign.Campaign
	for rows.Next() {
		var (
			id         int64
			typ        string
			status     string
			priority   int
			definition []byte
		)
		if err := rows.Scan(&id, &typ, &status, &priority, &definition); err != nil {
			return nil, err
		}
		c, err := scanCampaign(id, typ, status, priority, definition)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *CampaignStore) GetCampaign(ctx context.Context, id int64) (*campaign.Campaign, error) {
	query := `
		SELECT type, status, priority, definition
		FROM campaigns
		WHERE id = $1
	`
	var (
		typ        string
		status     string
		priority   int
		definition []byte
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(&typ, &status, &priority, &definition)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, campaign.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	c, err := scanCampaign(id, typ, status, priority, definition)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpsertCampaign writes a campaign, replacing the stored definition when
// the id already exists.
func (s *CampaignStore) UpsertCampaign(ctx context.Context, c campaign.Campaign) error {
	if !c.Type.Valid() {
		return fmt.Errorf("unknown campaign type %q", c.Type)
	}
	definition, err := json.Marshal(c)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO campaigns (id, type, status, priority, definition)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id)
		DO UPDATE SET
			type = EXCLUDED.type,
			status = EXCLUDED.status,
			priority = EXCLUDED.priority,
			definition = EXCLUDED.definition
	`
	_, err = s.db.ExecContext(ctx, query, c.ID, string(c.Type), string(c.Status), c.Priority, definition)
	if err != nil {
		return fmt.Errorf("failed to upsert campaign: %w", err)
	}
	return nil
}
