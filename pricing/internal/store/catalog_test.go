package store

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"campaign_pricing/pricing/internal/campaign"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var productColumns = []string{"id", "parent_id", "kind", "regular_price", "sale_price", "stock", "total_sales", "hidden_campaign_ids"}

func TestCatalogStore_GetProduct(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewCatalogStore(db)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, parent_id, kind, regular_price")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(productColumns).
			AddRow(int64(5), nil, "variable", "100.00", "79.90", int64(12), int64(40), "{7,9}"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM products WHERE parent_id = $1")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(6)).AddRow(int64(8)))

	p, err := s.GetProduct(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, campaign.ProductVariable, p.Kind)
	assert.Equal(t, int64(0), p.ParentID)
	assert.Equal(t, "100", p.RegularPrice.String())
	assert.Equal(t, "79.9", p.SalePrice.String())
	assert.Equal(t, int64(12), p.Stock)
	assert.Equal(t, []int64{7, 9}, p.HiddenCampaignIDs)
	assert.Equal(t, []int64{6, 8}, p.VariationIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogStore_GetProductNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, parent_id, kind")).
		WithArgs(int64(404)).
		WillReturnError(sql.ErrNoRows)

	_, err = NewCatalogStore(db).GetProduct(context.Background(), 404)
	assert.ErrorIs(t, err, campaign.ErrNotFound)
}

func TestCatalogStore_ProductInCategory(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM product_categories")).
		WithArgs(int64(5), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := NewCatalogStore(db).ProductInCategory(context.Background(), 5, 3)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCampaignStore_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	definition := `{"name":"Summer","offers":[{"discount_type":"percentage","value":"15","quantity":1,"product_ids":[5]}],"free_shipping":true}`
	mock.ExpectQuery(regexp.QuoteMeta("FROM campaigns")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "type", "status", "priority", "definition"}).
			AddRow(int64(4), "normal_discount", "publish", 1, []byte(definition)).
			AddRow(int64(9), "stock_scarcity", "draft", 2, nil))

	list, err := NewCampaignStore(db).ListCampaigns(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)

	c := list[0]
	assert.Equal(t, int64(4), c.ID)
	assert.Equal(t, campaign.NormalDiscount, c.Type)
	assert.True(t, c.Published())
	assert.True(t, c.FreeShipping)
	require.Len(t, c.Offers, 1)
	assert.Equal(t, "15", c.Offers[0].Value.String())
	assert.Equal(t, []int64{5}, c.OfferProductIDs())

	assert.Equal(t, campaign.StockScarcity, list[1].Type)
	assert.False(t, list[1].Published())
}

func TestCampaignStore_GetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM campaigns")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"type", "status", "priority", "definition"}))

	_, err = NewCampaignStore(db).GetCampaign(context.Background(), 1)
	assert.ErrorIs(t, err, campaign.ErrNotFound)
}

func TestCampaignStore_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewCampaignStore(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO campaigns")).
		WithArgs(int64(4), "normal_discount", "publish", 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = s.UpsertCampaign(context.Background(), campaign.Campaign{ID: 4, Type: campaign.NormalDiscount, Status: campaign.StatusPublish, Priority: 1})
	require.NoError(t, err)

	err = s.UpsertCampaign(context.Background(), campaign.Campaign{ID: 5, Type: "mystery"})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
