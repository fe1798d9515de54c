package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"campaign_pricing/pricing/internal/auth"
	"campaign_pricing/pricing/internal/campaign"
	"campaign_pricing/pricing/internal/cart"
	"campaign_pricing/pricing/internal/eligibility"
	"campaign_pricing/pricing/internal/logic"
	"campaign_pricing/pricing/internal/reconcile"
	"campaign_pricing/pricing/internal/scarcity"
	"campaign_pricing/pricing/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingViews struct {
	views map[int64]int
}

func (v *countingViews) RecordView(_ context.Context, productID int64, _ string) error {
	v.views[productID]++
	return nil
}

type testServer struct {
	router *gin.Engine
	views  *countingViews
	token  string
}

func placements(positions ...string) []campaign.Placement {
	var out []campaign.Placement
	for _, p := range positions {
		out = append(out, campaign.Placement{Page: "product", DisplayMode: "inline", Position: p})
	}
	return out
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := store.NewStaticStore()
	st.PutProduct(campaign.Product{ID: 1, Kind: campaign.ProductSimple, RegularPrice: decimal.NewFromInt(100), Stock: 12, TotalSales: 3})
	st.PutProduct(campaign.Product{ID: 2, Kind: campaign.ProductSimple, RegularPrice: decimal.NewFromInt(40), Stock: 5})
	st.PutCampaign(campaign.Campaign{
		ID: 1, Name: "Twenty off", Type: campaign.NormalDiscount, Status: campaign.StatusPublish,
		Placements: placements("below_price", "below_cart"),
		Triggers:   []campaign.TriggerGroup{{Kind: campaign.TriggerProducts, ProductIDs: []int64{1}}},
		Offers:     []campaign.Offer{{DiscountType: campaign.Percentage, Value: decimal.NewFromInt(20), Quantity: 1, ProductIDs: []int64{1}}},
	})
	st.PutCampaign(campaign.Campaign{
		ID: 2, Name: "Hurry", Type: campaign.StockScarcity, Status: campaign.StatusPublish,
		Placements: placements("below_price"),
		Triggers:   []campaign.TriggerGroup{{Kind: campaign.TriggerAllProducts}},
		Scarcity:   campaign.ScarcitySettings{FakeEnabled: true, FakeQuantity: 7, LowAmount: 10, UrgentAmount: 3},
	})
	st.PutCampaign(campaign.Campaign{ID: 3, Type: campaign.NormalDiscount, Status: campaign.StatusDraft})

	db, err := store.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	meta := store.NewMetaStore(db, store.SQLite)
	require.NoError(t, meta.EnsureSchema(context.Background()))

	tokens, err := auth.NewTokens("test-secret", time.Hour)
	require.NoError(t, err)

	calc := logic.NewCalculator(nil)
	views := &countingViews{views: map[int64]int{}}
	baselines := scarcity.NewBaselineStore(meta)
	h := NewPricingHandler(Deps{
		Tokens:       tokens,
		Repo:         st,
		Catalog:      st,
		Resolver:     eligibility.NewResolver(st, st, nil, nil),
		Calc:         calc,
		Scarcity:     scarcity.NewService(baselines, scarcity.CatalogCounters{Catalog: st}, nil),
		Baselines:    baselines,
		Tracker:      cart.NewTracker(st, calc, nil, nil, nil),
		Reconciler:   reconcile.NewReconciler(st, st, calc, nil, nil),
		Sessions:     store.NewLocalSessions(),
		Views:        views,
		FlatShipping: decimal.NewFromInt(5),
	})

	s := &testServer{router: NewRouter(h, "admin-secret"), views: views}
	var created struct {
		SessionID string `json:"session_id"`
		Token     string `json:"token"`
	}
	w := s.do(t, http.MethodPost, "/api/session", nil, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	s.token = created.Token
	return s
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

type cartResponse struct {
	Cart struct {
		Lines  []cart.Line `json:"lines"`
		Totals cart.Totals `json:"totals"`
	} `json:"cart"`
	Result cart.AddResult `json:"result"`
}

func decodeCart(t *testing.T, w *httptest.ResponseRecorder) cartResponse {
	t.Helper()
	var out cartResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestSessionRequired(t *testing.T) {
	s := newTestServer(t)
	s.token = ""
	w := s.do(t, http.MethodGet, "/api/cart", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProductCampaigns(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/products/1/campaigns?page=product&display_mode=inline&position=below_price&position=below_cart", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out struct {
		Placements []placementView `json:"placements"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out.Placements, 2)

	first := out.Placements[0].Campaigns
	require.Len(t, first, 2)
	assert.Equal(t, int64(1), first[0].ID)
	assert.Equal(t, int64(2), first[1].ID)
	quote := first[0].Offers[0].Products[0]
	assert.True(t, quote.Regular.Equal(decimal.NewFromInt(100)))
	assert.True(t, quote.Offered.Equal(decimal.NewFromInt(80)))
	assert.True(t, quote.SavedPercent.Equal(decimal.NewFromInt(20)))
	assert.False(t, first[0].InCart)

	// Already rendered and not multi-render safe.
	assert.Empty(t, out.Placements[1].Campaigns)
	assert.Equal(t, 1, s.views.views[1])
}

func TestProductCampaigns_BadID(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/products/abc/campaigns", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProductScarcity(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/products/1/scarcity/2", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var d scarcity.Display
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))
	assert.Equal(t, int64(7), d.DisplayedQuantity)
	assert.Equal(t, scarcity.TierLow, d.MessageTier)

	w = s.do(t, http.MethodGet, "/api/products/99/scarcity/2", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(t, http.MethodGet, "/api/products/1/scarcity/3", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCartFlow(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/cart/campaign", gin.H{"campaign_id": 1, "product_id": 1}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	added := decodeCart(t, w)
	require.Len(t, added.Cart.Lines, 1)
	line := added.Cart.Lines[0]
	assert.True(t, line.UnitPrice.Equal(decimal.NewFromInt(80)))
	assert.True(t, added.Cart.Totals.Total.Equal(decimal.NewFromInt(85)))
	assert.Equal(t, []string{line.Key}, added.Result.Keys)

	w = s.do(t, http.MethodGet, "/api/products/1/campaigns?page=product&display_mode=inline&position=below_price", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed struct {
		Placements []placementView `json:"placements"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.True(t, listed.Placements[0].Campaigns[0].InCart)

	w = s.do(t, http.MethodDelete, "/api/cart/lines/"+line.Key, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeCart(t, w).Cart.Lines)

	w = s.do(t, http.MethodDelete, "/api/cart/lines/"+line.Key, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/cart/lines/"+line.Key+"/restore", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeCart(t, w).Cart.Lines, 1)

	w = s.do(t, http.MethodDelete, "/api/cart", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	emptied := decodeCart(t, w)
	assert.Empty(t, emptied.Cart.Lines)
	assert.True(t, emptied.Cart.Totals.Total.IsZero())
}

func TestUpdateQuantity(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/cart/campaign", gin.H{"campaign_id": 1, "product_id": 1}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	key := decodeCart(t, w).Cart.Lines[0].Key

	w = s.do(t, http.MethodPatch, "/api/cart/lines/"+key, gin.H{"quantity": 3}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decodeCart(t, w)
	require.Len(t, updated.Cart.Lines, 1)
	assert.Equal(t, 3, updated.Cart.Lines[0].Quantity)
	assert.True(t, updated.Cart.Totals.Total.Equal(decimal.NewFromInt(245)))

	w = s.do(t, http.MethodPatch, "/api/cart/lines/"+key, gin.H{}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPatch, "/api/cart/lines/"+key, gin.H{"quantity": 0}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeCart(t, w).Cart.Lines)

	w = s.do(t, http.MethodGet, "/api/products/1/campaigns?page=product&display_mode=inline&position=below_price", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed struct {
		Placements []placementView `json:"placements"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.False(t, listed.Placements[0].Campaigns[0].InCart)

	w = s.do(t, http.MethodPatch, "/api/cart/lines/"+key, gin.H{"quantity": 2}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddFromCampaign_Rejects(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/cart/campaign", gin.H{"product_id": 1}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/cart/campaign", gin.H{"campaign_id": 3, "product_id": 1}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/cart/campaign", gin.H{"campaign_id": 2, "product_id": 1}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestResetBaselines(t *testing.T) {
	s := newTestServer(t)
	body := gin.H{"product_id": 1, "campaign_id": 2}

	w := s.do(t, http.MethodPost, "/admin/scarcity/reset", body, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/admin/scarcity/reset", body, map[string]string{"X-Internal-Secret": "admin-secret"})
	assert.Equal(t, http.StatusNoContent, w.Code)
}
