package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"campaign_pricing/pricing/internal/auth"
	"campaign_pricing/pricing/internal/campaign"
	"campaign_pricing/pricing/internal/cart"
	"campaign_pricing/pricing/internal/eligibility"
	"campaign_pricing/pricing/internal/logic"
	"campaign_pricing/pricing/internal/reconcile"
	"campaign_pricing/pricing/internal/scarcity"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ViewRecorder counts product page views for scarcity counters.
type ViewRecorder interface {
	RecordView(ctx context.Context, productID int64, visitorID string) error
}

type Deps struct {
	Tokens       *auth.Tokens
	Repo         campaign.Repository
	Catalog      campaign.Catalog
	Resolver     *eligibility.Resolver
	Calc         *logic.Calculator
	Display      logic.TaxDisplay
	Scarcity     *scarcity.Service
	Baselines    *scarcity.BaselineStore
	Tracker      *cart.Tracker
	Reconciler   *reconcile.Reconciler
	Sessions     cart.SessionStore
	Views        ViewRecorder
	FlatShipping decimal.Decimal
}

type PricingHandler struct {
	Deps
}

func NewPricingHandler(d Deps) *PricingHandler {
	if d.Calc == nil {
		d.Calc = logic.NewCalculator(nil)
	}
	return &PricingHandler{Deps: d}
}

func (h *PricingHandler) session(c *gin.Context) *cart.Session {
	id := auth.SessionID(c)
	return cart.NewSession(id, cart.NewSessionCart(h.Sessions, id, h.FlatShipping), h.Sessions)
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// POST /api/session
func (h *PricingHandler) CreateSession(c *gin.Context) {
	sessionID, token, err := h.Tokens.NewSession()
	if err != nil {
		log.Printf("[session] token generation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Token generation failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session_id": sessionID, "token": token})
}

type productQuote struct {
	ProductID    int64           `json:"product_id"`
	Quantity     int             `json:"quantity"`
	Regular      decimal.Decimal `json:"regular_price"`
	Offered      decimal.Decimal `json:"offered_price"`
	SavedPercent decimal.Decimal `json:"saved_percent"`
}

type offerView struct {
	DiscountType campaign.DiscountType `json:"discount_type"`
	Value        decimal.Decimal       `json:"value"`
	Quantity     int                   `json:"quantity"`
	Products     []productQuote        `json:"products"`
}

type campaignView struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	Type         campaign.Type `json:"type"`
	Priority     int           `json:"priority"`
	FreeShipping bool          `json:"free_shipping"`
	InCart       bool          `json:"in_cart"`
	Offers       []offerView   `json:"offers"`
}

type placementView struct {
	Position  string         `json:"position"`
	Campaigns []campaignView `json:"campaigns"`
}

// GET /api/products/:id/campaigns?page=&display_mode=&position=
// Several positions share one render context, so single-render campaigns
// show up at the first position only.
func (h *PricingHandler) ProductCampaigns(c *gin.Context) {
	productID, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	sess := h.session(c)

	if h.Views != nil {
		if err := h.Views.RecordView(ctx, productID, sess.ID); err != nil {
			log.Printf("[campaigns] WARN view not recorded product=%d: %v", productID, err)
		}
	}

	positions := c.QueryArray("position")
	if len(positions) == 0 {
		positions = []string{""}
	}
	rc := eligibility.NewRenderContext()
	out := make([]placementView, 0, len(positions))
	for _, pos := range positions {
		found, err := h.Resolver.Resolve(ctx, rc, productID, c.Query("page"), c.Query("display_mode"), pos)
		if err != nil {
			log.Printf("[campaigns] resolve failed product=%d: %v", productID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve campaigns"})
			return
		}
		pv := placementView{Position: pos, Campaigns: []campaignView{}}
		for _, camp := range found {
			view, err := h.campaignView(ctx, sess, camp, productID)
			if err != nil {
				log.Printf("[campaigns] quote failed campaign=%d: %v", camp.ID, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to price campaign"})
				return
			}
			pv.Campaigns = append(pv.Campaigns, view)
		}
		out = append(out, pv)
	}
	c.JSON(http.StatusOK, gin.H{"product_id": productID, "placements": out})
}

func (h *PricingHandler) campaignView(ctx context.Context, sess *cart.Session, camp campaign.Campaign, productID int64) (campaignView, error) {
	inCart, err := h.Tracker.InCart(ctx, sess, camp.ID, productID)
	if err != nil {
		return campaignView{}, err
	}
	view := campaignView{
		ID:           camp.ID,
		Name:         camp.Name,
		Type:         camp.Type,
		Priority:     camp.Priority,
		FreeShipping: camp.FreeShipping,
		InCart:       inCart,
		Offers:       make([]offerView, 0, len(camp.Offers)),
	}
	for _, o := range camp.Offers {
		ids := o.ProductIDs
		if len(ids) == 0 {
			ids = []int64{productID}
		}
		ov := offerView{DiscountType: o.DiscountType, Value: o.Value, Quantity: o.Quantity, Products: []productQuote{}}
		for _, id := range ids {
			p, err := h.Catalog.GetProduct(ctx, id)
			if errors.Is(err, campaign.ErrNotFound) {
				continue
			}
			if err != nil {
				return campaignView{}, err
			}
			q := h.Calc.Quote(o, *p, o.Quantity)
			ov.Products = append(ov.Products, productQuote{
				ProductID:    id,
				Quantity:     max(o.Quantity, 1),
				Regular:      h.Display.Display(q.Regular),
				Offered:      h.Display.Display(q.Offered),
				SavedPercent: q.SavedPercent,
			})
		}
		view.Offers = append(view.Offers, ov)
	}
	return view, nil
}

// GET /api/products/:id/scarcity/:campaignID?family=flip
func (h *PricingHandler) ProductScarcity(c *gin.Context) {
	productID, ok := pathID(c, "id")
	if !ok {
		return
	}
	campaignID, ok := pathID(c, "campaignID")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	camp, err := h.Repo.GetCampaign(ctx, campaignID)
	if errors.Is(err, campaign.ErrNotFound) || (err == nil && !camp.Published()) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Campaign not found"})
		return
	}
	if err != nil {
		log.Printf("[scarcity] campaign lookup failed campaign=%d: %v", campaignID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load campaign"})
		return
	}

	family := scarcity.General
	if c.Query("family") == string(scarcity.Flip) {
		family = scarcity.Flip
	}
	display, found, err := h.Scarcity.Display(ctx, productID, *camp, family)
	if err != nil {
		log.Printf("[scarcity] display failed product=%d campaign=%d: %v", productID, campaignID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute scarcity"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	c.JSON(http.StatusOK, display)
}

type campaignAddRequest struct {
	CampaignID int64 `json:"campaign_id" binding:"required"`
	cart.AddRequest
}

type cartView struct {
	Lines        []cart.Line `json:"lines"`
	Totals       cart.Totals `json:"totals"`
	FreeShipping bool        `json:"free_shipping"`
}

// reconciled runs the reconciliation pass and reads the resulting cart.
func (h *PricingHandler) reconciled(ctx context.Context, sess *cart.Session) (cartView, error) {
	res, err := h.Reconciler.Run(ctx, sess)
	if err != nil {
		return cartView{}, err
	}
	lines, err := sess.Cart.Lines(ctx)
	if err != nil {
		return cartView{}, err
	}
	if lines == nil {
		lines = []cart.Line{}
	}
	return cartView{Lines: lines, Totals: res.Totals, FreeShipping: res.FreeShipping}, nil
}

func (h *PricingHandler) respondCart(c *gin.Context, sess *cart.Session, status int, extra gin.H) {
	view, err := h.reconciled(c.Request.Context(), sess)
	if err != nil {
		log.Printf("[cart] reconcile failed session=%s: %v", sess.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reconcile cart"})
		return
	}
	body := gin.H{"cart": view}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(status, body)
}

// POST /api/cart/campaign
func (h *PricingHandler) AddFromCampaign(c *gin.Context) {
	var req campaignAddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	ctx := c.Request.Context()
	sess := h.session(c)

	camp, err := h.Repo.GetCampaign(ctx, req.CampaignID)
	if errors.Is(err, campaign.ErrNotFound) || (err == nil && !camp.Published()) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Campaign not found"})
		return
	}
	if err != nil {
		log.Printf("[cart] campaign lookup failed campaign=%d: %v", req.CampaignID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load campaign"})
		return
	}

	res, err := h.Tracker.AddFromCampaign(ctx, sess, *camp, req.AddRequest)
	if err != nil {
		log.Printf("[cart] add failed session=%s campaign=%d: %v", sess.ID, camp.ID, err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Campaign cannot be added to cart"})
		return
	}
	log.Printf("[cart] session=%s campaign=%d added=%d failed=%v", sess.ID, camp.ID, len(res.Keys), res.Failed)

	status := http.StatusCreated
	if !res.AllAdded {
		status = http.StatusMultiStatus
	}
	h.respondCart(c, sess, status, gin.H{"result": res})
}

// DELETE /api/cart/lines/:key
func (h *PricingHandler) RemoveLine(c *gin.Context) {
	sess := h.session(c)
	if _, err := h.Tracker.Remove(c.Request.Context(), sess, c.Param("key")); err != nil {
		h.lineError(c, err)
		return
	}
	h.respondCart(c, sess, http.StatusOK, nil)
}

type quantityRequest struct {
	Quantity *int `json:"quantity" binding:"required,min=0"`
}

// PATCH /api/cart/lines/:key
func (h *PricingHandler) UpdateQuantity(c *gin.Context) {
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	sess := h.session(c)
	if err := h.Tracker.UpdateQuantity(c.Request.Context(), sess, c.Param("key"), *req.Quantity); err != nil {
		h.lineError(c, err)
		return
	}
	h.respondCart(c, sess, http.StatusOK, nil)
}

// POST /api/cart/lines/:key/restore
func (h *PricingHandler) RestoreLine(c *gin.Context) {
	sess := h.session(c)
	if _, err := h.Tracker.Restore(c.Request.Context(), sess, c.Param("key")); err != nil {
		h.lineError(c, err)
		return
	}
	h.respondCart(c, sess, http.StatusOK, nil)
}

func (h *PricingHandler) lineError(c *gin.Context, err error) {
	if errors.Is(err, cart.ErrLineNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cart line not found"})
		return
	}
	log.Printf("[cart] line update failed: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart"})
}

// DELETE /api/cart
func (h *PricingHandler) EmptyCart(c *gin.Context) {
	sess := h.session(c)
	if err := h.Tracker.Empty(c.Request.Context(), sess); err != nil {
		log.Printf("[cart] empty failed session=%s: %v", sess.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to empty cart"})
		return
	}
	h.respondCart(c, sess, http.StatusOK, nil)
}

// GET /api/cart
func (h *PricingHandler) GetCart(c *gin.Context) {
	h.respondCart(c, h.session(c), http.StatusOK, nil)
}

type baselineResetRequest struct {
	ProductID  int64  `json:"product_id" binding:"required"`
	CampaignID int64  `json:"campaign_id" binding:"required"`
	Family     string `json:"family"`
}

// POST /admin/scarcity/reset
func (h *PricingHandler) ResetBaselines(c *gin.Context) {
	var req baselineResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	family := scarcity.General
	if req.Family == string(scarcity.Flip) {
		family = scarcity.Flip
	}
	if err := h.Baselines.Reset(c.Request.Context(), family, req.ProductID, req.CampaignID); err != nil {
		log.Printf("[admin] baseline reset failed product=%d campaign=%d: %v", req.ProductID, req.CampaignID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset baselines"})
		return
	}
	log.Printf("[admin] scarcity baselines reset product=%d campaign=%d family=%s", req.ProductID, req.CampaignID, family)
	c.Status(http.StatusNoContent)
}
