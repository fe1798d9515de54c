package handler

import (
	"net/http"

	"campaign_pricing/pricing/internal/auth"

	"github.com/gin-gonic/gin"
)

func NewRouter(h *PricingHandler, internalSecret string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// --- PUBLIC ROUTES ---
	r.POST("/api/session", h.CreateSession)

	// --- SESSION ROUTES (Require a session token) ---
	api := r.Group("/api", auth.SessionMiddleware(h.Tokens))
	api.GET("/products/:id/campaigns", h.ProductCampaigns)
	api.GET("/products/:id/scarcity/:campaignID", h.ProductScarcity)
	api.GET("/cart", h.GetCart)
	api.DELETE("/cart", h.EmptyCart)
	api.POST("/cart/campaign", h.AddFromCampaign)
	api.PATCH("/cart/lines/:key", h.UpdateQuantity)
	api.DELETE("/cart/lines/:key", h.RemoveLine)
	api.POST("/cart/lines/:key/restore", h.RestoreLine)

	// --- INTERNAL ROUTES ---
	admin := r.Group("/admin", auth.InternalMiddleware(internalSecret))
	admin.POST("/scarcity/reset", h.ResetBaselines)

	return r
}
