package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zetta/backend/internal/interfaces/http/handler"
	"github.com/zetta/backend/internal/interfaces/http/middleware"
)

// Handlers are the endpoint groups served by the API
type Handlers struct {
	Settlement  *handler.SettlementHandler
	CatalogSync *handler.CatalogSyncHandler
	Webhook     *handler.WebhookHandler
	System      *handler.SystemHandler
}

// Options configures route mounting
type Options struct {
	// Auth guards everything under /api/v1
	Auth gin.HandlerFunc
	// WebhookLimiter throttles pushes per config id; nil disables it
	WebhookLimiter *middleware.RateLimiter
	// Metrics is served on /metrics when set
	Metrics http.Handler
}

// SettlementRoutes builds the settlement domain group. Anything that moves
// money is admin only; reads are scoped to the caller's seller.
func SettlementRoutes(h *handler.SettlementHandler) *DomainGroup {
	admin := middleware.RequireAdmin()

	g := NewDomainGroup("settlement", "/settlement")
	g.POST("/commissions", admin, h.RecordCommission).
		GET("/commissions", h.ListCommissions).
		GET("/payouts/preview", h.PreviewPayout).
		POST("/payments", admin, h.CreatePayment).
		GET("/payments", h.ListPayments).
		POST("/payments/bulk", admin, h.BulkProcess).
		GET("/payments/:id", h.GetPayment).
		POST("/payments/:id/process", admin, h.ProcessPayment).
		POST("/payments/:id/fail", admin, h.FailPayment).
		POST("/reconcile", admin, h.Reconcile)
	return g
}

// CatalogSyncRoutes builds the catalog sync domain group
func CatalogSyncRoutes(h *handler.CatalogSyncHandler) *DomainGroup {
	g := NewDomainGroup("catalog-sync", "/catalog-sync")
	configs := g.Group("configs", "/configs")
	configs.POST("", h.CreateConfig).
		GET("", h.ListConfigs).
		GET("/:id", h.GetConfig).
		PUT("/:id", h.UpdateConfig).
		POST("/:id/pause", h.PauseConfig).
		POST("/:id/resume", h.ResumeConfig).
		POST("/:id/run", h.RunSync).
		GET("/:id/logs", h.ListLogs)
	return g
}

// Mount registers every route on the engine. Health, metrics and webhooks
// are public; the versioned API sits behind opts.Auth.
func Mount(engine *gin.Engine, hs Handlers, opts Options) {
	if hs.System != nil {
		engine.GET("/health", hs.System.Health)
	}
	if opts.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	if hs.Webhook != nil {
		hooks := engine.Group("/api/webhooks")
		if opts.WebhookLimiter != nil {
			hooks.Use(middleware.RateLimitByKey(opts.WebhookLimiter, func(c *gin.Context) string {
				return "webhook:" + c.Param("config_id")
			}))
		}
		hooks.POST("/catalog-sync/:config_id", hs.Webhook.Receive)
	}

	r := NewRouter(engine, WithAPIVersion("v1"))
	r.Use(opts.Auth, middleware.SpanEnricher())

	if hs.Settlement != nil {
		r.Register(SettlementRoutes(hs.Settlement))
	}
	if hs.CatalogSync != nil {
		r.Register(CatalogSyncRoutes(hs.CatalogSync))
	}
	if hs.System != nil {
		r.Register(NewDomainGroup("system", "/system").GET("/info", hs.System.GetSystemInfo))
	}
	r.Setup()
}
