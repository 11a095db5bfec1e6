package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	syncapp "github.com/zetta/backend/internal/application/catalogsync"
	"github.com/zetta/backend/internal/domain/catalogsync"
	"github.com/zetta/backend/internal/domain/shared"
	"github.com/zetta/backend/internal/interfaces/http/dto"
	"github.com/zetta/backend/internal/interfaces/http/middleware"
)

// CatalogSyncService is the sync config surface the handler drives
type CatalogSyncService interface {
	CreateConfig(ctx context.Context, cmd syncapp.CreateConfigCommand) (*syncapp.CreateConfigResult, error)
	UpdateConfig(ctx context.Context, id uuid.UUID, cmd syncapp.UpdateConfigCommand) (*syncapp.ConfigResponse, error)
	PauseConfig(ctx context.Context, id uuid.UUID) (*syncapp.ConfigResponse, error)
	ResumeConfig(ctx context.Context, id uuid.UUID) (*syncapp.ConfigResponse, error)
	GetConfig(ctx context.Context, id uuid.UUID) (*syncapp.ConfigResponse, error)
	ListConfigs(ctx context.Context, filter catalogsync.SyncConfigFilter) (shared.Paginated[syncapp.ConfigResponse], error)
	ListSyncLogs(ctx context.Context, filter catalogsync.SyncLogFilter) (shared.Paginated[syncapp.SyncLogResponse], error)
	RunSync(ctx context.Context, configID uuid.UUID) (*syncapp.SyncLogResponse, error)
}

// CatalogSyncHandler serves sync config management endpoints
type CatalogSyncHandler struct {
	BaseHandler
	service CatalogSyncService
}

// NewCatalogSyncHandler creates a new CatalogSyncHandler
func NewCatalogSyncHandler(service CatalogSyncService) *CatalogSyncHandler {
	return &CatalogSyncHandler{service: service}
}

// CreateConfigRequest registers a catalog source. Sellers may omit seller_id.
type CreateConfigRequest struct {
	SellerID      string            `json:"seller_id" binding:"omitempty,uuid"`
	SyncType      string            `json:"sync_type" binding:"required"`
	SourceURL     string            `json:"source_url"`
	APIKey        string            `json:"api_key"`
	WebhookSecret string            `json:"webhook_secret"`
	MappingRules  map[string]string `json:"mapping_rules"`
	Schedule      string            `json:"schedule" binding:"required"`
	AutoApprove   bool              `json:"auto_approve"`
}

// ListConfigsRequest filters the config listing
type ListConfigsRequest struct {
	dto.ListRequest
	SellerID string `form:"seller_id" binding:"omitempty,uuid"`
	Status   string `form:"status" binding:"omitempty,oneof=active paused error"`
	SyncType string `form:"sync_type" binding:"omitempty,oneof=api csv xml webhook"`
}

// ListLogsRequest filters a config's run history
type ListLogsRequest struct {
	dto.ListRequest
	Status string `form:"status" binding:"omitempty,oneof=running success failed"`
}

// CreateConfig handles POST /catalog-sync/configs
func (h *CatalogSyncHandler) CreateConfig(c *gin.Context) {
	var req CreateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	requested, err := parseOptionalUUID(req.SellerID)
	if err != nil {
		h.HandleError(c, catalogsync.ErrInvalidSellerID)
		return
	}
	sellerID, err := middleware.ScopeSeller(c, requested)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if sellerID == nil {
		h.BadRequest(c, "seller_id is required")
		return
	}

	result, err := h.service.CreateConfig(c.Request.Context(), syncapp.CreateConfigCommand{
		SellerID:      *sellerID,
		SyncType:      req.SyncType,
		SourceURL:     req.SourceURL,
		APIKey:        req.APIKey,
		WebhookSecret: req.WebhookSecret,
		MappingRules:  req.MappingRules,
		Schedule:      req.Schedule,
		AutoApprove:   req.AutoApprove,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// ListConfigs handles GET /catalog-sync/configs
func (h *CatalogSyncHandler) ListConfigs(c *gin.Context) {
	var req ListConfigsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}
	requested, err := parseOptionalUUID(req.SellerID)
	if err != nil {
		h.HandleError(c, catalogsync.ErrInvalidSellerID)
		return
	}
	sellerID, err := middleware.ScopeSeller(c, requested)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	page, err := h.service.ListConfigs(c.Request.Context(), catalogsync.SyncConfigFilter{
		Page:     req.ToPage(),
		SellerID: sellerID,
		Status:   catalogsync.ConfigStatus(req.Status),
		SyncType: catalogsync.SyncType(req.SyncType),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPaginatedResponse(page))
}

// GetConfig handles GET /catalog-sync/configs/:id
func (h *CatalogSyncHandler) GetConfig(c *gin.Context) {
	cfg, ok := h.ownedConfig(c)
	if !ok {
		return
	}
	h.Success(c, cfg)
}

// UpdateConfig handles PUT /catalog-sync/configs/:id
func (h *CatalogSyncHandler) UpdateConfig(c *gin.Context) {
	cfg, ok := h.ownedConfig(c)
	if !ok {
		return
	}
	var cmd syncapp.UpdateConfigCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		h.BindError(c, err)
		return
	}

	updated, err := h.service.UpdateConfig(c.Request.Context(), cfg.ID, cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, updated)
}

// PauseConfig handles POST /catalog-sync/configs/:id/pause
func (h *CatalogSyncHandler) PauseConfig(c *gin.Context) {
	cfg, ok := h.ownedConfig(c)
	if !ok {
		return
	}
	updated, err := h.service.PauseConfig(c.Request.Context(), cfg.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, updated)
}

// ResumeConfig handles POST /catalog-sync/configs/:id/resume
func (h *CatalogSyncHandler) ResumeConfig(c *gin.Context) {
	cfg, ok := h.ownedConfig(c)
	if !ok {
		return
	}
	updated, err := h.service.ResumeConfig(c.Request.Context(), cfg.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, updated)
}

// RunSync handles POST /catalog-sync/configs/:id/run. A run that fails
// upstream still returns its log; the failure is in the log's status.
func (h *CatalogSyncHandler) RunSync(c *gin.Context) {
	cfg, ok := h.ownedConfig(c)
	if !ok {
		return
	}
	run, err := h.service.RunSync(c.Request.Context(), cfg.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, run)
}

// ListLogs handles GET /catalog-sync/configs/:id/logs
func (h *CatalogSyncHandler) ListLogs(c *gin.Context) {
	cfg, ok := h.ownedConfig(c)
	if !ok {
		return
	}
	var req ListLogsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	page, err := h.service.ListSyncLogs(c.Request.Context(), catalogsync.SyncLogFilter{
		Page:     req.ToPage(),
		ConfigID: cfg.ID,
		Status:   catalogsync.SyncStatus(req.Status),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPaginatedResponse(page))
}

// ownedConfig loads the config named by the path and checks the caller may
// act on it. Another seller's config is reported as not found.
func (h *CatalogSyncHandler) ownedConfig(c *gin.Context) (*syncapp.ConfigResponse, bool) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return nil, false
	}
	cfg, err := h.service.GetConfig(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return nil, false
	}
	if _, err := middleware.ScopeSeller(c, &cfg.SellerID); err != nil {
		h.HandleError(c, catalogsync.ErrSyncConfigNotFound)
		return nil, false
	}
	return cfg, true
}
