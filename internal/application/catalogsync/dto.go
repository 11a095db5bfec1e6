package catalogsync

import (
	"time"

	"github.com/google/uuid"

	"github.com/zetta/backend/internal/domain/catalogsync"
)

// CreateConfigCommand registers a new catalog source
type CreateConfigCommand struct {
	SellerID      uuid.UUID         `json:"seller_id" validate:"required"`
	SyncType      string            `json:"sync_type" validate:"required,oneof=api csv xml webhook"`
	SourceURL     string            `json:"source_url" validate:"omitempty,url"`
	APIKey        string            `json:"api_key" validate:"omitempty,max=500"`
	WebhookSecret string            `json:"webhook_secret" validate:"omitempty,min=16,max=200"`
	MappingRules  map[string]string `json:"mapping_rules" validate:"omitempty,dive,keys,required,endkeys,required"`
	Schedule      string            `json:"schedule" validate:"required,oneof=realtime hourly daily weekly"`
	AutoApprove   bool              `json:"auto_approve"`
}

// UpdateConfigCommand changes a source. Nil fields are left as they are.
type UpdateConfigCommand struct {
	SourceURL     *string            `json:"source_url" validate:"omitempty,url"`
	APIKey        *string            `json:"api_key" validate:"omitempty,max=500"`
	WebhookSecret *string            `json:"webhook_secret" validate:"omitempty,min=16,max=200"`
	MappingRules  *map[string]string `json:"mapping_rules"`
	Schedule      *string            `json:"schedule" validate:"omitempty,oneof=realtime hourly daily weekly"`
	AutoApprove   *bool              `json:"auto_approve"`
}

// ConfigResponse is the API view of a sync config. Secrets are never echoed.
type ConfigResponse struct {
	ID               uuid.UUID         `json:"id"`
	SellerID         uuid.UUID         `json:"seller_id"`
	SyncType         string            `json:"sync_type"`
	SourceURL        string            `json:"source_url,omitempty"`
	HasAPIKey        bool              `json:"has_api_key"`
	HasWebhookSecret bool              `json:"has_webhook_secret"`
	WebhookURL       string            `json:"webhook_url,omitempty"`
	MappingRules     map[string]string `json:"mapping_rules"`
	Schedule         string            `json:"schedule"`
	AutoApprove      bool              `json:"auto_approve"`
	LastSync         *time.Time        `json:"last_sync,omitempty"`
	NextSync         *time.Time        `json:"next_sync,omitempty"`
	Status           string            `json:"status"`
	ErrorMessage     string            `json:"error_message,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// CreateConfigResult carries the generated webhook secret, shown once
type CreateConfigResult struct {
	ConfigResponse
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// ToConfigResponse converts a domain config
func ToConfigResponse(c *catalogsync.CatalogSyncConfig, baseURL string) ConfigResponse {
	resp := ConfigResponse{
		ID:               c.ID,
		SellerID:         c.SellerID,
		SyncType:         string(c.SyncType),
		SourceURL:        c.SourceURL,
		HasAPIKey:        c.APIKey != "",
		HasWebhookSecret: c.WebhookSecret != "",
		MappingRules:     map[string]string(c.MappingRules),
		Schedule:         string(c.Schedule),
		AutoApprove:      c.AutoApprove,
		LastSync:         c.LastSync,
		NextSync:         c.NextSync,
		Status:           string(c.Status),
		ErrorMessage:     c.ErrorMessage,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
	if c.WebhookSecret != "" && baseURL != "" {
		resp.WebhookURL = catalogsync.WebhookURL(baseURL, c.ID)
	}
	if resp.MappingRules == nil {
		resp.MappingRules = map[string]string{}
	}
	return resp
}

// SyncLogResponse is the API view of a sync run
type SyncLogResponse struct {
	ID              uuid.UUID                   `json:"id"`
	ConfigID        uuid.UUID                   `json:"config_id"`
	Trigger         string                      `json:"trigger"`
	StartedAt       time.Time                   `json:"started_at"`
	CompletedAt     *time.Time                  `json:"completed_at,omitempty"`
	Status          string                      `json:"status"`
	ProductsAdded   int                         `json:"products_added"`
	ProductsUpdated int                         `json:"products_updated"`
	ProductsRemoved int                         `json:"products_removed"`
	ErrorMessage    string                      `json:"error_message,omitempty"`
	SyncData        catalogsync.SyncDiagnostics `json:"sync_data"`
}

// ToSyncLogResponse converts a domain sync log
func ToSyncLogResponse(l *catalogsync.SyncLog) SyncLogResponse {
	return SyncLogResponse{
		ID:              l.ID,
		ConfigID:        l.ConfigID,
		Trigger:         string(l.Trigger),
		StartedAt:       l.StartedAt,
		CompletedAt:     l.CompletedAt,
		Status:          string(l.Status),
		ProductsAdded:   l.ProductsAdded,
		ProductsUpdated: l.ProductsUpdated,
		ProductsRemoved: l.ProductsRemoved,
		ErrorMessage:    l.ErrorMessage,
		SyncData:        l.SyncData,
	}
}

// ToSyncLogResponses converts a slice of logs
func ToSyncLogResponses(ls []catalogsync.SyncLog) []SyncLogResponse {
	out := make([]SyncLogResponse, len(ls))
	for i := range ls {
		out[i] = ToSyncLogResponse(&ls[i])
	}
	return out
}

// RunSummary reports one pass of the scheduler over due configs
type RunSummary struct {
	Due       int      `json:"due"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors"`
}

// WebhookReceipt is returned to the pushing source
type WebhookReceipt struct {
	EventID         uuid.UUID `json:"event_id"`
	ExternalEventID string    `json:"external_event_id,omitempty"`
	EventType       string    `json:"event_type"`
	Processed       bool      `json:"processed"`
	Error           string    `json:"error,omitempty"`
}
