package catalogsync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/zetta/backend/internal/domain/shared"
)

// SyncConfigFilter narrows config listings
type SyncConfigFilter struct {
	shared.Page
	SellerID *uuid.UUID
	Status   ConfigStatus
	SyncType SyncType
}

// SyncConfigReader defines read operations for sync configs
type SyncConfigReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*CatalogSyncConfig, error)
	FindAll(ctx context.Context, filter SyncConfigFilter) ([]CatalogSyncConfig, error)
	Count(ctx context.Context, filter SyncConfigFilter) (int64, error)
	// FindDue returns active, polled configs whose next_sync is at or before now
	FindDue(ctx context.Context, now time.Time) ([]CatalogSyncConfig, error)
}

// SyncConfigWriter defines write operations for sync configs
type SyncConfigWriter interface {
	Save(ctx context.Context, config *CatalogSyncConfig) error
}

// SyncConfigRepository combines reader and writer
type SyncConfigRepository interface {
	SyncConfigReader
	SyncConfigWriter
}

// SyncLogFilter narrows log listings
type SyncLogFilter struct {
	shared.Page
	ConfigID uuid.UUID
	Status   SyncStatus
}

// SyncLogRepository persists sync logs. Completed logs are never rewritten.
type SyncLogRepository interface {
	Create(ctx context.Context, log *SyncLog) error
	// Finalize writes the terminal state of a running log
	Finalize(ctx context.Context, log *SyncLog) error
	FindByID(ctx context.Context, id uuid.UUID) (*SyncLog, error)
	FindAll(ctx context.Context, filter SyncLogFilter) ([]SyncLog, error)
	Count(ctx context.Context, filter SyncLogFilter) (int64, error)
}

// WebhookEventRepository persists received webhook events
type WebhookEventRepository interface {
	Create(ctx context.Context, event *WebhookEvent) error
	Save(ctx context.Context, event *WebhookEvent) error
	FindByID(ctx context.Context, id uuid.UUID) (*WebhookEvent, error)
	// ConfigsWithUnprocessed returns the configs holding events never handled,
	// the one with the oldest such event first
	ConfigsWithUnprocessed(ctx context.Context) ([]uuid.UUID, error)
	// FindUnprocessedByConfig returns up to limit of the config's unhandled
	// events, oldest first
	FindUnprocessedByConfig(ctx context.Context, configID uuid.UUID, limit int) ([]WebhookEvent, error)
}
