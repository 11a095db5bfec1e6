package catalogsync

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/zetta/backend/internal/infrastructure/catalogsource"
)

// SourceFetcher retrieves the raw body of a polled catalog source
type SourceFetcher interface {
	Fetch(ctx context.Context, req catalogsource.Request) ([]byte, error)
}

// ArchivedPayload is one raw source body kept for diagnostics
type ArchivedPayload struct {
	ConfigID  uuid.UUID
	SellerID  uuid.UUID
	SyncLogID uuid.UUID
	Format    string
	StartedAt time.Time
	Body      []byte
}

// PayloadArchive stores raw source bodies and returns the object key
type PayloadArchive interface {
	Archive(ctx context.Context, payload ArchivedPayload) (string, error)
}

// SyncMetrics receives run outcomes. Implementations must be safe for concurrent use.
type SyncMetrics interface {
	ObserveSyncRun(syncType, trigger, status string, elapsed time.Duration)
	AddProductChanges(syncType string, added, updated, removed, skipped int)
	ObserveWebhook(eventType, outcome string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveSyncRun(string, string, string, time.Duration) {}
func (noopMetrics) AddProductChanges(string, int, int, int, int)        {}
func (noopMetrics) ObserveWebhook(string, string)                        {}
