package catalogsync

import (
	"time"

	"github.com/google/uuid"
)

// SyncStatus is the outcome of a sync run
type SyncStatus string

const (
	SyncStatusRunning SyncStatus = "running"
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusFailed  SyncStatus = "failed"
)

// Trigger records what started a sync run
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
	TriggerWebhook   Trigger = "webhook"
)

// RunCounters accumulates product changes across one run. It is passed by
// pointer through every sync step and frozen into the SyncLog at the end.
type RunCounters struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Removed int `json:"removed"`
	// Skipped counts records that could not be matched to a product identity
	Skipped int `json:"skipped"`
}

// SyncDiagnostics is the opaque diagnostic payload stored with a run.
type SyncDiagnostics struct {
	Format      string `json:"format,omitempty"`
	RecordCount int    `json:"record_count"`
	SourceBytes int    `json:"source_bytes"`
	Skipped     int    `json:"skipped"`
	ArchiveKey  string `json:"archive_key,omitempty"`
	EventID     string `json:"event_id,omitempty"`
}

// SyncLog is the append-only record of one sync execution.
type SyncLog struct {
	ID              uuid.UUID
	ConfigID        uuid.UUID
	Trigger         Trigger
	StartedAt       time.Time
	CompletedAt     *time.Time
	Status          SyncStatus
	ProductsAdded   int
	ProductsUpdated int
	ProductsRemoved int
	ErrorMessage    string
	SyncData        SyncDiagnostics
}

// StartSyncLog opens a running log for a config.
func StartSyncLog(configID uuid.UUID, trigger Trigger, now time.Time) *SyncLog {
	return &SyncLog{
		ID:        uuid.New(),
		ConfigID:  configID,
		Trigger:   trigger,
		StartedAt: now,
		Status:    SyncStatusRunning,
	}
}

// IsCompleted reports whether the log has been finalized
func (l *SyncLog) IsCompleted() bool {
	return l.CompletedAt != nil
}

// Complete finalizes the log as successful.
func (l *SyncLog) Complete(counters RunCounters, data SyncDiagnostics, now time.Time) error {
	return l.finish(SyncStatusSuccess, counters, data, "", now)
}

// Fail finalizes the log as failed, keeping whatever was counted before the failure.
func (l *SyncLog) Fail(counters RunCounters, data SyncDiagnostics, cause error, now time.Time) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	return l.finish(SyncStatusFailed, counters, data, msg, now)
}

func (l *SyncLog) finish(status SyncStatus, counters RunCounters, data SyncDiagnostics, msg string, now time.Time) error {
	if l.IsCompleted() {
		return ErrSyncLogFinalized
	}
	l.Status = status
	l.ProductsAdded = counters.Added
	l.ProductsUpdated = counters.Updated
	l.ProductsRemoved = counters.Removed
	data.Skipped = counters.Skipped
	l.SyncData = data
	l.ErrorMessage = msg
	l.CompletedAt = &now
	return nil
}
