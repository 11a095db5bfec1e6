package catalogsync

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zetta/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// SyncType
// ---------------------------------------------------------------------------

// SyncType is how catalog data reaches the platform
type SyncType string

const (
	SyncTypeAPI     SyncType = "api"
	SyncTypeCSV     SyncType = "csv"
	SyncTypeXML     SyncType = "xml"
	SyncTypeWebhook SyncType = "webhook"
)

// IsValid checks if the sync type is a known value
func (t SyncType) IsValid() bool {
	switch t {
	case SyncTypeAPI, SyncTypeCSV, SyncTypeXML, SyncTypeWebhook:
		return true
	}
	return false
}

// IsPolled reports whether the source is fetched on a schedule
func (t SyncType) IsPolled() bool {
	return t.IsValid() && t != SyncTypeWebhook
}

// ---------------------------------------------------------------------------
// Schedule
// ---------------------------------------------------------------------------

// Schedule is the polling cadence of a source
type Schedule string

const (
	ScheduleRealtime Schedule = "realtime"
	ScheduleHourly   Schedule = "hourly"
	ScheduleDaily    Schedule = "daily"
	ScheduleWeekly   Schedule = "weekly"
)

// IsValid checks if the schedule is a known value
func (s Schedule) IsValid() bool {
	switch s {
	case ScheduleRealtime, ScheduleHourly, ScheduleDaily, ScheduleWeekly:
		return true
	}
	return false
}

// Interval returns the time between two scheduled runs.
// Realtime sources are polled as often as the scheduler ticks.
func (s Schedule) Interval() time.Duration {
	switch s {
	case ScheduleRealtime:
		return 5 * time.Minute
	case ScheduleHourly:
		return time.Hour
	case ScheduleWeekly:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// ---------------------------------------------------------------------------
// ConfigStatus
// ---------------------------------------------------------------------------

// ConfigStatus is the dispatch state of a sync config
type ConfigStatus string

const (
	ConfigStatusActive ConfigStatus = "active"
	ConfigStatusPaused ConfigStatus = "paused"
	ConfigStatusError  ConfigStatus = "error"
)

// IsValid checks if the status is a known value
func (s ConfigStatus) IsValid() bool {
	switch s {
	case ConfigStatusActive, ConfigStatusPaused, ConfigStatusError:
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// MappingRules
// ---------------------------------------------------------------------------

// ExternalIDField is the mapping rule key naming where a record's identity lives.
const ExternalIDField = "external_id"

// DefaultExternalIDPath is used when no external_id rule is configured.
const DefaultExternalIDPath = "id"

// MappingRules maps an internal product field to a dot-separated path in the external record.
type MappingRules map[string]string

// ExternalIDPath returns the configured identity path or "id".
func (r MappingRules) ExternalIDPath() string {
	if p := strings.TrimSpace(r[ExternalIDField]); p != "" {
		return p
	}
	return DefaultExternalIDPath
}

// Validate rejects blank field names or paths.
func (r MappingRules) Validate() error {
	for field, path := range r {
		if strings.TrimSpace(field) == "" || strings.TrimSpace(path) == "" {
			return ErrEmptyMappingRuleName
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// CatalogSyncConfig Aggregate Root
// ---------------------------------------------------------------------------

// CatalogSyncConfig describes one seller-configured external catalog source.
type CatalogSyncConfig struct {
	shared.BaseEntity
	// SellerID owns the source and every product it produces
	SellerID uuid.UUID
	// SyncType selects the fetch and parse strategy
	SyncType SyncType
	// SourceURL is fetched for polled sync types
	SourceURL string
	// APIKey is sent as a bearer token when set
	APIKey string
	// WebhookSecret signs pushed events
	WebhookSecret string
	// MappingRules maps internal field names to external paths
	MappingRules MappingRules
	// Schedule drives next_sync; ignored for webhook sources
	Schedule Schedule
	// AutoApprove lists synced products immediately instead of holding them for review
	AutoApprove bool
	LastSync    *time.Time
	NextSync    *time.Time
	Status      ConfigStatus
	// ErrorMessage holds the last failure; cleared on success
	ErrorMessage string
}

// NewCatalogSyncConfig validates and creates an active config due immediately.
func NewCatalogSyncConfig(
	sellerID uuid.UUID,
	syncType SyncType,
	sourceURL string,
	schedule Schedule,
	rules MappingRules,
) (*CatalogSyncConfig, error) {
	cfg := &CatalogSyncConfig{
		BaseEntity:   shared.NewBaseEntity(),
		SellerID:     sellerID,
		SyncType:     syncType,
		SourceURL:    strings.TrimSpace(sourceURL),
		Schedule:     schedule,
		MappingRules: rules,
		Status:       ConfigStatusActive,
	}
	if cfg.MappingRules == nil {
		cfg.MappingRules = MappingRules{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if syncType.IsPolled() {
		next := cfg.CreatedAt
		cfg.NextSync = &next
	}
	return cfg, nil
}

// Validate checks the config invariants
func (c *CatalogSyncConfig) Validate() error {
	if c.SellerID == uuid.Nil {
		return ErrInvalidSellerID
	}
	if !c.SyncType.IsValid() {
		return ErrInvalidSyncType
	}
	if !c.Schedule.IsValid() {
		return ErrInvalidSchedule
	}
	if c.SyncType != SyncTypeWebhook && c.SourceURL == "" {
		return ErrSourceURLRequired
	}
	return c.MappingRules.Validate()
}

// IsDue reports whether the scheduler should run this config at now.
// Webhook sources and non-active configs are never due.
func (c *CatalogSyncConfig) IsDue(now time.Time) bool {
	if c.Status != ConfigStatusActive || !c.SyncType.IsPolled() {
		return false
	}
	return c.NextSync == nil || !c.NextSync.After(now)
}

// RecordSyncSuccess clears the error and schedules the next run.
// An error status recovers to active; a paused config stays paused.
func (c *CatalogSyncConfig) RecordSyncSuccess(now time.Time) {
	c.LastSync = &now
	c.scheduleNext(now)
	c.ErrorMessage = ""
	if c.Status == ConfigStatusError {
		c.Status = ConfigStatusActive
	}
	c.Touch(now)
}

// RecordSyncFailure flags the config as errored and schedules the next run.
// An errored config is excluded from dispatch until resumed or re-run manually.
func (c *CatalogSyncConfig) RecordSyncFailure(now time.Time, message string) {
	c.LastSync = &now
	c.scheduleNext(now)
	c.ErrorMessage = message
	if c.Status != ConfigStatusPaused {
		c.Status = ConfigStatusError
	}
	c.Touch(now)
}

func (c *CatalogSyncConfig) scheduleNext(now time.Time) {
	next := now.Add(c.Schedule.Interval())
	c.NextSync = &next
}

// Pause stops scheduled dispatch.
func (c *CatalogSyncConfig) Pause(now time.Time) error {
	if c.Status == ConfigStatusPaused {
		return ErrInvalidConfigStatus
	}
	c.Status = ConfigStatusPaused
	c.Touch(now)
	return nil
}

// Resume returns a paused or errored config to active and makes it due now.
func (c *CatalogSyncConfig) Resume(now time.Time) error {
	if c.Status == ConfigStatusActive {
		return ErrInvalidConfigStatus
	}
	c.Status = ConfigStatusActive
	c.ErrorMessage = ""
	if c.SyncType.IsPolled() {
		c.NextSync = &now
	}
	c.Touch(now)
	return nil
}

// AcceptsWebhooks reports whether pushed events may be processed for this config.
func (c *CatalogSyncConfig) AcceptsWebhooks() bool {
	return c.WebhookSecret != "" && c.Status != ConfigStatusPaused
}

// WebhookURL builds the push endpoint a source should call for this config.
func WebhookURL(baseURL string, configID uuid.UUID) string {
	return strings.TrimRight(baseURL, "/") + "/api/webhooks/catalog-sync/" + configID.String()
}
