package catalogsync

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCatalogSyncConfig(t *testing.T) {
	sellerID := uuid.New()

	tests := []struct {
		name      string
		seller    uuid.UUID
		syncType  SyncType
		sourceURL string
		schedule  Schedule
		rules     MappingRules
		wantErr   error
	}{
		{"api config", sellerID, SyncTypeAPI, "https://example.com/feed", ScheduleDaily, nil, nil},
		{"webhook without url", sellerID, SyncTypeWebhook, "", ScheduleRealtime, nil, nil},
		{"csv without url", sellerID, SyncTypeCSV, "  ", ScheduleHourly, nil, ErrSourceURLRequired},
		{"bad type", sellerID, SyncType("ftp"), "x", ScheduleDaily, nil, ErrInvalidSyncType},
		{"bad schedule", sellerID, SyncTypeXML, "x", Schedule("monthly"), nil, ErrInvalidSchedule},
		{"nil seller", uuid.Nil, SyncTypeXML, "x", ScheduleDaily, nil, ErrInvalidSellerID},
		{"blank rule", sellerID, SyncTypeAPI, "x", ScheduleDaily, MappingRules{"title": " "}, ErrEmptyMappingRuleName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewCatalogSyncConfig(tt.seller, tt.syncType, tt.sourceURL, tt.schedule, tt.rules)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, ConfigStatusActive, cfg.Status)
			assert.NotNil(t, cfg.MappingRules)
		})
	}
}

func TestCatalogSyncConfig_IsDue(t *testing.T) {
	cfg, err := NewCatalogSyncConfig(uuid.New(), SyncTypeAPI, "https://x", ScheduleHourly, nil)
	require.NoError(t, err)
	now := time.Now()
	assert.True(t, cfg.IsDue(now), "new polled configs are due immediately")

	future := now.Add(time.Minute)
	cfg.NextSync = &future
	assert.False(t, cfg.IsDue(now))

	cfg.NextSync = &now
	cfg.Status = ConfigStatusPaused
	assert.False(t, cfg.IsDue(now))
	cfg.Status = ConfigStatusError
	assert.False(t, cfg.IsDue(now))

	hook, err := NewCatalogSyncConfig(uuid.New(), SyncTypeWebhook, "", ScheduleRealtime, nil)
	require.NoError(t, err)
	assert.Nil(t, hook.NextSync)
	assert.False(t, hook.IsDue(now.Add(24*time.Hour)))
}

func TestCatalogSyncConfig_RecordOutcome(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	cfg, err := NewCatalogSyncConfig(uuid.New(), SyncTypeCSV, "https://x/feed.csv", ScheduleDaily, nil)
	require.NoError(t, err)

	cfg.RecordSyncFailure(now, "upstream returned 502")
	assert.Equal(t, ConfigStatusError, cfg.Status)
	assert.Equal(t, "upstream returned 502", cfg.ErrorMessage)
	assert.Equal(t, now.Add(24*time.Hour), *cfg.NextSync)
	assert.Equal(t, now, *cfg.LastSync)

	later := now.Add(time.Hour)
	cfg.RecordSyncSuccess(later)
	assert.Equal(t, ConfigStatusActive, cfg.Status)
	assert.Empty(t, cfg.ErrorMessage)
	assert.Equal(t, later.Add(24*time.Hour), *cfg.NextSync)

	require.NoError(t, cfg.Pause(later))
	cfg.RecordSyncFailure(later, "boom")
	assert.Equal(t, ConfigStatusPaused, cfg.Status, "paused configs stay paused")
	assert.ErrorIs(t, cfg.Pause(later), ErrInvalidConfigStatus)

	require.NoError(t, cfg.Resume(later))
	assert.Equal(t, ConfigStatusActive, cfg.Status)
	assert.Empty(t, cfg.ErrorMessage)
	assert.True(t, cfg.IsDue(later))
	assert.ErrorIs(t, cfg.Resume(later), ErrInvalidConfigStatus)
}

func TestSchedule_Interval(t *testing.T) {
	assert.Equal(t, 5*time.Minute, ScheduleRealtime.Interval())
	assert.Equal(t, time.Hour, ScheduleHourly.Interval())
	assert.Equal(t, 24*time.Hour, ScheduleDaily.Interval())
	assert.Equal(t, 7*24*time.Hour, ScheduleWeekly.Interval())
}

func TestWebhookURL(t *testing.T) {
	id := uuid.MustParse("8a6e0804-2bd0-4672-b79d-d97027f9071a")
	assert.Equal(t,
		"https://zetta.example/api/webhooks/catalog-sync/8a6e0804-2bd0-4672-b79d-d97027f9071a",
		WebhookURL("https://zetta.example/", id))
}

func TestMappingRules_ExternalIDPath(t *testing.T) {
	assert.Equal(t, "id", MappingRules(nil).ExternalIDPath())
	assert.Equal(t, "sku", MappingRules{"external_id": "sku"}.ExternalIDPath())
}
