package catalogsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zetta/backend/internal/domain/catalogsync"
	"github.com/zetta/backend/internal/infrastructure/catalogsource"
)

const catalogBody = `{"products":[
	{"sku":"A","name":"Infusion Pump","pricing":{"amount":"120.00"},"grade":"good"},
	{"sku":"B","name":"Patient Monitor","pricing":{"amount":980.5},"grade":"fair"},
	"not-a-record"
]}`

func forURL(url string) any {
	return mock.MatchedBy(func(r catalogsource.Request) bool { return r.URL == url })
}

func TestPerformSync_PollsAndRecordsRun(t *testing.T) {
	f := newFixture(t)
	cfg := apiConfig(t)
	cfg.APIKey = "secret-key"
	f.addConfig(t, cfg)

	f.fetcher.On("Fetch", mock.Anything, catalogsource.Request{
		URL:    cfg.SourceURL,
		APIKey: "secret-key",
		Accept: "application/json",
	}).Return([]byte(catalogBody), nil).Once()

	run, err := f.svc.PerformSync(context.Background(), cfg, catalogsync.TriggerManual)
	require.NoError(t, err)

	assert.Equal(t, catalogsync.SyncStatusSuccess, run.Status)
	assert.Equal(t, 2, run.ProductsAdded)
	assert.Equal(t, catalogsource.FormatJSON, run.SyncData.Format)
	assert.Equal(t, 2, run.SyncData.RecordCount)
	assert.Equal(t, 1, run.SyncData.Skipped)
	assert.Equal(t, len(catalogBody), run.SyncData.SourceBytes)
	require.NotNil(t, run.CompletedAt)
	assert.Equal(t, fixedNow, *run.CompletedAt)

	logs := f.logs.all()
	require.Len(t, logs, 1)
	assert.Equal(t, run.ID, logs[0].ID)
	assert.Equal(t, catalogsync.SyncStatusSuccess, logs[0].Status)
	assert.Equal(t, []string{"manual:success"}, f.metrics.runs)
	f.fetcher.AssertExpectations(t)
}

func TestPerformSync_CSVSource(t *testing.T) {
	f := newFixture(t)
	cfg := apiConfig(t)
	cfg.SyncType = catalogsync.SyncTypeCSV
	cfg.MappingRules = catalogsync.MappingRules{"external_id": "sku", "title": "name", "price": "price"}
	f.addConfig(t, cfg)

	body := "sku,name,price\nC-1,Defibrillator,1500\n,orphan,1\n"
	f.fetcher.On("Fetch", mock.Anything, mock.MatchedBy(func(r catalogsource.Request) bool {
		return r.Accept == "text/csv, text/plain;q=0.9"
	})).Return([]byte(body), nil)

	run, err := f.svc.PerformSync(context.Background(), cfg, catalogsync.TriggerScheduled)
	require.NoError(t, err)
	assert.Equal(t, 1, run.ProductsAdded)
	assert.Equal(t, 1, run.SyncData.Skipped)
	assert.Equal(t, catalogsource.FormatCSV, run.SyncData.Format)

	p, ok := f.products.get(cfg.SellerID, "C-1")
	require.True(t, ok)
	assert.Equal(t, "1410.00", p.ZettaPrice.StringFixed(2))
}

func TestPerformSync_ArchivesPayload(t *testing.T) {
	archive := new(MockPayloadArchive)
	f := newFixture(t, WithPayloadArchive(archive))
	cfg := apiConfig(t)
	f.addConfig(t, cfg)

	f.fetcher.On("Fetch", mock.Anything, mock.Anything).Return([]byte(catalogBody), nil)
	archive.On("Archive", mock.Anything, mock.MatchedBy(func(p ArchivedPayload) bool {
		return p.ConfigID == cfg.ID && p.SellerID == cfg.SellerID && p.Format == catalogsource.FormatJSON
	})).Return("catalog-sync/raw.json", nil)

	run, err := f.svc.PerformSync(context.Background(), cfg, catalogsync.TriggerManual)
	require.NoError(t, err)

	assert.Equal(t, "catalog-sync/raw.json", run.SyncData.ArchiveKey)
	archived := archive.Calls[0].Arguments.Get(1).(ArchivedPayload)
	assert.Equal(t, run.ID, archived.SyncLogID)
	assert.Equal(t, []byte(catalogBody), archived.Body)
}

func TestPerformSync_ArchiveFailureDoesNotFailRun(t *testing.T) {
	archive := new(MockPayloadArchive)
	f := newFixture(t, WithPayloadArchive(archive))
	cfg := apiConfig(t)

	f.fetcher.On("Fetch", mock.Anything, mock.Anything).Return([]byte(catalogBody), nil)
	archive.On("Archive", mock.Anything, mock.Anything).Return("", errors.New("bucket unavailable"))

	run, err := f.svc.PerformSync(context.Background(), cfg, catalogsync.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, catalogsync.SyncStatusSuccess, run.Status)
	assert.Empty(t, run.SyncData.ArchiveKey)
}

func TestPerformSync_FetchFailureFailsRun(t *testing.T) {
	f := newFixture(t)
	cfg := apiConfig(t)
	f.fetcher.On("Fetch", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	run, err := f.svc.PerformSync(context.Background(), cfg, catalogsync.TriggerScheduled)
	require.Error(t, err)
	require.NotNil(t, run)

	assert.Equal(t, catalogsync.SyncStatusFailed, run.Status)
	assert.Contains(t, run.ErrorMessage, "connection refused")
	assert.NotNil(t, run.CompletedAt)
	assert.Equal(t, catalogsync.SyncStatusFailed, f.logs.all()[0].Status)
	assert.Equal(t, []string{"scheduled:failed"}, f.metrics.runs)
}

func TestPerformSync_ParseFailureKeepsSourceSize(t *testing.T) {
	f := newFixture(t)
	cfg := apiConfig(t)
	f.fetcher.On("Fetch", mock.Anything, mock.Anything).Return([]byte(`{"unexpected":true}`), nil)

	run, err := f.svc.PerformSync(context.Background(), cfg, catalogsync.TriggerManual)
	assert.ErrorIs(t, err, catalogsync.ErrUnexpectedPayload)
	assert.Equal(t, catalogsync.SyncStatusFailed, run.Status)
	assert.Equal(t, len(`{"unexpected":true}`), run.SyncData.SourceBytes)
}

func TestPerformSync_LockHeldWritesNoLog(t *testing.T) {
	f := newFixture(t)
	cfg := apiConfig(t)
	ctx := context.Background()

	unlock, ok, err := f.locker.TryLock(ctx, "catalog-sync:"+cfg.ID.String(), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	run, err := f.svc.PerformSync(ctx, cfg, catalogsync.TriggerManual)
	assert.ErrorIs(t, err, catalogsync.ErrSyncInProgress)
	assert.Nil(t, run)
	assert.Empty(t, f.logs.all())
	f.fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)

	require.NoError(t, unlock(ctx))
	f.fetcher.On("Fetch", mock.Anything, mock.Anything).Return([]byte(`[]`), nil)
	_, err = f.svc.PerformSync(ctx, cfg, catalogsync.TriggerManual)
	assert.NoError(t, err)
}

func TestPerformSync_ReleasesLockAfterFailure(t *testing.T) {
	f := newFixture(t)
	cfg := apiConfig(t)
	f.fetcher.On("Fetch", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

	_, err := f.svc.PerformSync(context.Background(), cfg, catalogsync.TriggerManual)
	require.Error(t, err)

	_, ok, err := f.locker.TryLock(context.Background(), "catalog-sync:"+cfg.ID.String(), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPerformSync_WebhookConfigOnlyLogs(t *testing.T) {
	f := newFixture(t)
	cfg := webhookConfig(t)

	run, err := f.svc.PerformSync(context.Background(), cfg, catalogsync.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, catalogsync.SyncStatusSuccess, run.Status)
	assert.Zero(t, run.ProductsAdded)
	f.fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestRunScheduledSyncs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	healthy := apiConfig(t)
	failing := apiConfig(t)
	failing.SourceURL = "https://broken.example.com/feed"
	locked := apiConfig(t)
	locked.SourceURL = "https://busy.example.com/feed"

	notDue := apiConfig(t)
	later := fixedNow.Add(time.Hour)
	notDue.NextSync = &later
	paused := apiConfig(t)
	paused.Status = catalogsync.ConfigStatusPaused

	for _, c := range []*catalogsync.CatalogSyncConfig{healthy, failing, locked, notDue, paused, webhookConfig(t)} {
		f.addConfig(t, c)
	}

	f.fetcher.On("Fetch", mock.Anything, forURL(healthy.SourceURL)).Return([]byte(catalogBody), nil)
	f.fetcher.On("Fetch", mock.Anything, forURL(failing.SourceURL)).Return(nil, errors.New("HTTP 502"))

	_, ok, err := f.locker.TryLock(ctx, "catalog-sync:"+locked.ID.String(), time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	summary, err := f.svc.RunScheduledSyncs(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Due)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Skipped)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0], failing.ID.String())

	next := fixedNow.Add(time.Hour)

	gotHealthy := f.configs.get(healthy.ID)
	assert.Equal(t, catalogsync.ConfigStatusActive, gotHealthy.Status)
	assert.Equal(t, fixedNow, *gotHealthy.LastSync)
	assert.Equal(t, next, *gotHealthy.NextSync)
	assert.Empty(t, gotHealthy.ErrorMessage)

	gotFailing := f.configs.get(failing.ID)
	assert.Equal(t, catalogsync.ConfigStatusError, gotFailing.Status)
	assert.Contains(t, gotFailing.ErrorMessage, "HTTP 502")
	assert.Equal(t, next, *gotFailing.NextSync)

	gotLocked := f.configs.get(locked.ID)
	assert.Nil(t, gotLocked.LastSync)
	assert.Equal(t, *locked.NextSync, *gotLocked.NextSync)

	assert.Len(t, f.logs.all(), 2)
}

func TestRunScheduledSyncs_NothingDue(t *testing.T) {
	f := newFixture(t)

	summary, err := f.svc.RunScheduledSyncs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunSummary{Errors: []string{}}, summary)
}

func TestRunSync(t *testing.T) {
	t.Run("success updates bookkeeping", func(t *testing.T) {
		f := newFixture(t)
		cfg := apiConfig(t)
		cfg.Status = catalogsync.ConfigStatusError
		cfg.ErrorMessage = "old failure"
		f.addConfig(t, cfg)
		f.fetcher.On("Fetch", mock.Anything, mock.Anything).Return([]byte(catalogBody), nil)

		resp, err := f.svc.RunSync(context.Background(), cfg.ID)
		require.NoError(t, err)
		assert.Equal(t, "success", resp.Status)
		assert.Equal(t, "manual", resp.Trigger)
		assert.Equal(t, 2, resp.ProductsAdded)

		got := f.configs.get(cfg.ID)
		assert.Equal(t, catalogsync.ConfigStatusActive, got.Status)
		assert.Empty(t, got.ErrorMessage)
	})

	t.Run("failure is reported through the log", func(t *testing.T) {
		f := newFixture(t)
		cfg := apiConfig(t)
		f.addConfig(t, cfg)
		f.fetcher.On("Fetch", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

		resp, err := f.svc.RunSync(context.Background(), cfg.ID)
		require.NoError(t, err)
		assert.Equal(t, "failed", resp.Status)
		assert.Contains(t, resp.ErrorMessage, "timeout")
		assert.Equal(t, catalogsync.ConfigStatusError, f.configs.get(cfg.ID).Status)
	})

	t.Run("paused config is rejected", func(t *testing.T) {
		f := newFixture(t)
		cfg := apiConfig(t)
		cfg.Status = catalogsync.ConfigStatusPaused
		f.addConfig(t, cfg)

		_, err := f.svc.RunSync(context.Background(), cfg.ID)
		assert.ErrorIs(t, err, catalogsync.ErrInvalidConfigStatus)
		assert.Empty(t, f.logs.all())
	})

	t.Run("unknown config", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.RunSync(context.Background(), uuid.New())
		assert.ErrorIs(t, err, catalogsync.ErrSyncConfigNotFound)
	})

	t.Run("pause made during the run is kept", func(t *testing.T) {
		f := newFixture(t)
		cfg := apiConfig(t)
		f.addConfig(t, cfg)
		f.fetcher.On("Fetch", mock.Anything, mock.Anything).
			Run(func(mock.Arguments) {
				_, err := f.svc.PauseConfig(context.Background(), cfg.ID)
				require.NoError(t, err)
			}).
			Return([]byte(catalogBody), nil)

		_, err := f.svc.RunSync(context.Background(), cfg.ID)
		require.NoError(t, err)

		got := f.configs.get(cfg.ID)
		assert.Equal(t, catalogsync.ConfigStatusPaused, got.Status)
		assert.Equal(t, fixedNow, *got.LastSync)
	})
}
