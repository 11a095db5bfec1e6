package catalogsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zetta/backend/internal/domain/catalogsync"
	"github.com/zetta/backend/internal/infrastructure/catalogsource"
	"github.com/zetta/backend/internal/infrastructure/telemetry"
)

var acceptHeaders = map[catalogsync.SyncType]string{
	catalogsync.SyncTypeAPI: "application/json",
	catalogsync.SyncTypeCSV: "text/csv, text/plain;q=0.9",
	catalogsync.SyncTypeXML: "application/xml, text/xml;q=0.9",
}

// runFunc does the work of one sync run. Counters and diagnostics are kept
// even when it fails part way.
type runFunc func(ctx context.Context, run *catalogsync.SyncLog, counters *catalogsync.RunCounters, diag *catalogsync.SyncDiagnostics) error

// execute holds the config lock for the duration of fn and writes exactly one
// SyncLog for it. The log is finalized even when ctx has been cancelled.
func (s *Service) execute(ctx context.Context, cfg *catalogsync.CatalogSyncConfig, trigger catalogsync.Trigger, fn runFunc) (*catalogsync.SyncLog, error) {
	unlock, ok, err := s.locker.TryLock(ctx, lockKeyPrefix+cfg.ID.String(), s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire sync lock: %w", err)
	}
	if !ok {
		return nil, catalogsync.ErrSyncInProgress
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			s.log(ctx).Warn("failed to release sync lock", zap.String("config_id", cfg.ID.String()), zap.Error(err))
		}
	}()

	started := s.now()
	run := catalogsync.StartSyncLog(cfg.ID, trigger, started)
	if err := s.logs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("open sync log: %w", err)
	}

	var (
		counters catalogsync.RunCounters
		diag     catalogsync.SyncDiagnostics
	)
	runErr := fn(ctx, run, &counters, &diag)

	finished := s.now()
	if runErr != nil {
		_ = run.Fail(counters, diag, runErr, finished)
	} else {
		_ = run.Complete(counters, diag, finished)
	}
	finalizeErr := s.logs.Finalize(context.WithoutCancel(ctx), run)

	s.metrics.ObserveSyncRun(string(cfg.SyncType), string(trigger), string(run.Status), finished.Sub(started))
	s.metrics.AddProductChanges(string(cfg.SyncType), counters.Added, counters.Updated, counters.Removed, counters.Skipped)

	log := s.log(ctx).With(
		zap.String("config_id", cfg.ID.String()),
		zap.String("seller_id", cfg.SellerID.String()),
		zap.String("sync_type", string(cfg.SyncType)),
		zap.String("trigger", string(trigger)),
		zap.Int("added", counters.Added),
		zap.Int("updated", counters.Updated),
		zap.Int("removed", counters.Removed),
		zap.Int("skipped", counters.Skipped),
		zap.Duration("elapsed", finished.Sub(started)),
	)
	if runErr != nil {
		log.Error("catalog sync failed", zap.Error(runErr))
	} else {
		log.Info("catalog sync finished")
	}

	if finalizeErr != nil {
		finalizeErr = fmt.Errorf("finalize sync log: %w", finalizeErr)
		if runErr == nil {
			return run, finalizeErr
		}
		s.log(ctx).Error("sync log left running", zap.String("sync_log_id", run.ID.String()), zap.Error(finalizeErr))
	}
	return run, runErr
}

// PerformSync fetches and applies the config's source once. Webhook configs
// are event driven, so their run does nothing but log. A run already in
// flight for the config yields ErrSyncInProgress and no log.
func (s *Service) PerformSync(ctx context.Context, cfg *catalogsync.CatalogSyncConfig, trigger catalogsync.Trigger) (_ *catalogsync.SyncLog, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "catalogsync", "perform_sync",
		telemetry.SpanAttrConfigID, cfg.ID.String(),
		telemetry.SpanAttrSellerID, cfg.SellerID.String(),
		telemetry.SpanAttrSyncType, string(cfg.SyncType),
		telemetry.SpanAttrTrigger, string(trigger),
	)
	defer telemetry.EndSpan(span, &err)

	run, err := s.execute(ctx, cfg, trigger, func(ctx context.Context, run *catalogsync.SyncLog, counters *catalogsync.RunCounters, diag *catalogsync.SyncDiagnostics) error {
		if !cfg.SyncType.IsPolled() {
			return nil
		}
		return s.pollSource(ctx, cfg, run, counters, diag)
	})
	if run != nil {
		telemetry.SetAttributes(span, telemetry.SpanAttrRecordCount, run.SyncData.RecordCount)
	}
	return run, err
}

func (s *Service) pollSource(ctx context.Context, cfg *catalogsync.CatalogSyncConfig, run *catalogsync.SyncLog, counters *catalogsync.RunCounters, diag *catalogsync.SyncDiagnostics) error {
	parse, ok := catalogsource.ParserFor(cfg.SyncType)
	if !ok {
		return catalogsync.ErrInvalidSyncType
	}

	body, err := s.fetcher.Fetch(ctx, catalogsource.Request{
		URL:    cfg.SourceURL,
		APIKey: cfg.APIKey,
		Accept: acceptHeaders[cfg.SyncType],
	})
	if err != nil {
		return fmt.Errorf("fetch %s source: %w", cfg.SyncType, err)
	}
	diag.SourceBytes = len(body)

	parsed, err := parse(body)
	if err != nil {
		return fmt.Errorf("parse %s source: %w", cfg.SyncType, err)
	}
	diag.Format = parsed.Format
	diag.RecordCount = len(parsed.Records)
	counters.Skipped += parsed.Dropped

	if s.archive != nil {
		key, err := s.archive.Archive(ctx, ArchivedPayload{
			ConfigID:  cfg.ID,
			SellerID:  cfg.SellerID,
			SyncLogID: run.ID,
			Format:    parsed.Format,
			StartedAt: run.StartedAt,
			Body:      body,
		})
		if err != nil {
			s.log(ctx).Warn("failed to archive source payload", zap.String("config_id", cfg.ID.String()), zap.Error(err))
		} else {
			diag.ArchiveKey = key
		}
	}

	return s.FullCatalogSync(ctx, cfg, parsed.Records, counters)
}

// RunSync runs a config on demand and updates its bookkeeping like a
// scheduled run would. A paused config must be resumed first. Once a log
// has been written, a failed run is reported through its status rather
// than as an error.
func (s *Service) RunSync(ctx context.Context, configID uuid.UUID) (*SyncLogResponse, error) {
	cfg, err := s.configs.FindByID(ctx, configID)
	if err != nil {
		return nil, err
	}
	if cfg.Status == catalogsync.ConfigStatusPaused {
		return nil, catalogsync.ErrInvalidConfigStatus
	}

	run, runErr := s.PerformSync(ctx, cfg, catalogsync.TriggerManual)
	if errors.Is(runErr, catalogsync.ErrSyncInProgress) {
		return nil, runErr
	}
	if err := s.recordOutcome(ctx, configID, runErr); err != nil {
		return nil, err
	}
	if run == nil {
		return nil, runErr
	}
	resp := ToSyncLogResponse(run)
	return &resp, nil
}

// RunScheduledSyncs runs every due config once. Each outcome advances
// next_sync; a failure also puts the config in error status with the message.
// Configs whose previous run still holds the lock are skipped untouched.
func (s *Service) RunScheduledSyncs(ctx context.Context) (RunSummary, error) {
	summary := RunSummary{Errors: []string{}}

	due, err := s.configs.FindDue(ctx, s.now())
	if err != nil {
		return summary, fmt.Errorf("find due sync configs: %w", err)
	}
	summary.Due = len(due)

	for i := range due {
		cfg := &due[i]
		if err := ctx.Err(); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("config %s: %v", cfg.ID, err))
			break
		}

		_, runErr := s.PerformSync(ctx, cfg, catalogsync.TriggerScheduled)
		if errors.Is(runErr, catalogsync.ErrSyncInProgress) {
			summary.Skipped++
			continue
		}
		if runErr != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("config %s: %v", cfg.ID, runErr))
		} else {
			summary.Succeeded++
		}
		if err := s.recordOutcome(ctx, cfg.ID, runErr); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("config %s: %v", cfg.ID, err))
		}
	}

	if summary.Due > 0 {
		s.log(ctx).Info("scheduled catalog syncs finished",
			zap.Int("due", summary.Due),
			zap.Int("succeeded", summary.Succeeded),
			zap.Int("failed", summary.Failed),
			zap.Int("skipped", summary.Skipped),
		)
	}
	return summary, nil
}

// recordOutcome reloads the config so a pause made during the run is kept.
func (s *Service) recordOutcome(ctx context.Context, configID uuid.UUID, runErr error) error {
	ctx = context.WithoutCancel(ctx)
	cfg, err := s.configs.FindByID(ctx, configID)
	if err != nil {
		return fmt.Errorf("reload sync config: %w", err)
	}
	now := s.now()
	if runErr != nil {
		cfg.RecordSyncFailure(now, runErr.Error())
	} else {
		cfg.RecordSyncSuccess(now)
	}
	if err := s.configs.Save(ctx, cfg); err != nil {
		return fmt.Errorf("save sync config: %w", err)
	}
	return nil
}
