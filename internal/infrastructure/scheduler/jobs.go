package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	appcatalogsync "github.com/zetta/backend/internal/application/catalogsync"
	appsettlement "github.com/zetta/backend/internal/application/settlement"
	"github.com/zetta/backend/internal/infrastructure/config"
)

// Job names
const (
	JobCatalogSync = "catalog-sync"
	JobReconcile   = "settlement-reconcile"
)

const (
	webhookReplayPerConfig = 100
	reconcileTimeout       = 10 * time.Minute
)

// CatalogSyncer is the part of the catalog sync service driven on a schedule
type CatalogSyncer interface {
	RunScheduledSyncs(ctx context.Context) (appcatalogsync.RunSummary, error)
	ReplayPendingWebhooks(ctx context.Context, perConfig int) (int, error)
}

// Reconciler settles commissions left behind by completed payouts
type Reconciler interface {
	Reconcile(ctx context.Context) (*appsettlement.ReconcileResult, error)
}

// CatalogSyncJob dispatches due catalog sources, then retries webhook events
// that could not be processed when they arrived.
func CatalogSyncJob(syncer CatalogSyncer, cfg config.SyncConfig, logger *zap.Logger) Job {
	return Job{
		Name:    JobCatalogSync,
		Spec:    cfg.CronSpec,
		Timeout: cfg.RunTimeout,
		Run: func(ctx context.Context) error {
			summary, runErr := syncer.RunScheduledSyncs(ctx)
			if runErr == nil && summary.Due > 0 {
				logger.Info("Catalog sync dispatch finished",
					zap.Int("due", summary.Due),
					zap.Int("succeeded", summary.Succeeded),
					zap.Int("failed", summary.Failed),
					zap.Int("skipped", summary.Skipped),
				)
			}

			replayed, replayErr := syncer.ReplayPendingWebhooks(ctx, webhookReplayPerConfig)
			if replayed > 0 {
				logger.Info("Replayed pending webhook events", zap.Int("count", replayed))
			}
			if replayErr != nil {
				replayErr = fmt.Errorf("replay webhooks: %w", replayErr)
			}
			return errors.Join(runErr, replayErr)
		},
	}
}

// ReconcileJob runs the settlement reconciliation pass
func ReconcileJob(reconciler Reconciler, cfg config.SettlementConfig, logger *zap.Logger) Job {
	return Job{
		Name:    JobReconcile,
		Spec:    cfg.ReconcileCronSpec,
		Timeout: reconcileTimeout,
		Run: func(ctx context.Context) error {
			result, err := reconciler.Reconcile(ctx)
			if err != nil {
				return err
			}
			if result.CommissionsSettled > 0 || len(result.Errors) > 0 {
				logger.Info("Settlement reconciliation finished",
					zap.Int("payments_checked", result.PaymentsChecked),
					zap.Int64("commissions_settled", result.CommissionsSettled),
					zap.Strings("errors", result.Errors),
				)
			}
			return nil
		},
	}
}

// RegisterDefaults registers the enabled platform jobs
func RegisterDefaults(s *Scheduler, cfg *config.Config, syncer CatalogSyncer, reconciler Reconciler, logger *zap.Logger) error {
	if cfg.Sync.Enabled {
		if err := s.Register(CatalogSyncJob(syncer, cfg.Sync, logger)); err != nil {
			return err
		}
	}
	if cfg.Settlement.ReconcileEnabled {
		if err := s.Register(ReconcileJob(reconciler, cfg.Settlement, logger)); err != nil {
			return err
		}
	}
	return nil
}
