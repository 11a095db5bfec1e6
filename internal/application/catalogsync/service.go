// Package catalogsync runs seller catalog imports: scheduled polling of
// API, CSV and XML sources, pushed webhook events, and source management.
package catalogsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/zetta/backend/internal/domain/catalogsync"
	"github.com/zetta/backend/internal/domain/shared"
	"github.com/zetta/backend/internal/infrastructure/logger"
)

const (
	defaultLockTTL   = 30 * time.Minute
	defaultDedupeTTL = 72 * time.Hour
	lockKeyPrefix    = "catalog-sync:"
)

// Service coordinates catalog sync runs against the product store.
type Service struct {
	configs  catalogsync.SyncConfigRepository
	logs     catalogsync.SyncLogRepository
	events   catalogsync.WebhookEventRepository
	products catalogsync.ProductRepository
	fetcher  SourceFetcher
	locker   shared.Locker

	archive   PayloadArchive
	dedupe    shared.IdempotencyStore
	metrics   SyncMetrics
	validate  *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	lockTTL   time.Duration
	dedupeTTL time.Duration
	strict    bool
	baseURL   string
}

// Option configures a Service
type Option func(*Service)

// WithPayloadArchive keeps raw source bodies
func WithPayloadArchive(a PayloadArchive) Option {
	return func(s *Service) {
		s.archive = a
	}
}

// WithIdempotencyStore enables webhook delivery dedupe
func WithIdempotencyStore(store shared.IdempotencyStore, ttl time.Duration) Option {
	return func(s *Service) {
		s.dedupe = store
		if ttl > 0 {
			s.dedupeTTL = ttl
		}
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(m SyncMetrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLockTTL bounds how long a crashed run can hold a config
func WithLockTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

// WithStrictRemoval marks dropped products withdrawn instead of sold
func WithStrictRemoval(strict bool) Option {
	return func(s *Service) {
		s.strict = strict
	}
}

// WithBaseURL is used to build webhook URLs
func WithBaseURL(baseURL string) Option {
	return func(s *Service) {
		s.baseURL = baseURL
	}
}

// NewService creates a catalog sync Service
func NewService(
	configs catalogsync.SyncConfigRepository,
	logs catalogsync.SyncLogRepository,
	events catalogsync.WebhookEventRepository,
	products catalogsync.ProductRepository,
	fetcher SourceFetcher,
	locker shared.Locker,
	log *zap.Logger,
	opts ...Option,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		configs:   configs,
		logs:      logs,
		events:    events,
		products:  products,
		fetcher:   fetcher,
		locker:    locker,
		metrics:   noopMetrics{},
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    log,
		now:       time.Now,
		lockTTL:   defaultLockTTL,
		dedupeTTL: defaultDedupeTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) log(ctx context.Context) *zap.Logger {
	return logger.L(logger.Ensure(ctx, s.logger))
}

// SyncProduct upserts one record by (seller, external id). Records without
// an external id are counted as skipped and yield ErrMissingExternalID.
func (s *Service) SyncProduct(ctx context.Context, cfg *catalogsync.CatalogSyncConfig, record catalogsync.ExternalRecord, counters *catalogsync.RunCounters) error {
	externalID, err := catalogsync.ExternalID(record, cfg.MappingRules)
	if err != nil {
		counters.Skipped++
		return err
	}
	mapped := catalogsync.MapExternalProduct(record, cfg.MappingRules)
	status := catalogsync.ListingStatus(cfg.AutoApprove)

	existing, err := s.products.FindBySellerAndExternalID(ctx, cfg.SellerID, externalID)
	switch {
	case errors.Is(err, catalogsync.ErrProductNotFound):
		p := catalogsync.NewSyncedProduct(cfg.SellerID, externalID, mapped, status)
		err = s.products.Create(ctx, p)
		if err == nil {
			counters.Added++
			return nil
		}
		if !errors.Is(err, catalogsync.ErrProductExists) {
			return fmt.Errorf("create product %s: %w", externalID, err)
		}
		// lost a race with a concurrent writer; update what it created
		existing, err = s.products.FindBySellerAndExternalID(ctx, cfg.SellerID, externalID)
		if err != nil {
			return fmt.Errorf("reload product %s: %w", externalID, err)
		}
	case err != nil:
		return fmt.Errorf("find product %s: %w", externalID, err)
	}

	existing.Apply(mapped, status, s.now())
	if err := s.products.Save(ctx, existing); err != nil {
		return fmt.Errorf("update product %s: %w", externalID, err)
	}
	counters.Updated++
	return nil
}

// RemoveProduct soft-deletes one product. An unknown external id is not an error.
func (s *Service) RemoveProduct(ctx context.Context, cfg *catalogsync.CatalogSyncConfig, externalID string, counters *catalogsync.RunCounters) error {
	err := s.products.SetStatusByExternalID(ctx, cfg.SellerID, externalID, catalogsync.RemovalStatus(s.strict))
	if errors.Is(err, catalogsync.ErrProductNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("remove product %s: %w", externalID, err)
	}
	counters.Removed++
	return nil
}

// FullCatalogSync makes the seller's listed products match records. Every
// add and update is applied before any removal is computed, so a product is
// never removed and re-added in the same pass.
func (s *Service) FullCatalogSync(ctx context.Context, cfg *catalogsync.CatalogSyncConfig, records []catalogsync.ExternalRecord, counters *catalogsync.RunCounters) error {
	before, err := s.products.ListListedExternalIDs(ctx, cfg.SellerID)
	if err != nil {
		return fmt.Errorf("snapshot listed products: %w", err)
	}

	seen := make(map[string]struct{}, len(records))
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		externalID, idErr := catalogsync.ExternalID(record, cfg.MappingRules)
		if err := s.SyncProduct(ctx, cfg, record, counters); err != nil {
			if errors.Is(err, catalogsync.ErrMissingExternalID) {
				continue
			}
			return err
		}
		if idErr == nil {
			seen[externalID] = struct{}{}
		}
	}

	for _, externalID := range before {
		if _, ok := seen[externalID]; ok {
			continue
		}
		if err := s.RemoveProduct(ctx, cfg, externalID, counters); err != nil {
			return err
		}
	}
	return nil
}
