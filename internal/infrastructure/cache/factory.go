package cache

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/zetta/backend/internal/domain/shared"
	"github.com/zetta/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Backends bundles the coordination primitives shared by the sync engine and
// the settlement notifier
type Backends struct {
	Idempotency shared.IdempotencyStore
	Locker      shared.Locker
	// Redis is nil when the in-memory fallback is in use
	Redis *redis.Client
}

// Close releases the stores and the Redis connection
func (b *Backends) Close() error {
	_ = b.Idempotency.Close()
	if b.Redis != nil {
		return b.Redis.Close()
	}
	return nil
}

// FactoryOption is a functional option for NewBackends
type FactoryOption func(*factory)

type factory struct {
	logger        *zap.Logger
	allowFallback bool
}

// WithLogger sets the logger used to report the chosen backend
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to
// in-process stores. Defaults to true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *factory) {
		f.allowFallback = allow
	}
}

// NewBackends picks Redis when it is enabled and reachable, otherwise the
// in-memory implementations. In-memory locks and dedupe do not span
// instances, so multi-instance deployments must run Redis.
func NewBackends(cfg config.RedisConfig, opts ...FactoryOption) (*Backends, error) {
	f := &factory{logger: zap.NewNop(), allowFallback: true}
	for _, opt := range opts {
		opt(f)
	}

	if cfg.Enabled {
		client, err := NewRedisClient(cfg)
		if err == nil {
			f.logger.Info("using Redis for idempotency and sync locks", zap.String("addr", cfg.Addr()))
			return &Backends{
				Idempotency: NewRedisIdempotencyStore(client, ""),
				Locker:      NewRedisLocker(client, ""),
				Redis:       client,
			}, nil
		}
		if !f.allowFallback {
			return nil, fmt.Errorf("redis required but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory idempotency and locks", zap.Error(err))
	}

	return &Backends{
		Idempotency: NewInMemoryIdempotencyStore(),
		Locker:      NewInMemoryLocker(),
	}, nil
}
