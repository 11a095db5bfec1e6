package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	syncapp "github.com/zetta/backend/internal/application/catalogsync"
	settlementapp "github.com/zetta/backend/internal/application/settlement"
	"github.com/zetta/backend/internal/infrastructure/auth"
	"github.com/zetta/backend/internal/infrastructure/cache"
	"github.com/zetta/backend/internal/infrastructure/catalogsource"
	"github.com/zetta/backend/internal/infrastructure/config"
	"github.com/zetta/backend/internal/infrastructure/event"
	"github.com/zetta/backend/internal/infrastructure/logger"
	"github.com/zetta/backend/internal/infrastructure/metrics"
	"github.com/zetta/backend/internal/infrastructure/notification"
	"github.com/zetta/backend/internal/infrastructure/persistence"
	"github.com/zetta/backend/internal/infrastructure/scheduler"
	"github.com/zetta/backend/internal/infrastructure/storage"
	"github.com/zetta/backend/internal/infrastructure/telemetry"
	"github.com/zetta/backend/internal/interfaces/http/handler"
	"github.com/zetta/backend/internal/interfaces/http/middleware"
	"github.com/zetta/backend/internal/interfaces/http/router"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}, cfg.App.Name)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting Zetta backend",
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx := context.Background()

	tracer, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, cfg.App.Name, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer", zap.Error(err))
		}
	}()

	gormLog := logger.NewGormLogger(log, logger.GormLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Database.SlowThreshold))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTracing {
		if err := telemetry.RegisterGormTracing(db.DB, cfg.Database.DBName, log); err != nil {
			log.Fatal("Failed to enable database tracing", zap.Error(err))
		}
	}
	log.Info("Database connected")

	backends, err := cache.NewBackends(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.IsProduction()),
	)
	if err != nil {
		log.Fatal("Failed to initialize coordination backends", zap.Error(err))
	}
	defer func() {
		if err := backends.Close(); err != nil {
			log.Error("Error closing coordination backends", zap.Error(err))
		}
	}()

	appMetrics := metrics.New()

	// Settlement
	bus := event.NewInMemoryEventBus(log)
	settlementSvc, err := settlementapp.NewService(
		persistence.NewGormCommissionRepository(db.DB),
		persistence.NewGormSupplierPaymentRepository(db.DB),
		persistence.NewGormOrderRepository(db.DB),
		persistence.NewGormSettlementTransactionScope(db.DB),
		log,
		settlementapp.WithCommissionRate(cfg.Settlement.CommissionRate),
		settlementapp.WithEventPublisher(bus),
		settlementapp.WithMetrics(appMetrics),
	)
	if err != nil {
		log.Fatal("Failed to initialize settlement service", zap.Error(err))
	}
	if cfg.Settlement.PayoutEmailsEnabled {
		mailer, err := notification.NewMailer(cfg.Email, log)
		if err != nil {
			log.Fatal("Failed to initialize mailer", zap.Error(err))
		}
		notifier := settlementapp.NewPayoutNotificationHandler(persistence.NewGormSellerDirectory(db.DB), mailer, log)
		bus.Subscribe(event.NewIdempotentHandler("payout-notification", notifier,
			backends.Idempotency, cfg.Settlement.NotificationDedupeTTL, log))
	}

	// Catalog sync
	syncOpts := []syncapp.Option{
		syncapp.WithIdempotencyStore(backends.Idempotency, cfg.Sync.WebhookDedupeTTL),
		syncapp.WithMetrics(appMetrics),
		syncapp.WithLockTTL(cfg.Sync.LockTTL),
		syncapp.WithStrictRemoval(cfg.Sync.StrictRemoval),
		syncapp.WithBaseURL(cfg.App.BaseURL),
	}
	if cfg.Storage.Enabled {
		archive, err := storage.NewS3PayloadArchive(ctx, &cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize payload archive", zap.Error(err))
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			log.Warn("Payload archive bucket check failed", zap.Error(err))
		}
		syncOpts = append(syncOpts, syncapp.WithPayloadArchive(archive))
	}
	syncSvc := syncapp.NewService(
		persistence.NewGormSyncConfigRepository(db.DB),
		persistence.NewGormSyncLogRepository(db.DB),
		persistence.NewGormWebhookEventRepository(db.DB),
		persistence.NewGormProductRepository(db.DB),
		catalogsource.NewHTTPFetcher(cfg.Sync, catalogsource.WithLogger(log)),
		backends.Locker,
		log,
		syncOpts...,
	)

	sched := scheduler.NewScheduler(log)
	if err := scheduler.RegisterDefaults(sched, cfg, syncSvc, settlementSvc, log); err != nil {
		log.Fatal("Failed to register scheduled jobs", zap.Error(err))
	}
	sched.Start()

	// HTTP
	jwtService := auth.NewJWTService(cfg.JWT)
	var blacklist auth.TokenBlacklist = auth.NewInMemoryTokenBlacklist()
	if backends.Redis != nil {
		blacklist = auth.NewRedisTokenBlacklist(backends.Redis, auth.DefaultBlacklistPrefix)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.App.Name,
		Enabled:     cfg.Telemetry.Enabled,
		Filter: func(r *http.Request) bool {
			return r.URL.Path != "/health" && r.URL.Path != "/metrics"
		},
	}))
	engine.Use(appMetrics.GinMiddleware())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfigFrom(cfg.HTTP)))
	engine.Use(middleware.Secure(middleware.SecurityConfigFor(cfg.App.Env)))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	router.Mount(engine, router.Handlers{
		Settlement:  handler.NewSettlementHandler(settlementSvc),
		CatalogSync: handler.NewCatalogSyncHandler(syncSvc),
		Webhook:     handler.NewWebhookHandler(syncSvc, cfg.Sync.MaxWebhookBytes, log),
		System:      handler.NewSystemHandler(cfg.App.Name, version, healthChecks(db, backends)...),
	}, router.Options{
		Auth: middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
			Validator:      jwtService,
			TokenBlacklist: blacklist,
			Logger:         log,
		}),
		WebhookLimiter: middleware.NewRateLimiter(cfg.HTTP.WebhookRatePerSec, cfg.HTTP.WebhookBurst),
		Metrics:        appMetrics.Handler(),
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		log.Error("Scheduler did not stop cleanly", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

func healthChecks(db *persistence.Database, backends *cache.Backends) []handler.HealthCheck {
	checks := []handler.HealthCheck{{
		Name:  "database",
		Check: func(context.Context) error { return db.Ping() },
	}}
	if backends.Redis != nil {
		checks = append(checks, handler.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return backends.Redis.Ping(ctx).Err() },
		})
	}
	return checks
}
