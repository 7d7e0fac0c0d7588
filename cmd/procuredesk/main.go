package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/procuredesk/procuredesk/internal/app"
	"github.com/procuredesk/procuredesk/internal/observability"
	"github.com/procuredesk/procuredesk/internal/platform/blob"
	"github.com/procuredesk/procuredesk/internal/platform/cache"
	"github.com/procuredesk/procuredesk/internal/platform/db"
	"github.com/procuredesk/procuredesk/internal/procurement"
	"github.com/procuredesk/procuredesk/internal/reporting"
	"github.com/procuredesk/procuredesk/internal/shared"
	"github.com/procuredesk/procuredesk/internal/users"
	"github.com/procuredesk/procuredesk/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	var pool *pgxpool.Pool
	if cfg.BackendEnabled() {
		if cfg.DBAutoMigrate {
			version, err := db.Migrate(cfg.PGDSN)
			if err != nil {
				logger.Error("migrate database", slog.Any("error", err))
				os.Exit(1)
			}
			logger.Info("database migrated", slog.Uint64("version", uint64(version)))
		}
		pool, err = db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
	} else {
		logger.Warn("PG_DSN not set, requests stay in memory")
	}

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}

	metrics := observability.NewMetrics()
	sessionManager := shared.NewSessionManager(redisClient, "procuredesk_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())

	var userRepo users.RepositoryPort = users.NewMemoryRepository(users.DemoUsers()...)
	if pool != nil {
		userRepo = users.NewRepository(pool)
	}
	userService := users.NewService(userRepo)

	queue := jobs.NewClient(redisOpts)
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Warn("queue close", slog.Any("error", err))
		}
	}()

	deps := procurement.ServiceDeps{
		Queue:   queue,
		Users:   userService,
		Metrics: metrics,
		Logger:  logger,
	}
	if pool != nil {
		deps.Backend = procurement.NewRepository(pool)
		deps.Activity = shared.NewActivityLogger(pool)
	}
	if cfg.BlobEnabled() {
		store, err := blob.NewS3Store(ctx, blob.Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			URLExpiry: cfg.S3URLExpiry,
		})
		if err != nil {
			logger.Error("init blob store", slog.Any("error", err))
			os.Exit(1)
		}
		deps.Blob = store
	}

	requestStore := procurement.NewStore()
	unsubscribe := requestStore.Subscribe(func(procurement.Request) {
		metrics.SetStoreSize(requestStore.Len())
	})
	defer unsubscribe()
	procurementService := procurement.NewService(requestStore, deps, procurement.ServiceConfig{Latency: cfg.MutationLatency})

	var ready atomic.Bool
	go func() {
		backoff := time.Second
		for {
			source, err := loadRequests(ctx, procurementService, requestStore)
			if err == nil {
				logger.Info("requests loaded", slog.String("source", string(source)), slog.Int("count", requestStore.Len()))
				ready.Store(true)
				return
			}
			logger.Error("load requests", slog.Any("error", err), slog.Duration("retry_in", backoff))
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, 30*time.Second)
		}
	}()

	var performance reporting.PerformanceSource
	if pool != nil {
		performance = reporting.NewRepository(pool)
	}
	reportCache := reporting.NewCache(redisClient, cfg.ReportCacheTTL)
	reportService := reporting.NewService(procurementService, performance, reportCache)

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		Users:              userService,
		UsersHandler:       users.NewHandler(logger, userService),
		ProcurementHandler: procurement.NewHandler(logger, procurementService),
		ReportingHandler:   reporting.NewHandler(logger, reportService),
		JobHandler:         jobs.NewHandler(inspector, logger),
		Metrics:            metrics,
		Ready:              ready.Load,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

// loadRequests fills the store once. Without a backend the fallback dataset
// is served from memory.
func loadRequests(ctx context.Context, svc *procurement.Service, store *procurement.Store) (procurement.LoadSource, error) {
	loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	source, err := svc.Load(loadCtx)
	if err != nil {
		return source, err
	}
	if source == procurement.LoadNone {
		store.Load(procurement.FallbackRequests())
		source = procurement.LoadFallback
	}
	return source, nil
}
