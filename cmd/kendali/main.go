package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/tmc6backup-cloud/e-kendali-suma/internal/app"
	"github.com/tmc6backup-cloud/e-kendali-suma/internal/auth"
	"github.com/tmc6backup-cloud/e-kendali-suma/internal/ceiling"
	"github.com/tmc6backup-cloud/e-kendali-suma/internal/dashboard"
	"github.com/tmc6backup-cloud/e-kendali-suma/internal/insight"
	"github.com/tmc6backup-cloud/e-kendali-suma/internal/observability"
	"github.com/tmc6backup-cloud/e-kendali-suma/internal/platform/db"
	"github.com/tmc6backup-cloud/e-kendali-suma/internal/profiles"
	"github.com/tmc6backup-cloud/e-kendali-suma/internal/rbac"
	"github.com/tmc6backup-cloud/e-kendali-suma/internal/request"
	"github.com/tmc6backup-cloud/e-kendali-suma/internal/shared"
	"github.com/tmc6backup-cloud/e-kendali-suma/internal/storage"
	"github.com/tmc6backup-cloud/e-kendali-suma/jobs"
	"github.com/tmc6backup-cloud/e-kendali-suma/report"
)

// committedItemsSource bridges committed request lines into the ceiling
// utilization calculation without a package cycle.
type committedItemsSource struct {
	requests *request.Service
}

func (s committedItemsSource) ListCommittedItems(ctx context.Context) ([]ceiling.CommittedItem, error) {
	lines, err := s.requests.CommittedLines(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]ceiling.CommittedItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, ceiling.CommittedItem{
			Department:      line.Department,
			ROCode:          line.ROCode,
			KomponenCode:    line.KomponenCode,
			SubkomponenCode: line.SubkomponenCode,
			Jumlah:          line.Jumlah,
		})
	}
	return items, nil
}

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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "kendali_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	auditLogger := shared.NewAuditLogger(pool)
	approvalRecorder := shared.NewApprovalRecorder(pool, logger)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	profileRepo := profiles.NewRepository(pool)
	profileService := profiles.NewService(profileRepo, auditLogger)

	rbacMiddleware := rbac.Middleware{Profiles: profileService, Logger: logger}
	profileHandler := profiles.NewHandler(logger, profileService, rbacMiddleware)

	insightClient := insight.NewClient(cfg.GeminiBaseURL, cfg.GeminiAPIKey, logger)

	dashboardRepo := dashboard.NewRepository(pool)
	dashboardCache := dashboard.NewCache(redisClient, cfg.DashboardCacheTTL)
	dashboardService := dashboard.NewService(dashboardRepo, dashboardRepo, insightClient, dashboardCache)
	if err := dashboardCache.ListenForInvalidation(ctx, ""); err != nil {
		logger.Warn("cache invalidation listener", slog.Any("error", err))
	}

	requestRepo := request.NewRepository(pool)
	requestService := request.NewService(requestRepo, insightClient, approvalRecorder, auditLogger, idempotencyStore, dashboardService)

	ceilingRepo := ceiling.NewRepository(pool)
	ceilingService := ceiling.NewService(ceilingRepo, committedItemsSource{requests: requestService}, auditLogger, dashboardService)
	ceilingHandler := ceiling.NewHandler(logger, ceilingService, rbacMiddleware)

	uploader := storage.NewClient(cfg.StorageURL, cfg.StorageBucket, cfg.StorageServiceKey)
	gotenberg := report.NewClient(cfg.GotenbergURL)
	cardRenderer, err := report.NewCardRenderer(gotenberg)
	if err != nil {
		logger.Error("init card renderer", slog.Any("error", err))
		os.Exit(1)
	}
	requestHandler := request.NewHandler(logger, requestService, rbacMiddleware, uploader, cardRenderer)

	dashboardHandler := dashboard.NewHandler(logger, dashboardService, rbacMiddleware)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		RBACMiddleware:   rbacMiddleware,
		AuthHandler:      authHandler,
		ProfilesHandler:  profileHandler,
		CeilingHandler:   ceilingHandler,
		RequestHandler:   requestHandler,
		DashboardHandler: dashboardHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
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
