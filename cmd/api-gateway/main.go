package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/changeboard-api/api/swagger"
	"github.com/noah-isme/changeboard-api/internal/handler"
	internalmiddleware "github.com/noah-isme/changeboard-api/internal/middleware"
	"github.com/noah-isme/changeboard-api/internal/repository"
	"github.com/noah-isme/changeboard-api/internal/service"
	"github.com/noah-isme/changeboard-api/pkg/config"
	"github.com/noah-isme/changeboard-api/pkg/jobs"
	"github.com/noah-isme/changeboard-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/changeboard-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/changeboard-api/pkg/middleware/requestid"
	"github.com/noah-isme/changeboard-api/pkg/storage"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// @title Changeboard API
// @version 1.0.0
// @description Inventory change log grouped by show
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	var metricsSvc *service.MetricsService
	var pageObserver repository.PageObserver
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
		pageObserver = metricsSvc
	}

	policy, err := service.ParsePolicy(cfg.Filters.VisibilityPolicy)
	if err != nil {
		logr.Fatal("invalid visibility policy", zap.Error(err))
	}

	changeLogRepo := repository.NewChangeLogRepository(nil, repository.ChangeLogConfig{
		BaseURL:    cfg.Upstream.BaseURL,
		ReportPath: cfg.Upstream.ReportPath,
		PageSize:   cfg.Upstream.PageSize,
		Timeout:    cfg.Upstream.Timeout,
		PageRate:   cfg.Upstream.PageRate,
		AuthBearer: cfg.Upstream.AuthBearer,
		AuthCookie: cfg.Upstream.AuthCookie,
	}, pageObserver, logr)

	windows := service.NewWindowCalculator(service.WindowConfig{
		EventDaysBack:  cfg.Window.EventDaysBack,
		PrepDaysPast:   cfg.Window.PrepDaysPast,
		PrepDaysFuture: cfg.Window.PrepDaysFuture,
		Location:       cfg.Window.Location,
	})

	changesSvc := service.NewChangesService(
		changeLogRepo,
		windows,
		service.NewVisibilityFilter(policy, windows),
		service.NewNoteClassifier(),
		metricsSvc,
		logr,
		service.ChangesServiceConfig{Filters: repository.ChangeLogFilters{
			EventMode:  repository.EventFilterMode(cfg.Filters.EventMode),
			OfficeIDs:  cfg.Filters.OfficeIDs,
			JobTypeIDs: cfg.Filters.JobTypeIDs,
		}},
	)
	exportSvc := service.NewExportService(changesSvc, logr, nil, nil)

	changesHandler := handler.NewChangesHandler(changesSvc, exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, version)

	staticHandler := handler.NewStaticHandler(nil)
	if cfg.StaticDir != "" {
		assets, err := storage.NewStaticDir(cfg.StaticDir, "")
		if err != nil {
			logr.Fatal("invalid static directory", zap.Error(err))
		}
		staticHandler = handler.NewStaticHandler(assets)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if metricsSvc != nil {
		r.GET("/metrics", metricsHandler.Prometheus)
	}

	api := r.Group("/api")
	api.GET("/changes", changesHandler.Changes)
	api.GET("/changes/export", changesHandler.Export)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	r.NoRoute(staticHandler.NoRoute)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Probe.Schedule != "" {
		probe := service.NewProbeService(changesSvc, metricsSvc, logr)
		scheduler, err := jobs.NewScheduler("upstream-probe", cfg.Probe.Schedule, probe.Run, jobs.SchedulerConfig{
			Location: cfg.Window.Location,
			Logger:   logr,
		})
		if err != nil {
			logr.Fatal("invalid probe schedule", zap.Error(err))
		}
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logr.Sugar().Warnw("server shutdown failed", "error", err)
		}
	}()

	logr.Sugar().Infow("server starting",
		"addr", addr,
		"env", cfg.Env,
		"version", version,
		"upstream", cfg.Upstream.BaseURL,
		"policy", policy,
		"timezone", cfg.Window.Timezone,
		"static_dir", cfg.StaticDir,
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
	logr.Sugar().Infow("server stopped")
}
