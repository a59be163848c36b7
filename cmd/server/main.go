package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frostdev-ops/kpi-backend-go/internal/adapters/google"
	"github.com/frostdev-ops/kpi-backend-go/internal/api"
	"github.com/frostdev-ops/kpi-backend-go/internal/api/handlers"
	"github.com/frostdev-ops/kpi-backend-go/internal/config"
	"github.com/frostdev-ops/kpi-backend-go/internal/core/kpi"
	"github.com/frostdev-ops/kpi-backend-go/internal/core/metrics"
	"github.com/frostdev-ops/kpi-backend-go/internal/database"
	"github.com/frostdev-ops/kpi-backend-go/pkg/logger"
	"github.com/frostdev-ops/kpi-backend-go/pkg/version"
	"github.com/spf13/pflag"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to config.yaml (default: ./configs/config.yaml or ./config.yaml)")
	pflag.Parse()

	// Load configuration
	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	build := version.GetBuildInfo()
	log.WithFields(map[string]interface{}{
		"version":    build.Version,
		"git_commit": build.GitCommit,
		"build_date": build.BuildDate,
	}).Info("KPI Backend starting")

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()

	// Run migrations
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db, cfg.Database.MigrationsPath); err != nil {
			log.Fatal("Failed to run migrations:", err)
		}
	}

	// Create repositories
	repos := database.NewRepositories(db, log)
	store := kpi.NewRepositoryStore(repos.KPI, repos.History, repos.Alert)

	// Metrics
	collector := metrics.NewPrometheusCollector(&metrics.MetricsConfig{
		Enabled: cfg.Monitoring.Prometheus.Enabled,
		Prefix:  cfg.Monitoring.Prometheus.Prefix,
	})

	// Initialize the metrics provider if enabled
	var provider kpi.MetricsProvider
	if cfg.Providers.Google.Enabled {
		log.Info("Initializing Google metrics provider")
		client := google.NewClient(context.Background(), cfg.Providers.Google, log)
		provider = google.NewProvider(client, collector, log)
	} else {
		log.Warn("No metrics provider configured; only recomputes with supplied metrics will succeed")
	}

	// Initialize the evaluation service
	service := kpi.NewService(store, provider, kpi.ServiceConfig{
		SingleFlight:         cfg.KPI.SingleFlight,
		RecomputeTimeout:     cfg.KPI.RecomputeTimeout,
		DefaultDateRangeDays: cfg.KPI.DefaultDateRangeDays,
	}, log,
		kpi.WithRecorder(collector),
		kpi.WithAlertEngine(kpi.NewAlertEngine(kpi.WithTrendDelta(cfg.KPI.TrendAlertDelta))),
	)

	// Initialize router
	h := handlers.NewHandlers(store, service, db, log)
	router := api.NewRouter(cfg, h, collector, log)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.KPI.RecomputeTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		log.Infof("Starting KPI Backend on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Info("Server exited")
}
