package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	internalhttp "github.com/labops/fleetprov/internal/api/http"
	"github.com/labops/fleetprov/internal/api/http/middleware"
	"github.com/labops/fleetprov/internal/audit"
	"github.com/labops/fleetprov/internal/credential"
	"github.com/labops/fleetprov/internal/db"
	"github.com/labops/fleetprov/internal/fleet"
	"github.com/labops/fleetprov/internal/identity"
	"github.com/labops/fleetprov/internal/inventory"
	"github.com/labops/fleetprov/internal/job"
	"github.com/labops/fleetprov/internal/metrics"
	"github.com/labops/fleetprov/internal/notify"
	"github.com/labops/fleetprov/internal/orchestrator"
)

var AppVersion string

func main() {
	InitConfig()

	slog.Info("Fleet Provisioning Server", "version", AppVersion)

	inv, err := inventory.Load(config.Fleet.InventoryPath)
	if err != nil {
		slog.Error("Failed to load inventory", "error", err)
		os.Exit(1)
	}
	slog.Info("Inventory loaded", "hosts", len(inv.Hosts))

	recorder, err := buildRecorder()
	if err != nil {
		slog.Error("Failed to initialize audit recorder", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewPrometheusCollector(registry)

	prober := fleet.NewProber(
		&fleet.ExecRunner{Binary: config.Fleet.AnsibleBinary, InventoryPath: config.Fleet.InventoryPath},
		inv,
		config.Fleet.ProbeTimeout(),
		slog.Default(),
	)

	runner := job.NewExecRunner(job.Spec{
		Binary:        config.Job.PlaybookBinary,
		InventoryPath: config.Fleet.InventoryPath,
		PlaybookPath:  config.Job.PlaybookPath,
	}, config.Job.Timeout(), slog.Default())

	notifier := notify.NewSMTPNotifier(
		config.Smtp.Addr, config.Smtp.From, config.Smtp.AdminAddr, slog.Default())

	orch := orchestrator.New(orchestrator.Options{
		Normalizer: identity.NewNormalizer(config.Fleet.AllowedDomain),
		Prober:     prober,
		Issuer:     credential.NewIssuer(config.Credential.Length),
		Runner:     runner,
		Notifier:   notifier,
		Recorder:   recorder,
		Collector:  collector,
	})

	rlConfig := middleware.DefaultRateLimiterConfig()
	if config.Http.RateLimit.RequestsPerMinute > 0 {
		rlConfig.RequestsPerMinute = config.Http.RateLimit.RequestsPerMinute
	}
	if config.Http.RateLimit.Burst > 0 {
		rlConfig.Burst = config.Http.RateLimit.Burst
	}
	rateLimiter := middleware.NewRateLimiter(rlConfig)
	defer rateLimiter.Stop()

	services := &internalhttp.Services{
		Accounts:    orch,
		Recorder:    recorder,
		AdminAPIKey: config.Http.AdminAPIKey,
		RateLimiter: rateLimiter,
		Gatherer:    registry,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST"},
		AllowHeaders:  []string{"Origin", "Content-Length", "Content-Type", "X-API-Key"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))
	engine.Use(gin.Recovery())
	internalhttp.SetupRoute(engine, services)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.Http.Port),
		Handler: engine,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		slog.Error("Server error", "error", err)
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig)
	}

	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}
}

func buildRecorder() (audit.Recorder, error) {
	if !config.Database.Enabled {
		slog.Info("Audit trail using CSV file", "path", config.Audit.CsvPath)
		return audit.NewCSVRecorder(config.Audit.CsvPath), nil
	}

	if err := db.RunMigrations(config.Database.Url, config.Database.Schema); err != nil {
		return nil, fmt.Errorf("migrations failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := db.InitDB(ctx, config.Database.Url, config.Database.Schema)
	if err != nil {
		return nil, err
	}
	return audit.NewPostgresRecorder(pool), nil
}
