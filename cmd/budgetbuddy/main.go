package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"budgetbuddy/internal/backend"
	"budgetbuddy/internal/cli"
	apphttp "budgetbuddy/internal/http"
	"budgetbuddy/internal/log"
	"budgetbuddy/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		gin.SetMode(gin.ReleaseMode)
	}

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendConfig)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err)
	}

	svc, err := backend.NewBudgetService(cfg, res)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize budget service", err)
	}

	janitor := services.NewDedupJanitor(res.Dedup, services.DedupJanitorConfig{
		Retention: cfg.DedupRetention,
		Interval:  cfg.DedupPurgeInterval,
	})
	if err := janitor.Start(context.Background()); err != nil {
		cli.Fatal(logger, "Failed to start dedup janitor", err)
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		Service:            svc,
		Ready:              res.Ready,
		Logger:             logger,
		AllowedOrigins:     cfg.AllowedOrigins,
		PostRequestsPerMin: cfg.PostRequestsPerMin,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := janitor.Stop(shutdownCtx); err != nil {
			logger.Error("Dedup janitor shutdown error", log.FieldError, err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting budgetbuddy server",
		"port", cfg.Port,
		"ledger", cfg.LedgerBackend,
		"dedup", cfg.DedupBackend,
		"transport", cfg.NotifyTransport,
		"export_enabled", cfg.SheetsConfigured())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cli.Fatal(logger, "Server error", err, "port", cfg.Port)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
