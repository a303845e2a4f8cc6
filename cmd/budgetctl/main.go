package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"budgetbuddy/internal/backend"
	"budgetbuddy/internal/cli"
	"budgetbuddy/internal/config"
	"budgetbuddy/internal/core"
	"budgetbuddy/internal/log"
	"budgetbuddy/internal/services"
)

var (
	ownerID    string
	ownerEmail string

	rootCmd = &cobra.Command{
		Use:   "budgetctl",
		Short: "Operate on budgetbuddy ledgers from the command line",
		Long: `budgetctl runs maintenance against the configured ledger and dedup
store: recompute spend, inspect summaries, purge or reset notification
history and export summaries to Google Sheets.`,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&ownerID, "owner", "", "owner id to operate on")
	rootCmd.PersistentFlags().StringVar(&ownerEmail, "email", "", "owner email, used as notification recipient")

	rootCmd.AddCommand(recomputeCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(presetsCmd())
	rootCmd.AddCommand(resetCmd())
	rootCmd.AddCommand(purgeCmd())
	rootCmd.AddCommand(exportCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app is what every command needs: the loaded config, the wired service
// and the backend to release afterwards.
type app struct {
	cfg     *config.Config
	backend *backend.BackendResult
	svc     *services.BudgetService
}

func openApp(ctx context.Context) (*app, error) {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendConfig)
	if err != nil {
		return nil, err
	}
	svc, err := backend.NewBudgetService(cfg, res)
	if err != nil {
		_ = res.Cleanup()
		return nil, err
	}
	return &app{cfg: cfg, backend: res, svc: svc}, nil
}

func (a *app) Close() {
	if err := a.backend.Cleanup(); err != nil {
		fmt.Fprintln(os.Stderr, "cleanup:", err)
	}
}

func requireOwner() (core.Owner, error) {
	owner := core.Owner{ID: ownerID, Email: ownerEmail}
	if err := owner.Validate(); err != nil {
		return core.Owner{}, fmt.Errorf("--owner is required: %w", err)
	}
	return owner, nil
}
