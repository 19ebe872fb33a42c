package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"weddingbudget/internal/backend"
	"weddingbudget/internal/cli"
	"weddingbudget/internal/log"
	"weddingbudget/internal/services"
)

var (
	flagUser     string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:           "budgetctl",
	Short:         "Wedding budget administration",
	Long:          "Import exports, migrate legacy selections and inspect budgets using the configured backend.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagUser, "user", "u", "", "User id the command operates on")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
}

// env is what every command needs: a logger, the service and the backend
// that backs it.
type env struct {
	logger  *log.Logger
	svc     *services.BudgetService
	backend *backend.BackendResult
}

func (e *env) close() {
	if err := e.backend.Cleanup(); err != nil {
		e.logger.Error("Backend cleanup error", log.FieldError, err.Error())
	}
}

func setup(ctx context.Context) (*env, error) {
	if flagUser == "" {
		return nil, fmt.Errorf("--user is required")
	}
	cli.LoadEnvFile()
	logger := cli.SetupLoggerTo(os.Stderr, flagLogLevel, log.ComponentCLI)
	cfg := cli.LoadAndValidateConfig(logger)
	result := cli.InitBackend(ctx, logger, cfg, false)

	svc := services.NewBudgetService(result.Store, cfg.Members(),
		services.WithPublisher(result.Publisher()),
		services.WithLogger(logger),
	)
	return &env{logger: logger, svc: svc, backend: result}, nil
}
