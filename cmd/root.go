// Package cmd implements the forecast command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/forecast/app"
	"github.com/kilianp07/forecast/config"
	coremon "github.com/kilianp07/forecast/core/monitoring"
	"github.com/kilianp07/forecast/infra/logger"
	"github.com/kilianp07/forecast/infra/monitoring"
)

var cfgPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "forecast",
		Short:         "Lag-based probabilistic forecasting toolkit",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	root.AddCommand(predictCmd(), evaluateCmd(), modelsCmd(), reportsCmd())
	return root
}

// Execute runs the CLI with the process arguments.
func Execute() error { return newRootCmd().Execute() }

// withService loads the configuration, starts monitoring and runs fn with a
// service that is closed afterwards. The context is canceled on SIGINT and
// SIGTERM.
func withService(cmd *cobra.Command, adjust func(*config.Config), fn func(context.Context, *app.Service) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if adjust != nil {
		adjust(cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)
	defer coremon.Recover()

	svc, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	return fn(ctx, svc)
}
