package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Poll live games and post punt notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initMonitor(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		zap.L().Info("monitor starting")
		if err := env.tracker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		zap.L().Info("monitor stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}
