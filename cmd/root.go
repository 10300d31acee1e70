package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/puntwatch/puntwatch/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "puntwatch",
	Short: "Surrender Index punt monitoring bot",
	Long:  "Watches live NFL games, scores every punt's cowardice on the Surrender Index, and posts the results with a vote-gated cancellation workflow.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
