package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/altiore-conseil/veille-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "veille-cli",
	Short: "Unattended business-signal detection for a regional B2B watchlist",
	Long:  "Gathers public evidence on watched companies, extracts typed business signals via an LLM, scores the opportunity and persists reviewable signal records.",
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
