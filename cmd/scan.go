package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var scanID string

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the next watchlist batch (or one company with --id)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initScanEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if scanID != "" {
			rec, err := env.Scanner.ScanOne(ctx, scanID)
			if err != nil {
				return eris.Wrap(err, "scan company")
			}
			zap.L().Info("scan complete",
				zap.String("company", rec.CompanyName),
				zap.Int("score_global", rec.ScoreGlobal),
				zap.Int("evidence", len(rec.Evidence)),
			)
			return enc.Encode(rec)
		}

		report, err := env.Scanner.Run(ctx)
		if err != nil {
			return eris.Wrap(err, "scan batch")
		}
		return enc.Encode(report)
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanID, "id", "", "watchlist entry ID for a single-company scan")
	rootCmd.AddCommand(scanCmd)
}
