package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/altiore-conseil/veille-cli/internal/generate"
	"github.com/altiore-conseil/veille-cli/internal/store"
)

var generateID string

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate outreach content for a signal record",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initScanEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		signals := store.NewSignalStore(env.KV)
		rec, err := signals.Get(ctx, generateID)
		if err != nil {
			return err
		}

		gen := generate.New(env.LLM,
			generate.WithModel(cfg.LLM.Model),
			generate.WithMaxTokens(cfg.LLM.MaxTokens),
		)

		content, err := gen.GenerateApproach(ctx, *rec)
		if err != nil {
			return eris.Wrap(err, "generate approach")
		}

		if err := signals.AttachGeneratedContent(ctx, rec.ID, *content); err != nil {
			return err
		}

		zap.L().Info("outreach content generated", zap.String("company", rec.CompanyName))

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(content)
	},
}

func init() {
	generateCmd.Flags().StringVar(&generateID, "id", "", "signal record ID (required)")
	_ = generateCmd.MarkFlagRequired("id")
	rootCmd.AddCommand(generateCmd)
}
