package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/altiore-conseil/veille-cli/internal/model"
	"github.com/altiore-conseil/veille-cli/internal/store"
)

var (
	signalsStatus   string
	signalsMinScore int
)

var signalsCmd = &cobra.Command{
	Use:   "signals",
	Short: "Review detected signal records",
}

var signalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List signal records, highest global score first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		kv, err := initKV(ctx)
		if err != nil {
			return err
		}
		defer kv.Close()

		records, err := store.NewSignalStore(kv).Load(ctx)
		if err != nil {
			return err
		}

		filtered := records[:0:0]
		for _, r := range records {
			if signalsStatus != "" && string(r.Status) != signalsStatus {
				continue
			}
			if r.ScoreGlobal < signalsMinScore {
				continue
			}
			filtered = append(filtered, r)
		}
		sortByGlobalScore(filtered)

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCOMPANY\tGLOBAL\tNEED\tSIGNALS\tSTATUS\tUPDATED")
		for _, r := range filtered {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
				r.ID, r.CompanyName, r.ScoreGlobal, r.ScoreNeed,
				len(r.Evidence), r.Status, r.UpdatedAt.Format("2006-01-02"))
		}
		return w.Flush()
	},
}

var signalsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one signal record as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		kv, err := initKV(ctx)
		if err != nil {
			return err
		}
		defer kv.Close()

		rec, err := store.NewSignalStore(kv).Get(ctx, args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

var signalsReviewCmd = &cobra.Command{
	Use:   "review <id>",
	Short: "Mark a signal record as reviewed",
	Args:  cobra.ExactArgs(1),
	RunE:  statusUpdateRunE(model.StatusReviewed),
}

var signalsDiscardCmd = &cobra.Command{
	Use:   "discard <id>",
	Short: "Discard a signal record; the next scan creates a fresh one",
	Args:  cobra.ExactArgs(1),
	RunE:  statusUpdateRunE(model.StatusDiscarded),
}

func statusUpdateRunE(status model.SignalStatus) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		kv, err := initKV(ctx)
		if err != nil {
			return err
		}
		defer kv.Close()

		return store.NewSignalStore(kv).UpdateStatus(ctx, args[0], status)
	}
}

func sortByGlobalScore(records []model.SignalRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ScoreGlobal > records[j].ScoreGlobal
	})
}

func init() {
	signalsListCmd.Flags().StringVar(&signalsStatus, "status", "", "filter by status (new, reviewed, discarded)")
	signalsListCmd.Flags().IntVar(&signalsMinScore, "min-score", 0, "minimum global score")

	signalsCmd.AddCommand(signalsListCmd, signalsShowCmd, signalsReviewCmd, signalsDiscardCmd)
	rootCmd.AddCommand(signalsCmd)
}
