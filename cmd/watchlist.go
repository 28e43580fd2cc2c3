package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/altiore-conseil/veille-cli/internal/importer"
	"github.com/altiore-conseil/veille-cli/internal/model"
	"github.com/altiore-conseil/veille-cli/internal/region"
	"github.com/altiore-conseil/veille-cli/internal/store"
)

var (
	addName       string
	addSIREN      string
	addWebsite    string
	addRegion     string
	addDepartment string
	addCity       string
	addPostalCode string
	addSector     string
	listAll       bool
)

var watchlistCmd = &cobra.Command{
	Use:   "watchlist",
	Short: "Manage the monitored-company watchlist",
}

var watchlistAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a company to the watchlist",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		kv, err := initKV(ctx)
		if err != nil {
			return err
		}
		defer kv.Close()

		if addRegion != "" && !region.Known(addRegion) {
			zap.L().Warn("unknown region, entry kept as-is", zap.String("region", addRegion))
		}

		entry := model.WatchlistEntry{
			CompanyName: addName,
			SIREN:       addSIREN,
			WebsiteURL:  addWebsite,
			Region:      addRegion,
			Department:  addDepartment,
			City:        addCity,
			PostalCode:  addPostalCode,
			SectorCode:  addSector,
		}
		if entry.Region == "" {
			if r := region.ForPostalCode(entry.PostalCode); r != "" {
				entry.Region = r
			}
		}

		stored, err := store.NewWatchlistStore(kv).Add(ctx, entry)
		if err != nil {
			if errors.Is(err, store.ErrDuplicateEntry) {
				return eris.Errorf("company already on the watchlist: %s", entry.Identity())
			}
			return err
		}

		fmt.Printf("added %s (%s)\n", stored.CompanyName, stored.ID)
		return nil
	},
}

var watchlistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List watchlist entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		kv, err := initKV(ctx)
		if err != nil {
			return err
		}
		defer kv.Close()

		entries, err := store.NewWatchlistStore(kv).Load(ctx)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSIREN\tREGION\tACTIVE")
		for _, e := range entries {
			if !listAll && !e.Active {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", e.ID, e.CompanyName, e.SIREN, e.Region, e.Active)
		}
		return w.Flush()
	},
}

var watchlistImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import watchlist entries from a CSV or XLSX file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		kv, err := initKV(ctx)
		if err != nil {
			return err
		}
		defer kv.Close()

		entries, err := importer.ReadFile(args[0])
		if err != nil {
			return err
		}

		ws := store.NewWatchlistStore(kv)
		var added, skipped int
		for _, entry := range entries {
			if _, err := ws.Add(ctx, entry); err != nil {
				if errors.Is(err, store.ErrDuplicateEntry) {
					skipped++
					continue
				}
				return eris.Wrapf(err, "import %s", entry.CompanyName)
			}
			added++
		}

		zap.L().Info("import complete",
			zap.Int("added", added),
			zap.Int("skipped_duplicates", skipped),
		)
		fmt.Printf("imported %d entries (%d duplicates skipped)\n", added, skipped)
		return nil
	},
}

var watchlistDeactivateCmd = &cobra.Command{
	Use:   "deactivate <id>",
	Short: "Exclude an entry from future scans without deleting it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		kv, err := initKV(ctx)
		if err != nil {
			return err
		}
		defer kv.Close()

		return store.NewWatchlistStore(kv).Deactivate(ctx, args[0])
	},
}

var watchlistRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Delete an entry from the watchlist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		kv, err := initKV(ctx)
		if err != nil {
			return err
		}
		defer kv.Close()

		return store.NewWatchlistStore(kv).Remove(ctx, args[0])
	},
}

var watchlistShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one entry as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		kv, err := initKV(ctx)
		if err != nil {
			return err
		}
		defer kv.Close()

		entries, err := store.NewWatchlistStore(kv).Load(ctx)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.ID == args[0] {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(e)
			}
		}
		return store.ErrNotFound
	},
}

func init() {
	watchlistAddCmd.Flags().StringVar(&addName, "name", "", "company name (required)")
	watchlistAddCmd.Flags().StringVar(&addSIREN, "siren", "", "SIREN number")
	watchlistAddCmd.Flags().StringVar(&addWebsite, "website", "", "company website URL")
	watchlistAddCmd.Flags().StringVar(&addRegion, "region", "", "administrative region")
	watchlistAddCmd.Flags().StringVar(&addDepartment, "department", "", "department code")
	watchlistAddCmd.Flags().StringVar(&addCity, "city", "", "city")
	watchlistAddCmd.Flags().StringVar(&addPostalCode, "postal-code", "", "postal code")
	watchlistAddCmd.Flags().StringVar(&addSector, "sector", "", "NAF sector code")
	_ = watchlistAddCmd.MarkFlagRequired("name")

	watchlistListCmd.Flags().BoolVar(&listAll, "all", false, "include deactivated entries")

	watchlistCmd.AddCommand(watchlistAddCmd, watchlistListCmd, watchlistImportCmd,
		watchlistDeactivateCmd, watchlistRemoveCmd, watchlistShowCmd)
	rootCmd.AddCommand(watchlistCmd)
}
