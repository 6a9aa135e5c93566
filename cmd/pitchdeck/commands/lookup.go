package commands

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spherical/pitchdeck-analyzer/cmd/pitchdeck/ui"
	"github.com/spherical/pitchdeck-analyzer/internal/pipeline"
)

var lookupJSON bool

var lookupCmd = &cobra.Command{
	Use:   "lookup <name> [name...]",
	Short: "Look up founder profiles by name",
	Example: `  pitchdeck lookup "Brian Chesky" "Joe Gebbia"
  pitchdeck lookup "Ludovic Mangallon" --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if !cfg.SearchEnabled() {
			ui.Warning("Search credentials not configured, every founder will be skipped")
		}

		coordinator, store, err := pipeline.BuildCoordinator(ctx, cfg, logger)
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
		}

		spin := ui.NewSpinner(fmt.Sprintf("Looking up %d founder(s)", len(args)))
		spin.Start()
		results, err := coordinator.Lookup(ctx, args)
		spin.Stop()
		if err != nil {
			return err
		}

		if lookupJSON {
			data, err := json.MarshalIndent(results, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		rows := make([][]string, 0, len(results))
		for _, r := range results {
			handle, headline, location := "-", "-", "-"
			if r.Handle != nil {
				handle = *r.Handle
			}
			if r.Profile != nil {
				headline = orDash(r.Profile.Headline)
				location = orDash(r.Profile.Location)
			}
			rows = append(rows, []string{r.Name, string(r.Status), handle, headline, location})
		}
		ui.Table([]string{"NAME", "STATUS", "HANDLE", "HEADLINE", "LOCATION"}, rows)
		return nil
	},
}

func init() {
	lookupCmd.Flags().BoolVar(&lookupJSON, "json", false, "print results as JSON")
	rootCmd.AddCommand(lookupCmd)
}
