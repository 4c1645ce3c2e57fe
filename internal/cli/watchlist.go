package cli

import (
	"github.com/spf13/cobra"

	"stock-alerts/internal/models"
	"stock-alerts/internal/watchlist"
)

func newWatchlistCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watchlist",
		Short: "Manage the watched symbols",
	}

	cmd.AddCommand(newWatchlistLoadCmd(app))
	cmd.AddCommand(newWatchlistShowCmd(app))
	return cmd
}

func newWatchlistLoadCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "load <file.csv>",
		Short: "Replace the active watchlist with the symbols in a CSV file",
		Long: `Load a CSV file with the header symbol,above,below. Empty threshold cells
leave that threshold unset. The file replaces the active watchlist in a
single transaction; if any row is invalid nothing changes.`,
		Example: "  stockalerts watchlist load watchlist.csv",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			entries, err := watchlist.ParseFile(args[0])
			if err != nil {
				return err
			}

			st, _, err := openStore(app)
			if err != nil {
				return err
			}
			defer st.Close()

			active, err := st.Replace(cmd.Context(), entries)
			if err != nil {
				return err
			}

			app.Logger.Info().Int("active", active).Str("file", args[0]).Msg("Watchlist loaded")
			if output.IsJSON() {
				return output.JSON(map[string]int{"loaded": len(entries), "active": active})
			}
			output.Success("✓ Loaded %d symbols; %d active in %s", len(entries), active, app.Config.Database.Path)
			return nil
		},
	}
}

func newWatchlistShowCmd(app *App) *cobra.Command {
	var asCSV bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the active watchlist",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			st, _, err := openStore(app)
			if err != nil {
				return err
			}
			defer st.Close()

			entries, err := st.Active(cmd.Context())
			if err != nil {
				return err
			}

			switch {
			case asCSV:
				return watchlist.WriteCSV(cmd.OutOrStdout(), entries)
			case output.IsJSON():
				return output.JSON(watchlistJSON(entries))
			}

			if len(entries) == 0 {
				output.Warning("Watchlist is empty. Load one with 'stockalerts watchlist load <file.csv>'.")
				return nil
			}

			output.Bold("📋 %d active symbols", len(entries))
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.Symbol,
					models.FormatThreshold(e.Above),
					models.FormatThreshold(e.Below),
				})
			}
			output.Table([]string{"Symbol", "Above", "Below"}, rows)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asCSV, "csv", false, "write the watchlist as CSV, in the format 'watchlist load' reads")
	return cmd
}

func watchlistJSON(entries []models.WatchlistEntry) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		item := map[string]interface{}{"symbol": e.Symbol, "above": nil, "below": nil}
		if e.Above.Valid {
			item["above"] = e.Above.Decimal.String()
		}
		if e.Below.Valid {
			item["below"] = e.Below.Decimal.String()
		}
		out = append(out, item)
	}
	return out
}
