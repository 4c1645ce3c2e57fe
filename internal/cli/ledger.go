package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	apperrors "stock-alerts/internal/errors"
	"stock-alerts/internal/models"
	"stock-alerts/internal/source"
	"stock-alerts/internal/store"
)

func newLedgerCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect delivered alerts",
	}
	cmd.AddCommand(newLedgerShowCmd(app))
	return cmd
}

func newLedgerShowCmd(app *App) *cobra.Command {
	var (
		day    string
		src    string
		symbol string
		limit  int
		today  bool
	)

	cmd := &cobra.Command{
		Use:     "show",
		Short:   "List recorded alerts, newest first",
		Example: "  stockalerts ledger show --today\n  stockalerts ledger show --day 2025-06-03 --source YF",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			filter := store.RecordFilter{Day: day, Symbol: models.NormalizeSymbol(symbol), Limit: limit}
			if day != "" {
				if _, err := time.Parse(models.DayLayout, day); err != nil {
					return fmt.Errorf("%w: --day must be YYYY-MM-DD", apperrors.ErrInputValidation)
				}
			}
			if src != "" {
				id, err := source.ParseID(src)
				if err != nil {
					return err
				}
				filter.Source = string(id)
			}

			st, clock, err := openStore(app)
			if err != nil {
				return err
			}
			defer st.Close()

			if today {
				filter.Day = clock.Today()
			}

			ledger, _, closeLedger, err := openLedger(cmd.Context(), app, st, clock)
			if err != nil {
				return err
			}
			defer closeLedger()

			records, err := ledger.Records(cmd.Context(), filter)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(records)
			}
			if len(records) == 0 {
				output.Dim("No alerts recorded.")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, r := range records {
				rows = append(rows, []string{
					r.Day,
					r.Time,
					r.Source,
					r.Symbol,
					directionLabel(output, r.Direction),
					"$" + r.Threshold,
					"$" + humanize.FormatFloat("#,###.##", r.Price),
				})
			}
			output.Table([]string{"Date", "Time", "Source", "Symbol", "Direction", "Threshold", "Price"}, rows)
			output.Dim("%d alerts", len(records))
			return nil
		},
	}

	cmd.Flags().StringVar(&day, "day", "", "only alerts from this day (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&today, "today", false, "only alerts from today")
	cmd.Flags().StringVar(&src, "source", "", "only alerts from this price source")
	cmd.Flags().StringVar(&symbol, "symbol", "", "only alerts for this symbol")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum number of alerts to list (0 for all)")
	cmd.MarkFlagsMutuallyExclusive("day", "today")
	return cmd
}

func directionLabel(output *Output, d models.Direction) string {
	if d == models.DirectionAbove {
		return output.Green(d.Emoji() + " above")
	}
	return output.Red(d.Emoji() + " below")
}
