package cli

import (
	"github.com/spf13/cobra"

	"stock-alerts/internal/config"
	"stock-alerts/internal/source"
)

func newSourcesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the price sources and whether their credentials are set",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			type row struct {
				ID       source.ID `json:"id"`
				Provider string    `json:"provider"`
				Ready    bool      `json:"ready"`
				Needs    string    `json:"needs,omitempty"`
			}

			var rows []row
			for _, id := range source.IDs {
				provider, needs, ready := sourceStatus(id, app.Config.Secrets)
				rows = append(rows, row{ID: id, Provider: provider, Ready: ready, Needs: needs})
			}

			if output.IsJSON() {
				return output.JSON(rows)
			}

			table := make([][]string, 0, len(rows))
			for _, r := range rows {
				status := output.Green("ready")
				if !r.Ready {
					status = output.Yellow("missing " + r.Needs)
				}
				table = append(table, []string{string(r.ID), r.Provider, status})
			}
			output.Table([]string{"Source", "Provider", "Credentials"}, table)
			return nil
		},
	}
}

func sourceStatus(id source.ID, s config.Secrets) (provider, needs string, ready bool) {
	switch id {
	case source.YF:
		return "Yahoo Finance", "", true
	case source.Finnhub:
		return "Finnhub", "FINNHUB_API_KEY", s.FinnhubAPIKey != ""
	case source.TwelveData:
		return "Twelve Data", "TWELVEDATA_API_KEY", s.TwelveDataAPIKey != ""
	case source.EODHD:
		return "EODHD", "EODHD_API_KEY", s.EODHDAPIKey != ""
	case source.AlphaVantage:
		return "Alpha Vantage", "ALPHA_VANTAGE_API_KEY", s.AlphaVantageAPIKey != ""
	case source.Polygon:
		return "Polygon.io", "POLYGON_API_KEY", s.PolygonAPIKey != ""
	case source.Kite:
		return "Zerodha Kite", "KITE_API_KEY/KITE_ACCESS_TOKEN", s.KiteAPIKey != "" && s.KiteAccessToken != ""
	default:
		return string(id), "", false
	}
}
