// Package cli provides the command-line interface for the stock alerts application.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"stock-alerts/internal/config"
	"stock-alerts/internal/logging"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2025-06-01"
)

// skipConfig marks commands that must run without a loadable configuration.
const skipConfig = "skip-config"

// App holds the application dependencies. Config and Logger are filled in
// before any command that needs them runs.
type App struct {
	Config    *config.Config
	Logger    zerolog.Logger
	ConfigDir string
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd() *cobra.Command {
	app := &App{Logger: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "stockalerts",
		Short: "Stock price threshold alerts over Telegram",
		Long: `stockalerts checks a watchlist of symbols against one price source and
sends a Telegram message when a price crosses an above/below threshold.
Each alert is sent at most once per source, symbol, threshold and direction
per day.

Run it from cron, e.g. every 15 minutes during market hours:

  stockalerts run YF`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("config")
			if dir == "" {
				dir = config.DefaultConfigDir()
			}
			app.ConfigDir = dir

			if cmd.Annotations[skipConfig] == "true" {
				return nil
			}

			cfg, err := config.Load(dir)
			if err != nil {
				return err
			}
			app.Config = cfg

			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				cfg.Log.Level = "debug"
			}
			app.Logger = logging.NewLoggerWithConfig(cfg.Log)
			if debug {
				logging.SetDebugLevel()
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory holding config.toml and .env (default: current directory)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newRunCmd(app))
	rootCmd.AddCommand(newSourcesCmd(app))
	rootCmd.AddCommand(newWatchlistCmd(app))
	rootCmd.AddCommand(newLedgerCmd(app))
	rootCmd.AddCommand(newConfigCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Annotations: map[string]string{skipConfig: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("stockalerts v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}
