package cli

import (
	"github.com/spf13/cobra"

	"stock-alerts/internal/config"
	"stock-alerts/internal/security"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View, validate and create the config.toml and .env files.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:         "init",
		Short:       "Write template config.toml and .env files",
		Long:        "Write commented config.toml and .env templates into the config directory. Existing files are left untouched.",
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			written, err := config.WriteTemplates(app.ConfigDir)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string][]string{"written": written})
			}
			if len(written) == 0 {
				output.Warning("config.toml and .env already exist in %s; nothing written", app.ConfigDir)
				return nil
			}
			for _, path := range written {
				output.Success("✓ Wrote %s", path)
			}
			output.Println("Add your Telegram bot token and chat id to .env, then run 'stockalerts config validate'.")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"config":  app.Config,
					"secrets": maskedSecrets(app.Config.Secrets),
				})
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and report missing credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			// Load already ran Validate; reaching here means the settings are valid.
			tgErr := app.Config.RequireTelegram()

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"valid":    tgErr == nil,
					"telegram": tgErr == nil,
				})
			}

			output.Success("✓ Settings are valid")
			if tgErr != nil {
				output.Error("✗ %v", tgErr)
				output.Println("⚠️  Fix config before running!")
				return tgErr
			}
			output.Success("✓ Telegram credentials present")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Storage")
	output.Printf("  Database:        %s\n", cfg.Database.Path)
	output.Printf("  Ledger backend:  %s\n", cfg.Ledger.Backend)
	if cfg.Ledger.Backend == "redis" {
		output.Printf("  Redis:           %s db=%d prefix=%s ttl=%s\n",
			cfg.Ledger.Redis.Addr, cfg.Ledger.Redis.DB, cfg.Ledger.Redis.KeyPrefix, cfg.Ledger.Redis.TTL)
	}
	output.Println()

	output.Bold("Engine")
	output.Printf("  Symbol delay:    %s\n", cfg.Engine.SymbolDelay)
	output.Printf("  Time zone:       %s\n", cfg.Engine.Timezone)
	output.Println()

	output.Bold("Sources")
	y := cfg.Sources.Yahoo
	output.Printf("  YF:              %s timeout=%s attempts=%d backoff=%s\n", y.BaseURL, y.Timeout, y.Attempts, y.Backoff)
	for _, s := range []struct {
		name string
		cfg  config.HTTPSourceConfig
	}{
		{"finnhub", cfg.Sources.Finnhub},
		{"12data", cfg.Sources.TwelveData},
		{"EODHD", cfg.Sources.EODHD},
		{"AV", cfg.Sources.AlphaVantage},
		{"polygon", cfg.Sources.Polygon},
		{"kite", cfg.Sources.Kite},
	} {
		base := s.cfg.BaseURL
		if base == "" {
			base = "(client default)"
		}
		output.Printf("  %-16s %s timeout=%s rpm=%d\n", s.name+":", base, s.cfg.Timeout, s.cfg.RequestsPerMinute)
	}
	output.Printf("  Breaker:         %d failures, %s cool-down\n", cfg.Sources.Breaker.FailureThreshold, cfg.Sources.Breaker.Cooldown)
	output.Println()

	output.Bold("Telegram")
	output.Printf("  Parse mode:      %s\n", cfg.Telegram.ParseMode)
	output.Printf("  Timeout:         %s\n", cfg.Telegram.Timeout)
	output.Println()

	output.Bold("Secrets")
	for _, kv := range maskedSecretList(cfg.Secrets) {
		value := kv[1]
		if value == "" {
			value = output.Yellow("(not set)")
		}
		output.Printf("  %-22s %s\n", kv[0]+":", value)
	}
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:           %s\n", cfg.Log.Level)
	output.Printf("  File:            %s (enabled: %v)\n", cfg.Log.FilePath, cfg.Log.File)
	if cfg.Metrics.PushURL != "" {
		output.Printf("  Metrics push:    %s job=%s\n", cfg.Metrics.PushURL, cfg.Metrics.Job)
	}
}

func maskedSecretList(s config.Secrets) [][2]string {
	return [][2]string{
		{"TELEGRAM_BOT_TOKEN", security.MaskCredential(s.Telegram.BotToken)},
		{"TELEGRAM_CHAT_ID", security.MaskCredential(s.Telegram.ChatID)},
		{"FINNHUB_API_KEY", security.MaskCredential(s.FinnhubAPIKey)},
		{"TWELVEDATA_API_KEY", security.MaskCredential(s.TwelveDataAPIKey)},
		{"EODHD_API_KEY", security.MaskCredential(s.EODHDAPIKey)},
		{"ALPHA_VANTAGE_API_KEY", security.MaskCredential(s.AlphaVantageAPIKey)},
		{"POLYGON_API_KEY", security.MaskCredential(s.PolygonAPIKey)},
		{"KITE_API_KEY", security.MaskCredential(s.KiteAPIKey)},
		{"KITE_ACCESS_TOKEN", security.MaskCredential(s.KiteAccessToken)},
		{"REDIS_PASSWORD", security.MaskCredential(s.RedisPassword)},
	}
}

func maskedSecrets(s config.Secrets) map[string]string {
	out := make(map[string]string)
	for _, kv := range maskedSecretList(s) {
		out[kv[0]] = kv[1]
	}
	return out
}
