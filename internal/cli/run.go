package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"stock-alerts/internal/engine"
	apperrors "stock-alerts/internal/errors"
	"stock-alerts/internal/metrics"
	"stock-alerts/internal/models"
	"stock-alerts/internal/notify"
	"stock-alerts/internal/security"
	"stock-alerts/internal/source"
	"stock-alerts/internal/store"
)

// runFlags are the run command's delivery switches.
type runFlags struct {
	dryRun bool
	echo   bool
	bell   bool
}

func newRunCmd(app *App) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run <source>",
		Short: "Check the watchlist once against a price source",
		Long: fmt.Sprintf(`Fetch a price for every active watchlist symbol from the given source
and send a Telegram alert for each crossed threshold not yet alerted today.

Sources: %s

With --dry-run, alerts are printed instead of sent and nothing is recorded
in the ledger, so TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID are not needed.
With --echo, alerts are sent and also printed; an alert is recorded only
when both succeed.`, sourceList()),
		Example: "  stockalerts run YF\n  stockalerts run finnhub --dry-run\n  stockalerts run kite --echo --bell",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: %s <source>; source is one of %s", cmd.CommandPath(), sourceList())
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := source.ParseID(args[0])
			if err != nil {
				return err
			}
			return runAlerts(cmd, app, id, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "print alerts to the terminal instead of sending and recording them")
	cmd.Flags().BoolVar(&flags.echo, "echo", false, "also print sent alerts to the terminal")
	cmd.Flags().BoolVar(&flags.bell, "bell", false, "ring the terminal bell for printed alerts")
	return cmd
}

func runAlerts(cmd *cobra.Command, app *App, id source.ID, flags runFlags) error {
	ctx := cmd.Context()
	cfg := app.Config
	output := NewOutput(cmd)

	markup, err := notify.ParseMarkup(cfg.Telegram.ParseMode)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrConfigInvalid, err)
	}

	if !flags.dryRun {
		if err := cfg.RequireTelegram(); err != nil {
			output.Error("Missing required config: TELEGRAM_BOT_TOKEN, TELEGRAM_CHAT_ID")
			output.Println("Set these environment variables or add them to .env:")
			output.Println("  export TELEGRAM_BOT_TOKEN='your_bot_token'")
			output.Println("  export TELEGRAM_CHAT_ID='your_chat_id'")
			return err
		}
	}

	st, clock, err := openStore(app)
	if err != nil {
		return err
	}
	defer st.Close()

	ledger, ledgerLabel, closeLedger, err := openLedger(ctx, app, st, clock)
	if err != nil {
		return err
	}
	defer closeLedger()

	entries, err := st.Active(ctx)
	if err != nil {
		return err
	}

	recorder := metrics.NewRecorder()
	src, err := source.New(id, source.Deps{
		Sources: cfg.Sources,
		Secrets: cfg.Secrets,
		Logger:  app.Logger,
		Metrics: recorder,
	})
	if err != nil {
		return err
	}

	terminal := notify.NewTerminalNotifier(cmd.OutOrStdout(), markup)
	terminal.SetColorEnabled(output.colorEnabled)
	terminal.SetBellEnabled(flags.bell)

	var notifier notify.Notifier
	notifierLabel := "Telegram"
	if flags.dryRun {
		notifier = terminal
		notifierLabel = "Terminal"
		ledger = dryRunLedger{ledger}
	} else {
		telegram := notify.NewTelegramNotifier(notify.TelegramConfig{
			BotToken:          cfg.Secrets.Telegram.BotToken,
			ChatID:            cfg.Secrets.Telegram.ChatID,
			APIEndpoint:       cfg.Telegram.APIEndpoint,
			ParseMode:         markup,
			Timeout:           cfg.Telegram.Timeout,
			MessagesPerSecond: cfg.Telegram.MessagesPerSecond,
		}, app.Logger)
		notifier = telegram
		if flags.echo {
			notifier = notify.NewMultiNotifier(app.Logger, telegram, terminal)
			notifierLabel = "Telegram + Terminal"
		}
	}

	eng := engine.New(src, ledger, notifier, engine.Options{
		SymbolDelay:   cfg.Engine.SymbolDelay,
		NotifierLabel: notifierLabel,
		LedgerLabel:   ledgerLabel,
		Markup:        markup,
		Logger:        app.Logger,
		Metrics:       recorder,
	})

	summary, runErr := eng.Run(ctx, entries)

	if cfg.Metrics.PushURL != "" {
		if err := recorder.Push(cfg.Metrics.PushURL, cfg.Metrics.Job); err != nil {
			app.Logger.Warn().Str("error", security.RedactError(err)).Msg("Failed to push metrics")
		}
	}

	if runErr != nil {
		return runErr
	}
	return printSummary(output, id, summary)
}

func printSummary(output *Output, id source.ID, s engine.Summary) error {
	if output.IsJSON() {
		return output.JSON(map[string]interface{}{
			"source":          id,
			"checked":         s.Checked,
			"unavailable":     s.Unavailable,
			"triggered":       s.Triggered,
			"already_alerted": s.AlreadyAlerted,
			"sent":            s.Sent,
			"failed":          s.Failed,
		})
	}

	output.Println()
	output.Bold("%s run summary", strings.ToUpper(string(id)))
	output.Printf("  Checked:         %d\n", s.Checked)
	output.Printf("  Unavailable:     %s\n", countColor(s.Unavailable, output.Yellow))
	output.Printf("  Triggered:       %d\n", s.Triggered)
	output.Printf("  Already alerted: %d\n", s.AlreadyAlerted)
	output.Printf("  Sent:            %s\n", countColor(s.Sent, output.Green))
	output.Printf("  Failed:          %s\n", countColor(s.Failed, output.Red))
	return nil
}

func countColor(n int, paint func(string) string) string {
	text := fmt.Sprintf("%d", n)
	if n == 0 {
		return text
	}
	return paint(text)
}

// openStore opens the SQLite database with a clock in the configured zone.
func openStore(app *App) (*store.SQLiteStore, store.Clock, error) {
	loc, err := app.Config.Location()
	if err != nil {
		return nil, store.Clock{}, fmt.Errorf("%w: %v", apperrors.ErrConfigInvalid, err)
	}
	clock := store.SystemClock(loc)

	st, err := store.NewSQLiteStore(app.Config.Database.Path, clock)
	if err != nil {
		return nil, clock, err
	}
	return st, clock, nil
}

// ledgerBackend is what the run and ledger commands need from a ledger.
type ledgerBackend interface {
	store.Ledger
	store.LedgerReader
}

// openLedger returns the configured ledger backend, its banner label and a
// close function. The SQLite ledger shares st.
func openLedger(ctx context.Context, app *App, st *store.SQLiteStore, clock store.Clock) (ledgerBackend, string, func(), error) {
	if app.Config.Ledger.Backend != "redis" {
		return st, "SQLite", func() {}, nil
	}

	rc := app.Config.Ledger.Redis
	rl, err := store.NewRedisLedger(ctx, store.RedisOptions{
		Addr:      rc.Addr,
		Password:  app.Config.Secrets.RedisPassword,
		DB:        rc.DB,
		KeyPrefix: rc.KeyPrefix,
		TTL:       rc.TTL,
	}, clock)
	if err != nil {
		return nil, "", nil, err
	}
	return rl, "Redis", func() { rl.Close() }, nil
}

// dryRunLedger answers dedup queries from the real ledger but records nothing.
type dryRunLedger struct {
	ledgerBackend
}

func (dryRunLedger) LogAlert(ctx context.Context, key models.AlertKey, price float64) error {
	return nil
}

func sourceList() string {
	ids := make([]string, 0, len(source.IDs))
	for _, id := range source.IDs {
		ids = append(ids, string(id))
	}
	return strings.Join(ids, ", ")
}
