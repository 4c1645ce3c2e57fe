// Package engine runs one pass of the watchlist against a price source,
// delivering and recording alerts for crossed thresholds.
package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"stock-alerts/internal/logging"
	"stock-alerts/internal/metrics"
	"stock-alerts/internal/models"
	"stock-alerts/internal/notify"
	"stock-alerts/internal/source"
	"stock-alerts/internal/store"
	"stock-alerts/pkg/utils"
)

//go:generate mockgen -package=engine -destination=mock_source_test.go stock-alerts/internal/source Source
//go:generate mockgen -package=engine -destination=mock_ledger_test.go stock-alerts/internal/store Ledger
//go:generate mockgen -package=engine -destination=mock_notifier_test.go stock-alerts/internal/notify Notifier

// Options configures an Engine.
type Options struct {
	// SymbolDelay is waited after every fetch, whatever its outcome.
	SymbolDelay time.Duration
	// NotifierLabel and LedgerLabel name the backends in the run banner.
	NotifierLabel string
	LedgerLabel   string
	// Markup is the parse mode the notifier delivers with; zero is plain text.
	Markup  notify.Markup
	Logger  zerolog.Logger
	Metrics *metrics.Recorder
}

// Summary counts what happened during a run. Triggered counts crossed
// thresholds; each one ends as AlreadyAlerted, Sent or Failed.
type Summary struct {
	Checked        int
	Unavailable    int
	Triggered      int
	AlreadyAlerted int
	Sent           int
	Failed         int
}

// Engine evaluates watchlist entries against one price source.
type Engine struct {
	source   source.Source
	ledger   store.Ledger
	notifier notify.Notifier
	opts     Options
	logger   zerolog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an Engine.
func New(src source.Source, ledger store.Ledger, notifier notify.Notifier, opts Options) *Engine {
	if opts.NotifierLabel == "" {
		opts.NotifierLabel = "Telegram"
	}
	if opts.LedgerLabel == "" {
		opts.LedgerLabel = "SQLite"
	}
	return &Engine{
		source:   src,
		ledger:   ledger,
		notifier: notifier,
		opts:     opts,
		logger:   logging.WithComponent(opts.Logger, "engine"),
		now:      time.Now,
		sleep:    utils.Sleep,
	}
}

// Run checks every entry in order. Fetch failures and failed deliveries are
// counted and logged; only ledger errors abort the run.
func (e *Engine) Run(ctx context.Context, entries []models.WatchlistEntry) (Summary, error) {
	var sum Summary
	src := string(e.source.ID())

	e.logWatchlist(entries)
	e.logger.Info().Msg(Banner(src, e.opts.NotifierLabel, e.opts.LedgerLabel, e.now().Format(models.TimeLayout)))

	for _, entry := range entries {
		price, ok := e.source.Fetch(ctx, entry.Symbol)
		sum.Checked++

		if err := e.sleep(ctx, e.opts.SymbolDelay); err != nil {
			return sum, err
		}

		log := logging.WithSymbol(e.logger, entry.Symbol)
		if !ok {
			sum.Unavailable++
			log.Warn().Msgf("Could not retrieve price for %s", entry.Symbol)
			continue
		}
		log.Info().Float64("price", price).Msgf("Checking %s price: %s", entry.Symbol, formatPrice(price))
		if !entry.HasThresholds() {
			log.Debug().Msg("No thresholds configured")
			continue
		}

		for _, dir := range models.Directions {
			threshold, set := entry.Threshold(dir)
			if !set || !dir.Triggered(price, threshold) {
				continue
			}
			sum.Triggered++

			key := models.AlertKey{Source: src, Symbol: entry.Symbol, Threshold: threshold, Direction: dir}
			if err := e.alert(ctx, log, key, price, &sum); err != nil {
				return sum, err
			}
		}
	}

	e.logger.Info().
		Int("checked", sum.Checked).
		Int("unavailable", sum.Unavailable).
		Int("failed", sum.Failed).
		Msgf("Complete. %d new alerts sent.", sum.Sent)
	e.opts.Metrics.ObserveRun(e.now(), sum.Sent)
	return sum, nil
}

func (e *Engine) alert(ctx context.Context, log zerolog.Logger, key models.AlertKey, price float64, sum *Summary) error {
	src := key.Source
	dir := string(key.Direction)

	already, err := e.ledger.AlreadyAlertedToday(ctx, key)
	if err != nil {
		return err
	}
	if already {
		sum.AlreadyAlerted++
		e.opts.Metrics.ObserveAlert(src, dir, metrics.AlertDeduplicated)
		log.Info().Msgf("%s: already alerted today (%s)", key.Symbol, dir)
		return nil
	}

	msg := FormatMessage(e.opts.Markup, src, key.Symbol, key.Direction, price, key.Threshold)
	if !e.notifier.Send(ctx, msg) {
		sum.Failed++
		e.opts.Metrics.ObserveAlert(src, dir, metrics.AlertFailed)
		log.Error().Str("direction", dir).Msg("Alert delivery failed; will retry next run")
		return nil
	}

	if err := e.ledger.LogAlert(ctx, key, price); err != nil {
		return err
	}
	sum.Sent++
	e.opts.Metrics.ObserveAlert(src, dir, metrics.AlertSent)
	logging.LogAlert(log, src, key.Symbol, dir, key.ThresholdText(), price)
	return nil
}

func (e *Engine) logWatchlist(entries []models.WatchlistEntry) {
	e.logger.Info().Msgf("Loaded %d active symbols:", len(entries))
	for _, entry := range entries {
		e.logger.Info().Msgf("  %s: above=%s, below=%s",
			entry.Symbol, models.FormatThreshold(entry.Above), models.FormatThreshold(entry.Below))
	}
}
