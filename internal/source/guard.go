package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/polygon-io/client-go/rest/models"
	"github.com/rs/zerolog"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	apperrors "stock-alerts/internal/errors"
	"stock-alerts/internal/httpx"
	"stock-alerts/internal/logging"
	"stock-alerts/internal/metrics"
	"stock-alerts/internal/resilience"
)

// guard adapts a fetcher to the Source contract.
type guard struct {
	id      ID
	fetcher fetcher
	breaker *resilience.CircuitBreaker
	logger  zerolog.Logger
	metrics *metrics.Recorder
}

func (g *guard) ID() ID { return g.id }

// Fetch never fails: errors, panics, rejected values and an open circuit
// all come back as ok=false.
func (g *guard) Fetch(ctx context.Context, symbol string) (float64, bool) {
	logger := logging.WithSymbol(g.logger, symbol)
	logger.Info().Msg("Fetching price")

	start := time.Now()
	price, err := resilience.ExecuteWithResult(g.breaker, func() (float64, error) {
		return g.safeFetch(ctx, symbol)
	})
	elapsed := time.Since(start)

	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		g.metrics.ObserveFetch(string(g.id), metrics.FetchSkipped, 0)
		logger.Warn().
			Str("breaker", g.breaker.Name()).
			Str("state", string(g.breaker.State())).
			Msg("Source paused after repeated provider failures")
		return 0, false
	case err != nil:
		g.metrics.ObserveFetch(string(g.id), metrics.FetchUnavailable, elapsed)
		logging.LogFetchFailure(logger, string(g.id), symbol, err)
		return 0, false
	}

	g.metrics.ObserveFetch(string(g.id), metrics.FetchOK, elapsed)
	logger.Info().Float64("price", price).Dur("duration", elapsed).Msg("Price fetched")
	return price, true
}

func (g *guard) safeFetch(ctx context.Context, symbol string) (price float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.NewSourceError(string(g.id), symbol, "panic", fmt.Errorf("%v", r))
		}
	}()

	price, err = g.fetcher.fetch(ctx, symbol)
	if err != nil {
		return 0, err
	}
	if err := validatePrice(price); err != nil {
		return 0, apperrors.NewSourceError(string(g.id), symbol, "validate", err)
	}
	return price, nil
}

// providerFault reports whether err reflects the provider's health rather
// than the symbol asked about. Only these failures count toward the breaker:
// an unknown ticker or a zero quote says nothing about the next symbol.
func providerFault(err error) bool {
	if httpx.IsTransient(err) {
		return true
	}

	var pe *models.ErrorResponse
	if errors.As(err, &pe) {
		return httpx.IsTransientStatus(pe.StatusCode)
	}

	var ke kiteconnect.Error
	if errors.As(err, &ke) {
		return httpx.IsTransientStatus(ke.Code)
	}
	return false
}
