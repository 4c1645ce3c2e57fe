// Package source provides the price source adapters and the registry that
// selects one by identifier.
//
// Every adapter satisfies the same contract: Fetch returns a finite positive
// price, or ok=false when no usable price could be obtained. Provider
// failures never escape as errors; they are logged and counted instead.
package source

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"stock-alerts/internal/config"
	apperrors "stock-alerts/internal/errors"
	"stock-alerts/internal/httpx"
	"stock-alerts/internal/logging"
	"stock-alerts/internal/metrics"
	"stock-alerts/internal/resilience"
)

// ID identifies a price source. The canonical spelling is what the ledger stores.
type ID string

const (
	YF           ID = "YF"
	Finnhub      ID = "finnhub"
	TwelveData   ID = "12data"
	EODHD        ID = "EODHD"
	AlphaVantage ID = "AV"
	Polygon      ID = "polygon"
	Kite         ID = "kite"
)

// IDs lists every registered source.
var IDs = []ID{YF, Finnhub, TwelveData, EODHD, AlphaVantage, Polygon, Kite}

// ParseID resolves s case-insensitively to a registered ID.
func ParseID(s string) (ID, error) {
	for _, id := range IDs {
		if strings.EqualFold(string(id), strings.TrimSpace(s)) {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: %q (valid: %s)", apperrors.ErrUnknownSource, s, validIDs())
}

func validIDs() string {
	names := make([]string, len(IDs))
	for i, id := range IDs {
		names[i] = string(id)
	}
	return strings.Join(names, ", ")
}

// Source fetches the current price for a symbol.
type Source interface {
	ID() ID
	Fetch(ctx context.Context, symbol string) (price float64, ok bool)
}

// fetcher is the provider-specific half of an adapter. It reports failures
// as errors; guard turns them into ok=false.
type fetcher interface {
	fetch(ctx context.Context, symbol string) (float64, error)
}

// Deps carries what the adapters need.
type Deps struct {
	Sources config.SourcesConfig
	Secrets config.Secrets
	Logger  zerolog.Logger
	Metrics *metrics.Recorder

	// Transport, when set, replaces the default HTTP transport.
	Transport http.RoundTripper
}

// New builds the adapter for id, wrapped with logging, metrics and a circuit breaker.
func New(id ID, deps Deps) (Source, error) {
	logger := logging.WithComponent(logging.WithSource(deps.Logger, string(id)), "source")

	var f fetcher
	switch id {
	case YF:
		f = newYahoo(deps.Sources.Yahoo, deps.newClient(deps.Sources.Yahoo.HTTPSourceConfig, logger), logger)
	case Finnhub:
		f = newFinnhub(deps.Sources.Finnhub, deps.Secrets.FinnhubAPIKey, deps.newClient(deps.Sources.Finnhub, logger))
	case TwelveData:
		f = newTwelveData(deps.Sources.TwelveData, deps.Secrets.TwelveDataAPIKey, deps.newClient(deps.Sources.TwelveData, logger))
	case EODHD:
		f = newEODHD(deps.Sources.EODHD, deps.Secrets.EODHDAPIKey, deps.newClient(deps.Sources.EODHD, logger))
	case AlphaVantage:
		f = newAlphaVantage(deps.Sources.AlphaVantage, deps.Secrets.AlphaVantageAPIKey, deps.newClient(deps.Sources.AlphaVantage, logger))
	case Polygon:
		f = newPolygon(deps.Sources.Polygon, deps.Secrets.PolygonAPIKey, deps.newClient(deps.Sources.Polygon, logger))
	case Kite:
		f = newKite(deps.Sources.Kite, deps.Secrets.KiteAPIKey, deps.Secrets.KiteAccessToken, deps.newClient(deps.Sources.Kite, logger))
	default:
		return nil, fmt.Errorf("%w: %q (valid: %s)", apperrors.ErrUnknownSource, id, validIDs())
	}

	breaker := resilience.NewCircuitBreaker(string(id), resilience.CircuitBreakerConfig{
		FailureThreshold: deps.Sources.Breaker.FailureThreshold,
		Timeout:          deps.Sources.Breaker.Cooldown,
		IsFailure:        providerFault,
	})

	return &guard{
		id:      id,
		fetcher: f,
		breaker: breaker,
		logger:  logger,
		metrics: deps.Metrics,
	}, nil
}

func (d Deps) newClient(cfg config.HTTPSourceConfig, logger zerolog.Logger) *httpx.Client {
	c := httpx.New(cfg.Timeout).
		WithLimiter(httpx.NewLimiter(cfg.RequestsPerMinute)).
		WithLogger(logger)
	if d.Transport != nil {
		c.HTTP.Transport = d.Transport
	}
	return c
}

func missingKey(id ID) error {
	return fmt.Errorf("%w: no API key configured for %s", apperrors.ErrMissingCredentials, id)
}
