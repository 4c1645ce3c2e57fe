package source

import (
	"context"
	"errors"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"

	"stock-alerts/internal/config"
	apperrors "stock-alerts/internal/errors"
	"stock-alerts/internal/httpx"
)

// polygonSource reads the last trade price through the Polygon.io client.
type polygonSource struct {
	client  *polygon.Client
	limiter *httpx.Client
	err     error // set when the client could not be built
}

func newPolygon(cfg config.HTTPSourceConfig, apiKey string, hc *httpx.Client) *polygonSource {
	if apiKey == "" {
		return &polygonSource{err: missingKey(Polygon)}
	}

	httpClient, err := hc.Rebased(cfg.BaseURL)
	if err != nil {
		return &polygonSource{err: err}
	}

	return &polygonSource{
		client:  polygon.NewWithClient(apiKey, httpClient),
		limiter: hc,
	}
}

func (p *polygonSource) fetch(ctx context.Context, symbol string) (float64, error) {
	if p.err != nil {
		return 0, p.err
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return 0, apperrors.NewSourceError(string(Polygon), symbol, "rate", err)
	}

	resp, err := p.client.GetLastTrade(ctx, &models.GetLastTradeParams{Ticker: symbol})
	if err != nil {
		return 0, apperrors.NewSourceError(string(Polygon), symbol, "request", err)
	}
	if resp == nil || resp.Results.Price == 0 {
		return 0, apperrors.NewSourceError(string(Polygon), symbol, "parse", errors.New("no last trade"))
	}
	return resp.Results.Price, nil
}
