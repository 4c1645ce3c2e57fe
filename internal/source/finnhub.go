package source

import (
	"context"
	"net/url"
	"strings"

	"stock-alerts/internal/config"
	apperrors "stock-alerts/internal/errors"
	"stock-alerts/internal/httpx"
)

// finnhub reads the current price "c" from /quote. Only a JSON number is accepted.
type finnhub struct {
	client  *httpx.Client
	baseURL string
	apiKey  string
}

func newFinnhub(cfg config.HTTPSourceConfig, apiKey string, client *httpx.Client) *finnhub {
	return &finnhub{client: client, baseURL: strings.TrimRight(cfg.BaseURL, "/"), apiKey: apiKey}
}

func (f *finnhub) fetch(ctx context.Context, symbol string) (float64, error) {
	if f.apiKey == "" {
		return 0, missingKey(Finnhub)
	}

	var data map[string]interface{}
	params := url.Values{"symbol": {symbol}, "token": {f.apiKey}}
	if err := f.client.GetJSON(ctx, f.baseURL+"/quote", params, &data); err != nil {
		return 0, apperrors.NewSourceError(string(Finnhub), symbol, "request", err)
	}

	price, err := numericPrice(data["c"])
	if err != nil {
		return 0, apperrors.NewSourceError(string(Finnhub), symbol, "parse", err)
	}
	return price, nil
}
