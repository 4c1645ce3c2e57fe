package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cast"

	"stock-alerts/internal/config"
	apperrors "stock-alerts/internal/errors"
	"stock-alerts/internal/httpx"
)

// alphaVantage reads "05. price" from the GLOBAL_QUOTE function.
type alphaVantage struct {
	client  *httpx.Client
	baseURL string
	apiKey  string
}

func newAlphaVantage(cfg config.HTTPSourceConfig, apiKey string, client *httpx.Client) *alphaVantage {
	return &alphaVantage{client: client, baseURL: strings.TrimRight(cfg.BaseURL, "/"), apiKey: apiKey}
}

func (a *alphaVantage) fetch(ctx context.Context, symbol string) (float64, error) {
	if a.apiKey == "" {
		return 0, missingKey(AlphaVantage)
	}

	var data map[string]interface{}
	params := url.Values{"function": {"GLOBAL_QUOTE"}, "symbol": {symbol}, "apikey": {a.apiKey}}
	if err := a.client.GetJSON(ctx, a.baseURL+"/query", params, &data); err != nil {
		return 0, apperrors.NewSourceError(string(AlphaVantage), symbol, "request", err)
	}

	// Throttling and bad keys come back as 200 with a single text field.
	for _, field := range []string{"Note", "Information", "Error Message"} {
		if msg, ok := data[field]; ok {
			err := fmt.Errorf("%s: %s", field, cast.ToString(msg))
			if field == "Note" || field == "Information" {
				err = fmt.Errorf("%w: %v", apperrors.ErrRateLimited, err)
			}
			return 0, apperrors.NewSourceError(string(AlphaVantage), symbol, "response", err)
		}
	}

	quote, ok := data["Global Quote"].(map[string]interface{})
	if !ok || len(quote) == 0 {
		err := fmt.Errorf("%w: empty Global Quote", apperrors.ErrPriceUnavailable)
		return 0, apperrors.NewSourceError(string(AlphaVantage), symbol, "parse", err)
	}

	price, err := coercePrice(quote["05. price"])
	if err != nil {
		return 0, apperrors.NewSourceError(string(AlphaVantage), symbol, "parse", err)
	}
	return price, nil
}
