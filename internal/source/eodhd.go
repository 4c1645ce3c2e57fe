package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"stock-alerts/internal/config"
	apperrors "stock-alerts/internal/errors"
	"stock-alerts/internal/httpx"
)

// eodhd reads "close" from /real-time/{symbol}. The endpoint answers with an
// object for one symbol and a list when several are requested.
type eodhd struct {
	client  *httpx.Client
	baseURL string
	apiKey  string
}

func newEODHD(cfg config.HTTPSourceConfig, apiKey string, client *httpx.Client) *eodhd {
	return &eodhd{client: client, baseURL: strings.TrimRight(cfg.BaseURL, "/"), apiKey: apiKey}
}

func (e *eodhd) fetch(ctx context.Context, symbol string) (float64, error) {
	if e.apiKey == "" {
		return 0, missingKey(EODHD)
	}

	var data interface{}
	endpoint := e.baseURL + "/real-time/" + url.PathEscape(symbol)
	params := url.Values{"api_token": {e.apiKey}, "fmt": {"json"}}
	if err := e.client.GetJSON(ctx, endpoint, params, &data); err != nil {
		return 0, apperrors.NewSourceError(string(EODHD), symbol, "request", err)
	}

	var quote map[string]interface{}
	switch v := data.(type) {
	case map[string]interface{}:
		quote = v
	case []interface{}:
		if len(v) > 0 {
			quote, _ = v[0].(map[string]interface{})
		}
	}
	if quote == nil {
		err := fmt.Errorf("unexpected payload %T", data)
		return 0, apperrors.NewSourceError(string(EODHD), symbol, "parse", err)
	}

	price, err := coercePrice(quote["close"])
	if err != nil {
		return 0, apperrors.NewSourceError(string(EODHD), symbol, "parse", err)
	}
	return price, nil
}
