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

// twelveData reads "price" from /price; the API sends it as a string.
type twelveData struct {
	client  *httpx.Client
	baseURL string
	apiKey  string
}

func newTwelveData(cfg config.HTTPSourceConfig, apiKey string, client *httpx.Client) *twelveData {
	return &twelveData{client: client, baseURL: strings.TrimRight(cfg.BaseURL, "/"), apiKey: apiKey}
}

func (t *twelveData) fetch(ctx context.Context, symbol string) (float64, error) {
	if t.apiKey == "" {
		return 0, missingKey(TwelveData)
	}

	var data map[string]interface{}
	params := url.Values{"symbol": {symbol}, "apikey": {t.apiKey}}
	if err := t.client.GetJSON(ctx, t.baseURL+"/price", params, &data); err != nil {
		return 0, apperrors.NewSourceError(string(TwelveData), symbol, "request", err)
	}

	// Errors arrive with HTTP 200: {"code":400,"message":"...","status":"error"}
	if cast.ToString(data["status"]) == "error" {
		err := fmt.Errorf("api error %v: %v", data["code"], data["message"])
		return 0, apperrors.NewSourceError(string(TwelveData), symbol, "response", err)
	}

	price, err := coercePrice(data["price"])
	if err != nil {
		return 0, apperrors.NewSourceError(string(TwelveData), symbol, "parse", err)
	}
	return price, nil
}
