package source

import (
	"context"
	"fmt"
	"strings"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"stock-alerts/internal/config"
	apperrors "stock-alerts/internal/errors"
	"stock-alerts/internal/httpx"
)

// defaultKiteExchange prefixes symbols given without an exchange.
const defaultKiteExchange = "NSE"

// kite reads the last traded price through the Kite Connect client.
type kite struct {
	client  *kiteconnect.Client
	limiter *httpx.Client
	err     error
}

func newKite(cfg config.HTTPSourceConfig, apiKey, accessToken string, hc *httpx.Client) *kite {
	if apiKey == "" || accessToken == "" {
		return &kite{err: fmt.Errorf("%w: KITE_API_KEY and KITE_ACCESS_TOKEN are required", apperrors.ErrMissingCredentials)}
	}

	client := kiteconnect.New(apiKey)
	client.SetAccessToken(accessToken)
	client.SetHTTPClient(hc.HTTP)
	if cfg.BaseURL != "" {
		client.SetBaseURI(strings.TrimRight(cfg.BaseURL, "/"))
	}

	return &kite{client: client, limiter: hc}
}

// instrument maps RELIANCE to NSE:RELIANCE; BSE:RELIANCE is kept as is.
func instrument(symbol string) string {
	if strings.Contains(symbol, ":") {
		return symbol
	}
	return defaultKiteExchange + ":" + symbol
}

func (k *kite) fetch(ctx context.Context, symbol string) (float64, error) {
	if k.err != nil {
		return 0, k.err
	}
	if err := k.limiter.Wait(ctx); err != nil {
		return 0, apperrors.NewSourceError(string(Kite), symbol, "rate", err)
	}

	// The Kite client takes no context; its http.Client timeout bounds the call.
	inst := instrument(symbol)
	quotes, err := k.client.GetLTP(inst)
	if err != nil {
		return 0, apperrors.NewSourceError(string(Kite), symbol, "request", err)
	}

	q, ok := quotes[inst]
	if !ok {
		return 0, apperrors.NewSourceError(string(Kite), symbol, "parse", fmt.Errorf("no quote for %s", inst))
	}
	return q.LastPrice, nil
}
