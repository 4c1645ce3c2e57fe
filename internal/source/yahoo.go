package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/cast"

	"stock-alerts/internal/config"
	apperrors "stock-alerts/internal/errors"
	"stock-alerts/internal/httpx"
	"stock-alerts/internal/security"
	"stock-alerts/pkg/utils"
)

// yahoo walks a fallback chain on every attempt:
//  1. quote metadata (market state, regularMarketPrice, currentPrice)
//  2. while the market is trading, the chart's last price
//  3. the metadata price fields
//  4. the close of the latest 1-minute bar
//
// The whole chain is retried with a fixed backoff before giving up.
//
// The quote endpoint only answers requests that carry a session cookie and
// the matching crumb. Both are obtained on first use and kept for the run;
// a 401 drops them and the quote is asked once more with fresh ones.
type yahoo struct {
	client    *httpx.Client
	baseURL   string
	cookieURL string
	retry     utils.RetryConfig
	logger    zerolog.Logger

	mu    sync.Mutex
	crumb string
}

func newYahoo(cfg config.YahooConfig, client *httpx.Client, logger zerolog.Logger) *yahoo {
	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 3
	}
	y := &yahoo{
		client:    client.WithCookieJar(),
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		cookieURL: cfg.CookieURL,
		retry:     utils.FixedRetryConfig(attempts, cfg.Backoff),
		logger:    logger,
	}
	y.retry.OnRetry = func(attempt int, err error) {
		y.logger.Warn().Int("attempt", attempt).Str("error", security.RedactError(err)).Msg("Yahoo chain failed, retrying")
	}
	return y
}

var activeMarketStates = map[string]bool{"REGULAR": true, "PRE": true, "POST": true}

func (y *yahoo) fetch(ctx context.Context, symbol string) (float64, error) {
	return utils.RetryWithResult(ctx, y.retry, func() (float64, error) {
		return y.attempt(ctx, symbol)
	})
}

func (y *yahoo) attempt(ctx context.Context, symbol string) (float64, error) {
	logger := y.logger.With().Str("symbol", symbol).Logger()

	info, err := y.quoteInfo(ctx, symbol)
	if err != nil {
		logger.Warn().Str("error", security.RedactError(err)).Msg("Could not read quote info")
		info = nil
	}

	state := cast.ToString(info["marketState"])
	logger.Debug().Str("market_state", state).Msg("Market state")

	if activeMarketStates[state] {
		price, err := y.lastPrice(ctx, symbol)
		if err == nil {
			logger.Debug().Msg("Used chart last price")
			return price, nil
		}
		logger.Warn().Str("error", security.RedactError(err)).Msg("Last price lookup failed")
	}

	for _, field := range []string{"regularMarketPrice", "currentPrice"} {
		v, ok := info[field]
		if !ok {
			continue
		}
		price, err := coercePrice(v)
		if err == nil {
			logger.Debug().Str("field", field).Msg("Used quote info price")
			return price, nil
		}
		logger.Warn().Str("field", field).Err(err).Msg("Quote info price unusable")
	}

	price, err := y.lastMinuteClose(ctx, symbol)
	if err != nil {
		return 0, apperrors.NewSourceError(string(YF), symbol, "history", err)
	}
	logger.Debug().Msg("Used latest 1m close")
	return price, nil
}

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *yahooError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

type yahooQuoteResponse struct {
	QuoteResponse struct {
		Result []map[string]interface{} `json:"result"`
		Error  *yahooError              `json:"error"`
	} `json:"quoteResponse"`
}

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"chart"`
}

// session returns the crumb for this run, fetching the cookie and crumb on first use.
func (y *yahoo) session(ctx context.Context) (string, error) {
	y.mu.Lock()
	defer y.mu.Unlock()

	if y.crumb != "" {
		return y.crumb, nil
	}

	// The consent host usually answers 404; only the cookie it sets matters.
	if y.cookieURL != "" {
		if err := y.client.Visit(ctx, y.cookieURL); err != nil {
			return "", fmt.Errorf("fetching session cookie: %w", err)
		}
	}

	crumb, err := y.client.GetText(ctx, y.baseURL+"/v1/test/getcrumb", nil)
	if err != nil {
		return "", fmt.Errorf("fetching crumb: %w", err)
	}
	crumb = strings.TrimSpace(crumb)
	if crumb == "" || strings.ContainsAny(crumb, "<{ ") {
		return "", errors.New("fetching crumb: unusable crumb")
	}

	y.crumb = crumb
	return crumb, nil
}

func (y *yahoo) resetSession() {
	y.mu.Lock()
	y.crumb = ""
	y.mu.Unlock()
}

func (y *yahoo) quoteInfo(ctx context.Context, symbol string) (map[string]interface{}, error) {
	resp, err := y.quote(ctx, symbol)
	if isUnauthorized(err) {
		y.logger.Debug().Msg("Quote crumb rejected, renewing session")
		y.resetSession()
		resp, err = y.quote(ctx, symbol)
	}
	if err != nil {
		return nil, err
	}
	if resp.QuoteResponse.Error != nil {
		return nil, resp.QuoteResponse.Error
	}
	if len(resp.QuoteResponse.Result) == 0 {
		return nil, errors.New("empty quote result")
	}
	return resp.QuoteResponse.Result[0], nil
}

func (y *yahoo) quote(ctx context.Context, symbol string) (*yahooQuoteResponse, error) {
	crumb, err := y.session(ctx)
	if err != nil {
		return nil, err
	}

	var resp yahooQuoteResponse
	params := url.Values{"symbols": {symbol}, "crumb": {crumb}}
	if err := y.client.GetJSON(ctx, y.baseURL+"/v7/finance/quote", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func isUnauthorized(err error) bool {
	var se *httpx.StatusError
	return errors.As(err, &se) && se.Code == http.StatusUnauthorized
}

func (y *yahoo) chart(ctx context.Context, symbol, interval string) (*yahooChartResponse, error) {
	var resp yahooChartResponse
	endpoint := y.baseURL + "/v8/finance/chart/" + url.PathEscape(symbol)
	err := y.client.GetJSON(ctx, endpoint, url.Values{"range": {"1d"}, "interval": {interval}}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Chart.Error != nil {
		return nil, resp.Chart.Error
	}
	if len(resp.Chart.Result) == 0 {
		return nil, errors.New("empty chart result")
	}
	return &resp, nil
}

func (y *yahoo) lastPrice(ctx context.Context, symbol string) (float64, error) {
	resp, err := y.chart(ctx, symbol, "1d")
	if err != nil {
		return 0, err
	}
	p := resp.Chart.Result[0].Meta.RegularMarketPrice
	if p == nil {
		return 0, errMissingField
	}
	return *p, validatePrice(*p)
}

func (y *yahoo) lastMinuteClose(ctx context.Context, symbol string) (float64, error) {
	resp, err := y.chart(ctx, symbol, "1m")
	if err != nil {
		return 0, err
	}
	quotes := resp.Chart.Result[0].Indicators.Quote
	if len(quotes) == 0 {
		return 0, errors.New("no bars")
	}
	closes := quotes[0].Close
	// Bars still forming are reported as null.
	for i := len(closes) - 1; i >= 0; i-- {
		if closes[i] != nil {
			return *closes[i], validatePrice(*closes[i])
		}
	}
	return 0, errors.New("no bars")
}
