package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/polygon-io/client-go/rest/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"stock-alerts/internal/config"
	apperrors "stock-alerts/internal/errors"
	"stock-alerts/internal/httpx"
	"stock-alerts/internal/metrics"
)

func testDeps(baseURL string) Deps {
	hs := config.HTTPSourceConfig{BaseURL: baseURL, Timeout: 2 * time.Second}
	yahoo := config.YahooConfig{HTTPSourceConfig: hs, Attempts: 3}
	if baseURL != "" {
		yahoo.CookieURL = baseURL + "/cookie"
	}
	return Deps{
		Sources: config.SourcesConfig{
			Yahoo:        yahoo,
			Finnhub:      hs,
			TwelveData:   hs,
			EODHD:        hs,
			AlphaVantage: hs,
			Polygon:      hs,
			Kite:         hs,
			Breaker:      config.BreakerConfig{FailureThreshold: 5, Cooldown: 30 * time.Second},
		},
		Secrets: config.Secrets{
			FinnhubAPIKey:      "fh-secret",
			TwelveDataAPIKey:   "td-secret",
			EODHDAPIKey:        "eod-secret",
			AlphaVantageAPIKey: "av-secret",
			PolygonAPIKey:      "pg-secret",
			KiteAPIKey:         "kite-key",
			KiteAccessToken:    "kite-token",
		},
		Logger:  zerolog.Nop(),
		Metrics: metrics.NewRecorder(),
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in   string
		want ID
	}{
		{"YF", YF},
		{"yf", YF},
		{"Finnhub", Finnhub},
		{"12DATA", TwelveData},
		{"eodhd", EODHD},
		{" av ", AlphaVantage},
		{"POLYGON", Polygon},
		{"Kite", Kite},
	}
	for _, tt := range tests {
		got, err := ParseID(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseID("bloomberg")
	assert.ErrorIs(t, err, apperrors.ErrUnknownSource)
}

func TestNew_UnknownSource(t *testing.T) {
	_, err := New(ID("bloomberg"), testDeps(""))
	assert.ErrorIs(t, err, apperrors.ErrUnknownSource)
}

func TestNew_EveryIDBuilds(t *testing.T) {
	for _, id := range IDs {
		src, err := New(id, testDeps("http://127.0.0.1:1"))
		require.NoError(t, err, id)
		assert.Equal(t, id, src.ID())
	}
}

func TestSingleShotAdapters(t *testing.T) {
	tests := []struct {
		name   string
		id     ID
		path   string
		body   string
		status int
		want   float64
		ok     bool
	}{
		{"finnhub number", Finnhub, "/quote", `{"c": 189.84, "d": 1.2}`, 200, 189.84, true},
		{"finnhub string rejected", Finnhub, "/quote", `{"c": "189.84"}`, 200, 0, false},
		{"finnhub zero", Finnhub, "/quote", `{"c": 0}`, 200, 0, false},
		{"finnhub missing", Finnhub, "/quote", `{"error": "bad symbol"}`, 200, 0, false},
		{"12data string", TwelveData, "/price", `{"price": "67.30000"}`, 200, 67.3, true},
		{"12data number", TwelveData, "/price", `{"price": 67.3}`, 200, 67.3, true},
		{"12data garbage", TwelveData, "/price", `{"price": "n/a"}`, 200, 0, false},
		{"12data error body", TwelveData, "/price", `{"code": 400, "message": "bad", "status": "error"}`, 200, 0, false},
		{"eodhd object", EODHD, "/real-time/SLV", `{"code": "SLV.US", "close": 78.12}`, 200, 78.12, true},
		{"eodhd list", EODHD, "/real-time/SLV", `[{"code": "SLV.US", "close": "78.12"}]`, 200, 78.12, true},
		{"eodhd empty list", EODHD, "/real-time/SLV", `[]`, 200, 0, false},
		{"eodhd NA close", EODHD, "/real-time/SLV", `{"close": "NA"}`, 200, 0, false},
		{"av quote", AlphaVantage, "/query", `{"Global Quote": {"01. symbol": "SLV", "05. price": "78.1200"}}`, 200, 78.12, true},
		{"av throttled", AlphaVantage, "/query", `{"Note": "Thank you for using Alpha Vantage!"}`, 200, 0, false},
		{"av empty quote", AlphaVantage, "/query", `{"Global Quote": {}}`, 200, 0, false},
		{"http error", Finnhub, "/quote", `oops`, 500, 0, false},
		{"malformed json", TwelveData, "/price", `{"price":`, 200, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.path, r.URL.Path)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			src, err := New(tt.id, testDeps(srv.URL))
			require.NoError(t, err)

			price, ok := src.Fetch(context.Background(), "SLV")
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, price, 1e-9)
		})
	}
}

func TestAdapters_SendCredentials(t *testing.T) {
	tests := []struct {
		id    ID
		param string
		value string
	}{
		{Finnhub, "token", "fh-secret"},
		{TwelveData, "apikey", "td-secret"},
		{EODHD, "api_token", "eod-secret"},
		{AlphaVantage, "apikey", "av-secret"},
	}

	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			var got string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.URL.Query().Get(tt.param)
				w.Write([]byte(`{}`))
			}))
			defer srv.Close()

			src, err := New(tt.id, testDeps(srv.URL))
			require.NoError(t, err)
			src.Fetch(context.Background(), "SLV")
			assert.Equal(t, tt.value, got)
		})
	}
}

func TestAdapters_MissingKeyMakesNoRequest(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"c": 10, "price": "10", "close": 10}`))
	}))
	defer srv.Close()

	deps := testDeps(srv.URL)
	deps.Secrets = config.Secrets{}

	for _, id := range []ID{Finnhub, TwelveData, EODHD, AlphaVantage, Polygon, Kite} {
		src, err := New(id, deps)
		require.NoError(t, err)
		_, ok := src.Fetch(context.Background(), "SLV")
		assert.False(t, ok, id)
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestGuard_CircuitOpensAfterRepeatedFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	deps := testDeps(srv.URL)
	deps.Sources.Breaker.FailureThreshold = 2

	src, err := New(Finnhub, deps)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, ok := src.Fetch(context.Background(), "SLV")
		assert.False(t, ok)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGuard_BadSymbolsDoNotOpenCircuit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Query().Get("symbol") == "GOOD" {
			w.Write([]byte(`{"c": 123.45}`))
			return
		}
		w.Write([]byte(`{"c": 0}`))
	}))
	defer srv.Close()

	src, err := New(Finnhub, testDeps(srv.URL))
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		_, ok := src.Fetch(context.Background(), fmt.Sprintf("BAD%d", i))
		assert.False(t, ok)
	}

	price, ok := src.Fetch(context.Background(), "GOOD")
	require.True(t, ok, "a run of unknown tickers must not pause the source")
	assert.InDelta(t, 123.45, price, 1e-9)
	assert.Equal(t, int32(6), atomic.LoadInt32(&calls))
}

func TestGuard_NotFoundDoesNotOpenCircuit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	deps := testDeps(srv.URL)
	deps.Sources.Breaker.FailureThreshold = 2

	src, err := New(EODHD, deps)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, ok := src.Fetch(context.Background(), "NOPE")
		assert.False(t, ok)
	}
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls))
}

func TestProviderFault(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"bad gateway", apperrors.NewSourceError("finnhub", "SLV", "request", &httpx.StatusError{Code: 502}), true},
		{"throttled", apperrors.NewSourceError("12data", "SLV", "request", &httpx.StatusError{Code: 429}), true},
		{"not found", apperrors.NewSourceError("EODHD", "SLV", "request", &httpx.StatusError{Code: 404}), false},
		{"zero quote", apperrors.NewSourceError("finnhub", "SLV", "parse", errors.New("price must be positive")), false},
		{"missing key", missingKey(Finnhub), false},
		{"polygon outage", apperrors.NewSourceError("polygon", "SLV", "request", &models.ErrorResponse{StatusCode: 503}), true},
		{"polygon unknown ticker", apperrors.NewSourceError("polygon", "SLV", "request", &models.ErrorResponse{StatusCode: 404}), false},
		{"kite network", apperrors.NewSourceError("kite", "SLV", "request", kiteconnect.NewError(kiteconnect.NetworkError, "Request failed.", nil)), true},
		{"kite bad input", apperrors.NewSourceError("kite", "SLV", "request", kiteconnect.NewError(kiteconnect.InputError, "invalid instrument", nil)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, providerFault(tt.err))
		})
	}
}

type panicky struct{}

func (panicky) fetch(ctx context.Context, symbol string) (float64, error) { panic("boom") }

func TestGuard_RecoversPanics(t *testing.T) {
	src, err := New(Finnhub, testDeps("http://127.0.0.1:1"))
	require.NoError(t, err)
	src.(*guard).fetcher = panicky{}

	price, ok := src.Fetch(context.Background(), "SLV")
	assert.False(t, ok)
	assert.Zero(t, price)
}

func TestCoercePrice(t *testing.T) {
	tests := []struct {
		in   interface{}
		want float64
		ok   bool
	}{
		{123.45, 123.45, true},
		{"123.45", 123.45, true},
		{"abc", 0, false},
		{"", 0, false},
		{nil, 0, false},
		{true, 0, false},
		{-3.0, 0, false},
		{"0", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{map[string]interface{}{"p": 1.0}, 0, false},
	}
	for _, tt := range tests {
		got, err := coercePrice(tt.in)
		assert.Equal(t, tt.ok, err == nil, "%#v", tt.in)
		if tt.ok {
			assert.InDelta(t, tt.want, got, 1e-9)
		}
	}
}
