package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "stock-alerts/internal/errors"
)

func TestGetJSON_DecodesAndSetsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"c": 189.5}`))
	}))
	defer srv.Close()

	var out map[string]interface{}
	err := New(time.Second).GetJSON(context.Background(), srv.URL, url.Values{"symbol": {"AAPL"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, 189.5, out["c"])
}

func TestGetJSON_StatusErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		rateLimited bool
	}{
		{"server error", http.StatusInternalServerError, false},
		{"unauthorized", http.StatusUnauthorized, false},
		{"too many requests", http.StatusTooManyRequests, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte("nope"))
			}))
			defer srv.Close()

			var out map[string]interface{}
			err := New(time.Second).GetJSON(context.Background(), srv.URL, nil, &out)
			require.Error(t, err)

			var se *StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.status, se.Code)
			assert.Equal(t, tt.rateLimited, apperrors.Is(err, apperrors.ErrRateLimited))
		})
	}
}

func TestGetJSON_InvalidBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>"))
	}))
	defer srv.Close()

	var out map[string]interface{}
	err := New(time.Second).GetJSON(context.Background(), srv.URL, nil, &out)
	assert.Error(t, err)
}

func TestGetJSON_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	var out map[string]interface{}
	err := New(20*time.Millisecond).GetJSON(context.Background(), srv.URL, nil, &out)
	assert.Error(t, err)
}

func TestNewLimiter(t *testing.T) {
	assert.Nil(t, NewLimiter(0))
	assert.Nil(t, NewLimiter(-3))

	l := NewLimiter(60)
	require.NotNil(t, l)
	assert.InDelta(t, 1.0, float64(l.Limit()), 1e-9)
}

func TestDo_LimiterHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(time.Second).WithLimiter(NewLimiter(1))

	var out map[string]interface{}
	require.NoError(t, c.GetJSON(context.Background(), srv.URL, nil, &out))

	// The single token is spent; the next call must wait about a minute.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := c.GetJSON(ctx, srv.URL, nil, &out)
	assert.ErrorIs(t, err, apperrors.ErrRateLimited)
}

func TestVisit_KeepsSessionCookie(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/consent":
			http.SetCookie(w, &http.Cookie{Name: "A3", Value: "session", Path: "/"})
			w.WriteHeader(http.StatusNotFound)
		case "/token":
			if c, err := r.Cookie("A3"); err != nil || c.Value != "session" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte("tok-1"))
		}
	}))
	defer srv.Close()

	c := New(time.Second).WithCookieJar()
	require.NoError(t, c.Visit(context.Background(), srv.URL+"/consent"))

	text, err := c.GetText(context.Background(), srv.URL+"/token", nil)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", text)
}

func TestGetText_WithoutJarIsUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("A3"); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte("tok-1"))
	}))
	defer srv.Close()

	_, err := New(time.Second).GetText(context.Background(), srv.URL, nil)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Code)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"server error", &StatusError{Code: http.StatusBadGateway}, true},
		{"throttled", fmt.Errorf("quote: %w", &StatusError{Code: http.StatusTooManyRequests}), true},
		{"not found", &StatusError{Code: http.StatusNotFound}, false},
		{"unauthorized", &StatusError{Code: http.StatusUnauthorized}, false},
		{"payload", errors.New("no usable price"), false},
		{"deadline", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), true},
		{"cancelled", context.Canceled, false},
		{"local limiter", fmt.Errorf("%w: would exceed deadline", apperrors.ErrRateLimited), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsTransient_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	var out map[string]interface{}
	err := New(time.Second).GetJSON(context.Background(), addr, nil, &out)
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}
