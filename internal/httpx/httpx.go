// Package httpx wraps http.Client with the defaults every price source shares:
// a User-Agent, a per-request timeout, optional rate limiting and JSON decoding.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	apperrors "stock-alerts/internal/errors"
	"stock-alerts/internal/logging"
)

// DefaultUserAgent is sent when a request does not set its own.
// Some quote endpoints reject the Go default agent.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// maxErrorBody bounds how much of a failed response is kept in the error.
const maxErrorBody = 256

// Client is a small wrapper around http.Client with sane defaults.
type Client struct {
	HTTP      *http.Client
	UserAgent string
	Headers   map[string]string
	Limiter   *rate.Limiter // nil = unlimited
	Logger    zerolog.Logger
}

// New creates a client whose requests time out after timeout.
func New(timeout time.Duration) *Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 3 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   4,
		ForceAttemptHTTP2:     true,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &Client{
		HTTP:      &http.Client{Timeout: timeout, Transport: transport},
		UserAgent: DefaultUserAgent,
		Logger:    zerolog.Nop(),
	}
}

// NewLimiter converts a requests-per-minute budget into a limiter.
// Zero or less means unlimited and yields nil.
func NewLimiter(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
}

// WithLimiter sets the rate limiter and returns c.
func (c *Client) WithLimiter(l *rate.Limiter) *Client {
	c.Limiter = l
	return c
}

// WithLogger sets the logger used for request tracing and returns c.
func (c *Client) WithLogger(logger zerolog.Logger) *Client {
	c.Logger = logger
	return c
}

// WithCookieJar gives the client a cookie jar so session cookies set by one
// response are sent with later requests, and returns c.
func (c *Client) WithCookieJar() *Client {
	jar, _ := cookiejar.New(nil) // only fails on a non-nil Options
	c.HTTP.Jar = jar
	return c
}

// Wait blocks until the limiter admits one request. SDK-backed sources call
// it before handing the request to their own client.
func (c *Client) Wait(ctx context.Context) error {
	if c.Limiter == nil {
		return nil
	}
	if err := c.Limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrRateLimited, err)
	}
	return nil
}

// Rebased returns a copy of the underlying http.Client whose requests are
// sent to baseURL's scheme and host instead of the original ones.
// An empty baseURL returns the client unchanged.
func (c *Client) Rebased(baseURL string) (*http.Client, error) {
	if baseURL == "" {
		return c.HTTP, nil
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	next := c.HTTP.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	hc := *c.HTTP
	hc.Transport = &rebaseTransport{base: base, next: next}
	return &hc, nil
}

type rebaseTransport struct {
	base *url.URL
	next http.RoundTripper
}

func (t *rebaseTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.URL.Scheme = t.base.Scheme
	r.URL.Host = t.base.Host
	r.Host = t.base.Host
	if p := strings.TrimRight(t.base.Path, "/"); p != "" {
		r.URL.Path = p + r.URL.Path
	}
	return t.next.RoundTrip(r)
}

// Do sends req after waiting for the limiter and applying default headers.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.Wait(ctx); err != nil {
		return nil, err
	}

	if c.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	for k, v := range c.Headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	return c.HTTP.Do(req.WithContext(ctx))
}

// GetJSON issues a GET to rawURL with params appended and decodes a 2xx body into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, params url.Values, out interface{}) error {
	return c.get(ctx, rawURL, params, "application/json", func(body io.Reader) error {
		if err := json.NewDecoder(body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		return nil
	})
}

// GetText issues a GET to rawURL with params appended and returns a 2xx body as text.
func (c *Client) GetText(ctx context.Context, rawURL string, params url.Values) (string, error) {
	var text string
	err := c.get(ctx, rawURL, params, "text/plain", func(body io.Reader) error {
		b, err := io.ReadAll(io.LimitReader(body, 4096))
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}
		text = string(b)
		return nil
	})
	return text, err
}

// Visit issues a GET to rawURL for its side effects, such as session cookies.
// Any HTTP status is accepted; only transport failures are returned.
func (c *Client) Visit(ctx context.Context, rawURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	start := time.Now()
	resp, err := c.Do(ctx, req)
	logging.LogAPICall(c.Logger, http.MethodGet, rawURL, time.Since(start), err)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return resp.Body.Close()
}

func (c *Client) get(ctx context.Context, rawURL string, params url.Values, accept string, decode func(io.Reader) error) error {
	target := rawURL
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", accept)

	start := time.Now()
	resp, err := c.Do(ctx, req)
	if err != nil {
		logging.LogAPICall(c.Logger, http.MethodGet, target, time.Since(start), err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		err := &StatusError{Code: resp.StatusCode, Body: string(body)}
		logging.LogAPICall(c.Logger, http.MethodGet, target, time.Since(start), err)
		return err
	}

	err = decode(resp.Body)
	logging.LogAPICall(c.Logger, http.MethodGet, target, time.Since(start), err)
	return err
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Unwrap maps 429 responses onto ErrRateLimited.
func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusTooManyRequests {
		return apperrors.ErrRateLimited
	}
	return nil
}

// IsTransient reports whether err says the provider itself is struggling:
// a transport failure, a timeout, a 429 or a 5xx answer. Answers about one
// symbol, such as a 404 or an unusable payload, are not transient, and
// neither are caller cancellation or a local limiter wait that ran out.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		return IsTransientStatus(se.Code)
	}
	if errors.Is(err, apperrors.ErrRateLimited) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var ne net.Error
	return errors.As(err, &ne)
}

// IsTransientStatus reports whether an HTTP status code is a provider-side failure.
func IsTransientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
