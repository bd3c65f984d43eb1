// Package client is the typed HTTP client for the Reflections blog API. Every call
// carries the stored bearer token, failures are normalised into *APIError, and a 401
// is recovered by exactly one token refresh and retry.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gregjones/httpcache"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/reflections/internal/models"
	"github.com/wolfeidau/reflections/internal/telemetry"
	"github.com/wolfeidau/reflections/internal/tokenstore"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/oauth2"
)

const (
	// DefaultBaseURL is the hosted Reflections API.
	DefaultBaseURL = "https://reflections-backend-g9jc.onrender.com"

	maxResponseBytes = 4 << 20
)

// Config holds common client configuration
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string

	// Cache enables the read cache. CacheDir persists it on disk, otherwise it is held in memory.
	Cache           bool
	CacheDir        string
	RevalidateAfter time.Duration
}

// DefaultConfig returns a default client configuration
func DefaultConfig() Config {
	return Config{
		BaseURL:         DefaultBaseURL,
		Timeout:         30 * time.Second,
		UserAgent:       "reflections",
		RevalidateAfter: DefaultRevalidateAfter,
	}
}

// Option customises a Client.
type Option func(*Client)

// WithTransport replaces the base round tripper, mostly for tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.transport = rt
	}
}

// WithSessionExpiredHandler registers fn to run after a refresh failure cleared the store.
func WithSessionExpiredHandler(fn func(ctx context.Context)) Option {
	return func(c *Client) {
		c.onExpired = fn
	}
}

// Client talks to the blog API on behalf of the session held in a token store.
type Client struct {
	baseURL    *url.URL
	userAgent  string
	transport  http.RoundTripper
	httpClient *http.Client
	store      tokenstore.Store
	cache      httpcache.Cache

	mu        sync.RWMutex
	onExpired func(ctx context.Context)
}

// New creates a client for the API at cfg.BaseURL using store for credentials.
func New(cfg Config, store tokenstore.Store, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid api url %q: scheme must be http or https", cfg.BaseURL)
	}

	c := &Client{
		baseURL:   base,
		userAgent: cfg.UserAgent,
		store:     store,
		transport: http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(c)
	}

	var transport http.RoundTripper = otelhttp.NewTransport(c.transport)
	if cfg.Cache {
		c.cache = NewCache(cfg.CacheDir)
		transport = newCachingTransport(c.cache, transport, cfg.RevalidateAfter)
	}

	c.httpClient = &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}

	return c, nil
}

// OnSessionExpired sets the handler run after a failed refresh cleared the store.
func (c *Client) OnSessionExpired(fn func(ctx context.Context)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onExpired = fn
}

// Store returns the token store backing the client.
func (c *Client) Store() tokenstore.Store {
	return c.store
}

// request describes one API call.
type request struct {
	method string
	path   string
	body   any
	// anonymous requests never carry a bearer token and never trigger a refresh;
	// used for the auth endpoints themselves.
	anonymous bool
}

// do sends r, recovering a single 401 with a token refresh, and decodes the envelope
// payload into out. It returns the server message of a successful response.
func (c *Client) do(ctx context.Context, r request, out any) (string, error) {
	start := time.Now()
	metrics := telemetry.GetMetrics()
	defer func() {
		metrics.APIRequestDuration.Record(ctx, float64(time.Since(start).Milliseconds()),
			metric.WithAttributes(attribute.String("method", r.method)))
	}()

	var payload []byte
	if r.body != nil {
		var err error
		payload, err = json.Marshal(r.body)
		if err != nil {
			return "", fmt.Errorf("failed to encode request: %w", err)
		}
	}

	var token *oauth2.Token
	if !r.anonymous {
		rec, err := c.store.Read(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to read session: %w", err)
		}
		if rec != nil {
			token = rec.OAuth2Token()
		}
	}

	resp, err := c.send(ctx, r, payload, token)
	if err != nil {
		return "", err
	}

	if resp.StatusCode == http.StatusUnauthorized && !r.anonymous {
		drain(resp)

		refreshed, err := c.refresh(ctx)
		if err != nil {
			return "", c.expire(ctx, err)
		}

		// the retried response is returned as-is, including a second 401
		resp, err = c.send(ctx, r, payload, refreshed.OAuth2Token())
		if err != nil {
			return "", err
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &APIError{Kind: KindUnreachable, Status: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	return normalize(resp.StatusCode, body, out)
}

// send performs a single HTTP exchange.
func (c *Client) send(ctx context.Context, r request, payload []byte, token *oauth2.Token) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.url(r.path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if token != nil && token.AccessToken != "" {
		token.SetAuthHeader(req)
	}

	resp, err := c.httpClient.Do(req)
	telemetry.GetMetrics().APIRequestsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", r.method),
		attribute.Bool("error", err != nil),
	))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Debug().Err(err).Str("method", r.method).Str("path", r.path).Msg("api request failed")
		return nil, &APIError{Kind: KindUnreachable, Err: err}
	}

	log.Debug().
		Str("method", r.method).
		Str("path", r.path).
		Int("status", resp.StatusCode).
		Bool("cached", fromCache(resp)).
		Msg("api request")

	return resp, nil
}

// refresh exchanges the stored refresh token for a new pair and persists it.
func (c *Client) refresh(ctx context.Context) (*tokenstore.Record, error) {
	metrics := telemetry.GetMetrics()

	rec, err := c.store.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if rec == nil || rec.RefreshToken == "" || rec.Email == "" {
		metrics.RecordTokenRefresh(ctx, "missing")
		return nil, errNoRefreshCredentials
	}

	pair, err := c.RefreshToken(ctx, models.RefreshRequest{RefreshToken: rec.RefreshToken, Email: rec.Email})
	if err != nil {
		metrics.RecordTokenRefresh(ctx, "failed")
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}
	if !pair.Complete() {
		metrics.RecordTokenRefresh(ctx, "failed")
		return nil, errors.New("token refresh returned an incomplete token pair")
	}

	next := rec.WithTokens(*pair)
	if err := c.store.Write(ctx, next); err != nil {
		metrics.RecordTokenRefresh(ctx, "failed")
		return nil, fmt.Errorf("failed to persist refreshed tokens: %w", err)
	}

	metrics.RecordTokenRefresh(ctx, "refreshed")
	log.Debug().
		Str("fingerprint", tokenstore.Fingerprint(pair.AccessToken)).
		Time("expiry", next.Expiry).
		Msg("refreshed access token")

	return next, nil
}

// expire clears the store after an unrecoverable 401 and notifies the session owner.
func (c *Client) expire(ctx context.Context, cause error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	log.Info().Err(cause).Msg("session expired")
	telemetry.GetMetrics().SessionExpiryTotal.Add(ctx, 1)

	if err := c.store.Clear(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to clear session after refresh failure")
	}

	c.mu.RLock()
	fn := c.onExpired
	c.mu.RUnlock()
	if fn != nil {
		fn(ctx)
	}

	return &APIError{
		Kind:    KindSessionExpired,
		Status:  http.StatusUnauthorized,
		Message: "Your session has expired. Please log in again.",
		Err:     cause,
	}
}

func (c *Client) url(path string) string {
	return c.baseURL.String() + path
}

// invalidate drops cached reads affected by a mutation.
func (c *Client) invalidate(paths ...string) {
	if c.cache == nil {
		return
	}
	for _, p := range paths {
		c.cache.Delete(c.url(p))
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	_ = resp.Body.Close()
}
