// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package bibsource fetches publication metadata from upstream
// bibliographic services and converts it into types.Draft records.
//
// Each adapter owns a token bucket that enforces the configured minimum
// interval between calls, and bounds each call by the configured timeout.
package bibsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pdiddy/publications/internal/httputil"
	"github.com/pdiddy/publications/pkg/types"
)

// Source resolves one identifier into a draft publication.
type Source interface {
	// Name identifies the upstream in logs and errors.
	Name() string

	// Fetch returns the draft for id. Failures wrap one of ErrNotFound,
	// ErrTransient, ErrMalformed, ErrRateLimited or ErrTimeout.
	Fetch(ctx context.Context, id string) (*types.Draft, error)
}

// Failure kinds returned by adapters.
var (
	ErrNotFound    = errors.New("not found upstream")
	ErrTransient   = errors.New("transient upstream failure")
	ErrMalformed   = errors.New("malformed upstream response")
	ErrRateLimited = errors.New("rate limited by upstream")
	ErrTimeout     = errors.New("upstream timeout")
)

// UpstreamError describes a failed upstream call.
type UpstreamError struct {
	Source     string
	ID         string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: HTTP %d: %v", e.Source, e.ID, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Source, e.ID, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// IsNotFound reports whether err means the upstream does not know the identifier.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsRetryable reports whether a later attempt may succeed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTimeout)
}

const (
	defaultUserAgent = "publications/1.0"
	maxBodySize      = 16 << 20
)

// client is the HTTP plumbing shared by the adapters.
type client struct {
	name       string
	httpClient *http.Client
	limiter    *rate.Limiter
	retrier    httputil.Retrier
	timeout    time.Duration
	baseURL    string
	userAgent  string
	logger     zerolog.Logger
	now        func() time.Time
}

// Option configures an adapter.
type Option func(*client)

// WithBaseURL points the adapter at another endpoint (for testing).
func WithBaseURL(url string) Option {
	return func(c *client) { c.baseURL = url }
}

// WithHTTPClient sets the shared HTTP client and its connection pool.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *client) {
		c.logger = l
		c.retrier.Logger = l
	}
}

// WithClock sets the time source used for date defaults.
func WithClock(now func() time.Time) Option {
	return func(c *client) { c.now = now }
}

// WithRetries sets how often a 429 or 503 answer is retried within the timeout.
func WithRetries(n int, base time.Duration) Option {
	return func(c *client) {
		c.retrier.MaxRetries = n
		c.retrier.BaseDelay = base
	}
}

func newClient(name, baseURL string, cfg types.HTTPConfig, delay time.Duration, opts []Option) *client {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	c := &client{
		name:       name,
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(limit, 1),
		timeout:    cfg.Timeout,
		baseURL:    baseURL,
		userAgent:  cfg.UserAgent,
		logger:     zerolog.Nop(),
		now:        time.Now,
	}
	c.retrier.Logger = c.logger
	if c.userAgent == "" {
		c.userAgent = defaultUserAgent
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get waits for the rate limiter, then performs one bounded GET and
// returns the body of a 200 response.
func (c *client) get(ctx context.Context, id, url, accept string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, c.fail(ctx, id, 0, ctx.Err())
		}
		// The limiter refuses to wait past the caller's deadline.
		return nil, &UpstreamError{Source: c.name, ID: id, Err: fmt.Errorf("%w: %v", ErrTimeout, err)}
	}

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", accept)

	start := time.Now()
	resp, err := c.retrier.Do(callCtx, c.httpClient, req)
	if err != nil {
		return nil, c.fail(ctx, id, 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, c.fail(ctx, id, resp.StatusCode, err)
	}

	c.logger.Debug().
		Str("source", c.name).
		Str("identifier", id).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("upstream response")

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		return nil, &UpstreamError{Source: c.name, ID: id, StatusCode: resp.StatusCode, Err: ErrNotFound}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &UpstreamError{Source: c.name, ID: id, StatusCode: resp.StatusCode, Err: ErrRateLimited}
	default:
		return nil, &UpstreamError{Source: c.name, ID: id, StatusCode: resp.StatusCode, Err: ErrTransient}
	}
}

// fail classifies a transport error. A cancelled caller context is
// passed through; anything else becomes ErrTimeout or ErrTransient.
func (c *client) fail(parent context.Context, id string, status int, err error) error {
	if errors.Is(parent.Err(), context.Canceled) {
		return fmt.Errorf("%s %s: %w", c.name, id, parent.Err())
	}
	kind := ErrTransient
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = ErrTimeout
	}
	return &UpstreamError{Source: c.name, ID: id, StatusCode: status, Err: fmt.Errorf("%w: %v", kind, err)}
}

func wrapMalformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}
