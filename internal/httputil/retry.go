// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the retrying HTTP round trip shared by the
// BibSource adapters.
package httputil

import (
	"context"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultMaxRetries = 2
	defaultBaseDelay  = 500 * time.Millisecond
)

// Retrier retries requests that an upstream answers with 429 (Too Many
// Requests) or 503 (Service Unavailable).
type Retrier struct {
	// MaxRetries is the number of retries after the first attempt
	// (default 2).
	MaxRetries int

	// BaseDelay starts the backoff; it doubles each attempt. Zero means
	// 500ms. A Retry-After header in seconds replaces the computed
	// backoff.
	BaseDelay time.Duration

	Logger zerolog.Logger
}

// Do executes req and retries on a retryable status. On each retry the
// response body is drained and closed before sleeping. If the context is
// done during a backoff wait Do returns ctx.Err(). After exhausting
// retries the last response is returned so the caller can inspect it.
func (r *Retrier) Do(ctx context.Context, client *http.Client, req *http.Request) (*http.Response, error) {
	maxRetries := r.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	base := r.BaseDelay
	if base <= 0 {
		base = defaultBaseDelay
	}

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}

		if !retryable(resp.StatusCode) || attempt >= maxRetries {
			return resp, nil
		}

		wait := time.Duration(math.Pow(2, float64(attempt))) * base
		if after, ok := retryAfter(resp); ok {
			wait = after
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		r.Logger.Debug().
			Str("url", req.URL.Redacted()).
			Int("status", resp.StatusCode).
			Dur("backoff", wait).
			Int("attempt", attempt+1).
			Msg("retrying upstream request")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

func retryAfter(resp *http.Response) (time.Duration, bool) {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}
