// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// upstream answers with statuses in order, repeating the last one, and
// records when each request arrived.
type upstream struct {
	mu       sync.Mutex
	statuses []int
	header   http.Header
	arrivals []time.Time
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	u.mu.Lock()
	defer u.mu.Unlock()
	n := len(u.arrivals)
	u.arrivals = append(u.arrivals, time.Now())
	status := u.statuses[len(u.statuses)-1]
	if n < len(u.statuses) {
		status = u.statuses[n]
	}
	for k, v := range u.header {
		w.Header()[k] = v
	}
	w.WriteHeader(status)
	w.Write([]byte(`{"esearchresult":{}}`))
}

func (u *upstream) calls() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.arrivals)
}

func (u *upstream) gap(i int) time.Duration {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.arrivals[i].Sub(u.arrivals[i-1])
}

func get(t *testing.T, r *Retrier, ctx context.Context, u *upstream) (*http.Response, error) {
	t.Helper()
	ts := httptest.NewServer(u)
	t.Cleanup(ts.Close)
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/esummary.fcgi?id=8142349", nil)
	require.NoError(t, err)
	return r.Do(ctx, ts.Client(), req)
}

func TestRetrierStatuses(t *testing.T) {
	tests := []struct {
		name       string
		maxRetries int
		statuses   []int
		wantStatus int
		wantCalls  int
	}{
		{"ok first time", 2, []int{200}, 200, 1},
		{"rate limited then ok", 3, []int{429, 429, 200}, 200, 3},
		{"unavailable then ok", 1, []int{503, 200}, 200, 2},
		{"mixed retryable", 2, []int{503, 429, 200}, 200, 3},
		{"exhausted returns last response", 3, []int{429}, 429, 4},
		{"default retries", 0, []int{503}, 503, 3},
		{"server error not retried", 5, []int{500}, 500, 1},
		{"not found not retried", 5, []int{404}, 404, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &upstream{statuses: tt.statuses}
			r := &Retrier{MaxRetries: tt.maxRetries, BaseDelay: time.Millisecond}
			resp, err := get(t, r, context.Background(), u)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCalls, u.calls())
		})
	}
}

func TestRetrierBaseDelayDoubles(t *testing.T) {
	u := &upstream{statuses: []int{503, 503, 200}}
	r := &Retrier{MaxRetries: 2, BaseDelay: 20 * time.Millisecond}

	resp, err := get(t, r, context.Background(), u)
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, 3, u.calls())
	assert.GreaterOrEqual(t, u.gap(1), 20*time.Millisecond)
	assert.GreaterOrEqual(t, u.gap(2), 40*time.Millisecond)
}

func TestRetrierRetryAfter(t *testing.T) {
	t.Run("replaces backoff", func(t *testing.T) {
		u := &upstream{statuses: []int{429, 200}, header: http.Header{"Retry-After": {"1"}}}
		r := &Retrier{MaxRetries: 1, BaseDelay: time.Millisecond}

		resp, err := get(t, r, context.Background(), u)
		require.NoError(t, err)
		resp.Body.Close()

		require.Equal(t, 2, u.calls())
		assert.GreaterOrEqual(t, u.gap(1), time.Second)
	})

	t.Run("cancelled while waiting", func(t *testing.T) {
		u := &upstream{statuses: []int{429}, header: http.Header{"Retry-After": {"30"}}}
		r := &Retrier{MaxRetries: 3, BaseDelay: time.Millisecond}
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err := get(t, r, ctx, u)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), 5*time.Second)
		assert.Equal(t, 1, u.calls())
	})

	t.Run("unparseable falls back to backoff", func(t *testing.T) {
		u := &upstream{statuses: []int{503, 200}, header: http.Header{"Retry-After": {"Wed, 21 Oct 2026 07:28:00 GMT"}}}
		r := &Retrier{MaxRetries: 1, BaseDelay: time.Millisecond}

		start := time.Now()
		resp, err := get(t, r, context.Background(), u)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, 2, u.calls())
		assert.Less(t, time.Since(start), 5*time.Second)
	})
}

func TestRetrierCancelledDuringBackoff(t *testing.T) {
	u := &upstream{statuses: []int{503}}
	r := &Retrier{MaxRetries: 5, BaseDelay: 500 * time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := get(t, r, ctx, u)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, u.calls())
}
