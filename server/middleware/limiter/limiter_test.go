// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package limiter

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

func newTestLimiter(opts Options) (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}

	if opts.IPv4Prefix == 0 {
		opts.IPv4Prefix = 24
	}

	if opts.IPv6Prefix == 0 {
		opts.IPv6Prefix = 48
	}

	l := New(opts)
	l.now = clock.Now

	return l, clock
}

// do sends one request from remoteAddr through the limiter and reports
// whether the next handler ran.
func do(l *Limiter, method, remoteAddr string) (*httptest.ResponseRecorder, bool) {
	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	})

	req := httptest.NewRequest(method, "/api/addLang", nil)
	req.RemoteAddr = remoteAddr

	rr := httptest.NewRecorder()
	l.Evaluate(rr, req, next)

	return rr, reached
}

func TestEvaluate_LimitsPOSTPerNetwork(t *testing.T) {
	t.Parallel()

	l, _ := newTestLimiter(Options{Rate: 1, Burst: 2})

	for i := range 2 {
		rr, reached := do(l, http.MethodPost, "203.0.113.5:1000")
		require.True(t, reached, "request %d within burst", i)
		assert.Equal(t, "2", rr.Header().Get(HeaderRateLimitLimit))
	}

	// Same /24, different host.
	rr, reached := do(l, http.MethodPost, "203.0.113.77:1000")
	assert.False(t, reached)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "Too many requests", rr.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	assert.Equal(t, "0", rr.Header().Get(HeaderRateLimitRemaining))

	// A different network has its own bucket.
	_, reached = do(l, http.MethodPost, "198.51.100.1:1000")
	assert.True(t, reached)
	assert.Equal(t, 2, l.Len())
}

func TestEvaluate_RefillsOverTime(t *testing.T) {
	t.Parallel()

	l, clock := newTestLimiter(Options{Rate: 1, Burst: 1})

	_, reached := do(l, http.MethodPost, "203.0.113.5:1000")
	require.True(t, reached)

	_, reached = do(l, http.MethodPost, "203.0.113.5:1000")
	require.False(t, reached)

	clock.Advance(time.Second)

	_, reached = do(l, http.MethodPost, "203.0.113.5:1000")
	assert.True(t, reached)
}

func TestEvaluate_GETIsNeverLimited(t *testing.T) {
	t.Parallel()

	l, _ := newTestLimiter(Options{Rate: 0, Burst: 0})

	for range 10 {
		rr, reached := do(l, http.MethodGet, "203.0.113.5:1000")
		require.True(t, reached)
		assert.Empty(t, rr.Header().Get(HeaderRateLimitLimit))
	}

	assert.Zero(t, l.Len())
}

func TestEvaluate_PassList(t *testing.T) {
	t.Parallel()

	l, _ := newTestLimiter(Options{Rate: 0, Burst: 0, PassIPs: []string{"10.0.0.0/8", "2001:db8::1"}})

	_, reached := do(l, http.MethodPost, "10.20.30.40:1000")
	assert.True(t, reached)

	_, reached = do(l, http.MethodPost, "[2001:db8::1]:1000")
	assert.True(t, reached)

	_, reached = do(l, http.MethodPost, "[2001:db8::2]:1000")
	assert.False(t, reached)
}

func TestEvaluate_ConcurrentRequestsRespectBurst(t *testing.T) {
	t.Parallel()

	const burst = 5

	l, _ := newTestLimiter(Options{Rate: 0.001, Burst: burst})

	var (
		mu      sync.Mutex
		allowed int
		g       errgroup.Group
	)

	for range 50 {
		g.Go(func() error {
			if _, reached := do(l, http.MethodPost, "203.0.113.9:1000"); reached {
				mu.Lock()
				allowed++
				mu.Unlock()
			}

			return nil
		})
	}

	require.NoError(t, g.Wait())
	assert.Equal(t, burst, allowed)
}

func TestCleanupExpired(t *testing.T) {
	t.Parallel()

	l, clock := newTestLimiter(Options{Rate: 1, Burst: 1})

	do(l, http.MethodPost, "203.0.113.5:1000")
	clock.Advance(LimiterExpiryDuration / 2)
	do(l, http.MethodPost, "198.51.100.1:1000")
	require.Equal(t, 2, l.Len())

	clock.Advance(LimiterExpiryDuration/2 + time.Minute)
	l.cleanupExpired(clock.Now())

	assert.Equal(t, 1, l.Len(), "only the idle network is dropped")
}
