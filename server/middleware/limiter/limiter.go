// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package limiter

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"codeberg.org/proxima/proxima/config"
	"codeberg.org/proxima/proxima/server/utils"
)

// Rate limiting header names.
//
// ref: https://www.ietf.org/archive/id/draft-polli-ratelimit-headers-02.html
const (
	HeaderRateLimitLimit     string = "RateLimit-Limit" // This is intended.
	HeaderRateLimitRemaining string = "RateLimit-Remaining"
	HeaderRateLimitReset     string = "RateLimit-Reset"
)

const (
	LimiterExpiryDuration = time.Hour       // How long an idle network keeps its bucket.
	CleanupInterval       = 5 * time.Minute // Minimum time between cleanup sweeps.
)

// Options configures a Limiter.
type Options struct {
	Rate              float64  // Tokens added per second.
	Burst             int      // Bucket capacity.
	PassIPs           []string // Addresses or CIDRs that are never limited.
	IPv4Prefix        int
	IPv6Prefix        int
	TrustForwardedFor bool
}

// bucket is the token bucket of one IP network.
type bucket struct {
	limiter *rate.Limiter

	mu         sync.Mutex
	lastAccess time.Time
}

// Limiter holds one token bucket per client network.
type Limiter struct {
	opts    Options
	pass    passList
	buckets *xsync.MapOf[string, *bucket]

	lastCleanup atomic.Int64
	now         func() time.Time // allows mocking in tests
}

// New returns a Limiter with no buckets.
func New(opts Options) *Limiter {
	return &Limiter{
		opts:    opts,
		pass:    parsePassList(opts.PassIPs),
		buckets: xsync.NewMapOf[*bucket](),
		now:     time.Now,
	}
}

// FromConfig returns a Limiter built from config.Global.Limiter.
func FromConfig() *Limiter {
	cfg := config.Global.Limiter

	return New(Options{
		Rate:              cfg.Rate,
		Burst:             cfg.Burst,
		PassIPs:           cfg.PassIPs,
		IPv4Prefix:        cfg.IPv4Prefix,
		IPv6Prefix:        cfg.IPv6Prefix,
		TrustForwardedFor: cfg.TrustForwardedFor,
	})
}

// Evaluate is the limiter middleware.
//
// A POST from a network whose bucket is empty gets a 429 plain-text response
// and never reaches the handler, so the session is left untouched.
func (l *Limiter) Evaluate(w http.ResponseWriter, r *http.Request, next http.Handler) {
	if r.Method != http.MethodPost {
		next.ServeHTTP(w, r)

		return
	}

	defer l.maybeCleanup()

	addr := clientAddr(r, l.opts.TrustForwardedFor)

	// Without an address there is nothing to key on.
	if !addr.IsValid() || l.pass.contains(addr) {
		next.ServeHTTP(w, r)

		return
	}

	key := network(addr, l.opts.IPv4Prefix, l.opts.IPv6Prefix).String()

	allowed, remaining, reset := l.take(key)

	w.Header().Set(HeaderRateLimitLimit, strconv.Itoa(l.opts.Burst))
	w.Header().Set(HeaderRateLimitRemaining, strconv.Itoa(remaining))
	w.Header().Set(HeaderRateLimitReset, strconv.Itoa(reset))

	if !allowed {
		log.Warn().
			Str("network", key).
			Str("url", r.URL.Path).
			Msg("Rate limit exceeded")

		w.Header().Set("Retry-After", strconv.Itoa(max(reset, 1)))
		w.Header().Set("Cache-Control", "no-store")

		if err := utils.WriteText(w, http.StatusTooManyRequests, "Too many requests"); err != nil {
			log.Err(err).Msg("Failed to write rate limit response")
		}

		return
	}

	next.ServeHTTP(w, r)
}

// take consumes one token from network's bucket. It reports the tokens left
// and the seconds until the bucket is full again.
func (l *Limiter) take(network string) (allowed bool, remaining, reset int) {
	now := l.now()

	b, _ := l.buckets.LoadOrCompute(network, func() *bucket {
		return &bucket{limiter: rate.NewLimiter(rate.Limit(l.opts.Rate), l.opts.Burst)}
	})

	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastAccess = now
	allowed = b.limiter.AllowN(now, 1)

	tokens := max(b.limiter.TokensAt(now), 0)
	remaining = int(math.Floor(tokens))

	if l.opts.Rate > 0 {
		reset = int(math.Ceil((float64(l.opts.Burst) - tokens) / l.opts.Rate))
	}

	return allowed, remaining, reset
}

// maybeCleanup sweeps idle buckets at most once per CleanupInterval.
func (l *Limiter) maybeCleanup() {
	now := l.now()
	last := l.lastCleanup.Load()

	if last == 0 {
		l.lastCleanup.CompareAndSwap(0, now.UnixNano())

		return
	}

	if now.Sub(time.Unix(0, last)) < CleanupInterval || !l.lastCleanup.CompareAndSwap(last, now.UnixNano()) {
		return
	}

	go l.cleanupExpired(now)
}

// cleanupExpired removes buckets that have been idle for LimiterExpiryDuration.
func (l *Limiter) cleanupExpired(now time.Time) {
	var expired int

	l.buckets.Range(func(network string, b *bucket) bool {
		b.mu.Lock()
		idle := now.Sub(b.lastAccess)
		b.mu.Unlock()

		if idle > LimiterExpiryDuration {
			l.buckets.Delete(network)

			expired++
		}

		return true
	})

	if expired > 0 {
		log.Info().
			Int("count", expired).
			Dur("dur", time.Since(now)).
			Msg("Cleaned up expired limiters")
	}
}

// Len returns the number of tracked networks.
func (l *Limiter) Len() int {
	return l.buckets.Size()
}
