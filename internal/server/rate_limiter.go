// Package server implements token bucket rate limiters: one per WebSocket
// connection for chat frames and one keyed by client IP for auth endpoints.
package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type rateLimiter struct {
	limiter *rate.Limiter
}

// newRateLimiter allows capacity events per interval with bursts up to capacity.
func newRateLimiter(capacity int, interval time.Duration) *rateLimiter {
	if capacity <= 0 {
		capacity = 1
	}
	if interval <= 0 {
		interval = time.Second
	}

	return &rateLimiter{
		limiter: rate.NewLimiter(rate.Every(interval/time.Duration(capacity)), capacity),
	}
}

func (rl *rateLimiter) allow() bool {
	return rl.limiter.Allow()
}

const keyedLimiterIdleTTL = 10 * time.Minute

type keyedEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// keyedRateLimiter hands out one token bucket per key (client IP).
// Idle buckets are swept opportunistically on access.
type keyedRateLimiter struct {
	mu        sync.Mutex
	entries   map[string]*keyedEntry
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

func newKeyedRateLimiter(perMinute, burst int) *keyedRateLimiter {
	if perMinute <= 0 {
		perMinute = defaultAuthPerMinute
	}
	if burst <= 0 {
		burst = defaultAuthBurst
	}
	return &keyedRateLimiter{
		entries: make(map[string]*keyedEntry),
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   burst,
		now:     time.Now,
	}
}

// reserve reports whether key may proceed now, and if not, how long to wait.
func (k *keyedRateLimiter) reserve(key string) (bool, time.Duration) {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	k.sweep(now)

	e, ok := k.entries[key]
	if !ok {
		e = &keyedEntry{limiter: rate.NewLimiter(k.limit, k.burst)}
		k.entries[key] = e
	}
	e.lastSeen = now

	r := e.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Minute
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

func (k *keyedRateLimiter) sweep(now time.Time) {
	if now.Sub(k.lastSweep) < keyedLimiterIdleTTL {
		return
	}
	k.lastSweep = now
	for key, e := range k.entries {
		if now.Sub(e.lastSeen) > keyedLimiterIdleTTL {
			delete(k.entries, key)
		}
	}
}

func (k *keyedRateLimiter) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}

// clientIP extracts the host part of RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
