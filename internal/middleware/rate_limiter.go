package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/studybud/backend/internal/config"
)

// KeyedLimiter keeps one token bucket per key, such as "login:203.0.113.9". Buckets
// idle for longer than the TTL are swept.
type KeyedLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	now       func() time.Time
	nextSweep time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewKeyedLimiter allows requests events per window for each key, with bursts of up
// to burst events. Non-positive arguments fall back to one event per second.
func NewKeyedLimiter(requests int, window time.Duration, burst int, ttl time.Duration) *KeyedLimiter {
	if requests <= 0 {
		requests = 1
	}
	if window <= 0 {
		window = time.Second
	}
	if burst <= 0 {
		burst = requests
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &KeyedLimiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Every(window / time.Duration(requests)),
		burst:   burst,
		ttl:     ttl,
		now:     time.Now,
	}
}

// NewLoginLimiter sizes a limiter for the sign-in, sign-up and password-reset
// endpoints from the security settings.
func NewLoginLimiter(cfg config.SecurityConfig) *KeyedLimiter {
	return NewKeyedLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow, cfg.LoginRateLimit, 2*cfg.LoginRateWindow)
}

// Allow spends one token from key's bucket.
func (l *KeyedLimiter) Allow(key string) bool {
	if key == "" {
		key = "unknown"
	}

	l.mu.Lock()
	now := l.now()
	if now.After(l.nextSweep) {
		l.sweepLocked(now)
		l.nextSweep = now.Add(l.ttl)
	}
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	l.mu.Unlock()

	return b.limiter.AllowN(now, 1)
}

// Len reports how many keys are tracked.
func (l *KeyedLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *KeyedLimiter) sweepLocked(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.ttl {
			delete(l.buckets, key)
		}
	}
}
