package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiterConfig configures a token bucket per client key.
type RateLimiterConfig struct {
	RequestsPerSecond float64
	BurstSize         int

	// CleanupInterval is how often idle buckets are dropped. A bucket is
	// idle once it has refilled and has not been touched for an interval.
	CleanupInterval time.Duration

	// KeyFunc picks the bucket. Default: ClientKey.
	KeyFunc func(r *http.Request) string
}

// DefaultRateLimiterConfig is the global limit for every route.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		RequestsPerSecond: 10,
		BurstSize:         20,
		CleanupInterval:   time.Minute,
		KeyFunc:           ClientKey,
	}
}

// CheckoutRateLimiterConfig returns stricter limits for cart and order
// writes, which take product locks.
func CheckoutRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		RequestsPerSecond: 2,
		BurstSize:         10,
		CleanupInterval:   time.Minute,
		KeyFunc:           ClientKey,
	}
}

// ClientKey keys authenticated callers by user ID and everyone else by IP.
func ClientKey(r *http.Request) string {
	if identity := GetIdentity(r.Context()); identity != nil {
		return "user:" + identity.UserID
	}
	return "ip:" + GetClientIP(r)
}

type tokenBucket struct {
	tokens   float64
	lastSeen time.Time
}

// RateLimiter is an in-memory token bucket limiter. Limits are per process.
type RateLimiter struct {
	config RateLimiterConfig
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*tokenBucket

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter starts a limiter and its cleanup goroutine. Call Stop on
// shutdown.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.KeyFunc == nil {
		config.KeyFunc = ClientKey
	}
	if config.BurstSize < 1 {
		config.BurstSize = 1
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = time.Minute
	}

	rl := &RateLimiter{
		config:  config,
		now:     time.Now,
		buckets: make(map[string]*tokenBucket),
		stop:    make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Allow takes a token for key. When none is left it reports how long until
// the next one.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	burst := float64(rl.config.BurstSize)
	b, ok := rl.buckets[key]
	if !ok {
		b = &tokenBucket{tokens: burst, lastSeen: now}
		rl.buckets[key] = b
	}

	b.tokens = math.Min(burst, b.tokens+now.Sub(b.lastSeen).Seconds()*rl.config.RequestsPerSecond)
	b.lastSeen = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	if rl.config.RequestsPerSecond <= 0 {
		return false, rl.config.CleanupInterval
	}
	wait := (1 - b.tokens) / rl.config.RequestsPerSecond
	return false, time.Duration(wait * float64(time.Second))
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.stop:
			return
		}
	}
}

func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, b := range rl.buckets {
		idle := now.Sub(b.lastSeen)
		refilled := b.tokens+idle.Seconds()*rl.config.RequestsPerSecond >= float64(rl.config.BurstSize)
		if refilled && idle > rl.config.CleanupInterval {
			delete(rl.buckets, key)
		}
	}
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Middleware answers 429 with Retry-After in whole seconds once the
// caller's bucket is empty.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, wait := rl.Allow(rl.config.KeyFunc(r))
		if !ok {
			secs := int(math.Ceil(wait.Seconds()))
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			respondTooManyRequests(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then
// the connection's remote address.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
