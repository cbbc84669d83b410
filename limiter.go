package auth

import (
	"sync"
	"time"

	"github.com/goliatone/go-router"
	"golang.org/x/time/rate"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// SignInLimiter throttles sign-in attempts per client IP. Each client may
// make max attempts at once, refilled evenly across window.
type SignInLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	idle      time.Duration
	clients   map[string]*clientLimiter
	lastSweep time.Time
	now       func() time.Time
	listeners []func(router.Context)
}

// NewSignInLimiter limits sign-in attempts per client IP. The optional
// listeners run for every rejected request.
func NewSignInLimiter(max int, window time.Duration, listeners ...func(c router.Context)) router.MiddlewareFunc {
	return NewSignInLimiterStore(max, window, listeners...).Middleware()
}

// NewSignInLimiterStore returns the limiter behind NewSignInLimiter
func NewSignInLimiterStore(max int, window time.Duration, listeners ...func(c router.Context)) *SignInLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}

	return &SignInLimiter{
		limit:     rate.Every(window / time.Duration(max)),
		burst:     max,
		idle:      window,
		clients:   map[string]*clientLimiter{},
		now:       time.Now,
		listeners: listeners,
	}
}

func (l *SignInLimiter) WithClock(now func() time.Time) *SignInLimiter {
	if now != nil {
		l.now = now
	}
	return l
}

// Allow reports whether key may make another attempt
func (l *SignInLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	client, ok := l.clients[key]
	if !ok {
		client = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = client
	}
	client.lastSeen = now

	return client.limiter.AllowN(now, 1)
}

// Clients returns the number of tracked client keys
func (l *SignInLimiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Middleware rejects throttled requests with a 429
func (l *SignInLimiter) Middleware() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			if l.Allow(c.IP()) {
				return c.Next()
			}

			for _, listener := range l.listeners {
				listener(c)
			}

			return c.JSON(router.StatusTooManyRequests, map[string]string{
				"error": "Too many requests",
			})
		}
	}
}

// sweep drops clients idle for a full window, their bucket is full again
func (l *SignInLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.idle {
		return
	}
	l.lastSweep = now

	for key, client := range l.clients {
		if now.Sub(client.lastSeen) >= l.idle {
			delete(l.clients, key)
		}
	}
}
