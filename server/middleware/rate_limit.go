package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	apierrors "github.com/zwrong/Calendar-Agent/server/internal/errors"
)

const (
	// DefaultRate is the steady request rate allowed per client.
	DefaultRate = rate.Limit(10)
	// DefaultBurst is the request burst allowed per client.
	DefaultBurst = 20
)

// RateLimiter keeps one token bucket per client key.
type RateLimiter struct {
	mu     sync.Mutex
	limit  rate.Limit
	burst  int
	limits map[string]*clientLimiter
	now    func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new rate limiter allowing 10 requests per second with a burst of 20.
func NewRateLimiter() *RateLimiter {
	return NewRateLimiterWith(DefaultRate, DefaultBurst)
}

// NewRateLimiterWith creates a rate limiter with a custom rate and burst.
func NewRateLimiterWith(limit rate.Limit, burst int) *RateLimiter {
	return &RateLimiter{
		limit:  limit,
		burst:  burst,
		limits: make(map[string]*clientLimiter),
		now:    time.Now,
	}
}

// getLimiter gets or creates a limiter for the given key.
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if cl, ok := rl.limits[key]; ok {
		cl.lastSeen = now
		return cl.limiter
	}
	limiter := rate.NewLimiter(rl.limit, rl.burst)
	rl.limits[key] = &clientLimiter{limiter: limiter, lastSeen: now}
	return limiter
}

// Allow checks if a request is allowed for the given key.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Wait waits for a request to be allowed.
// Returns error if the context is cancelled or rate limit exceeded.
func (rl *RateLimiter) Wait(ctx context.Context, key string) error {
	return rl.getLimiter(key).Wait(ctx)
}

// Prune drops limiters idle for longer than idle and returns how many were dropped.
func (rl *RateLimiter) Prune(idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-idle)
	pruned := 0
	for key, cl := range rl.limits {
		if cl.lastSeen.Before(cutoff) {
			delete(rl.limits, key)
			pruned++
		}
	}
	return pruned
}

// Len returns the number of tracked clients.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limits)
}

// KeyFunc picks the rate limit key of a request.
type KeyFunc func(c echo.Context) string

// SessionOrIP keys by the X-Session-ID header when present, else by the client IP.
func SessionOrIP(c echo.Context) string {
	if id := c.Request().Header.Get("X-Session-ID"); id != "" {
		return "session:" + id
	}
	return "ip:" + c.RealIP()
}

// Middleware rejects requests over the client's rate with 429.
func (rl *RateLimiter) Middleware(key KeyFunc) echo.MiddlewareFunc {
	if key == nil {
		key = SessionOrIP
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rl.Allow(key(c)) {
				err := apierrors.RateLimitExceeded("too many requests")
				return c.JSON(http.StatusTooManyRequests, map[string]any{
					"success": false,
					"code":    err.Code,
					"message": err.Message,
				})
			}
			return next(c)
		}
	}
}
