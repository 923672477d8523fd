package middleware

import (
	"context"
	"strconv"
	"sync"
	"time"

	"critiq/apierror"
	"critiq/cache"
	"critiq/logger"
	"critiq/metrics"
	"critiq/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Limiter decides whether a client may make another request.
type Limiter interface {
	Allow(ctx context.Context, ip string) (bool, error)
	Window() time.Duration
}

type IPRateLimiter struct {
	mu        sync.Mutex
	requests  map[string][]time.Time
	limit     int
	window    time.Duration
	lastSweep time.Time
}

func NewIPRateLimiter(limit int, window time.Duration) *IPRateLimiter {
	return &IPRateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

func (rl *IPRateLimiter) Allow(_ context.Context, ip string) (bool, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-rl.window)
	if now.Sub(rl.lastSweep) >= rl.window {
		rl.sweep(cutoff)
		rl.lastSweep = now
	}

	// Clean old requests
	requests := rl.requests[ip]
	i := 0
	for ; i < len(requests); i++ {
		if requests[i].After(cutoff) {
			break
		}
	}
	requests = requests[i:]

	if len(requests) >= rl.limit {
		rl.requests[ip] = requests
		return false, nil
	}

	rl.requests[ip] = append(requests, now)
	return true, nil
}

// sweep forgets clients whose newest request is older than cutoff.
func (rl *IPRateLimiter) sweep(cutoff time.Time) {
	for ip, requests := range rl.requests {
		if len(requests) == 0 || !requests[len(requests)-1].After(cutoff) {
			delete(rl.requests, ip)
		}
	}
}

// RedisRateLimiter counts requests per fixed window in redis so the limit is
// shared by every instance.
type RedisRateLimiter struct {
	store  *cache.Store
	limit  int
	window time.Duration
}

func NewRedisRateLimiter(store *cache.Store, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{store: store, limit: limit, window: window}
}

func (rl *RedisRateLimiter) Allow(ctx context.Context, ip string) (bool, error) {
	n, err := rl.store.Incr(ctx, "rate_limit:"+ip, rl.window)
	if err != nil {
		return false, err
	}
	return n <= int64(rl.limit), nil
}

func RateLimitMiddleware(limiter Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		allowed, err := limiter.Allow(ctx, ip)
		cancel()

		if err != nil {
			// Fail open.
			logger.Log.Warn("Rate limit check failed, allowing request", logger.WithIP(ip), zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			metrics.Get().RateLimitExceeded.Inc()
			logger.Log.Warn("Rate limit exceeded", logger.WithIP(ip), zap.String("path", c.Request.URL.Path))
			c.Header("Retry-After", strconv.Itoa(int(limiter.Window().Seconds())))
			response.Abort(c, apierror.TooManyRequests(), "")
			return
		}
		c.Next()
	}
}

func (rl *IPRateLimiter) Window() time.Duration    { return rl.window }
func (rl *RedisRateLimiter) Window() time.Duration { return rl.window }
