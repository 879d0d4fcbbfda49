package http

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/urbansims/microgreens/internal/infra/config"
	"github.com/urbansims/microgreens/pkg/metrics"
)

func errorHandlingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		httpErr := asHTTPError(c.Errors.Last().Err)
		message := httpErr.Message
		if message == "" {
			message = httpErr.Error()
		}

		if httpErr.Status >= http.StatusInternalServerError {
			logger.Error("request failed", "code", httpErr.Code, "status", httpErr.Status, "path", c.Request.URL.Path, "error", httpErr.Err)
		} else {
			logger.Warn("request failed", "code", httpErr.Code, "status", httpErr.Status, "path", c.Request.URL.Path, "error", httpErr.Err)
		}

		c.JSON(httpErr.Status, gin.H{
			"error": gin.H{
				"code":    httpErr.Code,
				"message": message,
			},
		})
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("http request", "method", c.Request.Method, "path", c.Request.URL.Path, "status", c.Writer.Status(), "latency_ms", latency.Milliseconds())
	}
}

// metricsMiddleware counts responses per route pattern so ids do not
// explode the label space.
func metricsMiddleware(counter *metrics.RequestCounter) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		counter.Observe(c.Request.Method+" "+endpoint, c.Writer.Status())
	}
}

// rateLimitMiddleware keeps one token bucket per client address. Requests
// relayed by a trusted proxy, the dashboard's own backend calls included,
// are charged to the forwarded address.
func rateLimitMiddleware(cfg config.RateLimitConfig, logger *slog.Logger) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RequestsPerMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	limiter := newClientRateLimiter(cfg, time.Now)
	retryAfter := strconv.Itoa(limiter.refillSeconds())
	return func(c *gin.Context) {
		client := c.ClientIP()
		if limiter.allow(client) {
			c.Next()
			return
		}
		logger.Warn("rate limit exceeded", "client", client, "path", c.Request.URL.Path)
		c.Header("Retry-After", retryAfter)
		abortWithError(c, NewHTTPError(http.StatusTooManyRequests, "rate_limit_exceeded", "too many requests", nil))
	}
}

type clientRateLimiter struct {
	mu            sync.Mutex
	buckets       map[string]*bucket
	ratePerMinute float64
	burst         float64
	ttl           time.Duration
	now           func() time.Time
}

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

func newClientRateLimiter(cfg config.RateLimitConfig, now func() time.Time) *clientRateLimiter {
	burst := float64(cfg.Burst)
	if burst < 1 {
		burst = 1
	}
	return &clientRateLimiter{
		buckets:       make(map[string]*bucket),
		ratePerMinute: float64(cfg.RequestsPerMinute),
		burst:         burst,
		ttl:           5 * time.Minute,
		now:           now,
	}
}

// refillSeconds is how long an empty bucket waits for its next token.
func (l *clientRateLimiter) refillSeconds() int {
	return int(math.Ceil(60 / l.ratePerMinute))
}

func (l *clientRateLimiter) allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	b, ok := l.buckets[client]
	if !ok {
		b = &bucket{tokens: l.burst, lastSeen: now}
		l.buckets[client] = b
	} else {
		elapsed := now.Sub(b.lastSeen).Minutes()
		if elapsed > 0 {
			b.tokens = math.Min(l.burst, b.tokens+elapsed*l.ratePerMinute)
		}
		b.lastSeen = now
	}
	l.evictIdleLocked(now)
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (l *clientRateLimiter) evictIdleLocked(now time.Time) {
	for client, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.ttl {
			delete(l.buckets, client)
		}
	}
}
