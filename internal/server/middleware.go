package server

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/guiyumin/socialdl/internal/core/config"
	"github.com/guiyumin/socialdl/internal/core/envelope"
	"github.com/guiyumin/socialdl/internal/core/platform"
)

const requestIDKey = "request_id"

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(requestIDKey, requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()

		latency := time.Since(start)
		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		}
		s.log.Info("request", fields...)

		if latency > time.Second {
			s.log.Warn("slow request", fields...)
		}
	}
}

// recoveryMiddleware turns a handler panic into a SERVER_ERROR envelope
func (s *Server) recoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				requestID := c.GetString(requestIDKey)
				s.log.Error("panic recovered",
					zap.Any("panic", r),
					zap.String("request_id", requestID),
					zap.ByteString("stack", debug.Stack()),
				)
				sentry.CaptureException(fmt.Errorf("panic in %s %s: %v", c.Request.Method, c.Request.URL.Path, r))

				resp := envelope.Failure(platform.Unknown, envelope.ServerError,
					"Internal server error", fmt.Sprint(r))
				c.AbortWithStatusJSON(http.StatusInternalServerError, resp)
			}
		}()
		c.Next()
	}
}

// corsMiddleware reflects the request origin unless origins are configured
func corsMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	cc := cors.Config{
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) > 0 {
		cc.AllowOrigins = cfg.AllowedOrigins
	} else {
		cc.AllowOriginFunc = func(string) bool { return true }
	}
	return cors.New(cc)
}

// limiterIdleTTL is how long a client's bucket is kept after its last request
const limiterIdleTTL = 10 * time.Minute

// ipRateLimiter keeps one token bucket per client IP. Buckets idle for
// longer than idleTTL are swept at most once per idleTTL.
type ipRateLimiter struct {
	rps      rate.Limit
	burst    int
	idleTTL  time.Duration
	now      func() time.Time
	limiters sync.Map // ip -> *ipLimiter

	mu        sync.Mutex
	lastSweep time.Time
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

func newIPRateLimiter(cfg config.RateLimitConfig) *ipRateLimiter {
	return &ipRateLimiter{
		rps:       rate.Limit(cfg.RPS),
		burst:     cfg.Burst,
		idleTTL:   limiterIdleTTL,
		now:       time.Now,
		lastSweep: time.Now(),
	}
}

func (rl *ipRateLimiter) get(ip string) *rate.Limiter {
	now := rl.now()
	rl.sweep(now)

	v, ok := rl.limiters.Load(ip)
	if !ok {
		v, _ = rl.limiters.LoadOrStore(ip, &ipLimiter{limiter: rate.NewLimiter(rl.rps, rl.burst)})
	}
	l := v.(*ipLimiter)
	l.lastSeen.Store(now.UnixNano())
	return l.limiter
}

func (rl *ipRateLimiter) sweep(now time.Time) {
	rl.mu.Lock()
	if now.Sub(rl.lastSweep) < rl.idleTTL {
		rl.mu.Unlock()
		return
	}
	rl.lastSweep = now
	rl.mu.Unlock()

	cutoff := now.Add(-rl.idleTTL).UnixNano()
	rl.limiters.Range(func(key, v any) bool {
		if v.(*ipLimiter).lastSeen.Load() < cutoff {
			rl.limiters.Delete(key)
		}
		return true
	})
}

func (s *Server) rateLimitMiddleware(rl *ipRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.get(c.ClientIP()).Allow() {
			resp := envelope.Failure(platform.Unknown, envelope.RateLimitExceeded,
				"Rate limit exceeded",
				"Too many requests from this client, please try again later")
			s.record(c, resp, false)
			c.AbortWithStatusJSON(resp.StatusCode(), resp)
			return
		}
		c.Next()
	}
}
