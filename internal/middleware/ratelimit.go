package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yt-automation/shorts-dashboard-go/internal/models"
	"github.com/yt-automation/shorts-dashboard-go/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const minIdleTTL = 10 * time.Minute

// RateLimiter keeps one token bucket per client IP. Buckets idle long enough
// to have refilled are dropped.
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*client
	rate      rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
	log       *zap.Logger
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows perMinute requests per client with the given burst.
// A non-positive perMinute disables limiting.
func NewRateLimiter(perMinute float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	idleTTL := minIdleTTL
	if perMinute > 0 {
		interval := time.Duration(float64(time.Minute) / perMinute)
		limit = rate.Every(interval)
		if refill := interval * time.Duration(burst); refill > idleTTL {
			idleTTL = refill
		}
	}

	return &RateLimiter{
		clients:   make(map[string]*client),
		rate:      limit,
		burst:     burst,
		idleTTL:   idleTTL,
		lastSweep: time.Now(),
		now:       time.Now,
		log:       logger.Named("ratelimit"),
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= rl.idleTTL {
		rl.sweep(now)
	}

	cl, ok := rl.clients[key]
	if !ok {
		cl = &client{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.clients[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// sweep drops clients idle for at least idleTTL. mu must be held.
func (rl *RateLimiter) sweep(now time.Time) {
	before := len(rl.clients)
	for key, cl := range rl.clients {
		if now.Sub(cl.lastSeen) >= rl.idleTTL {
			delete(rl.clients, key)
		}
	}
	rl.lastSweep = now

	if evicted := before - len(rl.clients); evicted > 0 {
		rl.log.Debug("Evicted idle rate limit buckets",
			zap.Int("evicted", evicted),
			zap.Int("remaining", len(rl.clients)),
		)
	}
}

// Middleware returns the gin handler.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.rate == rate.Inf {
			c.Next()
			return
		}

		ip := c.ClientIP()
		if !rl.limiter(ip).Allow() {
			rl.log.Warn("Rate limit exceeded",
				zap.String("path", c.Request.URL.Path),
				zap.String("remote_addr", ip),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Success: false,
				Error:   "Too many requests",
			})
			return
		}

		c.Next()
	}
}
