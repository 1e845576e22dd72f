package middleware

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter(t *testing.T) {
	t.Parallel()

	r := newRouter(NewRateLimiter(1, 2).Middleware())

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/cron", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/cron", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodGet, "/api/cron", "").Code)
}

func TestRateLimiter_Disabled(t *testing.T) {
	t.Parallel()

	r := newRouter(NewRateLimiter(0, 0).Middleware())
	for i := 0; i < 20; i++ {
		assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/cron", "").Code)
	}
}

func TestRateLimiter_PerClient(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(1, 1)
	assert.True(t, rl.limiter("10.0.0.1").Allow())
	assert.False(t, rl.limiter("10.0.0.1").Allow())
	assert.True(t, rl.limiter("10.0.0.2").Allow())
}

func TestRateLimiter_EvictsIdleClients(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	advance := func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(d)
	}

	rl := NewRateLimiter(60, 5)
	rl.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	rl.lastSweep = rl.now()
	assert.Equal(t, minIdleTTL, rl.idleTTL)

	rl.limiter("10.0.0.1")
	rl.limiter("10.0.0.2")
	assert.Len(t, rl.clients, 2)

	advance(5 * time.Minute)
	rl.limiter("10.0.0.2")
	assert.Len(t, rl.clients, 2)

	advance(6 * time.Minute)
	rl.limiter("10.0.0.3")
	assert.Len(t, rl.clients, 2)
	assert.NotContains(t, rl.clients, "10.0.0.1")
	assert.Contains(t, rl.clients, "10.0.0.2")
	assert.Contains(t, rl.clients, "10.0.0.3")
}

func TestRateLimiter_IdleTTLCoversRefill(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(1, 30)
	assert.Equal(t, 30*time.Minute, rl.idleTTL)
}
