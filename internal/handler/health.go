package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports store connectivity. *repository.Store implements it.
type Pinger interface {
	Ping(ctx context.Context) error
	Driver() string
}

// HealthChecker reports the health of an optional dependency.
type HealthChecker interface {
	IsHealthy() bool
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	store        Pinger
	scriptExists func() bool
	publisher    HealthChecker
	queue        HealthChecker
}

// NewHealthHandler creates a new HealthHandler instance. store and publisher may be nil.
func NewHealthHandler(store Pinger, scriptExists func() bool, publisher HealthChecker) *HealthHandler {
	return &HealthHandler{
		store:        store,
		scriptExists: scriptExists,
		publisher:    publisher,
	}
}

// WithQueue adds the run queue's redis to the health check.
func (h *HealthHandler) WithQueue(queue HealthChecker) *HealthHandler {
	h.queue = queue
	return h
}

// Check handles GET /health.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	body := gin.H{
		"success": true,
		"status":  "UP",
		"time":   time.Now().UTC(),
	}

	if h.store != nil {
		if err := h.store.Ping(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body["database"] = "unhealthy"
			body["error"] = err.Error()
		} else {
			body["database"] = "healthy"
		}
		body["driver"] = h.store.Driver()
	}

	if h.scriptExists != nil {
		if h.scriptExists() {
			body["script"] = "present"
		} else {
			status = http.StatusServiceUnavailable
			body["script"] = "missing"
		}
	}

	if h.publisher != nil {
		if h.publisher.IsHealthy() {
			body["rabbitmq"] = "healthy"
		} else {
			status = http.StatusServiceUnavailable
			body["rabbitmq"] = "unhealthy"
		}
	}

	if h.queue != nil {
		if h.queue.IsHealthy() {
			body["redis"] = "healthy"
		} else {
			status = http.StatusServiceUnavailable
			body["redis"] = "unhealthy"
		}
	}

	if status != http.StatusOK {
		body["success"] = false
		body["status"] = "DOWN"
	}
	c.JSON(status, body)
}
