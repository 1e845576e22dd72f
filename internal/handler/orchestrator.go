package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yt-automation/shorts-dashboard-go/internal/orchestrator"
	"github.com/yt-automation/shorts-dashboard-go/internal/service"
)

// Enqueuer queues a function run for the worker. *queue.Client implements it.
type Enqueuer interface {
	EnqueueRun(ctx context.Context, functionID, runID string, event *orchestrator.Event) (string, error)
}

// InvokeRequest is the body of POST /api/inngest.
type InvokeRequest struct {
	FunctionID string              `json:"function_id" binding:"omitempty,max=128"`
	RunID      string              `json:"run_id"`
	Event      *orchestrator.Event `json:"event"`
}

// OrchestratorHandler serves the workflow orchestration surface.
type OrchestratorHandler struct {
	registry *orchestrator.Registry
	enqueuer Enqueuer
}

// NewOrchestratorHandler creates a new OrchestratorHandler. enqueuer may be
// nil, in which case invocations run inline.
func NewOrchestratorHandler(registry *orchestrator.Registry, enqueuer Enqueuer) *OrchestratorHandler {
	return &OrchestratorHandler{registry: registry, enqueuer: enqueuer}
}

// Describe handles GET /api/inngest.
func (h *OrchestratorHandler) Describe(c *gin.Context) {
	c.JSON(http.StatusOK, struct {
		Success bool `json:"success"`
		*orchestrator.Introspection
	}{
		Success:       true,
		Introspection: h.registry.Describe(),
	})
}

// Sync handles PUT /api/inngest.
func (h *OrchestratorHandler) Sync(c *gin.Context) {
	c.JSON(http.StatusOK, struct {
		Success bool `json:"success"`
		*orchestrator.SyncResponse
	}{
		Success:      true,
		SyncResponse: h.registry.Sync(),
	})
}

// Invoke handles POST /api/inngest.
func (h *OrchestratorHandler) Invoke(c *gin.Context) {
	var req InvokeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		rejectPayload(c, err)
		return
	}
	if fnID := c.Query("fnId"); fnID != "" {
		req.FunctionID = fnID
	}

	fn, err := h.registry.Resolve(req.FunctionID, req.Event)
	if err != nil {
		handleError(c, err, "")
		return
	}

	if h.enqueuer != nil {
		runID, err := h.enqueuer.EnqueueRun(c.Request.Context(), fn.ID, req.RunID, req.Event)
		if err != nil {
			handleError(c, &service.ProcessingError{Message: "failed to enqueue run", Cause: err}, "Failed to enqueue run")
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"success":     true,
			"queued":      true,
			"function_id": fn.ID,
			"run_id":      runID,
		})
		return
	}

	run, err := h.registry.Invoke(c.Request.Context(), fn.ID, req.RunID, req.Event)
	if err != nil {
		handleError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, struct {
		Success bool `json:"success"`
		*orchestrator.RunResult
	}{
		Success:   run.Result != nil && run.Result.Success,
		RunResult: run,
	})
}
