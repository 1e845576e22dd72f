package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yt-automation/shorts-dashboard-go/internal/service"
)

// StatsHandler serves the dashboard counters.
type StatsHandler struct {
	stats *service.StatsService
}

// NewStatsHandler creates a new StatsHandler instance.
func NewStatsHandler(stats *service.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// Get handles GET /api/stats.
func (h *StatsHandler) Get(c *gin.Context) {
	result, err := h.stats.Stats(c.Request.Context())
	if err != nil {
		handleError(c, err, "Failed to get stats")
		return
	}

	c.JSON(http.StatusOK, struct {
		Success bool `json:"success"`
		*service.StatsResult
	}{
		Success:     true,
		StatsResult: result,
	})
}
