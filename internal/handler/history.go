package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yt-automation/shorts-dashboard-go/internal/models"
	"github.com/yt-automation/shorts-dashboard-go/internal/repository"
	"github.com/yt-automation/shorts-dashboard-go/internal/service"
)

// HistoryHandler serves the upload history.
type HistoryHandler struct {
	history repository.HistoryRepository
}

// NewHistoryHandler creates a new HistoryHandler instance. A nil history
// answers every request with an empty page.
func NewHistoryHandler(history repository.HistoryRepository) *HistoryHandler {
	return &HistoryHandler{history: history}
}

// List handles GET /api/history.
func (h *HistoryHandler) List(c *gin.Context) {
	limit, ok := queryInt(c, "limit", defaultHistoryLimit)
	if !ok || limit <= 0 {
		respondError(c, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	offset, ok := queryInt(c, "offset", 0)
	if !ok || offset < 0 {
		respondError(c, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}

	filter := models.HistoryFilter{
		ChannelID: c.Query("channelId"),
		Limit:     limit,
		Offset:    offset,
	}

	if h.history == nil {
		c.JSON(http.StatusOK, models.HistoryResponse{
			Success: true,
			History: []*models.UploadHistory{},
			Limit:   limit,
			Offset:  offset,
		})
		return
	}

	ctx := c.Request.Context()
	records, err := h.history.List(ctx, filter)
	if err != nil {
		handleError(c, &service.ProcessingError{Message: "failed to list history", Cause: err}, "Failed to get history")
		return
	}
	total, err := h.history.Count(ctx, filter)
	if err != nil {
		handleError(c, &service.ProcessingError{Message: "failed to count history", Cause: err}, "Failed to get history")
		return
	}

	if records == nil {
		records = []*models.UploadHistory{}
	}

	c.JSON(http.StatusOK, models.HistoryResponse{
		Success: true,
		History: records,
		Count:   len(records),
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}
