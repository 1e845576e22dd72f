package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yt-automation/shorts-dashboard-go/internal/config"
	"github.com/yt-automation/shorts-dashboard-go/internal/models"
	"github.com/yt-automation/shorts-dashboard-go/internal/service"
	"github.com/yt-automation/shorts-dashboard-go/pkg/logger"
	"go.uber.org/zap"
)

// Uploader runs an upload cycle. *service.UploadService implements it.
type Uploader interface {
	Upload(ctx context.Context, req models.UploadRequest, source, runID string) (*models.UploadResult, error)
}

// UploadHandler serves the manual and cron upload triggers.
type UploadHandler struct {
	uploads Uploader
	cfg     config.UploadConfig
	now     func() time.Time
}

// NewUploadHandler creates a new UploadHandler instance.
func NewUploadHandler(uploads Uploader, cfg config.UploadConfig) *UploadHandler {
	return &UploadHandler{
		uploads: uploads,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Upload handles POST /api/upload. An empty body uploads the next video.
func (h *UploadHandler) Upload(c *gin.Context) {
	if !h.cfg.Enabled {
		respondError(c, http.StatusBadRequest, h.cfg.DisabledMessage)
		return
	}

	var req models.UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		rejectPayload(c, err)
		return
	}

	result, err := h.uploads.Upload(c.Request.Context(), req, service.SourceDashboard, "")
	if err != nil {
		handleError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, result)
}

// Cron handles GET /api/cron: one upload of the next video.
func (h *UploadHandler) Cron(c *gin.Context) {
	result, err := h.uploads.Upload(c.Request.Context(), models.UploadRequest{}, service.SourceCron, "")
	if err != nil {
		var validationErr *service.ValidationError
		status := http.StatusInternalServerError
		if errors.As(err, &validationErr) {
			status = http.StatusBadRequest
		}

		logger.Log.Error("Cron upload failed", zap.Error(err))
		c.JSON(status, gin.H{
			"success":   false,
			"error":     err.Error(),
			"timestamp": h.now().UTC(),
		})
		return
	}

	message := result.Error
	if result.Success {
		message = "Uploaded: " + result.FileName
	}

	logger.Log.Info("Cron upload finished",
		zap.Bool("success", result.Success),
		zap.String("videoId", result.VideoID),
	)

	c.JSON(http.StatusOK, models.CronResponse{
		Success:    result.Success,
		Message:    message,
		VideoID:    result.VideoID,
		FileName:   result.FileName,
		YouTubeURL: result.YouTubeURL,
		Timestamp:  h.now().UTC(),
	})
}
