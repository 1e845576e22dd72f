package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yt-automation/shorts-dashboard-go/internal/models"
	"github.com/yt-automation/shorts-dashboard-go/internal/service"
)

// ConfigHandler serves the default upload settings.
type ConfigHandler struct {
	settings *service.SettingsService
}

// NewConfigHandler creates a new ConfigHandler instance.
func NewConfigHandler(settings *service.SettingsService) *ConfigHandler {
	return &ConfigHandler{settings: settings}
}

// Get handles GET /api/config.
func (h *ConfigHandler) Get(c *gin.Context) {
	cfg, err := h.settings.Get(c.Request.Context())
	if err != nil {
		handleError(c, err, "Failed to get config")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"config":  cfg,
	})
}

// Update handles POST /api/config.
func (h *ConfigHandler) Update(c *gin.Context) {
	var req models.ConfigUpdateRequest
	if !bindJSON(c, &req) {
		return
	}

	message, err := h.settings.Update(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err, "Failed to update config")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
	})
}
