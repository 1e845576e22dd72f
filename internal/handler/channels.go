package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yt-automation/shorts-dashboard-go/internal/models"
	"github.com/yt-automation/shorts-dashboard-go/internal/service"
)

// ChannelHandler serves /api/channels.
type ChannelHandler struct {
	channels *service.ChannelService
}

// NewChannelHandler creates a new ChannelHandler instance.
func NewChannelHandler(channels *service.ChannelService) *ChannelHandler {
	return &ChannelHandler{channels: channels}
}

// List handles GET /api/channels.
func (h *ChannelHandler) List(c *gin.Context) {
	result, err := h.channels.List(c.Request.Context())
	if err != nil {
		handleError(c, err, "Failed to get channels")
		return
	}
	h.respond(c, result)
}

// Apply handles POST /api/channels.
func (h *ChannelHandler) Apply(c *gin.Context) {
	var req models.ChannelActionRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.channels.Apply(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err, "Failed to update channels")
		return
	}
	h.respond(c, result)
}

func (h *ChannelHandler) respond(c *gin.Context, result *service.ChannelResult) {
	if result.Raw != nil {
		relay(c, result.Raw)
		return
	}

	body := gin.H{"success": true}
	if result.Channels != nil {
		body["channels"] = result.Channels
	}
	if result.Channel != nil {
		body["channel"] = result.Channel
	}
	if result.Message != "" {
		body["message"] = result.Message
	}
	c.JSON(http.StatusOK, body)
}
