package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yt-automation/shorts-dashboard-go/internal/config"
	"github.com/yt-automation/shorts-dashboard-go/internal/models"
	"github.com/yt-automation/shorts-dashboard-go/internal/service"
)

// ContentHandler serves the pending video list and the metadata helpers.
type ContentHandler struct {
	content *service.ContentService
	videos  config.VideosConfig
}

// NewContentHandler creates a new ContentHandler instance.
func NewContentHandler(content *service.ContentService, videos config.VideosConfig) *ContentHandler {
	return &ContentHandler{content: content, videos: videos}
}

// Videos handles GET /api/videos.
func (h *ContentHandler) Videos(c *gin.Context) {
	if !h.videos.Enabled {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"videos":  []interface{}{},
			"message": h.videos.DisabledMessage,
		})
		return
	}

	def := h.videos.DefaultLimit
	if def <= 0 {
		def = defaultVideoLimit
	}
	limit, ok := queryInt(c, "limit", def)
	if !ok {
		respondError(c, http.StatusBadRequest, "limit must be an integer")
		return
	}

	raw, err := h.content.Videos(c.Request.Context(), limit)
	if err != nil {
		handleError(c, err, "Failed to get videos")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"videos":  raw,
	})
}

// Trending handles GET /api/metadata.
func (h *ContentHandler) Trending(c *gin.Context) {
	data, err := h.content.Trending(c.Request.Context())
	if err != nil {
		handleError(c, err, "Failed to get trending metadata")
		return
	}

	body := gin.H{"success": true}
	for k, v := range data {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// Generate handles POST /api/metadata.
func (h *ContentHandler) Generate(c *gin.Context) {
	var req models.MetadataRequest
	if !bindJSON(c, &req) {
		return
	}

	raw, err := h.content.Generate(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err, "Failed to generate metadata")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"metadata": raw,
	})
}
