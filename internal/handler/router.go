package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yt-automation/shorts-dashboard-go/internal/middleware"
)

// Handlers groups every route handler the router mounts.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Handlers struct {
	Account      *AccountHandler
	Channels     *ChannelHandler
	Config       *ConfigHandler
	Content      *ContentHandler
	History      *HistoryHandler
	Stats        *StatsHandler
	Upload       *UploadHandler
	Orchestrator *OrchestratorHandler
	Health       *HealthHandler
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

// RouterOptions carries the middleware settings of the router.
type RouterOptions struct {
	CronSecret        string
	SigningKey        string
	RequestsPerMinute float64
	Burst             int
}

// NewRouter mounts every route on a new gin engine.
func NewRouter(h *Handlers, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery(), middleware.RequestLogger())
	r.NoMethod(func(c *gin.Context) {
		respondError(c, http.StatusMethodNotAllowed, "Method not allowed")
	})
	r.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, "Not found")
	})

	limit := middleware.NewRateLimiter(opts.RequestsPerMinute, opts.Burst).Middleware()

	r.GET("/health", h.Health.Check)
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics))
	}

	api := r.Group("/api")
	{
		api.GET("/account", h.Account.TokenInfo)
		api.POST("/account", h.Account.Apply)
		api.GET("/accounts", h.Account.List)

		api.GET("/channels", h.Channels.List)
		api.POST("/channels", h.Channels.Apply)

		api.GET("/config", h.Config.Get)
		api.POST("/config", h.Config.Update)

		api.GET("/history", h.History.List)
		api.GET("/stats", h.Stats.Get)

		api.GET("/metadata", h.Content.Trending)
		api.POST("/metadata", h.Content.Generate)
		api.GET("/videos", h.Content.Videos)

		api.POST("/upload", limit, h.Upload.Upload)
		api.GET("/cron", limit, middleware.CronSecretAuth(opts.CronSecret), h.Upload.Cron)

		inngest := api.Group("/inngest", middleware.SignedRequestAuth(opts.SigningKey))
		inngest.GET("", h.Orchestrator.Describe)
		inngest.PUT("", h.Orchestrator.Sync)
		inngest.POST("", limit, h.Orchestrator.Invoke)
	}

	return r
}
