package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/stemsi/exambot/internal/config"
	"github.com/stemsi/exambot/internal/handler"
	"github.com/stemsi/exambot/internal/middleware"
	"github.com/stemsi/exambot/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Exam    *handler.ExamHandler
	Message *handler.MessageHandler
	Session *handler.SessionHandler
	Feed    *handler.FeedHandler
	WS      *handler.WSHandler
	Health  *handler.HealthHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// apiLimiter throttles the REST API per client IP, and session routes per
// channel or user.
func SetupRouter(handlers *Handlers, apiLimiter *middleware.RateLimiter, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// Restrict to AllowedOrigins when set; allow all otherwise.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())

	router.GET("/health", handlers.Health.Health)

	api := router.Group("/api/v1")
	api.Use(apiLimiter.Middleware(middleware.ByClientIP))

	// ─── 1. Exam Catalog ───────────────────────────────────────────────
	exams := api.Group("/exams")
	exams.Use(middleware.Brotli(), middleware.CacheControl(time.Minute))
	{
		exams.GET("", handlers.Exam.List)
		exams.GET("/:name", handlers.Exam.Get)
	}

	// ─── 2. Channels ───────────────────────────────────────────────────
	channels := api.Group("/channels/:channel_id")
	{
		channels.POST("/messages", handlers.Message.PostMessage)
		channels.POST("/sessions", apiLimiter.Middleware(middleware.ByParam("channel_id")), handlers.Session.Start)
		channels.GET("/feed", handlers.Feed.ChannelFeedSSE)
	}

	// ─── 3. Sessions ───────────────────────────────────────────────────
	api.GET("/sessions", handlers.Session.List)
	api.DELETE("/users/:user_id/session", apiLimiter.Middleware(middleware.ByParam("user_id")), handlers.Session.Quit)

	// ─── 4. WebSocket ──────────────────────────────────────────────────
	ws := router.Group("/ws/v1")
	{
		ws.GET("/channels/:channel_id", handlers.WS.ChannelStream)
	}

	router.NoRoute(func(c *gin.Context) {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	})

	return router
}
