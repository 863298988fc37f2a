package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RenderStats is implemented by render.Dispatcher.
type RenderStats interface {
	Pending() int
	Dropped() int64
	Failures() int64
}

// HealthHandler reports liveness plus a few engine gauges.
type HealthHandler struct {
	sessions SessionRegistry
	render   RenderStats
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(sessions SessionRegistry, render RenderStats) *HealthHandler {
	return &HealthHandler{sessions: sessions, render: render}
}

// Health godoc
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	body := gin.H{
		"status":          "ok",
		"active_sessions": len(h.sessions.Snapshot()),
	}
	if h.render != nil {
		body["render_pending"] = h.render.Pending()
		body["render_dropped"] = h.render.Dropped()
		body["render_failures"] = h.render.Failures()
	}
	c.JSON(http.StatusOK, body)
}
