package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/exambot/internal/model"
	"github.com/stemsi/exambot/internal/response"
	"github.com/stemsi/exambot/internal/session"
	"github.com/stemsi/exambot/internal/validator"
)

// SessionHandler starts, quits and lists exam sessions directly.
type SessionHandler struct {
	chat     ChatService
	sessions SessionRegistry
	log      zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(chat ChatService, sessions SessionRegistry, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		chat:     chat,
		sessions: sessions,
		log:      log.With().Str("component", "session_handler").Logger(),
	}
}

// Start godoc
// POST /api/v1/channels/:channel_id/sessions
func (h *SessionHandler) Start(c *gin.Context) {
	channelID, ok := snowflakeParam(c, "channel_id")
	if !ok {
		return
	}

	var req model.StartSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	info, err := h.chat.StartSession(c.Request.Context(),
		session.ChannelID(channelID), session.UserID(req.UserID), req.Exam, req.Practice)
	if err != nil {
		failSession(c, h.log, err, "")
		return
	}
	response.Success(c, http.StatusCreated, info)
}

// Quit godoc
// DELETE /api/v1/users/:user_id/session
// The session ends, and its result is published, on the next tick.
func (h *SessionHandler) Quit(c *gin.Context) {
	userID, ok := snowflakeParam(c, "user_id")
	if !ok {
		return
	}
	if err := h.sessions.Quit(session.UserID(userID)); err != nil {
		failSession(c, h.log, err, "")
		return
	}
	response.Success(c, http.StatusAccepted, gin.H{"status": "quitting"})
}

// List godoc
// GET /api/v1/sessions
func (h *SessionHandler) List(c *gin.Context) {
	response.Success(c, http.StatusOK, h.sessions.Snapshot())
}
