package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/exambot/internal/middleware"
	"github.com/stemsi/exambot/internal/model"
	"github.com/stemsi/exambot/internal/response"
	"github.com/stemsi/exambot/internal/validator"
)

// MessageHandler accepts chat messages relayed by a gateway over HTTP.
type MessageHandler struct {
	chat    ChatService
	limiter *middleware.RateLimiter
	log     zerolog.Logger
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(chat ChatService, limiter *middleware.RateLimiter, log zerolog.Logger) *MessageHandler {
	return &MessageHandler{
		chat:    chat,
		limiter: limiter,
		log:     log.With().Str("component", "message_handler").Logger(),
	}
}

// PostMessage godoc
// POST /api/v1/channels/:channel_id/messages
// Routes a command or answer and returns the bot's reply, if any.
func (h *MessageHandler) PostMessage(c *gin.Context) {
	channelID, ok := snowflakeParam(c, "channel_id")
	if !ok {
		return
	}

	var req model.PostMessageRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if h.limiter != nil && !h.limiter.Allow("user:"+req.UserID) {
		response.Fail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
		return
	}

	reply, err := h.chat.HandleMessage(c.Request.Context(), model.ChatMessage{
		ChannelID: channelID,
		UserID:    req.UserID,
		Content:   req.Content,
	})
	if err != nil {
		failSession(c, h.log, err, reply.Reply)
		return
	}
	response.Success(c, http.StatusOK, reply)
}
