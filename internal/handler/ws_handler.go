package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/stemsi/exambot/internal/middleware"
	"github.com/stemsi/exambot/internal/model"
	"github.com/stemsi/exambot/internal/session"
	"github.com/stemsi/exambot/internal/validator"
	ws "github.com/stemsi/exambot/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allow-list permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler lets a user take exams over a WebSocket: their messages go in,
// the channel's session feed and their own replies come out.
type WSHandler struct {
	chat     ChatService
	hub      *ws.Hub
	limiter  *middleware.RateLimiter
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(chat ChatService, hub *ws.Hub, limiter *middleware.RateLimiter, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		chat:     chat,
		hub:      hub,
		limiter:  limiter,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// ChannelStream godoc
// WS /ws/v1/channels/:channel_id?user_id=
func (h *WSHandler) ChannelStream(c *gin.Context) {
	channelID, ok := snowflakeParam(c, "channel_id")
	if !ok {
		return
	}
	userID := c.Query("user_id")
	if !validator.IsSnowflake(userID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	ws.ExtendOnPong(conn)
	client := ws.NewClient(conn, channelID, userID)
	h.hub.Register(client)
	defer h.hub.Unregister(client)
	go client.WritePump()

	wsLog := h.log.With().
		Str("channel_id", channelID).
		Str("user_id", userID).
		Logger()
	wsLog.Info().Msg("Client connected")

	for {
		var msg ws.MessageRequest
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionMessage:
			h.handleMessage(c, wsLog, client, msg.Content)
		case ws.ActionPing:
			client.Send(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			client.Send(ws.ErrorResponse{Event: ws.EventError, Error: "unknown action: " + string(msg.Action)})
		}
	}
}

func (h *WSHandler) handleMessage(c *gin.Context, log zerolog.Logger, client *ws.Client, content string) {
	if h.limiter != nil && !h.limiter.Allow("user:"+client.UserID) {
		client.Send(ws.ErrorResponse{Event: ws.EventError, Error: "rate limit exceeded"})
		return
	}

	reply, err := h.chat.HandleMessage(c.Request.Context(), model.ChatMessage{
		ChannelID: client.ChannelID,
		UserID:    client.UserID,
		Content:   content,
	})
	if err != nil && !session.IsDomainError(err) {
		log.Error().Err(err).Msg("Message handling failed")
		client.Send(ws.ErrorResponse{Event: ws.EventError, Error: "internal error"})
		return
	}

	resp := ws.ReplyResponse{Event: ws.EventReply, Text: reply.Reply}
	if reply.Graded != nil {
		correct := reply.Graded.Correct
		resp.Correct = &correct
	}
	if resp.Text == "" && resp.Correct == nil {
		return
	}
	if err := client.Send(resp); err != nil {
		log.Warn().Err(err).Msg("Reply dropped")
	}
}
