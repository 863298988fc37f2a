package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/exambot/internal/config"
	"github.com/stemsi/exambot/internal/session"
)

const keepAliveInterval = 15 * time.Second

// FeedHandler streams a channel's session events over SSE. Events arrive
// through Redis Pub/Sub, so any replica can serve the stream.
type FeedHandler struct {
	rdb      *redis.Client
	sessions SessionRegistry
	log      zerolog.Logger
}

// NewFeedHandler creates a new FeedHandler.
func NewFeedHandler(rdb *redis.Client, sessions SessionRegistry, log zerolog.Logger) *FeedHandler {
	return &FeedHandler{
		rdb:      rdb,
		sessions: sessions,
		log:      log.With().Str("component", "feed_handler").Logger(),
	}
}

// ChannelFeedSSE godoc
// GET /api/v1/channels/:channel_id/feed
func (h *FeedHandler) ChannelFeedSSE(c *gin.Context) {
	channelID, ok := snowflakeParam(c, "channel_id")
	if !ok {
		return
	}
	if h.rdb == nil {
		response503(c)
		return
	}

	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.SSEvent("message", gin.H{
		"event":    "snapshot",
		"sessions": h.channelSessions(channelID),
	})
	c.Writer.Flush()

	pubsub := h.rdb.Subscribe(reqCtx, config.CacheKey.ChannelFeedChannel(channelID))
	defer pubsub.Close()
	ch := pubsub.Channel()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	pingPayload, _ := json.Marshal(map[string]string{"event": "ping"})

	h.log.Info().Str("channel_id", channelID).Msg("Feed subscriber attached")

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Str("channel_id", channelID).Msg("Feed subscriber detached")
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			c.Writer.Write([]byte("data: "))
			c.Writer.Write([]byte(msg.Payload))
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()

		case <-keepAlive.C:
			c.Writer.Write([]byte("data: "))
			c.Writer.Write(pingPayload)
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		}
	}
}

func (h *FeedHandler) channelSessions(channelID string) []session.Info {
	out := []session.Info{}
	for _, info := range h.sessions.Snapshot() {
		if string(info.ChannelID) == channelID {
			out = append(out, info)
		}
	}
	return out
}

func response503(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "feed unavailable"})
}
