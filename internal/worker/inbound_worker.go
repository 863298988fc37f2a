package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/exambot/internal/config"
	"github.com/stemsi/exambot/internal/model"
	"github.com/stemsi/exambot/internal/session"
	ws "github.com/stemsi/exambot/internal/websocket"
)

const (
	InboundPollTimeout = 1 * time.Second
	InboundMaxAttempts = 3
)

// MessageHandler is implemented by service.ChatService.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg model.ChatMessage) (model.ChatReply, error)
}

// ReplyPublisher delivers bot replies back to the gateway's channel feed.
type ReplyPublisher interface {
	Publish(ctx context.Context, channelID string, ev ws.FeedEvent) error
}

// InboundWorker consumes chat messages a gateway process RPUSHes onto
// exam_inbound_queue. Messages are handled one at a time, in queue order.
type InboundWorker struct {
	rdb     *redis.Client
	handler MessageHandler
	replies ReplyPublisher
	log     zerolog.Logger
}

func NewInboundWorker(rdb *redis.Client, handler MessageHandler, replies ReplyPublisher, log zerolog.Logger) *InboundWorker {
	return &InboundWorker{
		rdb:     rdb,
		handler: handler,
		replies: replies,
		log:     log.With().Str("component", "inbound_worker").Logger(),
	}
}

type inboundPayload struct {
	model.ChatMessage
	Attempts int `json:"attempts,omitempty"`
}

type disposition int

const (
	dispositionDone disposition = iota
	dispositionRetry
	dispositionDeadLetter
)

// ----------------------------------------------------------------
// Worker loop
// ----------------------------------------------------------------

func (w *InboundWorker) Start(ctx context.Context) {
	w.log.Info().Msg("InboundWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("InboundWorker stopped")
			return

		default:
			item, err := w.rdb.BLPop(ctx, InboundPollTimeout, config.WorkerKey.InboundMessagesQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}
			if len(item) < 2 {
				continue
			}

			p, d := w.handle(ctx, item[1])
			w.settle(ctx, p, d)
		}
	}
}

// handle decodes and routes one raw queue item.
func (w *InboundWorker) handle(ctx context.Context, raw string) (*inboundPayload, disposition) {
	var p inboundPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		w.log.Error().Err(err).Msg("Invalid JSON payload")
		return nil, dispositionDone
	}
	if p.ChannelID == "" || p.UserID == "" {
		w.log.Warn().Msg("Inbound message without channel or user, skipping")
		return &p, dispositionDone
	}

	reply, err := w.handler.HandleMessage(ctx, p.ChatMessage)
	if err != nil && !session.IsDomainError(err) {
		w.log.Warn().
			Err(err).
			Str("channel_id", p.ChannelID).
			Str("user_id", p.UserID).
			Int("attempts", p.Attempts+1).
			Msg("Inbound message failed")
		if p.Attempts+1 >= InboundMaxAttempts {
			return &p, dispositionDeadLetter
		}
		return &p, dispositionRetry
	}

	if reply.Reply != "" && w.replies != nil {
		ev := ws.FeedEvent{
			Event:     ws.EventReply,
			ChannelID: p.ChannelID,
			UserID:    p.UserID,
			Text:      reply.Reply,
			Timestamp: time.Now().UTC(),
		}
		if err := w.replies.Publish(ctx, p.ChannelID, ev); err != nil {
			w.log.Error().Err(err).Str("channel_id", p.ChannelID).Msg("Failed to publish reply")
		}
	}
	return &p, dispositionDone
}

func (w *InboundWorker) settle(ctx context.Context, p *inboundPayload, d disposition) {
	queue, raw, err := requeueItem(p, d)
	if err != nil {
		w.log.Error().Err(err).Str("queue", queue).Msg("Failed to encode message for requeue, message lost")
		return
	}
	if queue == "" {
		return
	}
	if err := w.rdb.RPush(ctx, queue, raw).Err(); err != nil {
		w.log.Error().Err(err).Str("queue", queue).Msg("Requeue failed, message lost")
	}
}

// requeueItem picks the queue for a retry or dead letter and encodes p with
// its attempt count bumped. The queue is empty when d needs no requeue.
func requeueItem(p *inboundPayload, d disposition) (string, []byte, error) {
	var queue string
	switch d {
	case dispositionRetry:
		queue = config.WorkerKey.InboundMessagesQueue
	case dispositionDeadLetter:
		queue = config.WorkerKey.InboundDeadLetterQueue
	default:
		return "", nil, nil
	}
	if p == nil {
		return queue, nil, errors.New("no payload to requeue")
	}

	p.Attempts++
	raw, err := json.Marshal(p)
	if err != nil {
		return queue, nil, fmt.Errorf("encode payload: %w", err)
	}
	return queue, raw, nil
}
