package render

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stemsi/exambot/internal/config"
	"github.com/stemsi/exambot/internal/exam"
	"github.com/stemsi/exambot/internal/session"
	ws "github.com/stemsi/exambot/internal/websocket"
)

// Publisher delivers feed events for one chat channel.
type Publisher interface {
	Publish(ctx context.Context, channelID string, ev ws.FeedEvent) error
}

// FeedRenderer renders session events as ws.FeedEvent values and hands them
// to a Publisher.
type FeedRenderer struct {
	pub Publisher
	now func() time.Time
}

func NewFeedRenderer(pub Publisher) *FeedRenderer {
	return &FeedRenderer{pub: pub, now: time.Now}
}

func (f *FeedRenderer) base(kind ws.Event, s session.Info, text string) ws.FeedEvent {
	return ws.FeedEvent{
		Event:     kind,
		SessionID: s.ID.String(),
		ChannelID: string(s.ChannelID),
		UserID:    string(s.UserID),
		Text:      text,
		Timestamp: f.now().UTC(),
	}
}

func (f *FeedRenderer) publish(ctx context.Context, ev ws.FeedEvent) error {
	return f.pub.Publish(ctx, ev.ChannelID, ev)
}

func (f *FeedRenderer) OnSessionStart(ctx context.Context, s session.Info) error {
	return f.publish(ctx, f.base(ws.EventSessionStart, s, FormatSessionStart(s)))
}

func (f *FeedRenderer) OnQuestion(ctx context.Context, s session.Info, q exam.Question) error {
	ev := f.base(ws.EventQuestion, s, FormatQuestion(s, q))
	ev.Question = q.Question
	idx := s.CurrentIndex
	ev.Index = &idx
	return f.publish(ctx, ev)
}

func (f *FeedRenderer) OnTimeout(ctx context.Context, s session.Info, q exam.Question) error {
	ev := f.base(ws.EventTimeout, s, FormatTimeout(q))
	ev.Question = q.Question
	return f.publish(ctx, ev)
}

func (f *FeedRenderer) OnAnswerGraded(ctx context.Context, s session.Info, q exam.Question, a exam.Answer) error {
	ev := f.base(ws.EventAnswer, s, FormatAnswer(q, a))
	ev.Question = q.Question
	return f.publish(ctx, ev)
}

func (f *FeedRenderer) OnSessionEnd(ctx context.Context, s session.Info, score exam.ExamScore) error {
	ev := f.base(ws.EventSessionEnd, s, FormatSessionEnd(s, score))
	ev.Score = &score.Score
	ev.Passed = &score.Passed
	return f.publish(ctx, ev)
}

// RedisPublisher publishes feed events as JSON on channel:<id>:exam_feed.
type RedisPublisher struct {
	rdb *redis.Client
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) Publish(ctx context.Context, channelID string, ev ws.FeedEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal feed event: %w", err)
	}
	return p.rdb.Publish(ctx, config.CacheKey.ChannelFeedChannel(channelID), data).Err()
}
