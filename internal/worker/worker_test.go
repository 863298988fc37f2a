package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exambot/internal/config"
	"github.com/stemsi/exambot/internal/model"
	"github.com/stemsi/exambot/internal/session"
	ws "github.com/stemsi/exambot/internal/websocket"
)

type countingSweeper struct{ n atomic.Int64 }

func (c *countingSweeper) Sweep() []session.Event {
	c.n.Add(1)
	return nil
}

func TestTickWorkerSweepsUntilCancelled(t *testing.T) {
	s := &countingSweeper{}
	w := NewTickWorker(s, 5*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return s.n.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("TickWorker did not stop")
	}
}

type stubHandler struct {
	reply model.ChatReply
	err   error
	got   []model.ChatMessage
}

func (s *stubHandler) HandleMessage(_ context.Context, msg model.ChatMessage) (model.ChatReply, error) {
	s.got = append(s.got, msg)
	return s.reply, s.err
}

type capturePublisher struct{ events []ws.FeedEvent }

func (c *capturePublisher) Publish(_ context.Context, _ string, ev ws.FeedEvent) error {
	c.events = append(c.events, ev)
	return nil
}

func TestInboundHandleRoutesAndReplies(t *testing.T) {
	h := &stubHandler{reply: model.ChatReply{Reply: "Available exams: hsk1"}}
	pub := &capturePublisher{}
	w := NewInboundWorker(nil, h, pub, zerolog.Nop())

	p, d := w.handle(context.Background(), `{"channel_id":"100","user_id":"7","content":"!exam list"}`)
	assert.Equal(t, dispositionDone, d)
	require.NotNil(t, p)
	assert.Equal(t, []model.ChatMessage{{ChannelID: "100", UserID: "7", Content: "!exam list"}}, h.got)

	require.Len(t, pub.events, 1)
	assert.Equal(t, ws.EventReply, pub.events[0].Event)
	assert.Equal(t, "Available exams: hsk1", pub.events[0].Text)
}

func TestInboundHandleSkipsGarbage(t *testing.T) {
	h := &stubHandler{}
	w := NewInboundWorker(nil, h, nil, zerolog.Nop())

	_, d := w.handle(context.Background(), `not json`)
	assert.Equal(t, dispositionDone, d)
	_, d = w.handle(context.Background(), `{"content":"hi"}`)
	assert.Equal(t, dispositionDone, d)
	assert.Empty(t, h.got)
}

func TestInboundHandleRetriesTransientErrors(t *testing.T) {
	h := &stubHandler{err: errors.New("redis timeout")}
	w := NewInboundWorker(nil, h, nil, zerolog.Nop())
	ctx := context.Background()

	_, d := w.handle(ctx, `{"channel_id":"100","user_id":"7","content":"!exam start"}`)
	assert.Equal(t, dispositionRetry, d)

	_, d = w.handle(ctx, `{"channel_id":"100","user_id":"7","content":"!exam start","attempts":2}`)
	assert.Equal(t, dispositionDeadLetter, d)
}

func TestInboundHandleDoesNotRetryDomainErrors(t *testing.T) {
	h := &stubHandler{
		reply: model.ChatReply{Reply: "Someone is already taking an exam here."},
		err:   session.ErrSessionBusy,
	}
	pub := &capturePublisher{}
	w := NewInboundWorker(nil, h, pub, zerolog.Nop())

	_, d := w.handle(context.Background(), `{"channel_id":"100","user_id":"7","content":"!exam start"}`)
	assert.Equal(t, dispositionDone, d)
	assert.Len(t, pub.events, 1)
}

func TestRequeueItem(t *testing.T) {
	msg := model.ChatMessage{ChannelID: "100", UserID: "7", Content: "!exam start"}

	queue, raw, err := requeueItem(&inboundPayload{ChatMessage: msg}, dispositionRetry)
	require.NoError(t, err)
	assert.Equal(t, config.WorkerKey.InboundMessagesQueue, queue)
	var got inboundPayload
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, msg, got.ChatMessage)
	assert.Equal(t, 1, got.Attempts)

	queue, _, err = requeueItem(&inboundPayload{ChatMessage: msg, Attempts: 2}, dispositionDeadLetter)
	require.NoError(t, err)
	assert.Equal(t, config.WorkerKey.InboundDeadLetterQueue, queue)

	queue, raw, err = requeueItem(nil, dispositionDone)
	require.NoError(t, err)
	assert.Empty(t, queue)
	assert.Nil(t, raw)
}

func TestSettleLogsEncodeFailure(t *testing.T) {
	var buf bytes.Buffer
	w := NewInboundWorker(nil, &stubHandler{}, nil, zerolog.New(&buf))

	// A nil client would panic if settle went on to push.
	w.settle(context.Background(), nil, dispositionRetry)

	assert.Contains(t, buf.String(), "Failed to encode message for requeue")
	assert.Contains(t, buf.String(), config.WorkerKey.InboundMessagesQueue)
}
