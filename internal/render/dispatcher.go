package render

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/stemsi/exambot/internal/session"
)

// ErrRenderingFailure wraps every error a renderer returns to the dispatcher.
var ErrRenderingFailure = errors.New("rendering failure")

// Dispatcher is the session.Notifier used in production. Events are queued on
// a buffered channel and rendered in order by one goroutine, so the tick loop
// never waits on a renderer. A full queue drops the event.
type Dispatcher struct {
	renderer session.Renderer
	queue    chan session.Event
	log      zerolog.Logger

	dropped  atomic.Int64
	failures atomic.Int64
}

// NewDispatcher creates a Dispatcher. Call Run to start rendering.
func NewDispatcher(r session.Renderer, buffer int, log zerolog.Logger) *Dispatcher {
	if buffer < 1 {
		buffer = 1
	}
	return &Dispatcher{
		renderer: r,
		queue:    make(chan session.Event, buffer),
		log:      log.With().Str("component", "render_dispatcher").Logger(),
	}
}

// Notify implements session.Notifier. It never blocks.
func (d *Dispatcher) Notify(events ...session.Event) {
	for _, ev := range events {
		select {
		case d.queue <- ev:
		default:
			d.dropped.Add(1)
			d.log.Warn().
				Str("event", ev.Kind.String()).
				Str("session_id", ev.Session.ID.String()).
				Msg("Render queue full, dropping event")
		}
	}
}

// Run renders queued events until ctx is cancelled, then renders whatever is
// still queued with a fresh context so final results are not lost.
func (d *Dispatcher) Run(ctx context.Context) {
	d.log.Info().Int("buffer", cap(d.queue)).Msg("Render dispatcher started")

	for {
		select {
		case <-ctx.Done():
			d.drain()
			d.log.Info().Msg("Render dispatcher stopped")
			return
		case ev := <-d.queue:
			d.render(ctx, ev)
		}
	}
}

func (d *Dispatcher) drain() {
	ctx := context.Background()
	for {
		select {
		case ev := <-d.queue:
			d.render(ctx, ev)
		default:
			return
		}
	}
}

func (d *Dispatcher) render(ctx context.Context, ev session.Event) {
	if err := ev.Apply(ctx, d.renderer); err != nil {
		d.failures.Add(1)
		d.log.Error().
			Err(fmt.Errorf("%w: %w", ErrRenderingFailure, err)).
			Str("event", ev.Kind.String()).
			Str("session_id", ev.Session.ID.String()).
			Str("channel_id", string(ev.Session.ChannelID)).
			Msg("Render failed")
	}
}

// Dropped counts events discarded because the queue was full.
func (d *Dispatcher) Dropped() int64 { return d.dropped.Load() }

// Failures counts renderer errors.
func (d *Dispatcher) Failures() int64 { return d.failures.Load() }

// Pending is the number of queued events.
func (d *Dispatcher) Pending() int { return len(d.queue) }
