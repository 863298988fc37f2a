package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/exambot/internal/session"
)

// Sweeper advances every active session by one tick.
type Sweeper interface {
	Sweep() []session.Event
}

// TickWorker drives all exam sessions on a fixed wall-clock interval.
// Countdowns are in tick units, so a slow sweep delays every session equally.
type TickWorker struct {
	sweeper  Sweeper
	interval time.Duration
	log      zerolog.Logger
}

func NewTickWorker(sweeper Sweeper, interval time.Duration, log zerolog.Logger) *TickWorker {
	return &TickWorker{
		sweeper:  sweeper,
		interval: interval,
		log:      log.With().Str("component", "tick_worker").Logger(),
	}
}

// Start blocks until ctx is cancelled.
func (w *TickWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("TickWorker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("TickWorker stopped")
			return
		case <-ticker.C:
			w.tick()
		}
	}
}

func (w *TickWorker) tick() {
	start := time.Now()
	events := w.sweeper.Sweep()

	if elapsed := time.Since(start); elapsed > w.interval {
		w.log.Warn().
			Dur("elapsed", elapsed).
			Int("events", len(events)).
			Msg("Sweep overran the tick interval")
	}
}
