package render

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/stemsi/exambot/internal/exam"
	"github.com/stemsi/exambot/internal/session"
)

// Fanout calls every renderer in order. All of them run even if one fails.
type Fanout []session.Renderer

func (f Fanout) each(fn func(session.Renderer) error) error {
	var errs []error
	for _, r := range f {
		if err := fn(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) OnSessionStart(ctx context.Context, s session.Info) error {
	return f.each(func(r session.Renderer) error { return r.OnSessionStart(ctx, s) })
}

func (f Fanout) OnQuestion(ctx context.Context, s session.Info, q exam.Question) error {
	return f.each(func(r session.Renderer) error { return r.OnQuestion(ctx, s, q) })
}

func (f Fanout) OnTimeout(ctx context.Context, s session.Info, q exam.Question) error {
	return f.each(func(r session.Renderer) error { return r.OnTimeout(ctx, s, q) })
}

func (f Fanout) OnAnswerGraded(ctx context.Context, s session.Info, q exam.Question, a exam.Answer) error {
	return f.each(func(r session.Renderer) error { return r.OnAnswerGraded(ctx, s, q, a) })
}

func (f Fanout) OnSessionEnd(ctx context.Context, s session.Info, score exam.ExamScore) error {
	return f.each(func(r session.Renderer) error { return r.OnSessionEnd(ctx, s, score) })
}

// LogRenderer writes every event to the log at debug level, and results at info.
type LogRenderer struct {
	log zerolog.Logger
}

func NewLogRenderer(log zerolog.Logger) *LogRenderer {
	return &LogRenderer{log: log.With().Str("component", "log_renderer").Logger()}
}

func (l *LogRenderer) event(s session.Info) *zerolog.Event {
	return l.log.Debug().
		Str("session_id", s.ID.String()).
		Str("channel_id", string(s.ChannelID)).
		Str("user_id", string(s.UserID))
}

func (l *LogRenderer) OnSessionStart(_ context.Context, s session.Info) error {
	l.event(s).Str("exam", s.ExamName).Bool("practice", s.Practice).Msg("session start")
	return nil
}

func (l *LogRenderer) OnQuestion(_ context.Context, s session.Info, q exam.Question) error {
	l.event(s).Int("index", s.CurrentIndex).Str("question", q.Question).Msg("question")
	return nil
}

func (l *LogRenderer) OnTimeout(_ context.Context, s session.Info, q exam.Question) error {
	l.event(s).Str("question", q.Question).Msg("timeout")
	return nil
}

func (l *LogRenderer) OnAnswerGraded(_ context.Context, s session.Info, q exam.Question, a exam.Answer) error {
	l.event(s).Str("question", q.Question).Str("answer", a.String()).Bool("correct", a.IsCorrect()).Msg("answer graded")
	return nil
}

func (l *LogRenderer) OnSessionEnd(_ context.Context, s session.Info, score exam.ExamScore) error {
	l.log.Info().
		Str("session_id", s.ID.String()).
		Str("user_id", string(s.UserID)).
		Str("exam", s.ExamName).
		Float64("score", score.Score).
		Bool("passed", score.Passed).
		Int("answered", len(score.GradedQuestions)).
		Msg("Exam result")
	return nil
}
