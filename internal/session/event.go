package session

import (
	"context"
	"fmt"

	"github.com/stemsi/exambot/internal/exam"
)

type EventKind int

const (
	EventSessionStart EventKind = iota
	EventQuestion
	EventTimeout
	EventAnswerGraded
	EventSessionEnd
)

func (k EventKind) String() string {
	switch k {
	case EventSessionStart:
		return "session_start"
	case EventQuestion:
		return "question"
	case EventTimeout:
		return "timeout"
	case EventAnswerGraded:
		return "answer"
	case EventSessionEnd:
		return "session_end"
	default:
		return "unknown"
	}
}

// Event is one externally visible step of a session. Only the fields that
// belong to Kind are set.
type Event struct {
	Kind     EventKind
	Session  Info
	Question exam.Question
	Answer   exam.Answer
	Score    exam.ExamScore
}

// Apply calls the Renderer method matching the event kind.
func (e Event) Apply(ctx context.Context, r Renderer) error {
	switch e.Kind {
	case EventSessionStart:
		return r.OnSessionStart(ctx, e.Session)
	case EventQuestion:
		return r.OnQuestion(ctx, e.Session, e.Question)
	case EventTimeout:
		return r.OnTimeout(ctx, e.Session, e.Question)
	case EventAnswerGraded:
		return r.OnAnswerGraded(ctx, e.Session, e.Question, e.Answer)
	case EventSessionEnd:
		return r.OnSessionEnd(ctx, e.Session, e.Score)
	default:
		return fmt.Errorf("unknown event kind %d", e.Kind)
	}
}

// eventFor translates a tick result of s. Pause and Nothing are invisible,
// and only visible events pay for an Info snapshot.
func eventFor(s *ActiveExam, r exam.TickResult) (Event, bool) {
	switch r := r.(type) {
	case exam.TickNextQuestion:
		return Event{Kind: EventQuestion, Session: s.Info(), Question: r.Question}, true
	case exam.TickTimeout:
		return Event{Kind: EventTimeout, Session: s.Info(), Question: r.Question}, true
	case exam.TickFinished:
		return Event{Kind: EventSessionEnd, Session: s.Info(), Score: r.Score}, true
	case exam.TickPause, exam.TickNothing:
		return Event{}, false
	default:
		panic(fmt.Sprintf("session: unhandled tick result %T", r))
	}
}
