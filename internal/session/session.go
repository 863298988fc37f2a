// Package session owns every running exam. It enforces the busy rules
// (one session per channel, one per user), routes answers to the owning
// Examiner and turns tick results into events for a renderer.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/stemsi/exambot/internal/exam"
)

// Domain Errors
var (
	ErrSessionBusy     = errors.New("channel or user already has an active session")
	ErrInvalidChannel  = errors.New("exams are not allowed in this channel")
	ErrNoActiveSession = errors.New("no active session")
	ErrExamNotFound    = errors.New("exam not found")
	ErrQuitRejected    = errors.New("session cannot be quit right now")
)

// IsDomainError reports whether err is a user-facing rejection that a retry
// cannot fix.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrSessionBusy) ||
		errors.Is(err, ErrInvalidChannel) ||
		errors.Is(err, ErrExamNotFound) ||
		errors.Is(err, ErrNoActiveSession) ||
		errors.Is(err, ErrQuitRejected)
}

// ChannelID and UserID are opaque chat snowflakes.
type (
	ChannelID string
	UserID    string
)

// ExamLoader resolves exam names to decks.
// LoadExam must wrap ErrExamNotFound when the name is unknown.
type ExamLoader interface {
	LoadExam(ctx context.Context, name string) (*exam.Exam, error)
	ExamNames(ctx context.Context) ([]string, error)
}

// Renderer shows session progress to users. Calls happen outside the
// registry lock and their errors never affect session state.
type Renderer interface {
	OnSessionStart(ctx context.Context, s Info) error
	OnQuestion(ctx context.Context, s Info, q exam.Question) error
	OnTimeout(ctx context.Context, s Info, q exam.Question) error
	OnAnswerGraded(ctx context.Context, s Info, q exam.Question, a exam.Answer) error
	OnSessionEnd(ctx context.Context, s Info, score exam.ExamScore) error
}

// Notifier accepts events in order. Notify must not block on rendering.
type Notifier interface {
	Notify(events ...Event)
}

// ActiveExam is one registry entry. Its Examiner is only touched while the
// Manager lock is held.
type ActiveExam struct {
	ID        uuid.UUID
	ChannelID ChannelID
	UserID    UserID
	Seed      uint64
	Exam      *exam.Exam
	Examiner  *exam.Examiner
	StartedAt time.Time
}

// Info is a read-only view of an ActiveExam, safe to hand to other goroutines.
type Info struct {
	ID           uuid.UUID `json:"id"`
	ChannelID    ChannelID `json:"channel_id"`
	UserID       UserID    `json:"user_id"`
	ExamName     string    `json:"exam"`
	HSKLevel     int       `json:"hsk_level"`
	NumQuestions int       `json:"num_questions"`
	MaxWrong     *int      `json:"max_wrong"`
	Timelimit    int       `json:"timelimit_ms"`
	Practice     bool      `json:"practice"`
	Seed         uint64    `json:"seed"`
	CurrentIndex int       `json:"current_index"`
	Answered     int       `json:"answered"`
	Wrong        int       `json:"wrong"`
	StartedAt    time.Time `json:"started_at"`
}

// Info snapshots the entry. Call it with the Manager lock held.
func (a *ActiveExam) Info() Info {
	x := a.Examiner
	var maxWrong *int
	if mw := x.MaxWrong(); mw != nil {
		maxWrong = exam.IntPtr(*mw)
	}
	return Info{
		ID:           a.ID,
		ChannelID:    a.ChannelID,
		UserID:       a.UserID,
		ExamName:     a.Exam.Name,
		HSKLevel:     a.Exam.HSKLevel,
		NumQuestions: x.NumQuestions(),
		MaxWrong:     maxWrong,
		Timelimit:    x.Timelimit(),
		Practice:     x.Practice(),
		Seed:         a.Seed,
		CurrentIndex: x.CurrentIndex(),
		Answered:     x.NumAnswered(),
		Wrong:        x.NumberWrong(),
		StartedAt:    a.StartedAt,
	}
}
