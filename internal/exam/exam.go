// Package exam holds the timed-quiz engine: exam decks, answer grading and the
// per-session Examiner state machine. It does no I/O.
package exam

import (
	"errors"
	"fmt"
	"strings"
)

// Domain Errors
var (
	ErrEmptyDeck         = errors.New("exam deck is empty")
	ErrNoValidAnswers    = errors.New("question has no valid answers")
	ErrInvalidExam       = errors.New("invalid exam definition")
	ErrNotAwaitingAnswer = errors.New("examiner is not awaiting an answer")
)

// Exam is an immutable deck of questions plus pass/fail parameters.
// Timelimit is the per-question budget in milliseconds.
type Exam struct {
	Name         string
	Deck         []Question
	NumQuestions int
	MaxWrong     *int
	Timelimit    int
	HSKLevel     int
}

// Question is a single prompt. The first valid answer is the canonical one.
type Question struct {
	Question     string
	ValidAnswers []string
	Meaning      string
}

// CanonicalAnswer returns the answer shown to users.
func (q Question) CanonicalAnswer() string {
	if len(q.ValidAnswers) == 0 {
		return ""
	}
	return q.ValidAnswers[0]
}

// IsCorrect reports whether raw matches any valid answer after normalization.
func (q Question) IsCorrect(raw string) bool {
	return IsCorrect(q, raw)
}

// IsCorrect grades raw against the question. Both sides are lowercased and
// stripped of spaces and of the digit '5' (neutral tone typed on a keyboard)
// before an exact comparison.
func IsCorrect(q Question, raw string) bool {
	answer := normalize(raw)
	for _, valid := range q.ValidAnswers {
		if normalize(valid) == answer {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "")
	return strings.ReplaceAll(s, "5", "")
}

// Validate checks the invariants the Examiner relies on.
func (e *Exam) Validate() error {
	if len(e.Deck) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyDeck, e.Name)
	}
	for i, q := range e.Deck {
		if len(q.ValidAnswers) == 0 {
			return fmt.Errorf("%w: %s question %d (%q)", ErrNoValidAnswers, e.Name, i, q.Question)
		}
	}
	if e.NumQuestions < 1 {
		return fmt.Errorf("%w: %s numQuestions must be at least 1", ErrInvalidExam, e.Name)
	}
	if e.Timelimit <= 0 {
		return fmt.Errorf("%w: %s timelimit must be positive", ErrInvalidExam, e.Name)
	}
	if e.MaxWrong != nil && *e.MaxWrong < 0 {
		return fmt.Errorf("%w: %s maxWrong cannot be negative", ErrInvalidExam, e.Name)
	}
	return nil
}

// AnswerKind tags an Answer.
type AnswerKind int

const (
	AnswerCorrect AnswerKind = iota
	AnswerIncorrect
	AnswerTimeout
	AnswerQuit
)

func (k AnswerKind) String() string {
	switch k {
	case AnswerCorrect:
		return "correct"
	case AnswerIncorrect:
		return "incorrect"
	case AnswerTimeout:
		return "timeout"
	case AnswerQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Answer is the outcome recorded against one question. Raw is only set for
// Correct and Incorrect answers.
type Answer struct {
	Kind AnswerKind
	Raw  string
}

func Correct(raw string) Answer   { return Answer{Kind: AnswerCorrect, Raw: raw} }
func Incorrect(raw string) Answer { return Answer{Kind: AnswerIncorrect, Raw: raw} }
func Timeout() Answer             { return Answer{Kind: AnswerTimeout} }
func Quit() Answer                { return Answer{Kind: AnswerQuit} }

func (a Answer) IsCorrect() bool { return a.Kind == AnswerCorrect }
func (a Answer) IsTimeout() bool { return a.Kind == AnswerTimeout }
func (a Answer) IsQuit() bool    { return a.Kind == AnswerQuit }

// String renders the answer the way it is shown in results.
func (a Answer) String() string {
	switch a.Kind {
	case AnswerTimeout:
		return "*timeout*"
	case AnswerQuit:
		return "*quit*"
	default:
		return a.Raw
	}
}

// GradedQuestion pairs a question with the answer recorded for it.
type GradedQuestion struct {
	Question Question
	Answer   Answer
}

// ExamScore is the read-only result of a finished session.
type ExamScore struct {
	Score           float64
	Passed          bool
	GradedQuestions []GradedQuestion
}

// IntPtr is a helper for optional MaxWrong values.
func IntPtr(n int) *int { return &n }
