package model

import (
	"fmt"
	"time"

	"github.com/stemsi/exambot/internal/exam"
)

// ExamDocument is the on-disk and on-wire form of an exam deck. Timelimit is
// in seconds here and in milliseconds once converted.
type ExamDocument struct {
	Name         string             `json:"name" yaml:"name"`
	NumQuestions int                `json:"numQuestions" yaml:"numQuestions"`
	MaxWrong     *int               `json:"maxWrong" yaml:"maxWrong"`
	Timelimit    int                `json:"timelimit" yaml:"timelimit"`
	HSKLevel     int                `json:"hskLevel" yaml:"hskLevel"`
	Deck         []QuestionDocument `json:"deck" yaml:"deck"`
}

// QuestionDocument is one card of an ExamDocument.
type QuestionDocument struct {
	Question     string   `json:"question" yaml:"question"`
	ValidAnswers []string `json:"validAnswers" yaml:"validAnswers"`
	Meaning      string   `json:"meaning" yaml:"meaning"`
}

// ToExam converts the document and validates the result.
func (d *ExamDocument) ToExam() (*exam.Exam, error) {
	deck := make([]exam.Question, len(d.Deck))
	for i, c := range d.Deck {
		deck[i] = exam.Question{
			Question:     c.Question,
			ValidAnswers: append([]string(nil), c.ValidAnswers...),
			Meaning:      c.Meaning,
		}
	}

	var maxWrong *int
	if d.MaxWrong != nil {
		maxWrong = exam.IntPtr(*d.MaxWrong)
	}

	e := &exam.Exam{
		Name:         d.Name,
		Deck:         deck,
		NumQuestions: d.NumQuestions,
		MaxWrong:     maxWrong,
		Timelimit:    d.Timelimit * 1000,
		HSKLevel:     d.HSKLevel,
	}
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("exam document %q: %w", d.Name, err)
	}
	return e, nil
}

// ExamDocumentFrom is the inverse of ToExam. Sub-second time limits round down.
func ExamDocumentFrom(e *exam.Exam) *ExamDocument {
	deck := make([]QuestionDocument, len(e.Deck))
	for i, q := range e.Deck {
		deck[i] = QuestionDocument{
			Question:     q.Question,
			ValidAnswers: append([]string(nil), q.ValidAnswers...),
			Meaning:      q.Meaning,
		}
	}
	var maxWrong *int
	if e.MaxWrong != nil {
		maxWrong = exam.IntPtr(*e.MaxWrong)
	}
	return &ExamDocument{
		Name:         e.Name,
		NumQuestions: e.NumQuestions,
		MaxWrong:     maxWrong,
		Timelimit:    e.Timelimit / 1000,
		HSKLevel:     e.HSKLevel,
		Deck:         deck,
	}
}

// ExamRecord is a row of the exams table.
type ExamRecord struct {
	Document  ExamDocument `json:"document"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// ExamSummary is the public view of an exam. It never carries answers.
type ExamSummary struct {
	Name             string `json:"name"`
	NumQuestions     int    `json:"num_questions"`
	MaxWrong         *int   `json:"max_wrong"`
	TimelimitSeconds int    `json:"timelimit_seconds"`
	HSKLevel         int    `json:"hsk_level"`
	DeckSize         int    `json:"deck_size"`
}

// SummaryOf builds the public view of e.
func SummaryOf(e *exam.Exam) ExamSummary {
	return ExamSummary{
		Name:             e.Name,
		NumQuestions:     e.NumQuestions,
		MaxWrong:         e.MaxWrong,
		TimelimitSeconds: e.Timelimit / 1000,
		HSKLevel:         e.HSKLevel,
		DeckSize:         len(e.Deck),
	}
}
