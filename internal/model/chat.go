package model

import "github.com/stemsi/exambot/internal/exam"

// ChatMessage is one inbound chat message, whether it arrived over HTTP,
// WebSocket or the inbound queue.
type ChatMessage struct {
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
	Content   string `json:"content"`
}

// PostMessageRequest is the payload for POST /channels/:channel_id/messages.
type PostMessageRequest struct {
	UserID  string `json:"user_id" binding:"required,snowflake"`
	Content string `json:"content" binding:"required,max=2000"`
}

// StartSessionRequest is the payload for POST /channels/:channel_id/sessions.
// An empty Exam selects the default exam.
type StartSessionRequest struct {
	UserID   string `json:"user_id" binding:"required,snowflake"`
	Exam     string `json:"exam" binding:"omitempty,max=64,alphanum"`
	Practice bool   `json:"practice"`
}

// ChatReply is what the bot answers to a message. Reply is empty when the
// message needs no direct answer; Graded is set when it was graded.
type ChatReply struct {
	Reply  string        `json:"reply,omitempty"`
	Graded *GradedAnswer `json:"graded,omitempty"`
}

// GradedAnswer reports one graded answer.
type GradedAnswer struct {
	Question        string `json:"question"`
	Answer          string `json:"answer"`
	Correct         bool   `json:"correct"`
	CanonicalAnswer string `json:"canonical_answer"`
	Meaning         string `json:"meaning"`
}

// GradedAnswerFrom flattens a graded question for the API.
func GradedAnswerFrom(g exam.GradedQuestion) *GradedAnswer {
	return &GradedAnswer{
		Question:        g.Question.Question,
		Answer:          g.Answer.String(),
		Correct:         g.Answer.IsCorrect(),
		CanonicalAnswer: g.Question.CanonicalAnswer(),
		Meaning:         g.Question.Meaning,
	}
}
