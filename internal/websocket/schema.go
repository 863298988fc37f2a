package websocket

import "time"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionMessage Action = "message"
	ActionPing    Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// MessageRequest is a chat message typed by the connected user.
type MessageRequest struct {
	Action  Action `json:"action"`
	Content string `json:"content"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventSessionStart Event = "session_start"
	EventQuestion     Event = "question"
	EventTimeout      Event = "timeout"
	EventAnswer       Event = "answer"
	EventSessionEnd   Event = "session_end"
	EventReply        Event = "reply"
	EventError        Event = "error"
	EventPong         Event = "pong"
)

// FeedEvent is one session event as seen by feed subscribers, over both
// WebSocket and SSE. Question carries the prompt only, never the answers.
type FeedEvent struct {
	Event     Event     `json:"event"`
	SessionID string    `json:"session_id"`
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	Question  string    `json:"question,omitempty"`
	Index     *int      `json:"index,omitempty"`
	Score     *float64  `json:"score,omitempty"`
	Passed    *bool     `json:"passed,omitempty"`
	Timestamp time.Time `json:"ts"`
}

// ReplyResponse answers a MessageRequest, to its sender only.
type ReplyResponse struct {
	Event   Event  `json:"event"`
	Text    string `json:"text,omitempty"`
	Correct *bool  `json:"correct,omitempty"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
