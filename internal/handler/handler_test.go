package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exambot/internal/middleware"
	"github.com/stemsi/exambot/internal/model"
	"github.com/stemsi/exambot/internal/response"
	"github.com/stemsi/exambot/internal/session"
	"github.com/stemsi/exambot/internal/validator"
	ws "github.com/stemsi/exambot/internal/websocket"
)

const (
	channelID = "100000000000000001"
	userID    = "200000000000000002"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Setup()
}

// ─── Fakes ───────────────────────────────────────────────────────────

type fakeChat struct {
	reply    model.ChatReply
	err      error
	messages []model.ChatMessage

	startInfo session.Info
	startErr  error
	started   []string
}

func (f *fakeChat) HandleMessage(_ context.Context, msg model.ChatMessage) (model.ChatReply, error) {
	f.messages = append(f.messages, msg)
	return f.reply, f.err
}

func (f *fakeChat) StartSession(_ context.Context, ch session.ChannelID, user session.UserID, examName string, practice bool) (session.Info, error) {
	f.started = append(f.started, fmt.Sprintf("%s/%s/%s/%t", ch, user, examName, practice))
	return f.startInfo, f.startErr
}

type fakeSessions struct {
	infos   []session.Info
	quitErr error
	quits   []session.UserID
}

func (f *fakeSessions) Quit(user session.UserID) error {
	f.quits = append(f.quits, user)
	return f.quitErr
}

func (f *fakeSessions) Snapshot() []session.Info { return f.infos }

type fakeCatalog struct {
	names   []string
	summary model.ExamSummary
	err     error
}

func (f *fakeCatalog) ExamNames(context.Context) ([]string, error) { return f.names, f.err }

func (f *fakeCatalog) Summary(_ context.Context, name string) (model.ExamSummary, error) {
	if f.err != nil {
		return model.ExamSummary{}, f.err
	}
	if name != f.summary.Name {
		return model.ExamSummary{}, session.ErrExamNotFound
	}
	return f.summary, nil
}

type envelope struct {
	Data  json.RawMessage     `json:"data"`
	Error *response.ErrorBody `json:"error"`
}

func do(t *testing.T, r http.Handler, method, path, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func messageRouter(chat ChatService, limiter *middleware.RateLimiter) *gin.Engine {
	r := gin.New()
	h := NewMessageHandler(chat, limiter, zerolog.Nop())
	r.POST("/channels/:channel_id/messages", h.PostMessage)
	return r
}

// ─── Messages ────────────────────────────────────────────────────────

func TestPostMessageGraded(t *testing.T) {
	chat := &fakeChat{reply: model.ChatReply{Graded: &model.GradedAnswer{Question: "你好", Correct: true}}}
	r := messageRouter(chat, nil)

	code, env := do(t, r, http.MethodPost, "/channels/"+channelID+"/messages",
		`{"user_id":"`+userID+`","content":"ni3 hao3"}`)

	assert.Equal(t, http.StatusOK, code)
	assert.Nil(t, env.Error)
	var reply model.ChatReply
	require.NoError(t, json.Unmarshal(env.Data, &reply))
	require.NotNil(t, reply.Graded)
	assert.True(t, reply.Graded.Correct)
	assert.Equal(t, []model.ChatMessage{{ChannelID: channelID, UserID: userID, Content: "ni3 hao3"}}, chat.messages)
}

func TestPostMessageRejectsBadInput(t *testing.T) {
	chat := &fakeChat{}
	r := messageRouter(chat, nil)

	code, env := do(t, r, http.MethodPost, "/channels/general/messages", `{"user_id":"`+userID+`","content":"x"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, response.ErrInvalidID, env.Error.Code)

	code, env = do(t, r, http.MethodPost, "/channels/"+channelID+"/messages", `{"user_id":"bob","content":"x"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, response.ErrValidation, env.Error.Code)
	assert.Contains(t, env.Error.Fields, "user_id")

	assert.Empty(t, chat.messages)
}

func TestPostMessageDomainErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   response.ErrCode
	}{
		{session.ErrSessionBusy, http.StatusConflict, response.ErrSessionBusy},
		{session.ErrInvalidChannel, http.StatusForbidden, response.ErrInvalidChannel},
		{session.ErrExamNotFound, http.StatusNotFound, response.ErrExamNotFound},
		{fmt.Errorf("%w: not awaiting", session.ErrQuitRejected), http.StatusConflict, response.ErrQuitRejected},
		{errors.New("database on fire"), http.StatusInternalServerError, response.ErrInternal},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			chat := &fakeChat{reply: model.ChatReply{Reply: "bot says no"}, err: tt.err}
			code, env := do(t, messageRouter(chat, nil), http.MethodPost, "/channels/"+channelID+"/messages",
				`{"user_id":"`+userID+`","content":"!exam start"}`)

			assert.Equal(t, tt.status, code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
			if tt.code != response.ErrInternal {
				assert.Equal(t, "bot says no", env.Error.Message)
			}
		})
	}
}

func TestPostMessageRateLimited(t *testing.T) {
	chat := &fakeChat{}
	r := messageRouter(chat, middleware.NewRateLimiter(1, time.Hour))
	body := `{"user_id":"` + userID + `","content":"x"}`

	code, _ := do(t, r, http.MethodPost, "/channels/"+channelID+"/messages", body)
	assert.Equal(t, http.StatusOK, code)

	code, env := do(t, r, http.MethodPost, "/channels/"+channelID+"/messages", body)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, response.ErrRateLimitExceeded, env.Error.Code)
	assert.Len(t, chat.messages, 1)
}

// ─── Sessions ────────────────────────────────────────────────────────

func sessionRouter(chat ChatService, sessions SessionRegistry) *gin.Engine {
	r := gin.New()
	h := NewSessionHandler(chat, sessions, zerolog.Nop())
	r.POST("/channels/:channel_id/sessions", h.Start)
	r.DELETE("/users/:user_id/session", h.Quit)
	r.GET("/sessions", h.List)
	return r
}

func TestFailSessionLogsRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	r := gin.New()
	r.Use(response.RequestIDMiddleware())
	r.GET("/boom", func(c *gin.Context) {
		failSession(c, log, errors.New("disk on fire"), "")
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(response.HeaderRequestID, "trace-7")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "trace-7", w.Header().Get(response.HeaderRequestID))
	assert.Contains(t, buf.String(), `"request_id":"trace-7"`)
	assert.Contains(t, buf.String(), "disk on fire")
}

func TestStartSession(t *testing.T) {
	chat := &fakeChat{startInfo: session.Info{ExamName: "hsk2", NumQuestions: 10}}
	r := sessionRouter(chat, &fakeSessions{})

	code, env := do(t, r, http.MethodPost, "/channels/"+channelID+"/sessions",
		`{"user_id":"`+userID+`","exam":"hsk2","practice":true}`)

	assert.Equal(t, http.StatusCreated, code)
	var info session.Info
	require.NoError(t, json.Unmarshal(env.Data, &info))
	assert.Equal(t, "hsk2", info.ExamName)
	assert.Equal(t, []string{channelID + "/" + userID + "/hsk2/true"}, chat.started)

	code, env = do(t, r, http.MethodPost, "/channels/"+channelID+"/sessions", `{"user_id":"`+userID+`","exam":"../etc"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Error.Fields, "exam")
}

func TestStartSessionBusy(t *testing.T) {
	chat := &fakeChat{startErr: session.ErrSessionBusy}
	code, env := do(t, sessionRouter(chat, &fakeSessions{}), http.MethodPost,
		"/channels/"+channelID+"/sessions", `{"user_id":"`+userID+`"}`)

	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, response.GetMessage(response.ErrSessionBusy), env.Error.Message)
}

func TestQuitSession(t *testing.T) {
	sessions := &fakeSessions{}
	r := sessionRouter(&fakeChat{}, sessions)

	code, _ := do(t, r, http.MethodDelete, "/users/"+userID+"/session", "")
	assert.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, []session.UserID{userID}, sessions.quits)

	sessions.quitErr = session.ErrNoActiveSession
	code, env := do(t, r, http.MethodDelete, "/users/"+userID+"/session", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, response.ErrNoActiveSession, env.Error.Code)
}

func TestListSessions(t *testing.T) {
	sessions := &fakeSessions{infos: []session.Info{{ChannelID: channelID, UserID: userID}}}
	code, env := do(t, sessionRouter(&fakeChat{}, sessions), http.MethodGet, "/sessions", "")

	assert.Equal(t, http.StatusOK, code)
	var infos []session.Info
	require.NoError(t, json.Unmarshal(env.Data, &infos))
	assert.Len(t, infos, 1)
}

// ─── Exams ───────────────────────────────────────────────────────────

func TestExamHandler(t *testing.T) {
	catalog := &fakeCatalog{
		names:   []string{"hsk1", "hsk2"},
		summary: model.ExamSummary{Name: "hsk1", NumQuestions: 10},
	}
	r := gin.New()
	h := NewExamHandler(catalog, zerolog.Nop())
	r.GET("/exams", h.List)
	r.GET("/exams/:name", h.Get)

	code, env := do(t, r, http.MethodGet, "/exams", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `["hsk1","hsk2"]`, string(env.Data))

	code, env = do(t, r, http.MethodGet, "/exams/hsk1", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"hsk1"`)

	code, env = do(t, r, http.MethodGet, "/exams/hsk9", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, response.ErrExamNotFound, env.Error.Code)

	catalog.err = errors.New("redis down")
	code, _ = do(t, r, http.MethodGet, "/exams", "")
	assert.Equal(t, http.StatusInternalServerError, code)
}

// ─── Health ──────────────────────────────────────────────────────────

type fakeStats struct{}

func (fakeStats) Pending() int    { return 2 }
func (fakeStats) Dropped() int64  { return 1 }
func (fakeStats) Failures() int64 { return 0 }

func TestHealth(t *testing.T) {
	r := gin.New()
	r.GET("/health", NewHealthHandler(&fakeSessions{infos: make([]session.Info, 3)}, fakeStats{}).Health)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t,
		`{"status":"ok","active_sessions":3,"render_pending":2,"render_dropped":1,"render_failures":0}`,
		w.Body.String())
}

// ─── WebSocket ───────────────────────────────────────────────────────

func TestBuildUpgraderOrigins(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://exams.example.com")

	assert.True(t, buildUpgrader(nil).CheckOrigin(req))
	assert.True(t, buildUpgrader([]string{"https://EXAMS.example.com"}).CheckOrigin(req))
	assert.False(t, buildUpgrader([]string{"https://other.example.com"}).CheckOrigin(req))
}

func dialChannel(t *testing.T, chat ChatService, hub *ws.Hub) *websocket.Conn {
	t.Helper()
	r := gin.New()
	h := NewWSHandler(chat, hub, nil, zerolog.Nop(), nil)
	r.GET("/ws/channels/:channel_id", h.ChannelStream)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/channels/" + channelID + "?user_id=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(v))
}

func TestWSMessageAndPing(t *testing.T) {
	chat := &fakeChat{reply: model.ChatReply{Graded: &model.GradedAnswer{Correct: false}}}
	hub := ws.NewHub(zerolog.Nop())
	conn := dialChannel(t, chat, hub)

	require.NoError(t, conn.WriteJSON(ws.MessageRequest{Action: ws.ActionMessage, Content: "wo3"}))
	var reply ws.ReplyResponse
	readEvent(t, conn, &reply)
	assert.Equal(t, ws.EventReply, reply.Event)
	require.NotNil(t, reply.Correct)
	assert.False(t, *reply.Correct)

	require.NoError(t, conn.WriteJSON(ws.MessageRequest{Action: ws.ActionPing}))
	var pong ws.PongResponse
	readEvent(t, conn, &pong)
	assert.Equal(t, ws.EventPong, pong.Event)

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "dance"}))
	var errResp ws.ErrorResponse
	readEvent(t, conn, &errResp)
	assert.Equal(t, ws.EventError, errResp.Event)
}

func TestWSReceivesChannelFeed(t *testing.T) {
	hub := ws.NewHub(zerolog.Nop())
	conn := dialChannel(t, &fakeChat{}, hub)

	require.Eventually(t, func() bool { return hub.Count(channelID) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), channelID, ws.FeedEvent{
		Event: ws.EventQuestion,
		Text:  "Question 1/3: **你好**",
	}))

	var ev ws.FeedEvent
	readEvent(t, conn, &ev)
	assert.Equal(t, ws.EventQuestion, ev.Event)
	assert.Equal(t, "Question 1/3: **你好**", ev.Text)
}

func TestWSRejectsBadUser(t *testing.T) {
	r := gin.New()
	h := NewWSHandler(&fakeChat{}, ws.NewHub(zerolog.Nop()), nil, zerolog.Nop(), nil)
	r.GET("/ws/channels/:channel_id", h.ChannelStream)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws/channels/"+channelID+"?user_id=nobody", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
