package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/exambot/internal/model"
	"github.com/stemsi/exambot/internal/response"
	"github.com/stemsi/exambot/internal/session"
	"github.com/stemsi/exambot/internal/validator"
)

// ChatService is implemented by service.ChatService.
type ChatService interface {
	HandleMessage(ctx context.Context, msg model.ChatMessage) (model.ChatReply, error)
	StartSession(ctx context.Context, ch session.ChannelID, user session.UserID, examName string, practice bool) (session.Info, error)
}

// SessionRegistry is implemented by session.Manager.
type SessionRegistry interface {
	Quit(user session.UserID) error
	Snapshot() []session.Info
}

// failSession maps session errors onto the response envelope. A non-empty
// message replaces the default text of the code.
func failSession(c *gin.Context, log zerolog.Logger, err error, message string) {
	switch {
	case errors.Is(err, session.ErrSessionBusy):
		response.FailWithMessage(c, http.StatusConflict, response.ErrSessionBusy, message)
	case errors.Is(err, session.ErrInvalidChannel):
		response.FailWithMessage(c, http.StatusForbidden, response.ErrInvalidChannel, message)
	case errors.Is(err, session.ErrExamNotFound):
		response.FailWithMessage(c, http.StatusNotFound, response.ErrExamNotFound, message)
	case errors.Is(err, session.ErrNoActiveSession):
		response.FailWithMessage(c, http.StatusNotFound, response.ErrNoActiveSession, message)
	case errors.Is(err, session.ErrQuitRejected):
		response.FailWithMessage(c, http.StatusConflict, response.ErrQuitRejected, message)
	default:
		reqLog := response.RequestLogger(c, log)
		reqLog.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// snowflakeParam reads a chat ID path parameter, answering 400 when malformed.
func snowflakeParam(c *gin.Context, name string) (string, bool) {
	v := c.Param(name)
	if !validator.IsSnowflake(v) {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return "", false
	}
	return v, true
}
