package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/stemsi/exambot/internal/model"
	"github.com/stemsi/exambot/internal/session"
)

// ChatService turns chat messages into session operations. It is shared by
// the HTTP, WebSocket and inbound-queue entry points.
type ChatService struct {
	manager     *session.Manager
	prefix      string
	defaultExam string
	log         zerolog.Logger
}

// NewChatService creates a new ChatService.
func NewChatService(manager *session.Manager, prefix, defaultExam string, log zerolog.Logger) *ChatService {
	return &ChatService{
		manager:     manager,
		prefix:      prefix,
		defaultExam: defaultExam,
		log:         log.With().Str("component", "chat_service").Logger(),
	}
}

// HandleMessage routes one message. Commands are answered with a reply;
// any other text from a user with a session in that channel is graded.
//
// Domain errors (busy, wrong channel, unknown exam, rejected quit) come back
// together with a user-facing Reply so chat callers can post it and HTTP
// callers can map the error.
func (s *ChatService) HandleMessage(ctx context.Context, msg model.ChatMessage) (model.ChatReply, error) {
	ch := session.ChannelID(msg.ChannelID)
	user := session.UserID(msg.UserID)

	cmd, ok := session.ParseCommand(s.prefix, msg.Content)
	if !ok {
		graded, ok := s.manager.SubmitAnswerIn(ch, user, strings.TrimSpace(msg.Content))
		if !ok {
			return model.ChatReply{}, nil
		}
		return model.ChatReply{Graded: model.GradedAnswerFrom(graded)}, nil
	}

	switch cmd.Kind {
	case session.CommandStart, session.CommandPractice:
		_, err := s.StartSession(ctx, ch, user, cmd.Exam, cmd.Kind == session.CommandPractice)
		if err != nil {
			return model.ChatReply{Reply: s.startFailureReply(ctx, err)}, err
		}
		return model.ChatReply{}, nil

	case session.CommandQuit:
		err := s.QuitIn(ch, user)
		switch {
		case err == nil, errors.Is(err, session.ErrNoActiveSession):
			return model.ChatReply{}, nil
		case errors.Is(err, session.ErrQuitRejected):
			return model.ChatReply{Reply: "You can quit once the next question is shown."}, err
		default:
			return model.ChatReply{}, err
		}

	case session.CommandList:
		reply, err := s.availableExams(ctx)
		return model.ChatReply{Reply: reply}, err

	default:
		return model.ChatReply{Reply: s.usage()}, nil
	}
}

// StartSession starts a graded or practice session. An empty name selects
// the default exam.
func (s *ChatService) StartSession(ctx context.Context, ch session.ChannelID, user session.UserID, examName string, practice bool) (session.Info, error) {
	if examName == "" {
		examName = s.defaultExam
	}
	if practice {
		return s.manager.StartPractice(ctx, examName, ch, user)
	}
	return s.manager.Start(ctx, examName, ch, user)
}

// QuitIn gives up the user's session only if it runs in ch.
func (s *ChatService) QuitIn(ch session.ChannelID, user session.UserID) error {
	return s.manager.QuitIn(ch, user)
}

func (s *ChatService) startFailureReply(ctx context.Context, err error) string {
	switch {
	case errors.Is(err, session.ErrSessionBusy):
		return "Someone is already taking an exam here, or you already have one running."
	case errors.Is(err, session.ErrInvalidChannel):
		return "Exams can only be taken in the exam channel."
	case errors.Is(err, session.ErrExamNotFound):
		reply, listErr := s.availableExams(ctx)
		if listErr != nil {
			return "That exam does not exist."
		}
		return reply
	default:
		s.log.Error().Err(err).Msg("Failed to start exam session")
		return "The exam could not be started. Please try again later."
	}
}

func (s *ChatService) availableExams(ctx context.Context) (string, error) {
	names, err := s.manager.ExamNames(ctx)
	if err != nil {
		return "", fmt.Errorf("list exams: %w", err)
	}
	if len(names) == 0 {
		return "There are currently no exams available.", nil
	}
	return "Available exams: " + strings.Join(names, " "), nil
}

func (s *ChatService) usage() string {
	p := s.prefix
	return fmt.Sprintf("Usage: `%s start [exam]`, `%s practice [exam]`, `%s quit`, `%s list`", p, p, p, p)
}
