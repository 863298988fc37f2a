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
)

// ExamCatalog is implemented by service.ExamService.
type ExamCatalog interface {
	ExamNames(ctx context.Context) ([]string, error)
	Summary(ctx context.Context, name string) (model.ExamSummary, error)
}

// ExamHandler exposes the available exams. Answers are never served.
type ExamHandler struct {
	exams ExamCatalog
	log   zerolog.Logger
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(exams ExamCatalog, log zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		exams: exams,
		log:   log.With().Str("component", "exam_handler").Logger(),
	}
}

// List godoc
// GET /api/v1/exams
func (h *ExamHandler) List(c *gin.Context) {
	names, err := h.exams.ExamNames(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list exams")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, names)
}

// Get godoc
// GET /api/v1/exams/:name
func (h *ExamHandler) Get(c *gin.Context) {
	summary, err := h.exams.Summary(c.Request.Context(), c.Param("name"))
	if err != nil {
		if errors.Is(err, session.ErrExamNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrExamNotFound)
			return
		}
		h.log.Error().Err(err).Str("exam", c.Param("name")).Msg("Failed to load exam")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, summary)
}
