package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/interviewd/internal/feedback"
	"github.com/fyrsmithlabs/interviewd/internal/interview"
	"github.com/fyrsmithlabs/interviewd/internal/session"
	"github.com/fyrsmithlabs/interviewd/internal/store"
)

// AnswerRequest is the request body for POST /v1/sessions/:id/answer.
// The clarification flag routes a coding-phase message to the bounded
// clarification flow instead of answer judgment.
type AnswerRequest struct {
	Message       string `json:"message"`
	Clarification bool   `json:"clarification,omitempty"`
}

// SubmissionRequest is the request body for POST /v1/sessions/:id/submission.
type SubmissionRequest struct {
	Code string `json:"code"`
}

// FeedbackResponse is the response body for POST /v1/sessions/:id/feedback.
type FeedbackResponse struct {
	SessionID string            `json:"session_id"`
	Feedback  feedback.Feedback `json:"feedback"`
}

// SessionSummary is one entry in the session listing.
type SessionSummary struct {
	SessionID        string    `json:"session_id"`
	Topic            string    `json:"topic"`
	Type             string    `json:"interview_type"`
	Phase            string    `json:"phase"`
	CompletionReason string    `json:"completion_reason,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ListSessionsResponse is the response body for GET /v1/sessions.
type ListSessionsResponse struct {
	Sessions []SessionSummary `json:"sessions"`
	Count    int              `json:"count"`
}

// TopicsResponse is the response body for GET /v1/topics.
type TopicsResponse struct {
	Topics []TopicEntry `json:"topics"`
}

// TopicEntry is one topic in the catalog listing.
type TopicEntry struct {
	Module        string `json:"module"`
	Topic         string `json:"topic"`
	QuestionCount int    `json:"question_count"`
}

// ModulesResponse is the response body for GET /v1/modules.
type ModulesResponse struct {
	Modules []ModuleEntry `json:"modules"`
}

// ModuleEntry is one module in the catalog listing.
type ModuleEntry struct {
	Module        string   `json:"module"`
	Topics        []string `json:"topics"`
	QuestionCount int      `json:"question_count"`
}

func (s *Server) handleStartSession(c echo.Context) error {
	var req interview.StartRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := s.svc.StartSession(c.Request().Context(), req)
	if err != nil {
		return s.mapError(c, err)
	}

	return c.JSON(http.StatusCreated, result)
}

func (s *Server) handleAnswer(c echo.Context) error {
	var req AnswerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	id := c.Param("id")
	ctx := c.Request().Context()

	if req.Clarification {
		result, err := s.svc.HandleClarification(ctx, id, req.Message)
		if err != nil {
			return s.mapError(c, err)
		}
		return c.JSON(http.StatusOK, result)
	}

	result, err := s.svc.ProcessAnswer(ctx, id, req.Message)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleSubmission(c echo.Context) error {
	var req SubmissionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := s.svc.HandleSubmission(c.Request().Context(), c.Param("id"), req.Code)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleFeedback(c echo.Context) error {
	if s.feedback == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "feedback generation is not enabled")
	}

	ctx := c.Request().Context()
	sess, err := s.svc.GetSession(ctx, c.Param("id"))
	if err != nil {
		return s.mapError(c, err)
	}

	fb, err := s.feedback.Generate(ctx, sess)
	if err != nil {
		return s.mapError(c, err)
	}

	return c.JSON(http.StatusOK, FeedbackResponse{
		SessionID: sess.ID,
		Feedback:  fb,
	})
}

func (s *Server) handleGetSession(c echo.Context) error {
	sess, err := s.svc.GetSession(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (s *Server) handleListSessions(c echo.Context) error {
	sessions, err := s.svc.ListSessions(c.Request().Context())
	if err != nil {
		return s.mapError(c, err)
	}

	topic := c.QueryParam("topic")
	phase := c.QueryParam("phase")

	summaries := make([]SessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		if topic != "" && sess.Topic != topic {
			continue
		}
		if phase != "" && sess.Phase.String() != phase {
			continue
		}
		summaries = append(summaries, summarize(sess))
	}

	return c.JSON(http.StatusOK, ListSessionsResponse{
		Sessions: summaries,
		Count:    len(summaries),
	})
}

func (s *Server) handleTopics(c echo.Context) error {
	if s.catalog == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "question bank is not enabled")
	}

	topics := s.catalog.Topics()
	resp := TopicsResponse{Topics: make([]TopicEntry, 0, len(topics))}
	for _, t := range topics {
		resp.Topics = append(resp.Topics, TopicEntry{
			Module:        t.Module,
			Topic:         t.Topic,
			QuestionCount: t.QuestionCount,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleModules(c echo.Context) error {
	if s.catalog == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "question bank is not enabled")
	}

	modules := s.catalog.Modules()
	resp := ModulesResponse{Modules: make([]ModuleEntry, 0, len(modules))}
	for _, m := range modules {
		resp.Modules = append(resp.Modules, ModuleEntry{
			Module:        m.Module,
			Topics:        m.Topics,
			QuestionCount: m.QuestionCount,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func summarize(sess *session.Session) SessionSummary {
	return SessionSummary{
		SessionID:        sess.ID,
		Topic:            sess.Topic,
		Type:             sess.Type.String(),
		Phase:            sess.Phase.String(),
		CompletionReason: sess.CompletionReason.String(),
		CreatedAt:        sess.CreatedAt,
		UpdatedAt:        sess.UpdatedAt,
	}
}

// mapError translates service errors into HTTP status codes. Unexpected
// errors get a generic body; details stay in the log.
func (s *Server) mapError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	case errors.Is(err, interview.ErrInvalidRequest):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrVersionConflict),
		errors.Is(err, interview.ErrConcurrentModification):
		return echo.NewHTTPError(http.StatusConflict, "concurrent session modification, retry the request")
	default:
		s.logger.Error("request failed",
			zap.String("path", c.Path()),
			zap.String("session_id", c.Param("id")),
			zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
