// Package interview implements the session state machine: one service
// that starts sessions, judges answers through the oracle under the flow
// policy's authority, handles coding-phase clarifications and the final
// submission. All session mutation funnels through here; every other
// package either feeds it (oracle, retrieval, questionbank) or observes
// it (events, feedback).
package interview

import (
	"context"
	"errors"

	"github.com/fyrsmithlabs/interviewd/internal/questionbank"
	"github.com/fyrsmithlabs/interviewd/internal/session"
)

const instrumentationName = "github.com/fyrsmithlabs/interviewd/internal/interview"

var (
	// ErrInvalidRequest marks client mistakes: unknown interview type,
	// missing topic, clarifying outside the coding phase.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrConcurrentModification is returned when a save conflicts twice
	// in a row. Transient: the caller may retry the whole request.
	ErrConcurrentModification = errors.New("concurrent session modification")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("interview service is closed")
)

// Candidate-facing messages owned by the orchestrator. Messages tied to
// judgment decisions live in the policy package.
const (
	// FirstFollowUpQuestion opens every session. The first exchange is
	// always this prompt against the base question; the oracle only
	// takes over once there is an answer to judge.
	FirstFollowUpQuestion = "Can you walk me through your thought process on how you would approach this problem?"

	// MessageCodingGuidance answers a plain chat message sent while the
	// candidate should be coding.
	MessageCodingGuidance = "You can start coding. If you need any clarification, ask here."

	// MessageSubmissionReceived acknowledges the final code submission.
	MessageSubmissionReceived = "Code submitted successfully. You can now generate feedback."

	// MessageClarificationFallback is served when the oracle cannot
	// produce a clarification response.
	MessageClarificationFallback = "Please clarify what specific aspect you need help with."

	// MessageSessionComplete is the terminal no-op reply for any
	// interaction with an already-completed session.
	MessageSessionComplete = "This interview has ended. You can generate feedback or start a new session."
)

// Service is the orchestrator API.
type Service interface {
	// StartSession creates a session: draws a base question (or takes
	// the caller's), persists the initial state, publishes
	// session.started.
	StartSession(ctx context.Context, req StartRequest) (*StartResult, error)

	// ProcessAnswer runs one turn of the verbal phase: record the
	// answer, consult the oracle, reconcile through the flow policy,
	// apply exactly one transition, persist. Completed sessions get a
	// terminal result with zero writes.
	ProcessAnswer(ctx context.Context, sessionID, answer string) (*AnswerResult, error)

	// HandleClarification serves a coding-phase clarification request,
	// enforcing the per-question and per-session budgets before any
	// oracle call.
	HandleClarification(ctx context.Context, sessionID, text string) (*ClarificationResult, error)

	// HandleSubmission ends the session. Code content is not judged
	// here; feedback generation evaluates the transcript later.
	HandleSubmission(ctx context.Context, sessionID, code string) (*SubmissionResult, error)

	// GetSession returns a copy of the session.
	GetSession(ctx context.Context, sessionID string) (*session.Session, error)

	// ListSessions returns all sessions, most recently created first.
	ListSessions(ctx context.Context) ([]*session.Session, error)

	Close() error
}

// QuestionSource draws base questions. Satisfied by *questionbank.Bank.
type QuestionSource interface {
	Draw(module, topic string) (questionbank.Question, error)
}

// StartRequest describes the session to create. BaseQuestion overrides
// the bank draw; Module/Topic narrow it.
type StartRequest struct {
	Module       string                `json:"module,omitempty"`
	Topic        string                `json:"topic"`
	Type         session.InterviewType `json:"interview_type"`
	BaseQuestion string                `json:"base_question,omitempty"`
}

// StartResult is the created session's opening state.
type StartResult struct {
	SessionID    string                `json:"session_id"`
	Topic        string                `json:"topic"`
	Type         session.InterviewType `json:"interview_type"`
	Phase        session.Phase         `json:"phase"`
	BaseQuestion string                `json:"base_question"`
	Question     string                `json:"question"`
}

// AnswerResult is one turn's outcome. Message carries the next question
// or the feedback, whichever the decision produced.
type AnswerResult struct {
	SessionID       string        `json:"session_id"`
	Message         string        `json:"message"`
	Phase           session.Phase `json:"phase"`
	ReadyToCode     bool          `json:"ready_to_code"`
	SessionComplete bool          `json:"session_complete"`
}

// ClarificationResult reports the served response and the budget state.
type ClarificationResult struct {
	SessionID          string `json:"session_id"`
	Message            string `json:"message"`
	ClarificationCount int    `json:"clarification_count"`
	MaxClarifications  int    `json:"max_clarifications"`
	LimitReached       bool   `json:"limit_reached"`
}

// SubmissionResult acknowledges the submission that ended the session.
type SubmissionResult struct {
	SessionID       string        `json:"session_id"`
	Message         string        `json:"message"`
	Phase           session.Phase `json:"phase"`
	SessionComplete bool          `json:"session_complete"`
}
