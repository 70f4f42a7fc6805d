// Package oracle talks to the judgment oracle: the LLM that classifies
// candidate answers and proposes the next step of an interview. The oracle
// is advisory — its proposals are reconciled against the deterministic
// rules in internal/policy before anything is applied.
package oracle

import (
	"context"
	"errors"
)

var (
	// ErrMalformedProposal indicates the oracle returned output that could
	// not be parsed into a valid Proposal.
	ErrMalformedProposal = errors.New("malformed oracle proposal")

	// ErrUnavailable indicates the oracle could not be reached.
	ErrUnavailable = errors.New("oracle unavailable")
)

// Action is the oracle's proposed next step for a session.
type Action string

const (
	// ActionNextQuestion accepts the answer and serves a new follow-up.
	ActionNextQuestion Action = "next_question"

	// ActionRetrySame re-serves the current question with feedback.
	ActionRetrySame Action = "retry_same"

	// ActionTransitionPhase moves a coding-type session to the coding
	// phase, or completes an approach-type session.
	ActionTransitionPhase Action = "transition_phase"

	// ActionCompleteSession ends the session.
	ActionCompleteSession Action = "complete_session"
)

// IsValid reports whether a is a known action.
func (a Action) IsValid() bool {
	switch a {
	case ActionNextQuestion, ActionRetrySame, ActionTransitionPhase, ActionCompleteSession:
		return true
	}
	return false
}

func (a Action) String() string { return string(a) }

// Quality is the oracle's judgment of the candidate's latest answer.
type Quality string

const (
	QualityGood Quality = "good"
	QualityBad  Quality = "bad"
)

// IsValid reports whether q is a known quality label.
func (q Quality) IsValid() bool {
	return q == QualityGood || q == QualityBad
}

func (q Quality) String() string { return string(q) }

// Proposal is the oracle's structured decision for one answer. Exactly one
// of NextQuestion or Feedback is expected to carry content, depending on
// the action.
type Proposal struct {
	Action       Action  `json:"action"`
	Quality      Quality `json:"quality"`
	NextQuestion string  `json:"next_question,omitempty"`
	Feedback     string  `json:"feedback,omitempty"`
}

// QAPair is one answered follow-up included in the conversation window.
type QAPair struct {
	Question string
	Answer   string
}

// Request is the deterministic projection of a session sent to the
// oracle. Building it has no side effects; the same session state always
// produces the same request.
type Request struct {
	SessionID     string
	InterviewType string
	Phase         string

	BaseQuestion string

	// RecentPairs holds at most the two most recent answered follow-ups,
	// oldest first. Bounding the window keeps prompt size stable however
	// long the interview runs.
	RecentPairs []QAPair

	// CurrentQuestion is the question the latest answer responds to.
	CurrentQuestion string

	// Answer is the candidate's latest answer, verbatim.
	Answer string

	// Context holds retrieved reference snippets, possibly empty.
	Context []string

	AnsweredCount            int
	GoodAnswerCount          int
	BadAnswerCount           int
	ConsecutiveBadAnswers    int
	ClarificationsUsed       int
	WasCurrentAnswerRejected bool
}

// ClarificationRequest asks the oracle to answer a candidate's question
// about the problem during the coding phase.
type ClarificationRequest struct {
	SessionID    string
	BaseQuestion string

	// Question is the candidate's clarification request, verbatim.
	Question string
}

// Oracle proposes a decision for the latest answer of a session and
// answers coding-phase clarification requests.
//
// Implementations must honor ctx cancellation and return
// ErrUnavailable-wrapped errors for transport failures and
// ErrMalformedProposal-wrapped errors for unparsable output. Callers fall
// back to a deterministic decision on any error; nothing the oracle
// returns is applied without reconciliation.
type Oracle interface {
	Decide(ctx context.Context, req Request) (Proposal, error)
	Clarify(ctx context.Context, req ClarificationRequest) (string, error)
}

// Completion is one raw text-generation call. Temperature is passed
// through as-is (zero means deterministic sampling, not "use a default");
// MaxTokens of zero falls back to the client's default.
type Completion struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Client is the raw completion seam shared by the oracle and the feedback
// generator.
type Client interface {
	Complete(ctx context.Context, req Completion) (string, error)
}
