// Package session defines the interview session aggregate and its enums.
// A Session is the single mutable record of one candidate's interview
// attempt; all mutation goes through the orchestrator in internal/interview.
package session

import (
	"fmt"
	"time"
)

// InterviewType selects which thresholds govern a session.
type InterviewType string

const (
	// TypeApproach is a discussion-only interview; it completes from the
	// verbal phase and never enters coding.
	TypeApproach InterviewType = "approach"

	// TypeCoding is a two-stage interview: verbal discussion followed by a
	// coding phase.
	TypeCoding InterviewType = "coding"
)

// IsValid reports whether t is a known interview type.
func (t InterviewType) IsValid() bool {
	switch t {
	case TypeApproach, TypeCoding:
		return true
	}
	return false
}

func (t InterviewType) String() string { return string(t) }

// Phase is the coarse-grained stage of an interview.
type Phase string

const (
	// PhaseVerbal is the initial discussion stage.
	PhaseVerbal Phase = "verbal"

	// PhaseCoding is the post-transition stage where the candidate writes
	// code and may request bounded clarifications.
	PhaseCoding Phase = "coding"

	// PhaseCompleted is the absorbing terminal stage.
	PhaseCompleted Phase = "completed"
)

// IsValid reports whether p is a known phase.
func (p Phase) IsValid() bool {
	switch p {
	case PhaseVerbal, PhaseCoding, PhaseCompleted:
		return true
	}
	return false
}

func (p Phase) String() string { return string(p) }

// CanTransition checks that moving to next respects the one-directional
// phase order: verbal -> coding -> completed, or verbal -> completed.
// Completed is absorbing.
func (p Phase) CanTransition(next Phase) error {
	if !next.IsValid() {
		return fmt.Errorf("invalid target phase: %s", next)
	}
	switch p {
	case PhaseVerbal:
		if next == PhaseCoding || next == PhaseCompleted {
			return nil
		}
	case PhaseCoding:
		if next == PhaseCompleted {
			return nil
		}
	case PhaseCompleted:
		return fmt.Errorf("session already completed")
	default:
		return fmt.Errorf("invalid current phase: %s", p)
	}
	return fmt.Errorf("cannot transition from %s to %s", p, next)
}

// CompletionReason records why a session reached the completed phase.
type CompletionReason string

const (
	// ReasonNone means the session has not completed.
	ReasonNone CompletionReason = ""

	// ReasonNatural means the session ran its full course: enough good
	// answers, or a code submission.
	ReasonNatural CompletionReason = "natural"

	// ReasonTooManyBadAnswers means the bad-answer threshold ended the
	// session early.
	ReasonTooManyBadAnswers CompletionReason = "too_many_bad_answers"

	// ReasonManual means an operator or the candidate ended the session.
	ReasonManual CompletionReason = "manual"
)

// IsValid reports whether r is a known completion reason. ReasonNone is
// valid only while the session is not completed.
func (r CompletionReason) IsValid() bool {
	switch r {
	case ReasonNone, ReasonNatural, ReasonTooManyBadAnswers, ReasonManual:
		return true
	}
	return false
}

func (r CompletionReason) String() string { return string(r) }

// FollowUp is one dynamically generated question and the candidate's
// answer to it. Exactly one follow-up may be open (unanswered) at a time;
// the open entry is always the last one.
type FollowUp struct {
	Question string `json:"question"`

	// Answer is the candidate's latest answer text. Empty means the entry
	// is still open. The recorded text is verbatim; rejected answers are
	// kept, not erased.
	Answer string `json:"answer"`

	// AnswerRejected marks the answer as judged bad. A rejected entry is
	// still "resolved" for sequencing purposes when the session moves on.
	AnswerRejected bool `json:"answer_rejected"`

	// ClarificationCount counts clarification requests made against this
	// question while in the coding phase.
	ClarificationCount int `json:"clarification_count"`

	AskedAt    time.Time `json:"asked_at"`
	AnsweredAt time.Time `json:"answered_at,omitempty"`
}

// Answered reports whether the candidate has answered this follow-up.
func (f *FollowUp) Answered() bool { return f.Answer != "" }

// Clarification is one out-of-band question from the candidate and the
// response served for it.
type Clarification struct {
	Request  string    `json:"request"`
	Response string    `json:"response"`
	At       time.Time `json:"at"`
}
