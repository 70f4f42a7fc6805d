package session

import (
	"errors"
	"fmt"
	"time"
)

// timeNow is a variable for testing purposes (allows mocking time).
var timeNow = time.Now

var (
	// ErrCompleted indicates a mutation was attempted on a completed session.
	ErrCompleted = errors.New("session is completed")

	// ErrNoOpenQuestion indicates there is no follow-up awaiting an answer.
	ErrNoOpenQuestion = errors.New("no open follow-up question")

	// ErrUnresolvedQuestion indicates the trailing follow-up has not been
	// resolved, so a new one cannot be appended.
	ErrUnresolvedQuestion = errors.New("trailing follow-up is unresolved")
)

// Session is the aggregate root: the persisted record of one candidate's
// interview attempt. ID, Topic, Type and BaseQuestion are immutable after
// creation; everything else mutates only through the methods below, which
// maintain the counter and sequencing invariants.
type Session struct {
	ID           string        `json:"session_id"`
	Topic        string        `json:"topic"`
	Type         InterviewType `json:"interview_type"`
	Phase        Phase         `json:"phase"`
	BaseQuestion string        `json:"base_question"`

	FollowUps      []FollowUp      `json:"follow_up_questions"`
	Clarifications []Clarification `json:"clarifications,omitempty"`

	// BadAnswerCount is the total number of rejected answers across the
	// session. Monotonically non-decreasing.
	BadAnswerCount int `json:"bad_answer_count"`

	// ConsecutiveBadAnswerCount resets to zero on every accepted answer.
	// Always <= BadAnswerCount.
	ConsecutiveBadAnswerCount int `json:"consecutive_bad_answer_count"`

	// CodingClarificationCount counts clarification requests made after
	// entering the coding phase. Never incremented in any other phase.
	CodingClarificationCount int `json:"coding_clarification_count"`

	CompletionReason CompletionReason `json:"completion_reason,omitempty"`

	// Version supports optimistic concurrency at the store layer. The
	// store increments it on every successful save.
	Version int64 `json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates a session in the verbal phase with zero counters and one
// open follow-up question.
func New(id, topic string, typ InterviewType, baseQuestion, firstFollowUp string) *Session {
	now := timeNow()
	return &Session{
		ID:           id,
		Topic:        topic,
		Type:         typ,
		Phase:        PhaseVerbal,
		BaseQuestion: baseQuestion,
		FollowUps: []FollowUp{
			{Question: firstFollowUp, AskedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Completed reports whether the session has reached the terminal phase.
func (s *Session) Completed() bool { return s.Phase == PhaseCompleted }

// OpenFollowUp returns the trailing follow-up if it is still awaiting an
// answer. A rejected entry is also returned here: the same question stays
// current until an answer is accepted or the session ends.
func (s *Session) OpenFollowUp() (*FollowUp, bool) {
	last, ok := s.lastFollowUp()
	if !ok {
		return nil, false
	}
	if last.Answered() && !last.AnswerRejected {
		return nil, false
	}
	return last, true
}

// CurrentQuestion returns the question the candidate should be answering:
// the trailing follow-up when one exists, otherwise the base question.
func (s *Session) CurrentQuestion() string {
	if last, ok := s.lastFollowUp(); ok {
		return last.Question
	}
	return s.BaseQuestion
}

// RecordAnswer stores text as the trailing follow-up's answer before any
// judgment happens, so a failure later in the turn never loses the
// candidate's input. Recording the same text twice is a no-op, which makes
// re-entry after a cancelled request idempotent. Empty text is recorded as
// an empty answer; it is a valid (bad) answer, not an error.
func (s *Session) RecordAnswer(text string) error {
	if s.Completed() {
		return ErrCompleted
	}
	last, ok := s.lastFollowUp()
	if !ok {
		return ErrNoOpenQuestion
	}
	if last.Answer == text {
		return nil
	}
	last.Answer = text
	last.AnsweredAt = time.Time{}
	if text != "" {
		last.AnsweredAt = timeNow()
	}
	s.touch()
	return nil
}

// AcceptAnswer marks the trailing follow-up's answer as good and resets
// the consecutive-bad counter. The entry must hold a non-empty answer.
func (s *Session) AcceptAnswer() error {
	if s.Completed() {
		return ErrCompleted
	}
	last, ok := s.lastFollowUp()
	if !ok {
		return ErrNoOpenQuestion
	}
	if !last.Answered() {
		return fmt.Errorf("accepting unanswered question %q: %w", last.Question, ErrNoOpenQuestion)
	}
	last.AnswerRejected = false
	s.ConsecutiveBadAnswerCount = 0
	s.touch()
	return nil
}

// RejectAnswer marks the trailing follow-up's answer as bad and increments
// both bad-answer counters. Each call counts one attempt: a question that
// is rejected, retried and rejected again contributes twice.
func (s *Session) RejectAnswer() error {
	if s.Completed() {
		return ErrCompleted
	}
	last, ok := s.lastFollowUp()
	if !ok {
		return ErrNoOpenQuestion
	}
	last.AnswerRejected = true
	s.BadAnswerCount++
	s.ConsecutiveBadAnswerCount++
	s.touch()
	return nil
}

// AppendFollowUp adds the next question. The trailing entry must be
// resolved first: answered and accepted.
func (s *Session) AppendFollowUp(question string) error {
	if s.Completed() {
		return ErrCompleted
	}
	if last, ok := s.lastFollowUp(); ok {
		if !last.Answered() || last.AnswerRejected {
			return ErrUnresolvedQuestion
		}
	}
	s.FollowUps = append(s.FollowUps, FollowUp{Question: question, AskedAt: timeNow()})
	s.touch()
	return nil
}

// AppendClarification records a clarification exchange. In the coding
// phase it also advances the per-session and per-question counters.
func (s *Session) AppendClarification(request, response string) error {
	if s.Completed() {
		return ErrCompleted
	}
	s.Clarifications = append(s.Clarifications, Clarification{
		Request:  request,
		Response: response,
		At:       timeNow(),
	})
	if s.Phase == PhaseCoding {
		s.CodingClarificationCount++
		if last, ok := s.lastFollowUp(); ok {
			last.ClarificationCount++
		}
	}
	s.touch()
	return nil
}

// TransitionTo moves the session to the next phase, enforcing the
// one-directional order. Moving to PhaseCompleted must go through Complete
// so a reason is always recorded.
func (s *Session) TransitionTo(next Phase) error {
	if next == PhaseCompleted {
		return fmt.Errorf("transition to %s requires a completion reason", PhaseCompleted)
	}
	if err := s.Phase.CanTransition(next); err != nil {
		return err
	}
	s.Phase = next
	s.touch()
	return nil
}

// Complete moves the session to the terminal phase and records why. It is
// an error to complete twice; callers treat completed sessions as
// read-only.
func (s *Session) Complete(reason CompletionReason) error {
	if err := s.Phase.CanTransition(PhaseCompleted); err != nil {
		return err
	}
	if reason == ReasonNone || !reason.IsValid() {
		return fmt.Errorf("invalid completion reason: %q", reason)
	}
	s.Phase = PhaseCompleted
	s.CompletionReason = reason
	s.touch()
	return nil
}

// AnsweredCount returns the number of follow-ups holding an answer.
func (s *Session) AnsweredCount() int {
	n := 0
	for i := range s.FollowUps {
		if s.FollowUps[i].Answered() {
			n++
		}
	}
	return n
}

// GoodAnswerCount returns the number of answered follow-ups whose answer
// was not rejected.
func (s *Session) GoodAnswerCount() int {
	n := 0
	for i := range s.FollowUps {
		if s.FollowUps[i].Answered() && !s.FollowUps[i].AnswerRejected {
			n++
		}
	}
	return n
}

// RecentAnsweredPairs returns up to n of the most recent answered
// follow-ups, oldest first. Used to bound the conversation window sent to
// the oracle.
func (s *Session) RecentAnsweredPairs(n int) []FollowUp {
	answered := make([]FollowUp, 0, n)
	for i := len(s.FollowUps) - 1; i >= 0 && len(answered) < n; i-- {
		if s.FollowUps[i].Answered() {
			answered = append(answered, s.FollowUps[i])
		}
	}
	// Reverse into chronological order.
	for i, j := 0, len(answered)-1; i < j; i, j = i+1, j-1 {
		answered[i], answered[j] = answered[j], answered[i]
	}
	return answered
}

// Clone returns a deep copy. Stores hand out clones so callers never alias
// the stored record.
func (s *Session) Clone() *Session {
	c := *s
	c.FollowUps = make([]FollowUp, len(s.FollowUps))
	copy(c.FollowUps, s.FollowUps)
	if s.Clarifications != nil {
		c.Clarifications = make([]Clarification, len(s.Clarifications))
		copy(c.Clarifications, s.Clarifications)
	}
	return &c
}

// Validate checks the structural invariants. Stores call it before
// persisting; tests use it as a catch-all assertion.
func (s *Session) Validate() error {
	if s.ID == "" {
		return errors.New("session id is empty")
	}
	if !s.Type.IsValid() {
		return fmt.Errorf("invalid interview type: %q", s.Type)
	}
	if !s.Phase.IsValid() {
		return fmt.Errorf("invalid phase: %q", s.Phase)
	}
	if s.ConsecutiveBadAnswerCount > s.BadAnswerCount {
		return fmt.Errorf("consecutive bad answers (%d) exceed total bad answers (%d)",
			s.ConsecutiveBadAnswerCount, s.BadAnswerCount)
	}
	if s.BadAnswerCount < 0 || s.ConsecutiveBadAnswerCount < 0 || s.CodingClarificationCount < 0 {
		return errors.New("negative counter")
	}
	if s.Phase == PhaseCompleted && s.CompletionReason == ReasonNone {
		return errors.New("completed session has no completion reason")
	}
	if s.Phase != PhaseCompleted && s.CompletionReason != ReasonNone {
		return fmt.Errorf("completion reason %q set before completion", s.CompletionReason)
	}
	// All entries before the trailing one must be resolved.
	for i := 0; i < len(s.FollowUps)-1; i++ {
		if !s.FollowUps[i].Answered() {
			return fmt.Errorf("follow-up %d is unanswered but not trailing", i)
		}
	}
	return nil
}

func (s *Session) lastFollowUp() (*FollowUp, bool) {
	if len(s.FollowUps) == 0 {
		return nil, false
	}
	return &s.FollowUps[len(s.FollowUps)-1], true
}

func (s *Session) touch() {
	s.UpdatedAt = timeNow()
}
