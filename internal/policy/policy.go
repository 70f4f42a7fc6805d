// Package policy encodes the deterministic flow rules that gate and
// override the judgment oracle. Everything here is a pure function over a
// session snapshot: no IO, no clocks, no mutation of the input. The policy
// is authoritative — the oracle proposes, the policy decides.
package policy

import (
	"github.com/fyrsmithlabs/interviewd/internal/session"
)

// Flow thresholds. All comparisons are inclusive (>=).
const (
	// GoodAnswersForCoding is the number of good verbal answers a
	// coding-type session needs before moving to the coding phase.
	GoodAnswersForCoding = 5

	// GoodAnswersForApproachComplete is the number of good answers an
	// approach-type session needs to complete naturally.
	GoodAnswersForApproachComplete = 7

	// MaxConsecutiveBadAnswers ends an approach-type session early.
	MaxConsecutiveBadAnswers = 4

	// MaxBadAnswers ends a coding-type session early, consecutive or not.
	MaxBadAnswers = 4

	// MaxClarificationsPerQuestion caps clarification requests against a
	// single question in the coding phase.
	MaxClarificationsPerQuestion = 2

	// MaxClarificationsPerSession caps clarification requests across the
	// whole session.
	MaxClarificationsPerSession = 5
)

// GoodAnswerCount returns the number of answered follow-ups whose answer
// stands accepted. A rejected trailing entry does not count.
func GoodAnswerCount(s *session.Session) int {
	return s.GoodAnswerCount()
}

// MayTransitionToCoding reports whether a session has earned the move to
// the coding phase: coding-type interview with enough good answers.
func MayTransitionToCoding(s *session.Session) bool {
	return s.Type == session.TypeCoding && GoodAnswerCount(s) >= GoodAnswersForCoding
}

// MayCompleteApproach reports whether an approach-type session has earned
// natural completion.
func MayCompleteApproach(s *session.Session) bool {
	return s.Type == session.TypeApproach && GoodAnswerCount(s) >= GoodAnswersForApproachComplete
}

// ShouldForceTermination reports whether the session must end because of
// repeated bad answers. wouldBeRejected accounts for the current answer
// before its rejection has been recorded: the check fires on the call that
// crosses the threshold, not one call later.
//
// Approach-type sessions terminate on consecutive rejections; coding-type
// sessions terminate on total rejections.
func ShouldForceTermination(s *session.Session, wouldBeRejected bool) bool {
	consecutive := s.ConsecutiveBadAnswerCount
	total := s.BadAnswerCount
	if wouldBeRejected {
		consecutive++
		total++
	}
	switch s.Type {
	case session.TypeApproach:
		return consecutive >= MaxConsecutiveBadAnswers
	case session.TypeCoding:
		return total >= MaxBadAnswers
	}
	return false
}

// ClampClarifications reports which clarification budgets a further
// request would exceed, given the counts already consumed.
func ClampClarifications(questionCount, sessionCount int) (questionExceeded, sessionExceeded bool) {
	return questionCount >= MaxClarificationsPerQuestion,
		sessionCount >= MaxClarificationsPerSession
}
