package policy

import (
	"github.com/fyrsmithlabs/interviewd/internal/oracle"
	"github.com/fyrsmithlabs/interviewd/internal/session"
)

// Candidate-facing messages for decisions the policy makes itself. The
// oracle's own feedback is preserved wherever the proposal is applied
// as-is.
const (
	// FeedbackRetryGeneric re-serves the current question after a
	// rejected answer when the oracle supplied no feedback of its own.
	FeedbackRetryGeneric = "Let's try that again. Please provide a more detailed answer to the question."

	// FeedbackFallback is served when the oracle was unreachable or
	// returned something unusable.
	FeedbackFallback = "Please provide a more detailed answer to the question."

	// FeedbackTransitionAffirmed announces the coding phase when the
	// oracle proposed the transition and the thresholds agree.
	FeedbackTransitionAffirmed = "Excellent! You've demonstrated strong understanding. Now let's move to the coding phase. You can start coding."

	// FeedbackTransitionOverride announces the coding phase when the
	// threshold was reached but the oracle proposed something else.
	FeedbackTransitionOverride = "Great! Now let's move to the coding phase. You can start coding."

	// FeedbackApproachComplete closes an approach-type session that
	// earned natural completion.
	FeedbackApproachComplete = "Great discussion! You can submit the session and check your feedback."

	// FeedbackForcedTermination closes a session that hit the bad-answer
	// limit.
	FeedbackForcedTermination = "I think we should end this interview here. You might want to review the material and come back better prepared next time. Please end the session and come back when you're better prepared."

	// FeedbackClarificationLimit answers a clarification request that
	// exceeded its budget.
	FeedbackClarificationLimit = "You've reached the maximum clarification attempts. Let's proceed with coding based on your current understanding."
)

// Decision is the reconciled outcome of one answer: the single source of
// truth the orchestrator applies to the session. Quality drives marking
// (bad rejects the answer, good on a progressing action accepts it, good
// on a retry records no judgment at all).
type Decision struct {
	Action       oracle.Action
	Quality      oracle.Quality
	NextQuestion string
	Feedback     string

	// CompletionReason is set only when Action is ActionCompleteSession.
	CompletionReason session.CompletionReason

	// Overridden marks decisions where the proposal violated a flow rule
	// and was corrected. OverrideReason says which rule, for the log.
	Overridden     bool
	OverrideReason string
}

// Terminal reports whether applying the decision ends the session.
func (d Decision) Terminal() bool {
	return d.Action == oracle.ActionCompleteSession
}

// Reconcile checks an oracle proposal against the flow rules and returns
// the decision that actually applies. The session snapshot carries the
// latest answer recorded but not yet judged; Reconcile never mutates it.
//
// The proposal is advisory. Its quality label is normalized against its
// action, termination and phase transitions happen exactly when the
// thresholds say so, and an unusable proposal degrades to re-serving the
// current question.
func Reconcile(s *session.Session, prop oracle.Proposal) Decision {
	quality := normalizeQuality(prop)

	// An empty answer is a valid bad answer, never a good one.
	if fu, ok := s.OpenFollowUp(); ok && !fu.Answered() {
		quality = oracle.QualityBad
	}

	if quality == oracle.QualityBad {
		return reconcileBad(s, prop)
	}
	return reconcileGood(s, prop)
}

// FallbackDecision substitutes for the oracle when it fails outright.
// The answer stays recorded verbatim and unjudged, so an oracle outage
// can never push a session toward termination.
func FallbackDecision() Decision {
	return Decision{
		Action:   oracle.ActionRetrySame,
		Quality:  oracle.QualityGood,
		Feedback: FeedbackFallback,
	}
}

// normalizeQuality forces the quality label to match the proposed action:
// a retry implies the answer was bad, an advance implies it was good. Only
// a completion proposal carries an independent judgment.
func normalizeQuality(prop oracle.Proposal) oracle.Quality {
	switch prop.Action {
	case oracle.ActionRetrySame:
		return oracle.QualityBad
	case oracle.ActionNextQuestion, oracle.ActionTransitionPhase:
		return oracle.QualityGood
	}
	if prop.Quality.IsValid() {
		return prop.Quality
	}
	return oracle.QualityBad
}

func reconcileBad(s *session.Session, prop oracle.Proposal) Decision {
	if ShouldForceTermination(s, true) {
		d := Decision{
			Action:           oracle.ActionCompleteSession,
			Quality:          oracle.QualityBad,
			Feedback:         FeedbackForcedTermination,
			CompletionReason: session.ReasonTooManyBadAnswers,
		}
		if prop.Action != oracle.ActionCompleteSession {
			d.Overridden = true
			d.OverrideReason = "bad answer limit reached"
		}
		return d
	}

	d := Decision{
		Action:   oracle.ActionRetrySame,
		Quality:  oracle.QualityBad,
		Feedback: prop.Feedback,
	}
	if d.Feedback == "" {
		d.Feedback = FeedbackRetryGeneric
	}
	switch prop.Action {
	case oracle.ActionRetrySame:
	case oracle.ActionCompleteSession:
		d.Overridden = true
		d.OverrideReason = "completion proposed below the bad answer limit"
	default:
		d.Overridden = true
		d.OverrideReason = "empty answer cannot advance the session"
	}
	return d
}

func reconcileGood(s *session.Session, prop oracle.Proposal) Decision {
	// Thresholds count the current answer as accepted, so the transition
	// fires on the call that crosses the line, not one call later.
	projected := s.Clone()
	_ = projected.AcceptAnswer()

	if MayTransitionToCoding(projected) {
		d := Decision{
			Action:   oracle.ActionTransitionPhase,
			Quality:  oracle.QualityGood,
			Feedback: prop.Feedback,
		}
		if prop.Action == oracle.ActionTransitionPhase {
			if d.Feedback == "" {
				d.Feedback = FeedbackTransitionAffirmed
			}
			return d
		}
		d.Feedback = FeedbackTransitionOverride
		d.Overridden = true
		d.OverrideReason = "coding transition threshold reached"
		return d
	}

	if MayCompleteApproach(projected) {
		d := Decision{
			Action:           oracle.ActionCompleteSession,
			Quality:          oracle.QualityGood,
			Feedback:         FeedbackApproachComplete,
			CompletionReason: session.ReasonNatural,
		}
		if prop.Action != oracle.ActionTransitionPhase && prop.Action != oracle.ActionCompleteSession {
			d.Overridden = true
			d.OverrideReason = "approach completion threshold reached"
		}
		return d
	}

	if prop.Action == oracle.ActionNextQuestion && prop.NextQuestion != "" {
		return Decision{
			Action:       oracle.ActionNextQuestion,
			Quality:      oracle.QualityGood,
			NextQuestion: prop.NextQuestion,
			Feedback:     prop.Feedback,
		}
	}

	// The oracle wanted to advance or end the session before the
	// thresholds allow it, or offered no question to advance with. The
	// answer was good, so re-serve the current question unjudged rather
	// than charge the candidate for the oracle's mistake.
	d := Decision{
		Action:     oracle.ActionRetrySame,
		Quality:    oracle.QualityGood,
		Feedback:   prop.Feedback,
		Overridden: true,
	}
	if d.Feedback == "" {
		d.Feedback = FeedbackRetryGeneric
	}
	switch prop.Action {
	case oracle.ActionTransitionPhase:
		d.OverrideReason = "phase transition proposed below the good answer threshold"
	case oracle.ActionCompleteSession:
		d.OverrideReason = "completion proposed below the good answer threshold"
	default:
		d.OverrideReason = "proposal carried no next question"
	}
	return d
}
