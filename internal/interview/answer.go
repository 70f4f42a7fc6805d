package interview

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/interviewd/internal/events"
	"github.com/fyrsmithlabs/interviewd/internal/oracle"
	"github.com/fyrsmithlabs/interviewd/internal/policy"
	"github.com/fyrsmithlabs/interviewd/internal/session"
	"github.com/fyrsmithlabs/interviewd/internal/store"
)

// ProcessAnswer runs one judged turn. The answer is recorded on the open
// follow-up before anything can fail, so a cancelled or crashed turn
// resumes idempotently when the caller retries with the same text. One
// persisted update per invocation, at the end.
func (s *service) ProcessAnswer(ctx context.Context, sessionID, answer string) (*AnswerResult, error) {
	ctx, span := s.tracer.Start(ctx, "interview.process_answer")
	defer span.End()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrInvalidRequest)
	}
	span.SetAttributes(attribute.String("session_id", sessionID))

	unlock := s.locks.lock(sessionID)
	defer unlock()

	sess, err := s.store.Load(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("load session: %w", err)
	}
	span.SetAttributes(spanAttrs(sess)...)

	// Completed sessions are absorbing: same terminal result on every
	// call, zero writes.
	if sess.Completed() {
		return terminalAnswerResult(sess), nil
	}

	// Plain chat while coding changes nothing. Clarifications and the
	// final submission have their own entry points.
	if sess.Phase == session.PhaseCoding {
		return &AnswerResult{
			SessionID:   sess.ID,
			Message:     MessageCodingGuidance,
			Phase:       sess.Phase,
			ReadyToCode: true,
		}, nil
	}

	if err := sess.RecordAnswer(answer); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("record answer: %w", err)
	}

	proposal, usedFallback := s.decide(ctx, sess)

	result, decision, err := s.commitTurn(ctx, sess, proposal, usedFallback)
	if errors.Is(err, store.ErrVersionConflict) {
		// Another writer moved the session. Reconcile the same proposal
		// against fresh state once; a second conflict is the caller's
		// problem.
		fresh, lerr := s.store.Load(ctx, sessionID)
		if lerr != nil {
			span.RecordError(lerr)
			return nil, fmt.Errorf("reload session: %w", lerr)
		}
		if fresh.Completed() {
			return terminalAnswerResult(fresh), nil
		}
		if rerr := fresh.RecordAnswer(answer); rerr != nil {
			span.RecordError(rerr)
			return nil, fmt.Errorf("record answer: %w", rerr)
		}
		result, decision, err = s.commitTurn(ctx, fresh, proposal, usedFallback)
		if errors.Is(err, store.ErrVersionConflict) {
			return nil, ErrConcurrentModification
		}
		sess = fresh
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("action", decision.Action.String()),
		attribute.Bool("overridden", decision.Overridden),
	)
	s.answerCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", decision.Action.String()),
		attribute.String("quality", decision.Quality.String()),
	))
	if decision.Terminal() {
		s.completedCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("reason", decision.CompletionReason.String()),
		))
	}
	s.publishTurn(ctx, sess, decision)

	return result, nil
}

// commitTurn reconciles, applies and persists one decision. The session
// must already hold the recorded answer. Returns store.ErrVersionConflict
// unwrapped so the caller can retry against fresh state.
func (s *service) commitTurn(ctx context.Context, sess *session.Session, proposal oracle.Proposal, usedFallback bool) (*AnswerResult, policy.Decision, error) {
	var decision policy.Decision
	if usedFallback {
		decision = policy.FallbackDecision()
	} else {
		decision = policy.Reconcile(sess, proposal)
		if decision.Overridden {
			s.overrideCounter.Add(ctx, 1)
			s.logger.Warn("flow policy overrode oracle proposal",
				zap.String("session_id", sess.ID),
				zap.String("proposed_action", proposal.Action.String()),
				zap.String("applied_action", decision.Action.String()),
				zap.String("reason", decision.OverrideReason))
		}
	}

	if err := applyDecision(sess, decision); err != nil {
		return nil, decision, fmt.Errorf("apply %s: %w", decision.Action, err)
	}
	if err := s.store.Save(ctx, sess, sess.Version); err != nil {
		return nil, decision, err
	}
	return answerResult(sess, decision), decision, nil
}

// applyDecision performs exactly one state machine transition. Marking
// follows decision quality: a bad answer is rejected, a good answer on a
// progressing action is accepted, and a good answer on a retry (the
// oracle fallback) is left unjudged so an outage never moves counters.
func applyDecision(sess *session.Session, d policy.Decision) error {
	switch d.Action {
	case oracle.ActionNextQuestion:
		if err := sess.AcceptAnswer(); err != nil {
			return err
		}
		return sess.AppendFollowUp(d.NextQuestion)

	case oracle.ActionRetrySame:
		if d.Quality == oracle.QualityBad {
			return sess.RejectAnswer()
		}
		return nil

	case oracle.ActionTransitionPhase:
		if err := sess.AcceptAnswer(); err != nil {
			return err
		}
		return sess.TransitionTo(session.PhaseCoding)

	case oracle.ActionCompleteSession:
		if d.Quality == oracle.QualityBad {
			if err := sess.RejectAnswer(); err != nil {
				return err
			}
		} else if err := sess.AcceptAnswer(); err != nil {
			return err
		}
		return sess.Complete(d.CompletionReason)
	}
	return fmt.Errorf("unknown decision action %q", d.Action)
}

// answerResult projects the applied decision into the API shape. For
// next_question the message is the question itself; everything else
// speaks through the decision's feedback.
func answerResult(sess *session.Session, d policy.Decision) *AnswerResult {
	message := d.Feedback
	if d.Action == oracle.ActionNextQuestion {
		message = d.NextQuestion
	}
	return &AnswerResult{
		SessionID:       sess.ID,
		Message:         message,
		Phase:           sess.Phase,
		ReadyToCode:     sess.Phase == session.PhaseCoding,
		SessionComplete: sess.Completed(),
	}
}

func terminalAnswerResult(sess *session.Session) *AnswerResult {
	return &AnswerResult{
		SessionID:       sess.ID,
		Message:         MessageSessionComplete,
		Phase:           sess.Phase,
		SessionComplete: true,
	}
}

// publishTurn emits the lifecycle event for an applied decision. An
// unjudged retry (oracle fallback) changes nothing observable and emits
// nothing.
func (s *service) publishTurn(ctx context.Context, sess *session.Session, d policy.Decision) {
	ev := events.Event{
		SessionID: sess.ID,
		Phase:     sess.Phase.String(),
	}
	switch d.Action {
	case oracle.ActionNextQuestion:
		ev.Type = events.TypeAnswerAccepted
		ev.Payload = map[string]any{"question": d.NextQuestion}
	case oracle.ActionRetrySame:
		if d.Quality != oracle.QualityBad {
			return
		}
		ev.Type = events.TypeAnswerRejected
		ev.Payload = map[string]any{"feedback": d.Feedback}
	case oracle.ActionTransitionPhase:
		ev.Type = events.TypePhaseTransitioned
		ev.Payload = map[string]any{"to": sess.Phase.String()}
	case oracle.ActionCompleteSession:
		ev.Type = events.TypeSessionCompleted
		ev.Payload = map[string]any{"reason": d.CompletionReason.String()}
	default:
		return
	}
	s.publish(ctx, ev)
}
