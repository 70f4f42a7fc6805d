package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/interviewd/internal/events"
	"github.com/fyrsmithlabs/interviewd/internal/oracle"
	"github.com/fyrsmithlabs/interviewd/internal/policy"
	"github.com/fyrsmithlabs/interviewd/internal/session"
	"github.com/fyrsmithlabs/interviewd/internal/store"
)

// HandleClarification serves one coding-phase clarification. The budgets
// are enforced before any oracle call, so oracle variance can never
// stretch them: over budget means the fixed proceed-with-coding message,
// no counter movement, no write.
func (s *service) HandleClarification(ctx context.Context, sessionID, text string) (*ClarificationResult, error) {
	ctx, span := s.tracer.Start(ctx, "interview.handle_clarification")
	defer span.End()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrInvalidRequest)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: clarification text is required", ErrInvalidRequest)
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

	if sess.Completed() {
		return &ClarificationResult{
			SessionID:         sess.ID,
			Message:           MessageSessionComplete,
			MaxClarifications: policy.MaxClarificationsPerQuestion,
		}, nil
	}
	if sess.Phase != session.PhaseCoding {
		return nil, fmt.Errorf("%w: clarifications are only available in the coding phase", ErrInvalidRequest)
	}

	if over := clarificationLimit(sess); over != nil {
		return over, nil
	}

	// The oracle writes the response; its failure costs the candidate
	// nothing but a generic nudge. Either way the exchange is recorded
	// and counted.
	response := s.clarify(ctx, sess, text)
	response += clarificationNote(sess)

	if err := sess.AppendClarification(text, response); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("append clarification: %w", err)
	}

	if err := s.store.Save(ctx, sess, sess.Version); err != nil {
		if !errors.Is(err, store.ErrVersionConflict) {
			span.RecordError(err)
			return nil, fmt.Errorf("save session: %w", err)
		}
		fresh, lerr := s.store.Load(ctx, sessionID)
		if lerr != nil {
			span.RecordError(lerr)
			return nil, fmt.Errorf("reload session: %w", lerr)
		}
		if fresh.Completed() {
			return &ClarificationResult{
				SessionID:         fresh.ID,
				Message:           MessageSessionComplete,
				MaxClarifications: policy.MaxClarificationsPerQuestion,
			}, nil
		}
		if over := clarificationLimit(fresh); over != nil {
			return over, nil
		}
		if aerr := fresh.AppendClarification(text, response); aerr != nil {
			span.RecordError(aerr)
			return nil, fmt.Errorf("append clarification: %w", aerr)
		}
		if serr := s.store.Save(ctx, fresh, fresh.Version); serr != nil {
			if errors.Is(serr, store.ErrVersionConflict) {
				return nil, ErrConcurrentModification
			}
			span.RecordError(serr)
			return nil, fmt.Errorf("save session: %w", serr)
		}
		sess = fresh
	}

	s.publish(ctx, events.Event{
		SessionID: sess.ID,
		Type:      events.TypeClarificationAnswered,
		Phase:     sess.Phase.String(),
		Payload:   map[string]any{"request": text},
	})

	return &ClarificationResult{
		SessionID:          sess.ID,
		Message:            response,
		ClarificationCount: currentQuestionClarifications(sess),
		MaxClarifications:  policy.MaxClarificationsPerQuestion,
	}, nil
}

// HandleSubmission ends the session. A coding-phase submission is the
// natural finish; a verbal-phase submission is the candidate bailing out
// early and completes as manual. Code content is never judged here.
func (s *service) HandleSubmission(ctx context.Context, sessionID, code string) (*SubmissionResult, error) {
	ctx, span := s.tracer.Start(ctx, "interview.handle_submission")
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

	if sess.Completed() {
		return &SubmissionResult{
			SessionID:       sess.ID,
			Message:         MessageSessionComplete,
			Phase:           sess.Phase,
			SessionComplete: true,
		}, nil
	}

	reason := session.ReasonNatural
	if sess.Phase != session.PhaseCoding {
		reason = session.ReasonManual
	}
	if err := sess.Complete(reason); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("complete session: %w", err)
	}

	if err := s.store.Save(ctx, sess, sess.Version); err != nil {
		if !errors.Is(err, store.ErrVersionConflict) {
			span.RecordError(err)
			return nil, fmt.Errorf("save session: %w", err)
		}
		fresh, lerr := s.store.Load(ctx, sessionID)
		if lerr != nil {
			span.RecordError(lerr)
			return nil, fmt.Errorf("reload session: %w", lerr)
		}
		if !fresh.Completed() {
			if cerr := fresh.Complete(reason); cerr != nil {
				span.RecordError(cerr)
				return nil, fmt.Errorf("complete session: %w", cerr)
			}
			if serr := s.store.Save(ctx, fresh, fresh.Version); serr != nil {
				if errors.Is(serr, store.ErrVersionConflict) {
					return nil, ErrConcurrentModification
				}
				span.RecordError(serr)
				return nil, fmt.Errorf("save session: %w", serr)
			}
		}
		sess = fresh
	}

	s.completedCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", sess.CompletionReason.String()),
	))
	s.logger.Info("session completed by submission",
		zap.String("session_id", sess.ID),
		zap.String("reason", sess.CompletionReason.String()))

	s.publish(ctx, events.Event{
		SessionID: sess.ID,
		Type:      events.TypeSessionCompleted,
		Phase:     sess.Phase.String(),
		Payload:   map[string]any{"reason": sess.CompletionReason.String()},
	})

	return &SubmissionResult{
		SessionID:       sess.ID,
		Message:         MessageSubmissionReceived,
		Phase:           sess.Phase,
		SessionComplete: true,
	}, nil
}

// clarify asks the oracle for a clarification response under the same
// bounded timeout as decisions. The request text is scrubbed on the way
// out; the session records it verbatim.
func (s *service) clarify(ctx context.Context, sess *session.Session, text string) string {
	oracleCtx, cancel := context.WithTimeout(ctx, s.config.OracleTimeout)
	defer cancel()

	response, err := s.oracle.Clarify(oracleCtx, oracle.ClarificationRequest{
		SessionID:    sess.ID,
		BaseQuestion: sess.BaseQuestion,
		Question:     s.scrub.Scrub(text),
	})
	if err != nil {
		s.fallbackCounter.Add(ctx, 1)
		s.logger.Warn("clarification generation failed, serving fallback",
			zap.String("session_id", sess.ID),
			zap.Error(err))
		return MessageClarificationFallback
	}
	return response
}

// clarificationLimit returns the over-budget result, or nil while budget
// remains.
func clarificationLimit(sess *session.Session) *ClarificationResult {
	questionCount := currentQuestionClarifications(sess)
	questionExceeded, sessionExceeded := policy.ClampClarifications(questionCount, sess.CodingClarificationCount)
	if !questionExceeded && !sessionExceeded {
		return nil
	}
	return &ClarificationResult{
		SessionID:          sess.ID,
		Message:            policy.FeedbackClarificationLimit,
		ClarificationCount: questionCount,
		MaxClarifications:  policy.MaxClarificationsPerQuestion,
		LimitReached:       true,
	}
}

// clarificationNote tells the candidate how much budget is left, counting
// the exchange about to be recorded.
func clarificationNote(sess *session.Session) string {
	remaining := policy.MaxClarificationsPerQuestion - currentQuestionClarifications(sess) - 1
	switch {
	case remaining > 1:
		return fmt.Sprintf("\n\n[Note: You have %d more clarification attempts before coding.]", remaining)
	case remaining == 1:
		return "\n\n[Note: You have 1 more clarification attempt before coding.]"
	default:
		return "\n\n[Note: This is your final clarification attempt before coding.]"
	}
}

// currentQuestionClarifications reads the per-question counter off the
// trailing follow-up, the question the candidate is coding against.
func currentQuestionClarifications(sess *session.Session) int {
	if n := len(sess.FollowUps); n > 0 {
		return sess.FollowUps[n-1].ClarificationCount
	}
	return 0
}
