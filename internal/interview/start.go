package interview

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/interviewd/internal/events"
	"github.com/fyrsmithlabs/interviewd/internal/session"
)

// StartSession creates a session around a base question and the fixed
// opening follow-up. No oracle call: the first judged turn happens when
// the candidate answers.
func (s *service) StartSession(ctx context.Context, req StartRequest) (*StartResult, error) {
	ctx, span := s.tracer.Start(ctx, "interview.start_session")
	defer span.End()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if !req.Type.IsValid() {
		return nil, fmt.Errorf("%w: unknown interview type %q", ErrInvalidRequest, req.Type)
	}

	topic := strings.TrimSpace(req.Topic)
	baseQuestion := strings.TrimSpace(req.BaseQuestion)
	if baseQuestion == "" {
		if s.questions == nil {
			return nil, fmt.Errorf("%w: base question is required when no question bank is configured", ErrInvalidRequest)
		}
		q, err := s.questions.Draw(req.Module, topic)
		if err != nil {
			return nil, fmt.Errorf("%w: no question available for module %q topic %q", ErrInvalidRequest, req.Module, topic)
		}
		baseQuestion = q.Text
		if topic == "" {
			topic = q.Topic
		}
	}
	if topic == "" {
		return nil, fmt.Errorf("%w: topic is required", ErrInvalidRequest)
	}

	sess := session.New(uuid.New().String(), topic, req.Type, baseQuestion, FirstFollowUpQuestion)
	if err := s.store.Create(ctx, sess); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("create session: %w", err)
	}

	span.SetAttributes(spanAttrs(sess)...)
	s.startedCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("interview_type", sess.Type.String()),
	))
	s.logger.Info("session started",
		zap.String("session_id", sess.ID),
		zap.String("topic", sess.Topic),
		zap.String("interview_type", sess.Type.String()))

	s.publish(ctx, events.Event{
		SessionID: sess.ID,
		Type:      events.TypeSessionStarted,
		Phase:     sess.Phase.String(),
		Payload: map[string]any{
			"topic":          sess.Topic,
			"interview_type": sess.Type.String(),
		},
	})

	return &StartResult{
		SessionID:    sess.ID,
		Topic:        sess.Topic,
		Type:         sess.Type,
		Phase:        sess.Phase,
		BaseQuestion: sess.BaseQuestion,
		Question:     FirstFollowUpQuestion,
	}, nil
}
