// Package events publishes session lifecycle events for observers. The
// event stream is best-effort: a lost event never fails the request that
// produced it, and nothing in the interview flow reads events back.
package events

import (
	"context"
	"fmt"
	"time"
)

// Event types, one per observable state change.
const (
	TypeSessionStarted        = "session.started"
	TypeAnswerAccepted        = "answer.accepted"
	TypeAnswerRejected        = "answer.rejected"
	TypePhaseTransitioned     = "phase.transitioned"
	TypeClarificationAnswered = "clarification.answered"
	TypeSessionCompleted      = "session.completed"
)

// Event is one session lifecycle change. Payload carries type-specific
// details (feedback text, completion reason) and stays small: observers
// needing full state fetch the session.
type Event struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	Type      string         `json:"type"`
	Phase     string         `json:"phase"`
	At        time.Time      `json:"at"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Publisher is the outbound event seam.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Subject returns the broker subject for a session's event type.
// Observers subscribe to "interviews.{session_id}.*" for one session or
// "interviews.>" for everything.
func Subject(sessionID, eventType string) string {
	return fmt.Sprintf("interviews.%s.%s", sessionID, eventType)
}

// NopPublisher drops everything. Used when eventing is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, ev Event) error { return nil }
func (NopPublisher) Close() error                                { return nil }

var _ Publisher = NopPublisher{}
