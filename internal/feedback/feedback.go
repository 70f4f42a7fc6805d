// Package feedback turns a completed interview session into structured,
// candidate-facing feedback. The generator shares the oracle's raw
// completion client but is otherwise independent of the decision flow: a
// feedback call can fail or hallucinate without touching session state,
// so the only hard error here is asking for feedback on a session that
// is still running.
package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/interviewd/internal/oracle"
	"github.com/fyrsmithlabs/interviewd/internal/redact"
	"github.com/fyrsmithlabs/interviewd/internal/session"
)

// ErrSessionNotCompleted is returned when feedback is requested for a
// session that has not reached the completed phase.
var ErrSessionNotCompleted = errors.New("feedback: session not completed")

// Sampling parameters for feedback generation. Higher temperature than
// decisions: feedback should read as prose, not as a verdict.
const (
	feedbackTemperature = 0.7
	feedbackMaxTokens   = 1000
)

// Feedback is the structured report served to the candidate. Metrics
// values are free-form descriptions ("improved", "needs work"), not
// numbers. All collection fields are non-nil after generation so the
// serialized form is stable.
type Feedback struct {
	Summary             string            `json:"summary"`
	PositivePoints      []string          `json:"positive_points"`
	PointsToAddress     []string          `json:"points_to_address"`
	AreasForImprovement []string          `json:"areas_for_improvement"`
	Metrics             map[string]string `json:"metrics"`
	DetailedFeedback    string            `json:"detailed_feedback"`
	Recommendations     []string          `json:"recommendations"`
}

// Generator produces feedback for completed sessions.
type Generator struct {
	client oracle.Client
	scrub  redact.Scrubber
	logger *zap.Logger
}

// NewGenerator wires a generator over the shared completion client. A nil
// scrubber disables prompt scrubbing.
func NewGenerator(client oracle.Client, scrub redact.Scrubber, logger *zap.Logger) *Generator {
	if scrub == nil {
		scrub = redact.Disabled{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{client: client, scrub: scrub, logger: logger}
}

// Generate builds the transcript prompt for s, asks the model for
// feedback, and parses the reply. The model is advisory here the same
// way it is for decisions: when it is unreachable or returns something
// unusable, the candidate gets deterministic fallback feedback instead
// of an error. The one precondition is that the session is over.
func (g *Generator) Generate(ctx context.Context, s *session.Session) (Feedback, error) {
	if s == nil || !s.Completed() {
		return Feedback{}, ErrSessionNotCompleted
	}

	// No completion client (static oracle deployments) means no model to
	// ask; the candidate still gets the fallback report, not an error.
	if g.client == nil {
		return Fallback(), nil
	}

	completion := renderPrompt(s)
	completion.Prompt = g.scrub.Scrub(completion.Prompt)

	raw, err := g.client.Complete(ctx, completion)
	if err != nil {
		g.logger.Warn("feedback generation failed, serving fallback",
			zap.String("session_id", s.ID),
			zap.Error(err))
		return Fallback(), nil
	}

	fb, err := parseFeedback(raw)
	if err != nil {
		g.logger.Warn("feedback response malformed, serving fallback",
			zap.String("session_id", s.ID),
			zap.Error(err))
		return Fallback(), nil
	}

	g.logger.Debug("feedback generated",
		zap.String("session_id", s.ID),
		zap.Int("positive_points", len(fb.PositivePoints)),
		zap.Int("recommendations", len(fb.Recommendations)))
	return fb, nil
}

// Fallback is the feedback served when generation fails. Same shape as a
// real report so clients never need a second code path.
func Fallback() Feedback {
	return Feedback{
		Summary:             "We encountered an issue generating feedback for this session.",
		PositivePoints:      []string{},
		PointsToAddress:     []string{"System error"},
		AreasForImprovement: []string{"Try again later"},
		Metrics:             map[string]string{},
		DetailedFeedback:    "",
		Recommendations:     []string{},
	}
}

// parseFeedback decodes the model's reply, tolerating markdown fences.
// A reply without a summary is useless to the candidate and counts as
// malformed. Missing collections come back as empty, never nil.
func parseFeedback(raw string) (Feedback, error) {
	content := stripCodeFences(raw)
	if content == "" {
		return Feedback{}, errors.New("empty completion")
	}

	var fb Feedback
	if err := json.Unmarshal([]byte(content), &fb); err != nil {
		return Feedback{}, err
	}
	fb.Summary = strings.TrimSpace(fb.Summary)
	if fb.Summary == "" {
		return Feedback{}, errors.New("missing summary")
	}

	if fb.PositivePoints == nil {
		fb.PositivePoints = []string{}
	}
	if fb.PointsToAddress == nil {
		fb.PointsToAddress = []string{}
	}
	if fb.AreasForImprovement == nil {
		fb.AreasForImprovement = []string{}
	}
	if fb.Metrics == nil {
		fb.Metrics = map[string]string{}
	}
	if fb.Recommendations == nil {
		fb.Recommendations = []string{}
	}
	return fb, nil
}

// stripCodeFences removes a wrapping markdown code block. Models wrap
// JSON in ```json fences often enough that this is table stakes.
func stripCodeFences(raw string) string {
	content := strings.TrimSpace(raw)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
