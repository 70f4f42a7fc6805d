package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/interviewd/internal/feedback"
	"github.com/fyrsmithlabs/interviewd/internal/interview"
	"github.com/fyrsmithlabs/interviewd/internal/policy"
	"github.com/fyrsmithlabs/interviewd/internal/session"
)

// TestCodingInterview_FullLifecycle drives a coding-type session from
// start to feedback over HTTP: five good verbal answers, the phase
// transition on exactly the fifth, clarifications up to the per-question
// budget, the final submission and the feedback report.
func TestCodingInterview_FullLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	steps := []oracleStep{
		goodStep("How do hash collisions get resolved?"),
		goodStep("What is the load factor and why does it matter?"),
		goodStep("When would you prefer open addressing over chaining?"),
		goodStep("How does resizing keep lookups amortized O(1)?"),
		// The fifth good answer crosses the coding threshold; the
		// orchestrator moves the phase regardless of this question.
		goodStep("What hash function would you pick for string keys?"),
	}
	h := newHarness(t, steps, harnessOptions{})

	started := h.start(interview.StartRequest{
		Topic:        "hash tables",
		Type:         session.TypeCoding,
		BaseQuestion: "Design a hash map with O(1) average-case operations.",
	})
	require.NotEmpty(t, started.SessionID)
	assert.Equal(t, session.PhaseVerbal, started.Phase)
	assert.Equal(t, interview.FirstFollowUpQuestion, started.Question)

	id := started.SessionID
	answers := []string{
		"I'd back the map with a bucket array indexed by hash modulo capacity.",
		"Collisions chain into linked lists per bucket, or probe openly.",
		"Load factor is entries over capacity; past ~0.75 lookups degrade.",
		"Doubling capacity on resize keeps the amortized cost constant.",
		"For strings I'd use a seeded SipHash to resist collision attacks.",
	}

	for i := 0; i < 4; i++ {
		res := h.answer(id, answers[i])
		assert.Equal(t, session.PhaseVerbal, res.Phase, "answer %d should stay verbal", i+1)
		assert.False(t, res.ReadyToCode, "answer %d should not open coding", i+1)
		assert.False(t, res.SessionComplete)
	}

	res := h.answer(id, answers[4])
	assert.Equal(t, session.PhaseCoding, res.Phase, "fifth good answer must open the coding phase")
	assert.True(t, res.ReadyToCode)
	assert.False(t, res.SessionComplete)

	sess := h.session(id)
	assert.Equal(t, session.PhaseCoding, sess.Phase)
	assert.Equal(t, 0, sess.BadAnswerCount)
	assert.Equal(t, 5, sess.GoodAnswerCount())

	// Plain chat while coding is a read-only nudge.
	versionBefore := sess.Version
	chat := h.answer(id, "I think I'm ready to write the code now.")
	assert.Equal(t, interview.MessageCodingGuidance, chat.Message)
	assert.True(t, chat.ReadyToCode)
	assert.Equal(t, versionBefore, h.session(id).Version, "coding chat must not write")

	// Two clarifications fit the per-question budget; the third is denied
	// without consulting the oracle.
	first := h.clarify(id, "Can I assume the keys are always strings?")
	assert.Equal(t, 1, first.ClarificationCount)
	assert.False(t, first.LimitReached)

	second := h.clarify(id, "Does delete need to be O(1) as well?")
	assert.Equal(t, 2, second.ClarificationCount)
	assert.False(t, second.LimitReached)

	third := h.clarify(id, "What about concurrent access?")
	assert.True(t, third.LimitReached)
	assert.Equal(t, policy.FeedbackClarificationLimit, third.Message)
	assert.Equal(t, 2, h.oracle.clarifyCount(), "denied clarification must not reach the oracle")

	submitted := h.submit(id, "type HashMap struct { buckets [][]entry }")
	assert.True(t, submitted.SessionComplete)
	assert.Equal(t, interview.MessageSubmissionReceived, submitted.Message)

	sess = h.session(id)
	assert.Equal(t, session.PhaseCompleted, sess.Phase)
	assert.Equal(t, session.ReasonNatural, sess.CompletionReason)

	// No completion client configured, so the deterministic report serves.
	report := h.feedback(id)
	assert.Equal(t, id, report.SessionID)
	assert.Equal(t, feedback.Fallback().Summary, report.Feedback.Summary)
}

// TestStartSession_Validation covers the request mistakes the API rejects.
func TestStartSession_Validation(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	h := newHarness(t, nil, harnessOptions{})

	t.Run("unknown interview type", func(t *testing.T) {
		status := h.post("/v1/sessions", interview.StartRequest{
			Topic:        "trees",
			Type:         "debate",
			BaseQuestion: "Balance a binary search tree.",
		}, nil)
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("no question bank and no base question", func(t *testing.T) {
		status := h.post("/v1/sessions", interview.StartRequest{
			Topic: "trees",
			Type:  session.TypeCoding,
		}, nil)
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("unknown session is not found", func(t *testing.T) {
		var res interview.AnswerResult
		status := h.answerStatus("no-such-session", "hello", &res)
		assert.Equal(t, http.StatusNotFound, status)
	})
}
