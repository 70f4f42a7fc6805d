package integration

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/interviewd/internal/interview"
	"github.com/fyrsmithlabs/interviewd/internal/policy"
	"github.com/fyrsmithlabs/interviewd/internal/session"
)

// TestApproachSession_ForcedTermination verifies the consecutive-bad-answer
// limit ends an approach-type session on exactly the call that crosses it.
func TestApproachSession_ForcedTermination(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	steps := []oracleStep{
		badStep("That conflates latency with throughput."),
	}
	h := newHarness(t, steps, harnessOptions{})

	started := h.start(interview.StartRequest{
		Topic:        "caching",
		Type:         session.TypeApproach,
		BaseQuestion: "How would you design a cache invalidation strategy?",
	})
	id := started.SessionID

	for i := 1; i < policy.MaxConsecutiveBadAnswers; i++ {
		res := h.answer(id, fmt.Sprintf("bad answer number %d", i))
		assert.False(t, res.SessionComplete, "call %d is below the limit", i)
		assert.Equal(t, session.PhaseVerbal, res.Phase)
	}

	res := h.answer(id, "one bad answer too many")
	assert.True(t, res.SessionComplete, "the limit-crossing call must terminate")
	assert.Equal(t, policy.FeedbackForcedTermination, res.Message)

	sess := h.session(id)
	assert.Equal(t, session.PhaseCompleted, sess.Phase)
	assert.Equal(t, session.ReasonTooManyBadAnswers, sess.CompletionReason)
	assert.Equal(t, policy.MaxConsecutiveBadAnswers, sess.BadAnswerCount)
}

// TestApproachSession_NaturalCompletion verifies the good-answer threshold
// completes an approach-type session without a submission.
func TestApproachSession_NaturalCompletion(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	var steps []oracleStep
	for i := 0; i < policy.GoodAnswersForApproachComplete; i++ {
		steps = append(steps, goodStep(fmt.Sprintf("follow-up %d", i+1)))
	}
	h := newHarness(t, steps, harnessOptions{})

	started := h.start(interview.StartRequest{
		Topic:        "consistency models",
		Type:         session.TypeApproach,
		BaseQuestion: "Walk me through choosing between strong and eventual consistency.",
	})
	id := started.SessionID

	for i := 1; i < policy.GoodAnswersForApproachComplete; i++ {
		res := h.answer(id, fmt.Sprintf("solid answer number %d", i))
		require.False(t, res.SessionComplete, "call %d is below the threshold", i)
	}

	res := h.answer(id, "the final solid answer")
	assert.True(t, res.SessionComplete)
	assert.Equal(t, policy.FeedbackApproachComplete, res.Message)

	sess := h.session(id)
	assert.Equal(t, session.PhaseCompleted, sess.Phase)
	assert.Equal(t, session.ReasonNatural, sess.CompletionReason)
}

// TestBadAnswerCounters verifies an accepted answer resets the consecutive
// counter but never the total.
func TestBadAnswerCounters(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	steps := []oracleStep{
		badStep("Too vague."),
		badStep("Still too vague."),
		goodStep("Good. How would you shard the index?"),
		badStep("That does not follow."),
	}
	h := newHarness(t, steps, harnessOptions{})

	started := h.start(interview.StartRequest{
		Topic:        "search",
		Type:         session.TypeCoding,
		BaseQuestion: "Design an inverted index for full-text search.",
	})
	id := started.SessionID

	h.answer(id, "it indexes stuff")
	h.answer(id, "it indexes stuff better")
	h.answer(id, "documents map to postings lists keyed by term")
	h.answer(id, "anyway, sharding is someone else's problem")

	sess := h.session(id)
	assert.Equal(t, 3, sess.BadAnswerCount)
	assert.Equal(t, 1, sess.ConsecutiveBadAnswerCount, "the accepted answer must reset the streak")
	assert.Equal(t, session.PhaseVerbal, sess.Phase, "three total rejections is below the coding limit")
	assert.False(t, sess.Completed())
}

// TestCompletedSession_IsAbsorbing verifies every entry point serves the
// terminal result after completion and writes nothing.
func TestCompletedSession_IsAbsorbing(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	h := newHarness(t, nil, harnessOptions{})

	started := h.start(interview.StartRequest{
		Topic:        "queues",
		Type:         session.TypeApproach,
		BaseQuestion: "Compare at-least-once and exactly-once delivery.",
	})
	id := started.SessionID

	// Submitting from the verbal phase is the candidate bailing out.
	submitted := h.submit(id, "")
	require.True(t, submitted.SessionComplete)
	require.Equal(t, session.ReasonManual, h.session(id).CompletionReason)

	version := h.session(id).Version

	res := h.answer(id, "can I keep going?")
	assert.True(t, res.SessionComplete)
	assert.Equal(t, interview.MessageSessionComplete, res.Message)

	again := h.submit(id, "second submission")
	assert.True(t, again.SessionComplete)
	assert.Equal(t, interview.MessageSessionComplete, again.Message)

	assert.Equal(t, version, h.session(id).Version, "terminal interactions must not write")
	assert.Equal(t, 0, h.oracle.decideCount(), "terminal interactions must not consult the oracle")
}
