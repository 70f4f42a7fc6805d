package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/interviewd/internal/interview"
	"github.com/fyrsmithlabs/interviewd/internal/oracle"
	"github.com/fyrsmithlabs/interviewd/internal/policy"
	"github.com/fyrsmithlabs/interviewd/internal/session"
	"github.com/fyrsmithlabs/interviewd/internal/store"
)

// TestOracleOutage_FallsBackWithoutJudgment verifies an oracle failure
// re-serves the current question, keeps the answer verbatim and moves no
// counters, and that the next successful call judges normally.
func TestOracleOutage_FallsBackWithoutJudgment(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	steps := []oracleStep{
		errStep(oracle.ErrUnavailable),
		goodStep("How would you detect a cycle without extra memory?"),
	}
	h := newHarness(t, steps, harnessOptions{})

	started := h.start(interview.StartRequest{
		Topic:        "linked lists",
		Type:         session.TypeCoding,
		BaseQuestion: "Detect a cycle in a singly linked list.",
	})
	id := started.SessionID
	answer := "I'd run fast and slow pointers and check whether they meet."

	res := h.answer(id, answer)
	assert.Equal(t, policy.FeedbackFallback, res.Message)
	assert.Equal(t, session.PhaseVerbal, res.Phase)
	assert.False(t, res.SessionComplete)

	sess := h.session(id)
	require.Len(t, sess.FollowUps, 1)
	assert.Equal(t, answer, sess.FollowUps[0].Answer, "the answer must survive the outage verbatim")
	assert.False(t, sess.FollowUps[0].AnswerRejected)
	assert.Equal(t, 0, sess.BadAnswerCount, "an outage must not count against the candidate")
	assert.Equal(t, 0, sess.GoodAnswerCount(), "an outage must not count for the candidate either")

	// Once the oracle recovers, the same turn replays and is judged.
	res = h.answer(id, answer)
	assert.Equal(t, "How would you detect a cycle without extra memory?", res.Message)
	assert.Equal(t, 1, h.session(id).GoodAnswerCount())
}

// TestSaveConflict_RetriedOnce verifies a single version conflict is
// absorbed by reloading and replaying the same proposal, with no second
// oracle call.
func TestSaveConflict_RetriedOnce(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	fs := &flakyStore{Store: store.NewMemory(), conflicts: 1}
	steps := []oracleStep{goodStep("What is the worst case of quickselect?")}
	h := newHarness(t, steps, harnessOptions{store: fs})

	started := h.start(interview.StartRequest{
		Topic:        "selection",
		Type:         session.TypeCoding,
		BaseQuestion: "Find the k-th smallest element of an unsorted array.",
	})
	id := started.SessionID

	res := h.answer(id, "Quickselect partitions around a pivot and recurses one side.")
	assert.Equal(t, "What is the worst case of quickselect?", res.Message)

	assert.Equal(t, 1, h.oracle.decideCount(), "the retry must reuse the proposal")
	assert.Equal(t, 2, fs.saveCount(), "one failed save plus the successful replay")
	assert.Equal(t, 1, h.session(id).GoodAnswerCount(), "the turn must land exactly once")
}

// TestSaveConflict_TwiceSurfacesAsConflict verifies a second consecutive
// conflict stops the retry loop and maps to 409.
func TestSaveConflict_TwiceSurfacesAsConflict(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	fs := &flakyStore{Store: store.NewMemory(), conflicts: 2}
	steps := []oracleStep{goodStep("next question")}
	h := newHarness(t, steps, harnessOptions{store: fs})

	started := h.start(interview.StartRequest{
		Topic:        "selection",
		Type:         session.TypeCoding,
		BaseQuestion: "Find the k-th smallest element of an unsorted array.",
	})

	status := h.answerStatus(started.SessionID, "partition and recurse", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, 0, h.session(started.SessionID).GoodAnswerCount(), "a surfaced conflict must not half-apply")
}
