package interview

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/interviewd/internal/events"
	"github.com/fyrsmithlabs/interviewd/internal/session"
)

func startCodingPhase(t *testing.T, h *testHarness) string {
	t.Helper()
	id := h.start(t, session.TypeCoding)
	advanceToCoding(t, h, id)
	return id
}

func TestHandleClarification_AnswersAndCounts(t *testing.T) {
	h := newHarness(t, &fakeOracle{clarifyText: "The array may contain negative numbers."})
	id := startCodingPhase(t, h)

	first, err := h.svc.HandleClarification(context.Background(), id, "Can the input contain negatives?")
	require.NoError(t, err)
	assert.Equal(t, "The array may contain negative numbers.\n\n[Note: You have 1 more clarification attempt before coding.]", first.Message)
	assert.Equal(t, 1, first.ClarificationCount)
	assert.Equal(t, 2, first.MaxClarifications)
	assert.False(t, first.LimitReached)

	second, err := h.svc.HandleClarification(context.Background(), id, "Is the array sorted?")
	require.NoError(t, err)
	assert.Equal(t, "The array may contain negative numbers.\n\n[Note: This is your final clarification attempt before coding.]", second.Message)
	assert.Equal(t, 2, second.ClarificationCount)
	assert.False(t, second.LimitReached)

	assert.Equal(t, 2, h.oracle.clarifyCalls)
	savesBefore := h.store.saveCount()

	third, err := h.svc.HandleClarification(context.Background(), id, "What about duplicates?")
	require.NoError(t, err)
	assert.Equal(t, "You've reached the maximum clarification attempts. Let's proceed with coding based on your current understanding.", third.Message)
	assert.True(t, third.LimitReached)
	assert.Equal(t, 2, third.ClarificationCount)

	assert.Equal(t, 2, h.oracle.clarifyCalls, "the over-budget request must not reach the oracle")
	assert.Equal(t, savesBefore, h.store.saveCount(), "the over-budget request must not write")

	sess, err := h.svc.GetSession(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, sess.Clarifications, 2)
	assert.Equal(t, 2, sess.CodingClarificationCount)
}

func TestHandleClarification_SessionBudget(t *testing.T) {
	h := newHarness(t, &fakeOracle{clarifyText: "Assume ASCII input."})

	sess := session.New("sess-budget", "strings", session.TypeCoding, "Reverse a string in place.", FirstFollowUpQuestion)
	sess.Phase = session.PhaseCoding
	sess.CodingClarificationCount = 5
	require.NoError(t, h.store.Create(context.Background(), sess))

	res, err := h.svc.HandleClarification(context.Background(), "sess-budget", "Unicode or ASCII?")
	require.NoError(t, err)
	assert.True(t, res.LimitReached, "the session-wide budget binds even with per-question budget left")
	assert.Zero(t, h.oracle.clarifyCalls)
}

func TestHandleClarification_VerbalPhaseRejected(t *testing.T) {
	h := newHarness(t, &fakeOracle{})
	id := h.start(t, session.TypeCoding)

	_, err := h.svc.HandleClarification(context.Background(), id, "Can I ask something?")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestHandleClarification_Validation(t *testing.T) {
	h := newHarness(t, &fakeOracle{})

	_, err := h.svc.HandleClarification(context.Background(), "", "question")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = h.svc.HandleClarification(context.Background(), "sess-1", "   ")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestHandleClarification_OracleFailureFallback(t *testing.T) {
	h := newHarness(t, &fakeOracle{clarifyErr: errors.New("timeout")})
	id := startCodingPhase(t, h)

	res, err := h.svc.HandleClarification(context.Background(), id, "Can the input be empty?")
	require.NoError(t, err, "oracle failure must not fail the request")
	assert.Equal(t, MessageClarificationFallback+"\n\n[Note: You have 1 more clarification attempt before coding.]", res.Message)
	assert.Equal(t, 1, res.ClarificationCount, "a fallback response still spends budget")

	sess, err := h.svc.GetSession(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, sess.Clarifications, 1)
	assert.Equal(t, "Can the input be empty?", sess.Clarifications[0].Request)
}

func TestHandleClarification_CompletedSession(t *testing.T) {
	h := newHarness(t, &fakeOracle{clarifyText: "Assume ASCII."})
	id := startCodingPhase(t, h)

	_, err := h.svc.HandleSubmission(context.Background(), id, "func solve() {}")
	require.NoError(t, err)

	res, err := h.svc.HandleClarification(context.Background(), id, "One more thing?")
	require.NoError(t, err)
	assert.Equal(t, MessageSessionComplete, res.Message)
	assert.Zero(t, h.oracle.clarifyCalls)
}

func TestHandleClarification_PublishesEvent(t *testing.T) {
	h := newHarness(t, &fakeOracle{clarifyText: "Yes, duplicates are possible."})
	id := startCodingPhase(t, h)

	_, err := h.svc.HandleClarification(context.Background(), id, "Are duplicates possible?")
	require.NoError(t, err)

	types := h.publisher.types()
	require.NotEmpty(t, types)
	assert.Equal(t, events.TypeClarificationAnswered, types[len(types)-1])
}

func TestHandleSubmission_CodingPhaseCompletesNaturally(t *testing.T) {
	h := newHarness(t, &fakeOracle{})
	id := startCodingPhase(t, h)

	res, err := h.svc.HandleSubmission(context.Background(), id, "func twoSum(nums []int, target int) []int { ... }")
	require.NoError(t, err)
	assert.Equal(t, MessageSubmissionReceived, res.Message)
	assert.Equal(t, session.PhaseCompleted, res.Phase)
	assert.True(t, res.SessionComplete)

	sess, err := h.svc.GetSession(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, session.ReasonNatural, sess.CompletionReason)

	types := h.publisher.types()
	assert.Equal(t, events.TypeSessionCompleted, types[len(types)-1])
}

func TestHandleSubmission_VerbalPhaseCompletesManually(t *testing.T) {
	h := newHarness(t, &fakeOracle{})
	id := h.start(t, session.TypeApproach)

	res, err := h.svc.HandleSubmission(context.Background(), id, "")
	require.NoError(t, err)
	assert.True(t, res.SessionComplete)

	sess, err := h.svc.GetSession(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, session.ReasonManual, sess.CompletionReason, "an early submission is a manual end")
}

func TestHandleSubmission_TerminalIdempotence(t *testing.T) {
	h := newHarness(t, &fakeOracle{})
	id := startCodingPhase(t, h)

	_, err := h.svc.HandleSubmission(context.Background(), id, "code")
	require.NoError(t, err)
	savesAfterFirst := h.store.saveCount()

	res, err := h.svc.HandleSubmission(context.Background(), id, "code again")
	require.NoError(t, err)
	assert.Equal(t, MessageSessionComplete, res.Message)
	assert.True(t, res.SessionComplete)
	assert.Equal(t, savesAfterFirst, h.store.saveCount(), "repeat submissions must not write")
}
