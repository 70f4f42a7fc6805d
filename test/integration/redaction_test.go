package integration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/interviewd/internal/interview"
	"github.com/fyrsmithlabs/interviewd/internal/redact"
	"github.com/fyrsmithlabs/interviewd/internal/session"
)

// TestSecrets_ScrubbedBeforeOracle verifies the redaction boundary: the
// request the oracle sees is scrubbed, the persisted session keeps the
// candidate's text verbatim.
func TestSecrets_ScrubbedBeforeOracle(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	scrubber, err := redact.NewGitleaksScrubber("", zap.NewNop())
	require.NoError(t, err)

	steps := []oracleStep{goodStep("And how would you rotate that credential?")}
	h := newHarness(t, steps, harnessOptions{scrubber: scrubber})

	started := h.start(interview.StartRequest{
		Topic:        "api design",
		Type:         session.TypeCoding,
		BaseQuestion: "Design a client for a rate-limited third-party API.",
	})
	id := started.SessionID

	const secret = "sk-proj-abc123def456ghi789jkl012mno345pqr678stu901xyz"
	answer := "I'd authenticate with the key " + secret + " and back off on 429s."

	h.answer(id, answer)

	reqs := h.oracle.decideRequests()
	require.Len(t, reqs, 1)
	assert.NotContains(t, reqs[0].Answer, secret, "the secret must not cross the process boundary")
	assert.Contains(t, reqs[0].Answer, "[REDACTED:", "the finding must be marked, not silently dropped")

	sess := h.session(id)
	require.Len(t, sess.FollowUps, 1)
	assert.Equal(t, answer, sess.FollowUps[0].Answer, "storage keeps the candidate's words verbatim")
}
