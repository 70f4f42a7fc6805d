// Package integration exercises the full stack end to end: the real
// orchestrator wired to real stores and scrubbers behind the HTTP API,
// with only the oracle replaced by a scripted double.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/interviewd/internal/feedback"
	"github.com/fyrsmithlabs/interviewd/internal/httpapi"
	"github.com/fyrsmithlabs/interviewd/internal/interview"
	"github.com/fyrsmithlabs/interviewd/internal/oracle"
	"github.com/fyrsmithlabs/interviewd/internal/redact"
	"github.com/fyrsmithlabs/interviewd/internal/session"
	"github.com/fyrsmithlabs/interviewd/internal/store"
)

// oracleStep is one scripted oracle reply: a proposal or a failure.
type oracleStep struct {
	proposal oracle.Proposal
	err      error
}

func goodStep(nextQuestion string) oracleStep {
	return oracleStep{proposal: oracle.Proposal{
		Action:       oracle.ActionNextQuestion,
		Quality:      oracle.QualityGood,
		NextQuestion: nextQuestion,
	}}
}

func badStep(feedbackText string) oracleStep {
	return oracleStep{proposal: oracle.Proposal{
		Action:   oracle.ActionRetrySame,
		Quality:  oracle.QualityBad,
		Feedback: feedbackText,
	}}
}

func errStep(err error) oracleStep {
	return oracleStep{err: err}
}

// scriptOracle serves its steps in order, then repeats the last one. It
// records every decision request so tests can inspect what crossed the
// process boundary.
type scriptOracle struct {
	mu      sync.Mutex
	steps   []oracleStep
	decides []oracle.Request

	clarifyCalls int
	clarifyText  string
}

func (o *scriptOracle) Decide(_ context.Context, req oracle.Request) (oracle.Proposal, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.decides = append(o.decides, req)
	if len(o.steps) == 0 {
		return oracle.Proposal{}, oracle.ErrUnavailable
	}
	step := o.steps[0]
	if len(o.steps) > 1 {
		o.steps = o.steps[1:]
	}
	return step.proposal, step.err
}

func (o *scriptOracle) Clarify(_ context.Context, _ oracle.ClarificationRequest) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.clarifyCalls++
	if o.clarifyText != "" {
		return o.clarifyText, nil
	}
	return "You can assume the input fits in memory.", nil
}

func (o *scriptOracle) decideRequests() []oracle.Request {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]oracle.Request(nil), o.decides...)
}

func (o *scriptOracle) decideCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.decides)
}

func (o *scriptOracle) clarifyCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.clarifyCalls
}

// flakyStore wraps a Store and fails the next n saves with a version
// conflict, counting every save attempt.
type flakyStore struct {
	store.Store
	mu        sync.Mutex
	conflicts int
	saves     int
}

func (f *flakyStore) Save(ctx context.Context, s *session.Session, expectedVersion int64) error {
	f.mu.Lock()
	f.saves++
	if f.conflicts > 0 {
		f.conflicts--
		f.mu.Unlock()
		return store.ErrVersionConflict
	}
	f.mu.Unlock()
	return f.Store.Save(ctx, s, expectedVersion)
}

func (f *flakyStore) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

// harnessOptions overrides the harness defaults. Zero values mean a fresh
// memory store, no scrubbing and no question bank.
type harnessOptions struct {
	store     store.Store
	scrubber  redact.Scrubber
	questions interview.QuestionSource
}

// harness is the full stack behind an httptest server.
type harness struct {
	t      *testing.T
	ts     *httptest.Server
	oracle *scriptOracle
	svc    interview.Service
}

func newHarness(t *testing.T, steps []oracleStep, opts harnessOptions) *harness {
	t.Helper()

	st := opts.store
	if st == nil {
		st = store.NewMemory()
	}
	orc := &scriptOracle{steps: steps}

	svc, err := interview.NewService(nil, interview.Deps{
		Store:     st,
		Oracle:    orc,
		Questions: opts.questions,
		Scrubber:  opts.scrubber,
		Logger:    zap.NewNop(),
	})
	require.NoError(t, err)

	server, err := httpapi.NewServer(httpapi.Options{
		Interview: svc,
		Feedback:  feedback.NewGenerator(nil, nil, zap.NewNop()),
		Logger:    zap.NewNop(),
		Registry:  prometheus.NewRegistry(),
	})
	require.NoError(t, err)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = svc.Close()
	})

	return &harness{t: t, ts: ts, oracle: orc, svc: svc}
}

// post sends a JSON body and decodes the JSON reply into out (when out is
// non-nil), returning the status code.
func (h *harness) post(path string, body, out any) int {
	h.t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(h.t, err)

	resp, err := http.Post(h.ts.URL+path, "application/json", bytes.NewReader(payload))
	require.NoError(h.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	if out != nil && resp.StatusCode < 300 {
		require.NoError(h.t, json.Unmarshal(raw, out), "body: %s", raw)
	}
	return resp.StatusCode
}

func (h *harness) start(req interview.StartRequest) *interview.StartResult {
	h.t.Helper()
	var res interview.StartResult
	status := h.post("/v1/sessions", req, &res)
	require.Equal(h.t, http.StatusCreated, status)
	return &res
}

func (h *harness) answer(id, text string) *interview.AnswerResult {
	h.t.Helper()
	var res interview.AnswerResult
	status := h.answerStatus(id, text, &res)
	require.Equal(h.t, http.StatusOK, status)
	return &res
}

func (h *harness) answerStatus(id, text string, out *interview.AnswerResult) int {
	h.t.Helper()
	return h.post("/v1/sessions/"+url.PathEscape(id)+"/answer", httpapi.AnswerRequest{Message: text}, out)
}

func (h *harness) clarify(id, text string) *interview.ClarificationResult {
	h.t.Helper()
	var res interview.ClarificationResult
	status := h.post("/v1/sessions/"+url.PathEscape(id)+"/answer",
		httpapi.AnswerRequest{Message: text, Clarification: true}, &res)
	require.Equal(h.t, http.StatusOK, status)
	return &res
}

func (h *harness) submit(id, code string) *interview.SubmissionResult {
	h.t.Helper()
	var res interview.SubmissionResult
	status := h.post("/v1/sessions/"+url.PathEscape(id)+"/submission", httpapi.SubmissionRequest{Code: code}, &res)
	require.Equal(h.t, http.StatusOK, status)
	return &res
}

func (h *harness) feedback(id string) *httpapi.FeedbackResponse {
	h.t.Helper()
	var res httpapi.FeedbackResponse
	status := h.post("/v1/sessions/"+url.PathEscape(id)+"/feedback", struct{}{}, &res)
	require.Equal(h.t, http.StatusOK, status)
	return &res
}

// session reads the persisted state through the HTTP API.
func (h *harness) session(id string) *session.Session {
	h.t.Helper()

	resp, err := http.Get(h.ts.URL + "/v1/sessions/" + url.PathEscape(id))
	require.NoError(h.t, err)
	defer resp.Body.Close()
	require.Equal(h.t, http.StatusOK, resp.StatusCode)

	var sess session.Session
	require.NoError(h.t, json.NewDecoder(resp.Body).Decode(&sess))
	return &sess
}
