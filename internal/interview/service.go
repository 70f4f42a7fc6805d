package interview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/interviewd/internal/events"
	"github.com/fyrsmithlabs/interviewd/internal/oracle"
	"github.com/fyrsmithlabs/interviewd/internal/redact"
	"github.com/fyrsmithlabs/interviewd/internal/retrieval"
	"github.com/fyrsmithlabs/interviewd/internal/session"
	"github.com/fyrsmithlabs/interviewd/internal/store"
)

// Config tunes the orchestrator.
type Config struct {
	// OracleTimeout bounds one decision or clarification call. On
	// timeout the deterministic fallback fires instead of hanging the
	// session.
	OracleTimeout time.Duration `koanf:"oracle_timeout"`
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() *Config {
	return &Config{
		OracleTimeout: 30 * time.Second,
	}
}

// Deps carries the service's collaborators. Store and Oracle are
// required; the rest default to no-op implementations.
type Deps struct {
	Store     store.Store
	Oracle    oracle.Oracle
	Retriever retrieval.Retriever
	Questions QuestionSource
	Events    events.Publisher
	Scrubber  redact.Scrubber
	Logger    *zap.Logger
}

// service implements the Service interface.
type service struct {
	config    *Config
	store     store.Store
	oracle    oracle.Oracle
	retriever retrieval.Retriever
	questions QuestionSource
	events    events.Publisher
	scrub     redact.Scrubber
	logger    *zap.Logger

	locks *keyedMutex

	// Telemetry
	tracer           trace.Tracer
	meter            metric.Meter
	answerCounter    metric.Int64Counter
	overrideCounter  metric.Int64Counter
	fallbackCounter  metric.Int64Counter
	startedCounter   metric.Int64Counter
	completedCounter metric.Int64Counter

	mu     sync.RWMutex
	closed bool
}

// NewService wires the orchestrator.
func NewService(cfg *Config, deps Deps) (Service, error) {
	if cfg == nil {
		cfg = DefaultServiceConfig()
	}
	if cfg.OracleTimeout <= 0 {
		cfg.OracleTimeout = DefaultServiceConfig().OracleTimeout
	}
	if deps.Store == nil {
		return nil, errors.New("session store is required")
	}
	if deps.Oracle == nil {
		return nil, errors.New("oracle is required")
	}
	if deps.Retriever == nil {
		deps.Retriever = retrieval.NopStore{}
	}
	if deps.Events == nil {
		deps.Events = events.NopPublisher{}
	}
	if deps.Scrubber == nil {
		deps.Scrubber = redact.Disabled{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	s := &service{
		config:    cfg,
		store:     deps.Store,
		oracle:    deps.Oracle,
		retriever: deps.Retriever,
		questions: deps.Questions,
		events:    deps.Events,
		scrub:     deps.Scrubber,
		logger:    deps.Logger,
		locks:     newKeyedMutex(),
		tracer:    otel.Tracer(instrumentationName),
		meter:     otel.Meter(instrumentationName),
	}

	s.initMetrics()

	return s, nil
}

// initMetrics initializes OpenTelemetry metrics.
func (s *service) initMetrics() {
	var err error

	s.answerCounter, err = s.meter.Int64Counter(
		"interviewd.interview.answers_total",
		metric.WithDescription("Total number of answers processed"),
		metric.WithUnit("{answer}"),
	)
	if err != nil {
		s.logger.Warn("failed to create answer counter", zap.Error(err))
	}

	s.overrideCounter, err = s.meter.Int64Counter(
		"interviewd.interview.policy_overrides_total",
		metric.WithDescription("Total number of oracle proposals overridden by the flow policy"),
		metric.WithUnit("{override}"),
	)
	if err != nil {
		s.logger.Warn("failed to create override counter", zap.Error(err))
	}

	s.fallbackCounter, err = s.meter.Int64Counter(
		"interviewd.interview.oracle_fallbacks_total",
		metric.WithDescription("Total number of turns served by the fallback decision"),
		metric.WithUnit("{fallback}"),
	)
	if err != nil {
		s.logger.Warn("failed to create fallback counter", zap.Error(err))
	}

	s.startedCounter, err = s.meter.Int64Counter(
		"interviewd.interview.sessions_started_total",
		metric.WithDescription("Total number of sessions started"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		s.logger.Warn("failed to create started counter", zap.Error(err))
	}

	s.completedCounter, err = s.meter.Int64Counter(
		"interviewd.interview.sessions_completed_total",
		metric.WithDescription("Total number of sessions completed"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		s.logger.Warn("failed to create completed counter", zap.Error(err))
	}
}

func (s *service) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// GetSession returns a copy of the session.
func (s *service) GetSession(ctx context.Context, sessionID string) (*session.Session, error) {
	ctx, span := s.tracer.Start(ctx, "interview.get_session")
	defer span.End()

	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrInvalidRequest)
	}
	sess, err := s.store.Load(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("load session: %w", err)
	}
	return sess, nil
}

// ListSessions returns all sessions, most recently created first.
func (s *service) ListSessions(ctx context.Context) ([]*session.Session, error) {
	ctx, span := s.tracer.Start(ctx, "interview.list_sessions")
	defer span.End()

	sessions, err := s.store.List(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// Close marks the service closed. Collaborator lifecycles belong to the
// caller that wired them.
func (s *service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// publish sends one lifecycle event. Failures are logged and swallowed:
// the event stream is observability, not state.
func (s *service) publish(ctx context.Context, ev events.Event) {
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.Warn("event publish failed",
			zap.String("session_id", ev.SessionID),
			zap.String("type", ev.Type),
			zap.Error(err))
	}
}

// retrieveContext fetches reference snippets for the session's topic.
// Approach interviews skip retrieval: reference material pulls the
// conversation toward implementation detail and away from methodology.
// Retrieval failures degrade to an uncontexted prompt.
func (s *service) retrieveContext(ctx context.Context, sess *session.Session) []string {
	if sess.Type == session.TypeApproach {
		return nil
	}
	snippets, err := s.retriever.Retrieve(ctx, sess.Topic)
	if err != nil {
		s.logger.Warn("context retrieval failed",
			zap.String("session_id", sess.ID),
			zap.String("topic", sess.Topic),
			zap.Error(err))
		return nil
	}
	return snippets
}

// decide asks the oracle to judge the latest answer. Candidate-authored
// text is scrubbed before leaving the process; the stored session keeps
// the verbatim answer. Reports usedFallback=true when the oracle failed
// and the caller must apply the deterministic fallback.
func (s *service) decide(ctx context.Context, sess *session.Session) (oracle.Proposal, bool) {
	req := oracle.BuildRequest(sess, s.retrieveContext(ctx, sess))
	req.Answer = s.scrub.Scrub(req.Answer)
	for i := range req.RecentPairs {
		req.RecentPairs[i].Answer = s.scrub.Scrub(req.RecentPairs[i].Answer)
	}

	oracleCtx, cancel := context.WithTimeout(ctx, s.config.OracleTimeout)
	defer cancel()

	proposal, err := s.oracle.Decide(oracleCtx, req)
	if err != nil {
		s.fallbackCounter.Add(ctx, 1)
		s.logger.Warn("oracle decision failed, applying fallback",
			zap.String("session_id", sess.ID),
			zap.Error(err))
		return oracle.Proposal{}, true
	}
	return proposal, false
}

var _ Service = (*service)(nil)

// spanAttrs returns the session attributes every span carries.
func spanAttrs(sess *session.Session) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("session_id", sess.ID),
		attribute.String("interview_type", sess.Type.String()),
		attribute.String("phase", sess.Phase.String()),
	}
}
