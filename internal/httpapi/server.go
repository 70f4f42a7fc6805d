// Package httpapi exposes the interview orchestrator over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/interviewd/internal/feedback"
	"github.com/fyrsmithlabs/interviewd/internal/interview"
	"github.com/fyrsmithlabs/interviewd/internal/questionbank"
	"github.com/fyrsmithlabs/interviewd/internal/session"
)

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// FeedbackGenerator produces the end-of-session report.
type FeedbackGenerator interface {
	Generate(ctx context.Context, s *session.Session) (feedback.Feedback, error)
}

// Catalog serves the question bank's topic and module listings.
// Satisfied by *questionbank.Bank.
type Catalog interface {
	Topics() []questionbank.TopicInfo
	Modules() []questionbank.ModuleInfo
}

// Server serves the orchestrator API.
type Server struct {
	echo       *echo.Echo
	svc        interview.Service
	feedback   FeedbackGenerator
	catalog    Catalog
	eventsConn *nats.Conn
	logger     *zap.Logger
	config     *Config
}

// Options carries the server's collaborators. Interview and Logger are
// required; a nil EventsConn disables the SSE endpoint.
type Options struct {
	Interview  interview.Service
	Feedback   FeedbackGenerator
	Catalog    Catalog
	EventsConn *nats.Conn
	Logger     *zap.Logger
	Config     *Config
	Registry   prometheus.Registerer
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(opts Options) (*Server, error) {
	if opts.Interview == nil {
		return nil, fmt.Errorf("interview service is required")
	}
	if opts.Logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if opts.Config == nil {
		opts.Config = &Config{Host: "localhost", Port: 8080}
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.DefaultRegisterer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(opts.Logger))
	e.Use(newMetrics(opts.Registry).middleware())

	s := &Server{
		echo:       e,
		svc:        opts.Interview,
		feedback:   opts.Feedback,
		catalog:    opts.Catalog,
		eventsConn: opts.EventsConn,
		logger:     opts.Logger,
		config:     opts.Config,
	}

	s.registerRoutes()

	return s, nil
}

// requestLogger logs one line per request.
func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	}
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/v1")
	v1.POST("/sessions", s.handleStartSession)
	v1.GET("/sessions", s.handleListSessions)
	v1.GET("/sessions/:id", s.handleGetSession)
	v1.POST("/sessions/:id/answer", s.handleAnswer)
	v1.POST("/sessions/:id/submission", s.handleSubmission)
	v1.POST("/sessions/:id/feedback", s.handleFeedback)
	v1.GET("/sessions/:id/events", s.handleEvents)
	v1.GET("/topics", s.handleTopics)
	v1.GET("/modules", s.handleModules)
}

// HealthResponse is the response body for GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Handler exposes the routed handler for serving outside Start, mainly
// through httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
