package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Config selects the event transport. An empty URL disables eventing.
type Config struct {
	URL string `koanf:"url"`
}

// New returns a publisher for cfg: a NATS-backed one when a URL is set,
// otherwise the no-op publisher.
func New(cfg Config, logger *zap.Logger) (Publisher, error) {
	if cfg.URL == "" {
		return NopPublisher{}, nil
	}
	return Connect(cfg.URL, logger)
}

// NATSPublisher publishes events to NATS subjects
// interviews.{session_id}.{type}.
type NATSPublisher struct {
	nc     *nats.Conn
	logger *zap.Logger
	owned  bool
}

var _ Publisher = (*NATSPublisher)(nil)

// Connect dials NATS and wraps the connection in a publisher. The
// connection is owned: Close tears it down.
func Connect(url string, logger *zap.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(1*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	logger.Info("connected to NATS", zap.String("url", url))

	p := NewNATSPublisher(nc, logger)
	p.owned = true
	return p, nil
}

// NewNATSPublisher wraps an existing connection. The caller keeps
// ownership; Close leaves the connection open.
func NewNATSPublisher(nc *nats.Conn, logger *zap.Logger) *NATSPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSPublisher{nc: nc, logger: logger}
}

// Conn exposes the underlying connection for subscribers (the SSE
// endpoint attaches here).
func (p *NATSPublisher) Conn() *nats.Conn { return p.nc }

// Publish sends one event. A zero ID or timestamp is filled in so call
// sites only describe what happened.
func (p *NATSPublisher) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.nc.Publish(Subject(ev.SessionID, ev.Type), data); err != nil {
		return fmt.Errorf("publish %s event: %w", ev.Type, err)
	}
	return nil
}

// Close releases the connection when this publisher owns it.
func (p *NATSPublisher) Close() error {
	if p.owned {
		p.nc.Close()
	}
	return nil
}
