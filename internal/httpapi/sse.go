package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/interviewd/internal/events"
)

// sseHeartbeatInterval is how often a comment line keeps an idle stream
// alive through proxies.
const sseHeartbeatInterval = 15 * time.Second

// handleEvents streams a session's lifecycle events as server-sent
// events. The stream ends when the session completes or the client
// disconnects.
func (s *Server) handleEvents(c echo.Context) error {
	if s.eventsConn == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "event streaming is not enabled")
	}

	id := c.Param("id")
	ctx := c.Request().Context()

	// Reject unknown sessions before holding a subscription open.
	if _, err := s.svc.GetSession(ctx, id); err != nil {
		return s.mapError(c, err)
	}

	msgs := make(chan *nats.Msg, 64)
	sub, err := s.eventsConn.ChanSubscribe(events.Subject(id, ">"), msgs)
	if err != nil {
		return s.mapError(c, fmt.Errorf("subscribe to session events: %w", err))
	}
	defer sub.Unsubscribe()

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set(echo.HeaderConnection, "keep-alive")
	resp.WriteHeader(http.StatusOK)
	resp.Flush()

	ticker := time.NewTicker(sseHeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			if _, err := fmt.Fprint(resp, ": ping\n\n"); err != nil {
				return nil
			}
			resp.Flush()

		case msg := <-msgs:
			var ev events.Event
			if err := json.Unmarshal(msg.Data, &ev); err != nil {
				s.logger.Warn("dropping malformed event",
					zap.String("session_id", id),
					zap.String("subject", msg.Subject),
					zap.Error(err))
				continue
			}

			if _, err := fmt.Fprintf(resp, "event: %s\ndata: %s\n\n", ev.Type, msg.Data); err != nil {
				return nil
			}
			resp.Flush()

			if ev.Type == events.TypeSessionCompleted {
				return nil
			}
		}
	}
}
