package httpapi

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the HTTP request instruments. Endpoint labels use the
// route template (/v1/sessions/:id), not the raw path, so session ids
// never blow up the label cardinality.
type metrics struct {
	requestsTotal *prometheus.CounterVec
	requestDur    *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "interviewd_http_requests_total",
				Help: "Total HTTP requests by method, endpoint and status code.",
			},
			[]string{"method", "endpoint", "status"},
		),
		requestDur: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "interviewd_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds by method, endpoint and status code.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "endpoint", "status"},
		),
	}
}

// middleware records a count and duration sample per request.
func (m *metrics) middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				// Commit the error response now so the recorded status
				// (and the request logger upstream) see the real code.
				c.Error(err)
			}

			endpoint := c.Path()
			if endpoint == "" {
				endpoint = "unmatched"
			}
			status := strconv.Itoa(c.Response().Status)
			method := c.Request().Method

			m.requestsTotal.WithLabelValues(method, endpoint, status).Inc()
			m.requestDur.WithLabelValues(method, endpoint, status).Observe(time.Since(start).Seconds())

			return err
		}
	}
}
