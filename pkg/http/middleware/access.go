// Package middleware holds the Echo middleware every Jarvis server runs.
package middleware

import (
	"strconv"
	"sync"
	"time"

	applogger "Jarvis/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

type accessMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	inFlight *prometheus.GaugeVec
	size     *prometheus.HistogramVec
}

var (
	accessOnce sync.Once
	access     *accessMetrics
)

func metrics() *accessMetrics {
	accessOnce.Do(func() {
		access = &accessMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "jarvis_http_requests_total",
				Help: "HTTP requests by route, method and status.",
			}, []string{"route", "method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "jarvis_http_request_duration_seconds",
				Help:    "HTTP request latency.",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			}, []string{"route", "method", "class"}),
			inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "jarvis_http_in_flight_requests",
				Help: "HTTP requests being served.",
			}, []string{"route"}),
			size: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "jarvis_http_response_size_bytes",
				Help:    "HTTP response body size.",
				Buckets: prometheus.ExponentialBuckets(256, 4, 8),
			}, []string{"route", "class"}),
		}
		prometheus.MustRegister(access.requests, access.latency, access.inFlight, access.size)
	})
	return access
}

// Access records request metrics and writes the access log. Routes are
// labelled by their template ("/api/confidence/:mint") so cardinality stays
// bounded. 5xx responses log at error level, requests slower than slow at
// warn, everything else at debug.
func Access(l *applogger.Logger, slow time.Duration) echo.MiddlewareFunc {
	m := metrics()
	if l == nil {
		l = applogger.Nop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			req := c.Request()
			m.inFlight.WithLabelValues(route).Inc()
			start := time.Now()

			if err := next(c); err != nil {
				c.Error(err)
			}

			m.inFlight.WithLabelValues(route).Dec()
			elapsed := time.Since(start)
			res := c.Response()
			class := strconv.Itoa(res.Status/100) + "xx"
			m.requests.WithLabelValues(route, req.Method, strconv.Itoa(res.Status)).Inc()
			m.latency.WithLabelValues(route, req.Method, class).Observe(elapsed.Seconds())
			m.size.WithLabelValues(route, class).Observe(float64(res.Size))

			fields := []applogger.Field{
				applogger.String("method", req.Method),
				applogger.String("route", route),
				applogger.String("uri", req.RequestURI),
				applogger.String("remote", c.RealIP()),
				applogger.Int("status", res.Status),
				applogger.Int64("bytes", res.Size),
				applogger.Duration("latency_ms", elapsed),
			}
			switch {
			case res.Status >= 500:
				l.Error("http request failed", fields...)
			case slow > 0 && elapsed >= slow:
				l.Warn("http request slow", fields...)
			default:
				l.Debug("http request", fields...)
			}
			return nil
		}
	}
}
