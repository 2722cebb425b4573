package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
	AIRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mamiland_ai_requests_total",
		Help: "AI completion requests by outcome",
	}, []string{"outcome"})
	AIRequestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mamiland_ai_request_duration_seconds",
		Help:    "AI completion latency in seconds",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
	})
	AccessCodeValidations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mamiland_access_code_validations_total",
		Help: "Access code validation attempts by result",
	}, []string{"result"})
	OnboardingTurns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mamiland_onboarding_turns_total",
		Help: "Onboarding answers by step and whether they advanced",
	}, []string{"step", "advanced"})
	MetricsSockets = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mamiland_admin_metrics_sockets",
		Help: "Open admin metrics websocket connections",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		AIRequestsTotal,
		AIRequestDuration,
		AccessCodeValidations,
		OnboardingTurns,
		MetricsSockets,
	)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// Middleware records request counts and latency labelled by the chi route
// pattern, so path parameters do not explode the label set.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		labels := prometheus.Labels{"method": r.Method, "path": path, "status": strconv.Itoa(sw.status)}
		HTTPRequestsTotal.With(labels).Inc()
		HTTPRequestDuration.With(labels).Observe(time.Since(start).Seconds())
	})
}
