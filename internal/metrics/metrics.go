// Package metrics exposes Prometheus metrics for practice sessions and the
// HTTP API.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/consultprep-dev/consultprep/internal/interview"
)

// Metrics holds all Prometheus metrics for consultprep.
type Metrics struct {
	// Session metrics
	SessionsStarted  *prometheus.CounterVec
	SessionsFinished *prometheus.CounterVec
	StageAdvances    *prometheus.CounterVec
	FinalScores      prometheus.Histogram
	SessionDuration  prometheus.Histogram

	// Generator metrics
	GeneratorFallbacks *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

var (
	metricsOnce   sync.Once
	sharedMetrics *Metrics
)

// NewMetrics creates and registers all Prometheus metrics. Every call
// returns the same instance.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		sharedMetrics = &Metrics{
			SessionsStarted: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "consultprep_sessions_started_total",
					Help: "Total number of practice sessions started",
				},
				[]string{"case"},
			),
			SessionsFinished: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "consultprep_sessions_finished_total",
					Help: "Total number of practice sessions finished and recorded",
				},
				[]string{"case"},
			),
			StageAdvances: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "consultprep_stage_advances_total",
					Help: "Total number of stage advances by destination stage",
				},
				[]string{"stage"},
			),
			FinalScores: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "consultprep_final_score",
					Help:    "Weighted final score of finished sessions",
					Buckets: prometheus.LinearBuckets(10, 10, 10), // 10 to 100
				},
			),
			SessionDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "consultprep_session_duration_seconds",
					Help:    "Time from session start to finish in seconds",
					Buckets: prometheus.ExponentialBuckets(60, 2, 8), // 1min to ~2hrs
				},
			),
			GeneratorFallbacks: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "consultprep_generator_fallbacks_total",
					Help: "Total number of generator or evaluator failures replaced by a fallback",
				},
				[]string{"reason"},
			),
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "consultprep_http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "consultprep_http_request_duration_seconds",
					Help:    "HTTP request duration in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"method", "path"},
			),
		}
	})

	return sharedMetrics
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Observer adapts Metrics to interview.Observer.
func (m *Metrics) Observer() interview.Observer {
	return sessionObserver{m}
}

type sessionObserver struct {
	m *Metrics
}

func (o sessionObserver) SessionStarted(s *interview.Session) {
	o.m.SessionsStarted.WithLabelValues(s.Case.Identity()).Inc()
}

func (o sessionObserver) StageAdvanced(s *interview.Session) {
	o.m.StageAdvances.WithLabelValues(s.Stage().String()).Inc()
}

func (o sessionObserver) Fallback(_ *interview.Session, reason string, _ error) {
	o.m.GeneratorFallbacks.WithLabelValues(reason).Inc()
}

func (o sessionObserver) SessionFinished(s *interview.Session, entry interview.HistoryEntry) {
	o.m.SessionsFinished.WithLabelValues(s.Case.Identity()).Inc()
	o.m.FinalScores.Observe(float64(entry.Score))
	if d := entry.Time.Sub(s.StartTime); d > 0 {
		o.m.SessionDuration.Observe(d.Seconds())
	}
}
