// Package metrics exposes Prometheus collectors for backend calls and
// member submissions.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"memberdesk/internal/domain/submission"
)

const namespace = "memberdesk"

// Metrics holds the registered collectors.
type Metrics struct {
	gatherer prometheus.Gatherer

	backendRequests *prometheus.CounterVec
	backendLatency  *prometheus.HistogramVec

	submissions       *prometheus.CounterVec
	dependentFailures *prometheus.CounterVec
	emailsSent        *prometheus.CounterVec
}

// New registers the collectors with reg. A nil reg selects a fresh registry
// that also carries the Go runtime and process collectors.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	f := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		backendRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Total number of REST backend calls.",
		}, []string{"resource", "method", "outcome"}),
		backendLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_seconds",
			Help:      "Latency distribution for REST backend calls.",
			Buckets: []float64{
				0.01, 0.02, 0.05,
				0.1, 0.2, 0.5,
				1, 2, 5, 15,
			},
		}, []string{"resource", "method"}),
		submissions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Member submissions by mode and final state.",
		}, []string{"mode", "state"}),
		dependentFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submission_dependent_failures_total",
			Help:      "Dependents the backend refused during a submission.",
		}, []string{"mode"}),
		emailsSent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulk_email_recipients_total",
			Help:      "Recipients of bulk email by dispatch mode and result.",
		}, []string{"dispatch", "result"}),
	}
}

// outcomeLabel buckets a backend call by status class.
func outcomeLabel(status int, err error) string {
	switch {
	case status >= 200 && status < 300 && err == nil:
		return "ok"
	case status >= 400:
		return strconv.Itoa(status/100) + "xx"
	case status == 0 && err != nil:
		return "transport_error"
	default:
		return "refused"
	}
}

// ObserveBackendCall implements backend.Observer.
func (m *Metrics) ObserveBackendCall(resource, method string, status int, err error, d time.Duration) {
	m.backendRequests.WithLabelValues(resource, method, outcomeLabel(status, err)).Inc()
	m.backendLatency.WithLabelValues(resource, method).Observe(d.Seconds())
}

// ObserveSubmission records a finished submission workflow.
func (m *Metrics) ObserveSubmission(o submission.Outcome) {
	m.submissions.WithLabelValues(string(o.Mode), string(o.State)).Inc()
	if n := len(o.Failures); n > 0 {
		m.dependentFailures.WithLabelValues(string(o.Mode)).Add(float64(n))
	}
}

// ObserveBulkEmail records the per-recipient result of a bulk send.
func (m *Metrics) ObserveBulkEmail(dispatch string, sent, skipped, failed int) {
	m.emailsSent.WithLabelValues(dispatch, "sent").Add(float64(sent))
	m.emailsSent.WithLabelValues(dispatch, "skipped").Add(float64(skipped))
	m.emailsSent.WithLabelValues(dispatch, "failed").Add(float64(failed))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
