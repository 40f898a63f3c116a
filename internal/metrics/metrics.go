package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ug_admin"

// Metrics holds the application's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	AuthDecisions   *prometheus.CounterVec
	AuditEvents     *prometheus.CounterVec
	SearchDuration  prometheus.Histogram
	ImportRows      *prometheus.CounterVec
	EmailsSent      *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
	HTTPDurationSec *prometheus.HistogramVec
}

// New registers every collector with reg. Tests pass a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AuthDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_decisions_total",
			Help:      "Authorization outcomes by result",
		}, []string{"result"}),
		AuditEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_events_total",
			Help:      "Audit events by action and whether they were stored",
		}, []string{"action", "stored"}),
		SearchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Latency of student searches",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		ImportRows: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_rows_total",
			Help:      "Bulk import rows by outcome",
		}, []string{"outcome"}),
		EmailsSent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_total",
			Help:      "Notification deliveries by template and status",
		}, []string{"template", "status"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		HTTPDurationSec: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) ObserveAuth(result string) {
	if m == nil {
		return
	}
	m.AuthDecisions.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveAudit(action string, stored bool) {
	if m == nil {
		return
	}
	label := "false"
	if stored {
		label = "true"
	}
	m.AuditEvents.WithLabelValues(action, label).Inc()
}

func (m *Metrics) ObserveSearch(d time.Duration) {
	if m == nil {
		return
	}
	m.SearchDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveImport(succeeded, failed int) {
	if m == nil {
		return
	}
	m.ImportRows.WithLabelValues("success").Add(float64(succeeded))
	m.ImportRows.WithLabelValues("failure").Add(float64(failed))
}

func (m *Metrics) ObserveEmail(template, status string) {
	if m == nil {
		return
	}
	m.EmailsSent.WithLabelValues(template, status).Inc()
}

func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
	m.HTTPDurationSec.WithLabelValues(method, route).Observe(d.Seconds())
}
