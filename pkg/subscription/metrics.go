package subscription

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "storefront_billing"

// Metrics groups the billing collectors. A nil *Metrics records nothing, so
// the service never has to check whether metrics are enabled.
type Metrics struct {
	transitions      *prometheus.CounterVec
	notices          *prometheus.CounterVec
	webhooks         *prometheus.CounterVec
	issuance         *prometheus.CounterVec
	amountMismatches prometheus.Counter
	jobRuns          *prometheus.CounterVec
	jobDuration      prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
// Panics if registration fails, as promauto does.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "status_transitions_total",
			Help:      "Subscription status changes written",
		}, []string{"from", "to"}),
		notices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "notices_total",
			Help:      "Reminder notices by stage and result",
		}, []string{"stage", "result"}), // "sent", "deduplicated", "failed"
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "webhook_notifications_total",
			Help:      "Payment notifications by reconciliation outcome",
		}, []string{"outcome"}),
		issuance: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "invoice_issuance_total",
			Help:      "Current invoice requests by mode and result",
		}, []string{"mode", "result"}),
		amountMismatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "payment_amount_mismatches_total",
			Help:      "Approved payments whose amount differs from the invoice snapshot",
		}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "job_runs_total",
			Help:      "Reconciliation job runs by result",
		}, []string{"result"}), // "ok", "skipped", "error"
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of reconciliation job runs",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.transitions,
			m.notices,
			m.webhooks,
			m.issuance,
			m.amountMismatches,
			m.jobRuns,
			m.jobDuration,
		)
	}
	return m
}

func (m *Metrics) transition(from, to Status) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(from), string(to)).Inc()
}

func (m *Metrics) notice(stage NoticeStage, result string) {
	if m == nil {
		return
	}
	m.notices.WithLabelValues(string(stage), result).Inc()
}

func (m *Metrics) webhook(outcome Outcome) {
	if m == nil {
		return
	}
	m.webhooks.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) issued(mode IssueMode, result string) {
	if m == nil {
		return
	}
	m.issuance.WithLabelValues(string(mode), result).Inc()
}

func (m *Metrics) amountMismatch() {
	if m == nil {
		return
	}
	m.amountMismatches.Inc()
}

func (m *Metrics) jobRun(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(result).Inc()
	if result != "skipped" {
		m.jobDuration.Observe(d.Seconds())
	}
}
