package metrics

import "github.com/prometheus/client_golang/prometheus"

// Domain collectors.
var (
	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Candidate search latency including ranking",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"kind", "status"},
	)

	IndexWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_writes_total",
			Help:      "Index mutations by operation and outcome",
		},
		[]string{"op", "status"}, // op: upsert / remove
	)

	QuotaDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_decisions_total",
			Help:      "Quota check-and-debit outcomes",
		},
		[]string{"quota_type", "decision"}, // allowed / denied / unmetered
	)

	AuditFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_write_failures_total",
			Help:      "Consultation audit entries that could not be recorded",
		},
	)

	BootstrapAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_bootstrap_attempts_total",
			Help:      "Search index bootstrap attempts",
		},
		[]string{"status"},
	)

	StatusEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_events_total",
			Help:      "Profile status events consumed by outcome",
		},
		[]string{"status"}, // ok / invalid / error
	)
)

var domainRegistered bool

// RegisterDomainMetrics registers the domain collectors. Must be called once from main.
func RegisterDomainMetrics() {
	if domainRegistered {
		return
	}
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(IndexWritesTotal)
	prometheus.MustRegister(QuotaDecisionsTotal)
	prometheus.MustRegister(AuditFailuresTotal)
	prometheus.MustRegister(BootstrapAttemptsTotal)
	prometheus.MustRegister(StatusEventsTotal)
	domainRegistered = true
}
