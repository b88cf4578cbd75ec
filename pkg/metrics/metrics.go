package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Relay metrics
	RelayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glvault_relay_requests_total",
			Help: "Total number of relay requests by method and response status",
		},
		[]string{"method", "status"},
	)

	RelayRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glvault_relay_rejections_total",
			Help: "Total number of relay requests rejected before dispatch, by reason kind",
		},
		[]string{"kind"},
	)

	UpstreamLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "glvault_relay_upstream_latency_seconds",
			Help:    "Upstream round-trip latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	QuotaRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "glvault_quota_rejections_total",
			Help: "Total number of requests rejected by quota exhaustion",
		},
	)

	// Key lifecycle metrics
	KeysRegistered = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "glvault_keys_registered",
			Help: "Number of aliases currently registered",
		},
	)

	KeyRotationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "glvault_key_rotations_total",
			Help: "Total number of credential rotations",
		},
	)

	// Audit metrics
	AuditEntriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "glvault_audit_entries_total",
			Help: "Total number of audit entries written",
		},
	)

	AuditWriteFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "glvault_audit_write_failures_total",
			Help: "Total number of audit writes that failed after retries",
		},
	)

	AuditSweptTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "glvault_audit_swept_total",
			Help: "Total number of orphaned audit entries removed by the sweeper",
		},
	)

	// Storage metrics
	BackendOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glvault_backend_operations_total",
			Help: "Total number of storage operations by backend and operation",
		},
		[]string{"backend", "op"},
	)

	BackendErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glvault_backend_errors_total",
			Help: "Total number of failed storage operations by backend and operation",
		},
		[]string{"backend", "op"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(RelayRequestsTotal)
	prometheus.MustRegister(RelayRejectionsTotal)
	prometheus.MustRegister(UpstreamLatency)
	prometheus.MustRegister(QuotaRejectionsTotal)
	prometheus.MustRegister(KeysRegistered)
	prometheus.MustRegister(KeyRotationsTotal)
	prometheus.MustRegister(AuditEntriesTotal)
	prometheus.MustRegister(AuditWriteFailuresTotal)
	prometheus.MustRegister(AuditSweptTotal)
	prometheus.MustRegister(BackendOperationsTotal)
	prometheus.MustRegister(BackendErrorsTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
