package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docgate", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docgate", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	Operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docgate", Name: "operations_total", Help: "Collection operations by operation and outcome kind."},
		[]string{"operation", "outcome"},
	)
	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "docgate", Name: "operation_duration_seconds", Help: "Latency of collection operations.", Buckets: prometheus.DefBuckets},
		[]string{"operation"},
	)
	DocumentsAffected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docgate", Name: "documents_affected_total", Help: "Documents inserted, updated or soft-deleted."},
		[]string{"operation"},
	)
	AuditDropped = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "docgate", Name: "audit_dropped_total", Help: "Audit records dropped because the buffer was full or the sink failed."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(Operations)
	reg.MustRegister(OperationDuration)
	reg.MustRegister(DocumentsAffected)
	reg.MustRegister(AuditDropped)
}

// ObserveOperation records one finished collection operation.
func ObserveOperation(operation, outcome string, affected int64, d time.Duration) {
	Operations.WithLabelValues(operation, outcome).Inc()
	OperationDuration.WithLabelValues(operation).Observe(d.Seconds())
	if affected > 0 {
		DocumentsAffected.WithLabelValues(operation).Add(float64(affected))
	}
}
