package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	replicationAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collectfs_worker_replication_attempts_total",
		Help: "Backend write attempts made by the replication worker.",
	}, []string{"collection", "backend"})

	replicationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collectfs_worker_replication_failures_total",
		Help: "Backend writes abandoned after exhausting retries.",
	}, []string{"collection", "backend"})

	replicationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "collectfs_worker_replication_duration_seconds",
		Help:    "Duration of successful backend writes.",
		Buckets: prometheus.DefBuckets,
	}, []string{"collection", "backend"})

	backendRemovalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collectfs_worker_backend_removals_total",
		Help: "Backend copies deleted after record removal.",
	}, []string{"collection", "backend"})

	sweepRequeuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collectfs_worker_sweep_requeued_total",
		Help: "Records requeued for replication by the periodic sweep.",
	}, []string{"collection"})
)
