// Package metrics exposes halin's own Prometheus collectors.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	ClusterMembers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "halin",
		Name:      "cluster_members",
		Help:      "Number of members found by the last discovery",
	})

	Discoveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "halin",
		Name:      "discoveries_total",
		Help:      "Topology discoveries by outcome (cluster, single, error)",
	}, []string{"mode"})

	PoolDials = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "halin",
		Subsystem: "pool",
		Name:      "dials_total",
		Help:      "Total number of new driver connections created",
	})
	PoolReuse = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "halin",
		Subsystem: "pool",
		Name:      "reuse_total",
		Help:      "Total number of driver lookups served from the pool",
	})
	PoolActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "halin",
		Subsystem: "pool",
		Name:      "active",
		Help:      "Number of pooled driver connections",
	})

	Probes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "halin",
		Subsystem: "diagnostics",
		Name:      "probes_total",
		Help:      "Diagnostic probes by domain and outcome",
	}, []string{"domain", "outcome"})
	DiagnosticsDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "halin",
		Subsystem: "diagnostics",
		Name:      "run_duration_seconds",
		Help:      "Wall time of a full diagnostics run",
		Buckets:   prometheus.DefBuckets,
	})

	Findings = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "halin",
		Subsystem: "advisor",
		Name:      "findings_total",
		Help:      "Advisor findings by level",
	}, []string{"level"})

	PollLatency = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "halin",
		Subsystem: "poll",
		Name:      "latency_seconds",
		Help:      "Latest round-trip time per member",
	}, []string{"member"})
	PollErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "halin",
		Subsystem: "poll",
		Name:      "errors_total",
		Help:      "Failed polls per member",
	}, []string{"member"})

	Samples = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "halin",
		Subsystem: "sampler",
		Name:      "queries_total",
		Help:      "Feature queries run by the sampler, by feature and outcome",
	}, []string{"feature", "outcome"})

	Published = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "halin",
		Subsystem: "publish",
		Name:      "packages_total",
		Help:      "Diagnostics packages published by backend and result",
	}, []string{"backend", "result"})
)

// Register registers metrics into the default Prometheus registry (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(ClusterMembers)
		prometheus.MustRegister(Discoveries)
		prometheus.MustRegister(PoolDials)
		prometheus.MustRegister(PoolReuse)
		prometheus.MustRegister(PoolActive)
		prometheus.MustRegister(Probes)
		prometheus.MustRegister(DiagnosticsDuration)
		prometheus.MustRegister(Findings)
		prometheus.MustRegister(PollLatency)
		prometheus.MustRegister(PollErrors)
		prometheus.MustRegister(Samples)
		prometheus.MustRegister(Published)
	})
}
