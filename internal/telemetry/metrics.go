package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the orchestrator's Prometheus instrumentation.
type Metrics struct {
	DeploymentsStarted *prometheus.CounterVec
	DeploymentsFailed  *prometheus.CounterVec
	DiscoveryScans     prometheus.Counter
	ReadinessWait      prometheus.Histogram
}

// NewMetrics creates and registers the orchestrator metrics on the given
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DeploymentsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "modelserve_deployments_started_total",
			Help: "Deployments submitted to the platform, by backend.",
		}, []string{"backend"}),
		DeploymentsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "modelserve_deployments_failed_total",
			Help: "Deployments that failed, by backend and reason.",
		}, []string{"backend", "reason"}),
		DiscoveryScans: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "modelserve_discovery_scans_total",
			Help: "Fleet discovery scans performed.",
		}),
		ReadinessWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "modelserve_readiness_wait_seconds",
			Help:    "Time jobs spent in pending before starting.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
	reg.MustRegister(m.DeploymentsStarted, m.DeploymentsFailed, m.DiscoveryScans, m.ReadinessWait)
	return m
}

// NewNopMetrics creates unregistered metrics for tests.
func NewNopMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
