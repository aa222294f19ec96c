package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics captures installer activity.
type Metrics interface {
	IncArtifacts(outcome string, n int)
	AddFetchedBytes(n int64)
	IncRuns(op, status string)
	ObserveRunDuration(op string, seconds float64)
}

// Noop implements Metrics without emitting anything.
type Noop struct{}

func (Noop) IncArtifacts(string, int)           {}
func (Noop) AddFetchedBytes(int64)              {}
func (Noop) IncRuns(string, string)             {}
func (Noop) ObserveRunDuration(string, float64) {}

// Prom implements Metrics on a private registry. The installer runs as a
// one-shot process, so the registry is exported through WriteTextfile for a
// node exporter textfile collector rather than served over HTTP.
type Prom struct {
	registry     *prometheus.Registry
	artifacts    *prometheus.CounterVec
	fetchedBytes prometheus.Counter
	runs         *prometheus.CounterVec
	duration     *prometheus.HistogramVec
}

// NewProm registers the installer collectors under namespace.
func NewProm(namespace string) *Prom {
	p := &Prom{
		registry: prometheus.NewRegistry(),
		artifacts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_total",
			Help:      "Artifacts processed by outcome",
		}, []string{"outcome"}),
		fetchedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetched_bytes_total",
			Help:      "Bytes downloaded into staging",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Install and rollback runs by status",
		}, []string{"op", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Install and rollback run duration",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14),
		}, []string{"op"}),
	}
	p.registry.MustRegister(p.artifacts, p.fetchedBytes, p.runs, p.duration)
	return p
}

func (p *Prom) IncArtifacts(outcome string, n int) {
	if n <= 0 {
		return
	}
	p.artifacts.WithLabelValues(outcome).Add(float64(n))
}

func (p *Prom) AddFetchedBytes(n int64) {
	if n > 0 {
		p.fetchedBytes.Add(float64(n))
	}
}

func (p *Prom) IncRuns(op, status string) {
	p.runs.WithLabelValues(op, status).Inc()
}

func (p *Prom) ObserveRunDuration(op string, seconds float64) {
	p.duration.WithLabelValues(op).Observe(seconds)
}

// Gatherer exposes the registry for tests and exporters.
func (p *Prom) Gatherer() prometheus.Gatherer {
	return p.registry
}

// WriteTextfile atomically writes the registry in text exposition format.
func (p *Prom) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, p.registry)
}
