package modelsource

import (
	"github.com/prometheus/client_golang/prometheus"
)

type sourceMetrics struct {
	hits          prometheus.Counter
	misses        prometheus.Counter
	builds        prometheus.Counter
	failures      prometheus.Counter
	buildDuration prometheus.Histogram
}

func newSourceMetrics(reg prometheus.Registerer) (*sourceMetrics, error) {
	m := &sourceMetrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "metamodel",
			Subsystem: "model_source",
			Name:      "cache_hits_total",
			Help:      "Model requests served from the cache",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "metamodel",
			Subsystem: "model_source",
			Name:      "cache_misses_total",
			Help:      "Model requests that had to build a model",
		}),
		builds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "metamodel",
			Subsystem: "model_source",
			Name:      "builds_total",
			Help:      "Models built and validated successfully",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "metamodel",
			Subsystem: "model_source",
			Name:      "build_failures_total",
			Help:      "Model builds that failed configuration or validation",
		}),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "metamodel",
			Subsystem: "model_source",
			Name:      "build_duration_seconds",
			Help:      "Time spent building, validating and compiling a model",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}),
	}

	for _, c := range []prometheus.Collector{m.hits, m.misses, m.builds, m.failures, m.buildDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *sourceMetrics) recordHit() {
	if m != nil {
		m.hits.Inc()
	}
}

func (m *sourceMetrics) recordMiss() {
	if m != nil {
		m.misses.Inc()
	}
}

func (m *sourceMetrics) recordBuild(seconds float64) {
	if m != nil {
		m.builds.Inc()
		m.buildDuration.Observe(seconds)
	}
}

func (m *sourceMetrics) recordFailure() {
	if m != nil {
		m.failures.Inc()
	}
}
