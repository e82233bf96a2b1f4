package modelcache

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	evictCapacity = "capacity"
	evictSize     = "size"
)

// cacheMetrics exposes LRUCache state to Prometheus
type cacheMetrics struct {
	evictions *prometheus.CounterVec
	entries   prometheus.Gauge
	size      prometheus.Gauge
}

func newCacheMetrics(reg prometheus.Registerer, name string) (*cacheMetrics, error) {
	labels := prometheus.Labels{"cache": name}
	m := &cacheMetrics{
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "metamodel",
			Subsystem:   "model_cache",
			Name:        "evictions_total",
			ConstLabels: labels,
			Help:        "Models evicted from the cache, by reason",
		}, []string{"reason"}),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "metamodel",
			Subsystem:   "model_cache",
			Name:        "entries",
			ConstLabels: labels,
			Help:        "Number of cached models",
		}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "metamodel",
			Subsystem:   "model_cache",
			Name:        "size_units",
			ConstLabels: labels,
			Help:        "Sum of the sizes of cached models",
		}),
	}

	for _, c := range []prometheus.Collector{m.evictions, m.entries, m.size} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *cacheMetrics) recordEviction(reason string) {
	if m == nil {
		return
	}
	m.evictions.WithLabelValues(reason).Inc()
}

func (m *cacheMetrics) update(entries int, size int64) {
	if m == nil {
		return
	}
	m.entries.Set(float64(entries))
	m.size.Set(float64(size))
}
