package daycache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CacheMetrics exports hit/miss counters for the day caches, labeled by
// cache name.
type CacheMetrics struct {
	hits   *prometheus.CounterVec
	misses *prometheus.CounterVec
}

// NewCacheMetrics registers the cache counters on reg. A nil reg registers
// nothing, for tests.
func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	m := &CacheMetrics{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "solaced_cache_hits_total",
			Help: "Day cache hits, by cache.",
		}, []string{"cache"}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "solaced_cache_misses_total",
			Help: "Day cache misses, by cache.",
		}, []string{"cache"}),
	}
	if reg != nil {
		reg.MustRegister(m.hits, m.misses)
	}
	return m
}

// For returns the recorder for one named cache.
func (m *CacheMetrics) For(cache string) Metrics {
	return counterPair{
		hit:  m.hits.WithLabelValues(cache),
		miss: m.misses.WithLabelValues(cache),
	}
}

type counterPair struct {
	hit  prometheus.Counter
	miss prometheus.Counter
}

func (p counterPair) Hit() { p.hit.Inc() }

func (p counterPair) Miss() { p.miss.Inc() }
