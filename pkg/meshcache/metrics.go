package meshcache

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts cache outcomes. A nil *Metrics records nothing.
type Metrics struct {
	Hits   prometheus.Counter
	Misses prometheus.Counter
	Writes prometheus.Counter
}

// NewMetrics creates the cache counters and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pfcmesh",
			Subsystem: "meshcache",
			Name:      "hits_total",
			Help:      "Meshes reused from the cache directory.",
		}),
		Misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pfcmesh",
			Subsystem: "meshcache",
			Name:      "misses_total",
			Help:      "Lookups that required a new mesh.",
		}),
		Writes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pfcmesh",
			Subsystem: "meshcache",
			Name:      "writes_total",
			Help:      "STL files written to the cache directory.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Hits, m.Misses, m.Writes)
	}
	return m
}

func (m *Metrics) hit() {
	if m != nil {
		m.Hits.Inc()
	}
}

func (m *Metrics) miss() {
	if m != nil {
		m.Misses.Inc()
	}
}

func (m *Metrics) write() {
	if m != nil {
		m.Writes.Inc()
	}
}
