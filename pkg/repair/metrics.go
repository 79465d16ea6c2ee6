package repair

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts repair outcomes by final state. A nil *Metrics records
// nothing.
type Metrics struct {
	Outcomes *prometheus.CounterVec
}

// NewMetrics creates the repair counters and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pfcmesh",
			Subsystem: "repair",
			Name:      "outcomes_total",
			Help:      "Meshes checked, by final state.",
		}, []string{"state"}),
	}
	if reg != nil {
		reg.MustRegister(m.Outcomes)
	}
	return m
}

func (m *Metrics) observe(s State) {
	if m != nil {
		m.Outcomes.WithLabelValues(s.String()).Inc()
	}
}
