package combine

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the Prometheus collectors of a combiner. A nil *Metrics
// records nothing.
type Metrics struct {
	docsAdded   prometheus.Counter
	docsReduced prometheus.Counter
	docsDrained prometheus.Counter
	spills      prometheus.Counter
	spillBytes  prometheus.Counter
	arenaBytes  prometheus.Gauge
}

// NewMetrics creates the combine collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flowdoc",
			Subsystem: "combine",
			Name:      name,
			Help:      help,
		})
	}
	m := &Metrics{
		docsAdded:   counter("docs_added_total", "Total number of documents added to memtables"),
		docsReduced: counter("docs_reduced_total", "Total number of reductions of documents sharing a key"),
		docsDrained: counter("docs_drained_total", "Total number of documents drained"),
		spills:      counter("spills_total", "Total number of memtables spilled to disk"),
		spillBytes:  counter("spill_bytes_total", "Total bytes written to spill files"),
		arenaBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flowdoc",
			Subsystem: "combine",
			Name:      "arena_bytes",
			Help:      "Bytes held by the current memtable arena",
		}),
	}
	for _, c := range []prometheus.Collector{m.docsAdded, m.docsReduced, m.docsDrained, m.spills, m.spillBytes, m.arenaBytes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) added() {
	if m != nil {
		m.docsAdded.Inc()
	}
}

func (m *Metrics) reduced() {
	if m != nil {
		m.docsReduced.Inc()
	}
}

func (m *Metrics) drained() {
	if m != nil {
		m.docsDrained.Inc()
	}
}

func (m *Metrics) spilled(bytes int64) {
	if m != nil {
		m.spills.Inc()
		m.spillBytes.Add(float64(bytes))
	}
}

func (m *Metrics) arena(used int) {
	if m != nil {
		m.arenaBytes.Set(float64(used))
	}
}
