package tesscache

import "github.com/prometheus/client_golang/prometheus"

// Lookup results used as the "result" label of the lookups counter.
const (
	resultHit   = "hit"
	resultMiss  = "miss"
	resultStale = "stale"
	resultWait  = "wait"
)

type metrics struct {
	lookups       *prometheus.CounterVec
	builds        *prometheus.CounterVec
	buildDuration prometheus.Histogram
	evictions     prometheus.Counter
	entries       prometheus.GaugeFunc
}

func newMetrics(namespace string, size func() float64) *metrics {
	return &metrics{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tesscache",
			Name:      "lookups_total",
			Help:      "Tessellation cache lookups by result",
		}, []string{"result"}),
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tesscache",
			Name:      "builds_total",
			Help:      "Patch tree builds by outcome",
		}, []string{"outcome"}),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tesscache",
			Name:      "build_duration_seconds",
			Help:      "Patch tree build duration",
			Buckets:   []float64{0.000001, 0.00001, 0.0001, 0.001, 0.01, 0.1},
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tesscache",
			Name:      "evictions_total",
			Help:      "Entries evicted by the LRU policy",
		}),
		entries: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tesscache",
			Name:      "entries",
			Help:      "Entries currently cached",
		}, size),
	}
}

func (m *metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.lookups, m.builds, m.buildDuration, m.evictions, m.entries}
}
