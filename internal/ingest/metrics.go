package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for streamtally_events_total.
const (
	OutcomeAccepted      = "accepted"
	OutcomeDecodeFailed  = "decode_failed"
	OutcomeStorageFailed = "storage_failed"
	OutcomeUnmatched     = "unmatched"
)

// Metrics exports listener counters to Prometheus.
type Metrics struct {
	events        *prometheus.CounterVec
	state         prometheus.Gauge
	rateLimited   prometheus.Counter
	insertLatency prometheus.Histogram
}

// NewMetrics creates the listener collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "streamtally",
			Name:      "events_total",
			Help:      "Received payloads by outcome",
		}, []string{"outcome"}),
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "streamtally",
			Name:      "listener_state",
			Help:      "Listener state (0 disconnected, 1 connected, 2 streaming, 3 suspended, 4 failed)",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "streamtally",
			Name:      "rate_limited_total",
			Help:      "Rate-limit notices received from the provider",
		}),
		insertLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "streamtally",
			Name:      "insert_duration_seconds",
			Help:      "Time spent inserting one event",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
	}

	// Pre-create outcome series so they are exported at zero.
	for _, o := range []string{OutcomeAccepted, OutcomeDecodeFailed, OutcomeStorageFailed, OutcomeUnmatched} {
		m.events.WithLabelValues(o)
	}

	reg.MustRegister(m.events, m.state, m.rateLimited, m.insertLatency)
	return m
}

func (m *Metrics) outcome(o string) {
	if m != nil {
		m.events.WithLabelValues(o).Inc()
	}
}

func (m *Metrics) setState(s State) {
	if m != nil {
		m.state.Set(float64(s))
	}
}

func (m *Metrics) rateLimit() {
	if m != nil {
		m.rateLimited.Inc()
	}
}

func (m *Metrics) observeInsert(seconds float64) {
	if m != nil {
		m.insertLatency.Observe(seconds)
	}
}
