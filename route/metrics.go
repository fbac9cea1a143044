package route

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records per-query engine statistics
type Metrics struct {
	queries    *prometheus.CounterVec
	expansions prometheus.Histogram
	duration   prometheus.Histogram
	narrow     prometheus.Counter
}

// NewMetrics registers the engine collectors with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		queries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "crewpath_queries_total",
			Help: "Path queries by outcome",
		}, []string{"outcome"}),
		expansions: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "crewpath_search_expansions",
			Help:    "A* node expansions per query",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14), // 1 to ~8k
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "crewpath_query_duration_seconds",
			Help:    "End-to-end query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12), // 0.1ms to ~400ms
		}),
		narrow: f.NewCounter(prometheus.CounterOpts{
			Name: "crewpath_narrow_segments_total",
			Help: "Path segments that failed the clearance check",
		}),
	}
}

func (m *Metrics) observe(a *Analysis, elapsed time.Duration) {
	if m == nil || a == nil {
		return
	}
	m.queries.WithLabelValues(string(a.Outcome)).Inc()
	m.expansions.Observe(float64(a.Expansions))
	m.duration.Observe(elapsed.Seconds())
	if a.Report != nil {
		m.narrow.Add(float64(a.Report.NarrowCount))
	}
}

func (m *Metrics) observeInvalid() {
	if m == nil {
		return
	}
	m.queries.WithLabelValues("invalid").Inc()
}
