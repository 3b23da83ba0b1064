package obs

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the module's in-process instrumentation: local counters and
// gauges a caller may optionally scrape. There is no remote push and no
// multi-host rollup here — that would cross into the cluster-aggregation
// non-goal; this is purely "how many samples has this one process taken."
type Metrics struct {
	SamplesTaken    prometheus.Counter
	AlertsTriggered *prometheus.CounterVec
	ProbeDuration   *prometheus.HistogramVec
	DumpsInvoked    *prometheus.CounterVec
	DumpTimeouts    prometheus.Counter
	HistoryPids     prometheus.Gauge
}

// NewMetrics registers a fresh set of collectors against reg. Pass
// prometheus.NewRegistry() for an isolated registry in tests, or
// prometheus.DefaultRegisterer for a process-wide one.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SamplesTaken: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "portwatch",
			Name:      "samples_taken_total",
			Help:      "Number of process samples collected across all monitors.",
		}),
		AlertsTriggered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portwatch",
			Name:      "alerts_triggered_total",
			Help:      "Number of alert evaluations that produced a triggered result, by metric.",
		}, []string{"metric"}),
		ProbeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "portwatch",
			Name:      "health_probe_duration_seconds",
			Help:      "Wall-clock duration of health probes, by protocol.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"protocol"}),
		DumpsInvoked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portwatch",
			Name:      "dumps_invoked_total",
			Help:      "Number of dump-on-breach tool invocations, by kind.",
		}, []string{"kind"}),
		DumpTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "portwatch",
			Name:      "dump_timeouts_total",
			Help:      "Number of dump-on-breach invocations that exceeded the 30s budget.",
		}),
		HistoryPids: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "portwatch",
			Name:      "alert_history_pids",
			Help:      "Number of pids sampled in the most recent monitor tick.",
		}),
	}
	reg.MustRegister(m.SamplesTaken, m.AlertsTriggered, m.ProbeDuration, m.DumpsInvoked, m.DumpTimeouts, m.HistoryPids)
	return m
}
