package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "aurora_watch"

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	PollCycles         *prometheus.CounterVec // labels: outcome={success,fetch_error,parse_error,cancelled}
	PollDuration       prometheus.Histogram
	LastSuccessfulPoll prometheus.Gauge
	PipelineRunning    prometheus.Gauge
	RecordsParsed      prometheus.Counter
	RecordsWritten     prometheus.Counter
	RecordWriteErrors  prometheus.Counter
	RecordSinkErrors   prometheus.Counter
	WindowScans        *prometheus.CounterVec // labels: outcome={success,error}
	WindowScanDuration prometheus.Histogram
	AlertMatches       prometheus.Gauge
	Notifications      *prometheus.CounterVec // labels: outcome={sent,error}
	GraphQLQueries     *prometheus.CounterVec // labels: outcome={success,error}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.PollCycles,
		m.PollDuration,
		m.LastSuccessfulPoll,
		m.PipelineRunning,
		m.RecordsParsed,
		m.RecordsWritten,
		m.RecordWriteErrors,
		m.RecordSinkErrors,
		m.WindowScans,
		m.WindowScanDuration,
		m.AlertMatches,
		m.Notifications,
		m.GraphQLQueries,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PollCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_cycles_total",
			Help:      "Poll cycles by outcome.",
		}, []string{"outcome"}),
		PollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Duration of a complete fetch-parse-store-alert cycle.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		LastSuccessfulPoll: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_successful_poll_timestamp_seconds",
			Help:      "Unix time of the last cycle that completed without a fatal error.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the poll loop is active, 0 when shut down.",
		}),
		RecordsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_parsed_total",
			Help:      "Activity observations parsed from the feed.",
		}),
		RecordsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_written_total",
			Help:      "Status records upserted into the store.",
		}),
		RecordWriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "record_write_errors_total",
			Help:      "Status record upserts that failed after retry.",
		}),
		RecordSinkErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "record_sink_errors_total",
			Help:      "Failed publishes of written records to the record topic.",
		}),
		WindowScans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "window_scans_total",
			Help:      "Time-window store scans by outcome.",
		}, []string{"outcome"}),
		WindowScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "window_scan_duration_seconds",
			Help:      "Duration of a full-table window scan.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		AlertMatches: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "alert_matches",
			Help:      "Records matching the alert status in the last evaluated window.",
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Alert notification publishes by outcome.",
		}, []string{"outcome"}),
		GraphQLQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graphql_queries_total",
			Help:      "GraphQL requests by outcome.",
		}, []string{"outcome"}),
	}
}
