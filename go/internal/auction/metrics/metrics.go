package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector defines the interface for collecting sync engine metrics
type MetricsCollector interface {
	RecordConnect(reconnect bool)
	RecordDisconnect()
	RecordSnapshotFetch(success bool, duration time.Duration)
	RecordStateWrite(source, outcome string)
	RecordCommand(command string, success bool)
	RecordAckTimeout(command string)
}

// NoOpMetricsCollector is a no-op implementation for when metrics aren't needed
type NoOpMetricsCollector struct{}

func (NoOpMetricsCollector) RecordConnect(reconnect bool)                             {}
func (NoOpMetricsCollector) RecordDisconnect()                                        {}
func (NoOpMetricsCollector) RecordSnapshotFetch(success bool, duration time.Duration) {}
func (NoOpMetricsCollector) RecordStateWrite(source, outcome string)                  {}
func (NoOpMetricsCollector) RecordCommand(command string, success bool)               {}
func (NoOpMetricsCollector) RecordAckTimeout(command string)                          {}

// PrometheusMetrics implements MetricsCollector using Prometheus
type PrometheusMetrics struct {
	connects      *prometheus.CounterVec
	disconnects   prometheus.Counter
	fetches       *prometheus.CounterVec
	fetchDuration prometheus.Histogram
	stateWrites   *prometheus.CounterVec
	commands      *prometheus.CounterVec
	ackTimeouts   *prometheus.CounterVec
}

// NewPrometheusMetrics creates the collectors and registers them with reg.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		connects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auction",
			Subsystem: "channel",
			Name:      "connects_total",
			Help:      "Live channel connections, labelled by whether they were reconnects.",
		}, []string{"kind"}),
		disconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "auction",
			Subsystem: "channel",
			Name:      "disconnects_total",
			Help:      "Live channel drops.",
		}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auction",
			Subsystem: "snapshot",
			Name:      "fetches_total",
			Help:      "Snapshot fetches by result.",
		}, []string{"result"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "auction",
			Subsystem: "snapshot",
			Name:      "fetch_duration_seconds",
			Help:      "Snapshot fetch latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		stateWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auction",
			Subsystem: "store",
			Name:      "writes_total",
			Help:      "State store writes by source and outcome.",
		}, []string{"source", "outcome"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auction",
			Subsystem: "dispatch",
			Name:      "commands_total",
			Help:      "Commands handed to the live channel.",
		}, []string{"command", "result"}),
		ackTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auction",
			Subsystem: "dispatch",
			Name:      "ack_timeouts_total",
			Help:      "Acknowledged commands that timed out.",
		}, []string{"command"}),
	}

	reg.MustRegister(m.connects, m.disconnects, m.fetches, m.fetchDuration, m.stateWrites, m.commands, m.ackTimeouts)
	return m
}

func (m *PrometheusMetrics) RecordConnect(reconnect bool) {
	kind := "initial"
	if reconnect {
		kind = "reconnect"
	}
	m.connects.WithLabelValues(kind).Inc()
}

func (m *PrometheusMetrics) RecordDisconnect() {
	m.disconnects.Inc()
}

func (m *PrometheusMetrics) RecordSnapshotFetch(success bool, duration time.Duration) {
	m.fetches.WithLabelValues(result(success)).Inc()
	m.fetchDuration.Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordStateWrite(source, outcome string) {
	m.stateWrites.WithLabelValues(source, outcome).Inc()
}

func (m *PrometheusMetrics) RecordCommand(command string, success bool) {
	m.commands.WithLabelValues(command, result(success)).Inc()
}

func (m *PrometheusMetrics) RecordAckTimeout(command string) {
	m.ackTimeouts.WithLabelValues(command).Inc()
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
