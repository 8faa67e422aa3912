package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics(reg)

	m.RecordConnect(false)
	m.RecordConnect(true)
	m.RecordConnect(true)
	m.RecordSnapshotFetch(true, 20*time.Millisecond)
	m.RecordSnapshotFetch(false, time.Second)
	m.RecordCommand("placeBid", true)
	m.RecordAckTimeout("admin:addPlayer")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.connects.WithLabelValues("reconnect")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.connects.WithLabelValues("initial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetches.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commands.WithLabelValues("placeBid", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ackTimeouts.WithLabelValues("admin:addPlayer")))
}
