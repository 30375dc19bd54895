package metrics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfsd3/nfsd3/internal/metrics"
)

func TestRecordRequestIncrementsCounter(t *testing.T) {
	m := metrics.New()
	m.RecordRequest("GETATTR", "NFS3_OK", 2*time.Millisecond)

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() == "nfsd3_requests_total" {
			found = true
			require.Len(t, f.Metric, 1)
			assert.Equal(t, float64(1), f.Metric[0].Counter.GetValue())
		}
	}
	assert.True(t, found, "expected nfsd3_requests_total to be registered")
}

func TestConnectionOpenedAndClosedTrackGauge(t *testing.T) {
	m := metrics.New()
	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	for _, f := range families {
		if f.GetName() == "nfsd3_active_connections" {
			require.Len(t, f.Metric, 1)
			assert.Equal(t, float64(1), f.Metric[0].Gauge.GetValue())
		}
		if f.GetName() == "nfsd3_connections_accepted_total" {
			require.Len(t, f.Metric, 1)
			assert.Equal(t, float64(2), f.Metric[0].Counter.GetValue())
		}
	}
}

func TestNilMetricsIsSafeToCall(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("GETATTR", "NFS3_OK", time.Millisecond)
		m.RecordBytes("read", 128)
		m.ConnectionOpened()
		m.ConnectionClosed()
		assert.Nil(t, m.Registry())
	})
}

func TestRecordBytesTracksDirection(t *testing.T) {
	m := metrics.New()
	m.RecordBytes("read", 100)
	m.RecordBytes("write", 50)

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	byDirection := map[string]float64{}
	for _, f := range families {
		if f.GetName() != "nfsd3_bytes_transferred_total" {
			continue
		}
		for _, metric := range f.Metric {
			for _, label := range metric.Label {
				if label.GetName() == "direction" {
					byDirection[label.GetValue()] = metric.Counter.GetValue()
				}
			}
		}
	}
	assert.Equal(t, float64(100), byDirection["read"])
	assert.Equal(t, float64(50), byDirection["write"])
}
