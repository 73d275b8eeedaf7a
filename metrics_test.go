package scopeacq

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAcquisitionMetricsBasic(t *testing.T) {
	m := NewAcquisitionMetrics()

	m.RecordAcquire(5_000, true)
	m.RecordAcquire(5_000, false)
	m.RecordSoftMiss()
	m.RecordHardFailure()
	m.RecordReconnect(true)
	m.RecordReconnect(false)
	m.RecordHandover(true)
	m.RecordHandover(false)
	m.RecordWrite(800, 1_000, true)
	m.AddTracesWritten(2)

	snap := m.Snapshot()
	require.Equal(t, uint64(1), snap.TracesCaptured, "only the successful acquire increments TracesCaptured")
	require.Equal(t, uint64(2), snap.TracesWritten)
	require.Equal(t, uint64(1), snap.SoftMisses)
	require.Equal(t, uint64(1), snap.HardFailures)
	require.Equal(t, uint64(2), snap.Reconnects)
	require.Equal(t, uint64(1), snap.ReconnectFail)
	require.Equal(t, uint64(1), snap.HandoversWaited)
	require.Equal(t, uint64(1), snap.HandoversNoWait)
	require.Equal(t, uint64(1), snap.WriteOps)
	require.Equal(t, uint64(800), snap.WriteBytes)
}

func TestAcquisitionMetricsAvgLatency(t *testing.T) {
	m := NewAcquisitionMetrics()
	m.RecordAcquire(1_000_000, true)
	m.RecordAcquire(3_000_000, true)

	snap := m.Snapshot()
	require.Equal(t, uint64(2_000_000), snap.AvgAcquireLatencyNs)
}

func TestAcquisitionMetricsHistogramBuckets(t *testing.T) {
	m := NewAcquisitionMetrics()
	m.RecordAcquire(500, true) // falls in every bucket (<=1us and above)

	snap := m.Snapshot()
	for i, count := range snap.AcquireLatencyHist {
		require.GreaterOrEqualf(t, count, uint64(1), "bucket %d should include a 500ns sample", i)
	}
}

func TestAcquisitionMetricsStopSetsUptime(t *testing.T) {
	m := NewAcquisitionMetrics()
	m.Stop()
	snap := m.Snapshot()
	require.GreaterOrEqual(t, snap.UptimeNs, uint64(0))
}

func TestNewMetricsObserverWiring(t *testing.T) {
	m := NewAcquisitionMetrics()
	obs := NewMetricsObserver(m)

	obs.ObserveAcquire(1000, true)
	obs.ObserveSoftMiss()
	obs.ObserveHardFailure()
	obs.ObserveReconnect(true)
	obs.ObserveHandover(false)
	obs.ObserveWrite(400, 500, true)

	snap := m.Snapshot()
	require.Equal(t, uint64(1), snap.TracesCaptured)
	require.Equal(t, uint64(1), snap.SoftMisses)
	require.Equal(t, uint64(1), snap.HardFailures)
	require.Equal(t, uint64(1), snap.Reconnects)
	require.Equal(t, uint64(1), snap.HandoversNoWait)
	require.Equal(t, uint64(400), snap.WriteBytes)
}
