package scopeacq

import (
	"sync/atomic"
	"time"

	"github.com/daqtools/scopeacq/internal/interfaces"
)

// LatencyBuckets defines the acquire-latency histogram buckets in
// nanoseconds, covering 1us to 10s with logarithmic spacing.
var LatencyBuckets = []uint64{
	1_000,          // 1us
	10_000,         // 10us
	100_000,        // 100us
	1_000_000,      // 1ms
	10_000_000,     // 10ms
	100_000_000,    // 100ms
	1_000_000_000,  // 1s
	10_000_000_000, // 10s
}

const numLatencyBuckets = 8

// AcquisitionMetrics tracks the counters and diagnostics described for the
// acquisition state in the data model: trace counts, soft-miss/hard-failure
// tallies, reconnect outcomes, and producer/writer handover balance.
type AcquisitionMetrics struct {
	TracesCaptured atomic.Uint64
	TracesWritten  atomic.Uint64

	SoftMisses    atomic.Uint64
	HardFailures  atomic.Uint64
	Reconnects    atomic.Uint64
	ReconnectFail atomic.Uint64

	HandoversWaited atomic.Uint64
	HandoversNoWait atomic.Uint64

	WriteOps    atomic.Uint64
	WriteBytes  atomic.Uint64
	WriteErrors atomic.Uint64

	TotalAcquireLatencyNs atomic.Uint64
	AcquireCount          atomic.Uint64
	AcquireLatencyHist    [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
	StopTime  atomic.Int64
}

// NewAcquisitionMetrics creates a fresh metrics instance with StartTime set
// to now.
func NewAcquisitionMetrics() *AcquisitionMetrics {
	m := &AcquisitionMetrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordAcquire records the outcome of one acquire-callback invocation.
func (m *AcquisitionMetrics) RecordAcquire(latencyNs uint64, success bool) {
	if success {
		m.TracesCaptured.Add(1)
	}
	m.TotalAcquireLatencyNs.Add(latencyNs)
	m.AcquireCount.Add(1)
	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.AcquireLatencyHist[i].Add(1)
		}
	}
}

// RecordSoftMiss increments the soft-miss counter.
func (m *AcquisitionMetrics) RecordSoftMiss() {
	m.SoftMisses.Add(1)
}

// RecordHardFailure increments the hard-failure counter.
func (m *AcquisitionMetrics) RecordHardFailure() {
	m.HardFailures.Add(1)
}

// RecordReconnect records the outcome of a reconnect attempt.
func (m *AcquisitionMetrics) RecordReconnect(success bool) {
	m.Reconnects.Add(1)
	if !success {
		m.ReconnectFail.Add(1)
	}
}

// RecordHandover records whether the producer had to wait for the writer to
// drain the previous batch before handing off a new one.
func (m *AcquisitionMetrics) RecordHandover(waited bool) {
	if waited {
		m.HandoversWaited.Add(1)
	} else {
		m.HandoversNoWait.Add(1)
	}
}

// RecordWrite records one writer-task disk write. Trace counts are credited
// separately via AddTracesWritten, since one write may cover a full batch or
// only the tail.
func (m *AcquisitionMetrics) RecordWrite(bytes uint64, latencyNs uint64, success bool) {
	m.WriteOps.Add(1)
	if success {
		m.WriteBytes.Add(bytes)
	} else {
		m.WriteErrors.Add(1)
	}
	_ = latencyNs
}

// AddTracesWritten advances the written-trace counter by n, matching the
// writer task crediting n_flush_traces (or the tail's partial count) after a
// successful write.
func (m *AcquisitionMetrics) AddTracesWritten(n uint64) {
	m.TracesWritten.Add(n)
}

// Stop marks the run as finished.
func (m *AcquisitionMetrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time copy of AcquisitionMetrics' counters.
type MetricsSnapshot struct {
	TracesCaptured uint64
	TracesWritten  uint64

	SoftMisses    uint64
	HardFailures  uint64
	Reconnects    uint64
	ReconnectFail uint64

	HandoversWaited uint64
	HandoversNoWait uint64

	WriteOps    uint64
	WriteBytes  uint64
	WriteErrors uint64

	AvgAcquireLatencyNs uint64
	UptimeNs            uint64
	AcquireLatencyHist  [numLatencyBuckets]uint64
}

// Snapshot copies the current counter values.
func (m *AcquisitionMetrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		TracesCaptured:  m.TracesCaptured.Load(),
		TracesWritten:   m.TracesWritten.Load(),
		SoftMisses:      m.SoftMisses.Load(),
		HardFailures:    m.HardFailures.Load(),
		Reconnects:      m.Reconnects.Load(),
		ReconnectFail:   m.ReconnectFail.Load(),
		HandoversWaited: m.HandoversWaited.Load(),
		HandoversNoWait: m.HandoversNoWait.Load(),
		WriteOps:        m.WriteOps.Load(),
		WriteBytes:      m.WriteBytes.Load(),
		WriteErrors:     m.WriteErrors.Load(),
	}

	acquireCount := m.AcquireCount.Load()
	if acquireCount > 0 {
		snap.AvgAcquireLatencyNs = m.TotalAcquireLatencyNs.Load() / acquireCount
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.AcquireLatencyHist[i] = m.AcquireLatencyHist[i].Load()
	}

	return snap
}

// acquisitionObserver adapts AcquisitionMetrics to interfaces.Observer so it
// can be wired into the orchestrator without a direct dependency from the
// internal packages back to the root package.
type acquisitionObserver struct {
	metrics *AcquisitionMetrics
}

// NewMetricsObserver returns an interfaces.Observer that records into m.
func NewMetricsObserver(m *AcquisitionMetrics) interfaces.Observer {
	return &acquisitionObserver{metrics: m}
}

func (o *acquisitionObserver) ObserveAcquire(latencyNs uint64, success bool) {
	o.metrics.RecordAcquire(latencyNs, success)
}

func (o *acquisitionObserver) ObserveSoftMiss() {
	o.metrics.RecordSoftMiss()
}

func (o *acquisitionObserver) ObserveHardFailure() {
	o.metrics.RecordHardFailure()
}

func (o *acquisitionObserver) ObserveReconnect(success bool) {
	o.metrics.RecordReconnect(success)
}

func (o *acquisitionObserver) ObserveHandover(waited bool) {
	o.metrics.RecordHandover(waited)
}

func (o *acquisitionObserver) ObserveWrite(bytes uint64, latencyNs uint64, success bool) {
	o.metrics.RecordWrite(bytes, latencyNs, success)
}

var _ interfaces.Observer = (*acquisitionObserver)(nil)
