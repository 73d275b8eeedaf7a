package scopeacq

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestConfig(t *testing.T, outfile string, nChannels, nSamples, nFlushTraces, nTraces int) *Config {
	t.Helper()
	cfg := NewConfig()
	for i := 0; i < nChannels; i++ {
		require.NoError(t, cfg.AddChannel(string(rune('A'+i))))
	}
	cfg.NSamples = nSamples
	cfg.NFlushTraces = nFlushTraces
	cfg.NTraces = nTraces
	cfg.Outfile = outfile
	cfg.InstrName = "TEST,MOCK,0,1.0"
	return cfg
}

func TestRunNoStoreModeCapturesNTraces(t *testing.T) {
	driver := NewMockDriver(2, 4, 1, 7)
	cfg := newTestConfig(t, "", 2, 4, 2, 5)

	e := NewEngine(cfg, driver, driver)
	require.NoError(t, e.Run(context.Background()))

	snap := e.Metrics().Snapshot()
	require.Equal(t, uint64(5), snap.TracesCaptured)
}

func TestRunStoreModeWritesBinAndLog(t *testing.T) {
	driver := NewMockDriver(2, 4, 1, 7)
	base := filepath.Join(t.TempDir(), "run")
	cfg := newTestConfig(t, base, 2, 4, 2, 4)

	e := NewEngine(cfg, driver, driver)
	require.NoError(t, e.Run(context.Background()))

	snap := e.Metrics().Snapshot()
	require.Equal(t, uint64(4), snap.TracesCaptured)
	require.Equal(t, uint64(4), snap.TracesWritten)

	matches, err := filepath.Glob(base + "_*.bin")
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	require.Equal(t, driver.TraceSize()*4, len(data))
	for _, b := range data {
		require.Equal(t, byte(7), b)
	}

	logMatches, err := filepath.Glob(base + "_*.log")
	require.NoError(t, err)
	require.Len(t, logMatches, 1)
	logData, err := os.ReadFile(logMatches[0])
	require.NoError(t, err)
	content := string(logData)
	require.Contains(t, content, "instrument_name=TEST,MOCK,0,1.0\n")
	require.Contains(t, content, "ntraces_written=4\n")
	require.Contains(t, content, "driver=mock\n")
}

func TestSoftMissIsRetriedWithoutAdvancingCaptureCount(t *testing.T) {
	driver := NewMockDriver(1, 4, 1, 1)
	driver.Script(ErrArmTimeout, nil, nil)
	cfg := newTestConfig(t, "", 1, 4, 2, 2)

	e := NewEngine(cfg, driver, driver)
	require.NoError(t, e.Run(context.Background()))

	snap := e.Metrics().Snapshot()
	require.Equal(t, uint64(2), snap.TracesCaptured)
	require.Equal(t, uint64(1), snap.SoftMisses)

	// DefaultAcquire force-triggers every attempt that armed successfully,
	// whether or not the read that follows ends up a soft miss.
	require.Equal(t, 3, driver.CallCounts()["forceTrigger"])
}

func TestHardFailureReconnectsAndContinues(t *testing.T) {
	driver := NewMockDriver(1, 4, 1, 1)
	driver.Script(errors.New("scope bus error"), nil, nil)
	cfg := newTestConfig(t, "", 1, 4, 2, 2)

	e := NewEngine(cfg, driver, driver, WithAcquireFunc(DefaultAcquire))
	require.NoError(t, e.Run(context.Background()))

	snap := e.Metrics().Snapshot()
	require.Equal(t, uint64(2), snap.TracesCaptured)
	require.Equal(t, uint64(1), snap.HardFailures)
	require.Equal(t, uint64(1), snap.Reconnects)
	require.Equal(t, uint64(0), snap.ReconnectFail)
}

func TestHardFailureWithFailedReconnectStopsRun(t *testing.T) {
	driver := NewMockDriver(1, 4, 1, 1)
	driver.Script(errors.New("scope bus error"))
	driver.FailNextReconnect(1)
	cfg := newTestConfig(t, "", 1, 4, 2, 100)

	e := NewEngine(cfg, driver, driver)
	require.NoError(t, e.Run(context.Background()))

	snap := e.Metrics().Snapshot()
	require.Less(t, snap.TracesCaptured, uint64(100))
	require.Equal(t, uint64(1), snap.HardFailures)
	require.Equal(t, uint64(1), snap.ReconnectFail)
}

func TestRequestStopFlushesTailBatch(t *testing.T) {
	driver := NewMockDriver(1, 4, 1, 3)
	base := filepath.Join(t.TempDir(), "run")
	cfg := newTestConfig(t, base, 1, 4, 10, 0) // unlimited, large flush batch

	e := NewEngine(cfg, driver, driver)

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()

	time.Sleep(20 * time.Millisecond)
	e.RequestStop()
	require.NoError(t, <-done)

	snap := e.Metrics().Snapshot()
	require.Greater(t, snap.TracesCaptured, uint64(0))
	require.Equal(t, snap.TracesCaptured, snap.TracesWritten,
		"every captured trace must reach disk, whether via a full batch or the tail flush on stop")
}

func TestContextCancellationStopsRun(t *testing.T) {
	driver := NewMockDriver(1, 4, 1, 9)
	cfg := newTestConfig(t, "", 1, 4, 1000, 0) // unlimited

	e := NewEngine(cfg, driver, driver)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}

func TestDiagnoseModeInitsAndDestroys(t *testing.T) {
	driver := NewMockDriver(1, 4, 1, 0)
	cfg := NewConfig()
	cfg.Diagnose = true

	e := NewEngine(cfg, driver, driver)
	require.NoError(t, e.Run(context.Background()))

	counts := driver.CallCounts()
	require.Equal(t, 1, counts["init"])
	require.Equal(t, 1, counts["destroy"])
	require.True(t, driver.IsDestroyed())
}

func TestHandoverCountsAccountForEveryBatch(t *testing.T) {
	driver := NewMockDriver(1, 4, 1, 2)
	base := filepath.Join(t.TempDir(), "run")
	cfg := newTestConfig(t, base, 1, 4, 2, 6)

	e := NewEngine(cfg, driver, driver)
	require.NoError(t, e.Run(context.Background()))

	snap := e.Metrics().Snapshot()
	totalHandovers := snap.HandoversWaited + snap.HandoversNoWait
	require.Equal(t, uint64(3), totalHandovers) // 6 traces / 2 per batch
}
