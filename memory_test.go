package scopeacq

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBytesPerTrace(t *testing.T) {
	got, err := BytesPerTrace(100, 2, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(400), got)
}

func TestBytesPerTraceZeroRejected(t *testing.T) {
	_, err := BytesPerTrace(0, 2, 1)
	require.Error(t, err)
	require.True(t, IsCode(err, ErrConfig))
}

func TestBytesPerTraceOverflowRejected(t *testing.T) {
	_, err := BytesPerTrace(math.MaxUint64, 2, 1)
	require.Error(t, err)
	require.True(t, IsCode(err, ErrConfig))
}

func TestBytesPerFlushBatch(t *testing.T) {
	got, err := BytesPerFlushBatch(400, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(800), got)
}

func TestEnforceFlushLimitAgainstRejectsOverCap(t *testing.T) {
	// S4: RAM cap set to 1 MiB, batch bigger than half of that is rejected.
	err := EnforceFlushLimitAgainst(600*1024, 1<<20)
	require.Error(t, err)
	require.True(t, IsCode(err, ErrConfig))
	require.Contains(t, err.Error(), "RAM limit")
}

func TestEnforceFlushLimitAgainstAcceptsSmallBatch(t *testing.T) {
	require.NoError(t, EnforceFlushLimitAgainst(1024, 1<<20))
}

func TestEnforceFlushLimitUsesLiveHostRAM(t *testing.T) {
	require.NoError(t, EnforceFlushLimit(1024))
}

func TestPlanMemoryHappyPath(t *testing.T) {
	bpt, bpb, err := PlanMemory(100, 2, 2, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(400), bpt)
	require.Equal(t, uint64(800), bpb)
}

func TestPlanMemoryAgainstOverCapRejected(t *testing.T) {
	// S4: -s 1048576 -c CHAN1 -b 2 -w 1 against a 1 MiB RAM cap.
	_, _, err := PlanMemoryAgainst(1048576, 1, 2, 2, 1<<20)
	require.Error(t, err)
	require.True(t, IsCode(err, ErrConfig))
}

func TestPlanMemoryOverflowRejected(t *testing.T) {
	_, _, err := PlanMemory(math.MaxUint64, 2, 2, 2)
	require.Error(t, err)
}
