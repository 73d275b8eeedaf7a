package simdriver

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type stringLogWriter struct {
	strings.Builder
}

func (w *stringLogWriter) WriteString(s string) (int, error) {
	return w.Builder.WriteString(s)
}

func TestArmTriggerReadCycle(t *testing.T) {
	d := New(Options{Channels: []string{"CHAN1", "CHAN2"}, NSamples: 16, Seed: 1})
	require.NoError(t, d.Init())
	defer d.Destroy()

	require.NoError(t, d.Arm())
	armed, err := d.CheckIfArmed()
	require.NoError(t, err)
	require.True(t, armed)

	var triggered bool
	for i := 0; i < 5 && !triggered; i++ {
		triggered, err = d.CheckIfTriggered()
		require.NoError(t, err)
	}
	require.True(t, triggered)

	dst := make([]byte, 2*16*1)
	require.NoError(t, d.ReadTrace(dst))
}

func TestReadTraceRejectsWrongSize(t *testing.T) {
	d := New(Options{NSamples: 16})
	require.NoError(t, d.Init())
	require.Error(t, d.ReadTrace(make([]byte, 4)))
}

func TestArmFailEverySimulatesTimeout(t *testing.T) {
	d := New(Options{ArmFailEvery: 2, NSamples: 8})
	require.NoError(t, d.Init())

	require.NoError(t, d.Arm())
	armed, err := d.CheckIfArmed()
	require.NoError(t, err)
	require.True(t, armed)

	require.NoError(t, d.Arm())
	armed, err = d.CheckIfArmed()
	require.NoError(t, err)
	require.False(t, armed)
}

func TestOperationsFailAfterDestroy(t *testing.T) {
	d := New(Options{})
	require.NoError(t, d.Init())
	require.NoError(t, d.Destroy())

	_, err := d.CheckIfArmed()
	require.Error(t, err)
}

func TestDumpLogWritesIdentity(t *testing.T) {
	d := New(Options{InstrumentName: "SIM,UNIT-TEST,0,1.0", NSamples: 4})
	require.NoError(t, d.Init())

	var w stringLogWriter
	require.NoError(t, d.DumpLog(&w))
	require.Contains(t, w.String(), "idn=SIM,UNIT-TEST,0,1.0")
	require.Contains(t, w.String(), "preamble_points=4")
}

func TestReconnectReinitializes(t *testing.T) {
	d := New(Options{NSamples: 4})
	require.NoError(t, d.Init())
	require.NoError(t, d.Arm())
	require.NoError(t, d.Reconnect())

	armed, err := d.CheckIfArmed()
	require.NoError(t, err)
	require.False(t, armed)
}
