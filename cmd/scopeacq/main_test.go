package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunNoStoreModeSucceeds(t *testing.T) {
	code := run([]string{"-n", "3", "-s", "8", "-c", "CHAN1"})
	require.Equal(t, 0, code)
}

func TestRunStoreModeWritesFiles(t *testing.T) {
	base := filepath.Join(t.TempDir(), "run")
	code := run([]string{"-n", "3", "-b", "2", "-s", "8", "-o", base})
	require.Equal(t, 0, code)

	matches, err := filepath.Glob(base + "_*.bin")
	require.NoError(t, err)
	require.Len(t, matches, 1)
}

func TestRunRejectsBadCoding(t *testing.T) {
	code := run([]string{"-w", "NOTACODING"})
	require.Equal(t, 2, code)
}

func TestRunDiagnoseMode(t *testing.T) {
	code := run([]string{"-diagnose"})
	require.Equal(t, 0, code)
}
