package scopeacq

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStructuredError(t *testing.T) {
	err := NewError("config.Parse", ErrConfig, "too many channels")

	require.Equal(t, "config.Parse", err.Op)
	require.Equal(t, ErrConfig, err.Code)
	require.Equal(t, "scopeacq: config.Parse: too many channels (config error)", err.Error())
}

func TestErrorWithoutOp(t *testing.T) {
	err := NewError("", ErrIO, "disk full")
	require.Equal(t, "scopeacq: disk full (io error)", err.Error())
}

func TestWrapErrorPreservesCategory(t *testing.T) {
	inner := NewError("transport.Read", ErrTransport, "short read")
	wrapped := WrapError("driver.ReadTrace", ErrHardAcq, inner)

	require.Equal(t, ErrTransport, wrapped.Code, "wrapping a structured error keeps its category")
	require.Equal(t, inner, wrapped.Inner)
}

func TestWrapErrorPlainError(t *testing.T) {
	wrapped := WrapError("outfiles.Open", ErrIO, errors.New("permission denied"))
	require.Equal(t, ErrIO, wrapped.Code)
	require.Equal(t, "permission denied", wrapped.Msg)
}

func TestWrapErrorNil(t *testing.T) {
	require.Nil(t, WrapError("op", ErrIO, nil))
}

func TestIsCode(t *testing.T) {
	err := NewError("memory.Plan", ErrConfig, "batch exceeds RAM cap")

	require.True(t, IsCode(err, ErrConfig))
	require.False(t, IsCode(err, ErrIO))
	require.False(t, IsCode(nil, ErrConfig))
}

func TestSoftMissSentinels(t *testing.T) {
	require.True(t, IsSoftMiss(ErrArmTimeout))
	require.True(t, IsSoftMiss(ErrTriggerTimeout))
	require.False(t, IsSoftMiss(NewError("driver.Arm", ErrHardAcq, "nack")))
	require.False(t, IsSoftMiss(nil))
}

func TestErrorIsByCategory(t *testing.T) {
	a := &Error{Code: ErrTransport}
	b := &Error{Code: ErrTransport}
	c := &Error{Code: ErrIO}

	require.True(t, errors.Is(a, b))
	require.False(t, errors.Is(a, c))
}
