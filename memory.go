package scopeacq

import (
	"fmt"
	"math"

	"github.com/daqtools/scopeacq/internal/constants"
	"github.com/daqtools/scopeacq/internal/sysmem"
)

// mulSizeChecked multiplies a and b, returning an error instead of silently
// overflowing. Go has no size_t, so this checks against the platform's
// native uint width via math.MaxUint64 (the ports this module targets are
// all 64-bit).
func mulSizeChecked(op string, a, b uint64) (uint64, error) {
	if a != 0 && b > math.MaxUint64/a {
		return 0, NewError(op, ErrConfig, "size computation overflows")
	}
	return a * b, nil
}

// BytesPerTrace computes n_samples * n_channels * bytes_per_sample with
// overflow checks.
func BytesPerTrace(nSamples, nChannels, bytesPerSample uint64) (uint64, error) {
	tmp, err := mulSizeChecked("memory.BytesPerTrace", nSamples, nChannels)
	if err != nil {
		return 0, err
	}
	traceSize, err := mulSizeChecked("memory.BytesPerTrace", tmp, bytesPerSample)
	if err != nil {
		return 0, err
	}
	if traceSize == 0 {
		return 0, NewError("memory.BytesPerTrace", ErrConfig, "trace size computes to zero")
	}
	return traceSize, nil
}

// BytesPerFlushBatch multiplies bytesPerTrace by nFlushTraces with overflow
// checks.
func BytesPerFlushBatch(bytesPerTrace, nFlushTraces uint64) (uint64, error) {
	return mulSizeChecked("memory.BytesPerFlushBatch", bytesPerTrace, nFlushTraces)
}

// EnforceFlushLimit rejects a flush-batch size that would exceed
// constants.RAMCapFraction of the reported physical RAM, the way
// enforce_flush_limit does, reporting both values in MiB.
func EnforceFlushLimit(bytesPerFlushBatch uint64) error {
	return EnforceFlushLimitAgainst(bytesPerFlushBatch, sysmem.TotalBytes())
}

// EnforceFlushLimitAgainst is EnforceFlushLimit parameterized over the
// total-RAM figure, so callers (and tests, e.g. a 1 MiB cap scenario) can
// supply a fixed value instead of the live host's physical RAM.
func EnforceFlushLimitAgainst(bytesPerFlushBatch, totalRAMBytes uint64) error {
	maxBytes := uint64(float64(totalRAMBytes) * constants.RAMCapFraction)

	if bytesPerFlushBatch > maxBytes {
		return NewError("memory.EnforceFlushLimit", ErrConfig, fmt.Sprintf(
			"requested batch (%.2f MiB) exceeds %.0f%% RAM limit (%.2f MiB)",
			float64(bytesPerFlushBatch)/(1<<20),
			constants.RAMCapFraction*100,
			float64(maxBytes)/(1<<20),
		))
	}
	return nil
}

// PlanMemory computes bytes-per-trace and bytes-per-flush-batch for a run
// and enforces the RAM cap against the live host's physical RAM, returning
// both sizes on success.
func PlanMemory(nSamples, nChannels, bytesPerSample, nFlushTraces uint64) (bytesPerTrace, bytesPerFlushBatch uint64, err error) {
	return PlanMemoryAgainst(nSamples, nChannels, bytesPerSample, nFlushTraces, sysmem.TotalBytes())
}

// PlanMemoryAgainst is PlanMemory parameterized over the total-RAM figure.
func PlanMemoryAgainst(nSamples, nChannels, bytesPerSample, nFlushTraces, totalRAMBytes uint64) (bytesPerTrace, bytesPerFlushBatch uint64, err error) {
	bytesPerTrace, err = BytesPerTrace(nSamples, nChannels, bytesPerSample)
	if err != nil {
		return 0, 0, err
	}
	bytesPerFlushBatch, err = BytesPerFlushBatch(bytesPerTrace, nFlushTraces)
	if err != nil {
		return 0, 0, err
	}
	if err := EnforceFlushLimitAgainst(bytesPerFlushBatch, totalRAMBytes); err != nil {
		return 0, 0, err
	}
	return bytesPerTrace, bytesPerFlushBatch, nil
}
