package scopeacq

import "github.com/daqtools/scopeacq/internal/constants"

// Re-export the defaults internal packages share, for callers that only
// import the root package.
const (
	DefaultTimeoutMS     = constants.DefaultTimeoutMS
	ProbeTimeoutMS       = constants.ProbeTimeoutMS
	MaxChannels          = constants.MaxChannels
	DefaultChannel       = constants.DefaultChannel
	BufferAlignment      = constants.BufferAlignment
	FallbackRAMBytes     = constants.FallbackRAMBytes
	RAMCapFraction       = constants.RAMCapFraction
	TraceFileMode        = constants.TraceFileMode
	BytePerSample        = constants.BytePerSample
	WordPerSample        = constants.WordPerSample
	MaxPointsPerReadByte = constants.MaxPointsPerReadByte
	MaxPointsPerReadWord = constants.MaxPointsPerReadWord

	ArmTimeout         = constants.ArmTimeout
	PollInterval       = constants.PollInterval
	HardFailureBackoff = constants.HardFailureBackoff
	NoStoreThrottle    = constants.NoStoreThrottle
)
