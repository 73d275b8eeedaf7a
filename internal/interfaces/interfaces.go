// Package interfaces provides internal interface definitions for scopeacq.
// These are separate from the root package to avoid circular imports between
// the root package and the internal packages that implement them.
package interfaces

import "time"

// Driver is the capability set an instrument driver must expose. It mirrors
// the fixed method table a C implementation would express as a struct of
// function pointers: init, destroy, arm, stop, force-trigger, poll-armed,
// poll-triggered, read-trace, list-channels, dump-log.
//
// Every method returns an error; a nil error is success. Arm/trigger timeout
// conditions are reported as the sentinel errors ErrArmTimeout /
// ErrTriggerTimeout (defined at the root package) rather than as bare codes,
// so the orchestrator can classify them with errors.Is.
type Driver interface {
	// Init opens the transport (explicit or auto-detected), selects the
	// record format and acquisition mode, arms single-sweep triggering,
	// resolves the channel list, and — if the config's sample count is
	// zero — derives it along with the RAW window start index from the
	// instrument's current timebase.
	Init() error

	// Destroy stops acquisition, closes the transport, and releases any
	// driver-held resources. Safe to call once per Init.
	Destroy() error

	// Arm issues a single-shot arm.
	Arm() error

	// Stop halts acquisition.
	Stop() error

	// ForceTrigger issues a software trigger.
	ForceTrigger() error

	// CheckIfArmed reports whether the instrument's trigger status is
	// WAIT or READY.
	CheckIfArmed() (bool, error)

	// CheckIfTriggered reports whether the instrument's trigger status is
	// TD or STOP.
	CheckIfTriggered() (bool, error)

	// ReadTrace fills dst with exactly n_channels * n_samples *
	// bytes_per_sample bytes, laid out channel-major. Implementations
	// with a maximum points-per-read must chunk the transfer themselves.
	ReadTrace(dst []byte) error

	// ListDisplayedChannels returns the channel names currently shown on
	// the instrument, in display order.
	ListDisplayedChannels() ([]string, error)

	// DumpLog writes a human-readable key=value dump of instrument
	// identity, per-channel settings, the waveform preamble, and the
	// timebase-derived sample window to w.
	DumpLog(w LogWriter) error
}

// LogWriter is the minimal sink DumpLog writes key=value lines to; both the
// log file and os.Stdout (diagnose mode, no-store mode) satisfy it.
type LogWriter interface {
	WriteString(s string) (int, error)
}

// Reconnector is satisfied by anything the orchestrator can ask to recover
// the transport session after a hard acquisition failure.
type Reconnector interface {
	Reconnect() error
}

// Preamble is the decoded SCPI waveform preamble (:WAV:PRE?), ten
// comma-separated fields describing how to interpret a captured trace.
type Preamble struct {
	Format      int // 0=BYTE, 1=WORD, 2=ASCII
	Type        int // 0=NORMAL, 1=MAXIMUM, 2=RAW
	Points      int
	Count       int
	XIncrement  float64
	XOrigin     float64
	XReference  float64
	YIncrement  float64
	YOrigin     float64
	YReference  float64
}

// Link is the minimal session the transport layer needs from the underlying
// VISA resource: sequential, non-concurrent read/write plus close.
type Link interface {
	Write(p []byte) (n int, err error)
	Read(p []byte) (n int, err error)
	SetTimeout(d time.Duration) error
	Close() error
}

// LinkOpener resolves a VISA resource name (or auto-detects one) and returns
// an opened Link.
type LinkOpener interface {
	Open(resourceName string) (Link, error)
	// FindResources lists candidate resource names in a given tier
	// (e.g. "USB", "GPIB", "TCPIP") for auto-detection.
	FindResources(tier string) ([]string, error)
}

// Logger is the subset of leveled logging the internal packages depend on.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Observer receives acquisition-loop counters as they change. Implementations
// must be safe to call from the producer goroutine on every trace attempt.
type Observer interface {
	ObserveAcquire(latencyNs uint64, success bool)
	ObserveSoftMiss()
	ObserveHardFailure()
	ObserveReconnect(success bool)
	ObserveHandover(waited bool)
	ObserveWrite(bytes uint64, latencyNs uint64, success bool)
}
