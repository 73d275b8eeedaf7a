package scopeacq

import (
	"errors"
	"fmt"
)

// Error represents a structured acquisition-engine error with stage context.
type Error struct {
	Op    string  // operation that failed, e.g. "transport.Open", "driver.Arm"
	Code  ErrCode // high-level error category
	Msg   string  // human-readable message
	Inner error   // wrapped error, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Inner != nil {
		msg = e.Inner.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("scopeacq: %s: %s (%s)", e.Op, msg, e.Code)
	}
	return fmt.Sprintf("scopeacq: %s (%s)", msg, e.Code)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is provides errors.Is support comparing by category.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}
	return false
}

// ErrCode is one of the error taxonomy categories from the design's error
// handling section.
type ErrCode string

const (
	// ErrConfig covers bad CLI input, channel-capacity overflow, and RAM
	// cap violations — anything rejected before a run starts.
	ErrConfig ErrCode = "config error"

	// ErrTransport covers VISA open/read/write failures, timeouts, and
	// incomplete definite-length blocks.
	ErrTransport ErrCode = "transport error"

	// ErrDriver covers unexpected SCPI replies and preamble parse
	// failures from the instrument driver.
	ErrDriver ErrCode = "driver error"

	// ErrSoftMiss covers an arm-timeout or trigger-timeout on a single
	// acquisition attempt; caught and retried by the orchestrator, never
	// surfaced to the caller as a run failure.
	ErrSoftMiss ErrCode = "soft miss"

	// ErrHardAcq covers any driver return code other than the soft-miss
	// sentinels; triggers one reconnect attempt.
	ErrHardAcq ErrCode = "hard acquisition error"

	// ErrIO covers output/log file open and write failures.
	ErrIO ErrCode = "io error"

	// ErrResource covers allocation and synchronization setup failures
	// (buffer allocation, writer goroutine spawn).
	ErrResource ErrCode = "resource error"

	// ErrCancelled marks a run that ended because the stop flag was set,
	// either by a signal or by an unrecoverable error elsewhere.
	ErrCancelled ErrCode = "cancelled"
)

// Sentinel driver return-code errors. A driver's acquire path returns one of
// these (wrapped via errors.Is) to signal a soft miss rather than a hard
// failure; any other non-nil error is treated as hard.
var (
	// ErrArmTimeout corresponds to ACQ_ERR_ARM_TIMEOUT: the instrument did
	// not report armed within the arm-timeout budget.
	ErrArmTimeout = &Error{Op: "driver.CheckIfArmed", Code: ErrSoftMiss, Msg: "arm timeout"}

	// ErrTriggerTimeout corresponds to ACQ_ERR_TRIGGER_TIMEOUT: the
	// instrument did not report triggered within the trigger-timeout
	// budget.
	ErrTriggerTimeout = &Error{Op: "driver.CheckIfTriggered", Code: ErrSoftMiss, Msg: "trigger timeout"}
)

// IsSoftMiss reports whether err is (or wraps) one of the soft-miss
// sentinels the orchestrator retries without counting.
func IsSoftMiss(err error) bool {
	return errors.Is(err, ErrArmTimeout) || errors.Is(err, ErrTriggerTimeout)
}

// NewError creates a new structured error.
func NewError(op string, code ErrCode, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// WrapError wraps an existing error with engine context, preserving its
// category when inner is already a structured *Error.
func WrapError(op string, code ErrCode, inner error) *Error {
	if inner == nil {
		return nil
	}
	if ie, ok := inner.(*Error); ok {
		return &Error{Op: op, Code: ie.Code, Msg: ie.Msg, Inner: ie}
	}
	return &Error{Op: op, Code: code, Msg: inner.Error(), Inner: inner}
}

// IsCode reports whether err is (or wraps) a structured *Error with the
// given category.
func IsCode(err error, code ErrCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
