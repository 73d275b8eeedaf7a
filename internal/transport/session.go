// Package transport implements the SCPI-over-VISA session primitives the
// driver layer relies on: line-oriented writes, terminated queries, and
// binary-safe definite-length block decoding.
package transport

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/daqtools/scopeacq/internal/buffer"
	"github.com/daqtools/scopeacq/internal/constants"
	"github.com/daqtools/scopeacq/internal/interfaces"
)

// Session holds an opened Link, the resolved resource name, and the I/O
// timeout that governs every read and write — the Go analogue of the C
// Scope struct's resource-manager handle, instrument handle, and
// timeout_ms field.
type Session struct {
	opener interfaces.LinkOpener
	link   interfaces.Link

	ResourceName string
	TimeoutMS    int
}

// NewSession creates a Session bound to opener, with the default I/O
// timeout applied if timeoutMS is zero.
func NewSession(opener interfaces.LinkOpener, timeoutMS int) *Session {
	if timeoutMS == 0 {
		timeoutMS = constants.DefaultTimeoutMS
	}
	return &Session{opener: opener, TimeoutMS: timeoutMS}
}

func transportErr(op, msg string) error {
	return &transportError{op: op, msg: msg}
}

// transportError is a minimal local error type; the root package wraps it
// into its own *Error taxonomy at the call boundary (orchestrator/driver),
// keeping this package free of an import cycle back to the root.
type transportError struct {
	op  string
	msg string
}

func (e *transportError) Error() string {
	return fmt.Sprintf("transport: %s: %s", e.op, e.msg)
}

// ErrBufferTooSmall is returned by ReadDefBlock when the caller's buffer
// cannot hold the advertised payload; the stream has already been drained
// past the trailing LF, so the session remains usable.
var ErrBufferTooSmall = transportErr("ReadDefBlock", "buffer too small for payload")

// ErrIncomplete is returned when an exact read times out short of its
// target length.
var ErrIncomplete = transportErr("Read", "incomplete read")

// Open opens resourceName directly (no auto-detection) and applies the
// session's timeout.
func (s *Session) Open(resourceName string) error {
	link, err := s.opener.Open(resourceName)
	if err != nil {
		return fmt.Errorf("transport: Open(%q): %w", resourceName, err)
	}
	if err := link.SetTimeout(time.Duration(s.TimeoutMS) * time.Millisecond); err != nil {
		link.Close()
		return fmt.Errorf("transport: Open(%q): set timeout: %w", resourceName, err)
	}
	s.link = link
	s.ResourceName = resourceName
	return nil
}

// defaultTiers is the auto-detection search order: USB before GPIB before
// TCPIP. The broadened "?*::INSTR" fallback tier is deliberately omitted,
// matching the reference implementation's allow_broad=0 default.
var defaultTiers = []string{"USB", "GPIB", "TCPIP"}

// AutoOpen searches defaultTiers in order, probing each candidate resource
// with a short timeout and matching *IDN? against idnSubstr (a substring
// match; empty matches anything). The first match is opened with the
// session's normal timeout and its resource name recorded.
func (s *Session) AutoOpen(idnSubstr string) error {
	for _, tier := range defaultTiers {
		candidates, err := s.opener.FindResources(tier)
		if err != nil || len(candidates) == 0 {
			continue
		}
		for _, candidate := range candidates {
			if s.probeCandidate(candidate, idnSubstr) {
				return s.Open(candidate)
			}
		}
	}
	return transportErr("AutoOpen", "no matching VISA instrument found")
}

// probeCandidate opens candidate with a short probe timeout, issues *IDN?,
// and reports whether the reply contains idnSubstr.
func (s *Session) probeCandidate(candidate, idnSubstr string) bool {
	link, err := s.opener.Open(candidate)
	if err != nil {
		return false
	}
	defer link.Close()

	if err := link.SetTimeout(time.Duration(constants.ProbeTimeoutMS) * time.Millisecond); err != nil {
		return false
	}

	if _, err := link.Write([]byte("*IDN?\n")); err != nil {
		return false
	}
	reply := make([]byte, 256)
	n, err := link.Read(reply)
	if err != nil || n == 0 {
		return false
	}
	if idnSubstr == "" {
		return true
	}
	return strings.Contains(string(reply[:n]), idnSubstr)
}

// Close is idempotent; it closes the underlying Link and clears the
// resource name.
func (s *Session) Close() error {
	if s.link == nil {
		return nil
	}
	err := s.link.Close()
	s.link = nil
	s.ResourceName = ""
	return err
}

// Write performs a binary write, looping over partial writes. Any
// zero-byte write or error is treated as a hard failure.
func (s *Session) Write(p []byte) error {
	if s.link == nil {
		return transportErr("Write", "session not open")
	}
	for len(p) > 0 {
		n, err := s.link.Write(p)
		if err != nil {
			return fmt.Errorf("transport: Write: %w", err)
		}
		if n == 0 {
			return transportErr("Write", "zero-byte write")
		}
		p = p[n:]
	}
	return nil
}

// WriteLine appends a trailing '\n' if absent, then writes the line.
func (s *Session) WriteLine(line string) error {
	if len(line) == 0 || line[len(line)-1] != '\n' {
		line += "\n"
	}
	return s.Write([]byte(line))
}

// Read performs one underlying read. If exact is false, it returns
// whatever arrived. If exact is true, it loops until len(p) bytes have
// been read, returning ErrIncomplete on a short/timed-out read.
func (s *Session) Read(p []byte, exact bool) (int, error) {
	if s.link == nil {
		return 0, transportErr("Read", "session not open")
	}
	if !exact {
		return s.link.Read(p)
	}

	total := 0
	for total < len(p) {
		n, err := s.link.Read(p[total:])
		if err != nil {
			return total, ErrIncomplete
		}
		if n == 0 {
			return total, ErrIncomplete
		}
		total += n
	}
	return total, nil
}

// Query writes cmd+"\n", reads the ASCII reply up to the first newline,
// and returns it with trailing CR/LF trimmed.
func (s *Session) Query(cmd string) (string, error) {
	if err := s.WriteLine(cmd); err != nil {
		return "", fmt.Errorf("transport: Query(%q): %w", cmd, err)
	}

	line, err := s.readLine()
	if err != nil {
		return "", fmt.Errorf("transport: Query(%q): %w", cmd, err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readLine reads byte-by-byte until a newline, the simplest re-expression
// of VISA's termination-character-enabled read; VISA links read in bulk, so
// a bufio.Reader would buffer past the message boundary and desynchronize
// subsequent binary reads — this stays strictly within the line.
func (s *Session) readLine() (string, error) {
	var sb strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := s.link.Read(buf)
		if err != nil {
			return "", err
		}
		if n == 0 {
			return "", ErrIncomplete
		}
		if buf[0] == '\n' {
			return sb.String(), nil
		}
		sb.WriteByte(buf[0])
	}
}

// QueryUint64 queries cmd and parses the decimal reply as a uint64.
func (s *Session) QueryUint64(cmd string) (uint64, error) {
	reply, err := s.Query(cmd)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(strings.TrimSpace(reply), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("transport: QueryUint64(%q): %w", cmd, err)
	}
	return v, nil
}

// Ping issues *IDN? and reports whether any reply came back.
func (s *Session) Ping() error {
	_, err := s.Query("*IDN?")
	return err
}

// ReadDefBlock parses a SCPI definite-length block header #<n><len> and
// reads the payload into dst[:len]. If the advertised length exceeds
// len(dst), the payload (and its optional trailing LF) is still drained
// from the stream so the session stays in sync, and ErrBufferTooSmall is
// returned.
func (s *Session) ReadDefBlock(dst []byte) (int, error) {
	hdr := make([]byte, 2)
	if _, err := s.Read(hdr, true); err != nil {
		return 0, fmt.Errorf("transport: ReadDefBlock: header: %w", err)
	}
	if hdr[0] != '#' {
		return 0, transportErr("ReadDefBlock", "missing '#' marker")
	}
	ndig := int(hdr[1] - '0')
	if ndig <= 0 || ndig > 9 {
		return 0, transportErr("ReadDefBlock", "invalid digit count")
	}

	lenBuf := make([]byte, ndig)
	if _, err := s.Read(lenBuf, true); err != nil {
		return 0, fmt.Errorf("transport: ReadDefBlock: length: %w", err)
	}
	payloadLen, err := strconv.Atoi(string(lenBuf))
	if err != nil {
		return 0, fmt.Errorf("transport: ReadDefBlock: length parse: %w", err)
	}

	if payloadLen > len(dst) {
		if err := s.drain(payloadLen); err != nil {
			return 0, fmt.Errorf("transport: ReadDefBlock: drain: %w", err)
		}
		s.consumeOptionalLF()
		return 0, ErrBufferTooSmall
	}

	if _, err := s.Read(dst[:payloadLen], true); err != nil {
		return 0, fmt.Errorf("transport: ReadDefBlock: payload: %w", err)
	}
	s.consumeOptionalLF()
	return payloadLen, nil
}

// drain discards n bytes from the stream using pooled chunk buffers,
// mirroring scope_skip_bytes.
func (s *Session) drain(n int) error {
	for n > 0 {
		chunkSize := n
		if chunkSize > 4096 {
			chunkSize = 4096
		}
		chunk := buffer.GetChunk(chunkSize)
		got, err := s.Read(chunk, false)
		buffer.PutChunk(chunk)
		if err != nil {
			return err
		}
		if got == 0 {
			return transportErr("drain", "no progress")
		}
		n -= got
	}
	return nil
}

// consumeOptionalLF reads one byte best-effort; its absence is never an
// error, matching `(void)scope_read(s, &lf, 1, NULL, false)`.
func (s *Session) consumeOptionalLF() {
	var lf [1]byte
	_, _ = s.Read(lf[:], false)
}

// Reconnect closes and reopens the session with the stored resource name,
// then verifies the link with Ping.
func (s *Session) Reconnect() error {
	resourceName := s.ResourceName
	_ = s.Close()

	if resourceName == "" {
		return transportErr("Reconnect", "no stored resource name")
	}
	if err := s.Open(resourceName); err != nil {
		return fmt.Errorf("transport: Reconnect: %w", err)
	}
	if err := s.Ping(); err != nil {
		_ = s.Close()
		return fmt.Errorf("transport: Reconnect: ping failed: %w", err)
	}
	return nil
}
