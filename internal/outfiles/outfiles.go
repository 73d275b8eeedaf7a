// Package outfiles manages the two files a store-mode run produces: a raw
// binary trace file and a human-readable key=value log, grounded on
// open_out_file/open_log_file/close_log_file/make_timestamped_filename.
package outfiles

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// TimestampedBase appends "_<unix-seconds>" to base, matching
// make_timestamped_filename's suffix scheme.
func TimestampedBase(base string, at time.Time) string {
	return fmt.Sprintf("%s_%d", base, at.Unix())
}

// BinFile is the raw concatenated-trace output file (base + ".bin").
type BinFile struct {
	f    *os.File
	Path string
}

// CreateBin creates (truncating) base+".bin" for writing, mode 0644.
func CreateBin(base string) (*BinFile, error) {
	path := base + ".bin"
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("outfiles: CreateBin(%q): %w", path, err)
	}
	return &BinFile{f: f, Path: path}, nil
}

// Write loops over short writes, matching the reference implementation's
// EINTR-retry write loop around the flush batch.
func (b *BinFile) Write(p []byte) error {
	for len(p) > 0 {
		n, err := b.f.Write(p)
		if err != nil {
			return fmt.Errorf("outfiles: BinFile.Write: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("outfiles: BinFile.Write: zero-byte write")
		}
		p = p[n:]
	}
	return nil
}

// Close closes the underlying file.
func (b *BinFile) Close() error {
	return b.f.Close()
}

// Header carries the fixed set of key=value lines written at the top of a
// log file, matching open_log_file's header block.
type Header struct {
	AcqStartTime   time.Time
	InstrumentName string
	Channels       []string
	Coding         string
	NSamples       int
	NTracesFlush   int
}

// LogFile is the human-readable run log (base + ".log"). It implements
// interfaces.LogWriter so drivers can append their own identity/preamble
// lines via DumpLog between WriteHeader and WriteTrailer.
type LogFile struct {
	f    *os.File
	Path string
}

// CreateLog creates (truncating) base+".log" for writing, mode 0644.
func CreateLog(base string) (*LogFile, error) {
	path := base + ".log"
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("outfiles: CreateLog(%q): %w", path, err)
	}
	return &LogFile{f: f, Path: path}, nil
}

// WriteString appends s verbatim, satisfying interfaces.LogWriter.
func (l *LogFile) WriteString(s string) (int, error) {
	return l.f.WriteString(s)
}

// WriteHeader writes the fixed key=value header block.
func (l *LogFile) WriteHeader(h Header) error {
	lines := []string{
		fmt.Sprintf("acq_start_time=%s\n", h.AcqStartTime.UTC().Format("2006.01.02-15:04:05")),
		fmt.Sprintf("instrument_name=%s\n", h.InstrumentName),
		fmt.Sprintf("channels=%s\n", strings.Join(h.Channels, ",")),
		fmt.Sprintf("coding=%s\n", h.Coding),
		fmt.Sprintf("nsamples=%d\n", h.NSamples),
		fmt.Sprintf("ntraces_per_flush=%d\n", h.NTracesFlush),
	}
	for _, line := range lines {
		if _, err := l.f.WriteString(line); err != nil {
			return fmt.Errorf("outfiles: WriteHeader: %w", err)
		}
	}
	return nil
}

// WriteSoftMiss appends a one-line note for a recoverable arm/trigger
// timeout, mirroring the "[engine] skipped trace ..." log line.
func (l *LogFile) WriteSoftMiss(totalCaptured uint64, reason string) error {
	_, err := l.f.WriteString(fmt.Sprintf("skipped_trace total_captured=%d reason=%s\n", totalCaptured, reason))
	return err
}

// WriteHardFailure appends a note for a hard acquisition failure and the
// reconnect attempt that followed it.
func (l *LogFile) WriteHardFailure(totalCaptured uint64, reason string, reconnected bool) error {
	_, err := l.f.WriteString(fmt.Sprintf("hard_failure total_captured=%d reason=%s reconnected=%t\n", totalCaptured, reason, reconnected))
	return err
}

// WriteTrailer appends the end-of-run key=value trailer.
func (l *LogFile) WriteTrailer(endTime time.Time, nTracesWritten uint64) error {
	lines := []string{
		fmt.Sprintf("acquisition_end_time=%s\n", endTime.UTC().Format("2006.01.02-15:04:05")),
		fmt.Sprintf("ntraces_written=%d\n", nTracesWritten),
	}
	for _, line := range lines {
		if _, err := l.f.WriteString(line); err != nil {
			return fmt.Errorf("outfiles: WriteTrailer: %w", err)
		}
	}
	return nil
}

// Close closes the underlying file.
func (l *LogFile) Close() error {
	return l.f.Close()
}
