package scopeacq

import (
	"strings"

	"github.com/daqtools/scopeacq/internal/constants"
)

// Coding selects the sample width the instrument reports waveform data in.
type Coding int

const (
	// CodingByte selects 1-byte samples.
	CodingByte Coding = 0
	// CodingWord selects 2-byte samples.
	CodingWord Coding = 1
)

// BytesPerSample returns the byte width for the coding (coding+1, per the
// data model invariant).
func (c Coding) BytesPerSample() int {
	return int(c) + 1
}

func (c Coding) String() string {
	if c == CodingWord {
		return "SHORT"
	}
	return "BYTE"
}

// Config is the description of a run (C3). Engine.Run may still resolve its
// channel list and clamp NFlushTraces. Build one with NewConfig, add
// channels with AddChannel or
// ParseChannelsList, then call ResolveChannels once channel auto-detection
// (if any) has run.
type Config struct {
	InstrName string // empty means auto-detect

	channels []string

	Coding       Coding
	NSamples     int // 0 means auto-detect at init time
	RawStartIdx  int // computed at init when NSamples is auto-detected

	NTraces      int // 0 means unlimited
	NFlushTraces int // clamped to >= 1

	Outfile string // empty means no-store mode

	Verbose  bool
	Diagnose bool
}

// NewConfig returns a Config with NFlushTraces clamped to at least 1 and
// every other field at its zero value.
func NewConfig() *Config {
	return &Config{NFlushTraces: 1}
}

// Channels returns the configured channel list, in the order added.
func (c *Config) Channels() []string {
	return append([]string(nil), c.channels...)
}

// NChannels returns the number of configured channels.
func (c *Config) NChannels() int {
	return len(c.channels)
}

// AddChannel appends ch to the channel list, rejecting duplicates and
// rejecting once the list already holds constants.MaxChannels entries —
// mirroring add_channel's three failure modes (empty name, duplicate,
// capacity).
func (c *Config) AddChannel(ch string) error {
	ch = strings.TrimSpace(ch)
	if ch == "" {
		return NewError("config.AddChannel", ErrConfig, "empty channel name")
	}
	for _, existing := range c.channels {
		if existing == ch {
			return NewError("config.AddChannel", ErrConfig, "duplicate channel "+ch)
		}
	}
	if len(c.channels) >= constants.MaxChannels {
		return NewError("config.AddChannel", ErrConfig, "channel capacity reached")
	}
	c.channels = append(c.channels, ch)
	return nil
}

// ParseChannelsList splits a comma-separated channel list, trims whitespace
// around each element, and adds each non-empty element via AddChannel. It
// keeps parsing after a failing element (matching parse_channels_list) and
// returns the first error encountered, if any.
func (c *Config) ParseChannelsList(list string) error {
	var firstErr error
	for _, part := range strings.Split(list, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		if err := c.AddChannel(name); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ResolveChannels fills an empty channel list with discovered, or with
// constants.DefaultChannel when discovered is empty too, matching
// ds1000ze_init's fallback to CHAN1 when list_displayed_channels returns
// nothing and the user requested none. A non-empty list is left as is.
func (c *Config) ResolveChannels(discovered []string) {
	if len(c.channels) > 0 {
		return
	}
	if len(discovered) > 0 {
		c.channels = append([]string(nil), discovered...)
		return
	}
	c.channels = []string{constants.DefaultChannel}
}

// ClampFlushTraces enforces NFlushTraces >= 1.
func (c *Config) ClampFlushTraces() {
	if c.NFlushTraces < 1 {
		c.NFlushTraces = 1
	}
}

// StoreMode reports whether this run persists to disk.
func (c *Config) StoreMode() bool {
	return c.Outfile != ""
}
