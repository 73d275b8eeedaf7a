// Package simdriver provides a self-contained interfaces.Driver
// implementation that fabricates waveform data without any real VISA
// resource, for demos and for exercising the orchestrator end-to-end.
package simdriver

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/daqtools/scopeacq/internal/interfaces"
)

// Options configures a SimDriver.
type Options struct {
	InstrumentName string // defaults to "SIM,SCOPEACQ-SIM,0,1.0"
	Channels       []string // defaults to {"CHAN1", "CHAN2"}
	NSamples       int      // defaults to 1200
	BytesPerSample int      // 1 (BYTE) or 2 (WORD); defaults to 1

	// ArmFailEvery, if > 0, makes every Nth Arm cycle never report armed,
	// simulating an arm timeout the orchestrator must classify as a soft
	// miss.
	ArmFailEvery int

	// TriggerFailEvery, if > 0, makes every Nth armed cycle never report
	// triggered, simulating a trigger timeout.
	TriggerFailEvery int

	// Seed seeds the deterministic waveform generator.
	Seed int64
}

// SimDriver is a software oscilloscope: it fabricates a noisy sine wave per
// channel and tracks arm/trigger state transitions in memory.
type SimDriver struct {
	mu sync.Mutex

	instrumentName string
	channels       []string
	nSamples       int
	bytesPerSample int

	armFailEvery     int
	triggerFailEvery int
	rng              *rand.Rand

	destroyed  bool
	armed      bool
	triggered  bool
	armCycles  int
	readyCycles int
}

// New creates a SimDriver, filling in defaults for any zero-valued option.
func New(opts Options) *SimDriver {
	if opts.InstrumentName == "" {
		opts.InstrumentName = "SIM,SCOPEACQ-SIM,0,1.0"
	}
	if len(opts.Channels) == 0 {
		opts.Channels = []string{"CHAN1", "CHAN2"}
	}
	if opts.NSamples == 0 {
		opts.NSamples = 1200
	}
	if opts.BytesPerSample == 0 {
		opts.BytesPerSample = 1
	}
	return &SimDriver{
		instrumentName:   opts.InstrumentName,
		channels:         append([]string(nil), opts.Channels...),
		nSamples:         opts.NSamples,
		bytesPerSample:   opts.BytesPerSample,
		armFailEvery:     opts.ArmFailEvery,
		triggerFailEvery: opts.TriggerFailEvery,
		rng:              rand.New(rand.NewSource(opts.Seed)),
	}
}

// Init resets the driver to a freshly-opened, unarmed state.
func (d *SimDriver) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroyed = false
	d.armed = false
	d.triggered = false
	d.armCycles = 0
	d.readyCycles = 0
	return nil
}

// Destroy marks the driver closed; Arm, CheckIfArmed, CheckIfTriggered and
// ReadTrace then return an error until the next Init.
func (d *SimDriver) Destroy() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroyed = true
	d.armed = false
	d.triggered = false
	return nil
}

func (d *SimDriver) checkOpen() error {
	if d.destroyed {
		return fmt.Errorf("simdriver: not initialized")
	}
	return nil
}

// Arm starts a new acquisition cycle. Every armFailEvery'th cycle never
// reports armed, simulating an arm timeout.
func (d *SimDriver) Arm() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkOpen(); err != nil {
		return err
	}
	d.armCycles++
	d.triggered = false
	if d.armFailEvery > 0 && d.armCycles%d.armFailEvery == 0 {
		d.armed = false
		return nil
	}
	d.armed = true
	d.readyCycles = 0
	return nil
}

// Stop halts acquisition.
func (d *SimDriver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.armed = false
	d.triggered = false
	return nil
}

// ForceTrigger marks the cycle triggered if currently armed; a cycle set up
// to simulate a trigger timeout still never reports triggered.
func (d *SimDriver) ForceTrigger() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.armed {
		d.triggered = true
	}
	return nil
}

// CheckIfArmed reports the current armed state.
func (d *SimDriver) CheckIfArmed() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkOpen(); err != nil {
		return false, err
	}
	return d.armed, nil
}

// CheckIfTriggered reports the current triggered state, flipping to
// triggered after a couple of polls unless this cycle is configured to
// simulate a trigger timeout.
func (d *SimDriver) CheckIfTriggered() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkOpen(); err != nil {
		return false, err
	}
	if !d.armed {
		return false, nil
	}
	if d.triggerFailEvery > 0 && d.armCycles%d.triggerFailEvery == 0 {
		return false, nil
	}
	if d.triggered {
		return true, nil
	}
	d.readyCycles++
	if d.readyCycles >= 2 {
		d.triggered = true
	}
	return d.triggered, nil
}

// ReadTrace fills dst with a channel-major noisy sine wave. len(dst) must
// equal len(channels) * nSamples * bytesPerSample.
func (d *SimDriver) ReadTrace(dst []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkOpen(); err != nil {
		return err
	}
	want := len(d.channels) * d.nSamples * d.bytesPerSample
	if len(dst) != want {
		return fmt.Errorf("simdriver: ReadTrace: dst has %d bytes, want %d", len(dst), want)
	}

	off := 0
	for ch := range d.channels {
		for i := 0; i < d.nSamples; i++ {
			phase := float64(i) / float64(d.nSamples) * 2 * math.Pi
			v := math.Sin(phase+float64(ch)) * 100
			v += (d.rng.Float64() - 0.5) * 4
			sample := int(v) + 128
			if sample < 0 {
				sample = 0
			}
			if sample > 255 {
				sample = 255
			}
			if d.bytesPerSample == 1 {
				dst[off] = byte(sample)
				off++
			} else {
				word := uint16(sample) << 8
				dst[off] = byte(word)
				dst[off+1] = byte(word >> 8)
				off += 2
			}
		}
	}
	return nil
}

// ListDisplayedChannels returns the configured channel list.
func (d *SimDriver) ListDisplayedChannels() ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.channels...), nil
}

// preamble fabricates a plausible :WAV:PRE? reply for the current
// configuration: one division of 50mV/div and 1us/div, centered on zero.
func (d *SimDriver) preamble() interfaces.Preamble {
	format := 0
	if d.bytesPerSample == 2 {
		format = 1
	}
	return interfaces.Preamble{
		Format:     format,
		Type:       0,
		Points:     d.nSamples,
		Count:      1,
		XIncrement: 1e-6,
		XOrigin:    0,
		XReference: float64(d.nSamples / 2),
		YIncrement: 50e-3,
		YOrigin:    0,
		YReference: 128,
	}
}

// DumpLog writes identity, channel, sampling, and waveform preamble
// key=value lines.
func (d *SimDriver) DumpLog(w interfaces.LogWriter) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	pre := d.preamble()
	lines := []string{
		fmt.Sprintf("idn=%s\n", d.instrumentName),
		fmt.Sprintf("sim_channels=%v\n", d.channels),
		fmt.Sprintf("sim_nsamples=%d\n", d.nSamples),
		fmt.Sprintf("sim_bytes_per_sample=%d\n", d.bytesPerSample),
		fmt.Sprintf("preamble_format=%d\n", pre.Format),
		fmt.Sprintf("preamble_type=%d\n", pre.Type),
		fmt.Sprintf("preamble_points=%d\n", pre.Points),
		fmt.Sprintf("preamble_count=%d\n", pre.Count),
		fmt.Sprintf("preamble_xincrement=%g\n", pre.XIncrement),
		fmt.Sprintf("preamble_xorigin=%g\n", pre.XOrigin),
		fmt.Sprintf("preamble_xreference=%g\n", pre.XReference),
		fmt.Sprintf("preamble_yincrement=%g\n", pre.YIncrement),
		fmt.Sprintf("preamble_yorigin=%g\n", pre.YOrigin),
		fmt.Sprintf("preamble_yreference=%g\n", pre.YReference),
	}
	for _, line := range lines {
		if _, err := w.WriteString(line); err != nil {
			return err
		}
	}
	return nil
}

// Reconnect re-initializes the driver, simulating a successful reconnect.
func (d *SimDriver) Reconnect() error {
	return d.Init()
}

var (
	_ interfaces.Driver      = (*SimDriver)(nil)
	_ interfaces.Reconnector = (*SimDriver)(nil)
)
