// Command scopeacq runs an oscilloscope acquisition session against the
// built-in simulated driver, writing flush batches to disk (or printing a
// summary in no-store mode), until the trace count or ntraces limit is
// reached or the process is interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/daqtools/scopeacq"
	"github.com/daqtools/scopeacq/internal/logging"
	"github.com/daqtools/scopeacq/internal/simdriver"
)

// channelList collects repeated -c/--chan flag occurrences in order.
type channelList []string

func (c *channelList) String() string { return strings.Join(*c, ",") }

func (c *channelList) Set(v string) error {
	*c = append(*c, v)
	return nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var (
		outfile      string
		instrument   string
		nTraces      int
		nFlushTraces int
		codingStr    string
		nSamples     int
		channels     channelList
		channelsCSV  string
		diagnose     bool
		verbose      bool
	)

	fs := flag.NewFlagSet("scopeacq", flag.ContinueOnError)
	bindAlias := func(short, long string, apply func(name string)) {
		apply(short)
		apply(long)
	}
	bindAlias("o", "out", func(name string) {
		fs.StringVar(&outfile, name, "", "output file base path (store mode); omit for no-store mode")
	})
	bindAlias("i", "instrument", func(name string) {
		fs.StringVar(&instrument, name, "", "instrument identifier recorded in the run log")
	})
	bindAlias("n", "ntraces", func(name string) {
		fs.IntVar(&nTraces, name, 0, "number of traces to capture; 0 means unlimited")
	})
	bindAlias("b", "batch", func(name string) {
		fs.IntVar(&nFlushTraces, name, 1, "traces per flush batch")
	})
	bindAlias("w", "coding", func(name string) {
		fs.StringVar(&codingStr, name, "BYTE", "sample coding: BYTE or WORD")
	})
	bindAlias("s", "nsamples", func(name string) {
		fs.IntVar(&nSamples, name, 0, "samples per channel per trace; 0 means use the driver default")
	})
	bindAlias("c", "chan", func(name string) {
		fs.Var(&channels, name, "channel to capture; may be repeated")
	})
	fs.StringVar(&channelsCSV, "channels", "", "comma-separated channel list, alternative to repeating -c")
	fs.BoolVar(&diagnose, "diagnose", false, "print instrument diagnostics and exit")
	bindAlias("v", "verbose", func(name string) {
		fs.BoolVar(&verbose, name, false, "enable debug logging")
	})

	if err := fs.Parse(args); err != nil {
		return 2
	}

	logger := logging.Default()
	if verbose {
		logger = logging.NewLogger(&logging.Config{Level: logging.LevelDebug, Output: os.Stderr})
		logging.SetDefault(logger)
	}

	cfg := scopeacq.NewConfig()
	cfg.InstrName = instrument
	cfg.NTraces = nTraces
	cfg.NFlushTraces = nFlushTraces
	cfg.ClampFlushTraces()
	cfg.Outfile = outfile
	cfg.Verbose = verbose
	cfg.Diagnose = diagnose

	switch strings.ToUpper(codingStr) {
	case "BYTE", "":
		cfg.Coding = scopeacq.CodingByte
	case "WORD", "SHORT":
		cfg.Coding = scopeacq.CodingWord
	default:
		fmt.Fprintf(os.Stderr, "scopeacq: invalid -w/--coding %q, want BYTE or WORD\n", codingStr)
		return 2
	}

	if channelsCSV != "" {
		if err := cfg.ParseChannelsList(channelsCSV); err != nil {
			fmt.Fprintf(os.Stderr, "scopeacq: %v\n", err)
			return 2
		}
	}
	for _, ch := range channels {
		if err := cfg.AddChannel(ch); err != nil {
			fmt.Fprintf(os.Stderr, "scopeacq: %v\n", err)
			return 2
		}
	}

	// No VISA resource-manager binding is wired into this build, so every
	// run acquires from the built-in simulated driver; -i/--instrument is
	// still recorded in the log header for downstream tooling.
	if instrument != "" {
		logger.Infof("instrument flag %q recorded but not connected to; using simulated driver", instrument)
	}

	simOpts := simdriver.Options{NSamples: nSamples, BytesPerSample: cfg.Coding.BytesPerSample()}
	if len(cfg.Channels()) > 0 {
		simOpts.Channels = cfg.Channels()
	}
	driver := simdriver.New(simOpts)
	if cfg.NSamples == 0 {
		if nSamples > 0 {
			cfg.NSamples = nSamples
		} else {
			cfg.NSamples = 1200
		}
	}

	engine := scopeacq.NewEngine(cfg, driver, driver, scopeacq.WithLogger(logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := engine.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "scopeacq: %v\n", err)
		return 1
	}

	if !cfg.Diagnose {
		snap := engine.Metrics().Snapshot()
		fmt.Printf("captured=%d written=%d soft_misses=%d hard_failures=%d reconnects=%d\n",
			snap.TracesCaptured, snap.TracesWritten, snap.SoftMisses, snap.HardFailures, snap.Reconnects)
	}
	return 0
}
