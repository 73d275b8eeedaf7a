package scopeacq

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/daqtools/scopeacq/internal/buffer"
	"github.com/daqtools/scopeacq/internal/constants"
	"github.com/daqtools/scopeacq/internal/interfaces"
	"github.com/daqtools/scopeacq/internal/logging"
	"github.com/daqtools/scopeacq/internal/outfiles"
)

// AcquireFunc captures one trace into dst, returning ErrArmTimeout or
// ErrTriggerTimeout for a recoverable miss and any other error for a hard
// acquisition failure. cfg is passed through read-only, for routines whose
// timing or channel selection depends on run configuration.
type AcquireFunc func(driver interfaces.Driver, dst []byte, cfg *Config) error

// DefaultAcquire is the reference acquire routine: arm, poll for armed,
// force a trigger, poll for triggered within the configured timeout budget,
// then read the trace.
func DefaultAcquire(driver interfaces.Driver, dst []byte, cfg *Config) error {
	_ = cfg
	if err := driver.Arm(); err != nil {
		return WrapError("acquire.Arm", ErrHardAcq, err)
	}

	deadline := time.Now().Add(constants.ArmTimeout)
	for {
		armed, err := driver.CheckIfArmed()
		if err != nil {
			return WrapError("acquire.CheckIfArmed", ErrHardAcq, err)
		}
		if armed {
			break
		}
		if time.Now().After(deadline) {
			return ErrArmTimeout
		}
		time.Sleep(constants.PollInterval)
	}

	if err := driver.ForceTrigger(); err != nil {
		return WrapError("acquire.ForceTrigger", ErrHardAcq, err)
	}

	deadline = time.Now().Add(constants.ArmTimeout)
	for {
		triggered, err := driver.CheckIfTriggered()
		if err != nil {
			return WrapError("acquire.CheckIfTriggered", ErrHardAcq, err)
		}
		if triggered {
			break
		}
		if time.Now().After(deadline) {
			return ErrTriggerTimeout
		}
		time.Sleep(constants.PollInterval)
	}

	return driver.ReadTrace(dst)
}

// EngineOption customizes an Engine at construction time.
type EngineOption func(*Engine)

// WithAcquireFunc overrides the per-trace acquire routine, e.g. in tests.
func WithAcquireFunc(fn AcquireFunc) EngineOption {
	return func(e *Engine) { e.acquire = fn }
}

// WithObserver wires an interfaces.Observer other than the built-in metrics
// observer (which remains reachable via Engine.Metrics regardless).
func WithObserver(o interfaces.Observer) EngineOption {
	return func(e *Engine) { e.observer = o }
}

// WithLogger overrides the default logger.
func WithLogger(l interfaces.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics supplies a pre-built AcquisitionMetrics instance instead of a
// fresh one.
func WithMetrics(m *AcquisitionMetrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithPrep registers a callback run once, after files and buffers are set up
// and before the acquisition loop starts (e.g. arming a trigger source).
func WithPrep(fn func() error) EngineOption {
	return func(e *Engine) { e.prep = fn }
}

// WithCleanup registers a callback run once the acquisition loop has
// stopped, before files and the driver are torn down.
func WithCleanup(fn func()) EngineOption {
	return func(e *Engine) { e.cleanup = fn }
}

// Engine runs one acquisition session: a producer goroutine (the caller of
// Run) that fills flush-batch buffers from the driver, handed off to a
// writer goroutine over a two-slot ping-pong queue guarded by a mutex and a
// pair of condition variables — can_write (a batch is ready) and written
// (the previous batch has drained).
type Engine struct {
	cfg         *Config
	driver      interfaces.Driver
	reconnector interfaces.Reconnector
	acquire     AcquireFunc
	observer    interfaces.Observer
	logger      interfaces.Logger
	metrics     *AcquisitionMetrics
	prep        func() error
	cleanup     func()

	stop atomic.Bool

	bytesPerTrace      uint64
	bytesPerFlushBatch uint64
	bufA               *buffer.Aligned
	bufB               *buffer.Aligned

	mu                sync.Mutex
	canWrite          *sync.Cond
	written           *sync.Cond
	readyBatches      int
	nextWriteBatchIdx int

	bin *outfiles.BinFile
	log *outfiles.LogFile

	wg sync.WaitGroup
}

// NewEngine builds an Engine for cfg, acquiring through driver and
// recovering a broken transport through reconnector (nil if the driver
// cannot be reconnected — any hard failure then ends the run).
func NewEngine(cfg *Config, driver interfaces.Driver, reconnector interfaces.Reconnector, opts ...EngineOption) *Engine {
	e := &Engine{
		cfg:         cfg,
		driver:      driver,
		reconnector: reconnector,
		acquire:     DefaultAcquire,
		logger:      logging.Default(),
		metrics:     NewAcquisitionMetrics(),
	}
	e.canWrite = sync.NewCond(&e.mu)
	e.written = sync.NewCond(&e.mu)
	for _, opt := range opts {
		opt(e)
	}
	if e.observer == nil {
		e.observer = NewMetricsObserver(e.metrics)
	}
	return e
}

// Metrics returns the engine's counters, safe to read concurrently while
// Run is in progress.
func (e *Engine) Metrics() *AcquisitionMetrics {
	return e.metrics
}

// RequestStop asks a running Engine to stop after its current trace and
// flush whatever has accumulated so far. Safe to call from a signal handler
// or any goroutine, any number of times.
func (e *Engine) RequestStop() {
	e.stop.Store(true)
	e.mu.Lock()
	e.canWrite.Broadcast()
	e.written.Broadcast()
	e.mu.Unlock()
}

// Run executes one full acquisition session: driver init, channel
// resolution, memory planning, optional output files and writer goroutine,
// the acquisition loop, and teardown. It returns when the run ends — by
// exhausting cfg.NTraces, by RequestStop/ctx cancellation, or by an
// unrecoverable setup error.
func (e *Engine) Run(ctx context.Context) error {
	if e.cfg.Diagnose {
		return e.runDiagnose()
	}

	stopWatch := make(chan struct{})
	defer close(stopWatch)
	go func() {
		select {
		case <-ctx.Done():
			e.RequestStop()
		case <-stopWatch:
		}
	}()

	if err := e.driver.Init(); err != nil {
		return WrapError("engine.Run", ErrDriver, err)
	}
	defer e.driver.Destroy()

	if e.cfg.NChannels() == 0 {
		discovered, err := e.driver.ListDisplayedChannels()
		if err != nil {
			e.logger.Warnf("list displayed channels failed, falling back to default: %v", err)
		}
		e.cfg.ResolveChannels(discovered)
	}
	e.cfg.ClampFlushTraces()

	nChannels := uint64(e.cfg.NChannels())
	bytesPerSample := uint64(e.cfg.Coding.BytesPerSample())
	nSamples := uint64(e.cfg.NSamples)
	if nSamples == 0 {
		return NewError("engine.Run", ErrConfig, "sample count not resolved")
	}

	bytesPerTrace, bytesPerFlushBatch, err := PlanMemory(nSamples, nChannels, bytesPerSample, uint64(e.cfg.NFlushTraces))
	if err != nil {
		return err
	}
	e.bytesPerTrace = bytesPerTrace
	e.bytesPerFlushBatch = bytesPerFlushBatch

	e.bufA = buffer.NewAligned(int(bytesPerFlushBatch), constants.BufferAlignment)
	e.bufB = buffer.NewAligned(int(bytesPerFlushBatch), constants.BufferAlignment)

	storeMode := e.cfg.StoreMode()
	if storeMode {
		if err := e.openOutputFiles(); err != nil {
			return err
		}
		defer e.finalizeLog()
		defer e.bin.Close()

		e.wg.Add(1)
		go e.writerLoop()
	} else {
		if err := e.driver.DumpLog(stdoutLogWriter{}); err != nil {
			e.logger.Warnf("driver dump log failed: %v", err)
		}
	}

	if e.prep != nil {
		if err := e.prep(); err != nil {
			e.stop.Store(true)
			return WrapError("engine.Run", ErrResource, err)
		}
	}

	e.runAcquisitionLoop(storeMode)

	if e.cleanup != nil {
		e.cleanup()
	}
	e.metrics.Stop()
	return nil
}

func (e *Engine) openOutputFiles() error {
	base := outfiles.TimestampedBase(e.cfg.Outfile, time.Now())

	bin, err := outfiles.CreateBin(base)
	if err != nil {
		return WrapError("engine.Run", ErrIO, err)
	}
	e.bin = bin

	logFile, err := outfiles.CreateLog(base)
	if err != nil {
		return WrapError("engine.Run", ErrIO, err)
	}
	e.log = logFile

	if err := e.log.WriteHeader(outfiles.Header{
		AcqStartTime:   time.Now(),
		InstrumentName: e.cfg.InstrName,
		Channels:       e.cfg.Channels(),
		Coding:         e.cfg.Coding.String(),
		NSamples:       e.cfg.NSamples,
		NTracesFlush:   e.cfg.NFlushTraces,
	}); err != nil {
		return WrapError("engine.Run", ErrIO, err)
	}

	if err := e.driver.DumpLog(e.log); err != nil {
		e.logger.Warnf("driver dump log failed: %v", err)
	}
	return nil
}

func (e *Engine) finalizeLog() {
	snap := e.metrics.Snapshot()
	if err := e.log.WriteTrailer(time.Now(), snap.TracesWritten); err != nil {
		e.logger.Errorf("writing log trailer failed: %v", err)
	}
	if err := e.log.Close(); err != nil {
		e.logger.Errorf("closing log file failed: %v", err)
	}
}

// runAcquisitionLoop is the producer side of the hand-off protocol: it fills
// the active buffer one trace at a time, classifying every acquire outcome
// as success, soft miss (retried without advancing the capture count), or hard failure (one reconnect
// attempt, then either retried or fatal). A full batch is handed to the
// writer goroutine in store mode, or simply reset (with a pacing sleep) in
// no-store mode where nothing provides natural backpressure.
func (e *Engine) runAcquisitionLoop(storeMode bool) {
	active := e.bufA
	tracesInBatch := 0
	var totalCaptured uint64

acquireLoop:
	for !e.stop.Load() {
		if e.cfg.NTraces > 0 && totalCaptured >= uint64(e.cfg.NTraces) {
			break
		}

		dst := active.Bytes[uint64(tracesInBatch)*e.bytesPerTrace : uint64(tracesInBatch+1)*e.bytesPerTrace]
		start := time.Now()
		err := e.acquire(e.driver, dst, e.cfg)
		latencyNs := uint64(time.Since(start).Nanoseconds())

		switch {
		case err == nil:
			e.observer.ObserveAcquire(latencyNs, true)
			totalCaptured++
			tracesInBatch++

		case IsSoftMiss(err):
			e.observer.ObserveAcquire(latencyNs, false)
			e.observer.ObserveSoftMiss()
			if storeMode {
				_ = e.log.WriteSoftMiss(totalCaptured, err.Error())
			}
			continue acquireLoop

		default:
			e.observer.ObserveAcquire(latencyNs, false)
			e.observer.ObserveHardFailure()
			time.Sleep(constants.HardFailureBackoff)
			reconnectErr := e.tryReconnect()
			if storeMode {
				_ = e.log.WriteHardFailure(totalCaptured, err.Error(), reconnectErr == nil)
			}
			if reconnectErr != nil {
				e.stop.Store(true)
				break acquireLoop
			}
			continue acquireLoop
		}

		if tracesInBatch >= e.cfg.NFlushTraces {
			if storeMode {
				next, ok := e.handOff(active)
				if !ok {
					break acquireLoop
				}
				active = next
			} else {
				time.Sleep(constants.NoStoreThrottle)
			}
			tracesInBatch = 0
		}
	}

	if storeMode && tracesInBatch > 0 {
		tail := active.Bytes[:uint64(tracesInBatch)*e.bytesPerTrace]
		if err := e.bin.Write(tail); err != nil {
			e.logger.Errorf("tail flush failed: %v", err)
		} else {
			e.metrics.AddTracesWritten(uint64(tracesInBatch))
		}
	}

	if storeMode {
		e.mu.Lock()
		e.stop.Store(true)
		e.canWrite.Broadcast()
		e.mu.Unlock()
		e.wg.Wait()
	}
}

func (e *Engine) tryReconnect() error {
	if e.reconnector == nil {
		return fmt.Errorf("scopeacq: no reconnector configured")
	}
	err := e.reconnector.Reconnect()
	e.observer.ObserveReconnect(err == nil)
	return err
}

// handOff blocks until the writer has drained the previously handed-off
// batch (or the engine stops while waiting), then publishes active as the
// next batch to write and returns the buffer the producer should fill next.
func (e *Engine) handOff(active *buffer.Aligned) (next *buffer.Aligned, ok bool) {
	idx := 0
	if active == e.bufB {
		idx = 1
	}

	e.mu.Lock()
	waited := e.readyBatches != 0
	for e.readyBatches != 0 && !e.stop.Load() {
		e.written.Wait()
	}
	if e.stop.Load() {
		e.mu.Unlock()
		return nil, false
	}
	e.nextWriteBatchIdx = idx
	e.readyBatches = 1
	e.mu.Unlock()

	e.observer.ObserveHandover(waited)
	e.canWrite.Signal()

	if active == e.bufA {
		return e.bufB, true
	}
	return e.bufA, true
}

// writerLoop is the consumer side of the hand-off protocol, run on its own
// goroutine for the lifetime of a store-mode Run.
func (e *Engine) writerLoop() {
	defer e.wg.Done()
	for {
		e.mu.Lock()
		for e.readyBatches == 0 && !e.stop.Load() {
			e.canWrite.Wait()
		}
		if e.readyBatches == 0 {
			e.mu.Unlock()
			return
		}
		idx := e.nextWriteBatchIdx
		e.readyBatches = 0
		e.mu.Unlock()

		buf := e.bufA
		if idx == 1 {
			buf = e.bufB
		}
		batch := buf.Bytes[:e.bytesPerFlushBatch]

		start := time.Now()
		writeErr := e.bin.Write(batch)
		latencyNs := uint64(time.Since(start).Nanoseconds())
		e.observer.ObserveWrite(uint64(len(batch)), latencyNs, writeErr == nil)

		if writeErr != nil {
			e.logger.Errorf("writer: flush batch write failed: %v", writeErr)
			e.stop.Store(true)
		} else {
			e.metrics.AddTracesWritten(uint64(e.cfg.NFlushTraces))
		}

		e.mu.Lock()
		e.written.Signal()
		e.mu.Unlock()
	}
}

// runDiagnose opens the driver, lets it report identity and status to
// stdout via DumpLog, and closes it again — a lightweight path with no
// output files, buffers, or writer goroutine.
func (e *Engine) runDiagnose() error {
	if e.cfg.NChannels() == 0 {
		e.cfg.ResolveChannels(nil)
	}

	if err := e.driver.Init(); err != nil {
		return WrapError("engine.Diagnose", ErrDriver, err)
	}
	defer e.driver.Destroy()

	if err := e.driver.DumpLog(stdoutLogWriter{}); err != nil {
		return WrapError("engine.Diagnose", ErrDriver, err)
	}
	return nil
}

// stdoutLogWriter adapts os.Stdout to interfaces.LogWriter for no-store and
// diagnose runs, which reuse the driver's DumpLog instead of duplicating its
// formatting.
type stdoutLogWriter struct{}

func (stdoutLogWriter) WriteString(s string) (int, error) {
	return fmt.Print(s)
}

