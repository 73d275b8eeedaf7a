package scopeacq

import (
	"sync"

	"github.com/daqtools/scopeacq/internal/interfaces"
)

// MockDriver is a fault-injectable interfaces.Driver for exercising the
// orchestrator without real instrument I/O. Callers script a sequence of
// per-attempt outcomes with Script, force reconnect failures with
// FailNextReconnect, and can verify call counts afterward.
type MockDriver struct {
	mu sync.Mutex

	nChannels    int
	nSamples     int
	bytesPerSamp int
	fillByte     byte

	// outcomes, one per ReadTrace call; once exhausted, further calls
	// succeed. A nil entry means success.
	outcomes []error

	// reconnectFails forces the next N reconnect attempts to fail.
	reconnectFails int

	initCalls         int
	destroyCalls      int
	armCalls          int
	stopCalls         int
	forceTriggerCalls int
	readTraceCalls    int
	reconnectCalls    int
	destroyed         bool
}

// NewMockDriver creates a driver that reports nChannels channels of
// nSamples samples at bytesPerSample width, filling every ReadTrace buffer
// with fillByte so callers can assert on captured content.
func NewMockDriver(nChannels, nSamples, bytesPerSample int, fillByte byte) *MockDriver {
	return &MockDriver{
		nChannels:    nChannels,
		nSamples:     nSamples,
		bytesPerSamp: bytesPerSample,
		fillByte:     fillByte,
	}
}

// Script queues outcomes to return from successive ReadTrace calls, in
// order; nil means success. Once the slice is exhausted, calls succeed.
func (m *MockDriver) Script(outcomes ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append([]error(nil), outcomes...)
}

// FailNextReconnect forces the next n reconnect attempts to fail.
func (m *MockDriver) FailNextReconnect(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconnectFails = n
}

func (m *MockDriver) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initCalls++
	return nil
}

func (m *MockDriver) Destroy() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.destroyCalls++
	m.destroyed = true
	return nil
}

func (m *MockDriver) Arm() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.armCalls++
	return nil
}

func (m *MockDriver) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopCalls++
	return nil
}

func (m *MockDriver) ForceTrigger() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forceTriggerCalls++
	return nil
}

func (m *MockDriver) CheckIfArmed() (bool, error) {
	return true, nil
}

func (m *MockDriver) CheckIfTriggered() (bool, error) {
	return true, nil
}

// Reconnect simulates the transport session's Reconnect, consuming one
// scripted failure if present.
func (m *MockDriver) Reconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconnectCalls++
	if m.reconnectFails > 0 {
		m.reconnectFails--
		return NewError("driver.Reconnect", ErrTransport, "simulated reconnect failure")
	}
	return nil
}

// ReadTrace fills dst with fillByte and pops the next scripted outcome.
func (m *MockDriver) ReadTrace(dst []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readTraceCalls++

	for i := range dst {
		dst[i] = m.fillByte
	}

	if len(m.outcomes) == 0 {
		return nil
	}
	outcome := m.outcomes[0]
	m.outcomes = m.outcomes[1:]
	return outcome
}

func (m *MockDriver) ListDisplayedChannels() ([]string, error) {
	names := make([]string, m.nChannels)
	for i := range names {
		names[i] = "CHAN1"
	}
	return names, nil
}

func (m *MockDriver) DumpLog(w interfaces.LogWriter) error {
	_, err := w.WriteString("driver=mock\n")
	return err
}

// TraceSize returns the byte length ReadTrace expects to fill.
func (m *MockDriver) TraceSize() int {
	return m.nChannels * m.nSamples * m.bytesPerSamp
}

// CallCounts returns the number of times each method has been invoked, for
// assertions in orchestrator tests.
func (m *MockDriver) CallCounts() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]int{
		"init":          m.initCalls,
		"destroy":       m.destroyCalls,
		"arm":           m.armCalls,
		"stop":          m.stopCalls,
		"forceTrigger":  m.forceTriggerCalls,
		"readTrace":     m.readTraceCalls,
		"reconnect":     m.reconnectCalls,
	}
}

// IsDestroyed reports whether Destroy has been called.
func (m *MockDriver) IsDestroyed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.destroyed
}

var (
	_ interfaces.Driver      = (*MockDriver)(nil)
	_ interfaces.Reconnector = (*MockDriver)(nil)
)
