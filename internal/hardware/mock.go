package hardware

import (
	"sync"

	gpioctl "github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller"
)

type mockPin struct {
	mode  string // "input" or "output"
	pull  string
	level int
	pwm   bool
}

// Mock is an in-memory Backend for development machines and tests.
// Inject lets tests and simulations raise or lower input lines.
type Mock struct {
	mu   sync.Mutex
	pins map[int]*mockPin
}

// NewMock returns a Backend backed by plain memory.
func NewMock() *Mock {
	return &Mock{pins: make(map[int]*mockPin)}
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) ConfigureInput(pin int, pull string) error {
	switch pull {
	case gpioctl.PullOff, gpioctl.PullUp, gpioctl.PullDown:
	default:
		return invalidPull(pull)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	level := 0
	if pull == gpioctl.PullUp {
		// A floating input with pull-up reads high.
		level = 1
	}
	m.pins[pin] = &mockPin{mode: gpioctl.ModeInput, pull: pull, level: level}
	return nil
}

func (m *Mock) ConfigureOutput(pin int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pins[pin] = &mockPin{mode: gpioctl.ModeOutput, pull: gpioctl.PullOff}
	return nil
}

func (m *Mock) Write(pin int, level int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pins[pin]
	if !ok || p.mode != gpioctl.ModeOutput {
		return ErrPinNotClaimed
	}
	p.level = clampLevel(level)
	return nil
}

func (m *Mock) Read(pin int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pins[pin]
	if !ok {
		return 0, ErrPinNotClaimed
	}
	return p.level, nil
}

func (m *Mock) StartPWM(pin int, frequency, dutyCycle float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pins[pin] = &mockPin{mode: gpioctl.ModeOutput, pull: gpioctl.PullOff, pwm: true}
	return nil
}

func (m *Mock) UpdatePWM(pin int, frequency, dutyCycle float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pins[pin]
	if !ok || !p.pwm {
		return ErrPWMInactive
	}
	return nil
}

func (m *Mock) StopPWM(pin int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pins[pin]
	if !ok || !p.pwm {
		return ErrPWMInactive
	}
	delete(m.pins, pin)
	return nil
}

func (m *Mock) Release(pin int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pins, pin)
	return nil
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pins = make(map[int]*mockPin)
	return nil
}

// Inject forces the level of an input pin, simulating an external signal.
func (m *Mock) Inject(pin int, level int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.pins[pin]; ok && p.mode == gpioctl.ModeInput {
		p.level = clampLevel(level)
	}
}

func clampLevel(level int) int {
	if level > 0 {
		return 1
	}
	return 0
}
