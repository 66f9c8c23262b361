package client

import (
	"errors"
	"sync"

	gpioctl "github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller"
)

// PWMSettings is a client-local cache of last-known PWM parameters for
// one pin, used to pre-fill controls before a snapshot confirms them.
type PWMSettings struct {
	Frequency float64
	DutyCycle float64
}

var errEmptySnapshot = errors.New("snapshot carries no pin data")

// PinStateStore holds the last-known state of every pin. It reflects only
// server-declared truth: the pin mapping is replaced wholesale on every
// snapshot and never mutated by replaying commands locally. The single
// exception is the PWM shadow table, which commands update optimistically
// and the next snapshot overwrites.
type PinStateStore struct {
	mu        sync.RWMutex
	pins      map[int]gpioctl.Pin
	backend   string
	pwmShadow map[int]PWMSettings
}

func NewPinStateStore() *PinStateStore {
	return &PinStateStore{
		pins:      make(map[int]gpioctl.Pin),
		pwmShadow: make(map[int]PWMSettings),
	}
}

// ApplySnapshot atomically replaces the entire pin mapping and backend
// label. Pins with an active PWM drive have their parameters copied into
// the shadow table. Malformed snapshots leave the store untouched and
// surface a structured error; they never clear existing state.
func (s *PinStateStore) ApplySnapshot(snap gpioctl.Snapshot) error {
	if snap.Pins == nil {
		return &ParseFailure{Cause: errEmptySnapshot}
	}

	replacement := make(map[int]gpioctl.Pin, len(snap.Pins))
	for pin, st := range snap.Pins {
		replacement[pin] = st
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pins = replacement
	s.backend = snap.Backend
	// Shadow entries outlive a PWM stop on purpose: they hold the
	// last-used parameters for pre-filling the next start. Only an
	// explicit clear or reset drops them.
	for pin, st := range replacement {
		if st.PWM != nil && st.PWM.Active {
			s.pwmShadow[pin] = PWMSettings{
				Frequency: st.PWM.Frequency,
				DutyCycle: st.PWM.DutyCycle,
			}
		}
	}
	return nil
}

// Pins returns a copy of the current pin mapping.
func (s *PinStateStore) Pins() map[int]gpioctl.Pin {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int]gpioctl.Pin, len(s.pins))
	for pin, st := range s.pins {
		out[pin] = st
	}
	return out
}

// Pin returns the last-known state of one pin.
func (s *PinStateStore) Pin(pin int) (gpioctl.Pin, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.pins[pin]
	return st, ok
}

// Backend returns the server's backend identity label.
func (s *PinStateStore) Backend() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.backend
}

// PWMShadow returns the cached PWM parameters for pin.
func (s *PinStateStore) PWMShadow(pin int) (PWMSettings, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	settings, ok := s.pwmShadow[pin]
	return settings, ok
}

// SetPWMShadow records PWM parameters optimistically after a successful
// start command, ahead of the confirming snapshot.
func (s *PinStateStore) SetPWMShadow(pin int, settings PWMSettings) {
	s.mu.Lock()
	s.pwmShadow[pin] = settings
	s.mu.Unlock()
}

// ClearPWMShadow drops the cached parameters for pin.
func (s *PinStateStore) ClearPWMShadow(pin int) {
	s.mu.Lock()
	delete(s.pwmShadow, pin)
	s.mu.Unlock()
}

// ResetPWMShadow empties the whole shadow table.
func (s *PinStateStore) ResetPWMShadow() {
	s.mu.Lock()
	s.pwmShadow = make(map[int]PWMSettings)
	s.mu.Unlock()
}
