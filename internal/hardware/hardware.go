package hardware

import (
	"errors"
	"fmt"
)

// Backend abstracts the GPIO driver. The service layer owns all state
// bookkeeping (modes, values, monitored set); a Backend only touches lines.
type Backend interface {
	// Name identifies the driver in snapshots ("periph", "mock").
	Name() string
	// ConfigureInput sets the pin to input mode with the given pull
	// ("off", "up", "down").
	ConfigureInput(pin int, pull string) error
	// ConfigureOutput sets the pin to output mode, driven low.
	ConfigureOutput(pin int) error
	// Write drives an output pin to the given level (0 or 1).
	Write(pin int, level int) error
	// Read returns the current electrical level of the pin.
	Read(pin int) (int, error)
	// StartPWM begins PWM output on the pin. Pins without a hardware PWM
	// channel fall back to software timing.
	StartPWM(pin int, frequency, dutyCycle float64) error
	// UpdatePWM changes frequency and/or duty cycle of an active PWM drive.
	UpdatePWM(pin int, frequency, dutyCycle float64) error
	// StopPWM halts PWM output and releases the pin.
	StopPWM(pin int) error
	// Release returns the pin to an unconfigured state.
	Release(pin int) error
	// Close releases every claimed pin.
	Close() error
}

var (
	// ErrPinNotClaimed is returned for operations on a pin the backend
	// has not configured.
	ErrPinNotClaimed = errors.New("pin not claimed")
	// ErrPWMInactive is returned when updating or stopping PWM on a pin
	// that has no active PWM drive.
	ErrPWMInactive = errors.New("pwm not active on pin")
)

func invalidPull(pull string) error {
	return fmt.Errorf("invalid pull %q: must be off, up or down", pull)
}
