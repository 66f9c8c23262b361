package hardware

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	gpioctl "github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller"
)

// hardwarePWM is implemented by pins with a dedicated PWM channel
// (bcm283x pins on the Pi).
type hardwarePWM interface {
	PWM(duty gpio.Duty, freq physic.Frequency) error
}

type pwmDrive struct {
	hardware bool
	stop     chan struct{} // non-nil for software-timed PWM
}

// Periph drives real GPIO lines through periph.io, with a software-timed
// PWM fallback for pins without a hardware channel.
type Periph struct {
	mu      sync.Mutex
	claimed map[int]gpio.PinIO
	pwms    map[int]*pwmDrive
}

// NewPeriph initializes periph host drivers and verifies GPIO lines are
// addressable. Callers fall back to the mock backend on error.
func NewPeriph() (*Periph, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	if gpioreg.ByName(pinName(gpioctl.MinPin)) == nil {
		return nil, errors.New("no GPIO lines registered on this host")
	}
	return &Periph{
		claimed: make(map[int]gpio.PinIO),
		pwms:    make(map[int]*pwmDrive),
	}, nil
}

func (b *Periph) Name() string { return "periph" }

func pinName(pin int) string {
	return fmt.Sprintf("GPIO%d", pin)
}

func (b *Periph) pin(pin int) (gpio.PinIO, error) {
	p := gpioreg.ByName(pinName(pin))
	if p == nil {
		return nil, fmt.Errorf("pin %d not registered", pin)
	}
	return p, nil
}

func (b *Periph) ConfigureInput(pin int, pull string) error {
	var p gpio.Pull
	switch pull {
	case gpioctl.PullOff:
		p = gpio.Float
	case gpioctl.PullUp:
		p = gpio.PullUp
	case gpioctl.PullDown:
		p = gpio.PullDown
	default:
		return invalidPull(pull)
	}
	line, err := b.pin(pin)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopPWMLocked(pin)
	if err := line.In(p, gpio.NoEdge); err != nil {
		return fmt.Errorf("configure pin %d as input: %w", pin, err)
	}
	b.claimed[pin] = line
	return nil
}

func (b *Periph) ConfigureOutput(pin int) error {
	line, err := b.pin(pin)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopPWMLocked(pin)
	if err := line.Out(gpio.Low); err != nil {
		return fmt.Errorf("configure pin %d as output: %w", pin, err)
	}
	b.claimed[pin] = line
	return nil
}

func (b *Periph) Write(pin int, level int) error {
	b.mu.Lock()
	line, ok := b.claimed[pin]
	b.mu.Unlock()
	if !ok {
		return ErrPinNotClaimed
	}
	return line.Out(gpio.Level(level > 0))
}

func (b *Periph) Read(pin int) (int, error) {
	b.mu.Lock()
	line, ok := b.claimed[pin]
	b.mu.Unlock()
	if !ok {
		return 0, ErrPinNotClaimed
	}
	if line.Read() == gpio.High {
		return 1, nil
	}
	return 0, nil
}

func (b *Periph) StartPWM(pin int, frequency, dutyCycle float64) error {
	line, err := b.pin(pin)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopPWMLocked(pin)
	b.claimed[pin] = line

	if hw, ok := line.(hardwarePWM); ok {
		duty := gpio.Duty(dutyCycle / 100 * float64(gpio.DutyMax))
		freq := physic.Frequency(frequency * float64(physic.Hertz))
		if err := hw.PWM(duty, freq); err == nil {
			b.pwms[pin] = &pwmDrive{hardware: true}
			return nil
		}
		// Hardware channel refused the request; fall through to software.
	}

	stop := make(chan struct{})
	b.pwms[pin] = &pwmDrive{stop: stop}
	go softwarePWM(line, frequency, dutyCycle, stop)
	return nil
}

func (b *Periph) UpdatePWM(pin int, frequency, dutyCycle float64) error {
	b.mu.Lock()
	_, ok := b.pwms[pin]
	b.mu.Unlock()
	if !ok {
		return ErrPWMInactive
	}
	// Restart with the new parameters; periph has no in-place update.
	return b.StartPWM(pin, frequency, dutyCycle)
}

func (b *Periph) StopPWM(pin int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.pwms[pin]; !ok {
		return ErrPWMInactive
	}
	b.stopPWMLocked(pin)
	b.releaseLocked(pin)
	return nil
}

func (b *Periph) Release(pin int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopPWMLocked(pin)
	b.releaseLocked(pin)
	return nil
}

func (b *Periph) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for pin := range b.claimed {
		b.stopPWMLocked(pin)
		b.releaseLocked(pin)
	}
	return nil
}

// stopPWMLocked halts any PWM drive on pin. Caller holds b.mu.
func (b *Periph) stopPWMLocked(pin int) {
	drive, ok := b.pwms[pin]
	if !ok {
		return
	}
	if drive.stop != nil {
		close(drive.stop)
	} else if line, claimed := b.claimed[pin]; claimed {
		_ = line.Halt()
	}
	delete(b.pwms, pin)
}

// releaseLocked parks the line and forgets the claim. Caller holds b.mu.
func (b *Periph) releaseLocked(pin int) {
	if line, ok := b.claimed[pin]; ok {
		_ = line.Halt()
		delete(b.claimed, pin)
	}
}

// softwarePWM bit-bangs a PWM waveform until stop is closed. Timing
// accuracy degrades above a few kHz; pins with a hardware channel never
// take this path.
func softwarePWM(line gpio.PinIO, frequency, dutyCycle float64, stop <-chan struct{}) {
	if frequency <= 0 {
		return
	}
	period := time.Duration(float64(time.Second) / frequency)
	on := time.Duration(float64(period) * dutyCycle / 100)
	off := period - on
	for {
		if on > 0 {
			_ = line.Out(gpio.High)
			select {
			case <-stop:
				_ = line.Out(gpio.Low)
				return
			case <-time.After(on):
			}
		}
		if off > 0 {
			_ = line.Out(gpio.Low)
			select {
			case <-stop:
				return
			case <-time.After(off):
			}
		}
	}
}
