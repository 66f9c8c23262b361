package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	gpioctl "github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller"
	"github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller/internal/hardware"
	"github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller/internal/logger"
	"github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller/internal/repository"
)

// Defaults applied when a request omits optional pulse/PWM parameters.
const (
	defaultPulseMs      = 100
	defaultPulseLoops   = 5
	defaultPWMFrequency = 1000.0
	defaultPWMDuty      = 50.0
)

type pinState struct {
	mode  string
	pull  string
	value int
}

type pwmState struct {
	frequency float64
	dutyCycle float64
}

// GPIOService owns the server-side pin state: configured modes, output
// levels, active PWM drives and the monitored set. All hardware access
// goes through the backend; all state mutations go through this service.
type GPIOService struct {
	mu        sync.Mutex
	backend   hardware.Backend
	isPi      bool
	configs   repository.PinConfigRepo
	hub       *EventHub
	log       *logger.Logger
	pins      map[int]*pinState
	pwm       map[int]pwmState
	monitored map[int]struct{}
}

func NewGPIOService(backend hardware.Backend, isPi bool, configs repository.PinConfigRepo, hub *EventHub, log *logger.Logger) *GPIOService {
	return &GPIOService{
		backend:   backend,
		isPi:      isPi,
		configs:   configs,
		hub:       hub,
		log:       log,
		pins:      make(map[int]*pinState),
		pwm:       make(map[int]pwmState),
		monitored: make(map[int]struct{}),
	}
}

// Restore reapplies persisted pin configurations after a restart.
func (s *GPIOService) Restore(ctx context.Context) error {
	stored, err := s.configs.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load stored pin configs: %w", err)
	}
	restored := 0
	for _, cfg := range stored {
		if err := s.applyMode(cfg.Pin, cfg.Mode, cfg.Pull); err != nil {
			s.log.Warnw("failed to restore pin config", "pin", cfg.Pin, "err", err)
			continue
		}
		restored++
	}
	if restored > 0 {
		s.hub.Log(fmt.Sprintf("Restored %d pin configurations", restored), gpioctl.LevelInfo)
	}
	return nil
}

// Configure sets a pin to input or output mode, replacing any previous
// configuration including an active PWM drive.
func (s *GPIOService) Configure(ctx context.Context, p ModeParams) error {
	if !gpioctl.IsValidPin(p.Pin) {
		return fmt.Errorf("invalid pin %d", p.Pin)
	}
	mode := strings.ToLower(p.Mode)
	if mode != gpioctl.ModeInput && mode != gpioctl.ModeOutput {
		return fmt.Errorf("invalid mode %q", p.Mode)
	}
	pull := strings.ToLower(p.Pull)
	if pull == "" {
		pull = gpioctl.PullOff
	}

	if err := s.applyMode(p.Pin, mode, pull); err != nil {
		s.hub.Log(fmt.Sprintf("Error configuring pin %d: %v", p.Pin, err), gpioctl.LevelError)
		return err
	}

	cfg := repository.PinConfig{Pin: p.Pin, Mode: mode, Pull: pull}
	if mode == gpioctl.ModeOutput {
		cfg.Pull = gpioctl.PullOff
	}
	if err := s.configs.Save(ctx, cfg); err != nil {
		// Pin is live; persistence failure only affects the next restart.
		s.log.Warnw("failed to persist pin config", "pin", p.Pin, "err", err)
	}

	msg := fmt.Sprintf("Pin %d configured as %s", p.Pin, mode)
	if mode == gpioctl.ModeInput && pull != gpioctl.PullOff {
		msg += fmt.Sprintf(" with pull-%s", pull)
	}
	s.hub.Log(msg, gpioctl.LevelInfo)
	return nil
}

// applyMode tears down any existing claim on pin and reconfigures it.
func (s *GPIOService) applyMode(pin int, mode, pull string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked(pin)

	var err error
	if mode == gpioctl.ModeOutput {
		pull = gpioctl.PullOff
		err = s.backend.ConfigureOutput(pin)
	} else {
		err = s.backend.ConfigureInput(pin, pull)
	}
	if err != nil {
		return err
	}
	s.pins[pin] = &pinState{mode: mode, pull: pull}
	return nil
}

// Write drives an output pin high/low, or runs a pulse train in the
// background so the request returns immediately.
func (s *GPIOService) Write(ctx context.Context, p WriteParams) error {
	action := strings.ToLower(p.Action)

	s.mu.Lock()
	st, ok := s.pins[p.Pin]
	_, pwmActive := s.pwm[p.Pin]
	s.mu.Unlock()
	if !ok || st.mode != gpioctl.ModeOutput {
		return fmt.Errorf("pin %d is not configured as output", p.Pin)
	}
	if pwmActive {
		return fmt.Errorf("pin %d is driven by PWM; stop PWM first", p.Pin)
	}

	switch action {
	case "high", "low":
		level := 0
		if action == "high" {
			level = 1
		}
		if err := s.backend.Write(p.Pin, level); err != nil {
			s.hub.Log(fmt.Sprintf("Error writing to pin %d: %v", p.Pin, err), gpioctl.LevelError)
			return err
		}
		s.mu.Lock()
		st.value = level
		s.mu.Unlock()
		s.hub.Log(fmt.Sprintf("Pin %d set to %s", p.Pin, strings.ToUpper(action)), gpioctl.LevelInfo)
	case "pulse":
		durationMs := p.DurationMs
		if durationMs <= 0 {
			durationMs = defaultPulseMs
		}
		loops := p.Loops
		if loops <= 0 {
			loops = defaultPulseLoops
		}
		go s.runPulse(p.Pin, durationMs, loops)
	default:
		return fmt.Errorf("invalid action %q", p.Action)
	}
	return nil
}

// runPulse toggles the pin high/low with equal on and off times, ending
// low. Runs detached from the request that started it. Every write is
// mirrored into the state map so snapshots taken mid-train report the
// level actually on the wire.
func (s *GPIOService) runPulse(pin int, durationMs float64, loops int) {
	interval := time.Duration(durationMs * float64(time.Millisecond))
	for i := 0; i < loops; i++ {
		if err := s.pulseWrite(pin, 1); err != nil {
			return
		}
		time.Sleep(interval)
		if err := s.pulseWrite(pin, 0); err != nil {
			return
		}
		time.Sleep(interval)
	}
	s.hub.Log(fmt.Sprintf("Pin %d pulsed for %.1fms", pin, durationMs), gpioctl.LevelInfo)
}

func (s *GPIOService) pulseWrite(pin, level int) error {
	if err := s.backend.Write(pin, level); err != nil {
		s.hub.Log(fmt.Sprintf("Error writing to pin %d: %v", pin, err), gpioctl.LevelError)
		return err
	}
	s.mu.Lock()
	if st, ok := s.pins[pin]; ok {
		st.value = level
	}
	s.mu.Unlock()
	return nil
}

// PWM starts, stops or updates a PWM drive. PWM is a refinement of output
// drive: an active PWM pin reports mode=output in snapshots.
func (s *GPIOService) PWM(ctx context.Context, p PWMParams) error {
	if !gpioctl.IsValidPin(p.Pin) {
		return fmt.Errorf("invalid pin %d", p.Pin)
	}

	switch strings.ToLower(p.Action) {
	case "start":
		frequency := defaultPWMFrequency
		if p.Frequency != nil {
			frequency = *p.Frequency
		}
		dutyCycle := defaultPWMDuty
		if p.DutyCycle != nil {
			dutyCycle = *p.DutyCycle
		}
		if dutyCycle < 0 || dutyCycle > 100 {
			return fmt.Errorf("duty cycle must be 0-100%%")
		}
		if frequency <= 0 {
			return fmt.Errorf("frequency must be positive")
		}
		return s.startPWM(ctx, p.Pin, frequency, dutyCycle)
	case "stop":
		return s.stopPWM(ctx, p.Pin)
	case "update":
		return s.updatePWM(p.Pin, p.Frequency, p.DutyCycle)
	default:
		return fmt.Errorf("invalid action %q", p.Action)
	}
}

func (s *GPIOService) startPWM(ctx context.Context, pin int, frequency, dutyCycle float64) error {
	s.mu.Lock()
	s.releaseLocked(pin)
	err := s.backend.StartPWM(pin, frequency, dutyCycle)
	if err == nil {
		s.pins[pin] = &pinState{mode: gpioctl.ModeOutput, pull: gpioctl.PullOff}
		s.pwm[pin] = pwmState{frequency: frequency, dutyCycle: dutyCycle}
	}
	s.mu.Unlock()
	if err != nil {
		s.hub.Log(fmt.Sprintf("Error controlling PWM: %v", err), gpioctl.LevelError)
		return err
	}
	// PWM pins do not persist as regular configurations.
	if err := s.configs.Delete(ctx, pin); err != nil {
		s.log.Warnw("failed to drop persisted config for PWM pin", "pin", pin, "err", err)
	}
	s.hub.Log(fmt.Sprintf("PWM started on pin %d: %gHz, %g%% duty cycle", pin, frequency, dutyCycle), gpioctl.LevelInfo)
	return nil
}

func (s *GPIOService) stopPWM(ctx context.Context, pin int) error {
	s.mu.Lock()
	_, active := s.pwm[pin]
	if active {
		if err := s.backend.StopPWM(pin); err != nil {
			s.mu.Unlock()
			s.hub.Log(fmt.Sprintf("Error controlling PWM: %v", err), gpioctl.LevelError)
			return err
		}
		delete(s.pwm, pin)
		delete(s.pins, pin)
	}
	s.mu.Unlock()
	// Stopping inactive PWM is a no-op, matching the idempotent reset path.
	if active {
		s.hub.Log(fmt.Sprintf("PWM stopped on pin %d", pin), gpioctl.LevelInfo)
	}
	return nil
}

func (s *GPIOService) updatePWM(pin int, frequency, dutyCycle *float64) error {
	s.mu.Lock()
	cur, active := s.pwm[pin]
	s.mu.Unlock()
	if !active {
		return fmt.Errorf("PWM not active on pin %d", pin)
	}
	if frequency != nil {
		cur.frequency = *frequency
	}
	if dutyCycle != nil {
		if *dutyCycle < 0 || *dutyCycle > 100 {
			return fmt.Errorf("duty cycle must be 0-100%%")
		}
		cur.dutyCycle = *dutyCycle
	}
	if err := s.backend.UpdatePWM(pin, cur.frequency, cur.dutyCycle); err != nil {
		s.hub.Log(fmt.Sprintf("Error controlling PWM: %v", err), gpioctl.LevelError)
		return err
	}
	s.mu.Lock()
	s.pwm[pin] = cur
	s.mu.Unlock()
	if dutyCycle != nil {
		s.hub.Log(fmt.Sprintf("PWM updated on pin %d: %g%% duty cycle", pin, cur.dutyCycle), gpioctl.LevelInfo)
	}
	return nil
}

// SetMonitor subscribes or unsubscribes an input pin for edge events.
// Returns whether the pin is monitored afterwards.
func (s *GPIOService) SetMonitor(ctx context.Context, pin int, enable bool) (bool, error) {
	s.mu.Lock()
	st, ok := s.pins[pin]
	if !ok || st.mode != gpioctl.ModeInput {
		s.mu.Unlock()
		return false, fmt.Errorf("pin %d is not configured as input", pin)
	}
	if enable {
		s.monitored[pin] = struct{}{}
	} else {
		delete(s.monitored, pin)
	}
	_, monitoring := s.monitored[pin]
	s.mu.Unlock()

	if enable {
		s.hub.Log(fmt.Sprintf("Started monitoring pin %d", pin), gpioctl.LevelInfo)
	} else {
		s.hub.Log(fmt.Sprintf("Stopped monitoring pin %d", pin), gpioctl.LevelInfo)
	}
	return monitoring, nil
}

// Reset returns every pin to its unconfigured state and clears the
// monitored set and all PWM drives.
func (s *GPIOService) Reset(ctx context.Context) error {
	s.mu.Lock()
	for pin := range s.monitored {
		delete(s.monitored, pin)
	}
	for pin := range s.pwm {
		if err := s.backend.StopPWM(pin); err != nil {
			s.log.Warnw("failed to stop PWM during reset", "pin", pin, "err", err)
		}
		delete(s.pwm, pin)
	}
	for pin := range s.pins {
		if err := s.backend.Release(pin); err != nil {
			s.log.Warnw("failed to release pin during reset", "pin", pin, "err", err)
		}
		delete(s.pins, pin)
	}
	s.mu.Unlock()

	if err := s.configs.Clear(ctx); err != nil {
		return fmt.Errorf("clear persisted pin configs: %w", err)
	}
	s.hub.Log("All pins reset to safe defaults", gpioctl.LevelInfo)
	return nil
}

// Snapshot reports the state of every valid pin, configured or not, with
// live reads for inputs and the PWM overlay for active drives.
func (s *GPIOService) Snapshot(ctx context.Context) (gpioctl.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pins := make(map[int]gpioctl.Pin, gpioctl.MaxPin-gpioctl.MinPin+1)
	for _, pin := range gpioctl.ValidPins() {
		st, ok := s.pins[pin]
		if !ok {
			pins[pin] = gpioctl.Pin{Mode: gpioctl.ModeUnset, Pull: gpioctl.PullOff}
			continue
		}
		value := st.value
		if st.mode == gpioctl.ModeInput {
			if v, err := s.backend.Read(pin); err == nil {
				value = v
			}
		}
		entry := gpioctl.Pin{
			Mode:       st.mode,
			Value:      value,
			Pull:       st.pull,
			Configured: true,
		}
		if drive, active := s.pwm[pin]; active {
			entry.PWM = &gpioctl.PWMState{
				Active:    true,
				Frequency: drive.frequency,
				DutyCycle: drive.dutyCycle,
			}
		}
		pins[pin] = entry
	}

	return gpioctl.Snapshot{
		Pins:      pins,
		Backend:   s.backend.Name(),
		IsPi:      s.isPi,
		ValidPins: gpioctl.ValidPins(),
		PWMPins:   gpioctl.PWMCapablePins,
	}, nil
}

// MonitoredInputs returns the monitored pins in ascending order.
func (s *GPIOService) MonitoredInputs() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	pins := make([]int, 0, len(s.monitored))
	for pin := range s.monitored {
		pins = append(pins, pin)
	}
	sort.Ints(pins)
	return pins
}

// ReadInput returns the live level of a monitored input pin.
func (s *GPIOService) ReadInput(pin int) (int, error) {
	return s.backend.Read(pin)
}

// releaseLocked drops any existing claim on pin. Caller holds s.mu.
func (s *GPIOService) releaseLocked(pin int) {
	if _, active := s.pwm[pin]; active {
		if err := s.backend.StopPWM(pin); err != nil {
			s.log.Warnw("failed to stop PWM while reconfiguring", "pin", pin, "err", err)
		}
		delete(s.pwm, pin)
	}
	if _, ok := s.pins[pin]; ok {
		if err := s.backend.Release(pin); err != nil {
			s.log.Warnw("failed to release pin while reconfiguring", "pin", pin, "err", err)
		}
		delete(s.pins, pin)
	}
	delete(s.monitored, pin)
}
