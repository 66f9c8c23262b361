package service

import (
	"context"
	"time"

	gpioctl "github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller"
	"github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller/internal/hardware"
	"github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller/internal/logger"
	"github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller/internal/repository"
)

// ModeParams configures a pin as input or output.
type ModeParams struct {
	Pin  int
	Mode string // input | output
	Pull string // off | up | down (input only)
}

// WriteParams drives an output pin.
type WriteParams struct {
	Pin        int
	Action     string // high | low | pulse
	DurationMs float64
	Loops      int
}

// PWMParams starts, stops or updates PWM on a pin. Frequency and DutyCycle
// are nil when the request omitted them.
type PWMParams struct {
	Pin       int
	Action    string // start | stop | update
	Frequency *float64
	DutyCycle *float64
}

// GPIO exposes the mutating control operations. Restore reapplies
// persisted pin configurations at startup.
type GPIO interface {
	Restore(ctx context.Context) error
	Configure(ctx context.Context, p ModeParams) error
	Write(ctx context.Context, p WriteParams) error
	PWM(ctx context.Context, p PWMParams) error
	SetMonitor(ctx context.Context, pin int, enable bool) (bool, error)
	Reset(ctx context.Context) error
}

// Snapshots exposes the read-only full pin-state report.
type Snapshots interface {
	Snapshot(ctx context.Context) (gpioctl.Snapshot, error)
}

// Monitor runs the background loop that watches monitored input pins for
// edges. Stop via context cancellation in main() for graceful shutdown.
type Monitor interface {
	Run(ctx context.Context, tick time.Duration)
}

// Service aggregates all sub-services.
type Service struct {
	GPIO
	Snapshots
	Monitor
	Hub *EventHub
}

// NewService wires the hardware backend and repository layer into concrete
// services sharing one state owner and one event hub.
func NewService(repos *repository.Repository, backend hardware.Backend, isPi bool, log *logger.Logger) *Service {
	hub := NewEventHub(log)
	g := NewGPIOService(backend, isPi, repos.PinConfigs, hub, log)
	return &Service{
		GPIO:      g,
		Snapshots: g,
		Monitor:   NewMonitorService(g, hub, log),
		Hub:       hub,
	}
}
