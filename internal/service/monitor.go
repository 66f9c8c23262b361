package service

import (
	"context"
	"fmt"
	"time"

	gpioctl "github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller"
	"github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller/internal/logger"
)

// DefaultMonitorTick is the polling interval for monitored input pins.
const DefaultMonitorTick = 100 * time.Millisecond

// MonitorService polls monitored input pins and publishes an input-level
// event for every edge it observes.
type MonitorService struct {
	gpio *GPIOService
	hub  *EventHub
	log  *logger.Logger
}

func NewMonitorService(gpio *GPIOService, hub *EventHub, log *logger.Logger) *MonitorService {
	return &MonitorService{gpio: gpio, hub: hub, log: log}
}

// Run ticks at the given interval until ctx is canceled.
func (s *MonitorService) Run(ctx context.Context, tick time.Duration) {
	if tick <= 0 {
		tick = DefaultMonitorTick
	}
	previous := make(map[int]int)
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.poll(previous)
		}
	}
}

// poll samples every monitored pin once and reports edges against the
// previous sample. A pin's first sample establishes its baseline without
// emitting an event.
func (s *MonitorService) poll(previous map[int]int) {
	monitored := s.gpio.MonitoredInputs()

	// Forget pins no longer monitored so re-enabling starts a fresh baseline.
	current := make(map[int]struct{}, len(monitored))
	for _, pin := range monitored {
		current[pin] = struct{}{}
	}
	for pin := range previous {
		if _, ok := current[pin]; !ok {
			delete(previous, pin)
		}
	}

	for _, pin := range monitored {
		value, err := s.gpio.ReadInput(pin)
		if err != nil {
			s.hub.Log(fmt.Sprintf("Error monitoring pin %d: %v", pin, err), gpioctl.LevelError)
			continue
		}
		prev, seen := previous[pin]
		if seen && value != prev {
			edge := "falling"
			if value > prev {
				edge = "rising"
			}
			s.hub.Log(fmt.Sprintf("Pin %d %s edge detected (value: %d)", pin, edge, value), gpioctl.LevelInput)
		}
		previous[pin] = value
	}
}
