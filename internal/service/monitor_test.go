package service

import (
	"context"
	"testing"

	gpioctl "github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller"
	"github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller/internal/hardware"
	"github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller/internal/logger"
)

type monitorFixture struct {
	gpio    *GPIOService
	mon     *MonitorService
	backend *hardware.Mock
	events  <-chan gpioctl.Event
}

func newMonitorFixture(t *testing.T) *monitorFixture {
	t.Helper()
	backend := hardware.NewMock()
	hub := NewEventHub(logger.Nop())
	g := NewGPIOService(backend, false, &fakeConfigRepo{}, hub, logger.Nop())
	events, cancel := hub.Subscribe(64)
	t.Cleanup(cancel)
	return &monitorFixture{
		gpio:    g,
		mon:     NewMonitorService(g, hub, logger.Nop()),
		backend: backend,
		events:  events,
	}
}

// inputEvents filters pending events down to input-level ones.
func (f *monitorFixture) inputEvents() []gpioctl.Event {
	var out []gpioctl.Event
	for {
		select {
		case ev := <-f.events:
			if ev.Level == gpioctl.LevelInput {
				out = append(out, ev)
			}
		default:
			return out
		}
	}
}

func (f *monitorFixture) monitorPin(t *testing.T, pin int) {
	t.Helper()
	ctx := context.Background()
	if err := f.gpio.Configure(ctx, ModeParams{Pin: pin, Mode: "input", Pull: "down"}); err != nil {
		t.Fatalf("configure pin %d: %v", pin, err)
	}
	if _, err := f.gpio.SetMonitor(ctx, pin, true); err != nil {
		t.Fatalf("monitor pin %d: %v", pin, err)
	}
}

func TestMonitor_RisingEdge(t *testing.T) {
	f := newMonitorFixture(t)
	f.monitorPin(t, 4)
	previous := make(map[int]int)

	f.mon.poll(previous) // baseline, no event
	if evs := f.inputEvents(); len(evs) != 0 {
		t.Fatalf("baseline poll must not emit events, got %v", evs)
	}

	f.backend.Inject(4, 1)
	f.mon.poll(previous)
	evs := f.inputEvents()
	if len(evs) != 1 {
		t.Fatalf("expected one edge event, got %d", len(evs))
	}
	if evs[0].Message != "Pin 4 rising edge detected (value: 1)" {
		t.Fatalf("unexpected message %q", evs[0].Message)
	}
	if evs[0].Type != gpioctl.EventInput {
		t.Fatalf("edge events must use input type, got %s", evs[0].Type)
	}
}

func TestMonitor_FallingEdge(t *testing.T) {
	f := newMonitorFixture(t)
	f.monitorPin(t, 22)
	previous := make(map[int]int)

	f.backend.Inject(22, 1)
	f.mon.poll(previous) // baseline at high
	f.backend.Inject(22, 0)
	f.mon.poll(previous)

	evs := f.inputEvents()
	if len(evs) != 1 || evs[0].Message != "Pin 22 falling edge detected (value: 0)" {
		t.Fatalf("unexpected events %v", evs)
	}
}

func TestMonitor_SteadyLevelEmitsNothing(t *testing.T) {
	f := newMonitorFixture(t)
	f.monitorPin(t, 4)
	previous := make(map[int]int)

	f.mon.poll(previous)
	f.mon.poll(previous)
	f.mon.poll(previous)
	if evs := f.inputEvents(); len(evs) != 0 {
		t.Fatalf("steady input must not emit events, got %v", evs)
	}
}

func TestMonitor_ReenableResetsBaseline(t *testing.T) {
	f := newMonitorFixture(t)
	f.monitorPin(t, 4)
	previous := make(map[int]int)
	ctx := context.Background()

	f.mon.poll(previous)
	if _, err := f.gpio.SetMonitor(ctx, 4, false); err != nil {
		t.Fatalf("disable monitor: %v", err)
	}
	f.backend.Inject(4, 1)
	f.mon.poll(previous) // not monitored, drops stale baseline

	if _, err := f.gpio.SetMonitor(ctx, 4, true); err != nil {
		t.Fatalf("re-enable monitor: %v", err)
	}
	f.mon.poll(previous) // fresh baseline at high
	if evs := f.inputEvents(); len(evs) != 0 {
		t.Fatalf("re-enabled pin must re-baseline silently, got %v", evs)
	}
}
