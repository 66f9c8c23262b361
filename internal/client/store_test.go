package client

import (
	"errors"
	"testing"

	gpioctl "github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller"
)

func sampleSnapshot() gpioctl.Snapshot {
	return gpioctl.Snapshot{
		Backend: "mock",
		Pins: map[int]gpioctl.Pin{
			17: {Mode: gpioctl.ModeOutput, Value: 1, Configured: true},
			22: {Mode: gpioctl.ModeInput, Pull: gpioctl.PullUp, Value: 1, Configured: true},
		},
	}
}

func TestStore_ApplySnapshotReplacesWholesale(t *testing.T) {
	store := NewPinStateStore()
	if err := store.ApplySnapshot(sampleSnapshot()); err != nil {
		t.Fatalf("apply: %v", err)
	}

	next := gpioctl.Snapshot{
		Backend: "mock",
		Pins: map[int]gpioctl.Pin{
			23: {Mode: gpioctl.ModeOutput, Configured: true},
		},
	}
	if err := store.ApplySnapshot(next); err != nil {
		t.Fatalf("apply: %v", err)
	}

	pins := store.Pins()
	if len(pins) != 1 {
		t.Fatalf("expected exactly the new snapshot's pins, got %d", len(pins))
	}
	if _, ok := pins[17]; ok {
		t.Error("pin 17 should have been dropped by the replacement")
	}
	if _, ok := pins[23]; !ok {
		t.Error("pin 23 missing after replacement")
	}
}

func TestStore_ApplySnapshotIdempotent(t *testing.T) {
	store := NewPinStateStore()
	snap := sampleSnapshot()
	if err := store.ApplySnapshot(snap); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	first := store.Pins()
	if err := store.ApplySnapshot(snap); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	second := store.Pins()

	if len(first) != len(second) {
		t.Fatalf("pin count changed across identical applies: %d vs %d", len(first), len(second))
	}
	for pin, st := range first {
		if second[pin] != st {
			t.Errorf("pin %d changed across identical applies", pin)
		}
	}
}

func TestStore_ApplySnapshotRejectsMissingPins(t *testing.T) {
	store := NewPinStateStore()
	if err := store.ApplySnapshot(sampleSnapshot()); err != nil {
		t.Fatalf("apply: %v", err)
	}

	err := store.ApplySnapshot(gpioctl.Snapshot{Backend: "mock"})
	var parseErr *ParseFailure
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseFailure, got %v", err)
	}
	if len(store.Pins()) != 2 {
		t.Error("malformed snapshot must not clear existing state")
	}
}

func TestStore_SnapshotFillsPWMShadow(t *testing.T) {
	store := NewPinStateStore()
	snap := sampleSnapshot()
	snap.Pins[18] = gpioctl.Pin{
		Mode:       gpioctl.ModeOutput,
		Configured: true,
		PWM:        &gpioctl.PWMState{Active: true, Frequency: 2000, DutyCycle: 25},
	}
	if err := store.ApplySnapshot(snap); err != nil {
		t.Fatalf("apply: %v", err)
	}

	settings, ok := store.PWMShadow(18)
	if !ok {
		t.Fatal("expected shadow entry for the active PWM pin")
	}
	if settings.Frequency != 2000 || settings.DutyCycle != 25 {
		t.Errorf("unexpected shadow settings: %+v", settings)
	}
	if _, ok := store.PWMShadow(17); ok {
		t.Error("non-PWM pin must not get a shadow entry")
	}
}

func TestStore_ShadowSurvivesInactiveSnapshot(t *testing.T) {
	store := NewPinStateStore()
	snap := sampleSnapshot()
	snap.Pins[18] = gpioctl.Pin{
		Mode:       gpioctl.ModeOutput,
		Configured: true,
		PWM:        &gpioctl.PWMState{Active: true, Frequency: 2000, DutyCycle: 25},
	}
	if err := store.ApplySnapshot(snap); err != nil {
		t.Fatalf("apply: %v", err)
	}

	// PWM stopped server-side: the parameters stay cached for the next
	// start form.
	snap.Pins[18] = gpioctl.Pin{Mode: gpioctl.ModeOutput, Configured: true}
	if err := store.ApplySnapshot(snap); err != nil {
		t.Fatalf("apply: %v", err)
	}
	settings, ok := store.PWMShadow(18)
	if !ok || settings.Frequency != 2000 {
		t.Fatalf("last-used parameters lost after inactive snapshot: %+v ok=%v", settings, ok)
	}
}

func TestStore_PWMShadowLifecycle(t *testing.T) {
	store := NewPinStateStore()

	store.SetPWMShadow(12, PWMSettings{Frequency: 500, DutyCycle: 75})
	if settings, ok := store.PWMShadow(12); !ok || settings.Frequency != 500 {
		t.Fatalf("optimistic shadow not recorded: %+v ok=%v", settings, ok)
	}

	store.ClearPWMShadow(12)
	if _, ok := store.PWMShadow(12); ok {
		t.Error("shadow survived clear")
	}

	store.SetPWMShadow(12, PWMSettings{Frequency: 500, DutyCycle: 75})
	store.SetPWMShadow(13, PWMSettings{Frequency: 800, DutyCycle: 10})
	store.ResetPWMShadow()
	if _, ok := store.PWMShadow(12); ok {
		t.Error("shadow 12 survived reset")
	}
	if _, ok := store.PWMShadow(13); ok {
		t.Error("shadow 13 survived reset")
	}
}
