package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	gpioctl "github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller"
	"github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller/internal/logger"
)

type eventSink struct {
	mu     sync.Mutex
	events []gpioctl.Event
}

func (s *eventSink) handle(ev gpioctl.Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

func (s *eventSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func (s *eventSink) first() gpioctl.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[0]
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		if cond() {
			return
		}
		select {
		case <-deadline:
			t.Fatal("condition not met in time")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func sseServer(t *testing.T, frames []string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		// Send headers up front so an empty stream still opens.
		flusher.Flush()
		for _, frame := range frames {
			fmt.Fprintf(w, "data: %s\n\n", frame)
			flusher.Flush()
		}
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestStream_DeliversEvents(t *testing.T) {
	srv := sseServer(t, []string{
		`{"id":"a","type":"log","timestamp":"10:00:00","message":"Pin 17 set to HIGH","level":"info"}`,
		`not json`,
		`{"id":"b","type":"input","timestamp":"10:00:01","message":"Pin 22 rising edge detected (value: 1)","level":"input"}`,
	})

	status := NewConnectivityState()
	stream := NewEventStreamClient(srv.URL, srv.Client(), status, logger.Nop())
	sink := &eventSink{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := stream.Subscribe(ctx, sink.handle)
	defer sub.Close()

	waitFor(t, time.Second, func() bool { return sink.count() == 2 })
	if sink.first().Message != "Pin 17 set to HIGH" {
		t.Errorf("first event = %+v", sink.first())
	}
	if status.Get() != StatusConnected {
		t.Errorf("status = %q after open stream", status.Get())
	}
	if sub.State() != StreamOpen {
		t.Errorf("subscription state = %q", sub.State())
	}
}

func TestStream_CloseSetsDisconnected(t *testing.T) {
	srv := sseServer(t, nil)
	status := NewConnectivityState()
	stream := NewEventStreamClient(srv.URL, srv.Client(), status, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := stream.Subscribe(ctx, func(gpioctl.Event) {})

	waitFor(t, time.Second, func() bool { return status.Get() == StatusConnected })
	sub.Close()
	waitFor(t, time.Second, func() bool { return status.Get() == StatusDisconnected })

	if sub.State() != StreamClosed {
		t.Errorf("state = %q after close", sub.State())
	}
	if stream.PendingReconnect() {
		t.Error("a deliberate close must not arm a reconnect")
	}
}

func TestStream_FailureArmsSingleReconnect(t *testing.T) {
	// Every attempt fails fast with a non-200.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	status := NewConnectivityState()
	stream := NewEventStreamClient(srv.URL, srv.Client(), status, logger.Nop())
	stream.SetReconnectDelay(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream.Subscribe(ctx, func(gpioctl.Event) {})

	waitFor(t, time.Second, func() bool { return stream.PendingReconnect() })
	if status.Get() != StatusError {
		t.Errorf("status = %q after failed stream", status.Get())
	}

	// A second failure while the timer is armed must not arm another.
	stream.Subscribe(ctx, func(gpioctl.Event) {})
	time.Sleep(5 * time.Millisecond)
	if !stream.PendingReconnect() {
		t.Fatal("reconnect timer lost")
	}

	// The armed timer keeps retrying the failing endpoint.
	waitFor(t, time.Second, func() bool { return status.Get() == StatusError })
}

func TestStream_ReconnectSkippedWhenConnected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	status := NewConnectivityState()
	stream := NewEventStreamClient(srv.URL, srv.Client(), status, logger.Nop())
	stream.SetReconnectDelay(30 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream.Subscribe(ctx, func(gpioctl.Event) {})
	waitFor(t, time.Second, func() bool { return stream.PendingReconnect() })

	// Connectivity restored by another path before the timer fires.
	status.Set(StatusConnected)
	waitFor(t, time.Second, func() bool { return !stream.PendingReconnect() })
	time.Sleep(20 * time.Millisecond)

	if status.Get() != StatusConnected {
		t.Errorf("skipped reconnect must not disturb status, got %q", status.Get())
	}
}
