package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gpioctl "github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller"
)

func TestEventStream_DeliversPublishedEvents(t *testing.T) {
	router, hub := newTestRouter(&mockGPIO{}, &mockSnapshots{})
	srv := httptest.NewServer(router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get events: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("unexpected content type %q", ct)
	}

	// The handler subscribes after flushing headers; keep publishing until
	// the frame comes through.
	publishDone := make(chan struct{})
	defer close(publishDone)
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-publishDone:
				return
			case <-ticker.C:
				hub.Log("Pin 4 rising edge detected (value: 1)", gpioctl.LevelInput)
			}
		}
	}()

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev gpioctl.Event
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			t.Fatalf("parse frame %q: %v", line, err)
		}
		if ev.Type != gpioctl.EventInput || ev.Level != gpioctl.LevelInput {
			t.Fatalf("unexpected event %+v", ev)
		}
		if ev.Message != "Pin 4 rising edge detected (value: 1)" {
			t.Fatalf("unexpected message %q", ev.Message)
		}
		return
	}
	t.Fatalf("stream ended without delivering an event: %v", scanner.Err())
}

func TestEventStream_HeadersArriveOnIdleStream(t *testing.T) {
	router, _ := newTestRouter(&mockGPIO{}, &mockSnapshots{})
	srv := httptest.NewServer(router)
	defer srv.Close()

	// Nothing is published: the response must still come back well before
	// the heartbeat interval.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("idle stream must flush headers immediately: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("unexpected content type %q", ct)
	}
}
