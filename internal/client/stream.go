package client

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	gpioctl "github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller"
	"github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller/internal/logger"
)

// DefaultReconnectDelay is the fixed wait between a dropped event stream
// and the next connection attempt.
const DefaultReconnectDelay = 5 * time.Second

// Stream lifecycle states.
const (
	StreamConnecting = "connecting"
	StreamOpen       = "open"
	StreamClosed     = "closed"
	StreamErrored    = "errored"
)

// EventStreamClient maintains a long-lived subscription to the server's
// event stream. A dropped or failed stream schedules exactly one
// reconnect attempt after a fixed delay; the attempt is skipped when
// connectivity has already been restored by another path.
type EventStreamClient struct {
	http           *http.Client
	baseURL        string
	status         *ConnectivityState
	reconnectDelay time.Duration
	log            *logger.Logger

	mu               sync.Mutex
	parent           context.Context
	current          *Subscription
	reconnectPending bool
}

// Subscription is one live stream connection. Close tears it down and
// suppresses any further reconnects for it.
type Subscription struct {
	cancel context.CancelFunc

	mu    sync.Mutex
	state string
}

// State reports the subscription's lifecycle state.
func (s *Subscription) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Subscription) setState(state string) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Close stops the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.setState(StreamClosed)
	s.cancel()
}

func NewEventStreamClient(baseURL string, httpClient *http.Client, status *ConnectivityState, log *logger.Logger) *EventStreamClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &EventStreamClient{
		http:           httpClient,
		baseURL:        strings.TrimRight(baseURL, "/"),
		status:         status,
		reconnectDelay: DefaultReconnectDelay,
		log:            log,
	}
}

// SetReconnectDelay overrides the fixed reconnect delay. Intended for
// configuration at startup, before Subscribe.
func (c *EventStreamClient) SetReconnectDelay(d time.Duration) {
	if d > 0 {
		c.reconnectDelay = d
	}
}

// Subscribe opens the stream and delivers each decoded event to handler
// from a single goroutine. Opening a new subscription tears down any
// previous one.
func (c *EventStreamClient) Subscribe(ctx context.Context, handler func(gpioctl.Event)) *Subscription {
	streamCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{cancel: cancel, state: StreamConnecting}

	c.mu.Lock()
	c.parent = ctx
	if c.current != nil {
		c.current.Close()
	}
	c.current = sub
	c.mu.Unlock()

	go c.run(streamCtx, sub, handler)
	return sub
}

func (c *EventStreamClient) run(streamCtx context.Context, sub *Subscription, handler func(gpioctl.Event)) {
	err := c.consume(streamCtx, sub, handler)

	c.mu.Lock()
	parent := c.parent
	c.mu.Unlock()

	if sub.State() == StreamClosed || streamCtx.Err() != nil {
		c.status.Set(StatusDisconnected)
		return
	}
	if err != nil {
		sub.setState(StreamErrored)
		c.status.Set(StatusError)
		c.log.Warnw("event stream failed", "error", err)
	} else {
		sub.setState(StreamClosed)
		c.status.Set(StatusDisconnected)
		c.log.Infow("event stream ended")
	}
	c.scheduleReconnect(parent, handler)
}

func (c *EventStreamClient) consume(ctx context.Context, sub *Subscription, handler func(gpioctl.Event)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/events", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return &RequestFailure{Status: resp.StatusCode}
	}

	sub.setState(StreamOpen)
	c.status.Set(StatusConnected)
	c.log.Infow("event stream connected")

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 4096), maxResponseBody)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")

		var ev gpioctl.Event
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			// Malformed frames are dropped; the stream stays up.
			c.log.Debugw("dropping unparseable event", "payload", payload, "error", err)
			continue
		}
		handler(ev)
	}
	return scanner.Err()
}

// scheduleReconnect arms one reconnect timer. While a timer is pending
// further failures do not arm another; when it fires, the attempt is
// skipped if connectivity came back in the meantime.
func (c *EventStreamClient) scheduleReconnect(ctx context.Context, handler func(gpioctl.Event)) {
	c.mu.Lock()
	if c.reconnectPending {
		c.mu.Unlock()
		return
	}
	c.reconnectPending = true
	delay := c.reconnectDelay
	c.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			c.mu.Lock()
			c.reconnectPending = false
			c.mu.Unlock()
			return
		case <-time.After(delay):
		}

		c.mu.Lock()
		c.reconnectPending = false
		c.mu.Unlock()

		if c.status.Get() == StatusConnected {
			return
		}
		c.log.Infow("reconnecting event stream")
		c.Subscribe(ctx, handler)
	}()
}

// PendingReconnect reports whether a reconnect timer is armed.
func (c *EventStreamClient) PendingReconnect() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconnectPending
}
