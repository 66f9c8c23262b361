package client

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	gpioctl "github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller"
	"github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller/internal/logger"
)

// DefaultPollInterval is the period of the connectivity-gated snapshot
// refresh loop.
const DefaultPollInterval = 5 * time.Second

// pulseRefreshSlack is added to a pulse's duration before the follow-up
// snapshot refresh so the pin has settled back low.
const pulseRefreshSlack = 100 * time.Millisecond

// Controller is the top-level client engine. It owns the pin state
// store, the bounded activity and input logs, connectivity tracking and
// the event stream, and exposes the operator commands. Every successful
// mutating command is followed by a snapshot refresh; local state is
// never mutated by replaying commands.
type Controller struct {
	store    *PinStateStore
	commands *CommandClient
	poller   *SnapshotPoller
	stream   *EventStreamClient
	status   *ConnectivityState
	activity *EventLog
	inputs   *EventLog
	log      *logger.Logger

	pollInterval time.Duration

	mu        sync.Mutex
	monitored map[int]struct{}
	pending   []*time.Timer
	sub       *Subscription
}

// Options tunes a Controller. Zero values fall back to defaults.
type Options struct {
	HTTPClient     *http.Client
	PollInterval   time.Duration
	ReconnectDelay time.Duration
}

func NewController(baseURL string, opts Options, log *logger.Logger) *Controller {
	status := NewConnectivityState()
	commands := NewCommandClient(baseURL, opts.HTTPClient, log)
	store := NewPinStateStore()
	activity := NewEventLog(ActivityLogCapacity)

	stream := NewEventStreamClient(baseURL, opts.HTTPClient, status, log)
	if opts.ReconnectDelay > 0 {
		stream.SetReconnectDelay(opts.ReconnectDelay)
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	return &Controller{
		store:        store,
		commands:     commands,
		poller:       NewSnapshotPoller(commands, store, status, activity, log),
		stream:       stream,
		status:       status,
		activity:     activity,
		inputs:       NewEventLog(InputLogCapacity),
		log:          log,
		pollInterval: pollInterval,
		monitored:    make(map[int]struct{}),
	}
}

// Accessors for rendering collaborators.

func (c *Controller) Store() *PinStateStore { return c.store }
func (c *Controller) Activity() *EventLog   { return c.activity }
func (c *Controller) Inputs() *EventLog     { return c.inputs }
func (c *Controller) Status() Status        { return c.status.Get() }

// Monitored reports whether the client believes pin is being monitored.
func (c *Controller) Monitored(pin int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.monitored[pin]
	return ok
}

// Run subscribes to the event stream, performs the initial refresh and
// then drives the periodic refresh loop until ctx is cancelled. The
// periodic refresh only fires while the stream reports connected, so a
// down server is probed by the stream's reconnect path alone.
func (c *Controller) Run(ctx context.Context) {
	c.mu.Lock()
	c.sub = c.stream.Subscribe(ctx, c.handleEvent)
	c.mu.Unlock()

	if err := c.poller.Refresh(ctx); err == nil {
		c.logActivity("Connected to GPIO backend: "+c.store.Backend(), gpioctl.LevelInfo)
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.Close()
			return
		case <-ticker.C:
			if c.status.Get() != StatusConnected {
				continue
			}
			_ = c.poller.Refresh(ctx)
		}
	}
}

// ConfigurePin sets a pin's mode, with an optional pull for inputs.
func (c *Controller) ConfigurePin(ctx context.Context, pin int, mode, pull string) error {
	if err := c.commands.ConfigurePin(ctx, pin, mode, pull); err != nil {
		return c.fail(err)
	}
	msg := fmt.Sprintf("Pin %d configured as %s", pin, mode)
	if mode == gpioctl.ModeInput && pull != "" && pull != gpioctl.PullOff {
		msg += fmt.Sprintf(" with pull-%s", pull)
	}
	c.logActivity(msg, gpioctl.LevelInfo)
	return c.refresh(ctx)
}

// SetOutput drives an output pin high or low.
func (c *Controller) SetOutput(ctx context.Context, pin int, high bool) error {
	if err := c.commands.SetOutput(ctx, pin, high); err != nil {
		return c.fail(err)
	}
	return c.refresh(ctx)
}

// SendPulse runs a pulse train and schedules a refresh for after the
// last loop has ended. Each loop spends durationMs high and durationMs
// low, so the train runs for twice duration times loops.
func (c *Controller) SendPulse(ctx context.Context, pin, durationMs, loops int) error {
	if err := c.commands.SendPulse(ctx, pin, durationMs, loops); err != nil {
		return c.fail(err)
	}
	c.logActivity(fmt.Sprintf("Pin %d pulsing %dx for %dms", pin, loops, durationMs), gpioctl.LevelInfo)
	delay := 2*time.Duration(durationMs*loops)*time.Millisecond + pulseRefreshSlack
	c.scheduleRefresh(ctx, delay)
	return nil
}

// ToggleMonitor subscribes or unsubscribes an input pin for edge events.
func (c *Controller) ToggleMonitor(ctx context.Context, pin int, enable bool) error {
	if err := c.commands.ToggleMonitor(ctx, pin, enable); err != nil {
		return c.fail(err)
	}
	c.mu.Lock()
	if enable {
		c.monitored[pin] = struct{}{}
	} else {
		delete(c.monitored, pin)
	}
	c.mu.Unlock()
	return c.refresh(ctx)
}

// StartPWM begins PWM on a pin and caches the parameters so controls can
// show them before the confirming snapshot lands.
func (c *Controller) StartPWM(ctx context.Context, pin int, frequency, dutyCycle float64) error {
	if err := c.commands.StartPWM(ctx, pin, frequency, dutyCycle); err != nil {
		return c.fail(err)
	}
	c.store.SetPWMShadow(pin, PWMSettings{Frequency: frequency, DutyCycle: dutyCycle})
	return c.refresh(ctx)
}

// StopPWM halts PWM on a pin.
func (c *Controller) StopPWM(ctx context.Context, pin int) error {
	if err := c.commands.StopPWM(ctx, pin); err != nil {
		return c.fail(err)
	}
	c.store.ClearPWMShadow(pin)
	return c.refresh(ctx)
}

// ResetAll returns every pin to safe defaults and drops all client-side
// tracking that assumed the old state. Callers must obtain explicit
// operator confirmation before invoking this.
func (c *Controller) ResetAll(ctx context.Context) error {
	if err := c.commands.ResetAll(ctx); err != nil {
		return c.fail(err)
	}
	c.mu.Lock()
	c.monitored = make(map[int]struct{})
	for _, t := range c.pending {
		t.Stop()
	}
	c.pending = nil
	c.mu.Unlock()
	c.store.ResetPWMShadow()
	c.logActivity("All pins reset to safe defaults", gpioctl.LevelWarning)
	return c.refresh(ctx)
}

// Close tears down the stream subscription and cancels any pending
// delayed refreshes.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub != nil {
		c.sub.Close()
		c.sub = nil
	}
	for _, t := range c.pending {
		t.Stop()
	}
	c.pending = nil
}

// handleEvent dispatches one pushed event into the client logs.
func (c *Controller) handleEvent(ev gpioctl.Event) {
	switch ev.Type {
	case gpioctl.EventHeartbeat:
		return
	case gpioctl.EventError:
		msg := ev.Message
		if msg == "" {
			msg = "server reported an error"
		}
		c.logActivity(msg, gpioctl.LevelError)
		return
	}
	if ev.Message == "" || ev.Timestamp == "" {
		c.log.Debugw("dropping incomplete event", "id", ev.ID, "type", ev.Type)
		return
	}
	entry := LogEntry{Timestamp: ev.Timestamp, Message: ev.Message, Level: ev.Level}
	if ev.Level == gpioctl.LevelInput {
		c.inputs.Append(entry)
	}
	if IsSignificant(ev.Message, ev.Level) {
		c.activity.Append(entry)
	}
}

// refresh pulls a fresh snapshot after a successful command so displayed
// state always comes from the server.
func (c *Controller) refresh(ctx context.Context) error {
	return c.poller.Refresh(ctx)
}

// scheduleRefresh arms a one-shot refresh timer that ResetAll and Close
// can cancel.
func (c *Controller) scheduleRefresh(ctx context.Context, delay time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		if ctx.Err() != nil {
			return
		}
		_ = c.poller.Refresh(ctx)
		c.mu.Lock()
		for i, pending := range c.pending {
			if pending == t {
				c.pending = append(c.pending[:i], c.pending[i+1:]...)
				break
			}
		}
		c.mu.Unlock()
	})
	c.pending = append(c.pending, t)
}

// fail records a command failure in the activity log and passes the
// error through.
func (c *Controller) fail(err error) error {
	c.logActivity("Command failed: "+err.Error(), gpioctl.LevelError)
	return err
}

func (c *Controller) logActivity(message, level string) {
	c.activity.Append(LogEntry{
		Timestamp: time.Now().Format(gpioctl.TimeLayout),
		Message:   message,
		Level:     level,
	})
}
