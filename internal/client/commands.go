package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	gpioctl "github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller"
	"github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller/internal/logger"
)

// Command validation bounds, enforced before any request leaves the client.
const (
	minPulseMs   = 1
	maxPulseMs   = 10000
	minLoops     = 1
	maxLoops     = 20
	minFrequency = 1
	maxFrequency = 100000
)

// maxResponseBody bounds how much of a response we read.
const maxResponseBody = 1 << 20 // 1 MB

// CommandClient issues the mutating control requests and the snapshot
// fetch. Every operation validates its preconditions client-side first
// and returns a structured error in all failure cases. No operation
// retries automatically.
type CommandClient struct {
	http    *http.Client
	baseURL string
	log     *logger.Logger
}

func NewCommandClient(baseURL string, httpClient *http.Client, log *logger.Logger) *CommandClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &CommandClient{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
	}
}

// ConfigurePin sets a pin's mode (input/output) with an optional pull.
func (c *CommandClient) ConfigurePin(ctx context.Context, pin int, mode, pull string) error {
	if err := validPin(pin); err != nil {
		return err
	}
	if mode != gpioctl.ModeInput && mode != gpioctl.ModeOutput {
		return &ValidationError{Reason: fmt.Sprintf("invalid mode %q", mode)}
	}
	body := map[string]interface{}{"pin": pin, "mode": mode}
	if pull != "" {
		body["pull"] = pull
	}
	return c.postJSON(ctx, "/api/mode", body)
}

// SetOutput drives an output pin high or low.
func (c *CommandClient) SetOutput(ctx context.Context, pin int, high bool) error {
	if err := validPin(pin); err != nil {
		return err
	}
	action := "low"
	if high {
		action = "high"
	}
	return c.postJSON(ctx, "/api/write", map[string]interface{}{"pin": pin, "action": action})
}

// SendPulse runs a pulse train on an output pin. Duration is the on-time
// per loop in milliseconds.
func (c *CommandClient) SendPulse(ctx context.Context, pin, durationMs, loops int) error {
	if err := validPin(pin); err != nil {
		return err
	}
	if durationMs < minPulseMs || durationMs > maxPulseMs {
		return &ValidationError{Reason: fmt.Sprintf("pulse duration must be %d-%dms", minPulseMs, maxPulseMs)}
	}
	if loops < minLoops || loops > maxLoops {
		return &ValidationError{Reason: fmt.Sprintf("pulse loops must be %d-%d", minLoops, maxLoops)}
	}
	return c.postJSON(ctx, "/api/write", map[string]interface{}{
		"pin":      pin,
		"action":   "pulse",
		"duration": durationMs,
		"loops":    loops,
	})
}

// ToggleMonitor subscribes or unsubscribes an input pin for edge events.
func (c *CommandClient) ToggleMonitor(ctx context.Context, pin int, enable bool) error {
	if err := validPin(pin); err != nil {
		return err
	}
	return c.postJSON(ctx, "/api/monitor", map[string]interface{}{"pin": pin, "enable": enable})
}

// StartPWM begins PWM on a pin at the given frequency (Hz) and duty (%).
func (c *CommandClient) StartPWM(ctx context.Context, pin int, frequency, dutyCycle float64) error {
	if err := validPin(pin); err != nil {
		return err
	}
	if frequency < minFrequency || frequency > maxFrequency {
		return &ValidationError{Reason: fmt.Sprintf("frequency must be %d-%dHz", minFrequency, maxFrequency)}
	}
	if dutyCycle < 0 || dutyCycle > 100 {
		return &ValidationError{Reason: "duty cycle must be 0-100%"}
	}
	return c.postJSON(ctx, "/api/pwm", map[string]interface{}{
		"pin":        pin,
		"action":     "start",
		"frequency":  frequency,
		"duty_cycle": dutyCycle,
	})
}

// StopPWM halts PWM on a pin.
func (c *CommandClient) StopPWM(ctx context.Context, pin int) error {
	if err := validPin(pin); err != nil {
		return err
	}
	return c.postJSON(ctx, "/api/pwm", map[string]interface{}{"pin": pin, "action": "stop"})
}

// ResetAll returns every pin to safe defaults. Callers are responsible
// for obtaining explicit operator confirmation first.
func (c *CommandClient) ResetAll(ctx context.Context) error {
	return c.postJSON(ctx, "/api/reset", nil)
}

// FetchSnapshot requests the full pin-state snapshot.
func (c *CommandClient) FetchSnapshot(ctx context.Context) (gpioctl.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/pins", nil)
	if err != nil {
		return gpioctl.Snapshot{}, &RequestFailure{Reason: err.Error()}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return gpioctl.Snapshot{}, &RequestFailure{Reason: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return gpioctl.Snapshot{}, &RequestFailure{Status: resp.StatusCode, Reason: err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		return gpioctl.Snapshot{}, failureFromBody(resp.StatusCode, payload)
	}
	var snap gpioctl.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		// A snapshot we cannot parse degrades like a failed request.
		return gpioctl.Snapshot{}, &RequestFailure{Status: resp.StatusCode, Reason: (&ParseFailure{Cause: err}).Error()}
	}
	return snap, nil
}

// postJSON sends one mutating request and interprets the structured
// success/failure response.
func (c *CommandClient) postJSON(ctx context.Context, path string, body interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &RequestFailure{Reason: err.Error()}
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return &RequestFailure{Reason: err.Error()}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &RequestFailure{Reason: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return &RequestFailure{Status: resp.StatusCode, Reason: err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		return failureFromBody(resp.StatusCode, payload)
	}
	return nil
}

// failureFromBody surfaces the server's reported reason verbatim when
// present, else a generic status-code message.
func failureFromBody(status int, payload []byte) *RequestFailure {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(payload, &body); err == nil && body.Error != "" {
		return &RequestFailure{Status: status, Reason: body.Error}
	}
	return &RequestFailure{Status: status}
}

func validPin(pin int) error {
	if !gpioctl.IsValidPin(pin) {
		return &ValidationError{Reason: fmt.Sprintf("invalid pin %d", pin)}
	}
	return nil
}
