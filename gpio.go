package gpioctl

// Pin modes. Unconfigured pins report ModeUnset until /api/mode touches them.
const (
	ModeInput  = "input"
	ModeOutput = "output"
	ModeUnset  = "unconfigured"
)

// Pull resistor settings, meaningful only for input pins.
const (
	PullOff  = "off"
	PullUp   = "up"
	PullDown = "down"
)

// Event levels carried on the push stream and in client logs.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
	LevelInput   = "input"
)

// Event types. EventLog carries the common log entries; EventInput marks
// input-pin transitions; heartbeat and error are stream control messages.
const (
	EventHeartbeat = "heartbeat"
	EventError     = "error"
	EventLog       = "log"
	EventInput     = "input"
)

// TimeLayout is the wall-clock format used for event timestamps.
const TimeLayout = "15:04:05"

// Valid BCM pin range for the reference deployment.
const (
	MinPin = 2
	MaxPin = 27
)

// PWMCapablePins lists pins with hardware PWM. Informational only: every
// valid pin accepts PWM through the software-timed fallback.
var PWMCapablePins = []int{12, 13, 18, 19}

// PWMState describes an active PWM drive on a pin.
type PWMState struct {
	Active    bool    `json:"active"`
	Frequency float64 `json:"frequency"`
	DutyCycle float64 `json:"duty_cycle"`
}

// Pin is the state of a single GPIO line as reported in a snapshot.
// Value uses 0/1 electrical levels per the wire format.
type Pin struct {
	Mode       string    `json:"mode"`
	Value      int       `json:"value"`
	Pull       string    `json:"pull"`
	Configured bool      `json:"configured"`
	PWM        *PWMState `json:"pwm,omitempty"`
}

// Snapshot is the full point-in-time report of all pins returned by
// GET /api/pins.
type Snapshot struct {
	Pins      map[int]Pin `json:"pins"`
	Backend   string      `json:"backend"`
	IsPi      bool        `json:"is_pi"`
	ValidPins []int       `json:"valid_pins"`
	PWMPins   []int       `json:"pwm_pins"`
}

// Event is one message on the push stream. Heartbeats carry only Type;
// log-worthy events additionally carry Timestamp, Message and Level.
type Event struct {
	ID        string `json:"id,omitempty"`
	Type      string `json:"type"`
	Timestamp string `json:"timestamp,omitempty"`
	Message   string `json:"message,omitempty"`
	Level     string `json:"level,omitempty"`
}

// IsValidPin reports whether pin is within the controllable BCM range.
func IsValidPin(pin int) bool {
	return pin >= MinPin && pin <= MaxPin
}

// IsPWMCapable reports whether pin has a hardware PWM channel.
func IsPWMCapable(pin int) bool {
	for _, p := range PWMCapablePins {
		if p == pin {
			return true
		}
	}
	return false
}

// ValidPins returns the controllable pin numbers in ascending order.
func ValidPins() []int {
	pins := make([]int, 0, MaxPin-MinPin+1)
	for p := MinPin; p <= MaxPin; p++ {
		pins = append(pins, p)
	}
	return pins
}
