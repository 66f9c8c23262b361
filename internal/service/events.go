package service

import (
	"sync"
	"time"

	"github.com/google/uuid"

	gpioctl "github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller"
	"github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller/internal/logger"
)

// defaultSubscriberBuffer is the per-subscriber channel depth before
// events are dropped for that subscriber.
const defaultSubscriberBuffer = 64

// EventHub fans server events out to push-stream subscribers. Publishing
// never blocks: a subscriber that cannot keep up loses events rather than
// stalling the control plane.
type EventHub struct {
	mu   sync.Mutex
	subs map[int]chan gpioctl.Event
	next int
	log  *logger.Logger
}

func NewEventHub(log *logger.Logger) *EventHub {
	return &EventHub{
		subs: make(map[int]chan gpioctl.Event),
		log:  log,
	}
}

// Subscribe registers a new event consumer. The returned cancel function
// unregisters it and closes the channel.
func (h *EventHub) Subscribe(buffer int) (<-chan gpioctl.Event, func()) {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	ch := make(chan gpioctl.Event, buffer)

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers ev to every subscriber, dropping it for full ones.
func (h *EventHub) Publish(ev gpioctl.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.log.Debugw("event dropped for slow subscriber", "subscriber", id, "type", ev.Type)
		}
	}
}

// Log publishes a timestamped log event at the given level. Input-level
// events carry the input event type so clients can tee them separately.
func (h *EventHub) Log(message, level string) {
	typ := gpioctl.EventLog
	if level == gpioctl.LevelInput {
		typ = gpioctl.EventInput
	}
	h.Publish(gpioctl.Event{
		ID:        uuid.NewString(),
		Type:      typ,
		Timestamp: time.Now().Format(gpioctl.TimeLayout),
		Message:   message,
		Level:     level,
	})
}
