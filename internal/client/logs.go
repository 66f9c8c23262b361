package client

import (
	"strings"
	"sync"
)

// Capacities of the bounded client logs.
const (
	ActivityLogCapacity = 100
	InputLogCapacity    = 50
)

// LogEntry is one operator-visible log line.
type LogEntry struct {
	Timestamp string
	Message   string
	Level     string
}

// EventLog is a bounded sequence of entries; the oldest entry is evicted
// once capacity is reached.
type EventLog struct {
	mu       sync.Mutex
	capacity int
	entries  []LogEntry
}

func NewEventLog(capacity int) *EventLog {
	return &EventLog{capacity: capacity}
}

func (l *EventLog) Append(e LogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	if len(l.entries) > l.capacity {
		l.entries = l.entries[len(l.entries)-l.capacity:]
	}
}

// Entries returns a copy, oldest first.
func (l *EventLog) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *EventLog) Clear() {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()
}

// significantKeywords admit a message into the activity log when any of
// them appears, case-insensitively. Stems ("configur", "initializ") catch
// the inflected forms.
var significantKeywords = []string{
	"pin", "gpio", "pwm", "reset", "configur", "monitor", "connect",
	"backend", "server", "failed", "error", "started", "stopped",
	"initializ",
}

// uiOnlyPatterns suppress pure cosmetic notices. A keyword match wins
// over these: a message naming a pin or the backend stays in the log
// even when a cosmetic phrase appears in it.
var uiOnlyPatterns = []string{
	"theme changed", "dark mode", "light mode", "log cleared", "logs cleared",
}

// IsSignificant decides whether an event is operator-relevant enough to
// keep in the activity log. Error, warning and input levels always are;
// info-level messages qualify by keyword, with the cosmetic patterns as
// a fallback veto for the rest.
func IsSignificant(message, level string) bool {
	switch level {
	case "error", "warning", "input":
		return true
	}
	m := strings.ToLower(message)
	for _, kw := range significantKeywords {
		if strings.Contains(m, kw) {
			return true
		}
	}
	for _, pattern := range uiOnlyPatterns {
		if strings.Contains(m, pattern) {
			return false
		}
	}
	return false
}
