package client

import "sync"

// Status is the connectivity tri-state shown to rendering collaborators
// and used to gate the periodic refresh.
type Status string

const (
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusError        Status = "error"
)

// ConnectivityState is a thread-safe holder for the current Status.
// Written by the event stream and the snapshot poller, read everywhere.
type ConnectivityState struct {
	mu sync.Mutex
	s  Status
}

// NewConnectivityState starts disconnected; the stream flips it on open.
func NewConnectivityState() *ConnectivityState {
	return &ConnectivityState{s: StatusDisconnected}
}

func (c *ConnectivityState) Get() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s
}

func (c *ConnectivityState) Set(s Status) {
	c.mu.Lock()
	c.s = s
	c.mu.Unlock()
}
