package client

import "fmt"

// ValidationError is a client-side precondition failure. It never reaches
// the network: the offending command is rejected before any request is
// built.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// RequestFailure is a non-success HTTP status or transport failure for a
// command or snapshot request. Reason carries the server's reported error
// verbatim when present.
type RequestFailure struct {
	Status int
	Reason string
}

func (e *RequestFailure) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	if e.Status != 0 {
		return fmt.Sprintf("server returned status %d", e.Status)
	}
	return "request failed"
}

// ParseFailure is a malformed snapshot or push-event payload.
type ParseFailure struct {
	Cause error
}

func (e *ParseFailure) Error() string {
	return fmt.Sprintf("malformed payload: %v", e.Cause)
}

func (e *ParseFailure) Unwrap() error {
	return e.Cause
}
