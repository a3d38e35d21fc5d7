package client

import (
	"fmt"
	"time"
)

// The ConnectionError is returned when the transport fails to open a connection
// to the target host. It is never retried here; retry policy belongs to the
// transport's own configuration.
type ConnectionError struct {
	Reason error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to open connection: %s", e.Reason)
}

func (e *ConnectionError) Unwrap() error { return e.Reason }

// The TransportError is returned when a send or receive fails at the transport
// layer after the connection was established. The reason is opaque and passed
// through from the transport.
type TransportError struct {
	Reason error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure: %s", e.Reason)
}

func (e *TransportError) Unwrap() error { return e.Reason }

// The TimeoutError is returned when no event for the in-flight stream arrives
// within the per-wait deadline. Events arriving after the deadline are orphaned.
type TimeoutError struct {
	Wait time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for the next response event", e.Wait)
}

func (e *TimeoutError) Unwrap() error { return nil }

// The BodyTooLargeError is returned when the accumulated response body would
// exceed the configured maximum. The partial body is discarded.
type BodyTooLargeError struct {
	Limit int
}

func (e *BodyTooLargeError) Error() string {
	return fmt.Sprintf("response body exceeded the %d byte limit", e.Limit)
}

func (e *BodyTooLargeError) Unwrap() error { return nil }

// The ProcessTerminatedError is returned when the connection or its owning
// process ends unexpectedly mid-exchange.
type ProcessTerminatedError struct {
	Reason error
}

func (e *ProcessTerminatedError) Error() string {
	return fmt.Sprintf("connection terminated unexpectedly: %s", e.Reason)
}

func (e *ProcessTerminatedError) Unwrap() error { return e.Reason }
