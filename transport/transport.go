/*
The transport package defines the contract between the client adapter and the
underlying connection library. A Transport opens Connections; a Connection carries
one or more request/response streams and reports everything that happens to it as
asynchronous Events on a per-connection channel.

Each connection's event channel only ever carries events for that connection, so
correlating an event to an in-flight exchange reduces to matching its stream id.
*/
package transport

import (
	"context"

	"github.com/RyanSiu1995/tesla/telemetry/throughputstats"
)

// Header is a single name/value pair. Request headers are an ordered sequence of
// these rather than a map so that repeated names and ordering survive the trip
// to the wire.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Transport interface {
	Open(ctx context.Context, host string, port int, options Options) (Connection, error)
}

type Connection interface {
	ID() string

	// Request issues a request on a new stream and returns the stream id.
	// The body is sent in full; callers streaming a body pass nil here and
	// follow up with SendChunk calls.
	Request(method string, pathAndQuery string, headers []Header, body []byte) (string, error)

	// SendChunk sends one body frame on an open stream. A final frame, usually
	// zero-length, marks the end of the request body.
	SendChunk(streamId string, data []byte, final bool) error

	Events() <-chan Event
	Done() <-chan struct{}
	Err() error
	Close(reason error)
	Stats() throughputstats.Digest
}
