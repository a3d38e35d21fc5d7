package transport

// Event is the tagged union of everything a connection can report. Stream-scoped
// events carry the id of the stream they belong to; connection-scoped lifecycle
// events carry none.
type Event interface {
	event()
}

// ResponseEvent delivers the status line and headers of a response. Final means
// there is no body and the exchange is complete.
type ResponseEvent struct {
	StreamId string
	Final    bool
	Status   int
	Headers  []Header
}

// DataEvent delivers one frame of a response body. Final marks the last frame.
type DataEvent struct {
	StreamId string
	Final    bool
	Bytes    []byte
}

// ErrorEvent reports a failure at the transport layer. StreamId is empty when the
// failure is connection-wide.
type ErrorEvent struct {
	StreamId string
	Reason   error
}

// UpEvent signals that the connection (re-)established itself.
type UpEvent struct {
	Protocol string
}

// DownEvent signals that the connection dropped. Streams listed in KilledStreams
// will never receive another event; unlisted streams may still complete if the
// transport recovers the connection.
type DownEvent struct {
	Reason        error
	KilledStreams []string
}

// TerminatedEvent signals that the connection's owning process ended and nothing
// further will ever be delivered.
type TerminatedEvent struct {
	Reason error
}

func (ResponseEvent) event()   {}
func (DataEvent) event()       {}
func (ErrorEvent) event()      {}
func (UpEvent) event()         {}
func (DownEvent) event()       {}
func (TerminatedEvent) event() {}
