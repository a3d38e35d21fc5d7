package websocket

import (
	"github.com/RyanSiu1995/tesla/transport"
)

type FrameType int

const (
	Invalid FrameType = iota

	// Client to server
	Request
	Data

	// Server to client (Data flows both ways)
	Response
	Error
)

func (f FrameType) String() string {
	switch f {
	case Request:
		return "Request"
	case Data:
		return "Data"
	case Response:
		return "Response"
	case Error:
		return "Error"
	default:
		return "Invalid"
	}
}

// FrameTypeOnly lets us peek at the type tag before committing to a full
// unmarshal.
type FrameTypeOnly struct {
	Type int `json:"type"`
}

// RequestFrame opens a new stream. Body carries the whole request body for
// single-shot sends and is empty when DataFrames follow.
type RequestFrame struct {
	Type    int                `json:"type"`
	Stream  string             `json:"stream"`
	Method  string             `json:"method"`
	Path    string             `json:"path"`
	Headers []transport.Header `json:"headers,omitempty"`
	Body    []byte             `json:"body,omitempty"`
}

// DataFrame carries one body chunk in either direction. Final marks the last
// frame of the phase it belongs to.
type DataFrame struct {
	Type   int    `json:"type"`
	Stream string `json:"stream"`
	Bytes  []byte `json:"bytes,omitempty"`
	Final  bool   `json:"final"`
}

// ResponseFrame carries the status line and headers. Final means no body
// follows.
type ResponseFrame struct {
	Type    int                `json:"type"`
	Stream  string             `json:"stream"`
	Final   bool               `json:"final"`
	Status  int                `json:"status"`
	Headers []transport.Header `json:"headers,omitempty"`
}

// ErrorFrame reports a server-side failure. An empty stream id means the whole
// connection is affected.
type ErrorFrame struct {
	Type   int    `json:"type"`
	Stream string `json:"stream,omitempty"`
	Reason string `json:"reason"`
}
