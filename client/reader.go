package client

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/RyanSiu1995/tesla/logger"
	"github.com/RyanSiu1995/tesla/transport"
)

// responseReader drives the AwaitingResponse -> AwaitingBody -> Done state
// machine over a connection's event feed. Only events carrying the in-flight
// stream id are significant; everything else is either a transient lifecycle
// signal (re-enter the wait) or noise (discard). The deadline bounds the gap
// between events, not the whole call: it restarts on every state transition.
type responseReader struct {
	logger   *logger.Logger
	conn     transport.Connection
	streamId string

	timeout time.Duration
	maxBody int
	limited bool

	status  int
	headers []transport.Header
	body    bytes.Buffer
}

func newResponseReader(logger *logger.Logger, conn transport.Connection, streamId string, options Options) *responseReader {
	maxBody, limited := options.maxBody()

	return &responseReader{
		logger:   logger,
		conn:     conn,
		streamId: streamId,
		timeout:  options.timeout(),
		maxBody:  maxBody,
		limited:  limited,
	}
}

func (r *responseReader) read(ctx context.Context) (*Response, error) {
	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	awaitingBody := false

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-r.conn.Done():
			return nil, &ProcessTerminatedError{Reason: r.conn.Err()}
		case <-timer.C:
			return nil, &TimeoutError{Wait: r.timeout}
		case event := <-r.conn.Events():
			switch e := event.(type) {

			case transport.UpEvent:
				// The stream is still valid across connection-level signals
				r.logger.Debugf("connection up (%s), continuing to wait", e.Protocol)
				r.restart(timer)

			case transport.DownEvent:
				for _, killed := range e.KilledStreams {
					if killed == r.streamId {
						return nil, &TransportError{Reason: fmt.Errorf("connection went down and killed the stream: %s", e.Reason)}
					}
				}
				r.logger.Debugf("connection down, stream survived, continuing to wait")
				r.restart(timer)

			case transport.TerminatedEvent:
				return nil, &ProcessTerminatedError{Reason: e.Reason}

			case transport.ErrorEvent:
				if e.StreamId == "" || e.StreamId == r.streamId {
					return nil, &TransportError{Reason: e.Reason}
				}

			case transport.ResponseEvent:
				if e.StreamId != r.streamId || awaitingBody {
					continue
				}

				r.status = e.Status
				r.headers = e.Headers

				if e.Final {
					return r.response(), nil
				}

				awaitingBody = true
				r.restart(timer)

			case transport.DataEvent:
				if e.StreamId != r.streamId || !awaitingBody {
					continue
				}

				if r.limited && r.body.Len()+len(e.Bytes) > r.maxBody {
					return nil, &BodyTooLargeError{Limit: r.maxBody}
				}
				r.body.Write(e.Bytes)

				if e.Final {
					return r.response(), nil
				}
				r.restart(timer)
			}
		}
	}
}

func (r *responseReader) response() *Response {
	return &Response{
		Status:  r.status,
		Headers: normalizeHeaders(r.headers),
		Body:    r.body.Bytes(),
	}
}

func (r *responseReader) restart(timer *time.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	timer.Reset(r.timeout)
}
