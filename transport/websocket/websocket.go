/*
The websocket package is a concrete transport. It speaks a small JSON frame
protocol over a websocket: the client opens streams with request frames and
pushes body chunks as data frames; the server answers with response, data and
error frames tagged with the stream they belong to. Incoming frames are fanned
out as typed events on the connection's event channel.
*/
package websocket

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	gorilla "github.com/gorilla/websocket"
	"gopkg.in/tomb.v2"

	"github.com/RyanSiu1995/tesla/logger"
	"github.com/RyanSiu1995/tesla/telemetry/throughputstats"
	"github.com/RyanSiu1995/tesla/transport"
)

const (
	defaultConnectTimeout = 5 * time.Second
	initialRetryInterval  = 100 * time.Millisecond
	defaultRetryTimeout   = 15 * time.Second

	// Big enough that a slow reader doesn't stall the receive loop mid-exchange
	eventQueueSize = 200
)

// TCPOptions is the value accepted under the tcp_opts key.
type TCPOptions struct {
	KeepAlive time.Duration
}

// WebsocketOptions is the value accepted under the ws_opts key.
type WebsocketOptions struct {
	ReadBufferSize    int
	WriteBufferSize   int
	EnableCompression bool
}

type Transport struct {
	logger *logger.Logger
}

func New(logger *logger.Logger) *Transport {
	return &Transport{
		logger: logger,
	}
}

// Open dials ws(s)://host:port and returns the connection once the socket is
// established. When the retry option is set, failed dials are retried with
// exponential backoff, bounded both by the configured attempt count and by
// retry_timeout as a cap on the total time spent retrying.
func (t *Transport) Open(ctx context.Context, host string, port int, options transport.Options) (transport.Connection, error) {
	connUrl := url.URL{
		Scheme: "ws",
		Host:   fmt.Sprintf("%s:%d", host, port),
	}
	if mode, _ := options[transport.OptionTransport].(string); mode == transport.TransportTLS {
		connUrl.Scheme = "wss"
	}

	dialer := t.buildDialer(options)

	var client *gorilla.Conn
	dial := func() error {
		var err error
		if client, _, err = dialer.DialContext(ctx, connUrl.String(), nil); err != nil {
			return fmt.Errorf("error dialing %s: %w", connUrl.String(), err)
		}
		return nil
	}

	if err := backoff.Retry(dial, t.dialPolicy(ctx, options)); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	trace, _ := options[transport.OptionTrace].(bool)

	conn := &Connection{
		id:     id,
		logger: t.logger.GetConnectionLogger(id),
		client: client,
		events: make(chan transport.Event, eventQueueSize),
		stats:  throughputstats.New(),
		trace:  trace,
	}

	// The connection is up the moment the dial succeeds; queue the lifecycle
	// event before any response frame can arrive
	conn.events <- transport.UpEvent{Protocol: connUrl.Scheme}

	conn.tmb.Go(conn.receive)

	return conn, nil
}

func (t *Transport) buildDialer(options transport.Options) gorilla.Dialer {
	dialer := gorilla.Dialer{
		HandshakeTimeout: defaultConnectTimeout,
	}

	if timeout, ok := options[transport.OptionConnectTimeout].(time.Duration); ok {
		dialer.HandshakeTimeout = timeout
	}
	if tlsConfig, ok := options[transport.OptionTLS].(*tls.Config); ok {
		dialer.TLSClientConfig = tlsConfig
	}
	if protocols, ok := options[transport.OptionProtocols].([]string); ok {
		dialer.Subprotocols = protocols
	}
	if tcpOptions, ok := options[transport.OptionTCP].(TCPOptions); ok {
		netDialer := net.Dialer{KeepAlive: tcpOptions.KeepAlive}
		dialer.NetDialContext = netDialer.DialContext
	}
	if wsOptions, ok := options[transport.OptionWebsocket].(WebsocketOptions); ok {
		dialer.ReadBufferSize = wsOptions.ReadBufferSize
		dialer.WriteBufferSize = wsOptions.WriteBufferSize
		dialer.EnableCompression = wsOptions.EnableCompression
	}

	return dialer
}

// dialPolicy turns the retry options into a backoff policy: a single attempt
// unless retry is set.
func (t *Transport) dialPolicy(ctx context.Context, options transport.Options) backoff.BackOffContext {
	retries, _ := options[transport.OptionRetry].(int)
	if retries <= 0 {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = initialRetryInterval
	policy.MaxElapsedTime = defaultRetryTimeout
	if retryTimeout, ok := options[transport.OptionRetryTimeout].(time.Duration); ok {
		policy.MaxElapsedTime = retryTimeout
	}

	return backoff.WithContext(backoff.WithMaxRetries(policy, uint64(retries)), ctx)
}

type Connection struct {
	tmb    tomb.Tomb
	logger *logger.Logger

	id     string
	client *gorilla.Conn
	trace  bool

	// Serializes frame writes; Request and SendChunk may race with the final
	// close frame otherwise
	sendLock sync.Mutex

	events chan transport.Event
	stats  *throughputstats.ThroughputStats
}

func (c *Connection) ID() string {
	return c.id
}

func (c *Connection) Events() <-chan transport.Event {
	return c.events
}

func (c *Connection) Done() <-chan struct{} {
	return c.tmb.Dead()
}

func (c *Connection) Err() error {
	return c.tmb.Err()
}

func (c *Connection) Stats() throughputstats.Digest {
	return c.stats.Digest()
}

func (c *Connection) Close(reason error) {
	if c.tmb.Alive() {
		c.logger.Infof("connection closing because: %s", reason)

		c.client.Close()

		c.tmb.Kill(reason)
		c.tmb.Wait()
	} else {
		c.logger.Debug("close was called while in a dying state")
	}
}

func (c *Connection) Request(method string, pathAndQuery string, headers []transport.Header, body []byte) (string, error) {
	streamId := uuid.New().String()

	frame := RequestFrame{
		Type:    int(Request),
		Stream:  streamId,
		Method:  method,
		Path:    pathAndQuery,
		Headers: headers,
		Body:    body,
	}

	if err := c.write(frame); err != nil {
		return "", err
	}
	return streamId, nil
}

func (c *Connection) SendChunk(streamId string, data []byte, final bool) error {
	return c.write(DataFrame{
		Type:   int(Data),
		Stream: streamId,
		Bytes:  data,
		Final:  final,
	})
}

func (c *Connection) write(frame interface{}) error {
	if !c.tmb.Alive() {
		return fmt.Errorf("cannot send because the connection is closed")
	}

	frameBytes, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("failed to marshal outgoing frame: %w", err)
	}

	if c.trace {
		c.logger.Tracef("sending frame: %s", string(frameBytes))
	}

	c.sendLock.Lock()
	defer c.sendLock.Unlock()

	if err := c.client.WriteMessage(gorilla.TextMessage, frameBytes); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}

	c.stats.CountOutbound(len(frameBytes))
	return nil
}

func (c *Connection) receive() error {
	defer c.logger.Info("websocket connection closed")
	c.logger.Info("websocket connection started")

	for {
		_, frameBytes, err := c.client.ReadMessage()
		if !c.tmb.Alive() {
			return nil
		}
		if err != nil {
			// The socket dropped under us; the reader sees the down event and
			// then the connection's Done channel
			c.events <- transport.DownEvent{Reason: err}

			if gorilla.IsCloseError(err, gorilla.CloseNormalClosure) {
				c.logger.Info("websocket connection closed normally")
			}
			return err
		}

		c.stats.CountInbound(len(frameBytes))

		if err := c.unwrap(frameBytes); err != nil {
			c.logger.Errorf("error unwrapping frame: %s", err)
		}
	}
}

// unwrap parses one incoming frame and queues the matching event.
func (c *Connection) unwrap(frameBytes []byte) error {
	if c.trace {
		c.logger.Tracef("received frame: %s", string(frameBytes))
	}

	var frameType FrameTypeOnly
	if err := json.Unmarshal(frameBytes, &frameType); err != nil {
		return fmt.Errorf("failed to unmarshal frame: %s", string(frameBytes))
	}

	switch FrameType(frameType.Type) {

	case Response:
		var frame ResponseFrame
		if err := json.Unmarshal(frameBytes, &frame); err != nil {
			return fmt.Errorf("failed to unmarshal response frame: %s", string(frameBytes))
		}

		c.events <- transport.ResponseEvent{
			StreamId: frame.Stream,
			Final:    frame.Final,
			Status:   frame.Status,
			Headers:  frame.Headers,
		}

	case Data:
		var frame DataFrame
		if err := json.Unmarshal(frameBytes, &frame); err != nil {
			return fmt.Errorf("failed to unmarshal data frame: %s", string(frameBytes))
		}

		c.events <- transport.DataEvent{
			StreamId: frame.Stream,
			Final:    frame.Final,
			Bytes:    frame.Bytes,
		}

	case Error:
		var frame ErrorFrame
		if err := json.Unmarshal(frameBytes, &frame); err != nil {
			return fmt.Errorf("failed to unmarshal error frame: %s", string(frameBytes))
		}

		c.events <- transport.ErrorEvent{
			StreamId: frame.Stream,
			Reason:   errors.New(frame.Reason),
		}

	default:
		c.logger.Debugf("ignoring %s frame", FrameType(frameType.Type))
	}

	return nil
}
