/*
The client package is the protocol adapter between a caller expecting a single
blocking request/response call and a transport that reports everything as
asynchronous events. A call opens its own private connection, issues the request
(streaming the body when it isn't fully known up front), then drives the
response reader state machine over the connection's event feed until a terminal
outcome is reached.
*/
package client

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/RyanSiu1995/tesla/logger"
	"github.com/RyanSiu1995/tesla/transport"
)

// How much of a streamed body we pull per chunk frame.
const streamChunkSize = 16 * 1024

type Request struct {
	Method  string
	Url     string
	Query   url.Values
	Headers []transport.Header

	// Body is nil, Bytes, Stream, or Multipart.
	Body Body
}

type Response struct {
	Status int

	// Header names are lower-cased; lookup is by name only, order is not kept.
	Headers map[string]string

	Body []byte
}

type Client struct {
	logger    *logger.Logger
	transport transport.Transport
}

func New(logger *logger.Logger, transport transport.Transport) *Client {
	return &Client{
		logger:    logger,
		transport: transport,
	}
}

// Do performs one complete exchange: open, send, read, normalize. The
// connection is private to this call and closed on every exit path. Errors are
// one of the adapter's five error types, except for context cancellation which
// surfaces as the context's own error.
func (c *Client) Do(ctx context.Context, request Request, options Options) (*Response, error) {
	targetUrl, err := url.Parse(request.Url)
	if err != nil {
		return nil, &ConnectionError{Reason: fmt.Errorf("failed to parse url %s: %w", request.Url, err)}
	}

	conn, err := c.openConnection(ctx, targetUrl, options)
	if err != nil {
		return nil, &ConnectionError{Reason: err}
	}
	defer conn.Close(fmt.Errorf("request finished"))

	streamId, err := c.send(conn, request, targetUrl)
	if err != nil {
		return nil, err
	}

	reader := newResponseReader(c.logger.GetConnectionLogger(conn.ID()).GetStreamLogger(streamId), conn, streamId, options)
	return reader.read(ctx)
}

func (c *Client) openConnection(ctx context.Context, targetUrl *url.URL, options Options) (transport.Connection, error) {
	host := targetUrl.Hostname()
	port, err := targetPort(targetUrl)
	if err != nil {
		return nil, err
	}

	return c.transport.Open(ctx, host, port, translateOptions(options, targetUrl))
}

// send issues the request on a fresh stream, matching on the body shape to
// decide between a single-shot send and a chunked one. Multipart bodies are
// expanded into a content-type header plus a streamed body first.
func (c *Client) send(conn transport.Connection, request Request, targetUrl *url.URL) (string, error) {
	method := strings.ToUpper(request.Method)
	target := pathAndQuery(targetUrl, request.Query)

	switch body := request.Body.(type) {
	case nil:
		return c.sendFull(conn, method, target, request.Headers, nil)
	case bytesBody:
		return c.sendFull(conn, method, target, request.Headers, body)
	case streamBody:
		return c.sendStream(conn, method, target, request.Headers, body.reader)
	case multipartBody:
		contentType, encoded := body.form.Encode()
		headers := make([]transport.Header, 0, len(request.Headers)+1)
		headers = append(headers, request.Headers...)
		headers = append(headers, transport.Header{Name: "content-type", Value: contentType})
		return c.sendStream(conn, method, target, headers, encoded)
	default:
		return "", &TransportError{Reason: fmt.Errorf("unsupported body shape %T", request.Body)}
	}
}

func (c *Client) sendFull(conn transport.Connection, method string, target string, headers []transport.Header, body []byte) (string, error) {
	streamId, err := conn.Request(method, target, headers, body)
	if err != nil {
		return "", &TransportError{Reason: err}
	}
	return streamId, nil
}

func (c *Client) sendStream(conn transport.Connection, method string, target string, headers []transport.Header, body io.Reader) (string, error) {
	// Bodies backed by a pipe (multipart, closable caller streams) must be
	// closed when we stop reading early, or the producer blocks forever.
	if closer, ok := body.(io.Closer); ok {
		defer closer.Close()
	}

	streamId, err := conn.Request(method, target, headers, nil)
	if err != nil {
		return "", &TransportError{Reason: err}
	}

	buffer := make([]byte, streamChunkSize)
	for {
		n, readErr := body.Read(buffer)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buffer[:n])
			if err := conn.SendChunk(streamId, chunk, false); err != nil {
				return "", &TransportError{Reason: err}
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", &TransportError{Reason: fmt.Errorf("failed to read request body: %w", readErr)}
		}
	}

	// The zero-length final frame marks end-of-body
	if err := conn.SendChunk(streamId, nil, true); err != nil {
		return "", &TransportError{Reason: err}
	}

	return streamId, nil
}

func targetPort(targetUrl *url.URL) (int, error) {
	if port := targetUrl.Port(); port != "" {
		var parsed int
		if _, err := fmt.Sscanf(port, "%d", &parsed); err != nil {
			return 0, fmt.Errorf("invalid port in url %s: %w", targetUrl.String(), err)
		}
		return parsed, nil
	}

	if isSecureScheme(targetUrl.Scheme) {
		return 443, nil
	}
	return 80, nil
}

// pathAndQuery builds the single path-plus-query form the transport expects:
// "path", "path?query", or "" when both are absent.
func pathAndQuery(targetUrl *url.URL, extra url.Values) string {
	query := targetUrl.Query()
	for name, values := range extra {
		for _, value := range values {
			query.Add(name, value)
		}
	}

	encoded := query.Encode()
	switch {
	case targetUrl.Path == "" && encoded == "":
		return ""
	case encoded == "":
		return targetUrl.Path
	default:
		return targetUrl.Path + "?" + encoded
	}
}

func normalizeHeaders(headers []transport.Header) map[string]string {
	normalized := make(map[string]string, len(headers))
	for _, header := range headers {
		normalized[strings.ToLower(header.Name)] = header.Value
	}
	return normalized
}
