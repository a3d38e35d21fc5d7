package client

import (
	"io"

	"github.com/RyanSiu1995/tesla/multipart"
)

// Body is the request body in one of its four shapes: absent (a nil Body),
// a fixed byte buffer, a lazily-consumed stream, or a structured multipart
// form. The dispatcher matches on the concrete shape to choose between a
// single-shot send and a chunked send.
type Body interface {
	isBody()
}

type bytesBody []byte

type streamBody struct {
	reader io.Reader
}

type multipartBody struct {
	form *multipart.Form
}

func (bytesBody) isBody()     {}
func (streamBody) isBody()    {}
func (multipartBody) isBody() {}

// Bytes wraps a fully-known byte buffer. It is sent in one request call with
// no follow-up frames.
func Bytes(b []byte) Body {
	return bytesBody(b)
}

// Stream wraps a lazily-produced byte sequence. Each read becomes one non-final
// body frame, and exhaustion becomes the zero-length final frame. If the reader
// is also an io.Closer it is closed once the send finishes or aborts.
func Stream(r io.Reader) Body {
	return streamBody{reader: r}
}

// Multipart wraps a structured multipart form. It is expanded into a
// content-type header plus a streamed body before dispatch.
func Multipart(form *multipart.Form) Body {
	return multipartBody{form: form}
}
