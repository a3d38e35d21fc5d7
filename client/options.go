package client

import (
	"net/url"
	"time"

	"github.com/RyanSiu1995/tesla/transport"
)

const (
	// How long each wait for the next response event may block when the caller
	// doesn't say otherwise.
	DefaultTimeout = time.Second
)

// Adapter-local option keys. Everything else in the mapping is either a
// transport key (forwarded through the allow-list) or ignored.
const (
	// OptionTimeout bounds each wait for the next event, in milliseconds when
	// given as an int, or directly as a time.Duration.
	OptionTimeout = "timeout"

	// OptionMaxBody caps the accumulated response body size in bytes, as an
	// int. Absent means unlimited.
	OptionMaxBody = "max_body"
)

// Options is the per-call option mapping: adapter-local keys plus any transport
// tuning keys, merged by the caller and read-only once the call starts.
type Options map[string]interface{}

// translateOptions filters the mapping down to the keys the transport
// recognizes. When the caller didn't pick a transport mode and the URL scheme
// indicates an encrypted endpoint, the TLS mode is injected.
func translateOptions(options Options, u *url.URL) transport.Options {
	translated := transport.Options{}
	for key, value := range options {
		if transport.Recognized(key) {
			translated[key] = value
		}
	}

	if _, ok := translated[transport.OptionTransport]; !ok && isSecureScheme(u.Scheme) {
		translated[transport.OptionTransport] = transport.TransportTLS
	}

	return translated
}

func isSecureScheme(scheme string) bool {
	return scheme == "https" || scheme == "wss"
}

func (o Options) timeout() time.Duration {
	switch value := o[OptionTimeout].(type) {
	case time.Duration:
		return value
	case int:
		return time.Duration(value) * time.Millisecond
	case int64:
		return time.Duration(value) * time.Millisecond
	default:
		return DefaultTimeout
	}
}

// maxBody returns the configured body limit and whether one is set at all.
func (o Options) maxBody() (int, bool) {
	switch value := o[OptionMaxBody].(type) {
	case int:
		return value, true
	case int64:
		return int(value), true
	default:
		return 0, false
	}
}
