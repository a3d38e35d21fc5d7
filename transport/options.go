package transport

// Options is the option mapping handed to Open. Only recognized keys should be
// present; the client adapter filters caller-supplied options through Recognized
// before opening a connection.
type Options map[string]interface{}

// Option keys a transport understands. Values are forwarded verbatim, so the
// concrete transport documents the type it expects for each.
const (
	// OptionConnectTimeout bounds the dial, as a time.Duration.
	OptionConnectTimeout = "connect_timeout"

	// OptionTransport selects TransportTCP or TransportTLS.
	OptionTransport = "transport"

	// OptionProtocols lists acceptable application protocols, as []string.
	OptionProtocols = "protocols"

	// OptionTLS carries a *tls.Config for encrypted transports.
	OptionTLS = "tls_opts"

	// OptionTCP carries socket tuning for plain transports.
	OptionTCP = "tcp_opts"

	// OptionWebsocket carries websocket-specific tuning.
	OptionWebsocket = "ws_opts"

	// OptionRetry is the number of times a failed dial is retried, as an int.
	OptionRetry = "retry"

	// OptionRetryTimeout caps the total time spent retrying, as a time.Duration.
	OptionRetryTimeout = "retry_timeout"

	// OptionTrace enables frame-level debug logging, as a bool.
	OptionTrace = "trace"
)

// Transport modes.
const (
	TransportTCP = "tcp"
	TransportTLS = "tls"
)

var recognizedOptions = map[string]bool{
	OptionConnectTimeout: true,
	OptionTransport:      true,
	OptionProtocols:      true,
	OptionTLS:            true,
	OptionTCP:            true,
	OptionWebsocket:      true,
	OptionRetry:          true,
	OptionRetryTimeout:   true,
	OptionTrace:          true,
}

func Recognized(key string) bool {
	return recognizedOptions[key]
}
