/*
The server package is test tooling: an in-process websocket server that speaks
the transport's JSON frame protocol. Tests script it by writing response, data
and error frames for a stream and by inspecting the raw frames the client sent.
*/
package server

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"time"

	gorilla "github.com/gorilla/websocket"

	"github.com/RyanSiu1995/tesla/logger"
	"github.com/RyanSiu1995/tesla/transport"
	wstransport "github.com/RyanSiu1995/tesla/transport/websocket"
)

type EventServer struct {
	logger *logger.Logger

	server *httptest.Server
	conn   *gorilla.Conn
	ready  chan struct{}

	// Raw frames received from the client, in arrival order
	inbound chan []byte
}

func New(logger *logger.Logger) *EventServer {
	eventServer := &EventServer{
		logger:  logger,
		ready:   make(chan struct{}),
		inbound: make(chan []byte, 50),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", eventServer.serve)
	eventServer.server = httptest.NewServer(mux)

	return eventServer
}

func (e *EventServer) serve(writer http.ResponseWriter, request *http.Request) {
	upgrader := gorilla.Upgrader{}
	conn, err := upgrader.Upgrade(writer, request, nil)
	if err != nil {
		e.logger.Errorf("failed to upgrade websocket: %s", err)
		return
	}

	e.conn = conn
	close(e.ready)

	defer conn.Close()
	for {
		_, frameBytes, err := conn.ReadMessage()
		if err != nil {
			return
		}
		e.inbound <- frameBytes
	}
}

// HostPort returns the address to hand to Transport.Open.
func (e *EventServer) HostPort() (string, int) {
	host, portString, _ := net.SplitHostPort(e.server.Listener.Addr().String())
	port, _ := strconv.Atoi(portString)
	return host, port
}

func (e *EventServer) Inbound() <-chan []byte {
	return e.inbound
}

// WaitForClient blocks until a client has connected, so tests don't race the
// upgrade.
func (e *EventServer) WaitForClient(timeout time.Duration) bool {
	select {
	case <-e.ready:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (e *EventServer) SendResponse(streamId string, final bool, status int, headers []transport.Header) {
	e.write(wstransport.ResponseFrame{
		Type:    int(wstransport.Response),
		Stream:  streamId,
		Final:   final,
		Status:  status,
		Headers: headers,
	})
}

func (e *EventServer) SendData(streamId string, data []byte, final bool) {
	e.write(wstransport.DataFrame{
		Type:   int(wstransport.Data),
		Stream: streamId,
		Bytes:  data,
		Final:  final,
	})
}

func (e *EventServer) SendError(streamId string, reason string) {
	e.write(wstransport.ErrorFrame{
		Type:   int(wstransport.Error),
		Stream: streamId,
		Reason: reason,
	})
}

func (e *EventServer) write(frame interface{}) {
	frameBytes, err := json.Marshal(frame)
	if err != nil {
		e.logger.Errorf("failed to marshal frame: %s", err)
		return
	}

	if err := e.conn.WriteMessage(gorilla.TextMessage, frameBytes); err != nil {
		e.logger.Errorf("failed to write to websocket connection: %s", err)
	}
}

// ForceClose drops the socket without a close handshake, like a crashed peer.
func (e *EventServer) ForceClose() {
	if e.conn != nil {
		e.conn.Close()
	}
}

func (e *EventServer) Close() {
	if e.conn != nil {
		message := gorilla.FormatCloseMessage(gorilla.CloseNormalClosure, "")
		e.conn.WriteControl(gorilla.CloseMessage, message, time.Now().Add(time.Second))
	}
	e.server.Close()
}
