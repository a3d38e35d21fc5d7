package websocket_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/RyanSiu1995/tesla/client"
	"github.com/RyanSiu1995/tesla/logger"
	"github.com/RyanSiu1995/tesla/tests/server"
	"github.com/RyanSiu1995/tesla/transport"
	websocket "github.com/RyanSiu1995/tesla/transport/websocket"
)

// decodeRequest pulls the next frame off the server and decodes it as the
// request frame that opened a stream.
func decodeRequest(eventServer *server.EventServer) (websocket.RequestFrame, bool) {
	select {
	case raw := <-eventServer.Inbound():
		var frame websocket.RequestFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			return websocket.RequestFrame{}, false
		}
		return frame, true
	case <-time.After(2 * time.Second):
		return websocket.RequestFrame{}, false
	}
}

var _ = Describe("Client over the websocket transport", Ordered, func() {
	var eventServer *server.EventServer
	var httpClient *client.Client
	var serverUrl string

	log := logger.MockLogger(GinkgoWriter)
	ctx := context.Background()

	BeforeEach(func() {
		eventServer = server.New(log)
		httpClient = client.New(log, websocket.New(log))

		host, port := eventServer.HostPort()
		serverUrl = "http://" + net.JoinHostPort(host, strconv.Itoa(port))
	})

	AfterEach(func() {
		eventServer.Close()
	})

	When("The server answers with a chunked body", func() {
		It("returns the full exchange end to end", func() {
			go func() {
				defer GinkgoRecover()

				Expect(eventServer.WaitForClient(2 * time.Second)).To(BeTrue())
				frame, ok := decodeRequest(eventServer)
				Expect(ok).To(BeTrue())
				Expect(frame.Method).To(Equal("GET"))
				Expect(frame.Path).To(Equal("/things?page=2"))

				eventServer.SendResponse(frame.Stream, false, 200, []transport.Header{{Name: "Content-Type", Value: "application/json"}})
				eventServer.SendData(frame.Stream, []byte(`{"things":`), false)
				eventServer.SendData(frame.Stream, []byte(`[]}`), true)
			}()

			response, err := httpClient.Do(ctx, client.Request{
				Method: "get",
				Url:    serverUrl + "/things?page=2",
			}, client.Options{})

			Expect(err).ToNot(HaveOccurred())
			Expect(response.Status).To(Equal(200))
			Expect(response.Headers["content-type"]).To(Equal("application/json"))
			Expect(string(response.Body)).To(Equal(`{"things":[]}`))
		})
	})

	When("The client streams its request body", func() {
		It("delivers every chunk before the response", func() {
			received := make(chan []byte, 1)

			go func() {
				defer GinkgoRecover()

				Expect(eventServer.WaitForClient(2 * time.Second)).To(BeTrue())
				frame, ok := decodeRequest(eventServer)
				Expect(ok).To(BeTrue())

				body := []byte{}
				for {
					var data websocket.DataFrame
					raw := <-eventServer.Inbound()
					Expect(json.Unmarshal(raw, &data)).To(Succeed())
					body = append(body, data.Bytes...)
					if data.Final {
						break
					}
				}
				received <- body

				eventServer.SendResponse(frame.Stream, true, 201, nil)
			}()

			response, err := httpClient.Do(ctx, client.Request{
				Method: "post",
				Url:    serverUrl + "/upload",
				Body:   client.Stream(strings.NewReader("streamed payload")),
			}, client.Options{})

			Expect(err).ToNot(HaveOccurred())
			Expect(response.Status).To(Equal(201))
			Expect(<-received).To(Equal([]byte("streamed payload")))
		})
	})

	When("The server never answers", func() {
		It("times out on the configured deadline", func() {
			_, err := httpClient.Do(ctx, client.Request{
				Method: "get",
				Url:    serverUrl + "/slow",
			}, client.Options{client.OptionTimeout: 100})

			var timeoutErr *client.TimeoutError
			Expect(errors.As(err, &timeoutErr)).To(BeTrue(), "expected a TimeoutError, got: %v", err)
		})
	})

	When("The server reports a transport error for the stream", func() {
		It("surfaces it as a TransportError", func() {
			go func() {
				defer GinkgoRecover()

				Expect(eventServer.WaitForClient(2 * time.Second)).To(BeTrue())
				frame, ok := decodeRequest(eventServer)
				Expect(ok).To(BeTrue())

				eventServer.SendError(frame.Stream, "stream refused")
			}()

			_, err := httpClient.Do(ctx, client.Request{
				Method: "get",
				Url:    serverUrl + "/refused",
			}, client.Options{})

			var transportErr *client.TransportError
			Expect(errors.As(err, &transportErr)).To(BeTrue(), "expected a TransportError, got: %v", err)
		})
	})
})
