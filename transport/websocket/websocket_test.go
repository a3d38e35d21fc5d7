package websocket_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/RyanSiu1995/tesla/logger"
	"github.com/RyanSiu1995/tesla/tests/server"
	"github.com/RyanSiu1995/tesla/transport"
	websocket "github.com/RyanSiu1995/tesla/transport/websocket"
)

func TestWebsocketTransport(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Websocket Transport Suite")
}

var _ = Describe("Websocket transport", Ordered, func() {
	var eventServer *server.EventServer
	var conn transport.Connection

	log := logger.MockLogger(GinkgoWriter)
	ctx := context.Background()

	openServerConnection := func(options transport.Options) error {
		var err error
		host, port := eventServer.HostPort()
		conn, err = websocket.New(log).Open(ctx, host, port, options)
		return err
	}

	Context("Opening connections", func() {
		When("Connecting to a legitimate host", func() {
			var err error

			BeforeEach(func() {
				eventServer = server.New(log)
				err = openServerConnection(transport.Options{})
			})

			AfterEach(func() {
				conn.Close(fmt.Errorf("test done"))
				eventServer.Close()
			})

			It("succeeds and reports the connection as up first", func() {
				Expect(err).ShouldNot(HaveOccurred(), "transport was unable to connect: %s", err)
				Expect(conn.ID()).ToNot(BeEmpty())

				var event transport.Event
				Eventually(conn.Events()).Should(Receive(&event))
				Expect(event).To(BeAssignableToTypeOf(transport.UpEvent{}))
			})
		})

		When("Connecting to a port with no listener", func() {
			It("fails", func() {
				_, err := websocket.New(log).Open(ctx, "localhost", 0, transport.Options{})
				Expect(err).Should(HaveOccurred(), "it looks like the transport connected but it shouldn't have")
			})
		})

		When("Retry options are set and the host is unreachable", func() {
			It("retries before giving up", func() {
				start := time.Now()
				_, err := websocket.New(log).Open(ctx, "localhost", 0, transport.Options{
					transport.OptionRetry:        2,
					transport.OptionRetryTimeout: 500 * time.Millisecond,
				})

				Expect(err).Should(HaveOccurred())
				Expect(time.Since(start)).To(BeNumerically(">=", 50*time.Millisecond), "a retried dial should have waited out at least the first interval")
			})
		})

		When("The retry budget is smaller than the attempt count would need", func() {
			It("stops retrying once the budget is spent", func() {
				start := time.Now()
				_, err := websocket.New(log).Open(ctx, "localhost", 0, transport.Options{
					transport.OptionRetry:        50,
					transport.OptionRetryTimeout: 300 * time.Millisecond,
				})

				Expect(err).Should(HaveOccurred())
				Expect(time.Since(start)).To(BeNumerically("<", time.Second), "retry_timeout bounds the total time spent, not each interval")
			})
		})
	})

	Context("Issuing requests", func() {
		BeforeEach(func() {
			eventServer = server.New(log)
			Expect(openServerConnection(transport.Options{})).To(Succeed())
			Expect(eventServer.WaitForClient(time.Second)).To(BeTrue())
		})

		AfterEach(func() {
			conn.Close(fmt.Errorf("test done"))
			eventServer.Close()
		})

		It("sends a request frame the server can decode", func() {
			streamId, err := conn.Request("GET", "/p?q=1", []transport.Header{{Name: "accept", Value: "text/html"}}, nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(streamId).ToNot(BeEmpty())

			var frame websocket.RequestFrame
			Eventually(eventServer.Inbound()).Should(Receive(WithTransform(func(raw []byte) websocket.RequestFrame {
				json.Unmarshal(raw, &frame)
				return frame
			}, Equal(websocket.RequestFrame{
				Type:    int(websocket.Request),
				Stream:  streamId,
				Method:  "GET",
				Path:    "/p?q=1",
				Headers: []transport.Header{{Name: "accept", Value: "text/html"}},
			}))))
		})

		It("sends chunk frames in order with the final flag on the last", func() {
			streamId, err := conn.Request("PUT", "/upload", nil, nil)
			Expect(err).ToNot(HaveOccurred())

			Expect(conn.SendChunk(streamId, []byte("part one"), false)).To(Succeed())
			Expect(conn.SendChunk(streamId, nil, true)).To(Succeed())

			// request frame first, then the two data frames
			Eventually(eventServer.Inbound()).Should(Receive())

			var first, last websocket.DataFrame
			var raw []byte
			Eventually(eventServer.Inbound()).Should(Receive(&raw))
			Expect(json.Unmarshal(raw, &first)).To(Succeed())
			Eventually(eventServer.Inbound()).Should(Receive(&raw))
			Expect(json.Unmarshal(raw, &last)).To(Succeed())

			Expect(first.Bytes).To(Equal([]byte("part one")))
			Expect(first.Final).To(BeFalse())
			Expect(last.Bytes).To(BeEmpty())
			Expect(last.Final).To(BeTrue())
		})

		It("fans incoming frames out as typed events", func() {
			streamId, _ := conn.Request("GET", "/", nil, nil)

			eventServer.SendResponse(streamId, false, 200, []transport.Header{{Name: "Content-Type", Value: "text/html"}})
			eventServer.SendData(streamId, []byte("body"), true)
			eventServer.SendError(streamId, "stream reset")

			// Skip the up event
			var event transport.Event
			Eventually(conn.Events()).Should(Receive(&event))
			Expect(event).To(BeAssignableToTypeOf(transport.UpEvent{}))

			Eventually(conn.Events()).Should(Receive(&event))
			response, ok := event.(transport.ResponseEvent)
			Expect(ok).To(BeTrue(), "expected a response event, got %T", event)
			Expect(response.StreamId).To(Equal(streamId))
			Expect(response.Status).To(Equal(200))
			Expect(response.Final).To(BeFalse())

			Eventually(conn.Events()).Should(Receive(&event))
			data, ok := event.(transport.DataEvent)
			Expect(ok).To(BeTrue(), "expected a data event, got %T", event)
			Expect(data.Bytes).To(Equal([]byte("body")))
			Expect(data.Final).To(BeTrue())

			Eventually(conn.Events()).Should(Receive(&event))
			errorEvent, ok := event.(transport.ErrorEvent)
			Expect(ok).To(BeTrue(), "expected an error event, got %T", event)
			Expect(errorEvent.Reason).To(MatchError("stream reset"))
		})

		It("counts traffic in both directions", func() {
			streamId, _ := conn.Request("GET", "/", nil, nil)
			eventServer.SendResponse(streamId, true, 204, nil)

			Eventually(func() int {
				return conn.Stats().BytesInbound
			}).Should(BeNumerically(">", 0))
			Expect(conn.Stats().BytesOutbound).To(BeNumerically(">", 0))
			Expect(conn.Stats().FramesOutbound).To(Equal(1))
		})
	})

	Context("Shutdown", func() {
		BeforeEach(func() {
			eventServer = server.New(log)
			Expect(openServerConnection(transport.Options{})).To(Succeed())
			Expect(eventServer.WaitForClient(time.Second)).To(BeTrue())
		})

		AfterEach(func() {
			eventServer.Close()
		})

		When("It is closed from above", func() {
			It("closes in a reasonable time", func() {
				conn.Close(fmt.Errorf("felt like it"))

				Eventually(conn.Done()).WithTimeout(2 * time.Second).Should(BeClosed())
			})
		})

		When("The server drops the socket", func() {
			It("reports the connection as down and then dies", func() {
				eventServer.ForceClose()

				var event transport.Event
				Eventually(conn.Events()).Should(Receive(&event))
				Expect(event).To(BeAssignableToTypeOf(transport.UpEvent{}))

				Eventually(conn.Events()).Should(Receive(&event))
				Expect(event).To(BeAssignableToTypeOf(transport.DownEvent{}))

				Eventually(conn.Done()).WithTimeout(2 * time.Second).Should(BeClosed())
			})
		})

		When("Sending after death", func() {
			It("refuses with an error", func() {
				conn.Close(fmt.Errorf("closing first"))

				_, err := conn.Request("GET", "/", nil, nil)
				Expect(err).To(HaveOccurred())
			})
		})
	})
})
