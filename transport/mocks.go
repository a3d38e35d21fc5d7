package transport

import (
	"context"

	"github.com/RyanSiu1995/tesla/telemetry/throughputstats"
	"github.com/stretchr/testify/mock"
)

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Open(ctx context.Context, host string, port int, options Options) (Connection, error) {
	args := m.Called(host, port, options)
	if conn := args.Get(0); conn != nil {
		return conn.(Connection), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockConnection struct {
	mock.Mock
}

func (m *MockConnection) ID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConnection) Request(method string, pathAndQuery string, headers []Header, body []byte) (string, error) {
	args := m.Called(method, pathAndQuery, headers, body)
	return args.String(0), args.Error(1)
}

func (m *MockConnection) SendChunk(streamId string, data []byte, final bool) error {
	args := m.Called(streamId, data, final)
	return args.Error(0)
}

func (m *MockConnection) Events() <-chan Event {
	args := m.Called()
	return args.Get(0).(chan Event)
}

func (m *MockConnection) Done() <-chan struct{} {
	args := m.Called()
	return args.Get(0).(chan struct{})
}

func (m *MockConnection) Err() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockConnection) Close(reason error) {
	m.Called()
}

func (m *MockConnection) Stats() throughputstats.Digest {
	args := m.Called()
	return args.Get(0).(throughputstats.Digest)
}
