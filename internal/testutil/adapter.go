// Package testutil provides test doubles shared by package tests.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/PDXostc/vehicle-signal-distribution/pkg/transport"
	"github.com/PDXostc/vehicle-signal-distribution/pkg/wire"
)

// MockAdapter is a transport.Adapter driven by testify expectations.
type MockAdapter struct {
	mock.Mock

	mu   sync.Mutex
	sent []transport.Frame
}

var _ transport.Adapter = (*MockAdapter)(nil)

// NewMockAdapter returns a mock with id as its LocalID. Expectations are
// asserted when the test ends.
func NewMockAdapter(t interface {
	mock.TestingT
	Cleanup(func())
}, id string) *MockAdapter {
	m := &MockAdapter{}
	m.Mock.Test(t)
	m.On("LocalID").Return(id).Maybe()
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAdapter) LocalID() string { return m.Called().String(0) }

func (m *MockAdapter) Send(ctx context.Context, f transport.Frame) error {
	err := m.Called(ctx, f).Error(0)
	m.mu.Lock()
	m.sent = append(m.sent, f)
	m.mu.Unlock()
	return err
}

func (m *MockAdapter) Pump(ctx context.Context, timeout time.Duration) ([]transport.Frame, error) {
	ret := m.Called(ctx, timeout)
	var frames []transport.Frame
	if ret.Get(0) != nil {
		frames = ret.Get(0).([]transport.Frame)
	}
	return frames, ret.Error(1)
}

func (m *MockAdapter) Close() error { return m.Called().Error(0) }

// Sent decodes the payloads of every Send call made so far. It is safe to
// call while another goroutine is sending.
func (m *MockAdapter) Sent() []*wire.Message {
	m.mu.Lock()
	frames := append([]transport.Frame(nil), m.sent...)
	m.mu.Unlock()

	var out []*wire.Message
	for _, f := range frames {
		if msg, err := wire.DecodeMessage(f.Payload); err == nil {
			out = append(out, msg)
		}
	}
	return out
}

// DataFrame encodes msg as a frame received from peer.
func DataFrame(peer string, msg *wire.Message) transport.Frame {
	data, err := wire.EncodeMessage(msg)
	if err != nil {
		panic(err)
	}
	return transport.Frame{Kind: transport.FrameData, Peer: peer, Payload: data}
}
