package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/PDXostc/vehicle-signal-distribution/pkg/transport"
	"github.com/PDXostc/vehicle-signal-distribution/pkg/wire"
)

func TestSentWhileSending(t *testing.T) {
	m := NewMockAdapter(t, "self")
	m.On("Send", mock.Anything, mock.Anything).Return(nil)

	frame := DataFrame("", &wire.Message{Kind: wire.KindSubscribe, Paths: []string{"Vehicle"}})
	frame.Peer = transport.Broadcast

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for range 50 {
			require.NoError(t, m.Send(context.Background(), frame))
		}
	}()
	go func() {
		defer wg.Done()
		for range 50 {
			_ = m.Sent()
		}
	}()
	wg.Wait()

	sent := m.Sent()
	assert.Len(t, sent, 50)
	assert.Equal(t, wire.KindSubscribe, sent[0].Kind)
}
