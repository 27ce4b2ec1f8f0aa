package transport

import (
	"context"
	"sync"
	"time"

	"github.com/PDXostc/vehicle-signal-distribution/pkg/wire"
)

// Mailbox turns broker datagrams into Frames for adapters whose channels
// carry no sender identity. Peers are learned from presence announcements
// and from the first datagram they send.
type Mailbox struct {
	id    string
	queue *Queue

	mu    sync.Mutex
	peers map[string]struct{}
}

// NewMailbox creates a mailbox for the endpoint id.
func NewMailbox(id string, queueLimit int) *Mailbox {
	return &Mailbox{
		id:    id,
		queue: NewQueue(queueLimit),
		peers: make(map[string]struct{}),
	}
}

// LocalID returns the endpoint id.
func (m *Mailbox) LocalID() string { return m.id }

// Seal wraps a payload for target (Broadcast for all).
func (m *Mailbox) Seal(target string, payload []byte) ([]byte, error) {
	return wire.EncodeDatagram(&wire.Datagram{Source: m.id, Target: target, Payload: payload})
}

// Announce builds a presence datagram for target.
func (m *Mailbox) Announce(target string, p wire.Presence) ([]byte, error) {
	return wire.EncodeDatagram(&wire.Datagram{Source: m.id, Target: target, Presence: p})
}

// Known reports whether peer has been seen and not left.
func (m *Mailbox) Known(peer string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.peers[peer]
	return ok
}

// Deliver processes one received datagram. When the sender announced itself
// to everyone, answer names the peer that should get an addressed
// PresenceJoin back.
func (m *Mailbox) Deliver(data []byte) (answer string, err error) {
	d, err := wire.DecodeDatagram(data)
	if err != nil {
		return "", err
	}
	if d.Source == m.id || (d.Target != Broadcast && d.Target != m.id) {
		return "", nil
	}

	m.mu.Lock()
	_, known := m.peers[d.Source]
	switch d.Presence {
	case wire.PresenceLeave:
		delete(m.peers, d.Source)
	default:
		m.peers[d.Source] = struct{}{}
	}
	m.mu.Unlock()

	switch d.Presence {
	case wire.PresenceJoin:
		if known && d.Target == Broadcast {
			// Restarted peer: forget what it knew about us.
			m.queue.Push(Frame{Kind: FramePeerGone, Peer: d.Source})
			known = false
		}
		if !known {
			m.queue.Push(Frame{Kind: FramePeerJoined, Peer: d.Source})
		}
		if d.Target == Broadcast {
			answer = d.Source
		}
	case wire.PresenceLeave:
		if known {
			m.queue.Push(Frame{Kind: FramePeerGone, Peer: d.Source})
		}
	default:
		if !known {
			m.queue.Push(Frame{Kind: FramePeerJoined, Peer: d.Source})
		}
		if len(d.Payload) > 0 {
			m.queue.Push(Frame{Kind: FrameData, Peer: d.Source, Payload: d.Payload})
		}
	}
	return answer, nil
}

// Pump drains received frames.
func (m *Mailbox) Pump(ctx context.Context, timeout time.Duration) ([]Frame, error) {
	return m.queue.Drain(ctx, timeout)
}

// Dropped returns the number of frames lost to queue overflow.
func (m *Mailbox) Dropped() uint64 { return m.queue.Dropped() }

// Close wakes blocked Pump calls.
func (m *Mailbox) Close() { m.queue.Close() }
