package transport

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Bus is an in-process hub connecting Endpoints. Every endpoint sees every
// other endpoint as a peer. It is used for tests and single-process setups.
type Bus struct {
	mu         sync.Mutex
	endpoints  map[string]*Endpoint
	order      []string
	queueLimit int
}

// NewBus creates an empty bus. queueLimit bounds each endpoint's receive
// queue; <= 0 selects DefaultQueueLimit.
func NewBus(queueLimit int) *Bus {
	return &Bus{
		endpoints:  make(map[string]*Endpoint),
		queueLimit: queueLimit,
	}
}

// Endpoint attaches a new endpoint with the given id, or a random one if id
// is empty. Existing endpoints receive a FramePeerJoined for it.
func (b *Bus) Endpoint(id string) (*Endpoint, error) {
	if id == "" {
		id = uuid.NewString()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.endpoints[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	ep := &Endpoint{bus: b, id: id, queue: NewQueue(b.queueLimit)}
	for _, other := range b.order {
		b.endpoints[other].queue.Push(Frame{Kind: FramePeerJoined, Peer: id})
	}
	b.endpoints[id] = ep
	b.order = append(b.order, id)
	return ep, nil
}

// Peers returns the ids of attached endpoints in attach order.
func (b *Bus) Peers() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.order)
}

func (b *Bus) detach(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.endpoints[id]; !ok {
		return
	}
	delete(b.endpoints, id)
	b.order = slices.DeleteFunc(b.order, func(s string) bool { return s == id })
	for _, other := range b.order {
		b.endpoints[other].queue.Push(Frame{Kind: FramePeerGone, Peer: id})
	}
}

func (b *Bus) deliver(from string, f Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.endpoints[from]; !ok {
		return ErrClosed
	}
	payload := slices.Clone(f.Payload)

	if f.Peer == Broadcast {
		for _, id := range b.order {
			if id == from {
				continue
			}
			b.endpoints[id].queue.Push(Frame{Kind: FrameData, Peer: from, Payload: payload})
		}
		return nil
	}

	dst, ok := b.endpoints[f.Peer]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPeer, f.Peer)
	}
	dst.queue.Push(Frame{Kind: FrameData, Peer: from, Payload: payload})
	return nil
}

// Endpoint is one participant on a Bus.
type Endpoint struct {
	bus   *Bus
	id    string
	queue *Queue
}

var _ Adapter = (*Endpoint)(nil)

// LocalID returns the endpoint id.
func (e *Endpoint) LocalID() string { return e.id }

// Send delivers f to f.Peer, or to every other endpoint for Broadcast.
func (e *Endpoint) Send(ctx context.Context, f Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.bus.deliver(e.id, f)
}

// Pump drains the endpoint's receive queue.
func (e *Endpoint) Pump(ctx context.Context, timeout time.Duration) ([]Frame, error) {
	return e.queue.Drain(ctx, timeout)
}

// Dropped returns the number of frames lost to queue overflow.
func (e *Endpoint) Dropped() uint64 { return e.queue.Dropped() }

// Close detaches the endpoint. Remaining endpoints receive FramePeerGone.
func (e *Endpoint) Close() error {
	e.bus.detach(e.id)
	e.queue.Close()
	return nil
}
