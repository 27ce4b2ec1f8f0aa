package transport

import (
	"context"
	"sync"
	"time"
)

// DefaultQueueLimit is the default number of frames a Queue holds before it
// starts dropping the oldest.
const DefaultQueueLimit = 4096

// Queue buffers received frames between transport goroutines and Pump.
// It is safe for concurrent use.
type Queue struct {
	mu      sync.Mutex
	frames  []Frame
	limit   int
	dropped uint64
	closed  bool

	notify chan struct{}
	done   chan struct{}
}

// NewQueue creates a queue holding at most limit frames.
// A limit <= 0 selects DefaultQueueLimit.
func NewQueue(limit int) *Queue {
	if limit <= 0 {
		limit = DefaultQueueLimit
	}
	return &Queue{
		limit:  limit,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Push appends a frame. When the queue is full the oldest frame is dropped.
// It returns false if the queue is closed.
func (q *Queue) Push(f Frame) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	if len(q.frames) >= q.limit {
		q.frames = q.frames[1:]
		q.dropped++
	}
	q.frames = append(q.frames, f)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return true
}

// Drain removes and returns all queued frames, waiting as described for
// Adapter.Pump. Frames queued before Close are still returned; after that
// Drain returns ErrClosed.
func (q *Queue) Drain(ctx context.Context, timeout time.Duration) ([]Frame, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	for {
		q.mu.Lock()
		if len(q.frames) > 0 {
			out := q.frames
			q.frames = nil
			q.mu.Unlock()
			return out, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return nil, ErrClosed
		}
		if timeout == 0 {
			return nil, nil
		}

		select {
		case <-q.notify:
		case <-q.done:
		case <-expired:
			return nil, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Len returns the number of queued frames.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}

// Dropped returns how many frames were discarded because the queue was full.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Close stops accepting frames and wakes waiting Drain calls.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}
