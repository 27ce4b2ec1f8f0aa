package transport

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestQueuePollReturnsImmediately(t *testing.T) {
	q := NewQueue(0)
	frames, err := q.Drain(context.Background(), 0)
	if err != nil || len(frames) != 0 {
		t.Fatalf("Drain(0) = %v, %v, want nothing", frames, err)
	}

	q.Push(Frame{Peer: "a", Payload: []byte{1}})
	q.Push(Frame{Peer: "b", Payload: []byte{2}})
	frames, err = q.Drain(context.Background(), 0)
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if len(frames) != 2 || frames[0].Peer != "a" || frames[1].Peer != "b" {
		t.Errorf("Drain() = %+v, want a then b", frames)
	}
	if q.Len() != 0 {
		t.Errorf("Len() = %d after drain, want 0", q.Len())
	}
}

func TestQueueTimeoutExpires(t *testing.T) {
	q := NewQueue(0)
	start := time.Now()
	frames, err := q.Drain(context.Background(), 20*time.Millisecond)
	if err != nil || frames != nil {
		t.Fatalf("Drain() = %v, %v, want nil, nil", frames, err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("Drain() returned before the timeout")
	}
}

func TestQueueWakesOnPush(t *testing.T) {
	q := NewQueue(0)
	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Push(Frame{Peer: "x"})
	}()
	frames, err := q.Drain(context.Background(), -1)
	if err != nil || len(frames) != 1 {
		t.Fatalf("Drain(-1) = %v, %v, want one frame", frames, err)
	}
}

func TestQueueDropsOldest(t *testing.T) {
	q := NewQueue(2)
	q.Push(Frame{Peer: "1"})
	q.Push(Frame{Peer: "2"})
	q.Push(Frame{Peer: "3"})

	if q.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", q.Dropped())
	}
	frames, _ := q.Drain(context.Background(), 0)
	if len(frames) != 2 || frames[0].Peer != "2" {
		t.Errorf("Drain() = %+v, want 2 and 3", frames)
	}
}

func TestQueueClose(t *testing.T) {
	q := NewQueue(0)
	q.Push(Frame{Peer: "late"})

	done := make(chan error, 1)
	empty := NewQueue(0)
	go func() {
		_, err := empty.Drain(context.Background(), -1)
		done <- err
	}()
	empty.Close()
	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("blocked Drain() error = %v, want ErrClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Close() did not wake Drain()")
	}

	q.Close()
	q.Close()
	if q.Push(Frame{}) {
		t.Error("Push() after Close() = true")
	}
	frames, err := q.Drain(context.Background(), 0)
	if err != nil || len(frames) != 1 {
		t.Errorf("Drain() after Close() = %v, %v, want the queued frame", frames, err)
	}
	if _, err := q.Drain(context.Background(), 0); !errors.Is(err, ErrClosed) {
		t.Errorf("second Drain() error = %v, want ErrClosed", err)
	}
}

func TestQueueContextCancel(t *testing.T) {
	q := NewQueue(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := q.Drain(ctx, -1); !errors.Is(err, context.Canceled) {
		t.Errorf("Drain() error = %v, want context.Canceled", err)
	}
}

func TestBackoff(t *testing.T) {
	b := NewBackoff(BackoffConfig{Initial: 10 * time.Millisecond, Max: 40 * time.Millisecond, Jitter: 0})
	want := []time.Duration{10, 20, 40, 40}
	for i, w := range want {
		if got := b.Next(); got != w*time.Millisecond {
			t.Errorf("Next() #%d = %v, want %v", i, got, w*time.Millisecond)
		}
	}
	if b.Attempts() != 4 {
		t.Errorf("Attempts() = %d, want 4", b.Attempts())
	}
	b.Reset()
	if b.Current() != 10*time.Millisecond || b.Attempts() != 0 {
		t.Errorf("after Reset() current = %v attempts = %d", b.Current(), b.Attempts())
	}

	j := NewBackoff(BackoffConfig{Initial: 100 * time.Millisecond, Jitter: 0.5})
	if d := j.Next(); d < 100*time.Millisecond || d > 150*time.Millisecond {
		t.Errorf("jittered Next() = %v, want within [100ms, 150ms]", d)
	}
}
