package transport

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/PDXostc/vehicle-signal-distribution/pkg/log"
)

type captureLogger struct {
	mu     sync.Mutex
	events []log.Event
}

func (c *captureLogger) Log(e log.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *captureLogger) all() []log.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]log.Event(nil), c.events...)
}

func TestFrameWriterReader(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{"single byte", []byte{0x42}},
		{"update sized", bytes.Repeat([]byte("u"), 40)},
		{"max size", bytes.Repeat([]byte("y"), DefaultMaxMessageSize)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := new(bytes.Buffer)
			if err := NewFrameWriter(buf).WriteFrame(tt.payload); err != nil {
				t.Fatalf("WriteFrame() error = %v", err)
			}
			if buf.Len() != FrameSize(len(tt.payload)) {
				t.Errorf("frame size = %d, want %d", buf.Len(), FrameSize(len(tt.payload)))
			}
			got, err := NewFrameReader(buf).ReadFrame()
			if err != nil {
				t.Fatalf("ReadFrame() error = %v", err)
			}
			if !bytes.Equal(got, tt.payload) {
				t.Errorf("payload mismatch: got %d bytes, want %d", len(got), len(tt.payload))
			}
		})
	}
}

func TestFrameLimits(t *testing.T) {
	w := NewFrameWriterWithMaxSize(io.Discard, 8)
	if err := w.WriteFrame(nil); !errors.Is(err, ErrMessageEmpty) {
		t.Errorf("WriteFrame(nil) error = %v, want ErrMessageEmpty", err)
	}
	if err := w.WriteFrame(make([]byte, 9)); !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("WriteFrame(9 bytes) error = %v, want ErrMessageTooLarge", err)
	}

	var prefix [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(prefix[:], 100)
	r := NewFrameReaderWithMaxSize(bytes.NewReader(append(prefix[:], make([]byte, 100)...)), 8)
	if _, err := r.ReadFrame(); !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("ReadFrame(oversized) error = %v, want ErrMessageTooLarge", err)
	}

	binary.BigEndian.PutUint32(prefix[:], 0)
	if _, err := NewFrameReader(bytes.NewReader(prefix[:])).ReadFrame(); !errors.Is(err, ErrMessageEmpty) {
		t.Errorf("ReadFrame(zero length) error = %v, want ErrMessageEmpty", err)
	}
}

func TestFrameReaderTruncation(t *testing.T) {
	if _, err := NewFrameReader(bytes.NewReader([]byte{0, 0})).ReadFrame(); !errors.Is(err, ErrFrameTruncated) {
		t.Errorf("short prefix error = %v, want ErrFrameTruncated", err)
	}

	var prefix [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(prefix[:], 10)
	if _, err := NewFrameReader(bytes.NewReader(append(prefix[:], 1, 2, 3))).ReadFrame(); !errors.Is(err, ErrFrameTruncated) {
		t.Errorf("short payload error = %v, want ErrFrameTruncated", err)
	}

	if _, err := NewFrameReader(bytes.NewReader(nil)).ReadFrame(); err != io.EOF {
		t.Errorf("empty stream error = %v, want io.EOF", err)
	}
}

func TestFramerCapturesFrames(t *testing.T) {
	buf := new(bytes.Buffer)
	capture := &captureLogger{}
	f := NewFramer(buf)
	f.SetLogger(capture, "node-b")

	if err := f.WriteFrame([]byte("abc")); err != nil {
		t.Fatalf("WriteFrame() error = %v", err)
	}
	if _, err := f.ReadFrame(); err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}

	events := capture.all()
	if len(events) != 2 {
		t.Fatalf("captured %d events, want 2", len(events))
	}
	if events[0].Direction != log.DirectionOut || events[1].Direction != log.DirectionIn {
		t.Errorf("directions = %v, %v, want OUT, IN", events[0].Direction, events[1].Direction)
	}
	for _, e := range events {
		if e.Peer != "node-b" || e.Layer != log.LayerTransport || e.Frame == nil {
			t.Errorf("event = %+v, want transport frame for node-b", e)
		}
		if e.Frame != nil && e.Frame.Size != FrameSize(3) {
			t.Errorf("Frame.Size = %d, want %d", e.Frame.Size, FrameSize(3))
		}
	}
}

func TestFrameCaptureTruncatesLargeFrames(t *testing.T) {
	capture := &captureLogger{}
	w := NewFrameWriter(io.Discard)
	w.SetLogger(capture, "p")

	if err := w.WriteFrame(make([]byte, MaxLogFrameDataSize+10)); err != nil {
		t.Fatalf("WriteFrame() error = %v", err)
	}
	ev := capture.all()[0].Frame
	if !ev.Truncated || len(ev.Data) != MaxLogFrameDataSize {
		t.Errorf("Frame = truncated %v with %d bytes, want truncated with %d", ev.Truncated, len(ev.Data), MaxLogFrameDataSize)
	}
}
