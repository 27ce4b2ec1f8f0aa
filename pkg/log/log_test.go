package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type captureLogger struct {
	mu     sync.Mutex
	events []Event
}

func (c *captureLogger) Log(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func updateEvent(ts time.Time, peer, path string) Event {
	id := uint32(7)
	typ := uint8(8)
	return Event{
		Timestamp: ts,
		Peer:      peer,
		Direction: DirectionIn,
		Layer:     LayerWire,
		Category:  CategoryMessage,
		Message: &MessageEvent{
			Kind:     1,
			Seq:      3,
			SignalID: &id,
			Path:     path,
			Type:     &typ,
			Value:    "true",
		},
	}
}

func TestEventEncoding(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)
	in := updateEvent(ts, "peer-1", "Vehicle.Cabin.Door.IsOpen")

	data, err := EncodeEvent(in)
	if err != nil {
		t.Fatalf("EncodeEvent() error = %v", err)
	}
	out, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent() error = %v", err)
	}
	if !out.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v (nanoseconds kept)", out.Timestamp, ts)
	}
	if out.Message == nil || out.Message.Path != in.Message.Path || *out.Message.SignalID != 7 {
		t.Errorf("Message = %+v, want %+v", out.Message, in.Message)
	}
}

func TestEmit(t *testing.T) {
	Emit(nil, Event{})

	c := &captureLogger{}
	Emit(c, Event{Layer: LayerContext})
	if len(c.events) != 1 {
		t.Fatalf("events = %d, want 1", len(c.events))
	}
	if c.events[0].Timestamp.IsZero() {
		t.Error("Emit() did not stamp the timestamp")
	}
}

func TestMultiLogger(t *testing.T) {
	a, b := &captureLogger{}, &captureLogger{}
	m := NewMultiLogger(a, nil, b)
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
	m.Log(Event{Category: CategoryError})
	if len(a.events) != 1 || len(b.events) != 1 {
		t.Errorf("events = %d/%d, want 1/1", len(a.events), len(b.events))
	}
}

func TestFileLoggerAndReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.vlog")
	fl, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}

	base := time.Now()
	fl.Log(updateEvent(base, "p1", "Vehicle.Speed"))
	fl.Log(updateEvent(base.Add(time.Second), "p2", "Vehicle.Cabin.Door.IsOpen"))
	fl.Log(Event{
		Timestamp:   base.Add(2 * time.Second),
		Peer:        "p2",
		Layer:       LayerContext,
		Category:    CategoryState,
		StateChange: &StateChangeEvent{Entity: StateEntityPeer, NewState: "GONE"},
	})
	if fl.Written() != 3 {
		t.Errorf("Written() = %d, want 3", fl.Written())
	}
	if err := fl.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := fl.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	fl.Log(Event{})

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	defer r.Close()
	n := 0
	for _, err := range r.All() {
		if err != nil {
			t.Fatalf("All() error = %v", err)
		}
		n++
	}
	if n != 3 {
		t.Errorf("read %d events, want 3", n)
	}

	state := CategoryState
	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"peer", Filter{Peer: "p2"}, 2},
		{"category", Filter{Category: &state}, 1},
		{"path prefix", Filter{PathPrefix: "Vehicle.Cabin"}, 1},
		{"time window", Filter{TimeStart: ptr(base.Add(500 * time.Millisecond)), TimeEnd: ptr(base.Add(1500 * time.Millisecond))}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fr, err := NewFilteredReader(path, tt.filter)
			if err != nil {
				t.Fatalf("NewFilteredReader() error = %v", err)
			}
			defer fr.Close()
			got := 0
			for {
				_, err := fr.Next()
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					t.Fatalf("Next() error = %v", err)
				}
				got++
			}
			if got != tt.want {
				t.Errorf("matched %d events, want %d", got, tt.want)
			}
		})
	}
}

func ptr[T any](v T) *T { return &v }

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	slogger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	NewSlogAdapter(slogger).Log(updateEvent(time.Now(), "peer-9", "Vehicle.Speed"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	if entry["msg"] != "protocol" {
		t.Errorf("msg = %v, want protocol", entry["msg"])
	}
	if entry["peer"] != "peer-9" {
		t.Errorf("peer = %v, want peer-9", entry["peer"])
	}
	if entry["path"] != "Vehicle.Speed" {
		t.Errorf("path = %v, want Vehicle.Speed", entry["path"])
	}
	if entry["layer"] != "WIRE" {
		t.Errorf("layer = %v, want WIRE", entry["layer"])
	}
}

func TestSlogAdapterSkipsBelowDebug(t *testing.T) {
	var buf bytes.Buffer
	slogger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	NewSlogAdapter(slogger).Log(Event{Frame: &FrameEvent{Size: 10}})
	if buf.Len() != 0 {
		t.Errorf("output at info level = %q, want none", buf.String())
	}
}
