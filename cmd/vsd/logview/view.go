// Package logview implements the vsd log subcommands over protocol
// capture files.
package logview

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PDXostc/vehicle-signal-distribution/pkg/log"
	"github.com/PDXostc/vehicle-signal-distribution/pkg/model"
	"github.com/PDXostc/vehicle-signal-distribution/pkg/wire"
)

const timeFormat = "2006-01-02T15:04:05.000000Z"

// Options are the filter flags shared by view, export and filter.
type Options struct {
	Peer       string
	Layer      string
	Direction  string
	Category   string
	PathPrefix string
	TimeStart  string
	TimeEnd    string
}

// Filter converts the flag values into a log.Filter.
func (o Options) Filter() (log.Filter, error) {
	f := log.Filter{Peer: o.Peer, PathPrefix: o.PathPrefix}
	if o.Layer != "" {
		l, err := ParseLayer(o.Layer)
		if err != nil {
			return f, err
		}
		f.Layer = &l
	}
	if o.Direction != "" {
		d, err := ParseDirection(o.Direction)
		if err != nil {
			return f, err
		}
		f.Direction = &d
	}
	if o.Category != "" {
		c, err := ParseCategory(o.Category)
		if err != nil {
			return f, err
		}
		f.Category = &c
	}
	if o.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, o.TimeStart)
		if err != nil {
			return f, fmt.Errorf("invalid time-start: %w", err)
		}
		f.TimeStart = &t
	}
	if o.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, o.TimeEnd)
		if err != nil {
			return f, fmt.Errorf("invalid time-end: %w", err)
		}
		f.TimeEnd = &t
	}
	return f, nil
}

// RunView prints the matching events of the capture at path.
func RunView(path string, opts Options, w io.Writer) error {
	filter, err := opts.Filter()
	if err != nil {
		return err
	}
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for event, err := range reader.All() {
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(w, event)
	}
	return nil
}

// formatEvent writes one event as a header line plus indented details.
func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format(timeFormat)
	layer := event.Layer.String()
	if event.Category == log.CategoryControl {
		layer = "CTRL"
	}
	fmt.Fprintf(w, "%s [%s] %-3s %s %s\n", ts, peerLabel(event.Peer), event.Direction, layer, eventLabel(event))

	switch {
	case event.Frame != nil:
		formatFrame(w, event.Frame)
	case event.Message != nil:
		formatMessage(w, event.Message)
	case event.StateChange != nil:
		formatStateChange(w, event.StateChange)
	case event.Error != nil:
		formatError(w, event.Error)
	}
	fmt.Fprintln(w)
}

func eventLabel(event log.Event) string {
	switch {
	case event.Frame != nil:
		return "Frame"
	case event.Message != nil:
		return wire.Kind(event.Message.Kind).String()
	case event.StateChange != nil:
		return "State"
	case event.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

// peerLabel shortens UUID tokens to their first 8 characters.
func peerLabel(peer string) string {
	switch {
	case peer == "":
		return "*"
	case len(peer) == 36 && strings.Count(peer, "-") == 4:
		return peer[:8]
	default:
		return peer
	}
}

func formatFrame(w io.Writer, frame *log.FrameEvent) {
	fmt.Fprintf(w, "  Size: %d bytes\n", frame.Size)
	if len(frame.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s", hex.EncodeToString(frame.Data))
		if frame.Truncated {
			fmt.Fprint(w, " (truncated)")
		}
		fmt.Fprintln(w)
	}
}

func formatMessage(w io.Writer, msg *log.MessageEvent) {
	if msg.Seq != 0 {
		fmt.Fprintf(w, "  Seq: %d\n", msg.Seq)
	}
	if msg.Path != "" {
		fmt.Fprintf(w, "  Signal: %s", msg.Path)
		if msg.SignalID != nil {
			fmt.Fprintf(w, " (id %d)", *msg.SignalID)
		}
		fmt.Fprintln(w)
	}
	if msg.Type != nil {
		fmt.Fprintf(w, "  Value: %s %s\n", model.DataType(*msg.Type), msg.Value)
	}
	for _, p := range msg.Paths {
		fmt.Fprintf(w, "  Path: %s\n", p)
	}
}

func formatStateChange(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity)
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatError(w io.Writer, e *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", e.Layer)
	fmt.Fprintf(w, "  Message: %s\n", e.Message)
	if e.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", e.Context)
	}
}

// ErrInvalidFlag is returned for an unknown layer, direction or category.
var ErrInvalidFlag = errors.New("invalid flag value")

// ParseLayer parses a layer name, ignoring case.
func ParseLayer(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return log.LayerTransport, nil
	case "wire":
		return log.LayerWire, nil
	case "context":
		return log.LayerContext, nil
	default:
		return 0, fmt.Errorf("%w: layer %q (must be transport, wire or context)", ErrInvalidFlag, s)
	}
}

// ParseDirection parses "in" or "out", ignoring case.
func ParseDirection(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("%w: direction %q (must be in or out)", ErrInvalidFlag, s)
	}
}

// ParseCategory parses a category name, ignoring case.
func ParseCategory(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "message":
		return log.CategoryMessage, nil
	case "control":
		return log.CategoryControl, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("%w: category %q (must be message, control, state or error)", ErrInvalidFlag, s)
	}
}
