package logview

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/PDXostc/vehicle-signal-distribution/pkg/log"
)

// Stats holds aggregate numbers for a capture file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Peers             map[string]*PeerStats
	Errors            int

	Start time.Time
	End   time.Time
}

// PeerStats holds the numbers for one peer token.
type PeerStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	Updates   int
	Joins     int
}

// Collect reads every event of the capture at path.
func Collect(path string) (*Stats, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Peers:             make(map[string]*PeerStats),
	}
	for event, err := range reader.All() {
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}
	return stats, nil
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++
	s.EventsByDirection[event.Direction]++
	if event.Error != nil {
		s.Errors++
	}

	if s.Start.IsZero() || event.Timestamp.Before(s.Start) {
		s.Start = event.Timestamp
	}
	if event.Timestamp.After(s.End) {
		s.End = event.Timestamp
	}

	if event.Peer == "" {
		return
	}
	ps, ok := s.Peers[event.Peer]
	if !ok {
		ps = &PeerStats{FirstSeen: event.Timestamp, LastSeen: event.Timestamp}
		s.Peers[event.Peer] = ps
	}
	ps.Events++
	if event.Timestamp.After(ps.LastSeen) {
		ps.LastSeen = event.Timestamp
	}
	if event.Category == log.CategoryMessage && event.Message != nil {
		ps.Updates++
	}
	if sc := event.StateChange; sc != nil && sc.Entity == log.StateEntityPeer && sc.NewState == "JOINED" {
		ps.Joins++
	}
}

// RunStats prints the statistics of the capture at path.
func RunStats(path string, w io.Writer) error {
	stats, err := Collect(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, s *Stats) {
	fmt.Fprintln(w, "=== Signal Distribution Log Statistics ===")
	fmt.Fprintln(w)

	if s.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n", s.Start.Format(time.RFC3339), s.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", s.End.Sub(s.Start).Round(time.Millisecond))
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "Total Events: %d\n", s.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, l := range []log.Layer{log.LayerTransport, log.LayerWire, log.LayerContext} {
		if n := s.EventsByLayer[l]; n > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", l.String()+":", n)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, c := range []log.Category{log.CategoryMessage, log.CategoryControl, log.CategoryState, log.CategoryError} {
		if n := s.EventsByCategory[c]; n > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", c.String()+":", n)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, d := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if n := s.EventsByDirection[d]; n > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", d.String()+":", n)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Peers: %d\n", len(s.Peers))
	ids := make([]string, 0, len(s.Peers))
	for id := range s.Peers {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		return s.Peers[a].FirstSeen.Compare(s.Peers[b].FirstSeen)
	})
	for _, id := range ids {
		ps := s.Peers[id]
		fmt.Fprintf(w, "  [%s] %d events, %d updates, %d joins, duration %s\n",
			peerLabel(id), ps.Events, ps.Updates, ps.Joins, ps.LastSeen.Sub(ps.FirstSeen).Round(time.Millisecond))
	}

	if s.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", s.Errors)
	}
}
