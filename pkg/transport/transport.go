package transport

import (
	"context"
	"errors"
	"time"
)

// Transport errors.
var (
	ErrClosed      = errors.New("transport closed")
	ErrUnknownPeer = errors.New("unknown peer")
	ErrDuplicateID = errors.New("duplicate endpoint id")
)

// Broadcast is the destination token that addresses every peer.
const Broadcast = ""

// FrameKind distinguishes data frames from peer notifications.
type FrameKind uint8

const (
	// FrameData carries a payload.
	FrameData FrameKind = iota
	// FramePeerJoined reports a newly reachable peer. No payload.
	FramePeerJoined
	// FramePeerGone reports a peer that is no longer reachable. No payload.
	FramePeerGone
)

// String returns the frame kind name.
func (k FrameKind) String() string {
	switch k {
	case FrameData:
		return "DATA"
	case FramePeerJoined:
		return "PEER_JOINED"
	case FramePeerGone:
		return "PEER_GONE"
	default:
		return "UNKNOWN"
	}
}

// Frame is a unit of transport traffic.
//
// When sending, Peer is the destination (Broadcast for all peers). When
// received, Peer is the source.
type Frame struct {
	Kind    FrameKind
	Peer    string
	Payload []byte
}

// Adapter is the contract between the event processor and a transport.
type Adapter interface {
	// LocalID returns this endpoint's peer token.
	LocalID() string

	// Send delivers a data frame. Sending to an unknown peer returns
	// ErrUnknownPeer; broadcasting with no peers is not an error.
	Send(ctx context.Context, f Frame) error

	// Pump returns received frames in arrival order.
	//
	// With timeout 0 it polls once. With timeout > 0 it waits up to timeout
	// for at least one frame and returns no frames and a nil error if none
	// arrived. With timeout < 0 it waits until a frame arrives, ctx is done
	// or the adapter is closed.
	Pump(ctx context.Context, timeout time.Duration) ([]Frame, error)

	// Close releases the adapter and wakes blocked Pump calls.
	Close() error
}
