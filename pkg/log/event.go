package log

import (
	"time"
)

// Event is a protocol event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// Peer is the remote peer token, or the connection ID for events that
	// happen before a peer is known.
	Peer string `cbor:"2,keyasint,omitempty"`

	Direction Direction `cbor:"3,keyasint"`
	Layer     Layer     `cbor:"4,keyasint"`
	Category  Category  `cbor:"5,keyasint"`

	// LocalID is the transport token of the capturing node.
	LocalID string `cbor:"6,keyasint,omitempty"`

	// RemoteAddr is the peer address (IP:port) when the transport has one.
	RemoteAddr string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	Message     *MessageEvent     `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"`
}

// Direction indicates message flow.
type Direction uint8

const (
	DirectionIn  Direction = 0
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerTransport is the framing layer (raw bytes).
	LayerTransport Layer = 0
	// LayerWire is the message layer (decoded CBOR).
	LayerWire Layer = 1
	// LayerContext is the signal context (tree, registry, processor).
	LayerContext Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerContext:
		return "CONTEXT"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event.
type Category uint8

const (
	// CategoryMessage is a signal update.
	CategoryMessage Category = 0
	// CategoryControl is an interest exchange (subscribe, unsubscribe, hello).
	CategoryControl Category = 1
	// CategoryState is a state change.
	CategoryState Category = 2
	// CategoryError is an error.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryControl:
		return "CONTROL"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw frame data at the transport layer.
type FrameEvent struct {
	// Size is the frame size in bytes (including any length prefix).
	Size int `cbor:"1,keyasint"`

	// Data is the raw frame bytes (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// MessageEvent captures a decoded message.
type MessageEvent struct {
	// Kind is the wire message kind.
	Kind uint8 `cbor:"1,keyasint"`

	Seq uint32 `cbor:"2,keyasint,omitempty"`

	// For updates: the signal and its value in literal form.
	SignalID *uint32 `cbor:"3,keyasint,omitempty"`
	Path     string  `cbor:"4,keyasint,omitempty"`
	Type     *uint8  `cbor:"5,keyasint,omitempty"`
	Value    string  `cbor:"6,keyasint,omitempty"`

	// For interest messages: the paths.
	Paths []string `cbor:"7,keyasint,omitempty"`
}

// StateChangeEvent captures peer and processor lifecycle events.
type StateChangeEvent struct {
	Entity   StateEntity `cbor:"1,keyasint"`
	OldState string      `cbor:"2,keyasint,omitempty"`
	NewState string      `cbor:"3,keyasint"`
	Reason   string      `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what changed state.
type StateEntity uint8

const (
	StateEntityPeer      StateEntity = 0
	StateEntityProcessor StateEntity = 1
	StateEntityCatalog   StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityPeer:
		return "PEER"
	case StateEntityProcessor:
		return "PROCESSOR"
	case StateEntityCatalog:
		return "CATALOG"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	Layer   Layer  `cbor:"1,keyasint"`
	Message string `cbor:"2,keyasint"`

	// Context describes the operation that failed.
	Context string `cbor:"4,keyasint,omitempty"`
}
