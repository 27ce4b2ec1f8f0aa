package wire

import (
	"errors"
	"fmt"
)

// ErrMissingSource is returned for datagrams without a sender.
var ErrMissingSource = errors.New("datagram without source")

// Datagram wraps a message for broker transports, where the channel carries
// no sender identity.
//
// CBOR encoding:
//
//	{
//	  1: source,   // string, sender token
//	  2: target,   // string, empty for broadcast
//	  3: payload,  // bytes, encoded Message
//	  4: presence  // uint, join/leave announcements without payload
//	}
type Datagram struct {
	Source   string   `cbor:"1,keyasint"`
	Target   string   `cbor:"2,keyasint,omitempty"`
	Payload  []byte   `cbor:"3,keyasint,omitempty"`
	Presence Presence `cbor:"4,keyasint,omitempty"`
}

// Presence marks datagrams that announce a sender rather than carry data.
type Presence uint8

const (
	PresenceNone Presence = iota
	// PresenceJoin announces a sender. Receivers that did not know it answer
	// with an addressed PresenceJoin of their own.
	PresenceJoin
	// PresenceLeave announces a sender going away.
	PresenceLeave
)

// String returns the presence name.
func (p Presence) String() string {
	switch p {
	case PresenceNone:
		return "NONE"
	case PresenceJoin:
		return "JOIN"
	case PresenceLeave:
		return "LEAVE"
	default:
		return "UNKNOWN"
	}
}

// EncodeDatagram encodes a datagram.
func EncodeDatagram(d *Datagram) ([]byte, error) {
	if d.Source == "" {
		return nil, ErrMissingSource
	}
	return Marshal(d)
}

// DecodeDatagram decodes a datagram.
func DecodeDatagram(data []byte) (*Datagram, error) {
	var d Datagram
	if err := Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to decode datagram: %w", err)
	}
	if d.Source == "" {
		return nil, ErrMissingSource
	}
	return &d, nil
}
