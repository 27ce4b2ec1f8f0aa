package wire

import (
	"errors"
	"fmt"

	"github.com/PDXostc/vehicle-signal-distribution/pkg/model"
)

// Message validation errors.
var (
	ErrInvalidKind    = errors.New("invalid message kind")
	ErrMissingUpdate  = errors.New("update message without update")
	ErrMissingPaths   = errors.New("interest message without paths")
	ErrMissingAddress = errors.New("update without id or path")
)

// Kind is the message kind (key 1).
type Kind uint8

const (
	KindUpdate      Kind = 1
	KindSubscribe   Kind = 2
	KindUnsubscribe Kind = 3
	KindHello       Kind = 4
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindUpdate:
		return "UPDATE"
	case KindSubscribe:
		return "SUBSCRIBE"
	case KindUnsubscribe:
		return "UNSUBSCRIBE"
	case KindHello:
		return "HELLO"
	default:
		return fmt.Sprintf("KIND(%d)", uint8(k))
	}
}

// IsValid returns true if the kind is defined.
func (k Kind) IsValid() bool {
	return k >= KindUpdate && k <= KindHello
}

// Message is the envelope of every frame.
//
// CBOR encoding:
//
//	{
//	  1: kind,     // uint8
//	  2: seq,      // uint32, per-sender sequence number
//	  3: update,   // Update, for KindUpdate
//	  4: paths     // [string], for Subscribe/Unsubscribe/Hello
//	}
type Message struct {
	Kind   Kind     `cbor:"1,keyasint"`
	Seq    uint32   `cbor:"2,keyasint,omitempty"`
	Update *Update  `cbor:"3,keyasint,omitempty"`
	Paths  []string `cbor:"4,keyasint,omitempty"`
}

// Validate checks that the fields required by the kind are present.
func (m *Message) Validate() error {
	switch m.Kind {
	case KindUpdate:
		if m.Update == nil {
			return ErrMissingUpdate
		}
		return m.Update.Validate()
	case KindSubscribe, KindUnsubscribe:
		if len(m.Paths) == 0 {
			return ErrMissingPaths
		}
		return nil
	case KindHello:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrInvalidKind, uint8(m.Kind))
	}
}

// Update carries one signal value.
//
// CBOR encoding:
//
//	{
//	  1: id,      // uint32, absent if the signal has no id
//	  2: path,    // string
//	  3: type,    // uint8 data type tag
//	  4: value    // CBOR scalar, null for "no value"
//	}
type Update struct {
	ID    *uint32 `cbor:"1,keyasint,omitempty"`
	Path  string  `cbor:"2,keyasint,omitempty"`
	Type  uint8   `cbor:"3,keyasint"`
	Value any     `cbor:"4,keyasint"`
}

// NewUpdate builds an update for a signal value.
func NewUpdate(id uint32, hasID bool, path string, v model.Value) *Update {
	u := &Update{
		Path:  path,
		Type:  uint8(v.Type()),
		Value: v.Any(),
	}
	if hasID {
		u.ID = &id
	}
	return u
}

// Validate checks that the update is addressable and typed.
func (u *Update) Validate() error {
	if u.ID == nil && u.Path == "" {
		return ErrMissingAddress
	}
	if !model.DataType(u.Type).Valid() {
		return fmt.Errorf("%w: tag %d", model.ErrUnknownType, u.Type)
	}
	return nil
}

// DataType returns the update's type tag.
func (u *Update) DataType() model.DataType {
	return model.DataType(u.Type)
}

// Decode converts the carried scalar back to a model.Value.
// Stream and NA updates decode to NoValue.
func (u *Update) Decode() (model.Value, error) {
	t := u.DataType()
	if !t.HoldsValue() || u.Value == nil {
		if !t.Valid() {
			return model.Value{}, fmt.Errorf("%w: tag %d", model.ErrUnknownType, u.Type)
		}
		return model.NoValue(), nil
	}
	return model.FromAny(t, u.Value)
}
