package model

import "fmt"

// Get returns the current value of s.
//
// Branches, stream and NA signals, and leaves that were never assigned all
// return NoValue with a nil error.
func (t *Tree) Get(s Signal) (Value, error) {
	n, err := t.resolve(s)
	if err != nil {
		return Value{}, err
	}
	if n.elem.IsBranch() {
		return NoValue(), nil
	}
	switch n.typ {
	case DataTypeInt8:
		return n.value, nil
	case DataTypeUint8:
		return n.value, nil
	case DataTypeInt16:
		return n.value, nil
	case DataTypeUint16:
		return n.value, nil
	case DataTypeInt32:
		return n.value, nil
	case DataTypeUint32:
		return n.value, nil
	case DataTypeDouble:
		return n.value, nil
	case DataTypeFloat:
		return n.value, nil
	case DataTypeBoolean:
		return n.value, nil
	case DataTypeString:
		return n.value, nil
	case DataTypeStream, DataTypeNA:
		return NoValue(), nil
	default:
		return Value{}, fmt.Errorf("%w: %s has tag %d", ErrUnknownType, n.path, uint8(n.typ))
	}
}

// Set stores v in s. The stored value is unchanged on error.
func (t *Tree) Set(s Signal, v Value) error {
	n, err := t.resolve(s)
	if err != nil {
		return err
	}
	if n.elem.IsBranch() {
		return fmt.Errorf("%w: %s is a branch", ErrUnsupportedType, n.path)
	}
	if err := n.accept(v); err != nil {
		return err
	}
	if err := n.admit(v); err != nil {
		return fmt.Errorf("%s: %w", n.path, err)
	}
	n.value = v
	return nil
}

// SetString converts text to the signal's type and stores it.
func (t *Tree) SetString(s Signal, text string) error {
	n, err := t.resolve(s)
	if err != nil {
		return err
	}
	if n.elem.IsBranch() {
		return fmt.Errorf("%w: %s is a branch", ErrUnsupportedType, n.path)
	}
	v, err := ParseValue(n.typ, text)
	if err != nil {
		return fmt.Errorf("%s: %w", n.path, err)
	}
	return t.Set(s, v)
}

// accept checks that v carries the variant of the node's type.
func (n *node) accept(v Value) error {
	switch n.typ {
	case DataTypeInt8:
		_, ok := v.Int8()
		return n.variant(ok, v)
	case DataTypeUint8:
		_, ok := v.Uint8()
		return n.variant(ok, v)
	case DataTypeInt16:
		_, ok := v.Int16()
		return n.variant(ok, v)
	case DataTypeUint16:
		_, ok := v.Uint16()
		return n.variant(ok, v)
	case DataTypeInt32:
		_, ok := v.Int32()
		return n.variant(ok, v)
	case DataTypeUint32:
		_, ok := v.Uint32()
		return n.variant(ok, v)
	case DataTypeDouble:
		_, ok := v.Double()
		return n.variant(ok, v)
	case DataTypeFloat:
		_, ok := v.Float()
		return n.variant(ok, v)
	case DataTypeBoolean:
		_, ok := v.Bool()
		return n.variant(ok, v)
	case DataTypeString:
		_, ok := v.Text()
		return n.variant(ok, v)
	case DataTypeStream, DataTypeNA:
		return fmt.Errorf("%w: %s is %s", ErrUnsupportedType, n.path, n.typ)
	default:
		return fmt.Errorf("%w: %s has tag %d", ErrUnknownType, n.path, uint8(n.typ))
	}
}

func (n *node) variant(ok bool, v Value) error {
	if ok {
		return nil
	}
	return fmt.Errorf("%w: %s is %s, got %s", ErrTypeMismatch, n.path, n.typ, v.Type())
}

// admit checks declared min/max and enumeration constraints.
func (n *node) admit(v Value) error {
	if x, ok := v.number(); ok {
		if lo, ok := n.min.number(); ok && x < lo {
			return fmt.Errorf("%w: %s < %s", ErrOutOfRange, v, n.min)
		}
		if hi, ok := n.max.number(); ok && x > hi {
			return fmt.Errorf("%w: %s > %s", ErrOutOfRange, v, n.max)
		}
	}
	if len(n.enum) == 0 {
		return nil
	}
	for _, allowed := range n.enum {
		if allowed == v {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotInEnum, v)
}
