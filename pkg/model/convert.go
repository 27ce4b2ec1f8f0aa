package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseValue converts a literal to a Value of type t.
//
// Booleans accept the strconv.ParseBool spellings, so "1", "t" and "T" are
// true. Stream and NA signals have no literal form and return
// ErrUnsupportedType; unparsable text returns ErrTypeMismatch.
func ParseValue(t DataType, text string) (Value, error) {
	if t != DataTypeString {
		text = strings.TrimSpace(text)
	}
	switch t {
	case DataTypeInt8:
		n, err := strconv.ParseInt(text, 10, 8)
		return literal(Int8Value(int8(n)), t, text, err)
	case DataTypeUint8:
		n, err := strconv.ParseUint(text, 10, 8)
		return literal(Uint8Value(uint8(n)), t, text, err)
	case DataTypeInt16:
		n, err := strconv.ParseInt(text, 10, 16)
		return literal(Int16Value(int16(n)), t, text, err)
	case DataTypeUint16:
		n, err := strconv.ParseUint(text, 10, 16)
		return literal(Uint16Value(uint16(n)), t, text, err)
	case DataTypeInt32:
		n, err := strconv.ParseInt(text, 10, 32)
		return literal(Int32Value(int32(n)), t, text, err)
	case DataTypeUint32:
		n, err := strconv.ParseUint(text, 10, 32)
		return literal(Uint32Value(uint32(n)), t, text, err)
	case DataTypeDouble:
		f, err := strconv.ParseFloat(text, 64)
		return literal(DoubleValue(f), t, text, err)
	case DataTypeFloat:
		f, err := strconv.ParseFloat(text, 32)
		return literal(FloatValue(float32(f)), t, text, err)
	case DataTypeBoolean:
		b, err := strconv.ParseBool(text)
		return literal(BoolValue(b), t, text, err)
	case DataTypeString:
		return StringValue(text), nil
	case DataTypeStream, DataTypeNA:
		return Value{}, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	default:
		return Value{}, fmt.Errorf("%w: %d", ErrUnknownType, uint8(t))
	}
}

func literal(v Value, t DataType, text string, err error) (Value, error) {
	if err != nil {
		return Value{}, fmt.Errorf("%w: %q is not a valid %s", ErrTypeMismatch, text, t)
	}
	return v, nil
}

// FromAny converts a decoded CBOR or YAML scalar to a Value of type t.
// Integers must fit the target width; floats are accepted for double and
// float signals only.
func FromAny(t DataType, v any) (Value, error) {
	switch t {
	case DataTypeInt8, DataTypeInt16, DataTypeInt32:
		n, ok := toInt64(v)
		if !ok {
			return Value{}, anyErr(t, v)
		}
		return signedValue(t, n)
	case DataTypeUint8, DataTypeUint16, DataTypeUint32:
		n, ok := toInt64(v)
		if !ok || n < 0 {
			return Value{}, anyErr(t, v)
		}
		return unsignedValue(t, uint64(n))
	case DataTypeDouble:
		f, ok := toFloat64(v)
		if !ok {
			return Value{}, anyErr(t, v)
		}
		return DoubleValue(f), nil
	case DataTypeFloat:
		f, ok := toFloat64(v)
		if !ok {
			return Value{}, anyErr(t, v)
		}
		return FloatValue(float32(f)), nil
	case DataTypeBoolean:
		b, ok := v.(bool)
		if !ok {
			return Value{}, anyErr(t, v)
		}
		return BoolValue(b), nil
	case DataTypeString:
		s, ok := v.(string)
		if !ok {
			return Value{}, anyErr(t, v)
		}
		return StringValue(s), nil
	case DataTypeStream, DataTypeNA:
		return Value{}, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	default:
		return Value{}, fmt.Errorf("%w: %d", ErrUnknownType, uint8(t))
	}
}

func anyErr(t DataType, v any) error {
	return fmt.Errorf("%w: %T(%v) is not a valid %s", ErrTypeMismatch, v, v, t)
}

func signedValue(t DataType, n int64) (Value, error) {
	switch {
	case t == DataTypeInt8 && n >= math.MinInt8 && n <= math.MaxInt8:
		return Int8Value(int8(n)), nil
	case t == DataTypeInt16 && n >= math.MinInt16 && n <= math.MaxInt16:
		return Int16Value(int16(n)), nil
	case t == DataTypeInt32 && n >= math.MinInt32 && n <= math.MaxInt32:
		return Int32Value(int32(n)), nil
	}
	return Value{}, fmt.Errorf("%w: %d overflows %s", ErrTypeMismatch, n, t)
}

func unsignedValue(t DataType, n uint64) (Value, error) {
	switch {
	case t == DataTypeUint8 && n <= math.MaxUint8:
		return Uint8Value(uint8(n)), nil
	case t == DataTypeUint16 && n <= math.MaxUint16:
		return Uint16Value(uint16(n)), nil
	case t == DataTypeUint32 && n <= math.MaxUint32:
		return Uint32Value(uint32(n)), nil
	}
	return Value{}, fmt.Errorf("%w: %d overflows %s", ErrTypeMismatch, n, t)
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return int64(x), uint64(x) <= math.MaxInt64
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return int64(x), uint64(x) <= math.MaxInt64
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	}
	if n, ok := toInt64(v); ok {
		return float64(n), true
	}
	return 0, false
}
