package model

import (
	"math"
	"strconv"
)

// Value is a tagged signal value. It holds exactly one of the scalar variants
// or nothing. The zero Value holds nothing.
//
// Values are comparable with ==.
type Value struct {
	typ     DataType
	defined bool
	bits    uint64
	str     string
}

// NoValue returns the explicit "no value" Value.
func NoValue() Value { return Value{} }

// Int8Value returns a DataTypeInt8 value.
func Int8Value(v int8) Value { return Value{typ: DataTypeInt8, defined: true, bits: uint64(int64(v))} }

// Uint8Value returns a DataTypeUint8 value.
func Uint8Value(v uint8) Value { return Value{typ: DataTypeUint8, defined: true, bits: uint64(v)} }

// Int16Value returns a DataTypeInt16 value.
func Int16Value(v int16) Value { return Value{typ: DataTypeInt16, defined: true, bits: uint64(int64(v))} }

// Uint16Value returns a DataTypeUint16 value.
func Uint16Value(v uint16) Value { return Value{typ: DataTypeUint16, defined: true, bits: uint64(v)} }

// Int32Value returns a DataTypeInt32 value.
func Int32Value(v int32) Value { return Value{typ: DataTypeInt32, defined: true, bits: uint64(int64(v))} }

// Uint32Value returns a DataTypeUint32 value.
func Uint32Value(v uint32) Value { return Value{typ: DataTypeUint32, defined: true, bits: uint64(v)} }

// DoubleValue returns a DataTypeDouble value.
func DoubleValue(v float64) Value {
	return Value{typ: DataTypeDouble, defined: true, bits: math.Float64bits(v)}
}

// FloatValue returns a DataTypeFloat value.
func FloatValue(v float32) Value {
	return Value{typ: DataTypeFloat, defined: true, bits: uint64(math.Float32bits(v))}
}

// BoolValue returns a DataTypeBoolean value.
func BoolValue(v bool) Value {
	var b uint64
	if v {
		b = 1
	}
	return Value{typ: DataTypeBoolean, defined: true, bits: b}
}

// StringValue returns a DataTypeString value.
func StringValue(v string) Value {
	return Value{typ: DataTypeString, defined: true, str: v}
}

// IsDefined reports whether the value holds a variant.
func (v Value) IsDefined() bool { return v.defined }

// Type returns the variant tag, or DataTypeNA for "no value".
func (v Value) Type() DataType {
	if !v.defined {
		return DataTypeNA
	}
	return v.typ
}

func (v Value) is(t DataType) bool { return v.defined && v.typ == t }

// Int8 returns the int8 held by a DataTypeInt8 value.
func (v Value) Int8() (int8, bool) { return int8(int64(v.bits)), v.is(DataTypeInt8) }

// Uint8 returns the uint8 held by a DataTypeUint8 value.
func (v Value) Uint8() (uint8, bool) { return uint8(v.bits), v.is(DataTypeUint8) }

// Int16 returns the int16 held by a DataTypeInt16 value.
func (v Value) Int16() (int16, bool) { return int16(int64(v.bits)), v.is(DataTypeInt16) }

// Uint16 returns the uint16 held by a DataTypeUint16 value.
func (v Value) Uint16() (uint16, bool) { return uint16(v.bits), v.is(DataTypeUint16) }

// Int32 returns the int32 held by a DataTypeInt32 value.
func (v Value) Int32() (int32, bool) { return int32(int64(v.bits)), v.is(DataTypeInt32) }

// Uint32 returns the uint32 held by a DataTypeUint32 value.
func (v Value) Uint32() (uint32, bool) { return uint32(v.bits), v.is(DataTypeUint32) }

// Double returns the float64 held by a DataTypeDouble value.
func (v Value) Double() (float64, bool) {
	if !v.is(DataTypeDouble) {
		return 0, false
	}
	return math.Float64frombits(v.bits), true
}

// Float returns the float32 held by a DataTypeFloat value.
func (v Value) Float() (float32, bool) {
	if !v.is(DataTypeFloat) {
		return 0, false
	}
	return math.Float32frombits(uint32(v.bits)), true
}

// Bool returns the bool held by a DataTypeBoolean value.
func (v Value) Bool() (bool, bool) {
	return v.bits == 1, v.is(DataTypeBoolean)
}

// Text returns the string held by a DataTypeString value.
func (v Value) Text() (string, bool) {
	if !v.is(DataTypeString) {
		return "", false
	}
	return v.str, true
}

// Any returns the held variant as its Go type, or nil for "no value".
func (v Value) Any() any {
	if !v.defined {
		return nil
	}
	switch v.typ {
	case DataTypeInt8:
		x, _ := v.Int8()
		return x
	case DataTypeUint8:
		x, _ := v.Uint8()
		return x
	case DataTypeInt16:
		x, _ := v.Int16()
		return x
	case DataTypeUint16:
		x, _ := v.Uint16()
		return x
	case DataTypeInt32:
		x, _ := v.Int32()
		return x
	case DataTypeUint32:
		x, _ := v.Uint32()
		return x
	case DataTypeDouble:
		x, _ := v.Double()
		return x
	case DataTypeFloat:
		x, _ := v.Float()
		return x
	case DataTypeBoolean:
		x, _ := v.Bool()
		return x
	case DataTypeString:
		return v.str
	}
	return nil
}

// number returns numeric variants as float64 for range checks.
func (v Value) number() (float64, bool) {
	if !v.defined {
		return 0, false
	}
	switch v.typ {
	case DataTypeInt8, DataTypeInt16, DataTypeInt32:
		return float64(int64(v.bits)), true
	case DataTypeUint8, DataTypeUint16, DataTypeUint32:
		return float64(v.bits), true
	case DataTypeDouble:
		return math.Float64frombits(v.bits), true
	case DataTypeFloat:
		return float64(math.Float32frombits(uint32(v.bits))), true
	}
	return 0, false
}

// String formats the value the way the catalog writes literals.
// "No value" formats as "n/a".
func (v Value) String() string {
	if !v.defined {
		return "n/a"
	}
	switch v.typ {
	case DataTypeInt8, DataTypeInt16, DataTypeInt32:
		return strconv.FormatInt(int64(v.bits), 10)
	case DataTypeUint8, DataTypeUint16, DataTypeUint32:
		return strconv.FormatUint(v.bits, 10)
	case DataTypeDouble:
		return strconv.FormatFloat(math.Float64frombits(v.bits), 'g', -1, 64)
	case DataTypeFloat:
		return strconv.FormatFloat(float64(math.Float32frombits(uint32(v.bits))), 'g', -1, 32)
	case DataTypeBoolean:
		return strconv.FormatBool(v.bits == 1)
	case DataTypeString:
		return v.str
	}
	return "n/a"
}
