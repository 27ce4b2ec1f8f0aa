package model

import (
	"errors"
	"math"
	"testing"
)

func TestSetGetRoundTrip(t *testing.T) {
	tests := []struct {
		typ   string
		value Value
	}{
		{"int8", Int8Value(-128)},
		{"uint8", Uint8Value(255)},
		{"int16", Int16Value(-32768)},
		{"uint16", Uint16Value(65535)},
		{"int32", Int32Value(math.MinInt32)},
		{"uint32", Uint32Value(math.MaxUint32)},
		{"double", DoubleValue(3.14159265358979)},
		{"float", FloatValue(2.5)},
		{"boolean", BoolValue(true)},
		{"string", StringValue("hello")},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			tree := NewTree()
			err := tree.Load([]Entry{{Path: "V.X", ID: 1, HasID: true, Element: "sensor", Type: tt.typ}})
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			sig, _ := tree.Lookup("V.X")

			if v, _ := tree.Get(sig); v.IsDefined() {
				t.Errorf("Get(unset) = %v, want no value", v)
			}
			if err := tree.Set(sig, tt.value); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			got, err := tree.Get(sig)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got != tt.value {
				t.Errorf("Get() = %v, want %v", got, tt.value)
			}
			if got.Type().String() != tt.typ {
				t.Errorf("Get().Type() = %v, want %s", got.Type(), tt.typ)
			}
		})
	}
}

func TestSetTypeMismatch(t *testing.T) {
	tree := loadSample(t)
	sig, _ := tree.Lookup("Vehicle.Speed")

	if err := tree.Set(sig, FloatValue(42)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := tree.Set(sig, Int32Value(7)); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Set(int32 on float) error = %v, want ErrTypeMismatch", err)
	}
	if err := tree.Set(sig, DoubleValue(7)); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Set(double on float) error = %v, want ErrTypeMismatch", err)
	}
	if err := tree.Set(sig, NoValue()); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Set(no value) error = %v, want ErrTypeMismatch", err)
	}

	v, _ := tree.Get(sig)
	if f, ok := v.Float(); !ok || f != 42 {
		t.Errorf("Get() after rejected sets = %v, want 42", v)
	}
}

func TestSetUnsupported(t *testing.T) {
	tree := loadSample(t)

	for _, path := range []string{"Vehicle", "Vehicle.Camera"} {
		sig, _ := tree.Lookup(path)
		if err := tree.Set(sig, StringValue("x")); !errors.Is(err, ErrUnsupportedType) {
			t.Errorf("Set(%s) error = %v, want ErrUnsupportedType", path, err)
		}
		v, err := tree.Get(sig)
		if err != nil || v.IsDefined() {
			t.Errorf("Get(%s) = %v, %v, want no value", path, v, err)
		}
		if v.Type() != DataTypeNA {
			t.Errorf("Get(%s).Type() = %v, want na", path, v.Type())
		}
	}
}

func TestSetConstraints(t *testing.T) {
	tree := loadSample(t)

	speed, _ := tree.Lookup("Vehicle.Speed")
	if err := tree.Set(speed, FloatValue(-1)); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Set(-1) error = %v, want ErrOutOfRange", err)
	}
	if err := tree.Set(speed, FloatValue(251)); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Set(251) error = %v, want ErrOutOfRange", err)
	}
	if err := tree.Set(speed, FloatValue(250)); err != nil {
		t.Errorf("Set(250) error = %v", err)
	}

	gear, _ := tree.Lookup("Vehicle.Gear")
	if err := tree.Set(gear, StringValue("X")); !errors.Is(err, ErrNotInEnum) {
		t.Errorf("Set(X) error = %v, want ErrNotInEnum", err)
	}
	if err := tree.Set(gear, StringValue("D")); err != nil {
		t.Errorf("Set(D) error = %v", err)
	}
}

func TestSetString(t *testing.T) {
	tree := loadSample(t)

	pos, _ := tree.Lookup("Vehicle.Cabin.Door.Position")
	if err := tree.SetString(pos, " 42 "); err != nil {
		t.Fatalf("SetString() error = %v", err)
	}
	v, _ := tree.Get(pos)
	if n, ok := v.Uint8(); !ok || n != 42 {
		t.Errorf("Get() = %v, want 42", v)
	}
	if err := tree.SetString(pos, "abc"); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("SetString(abc) error = %v, want ErrTypeMismatch", err)
	}
	if err := tree.SetString(pos, "101"); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("SetString(101) error = %v, want ErrOutOfRange", err)
	}

	open, _ := tree.Lookup("Vehicle.Cabin.Door.IsOpen")
	for text, want := range map[string]bool{"1": true, "t": true, "T": true, "0": false, "false": false} {
		if err := tree.SetString(open, text); err != nil {
			t.Fatalf("SetString(%q) error = %v", text, err)
		}
		v, _ := tree.Get(open)
		if b, _ := v.Bool(); b != want {
			t.Errorf("SetString(%q) stored %v, want %v", text, b, want)
		}
	}
}

func TestFromAny(t *testing.T) {
	tests := []struct {
		name    string
		typ     DataType
		in      any
		want    Value
		wantErr error
	}{
		{"int8 from int64", DataTypeInt8, int64(-5), Int8Value(-5), nil},
		{"int8 overflow", DataTypeInt8, int64(200), Value{}, ErrTypeMismatch},
		{"uint16 from uint64", DataTypeUint16, uint64(300), Uint16Value(300), nil},
		{"uint32 negative", DataTypeUint32, int64(-1), Value{}, ErrTypeMismatch},
		{"double from int", DataTypeDouble, 3, DoubleValue(3), nil},
		{"float from float64", DataTypeFloat, 1.5, FloatValue(1.5), nil},
		{"bool", DataTypeBoolean, true, BoolValue(true), nil},
		{"bool from int", DataTypeBoolean, 1, Value{}, ErrTypeMismatch},
		{"string", DataTypeString, "x", StringValue("x"), nil},
		{"stream", DataTypeStream, "x", Value{}, ErrUnsupportedType},
		{"bad tag", DataType(42), 1, Value{}, ErrUnknownType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAny(tt.typ, tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("FromAny() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("FromAny() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("FromAny() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValueAccessors(t *testing.T) {
	v := Int16Value(-3)
	if _, ok := v.Int8(); ok {
		t.Error("Int16Value.Int8() ok = true")
	}
	if n, ok := v.Int16(); !ok || n != -3 {
		t.Errorf("Int16() = %d, %v", n, ok)
	}
	if v.Any() != int16(-3) {
		t.Errorf("Any() = %#v, want int16(-3)", v.Any())
	}
	if NoValue().Any() != nil {
		t.Error("NoValue().Any() != nil")
	}
	if NoValue().String() != "n/a" {
		t.Errorf("NoValue().String() = %q", NoValue().String())
	}
	if FloatValue(0.1).String() != "0.1" {
		t.Errorf("FloatValue(0.1).String() = %q", FloatValue(0.1).String())
	}
	if (Value{}) != NoValue() {
		t.Error("zero Value != NoValue()")
	}
}

func TestIntegerAccessors(t *testing.T) {
	tests := []struct {
		value Value
		typ   DataType
		get   func(Value) (any, bool)
		want  any
	}{
		{Int8Value(-8), DataTypeInt8, func(v Value) (any, bool) { return v.Int8() }, int8(-8)},
		{Uint8Value(8), DataTypeUint8, func(v Value) (any, bool) { return v.Uint8() }, uint8(8)},
		{Int16Value(-16), DataTypeInt16, func(v Value) (any, bool) { return v.Int16() }, int16(-16)},
		{Uint16Value(16), DataTypeUint16, func(v Value) (any, bool) { return v.Uint16() }, uint16(16)},
		{Int32Value(-32), DataTypeInt32, func(v Value) (any, bool) { return v.Int32() }, int32(-32)},
		{Uint32Value(32), DataTypeUint32, func(v Value) (any, bool) { return v.Uint32() }, uint32(32)},
	}

	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			if tt.value.Type() != tt.typ {
				t.Errorf("Type() = %v, want %v", tt.value.Type(), tt.typ)
			}
			got, ok := tt.get(tt.value)
			if !ok || got != tt.want {
				t.Errorf("accessor = %v, %v, want %v, true", got, ok, tt.want)
			}
			if _, ok := tt.get(NoValue()); ok {
				t.Error("accessor on NoValue() ok = true")
			}
		})
	}
}
