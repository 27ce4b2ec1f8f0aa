package model

import (
	"errors"
	"testing"
)

func sampleEntries() []Entry {
	return []Entry{
		{Path: "Vehicle", ID: 1, HasID: true, Element: "branch", Description: "root", Line: 1},
		{Path: "Vehicle.Speed", ID: 2, HasID: true, Element: "sensor", Type: "float", Unit: "km/h", Min: "0", Max: "250", Line: 2},
		{Path: "Vehicle.Cabin.Door.IsOpen", ID: 3, HasID: true, Element: "actuator", Type: "boolean", Default: "T", Line: 3},
		{Path: "Vehicle.Cabin.Door.Position", ID: 4, HasID: true, Element: "actuator", Type: "uint8", Max: "100", Line: 4},
		{Path: "Vehicle.Gear", ID: 5, HasID: true, Element: "sensor", Type: "string", Enum: []string{"P", "R", "N", "D"}, Default: "P", Line: 5},
		{Path: "Vehicle.Camera", ID: 6, HasID: true, Element: "sensor", Type: "stream", Line: 6},
		{Path: "Vehicle.Cabin", ID: 7, HasID: true, Element: "branch", Description: "cabin", Line: 7},
	}
}

func loadSample(t *testing.T) *Tree {
	t.Helper()
	tree := NewTree()
	if err := tree.Load(sampleEntries()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return tree
}

func TestDataTypeParse(t *testing.T) {
	tests := []struct {
		name string
		want DataType
	}{
		{"int8", DataTypeInt8},
		{"UINT8", DataTypeUint8},
		{"Int16", DataTypeInt16},
		{"uint16", DataTypeUint16},
		{"int32", DataTypeInt32},
		{"uint32", DataTypeUint32},
		{"double", DataTypeDouble},
		{"float", DataTypeFloat},
		{"Boolean", DataTypeBoolean},
		{"string", DataTypeString},
		{"stream", DataTypeStream},
		{"na", DataTypeNA},
		{"unknown", DataTypeNA},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDataType(tt.name)
			if err != nil {
				t.Fatalf("ParseDataType(%q) error = %v", tt.name, err)
			}
			if got != tt.want {
				t.Errorf("ParseDataType(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}

	if _, err := ParseDataType("int64"); !errors.Is(err, ErrUnknownType) {
		t.Errorf("ParseDataType(int64) error = %v, want ErrUnknownType", err)
	}
}

func TestDataTypeWireValues(t *testing.T) {
	if DataTypeInt8 != 0 || DataTypeDouble != 6 || DataTypeBoolean != 8 || DataTypeNA != 11 {
		t.Error("data type tags moved")
	}
	if DataType(12).Valid() {
		t.Error("DataType(12).Valid() = true, want false")
	}
}

func TestLookup(t *testing.T) {
	tree := loadSample(t)

	if _, err := tree.Lookup("Vehicle.Nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Lookup(missing) error = %v, want ErrNotFound", err)
	}

	sig, err := tree.Lookup("Vehicle.Cabin.Door.IsOpen")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	v, err := tree.Get(sig)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if b, ok := v.Bool(); !ok || !b {
		t.Errorf("Get() = %v, want true from catalog default", v)
	}

	byID, err := tree.LookupID(3)
	if err != nil {
		t.Fatalf("LookupID() error = %v", err)
	}
	if byID != sig {
		t.Errorf("LookupID(3) = %v, want %v", byID, sig)
	}
	if _, err := tree.LookupID(99); !errors.Is(err, ErrNotFound) {
		t.Errorf("LookupID(99) error = %v, want ErrNotFound", err)
	}
}

func TestImplicitBranchAdoption(t *testing.T) {
	tree := loadSample(t)

	cabin, err := tree.Lookup("Vehicle.Cabin")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	info, err := tree.Info(cabin)
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	if info.Implicit || !info.HasID || info.ID != 7 || info.Description != "cabin" {
		t.Errorf("Info(Vehicle.Cabin) = %+v, want adopted id 7", info)
	}

	door, _ := tree.Lookup("Vehicle.Cabin.Door")
	info, _ = tree.Info(door)
	if !info.Implicit || info.HasID {
		t.Errorf("Info(Vehicle.Cabin.Door) = %+v, want implicit branch", info)
	}
	if info.Type != DataTypeNA {
		t.Errorf("branch Type = %v, want na", info.Type)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
		cause   error
	}{
		{
			name: "duplicate path",
			entries: []Entry{
				{Path: "A.B", Type: "int8", Element: "sensor"},
				{Path: "A.B", Type: "int8", Element: "sensor", Line: 2},
			},
			cause: ErrDuplicatePath,
		},
		{
			name: "duplicate id",
			entries: []Entry{
				{Path: "A.B", ID: 1, HasID: true, Type: "int8", Element: "sensor"},
				{Path: "A.C", ID: 1, HasID: true, Type: "int8", Element: "sensor"},
			},
			cause: ErrDuplicateID,
		},
		{
			name: "leaf under leaf",
			entries: []Entry{
				{Path: "A.B", Type: "int8", Element: "sensor"},
				{Path: "A.B.C", Type: "int8", Element: "sensor"},
			},
			cause: ErrLeafParent,
		},
		{
			name:    "unknown type",
			entries: []Entry{{Path: "A.B", Type: "int128", Element: "sensor"}},
			cause:   ErrUnknownType,
		},
		{
			name:    "bad default",
			entries: []Entry{{Path: "A.B", Type: "uint8", Element: "sensor", Default: "300"}},
			cause:   ErrTypeMismatch,
		},
		{
			name:    "default out of range",
			entries: []Entry{{Path: "A.B", Type: "int8", Element: "sensor", Max: "10", Default: "11"}},
			cause:   ErrOutOfRange,
		},
		{
			name:    "empty segment",
			entries: []Entry{{Path: "A..B", Type: "int8", Element: "sensor"}},
			cause:   ErrInvalidPath,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := loadSample(t)
			before := tree.Len()

			err := tree.Load(tt.entries)
			if !errors.Is(err, ErrLoad) {
				t.Fatalf("Load() error = %v, want ErrLoad", err)
			}
			if !errors.Is(err, tt.cause) {
				t.Errorf("Load() error = %v, want cause %v", err, tt.cause)
			}
			var le *LoadError
			if !errors.As(err, &le) {
				t.Fatalf("Load() error is %T, want *LoadError", err)
			}
			if tree.Len() != before {
				t.Errorf("Len() after failed load = %d, want %d", tree.Len(), before)
			}
			if !tree.Exists("Vehicle.Speed") {
				t.Error("previous tree lost after failed load")
			}
		})
	}
}

func TestStaleAndForeignHandles(t *testing.T) {
	tree := loadSample(t)
	sig, _ := tree.Lookup("Vehicle.Speed")

	other := loadSample(t)
	if _, err := other.Get(sig); !errors.Is(err, ErrForeignHandle) {
		t.Errorf("Get(foreign) error = %v, want ErrForeignHandle", err)
	}
	if _, err := tree.Get(Signal{}); !errors.Is(err, ErrForeignHandle) {
		t.Errorf("Get(zero) error = %v, want ErrForeignHandle", err)
	}

	if err := tree.Load(sampleEntries()); err != nil {
		t.Fatalf("reload error = %v", err)
	}
	if _, err := tree.Get(sig); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("Get(after reload) error = %v, want ErrStaleHandle", err)
	}

	fresh, _ := tree.Lookup("Vehicle.Speed")
	tree.Close()
	if err := tree.Set(fresh, FloatValue(1)); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("Set(after close) error = %v, want ErrStaleHandle", err)
	}
}

func TestWalkOrder(t *testing.T) {
	tree := loadSample(t)
	root, _ := tree.Lookup("Vehicle")

	var got []string
	err := tree.Walk(root, func(s Signal) error {
		p, _ := tree.Path(s)
		got = append(got, p)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	want := []string{
		"Vehicle",
		"Vehicle.Speed",
		"Vehicle.Cabin",
		"Vehicle.Cabin.Door",
		"Vehicle.Cabin.Door.IsOpen",
		"Vehicle.Cabin.Door.Position",
		"Vehicle.Gear",
		"Vehicle.Camera",
	}
	if len(got) != len(want) {
		t.Fatalf("Walk() visited %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Walk()[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	leaves, _ := tree.Leaves(root)
	if len(leaves) != 5 {
		t.Errorf("Leaves() = %d, want 5", len(leaves))
	}

	parent, ok, err := tree.Parent(leaves[0])
	if err != nil || !ok || parent != root {
		t.Errorf("Parent(Vehicle.Speed) = %v, %v, %v", parent, ok, err)
	}
	if _, ok, _ := tree.Parent(root); ok {
		t.Error("Parent(root) ok = true, want false")
	}
}
