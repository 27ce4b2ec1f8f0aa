package model

import (
	"fmt"
	"strings"
)

// DataType is the type tag of a signal. The numeric values are the wire values.
type DataType uint8

const (
	DataTypeInt8    DataType = 0
	DataTypeUint8   DataType = 1
	DataTypeInt16   DataType = 2
	DataTypeUint16  DataType = 3
	DataTypeInt32   DataType = 4
	DataTypeUint32  DataType = 5
	DataTypeDouble  DataType = 6
	DataTypeFloat   DataType = 7
	DataTypeBoolean DataType = 8
	DataTypeString  DataType = 9
	DataTypeStream  DataType = 10
	DataTypeNA      DataType = 11
)

var dataTypeNames = [...]string{
	"int8", "uint8", "int16", "uint16", "int32", "uint32",
	"double", "float", "boolean", "string", "stream", "na",
}

// String returns the catalog name of the data type.
func (d DataType) String() string {
	if int(d) < len(dataTypeNames) {
		return dataTypeNames[d]
	}
	return fmt.Sprintf("DataType(%d)", uint8(d))
}

// Valid reports whether d is one of the defined tags.
func (d DataType) Valid() bool {
	return d <= DataTypeNA
}

// HoldsValue reports whether signals of this type store a value.
func (d DataType) HoldsValue() bool {
	return d <= DataTypeString
}

// IsNumeric reports whether the type is an integer or floating point type.
func (d DataType) IsNumeric() bool {
	return d <= DataTypeFloat
}

// ParseDataType converts a catalog type name. Matching is case-insensitive;
// "na" and "unknown" both map to DataTypeNA.
func ParseDataType(name string) (DataType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "unknown" {
		return DataTypeNA, nil
	}
	for i, n := range dataTypeNames {
		if n == name {
			return DataType(i), nil
		}
	}
	return DataTypeNA, fmt.Errorf("%w: %q", ErrUnknownType, name)
}

// ElementType is the catalog element kind of a node.
type ElementType uint8

const (
	// ElementUnspecified is a leaf whose catalog row named no element kind.
	ElementUnspecified ElementType = iota
	ElementAttribute
	ElementBranch
	ElementSensor
	ElementActuator
	ElementRBranch
	ElementElement
)

var elementNames = [...]string{
	"", "attribute", "branch", "sensor", "actuator", "rbranch", "element",
}

// String returns the catalog name of the element type.
func (e ElementType) String() string {
	if e == ElementUnspecified {
		return "unspecified"
	}
	if int(e) < len(elementNames) {
		return elementNames[e]
	}
	return fmt.Sprintf("ElementType(%d)", uint8(e))
}

// IsBranch reports whether nodes of this kind group other nodes.
func (e ElementType) IsBranch() bool {
	return e == ElementBranch || e == ElementRBranch
}

// ParseElementType converts a catalog element name. The empty string maps to
// ElementUnspecified.
func ParseElementType(name string) (ElementType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ElementUnspecified, nil
	}
	for i := 1; i < len(elementNames); i++ {
		if elementNames[i] == name {
			return ElementType(i), nil
		}
	}
	return ElementUnspecified, fmt.Errorf("%w: element %q", ErrUnknownType, name)
}
