// Package model implements the vehicle signal tree.
//
// # Signal Hierarchy
//
// Signals form a tree addressed by dotted paths:
//
//	Vehicle                      (branch)
//	├── Vehicle.Speed            (sensor, float)
//	├── Vehicle.Cabin            (branch)
//	│   └── Vehicle.Cabin.Door   (branch)
//	│       └── Vehicle.Cabin.Door.IsOpen (actuator, boolean)
//	└── ...
//
// Branches group signals and carry no value. Every other element is a leaf
// with a fixed DataType and at most one current Value.
//
// # Data Types
//
// DataType is a closed set whose numeric values are part of the wire format:
//
//	int8=0 uint8=1 int16=2 uint16=3 int32=4 uint32=5
//	double=6 float=7 boolean=8 string=9 stream=10 na=11
//
// Stream and NA leaves exist in the tree but hold no value.
//
// # Handles
//
// A Tree hands out Signal handles instead of pointers. A handle remembers the
// tree it came from and the tree generation; Load and Close start a new
// generation, so handles resolved before a reload fail with ErrStaleHandle.
//
// # Dispatch
//
// Get and Set switch over the node's DataType with one case per tag. Set
// rejects values whose variant does not match the node (ErrTypeMismatch),
// values outside the declared min/max (ErrOutOfRange) and values that are
// not part of a declared enumeration (ErrNotInEnum). A rejected Set leaves
// the stored value unchanged.
//
// A Tree is not safe for concurrent use. pkg/vsd guards it with the context
// mutex.
package model
