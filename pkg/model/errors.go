package model

import (
	"errors"
	"fmt"
)

// Tree errors.
var (
	ErrLoad            = errors.New("catalog load failed")
	ErrNotFound        = errors.New("signal not found")
	ErrTypeMismatch    = errors.New("value type does not match signal type")
	ErrUnsupportedType = errors.New("signal type holds no value")
	ErrOutOfRange      = errors.New("value out of range")
	ErrNotInEnum       = errors.New("value not in allowed set")
	ErrStaleHandle     = errors.New("signal handle is stale")
	ErrForeignHandle   = errors.New("signal handle belongs to another tree")
	ErrUnknownType     = errors.New("unknown type")
)

// Load causes, reported inside a LoadError.
var (
	ErrDuplicatePath = errors.New("duplicate path")
	ErrDuplicateID   = errors.New("duplicate signal id")
	ErrLeafParent    = errors.New("parent is not a branch")
	ErrInvalidPath   = errors.New("invalid path")
)

// LoadError describes the catalog entry that made a load fail.
// It matches both ErrLoad and its cause with errors.Is.
type LoadError struct {
	// Line is the source line of the entry, or 0 if unknown.
	Line int
	// Path is the signal path of the entry.
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	switch {
	case e.Line > 0 && e.Path != "":
		return fmt.Sprintf("load line %d (%s): %v", e.Line, e.Path, e.Err)
	case e.Line > 0:
		return fmt.Sprintf("load line %d: %v", e.Line, e.Err)
	case e.Path != "":
		return fmt.Sprintf("load %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("load: %v", e.Err)
}

func (e *LoadError) Unwrap() []error {
	return []error{ErrLoad, e.Err}
}
