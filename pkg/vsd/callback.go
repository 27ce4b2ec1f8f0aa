package vsd

import (
	"fmt"

	"github.com/PDXostc/vehicle-signal-distribution/pkg/model"
)

// Update is what a callback receives for each applied inbound value.
type Update struct {
	// ID is the local numeric id of the signal; valid when HasID is set.
	ID    uint32
	HasID bool

	Path  string
	Value model.Value

	// Peer is the transport token of the sender.
	Peer string
}

// Callback handles an applied update. A returned error is reported by
// ProcessEvents as a *CallbackError; it does not stop delivery.
type Callback func(Update) error

// CallbackError reports a callback that failed or panicked.
// It matches ErrCallback with errors.Is.
type CallbackError struct {
	Path string
	Peer string
	Err  error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("callback for %s from %s: %v", e.Path, e.Peer, e.Err)
}

func (e *CallbackError) Unwrap() []error {
	return []error{ErrCallback, e.Err}
}

// invoke runs cb, converting an error or a panic into a *CallbackError.
func invoke(cb Callback, u Update) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &CallbackError{Path: u.Path, Peer: u.Peer, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if cerr := cb(u); cerr != nil {
		return &CallbackError{Path: u.Path, Peer: u.Peer, Err: cerr}
	}
	return nil
}
