package subscription

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// Subscription errors.
var (
	ErrResourceExhausted    = errors.New("maximum subscriptions reached")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrInvalidPath          = errors.New("invalid subscription path")
)

// DefaultMaxSubscriptions bounds the registry size.
const DefaultMaxSubscriptions = 65536

// Config holds registry configuration.
type Config struct {
	// MaxSubscriptions is the maximum number of entries, local and remote.
	MaxSubscriptions int
}

// DefaultConfig returns the default registry configuration.
func DefaultConfig() Config {
	return Config{MaxSubscriptions: DefaultMaxSubscriptions}
}

// Subscriber identifies the party behind a subscription.
// Subscribers are comparable and used as map keys.
type Subscriber struct {
	// Peer is the transport token of a remote subscriber. Empty for local ones.
	Peer string

	// Listener distinguishes local listeners. Listener 0 is the context's
	// default listener.
	Listener uint64
}

// Local returns the subscriber for a local listener.
func Local(listener uint64) Subscriber {
	return Subscriber{Listener: listener}
}

// Remote returns the subscriber for a remote peer.
func Remote(peer string) Subscriber {
	return Subscriber{Peer: peer}
}

// IsRemote reports whether the subscriber is a remote peer.
func (s Subscriber) IsRemote() bool { return s.Peer != "" }

// String returns a short description of the subscriber.
func (s Subscriber) String() string {
	if s.IsRemote() {
		return "peer:" + s.Peer
	}
	return fmt.Sprintf("local:%d", s.Listener)
}

// Subscription is one registry entry.
type Subscription struct {
	// ID is unique within the process.
	ID uint32

	// Path is the dotted signal path the subscription covers.
	Path string

	Subscriber Subscriber
}

var idGenerator atomic.Uint32

// nextID returns the next unique subscription ID.
func nextID() uint32 {
	return idGenerator.Add(1)
}
