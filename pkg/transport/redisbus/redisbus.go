// Package redisbus carries signal traffic over Redis pub/sub.
//
// Every endpoint subscribes to a shared broadcast channel and to its own
// peer channel. Payloads travel as wire datagrams so receivers learn the
// sender.
package redisbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"

	"github.com/PDXostc/vehicle-signal-distribution/pkg/transport"
	"github.com/PDXostc/vehicle-signal-distribution/pkg/wire"
)

// DefaultPrefix namespaces the channels.
const DefaultPrefix = "vsd:"

// Adapter is a transport.Adapter backed by Redis pub/sub.
type Adapter struct {
	client  *backend.Client
	owned   bool
	prefix  string
	id      string
	limit   int
	logger  *slog.Logger
	mailbox *transport.Mailbox
	pubsub  *backend.PubSub

	closed    atomic.Bool
	closeOnce sync.Once
	wg        sync.WaitGroup
}

var _ transport.Adapter = (*Adapter)(nil)

// Option configures an Adapter.
type Option func(*Adapter)

// WithPrefix sets the channel prefix.
func WithPrefix(prefix string) Option {
	return func(a *Adapter) { a.prefix = prefix }
}

// WithID sets the endpoint id. The default is a random UUID.
func WithID(id string) Option {
	return func(a *Adapter) { a.id = id }
}

// WithQueueLimit bounds the receive queue.
func WithQueueLimit(n int) Option {
	return func(a *Adapter) { a.limit = n }
}

// WithLogger sets the debug logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

// Dial connects to the Redis server at address and starts an adapter that
// closes the client with itself.
func Dial(ctx context.Context, address, password string, db int, opts ...Option) (*Adapter, error) {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	a, err := New(ctx, client, opts...)
	if err != nil {
		client.Close()
		return nil, err
	}
	a.owned = true
	return a, nil
}

// New starts an adapter on an existing client and announces it to peers.
func New(ctx context.Context, client *backend.Client, opts ...Option) (*Adapter, error) {
	a := &Adapter{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.id == "" {
		a.id = uuid.NewString()
	}
	a.mailbox = transport.NewMailbox(a.id, a.limit)

	a.pubsub = client.Subscribe(ctx, a.broadcastChannel(), a.peerChannel(a.id))
	if _, err := a.pubsub.Receive(ctx); err != nil {
		a.pubsub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	a.wg.Add(1)
	go a.receiveLoop(a.pubsub.Channel())

	if err := a.announce(ctx, transport.Broadcast, wire.PresenceJoin); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *Adapter) broadcastChannel() string { return a.prefix + "broadcast" }

func (a *Adapter) peerChannel(id string) string { return a.prefix + "peer:" + id }

func (a *Adapter) channel(target string) string {
	if target == transport.Broadcast {
		return a.broadcastChannel()
	}
	return a.peerChannel(target)
}

func (a *Adapter) receiveLoop(ch <-chan *backend.Message) {
	defer a.wg.Done()
	for msg := range ch {
		answer, err := a.mailbox.Deliver([]byte(msg.Payload))
		if err != nil {
			a.debugLog("dropping datagram", "channel", msg.Channel, "error", err)
			continue
		}
		if answer != "" {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := a.announce(ctx, answer, wire.PresenceJoin); err != nil {
				a.debugLog("presence answer failed", "peer", answer, "error", err)
			}
			cancel()
		}
	}
}

func (a *Adapter) announce(ctx context.Context, target string, p wire.Presence) error {
	data, err := a.mailbox.Announce(target, p)
	if err != nil {
		return err
	}
	if err := a.client.Publish(ctx, a.channel(target), data).Err(); err != nil {
		return fmt.Errorf("announce %s: %w", p, err)
	}
	return nil
}

// LocalID returns the endpoint id.
func (a *Adapter) LocalID() string { return a.id }

// Send publishes f. Addressed sends fail with transport.ErrUnknownPeer when
// no subscriber listens on the peer channel.
func (a *Adapter) Send(ctx context.Context, f transport.Frame) error {
	if a.closed.Load() {
		return transport.ErrClosed
	}
	data, err := a.mailbox.Seal(f.Peer, f.Payload)
	if err != nil {
		return err
	}
	receivers, err := a.client.Publish(ctx, a.channel(f.Peer), data).Result()
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	if f.Peer != transport.Broadcast && receivers == 0 {
		return fmt.Errorf("%w: %s", transport.ErrUnknownPeer, f.Peer)
	}
	return nil
}

// Pump drains received frames.
func (a *Adapter) Pump(ctx context.Context, timeout time.Duration) ([]transport.Frame, error) {
	return a.mailbox.Pump(ctx, timeout)
}

// Close announces departure, unsubscribes and wakes blocked Pump calls.
func (a *Adapter) Close() error {
	var err error
	a.closeOnce.Do(func() {
		a.closed.Store(true)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if aerr := a.announce(ctx, transport.Broadcast, wire.PresenceLeave); aerr != nil {
			a.debugLog("leave announcement failed", "error", aerr)
		}
		err = a.pubsub.Close()
		a.wg.Wait()
		a.mailbox.Close()
		if a.owned {
			if cerr := a.client.Close(); err == nil {
				err = cerr
			}
		}
	})
	return err
}

func (a *Adapter) debugLog(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}
