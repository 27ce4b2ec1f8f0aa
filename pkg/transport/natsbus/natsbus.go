// Package natsbus carries signal traffic over NATS core subjects.
package natsbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/PDXostc/vehicle-signal-distribution/pkg/transport"
	"github.com/PDXostc/vehicle-signal-distribution/pkg/wire"
)

// Connection defaults.
const (
	DefaultSubjectPrefix = "vsd"
	DefaultMaxReconnects = -1
	DefaultReconnectWait = 2 * time.Second
)

// ErrNotConnected is returned when the NATS connection is down.
var ErrNotConnected = errors.New("not connected to NATS")

// Config configures an Adapter.
type Config struct {
	URL           string
	ID            string
	SubjectPrefix string
	ClientName    string
	MaxReconnects int
	ReconnectWait time.Duration
	QueueLimit    int
	Logger        *slog.Logger
}

// DefaultConfig returns a config for a local NATS server.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		SubjectPrefix: DefaultSubjectPrefix,
		ClientName:    "vsd",
		MaxReconnects: DefaultMaxReconnects,
		ReconnectWait: DefaultReconnectWait,
	}
}

// Adapter is a transport.Adapter backed by NATS.
type Adapter struct {
	cfg     Config
	conn    *nats.Conn
	subs    []*nats.Subscription
	mailbox *transport.Mailbox

	closed    atomic.Bool
	closeOnce sync.Once
}

var _ transport.Adapter = (*Adapter)(nil)

// Connect dials NATS, subscribes and announces the adapter to peers.
func Connect(ctx context.Context, cfg Config) (*Adapter, error) {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = DefaultSubjectPrefix
	}
	a := &Adapter{cfg: cfg, mailbox: transport.NewMailbox(cfg.ID, cfg.QueueLimit)}

	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(a.handleDisconnect),
		nats.ReconnectHandler(a.handleReconnect),
	}
	if cfg.ClientName != "" {
		opts = append(opts, nats.Name(cfg.ClientName+"-"+cfg.ID))
	}
	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.URL, err)
	}
	a.conn = conn

	for _, subject := range []string{a.broadcastSubject(), a.peerSubject(cfg.ID)} {
		sub, err := conn.Subscribe(subject, a.handleMsg)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("subscribe %s: %w", subject, err)
		}
		a.subs = append(a.subs, sub)
	}
	if err := conn.FlushWithContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("flush: %w", err)
	}
	if err := a.announce(transport.Broadcast, wire.PresenceJoin); err != nil {
		conn.Close()
		return nil, err
	}
	return a, nil
}

func (a *Adapter) broadcastSubject() string { return a.cfg.SubjectPrefix + ".broadcast" }

func (a *Adapter) peerSubject(id string) string { return a.cfg.SubjectPrefix + ".peer." + id }

func (a *Adapter) subject(target string) string {
	if target == transport.Broadcast {
		return a.broadcastSubject()
	}
	return a.peerSubject(target)
}

func (a *Adapter) handleMsg(msg *nats.Msg) {
	answer, err := a.mailbox.Deliver(msg.Data)
	if err != nil {
		a.debugLog("dropping datagram", "subject", msg.Subject, "error", err)
		return
	}
	if answer != "" {
		if err := a.announce(answer, wire.PresenceJoin); err != nil {
			a.debugLog("presence answer failed", "peer", answer, "error", err)
		}
	}
}

func (a *Adapter) handleDisconnect(_ *nats.Conn, err error) {
	a.debugLog("nats disconnected", "error", err)
}

// handleReconnect re-announces the adapter; peers may have restarted while
// the link was down.
func (a *Adapter) handleReconnect(_ *nats.Conn) {
	a.debugLog("nats reconnected")
	if err := a.announce(transport.Broadcast, wire.PresenceJoin); err != nil {
		a.debugLog("presence announce failed", "error", err)
	}
}

func (a *Adapter) announce(target string, p wire.Presence) error {
	data, err := a.mailbox.Announce(target, p)
	if err != nil {
		return err
	}
	return a.conn.Publish(a.subject(target), data)
}

// LocalID returns the endpoint id.
func (a *Adapter) LocalID() string { return a.cfg.ID }

// Send publishes f. Addressed sends require a peer that has announced itself.
func (a *Adapter) Send(ctx context.Context, f transport.Frame) error {
	if a.closed.Load() {
		return transport.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !a.conn.IsConnected() {
		return ErrNotConnected
	}
	if f.Peer != transport.Broadcast && !a.mailbox.Known(f.Peer) {
		return fmt.Errorf("%w: %s", transport.ErrUnknownPeer, f.Peer)
	}
	data, err := a.mailbox.Seal(f.Peer, f.Payload)
	if err != nil {
		return err
	}
	return a.conn.Publish(a.subject(f.Peer), data)
}

// Pump drains received frames.
func (a *Adapter) Pump(ctx context.Context, timeout time.Duration) ([]transport.Frame, error) {
	return a.mailbox.Pump(ctx, timeout)
}

// Close announces departure and drains the connection.
func (a *Adapter) Close() error {
	var err error
	a.closeOnce.Do(func() {
		a.closed.Store(true)
		if aerr := a.announce(transport.Broadcast, wire.PresenceLeave); aerr != nil {
			a.debugLog("leave announcement failed", "error", aerr)
		}
		for _, sub := range a.subs {
			sub.Unsubscribe()
		}
		err = a.conn.Drain()
		a.mailbox.Close()
	})
	return err
}

func (a *Adapter) debugLog(msg string, args ...any) {
	if a.cfg.Logger != nil {
		a.cfg.Logger.Debug(msg, args...)
	}
}
