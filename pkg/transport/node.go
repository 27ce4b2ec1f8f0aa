package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PDXostc/vehicle-signal-distribution/pkg/log"
	"github.com/PDXostc/vehicle-signal-distribution/pkg/version"
)

// DefaultHandshakeTimeout bounds the identity exchange on a new connection.
const DefaultHandshakeTimeout = 5 * time.Second

const handshakePrefix = "vsd/"

// ErrHandshake indicates a connection that did not identify itself.
var ErrHandshake = errors.New("handshake failed")

// NodeConfig configures a TCP node.
type NodeConfig struct {
	// ID is this node's peer token. Empty selects a random UUID.
	ID string

	// ListenAddr is the address to accept peers on. Empty disables listening.
	ListenAddr string

	// Peers are addresses dialed on Start and redialed after disconnects.
	Peers []string

	// ServerTLS and ClientTLS enable TLS on accepted and dialed links.
	ServerTLS *tls.Config
	ClientTLS *tls.Config

	MaxMessageSize   uint32
	HandshakeTimeout time.Duration
	Backoff          BackoffConfig
	QueueLimit       int

	// Logger receives debug output. Optional.
	Logger *slog.Logger

	// ProtocolLogger captures frames and peer state changes. Optional.
	ProtocolLogger log.Logger
}

// Node is an Adapter over TCP (optionally TLS) links to a set of peers.
//
// Each pair of nodes keeps a single link. When both sides dial each other,
// the link dialed by the node with the smaller ID wins.
type Node struct {
	cfg   NodeConfig
	queue *Queue

	mu       sync.Mutex
	conns    map[string]*peerConn
	listener net.Listener
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ Adapter = (*Node)(nil)

type peerConn struct {
	id       string
	dialedBy string
	conn     net.Conn
	framer   *Framer
	done     chan struct{}
	once     sync.Once
}

func (pc *peerConn) close() {
	pc.once.Do(func() {
		close(pc.done)
		pc.conn.Close()
	})
}

// NewNode creates a node. Call Start to begin listening and dialing.
func NewNode(cfg NodeConfig) *Node {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.MaxMessageSize == 0 {
		cfg.MaxMessageSize = DefaultMaxMessageSize
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Node{
		cfg:    cfg,
		queue:  NewQueue(cfg.QueueLimit),
		conns:  make(map[string]*peerConn),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start opens the listener and begins dialing configured peers.
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return ErrClosed
	}

	if n.cfg.ListenAddr != "" {
		var lc net.ListenConfig
		ln, err := lc.Listen(ctx, "tcp", n.cfg.ListenAddr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", n.cfg.ListenAddr, err)
		}
		n.listener = ln
		n.wg.Add(1)
		go n.acceptLoop(ln)
	}
	for _, addr := range n.cfg.Peers {
		n.wg.Add(1)
		go n.dialLoop(addr)
	}
	return nil
}

// Addr returns the listen address, or nil when not listening.
func (n *Node) Addr() net.Addr {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.listener == nil {
		return nil
	}
	return n.listener.Addr()
}

// Dial adds addr to the peers this node keeps a link to.
func (n *Node) Dial(addr string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return ErrClosed
	}
	n.wg.Add(1)
	go n.dialLoop(addr)
	return nil
}

// Peers returns the ids of connected peers.
func (n *Node) Peers() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.conns))
	for id := range n.conns {
		out = append(out, id)
	}
	return out
}

// LocalID returns the node id.
func (n *Node) LocalID() string { return n.cfg.ID }

// Send writes f to its peer, or to every connected peer for Broadcast.
// Links that fail during a broadcast are closed and reported as gone.
func (n *Node) Send(ctx context.Context, f Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return ErrClosed
	}
	var targets []*peerConn
	if f.Peer == Broadcast {
		for _, pc := range n.conns {
			targets = append(targets, pc)
		}
	} else if pc, ok := n.conns[f.Peer]; ok {
		targets = append(targets, pc)
	}
	n.mu.Unlock()

	if f.Peer != Broadcast && len(targets) == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownPeer, f.Peer)
	}

	for _, pc := range targets {
		if deadline, ok := ctx.Deadline(); ok {
			pc.conn.SetWriteDeadline(deadline)
		}
		err := pc.framer.WriteFrame(f.Payload)
		pc.conn.SetWriteDeadline(time.Time{})
		if err != nil {
			n.debugLog("send failed", "peer", pc.id, "error", err)
			pc.close()
			if f.Peer != Broadcast {
				return fmt.Errorf("send to %s: %w", pc.id, err)
			}
		}
	}
	return nil
}

// Pump drains received frames.
func (n *Node) Pump(ctx context.Context, timeout time.Duration) ([]Frame, error) {
	return n.queue.Drain(ctx, timeout)
}

// Dropped returns the number of frames lost to queue overflow.
func (n *Node) Dropped() uint64 { return n.queue.Dropped() }

// Close stops the node, closes all links and waits for its goroutines.
func (n *Node) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	n.cancel()
	if n.listener != nil {
		n.listener.Close()
	}
	conns := make([]*peerConn, 0, len(n.conns))
	for _, pc := range n.conns {
		conns = append(conns, pc)
	}
	n.mu.Unlock()

	for _, pc := range conns {
		pc.close()
	}
	n.wg.Wait()
	n.queue.Close()
	return nil
}

func (n *Node) acceptLoop(ln net.Listener) {
	defer n.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if n.ctx.Err() != nil {
				return
			}
			n.debugLog("accept failed", "error", err)
			continue
		}
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			pc, err := n.handshake(conn, false)
			if err != nil {
				n.debugLog("inbound handshake failed", "remote", conn.RemoteAddr(), "error", err)
				return
			}
			if _, ok := n.register(pc); !ok {
				pc.close()
				return
			}
			n.serve(pc)
		}()
	}
}

func (n *Node) dialLoop(addr string) {
	defer n.wg.Done()

	backoff := NewBackoff(n.cfg.Backoff)
	dialer := &net.Dialer{Timeout: n.cfg.HandshakeTimeout}
	for {
		conn, err := dialer.DialContext(n.ctx, "tcp", addr)
		if err == nil {
			var pc *peerConn
			pc, err = n.handshake(conn, true)
			if err == nil {
				backoff.Reset()
				active, ok := n.register(pc)
				if ok {
					n.wg.Add(1)
					go func() {
						defer n.wg.Done()
						n.serve(pc)
					}()
				} else {
					pc.close()
				}
				if active == nil {
					return
				}
				select {
				case <-active.done:
				case <-n.ctx.Done():
					return
				}
				continue
			}
		}
		if n.ctx.Err() != nil {
			return
		}

		delay := backoff.Next()
		n.debugLog("dial failed", "addr", addr, "attempt", backoff.Attempts(), "retryIn", delay, "error", err)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-n.ctx.Done():
			timer.Stop()
			return
		}
	}
}

// handshake upgrades conn to TLS when configured and exchanges node ids.
func (n *Node) handshake(conn net.Conn, dialed bool) (*peerConn, error) {
	conn.SetDeadline(time.Now().Add(n.cfg.HandshakeTimeout))

	if dialed && n.cfg.ClientTLS != nil {
		cfg := n.cfg.ClientTLS.Clone()
		if cfg.ServerName == "" && !cfg.InsecureSkipVerify {
			host, _, _ := net.SplitHostPort(conn.RemoteAddr().String())
			cfg.ServerName = host
		}
		conn = tls.Client(conn, cfg)
	} else if !dialed && n.cfg.ServerTLS != nil {
		conn = tls.Server(conn, n.cfg.ServerTLS)
	}
	if tc, ok := conn.(*tls.Conn); ok {
		if err := tc.HandshakeContext(n.ctx); err != nil {
			conn.Close()
			return nil, err
		}
		if err := VerifyConnection(tc.ConnectionState()); err != nil {
			conn.Close()
			return nil, err
		}
	}

	framer := NewFramerWithMaxSize(conn, n.cfg.MaxMessageSize)
	if err := framer.WriteFrame(greeting(n.cfg.ID)); err != nil {
		conn.Close()
		return nil, err
	}
	hello, err := framer.ReadFrame()
	if err != nil {
		conn.Close()
		return nil, err
	}
	remote, err := parseGreeting(hello)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if remote == n.cfg.ID {
		conn.Close()
		return nil, fmt.Errorf("%w: peer has our id %s", ErrHandshake, remote)
	}
	conn.SetDeadline(time.Time{})

	if n.cfg.ProtocolLogger != nil {
		framer.SetLogger(n.cfg.ProtocolLogger, remote)
	}
	pc := &peerConn{id: remote, conn: conn, framer: framer, done: make(chan struct{})}
	if dialed {
		pc.dialedBy = n.cfg.ID
	} else {
		pc.dialedBy = remote
	}
	return pc, nil
}

// greeting is the first frame on every link: "vsd/<version> <id>".
func greeting(id string) []byte {
	return []byte(handshakePrefix + version.Current + " " + id)
}

func parseGreeting(b []byte) (string, error) {
	rest, ok := strings.CutPrefix(string(b), handshakePrefix)
	if !ok {
		return "", fmt.Errorf("%w: unexpected greeting", ErrHandshake)
	}
	ver, id, ok := strings.Cut(rest, " ")
	if !ok || id == "" {
		return "", fmt.Errorf("%w: unexpected greeting", ErrHandshake)
	}
	if err := version.Check(ver); err != nil {
		return "", fmt.Errorf("%w: %w", ErrHandshake, err)
	}
	return id, nil
}

// serve pumps frames of a registered link into the queue until it closes.
func (n *Node) serve(pc *peerConn) {
	defer n.unregister(pc)
	defer pc.close()

	for {
		data, err := pc.framer.ReadFrame()
		if err != nil {
			select {
			case <-pc.done:
			default:
				n.debugLog("link closed", "peer", pc.id, "error", err)
			}
			return
		}
		n.queue.Push(Frame{Kind: FrameData, Peer: pc.id, Payload: data})
	}
}

// register makes pc the link to its peer unless an existing link wins the
// tie-break. It returns the link that stays active (nil once the node is
// closed) and whether that link is pc.
func (n *Node) register(pc *peerConn) (*peerConn, bool) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil, false
	}
	existing, ok := n.conns[pc.id]
	if ok {
		winner := min(n.cfg.ID, pc.id)
		if existing.dialedBy == winner || pc.dialedBy != winner {
			n.mu.Unlock()
			n.debugLog("duplicate link dropped", "peer", pc.id)
			return existing, false
		}
	}
	n.conns[pc.id] = pc
	n.mu.Unlock()

	if ok {
		existing.close()
		return pc, true
	}
	n.queue.Push(Frame{Kind: FramePeerJoined, Peer: pc.id})
	n.logState(pc, "", "CONNECTED")
	n.debugLog("peer connected", "peer", pc.id, "remote", pc.conn.RemoteAddr())
	return pc, true
}

func (n *Node) unregister(pc *peerConn) {
	n.mu.Lock()
	current, ok := n.conns[pc.id]
	if !ok || current != pc {
		n.mu.Unlock()
		return
	}
	delete(n.conns, pc.id)
	n.mu.Unlock()

	n.queue.Push(Frame{Kind: FramePeerGone, Peer: pc.id})
	n.logState(pc, "CONNECTED", "GONE")
	n.debugLog("peer gone", "peer", pc.id)
}

func (n *Node) logState(pc *peerConn, from, to string) {
	log.Emit(n.cfg.ProtocolLogger, log.Event{
		Peer:       pc.id,
		LocalID:    n.cfg.ID,
		RemoteAddr: pc.conn.RemoteAddr().String(),
		Layer:      log.LayerTransport,
		Category:   log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityPeer,
			OldState: from,
			NewState: to,
		},
	})
}

func (n *Node) debugLog(msg string, args ...any) {
	if n.cfg.Logger != nil {
		n.cfg.Logger.Debug(msg, args...)
	}
}
