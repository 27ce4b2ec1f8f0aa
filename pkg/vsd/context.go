package vsd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PDXostc/vehicle-signal-distribution/pkg/catalog"
	"github.com/PDXostc/vehicle-signal-distribution/pkg/log"
	"github.com/PDXostc/vehicle-signal-distribution/pkg/metrics"
	"github.com/PDXostc/vehicle-signal-distribution/pkg/model"
	"github.com/PDXostc/vehicle-signal-distribution/pkg/subscription"
	"github.com/PDXostc/vehicle-signal-distribution/pkg/transport"
	"github.com/PDXostc/vehicle-signal-distribution/pkg/wire"
)

// Context errors.
var (
	ErrClosed   = errors.New("context closed")
	ErrCallback = errors.New("update callback failed")
)

// DefaultSendTimeout bounds a single transport send.
const DefaultSendTimeout = 5 * time.Second

// State is the event processor state.
type State uint32

const (
	// StateIdle means no ProcessEvents call is waiting on the transport.
	StateIdle State = iota
	// StateWaiting means a ProcessEvents call is blocked in the transport.
	StateWaiting
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateWaiting:
		return "WAITING"
	default:
		return "UNKNOWN"
	}
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the operational logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(c *Context) { c.logger = l }
}

// WithProtocolLogger captures every message sent and received.
func WithProtocolLogger(l log.Logger) Option {
	return func(c *Context) { c.plog = l }
}

// WithMetrics records counters and gauges on m.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Context) { c.metrics = m }
}

// WithAutoPublish publishes a signal after every successful local Set.
func WithAutoPublish(on bool) Option {
	return func(c *Context) { c.autoPublish = on }
}

// WithSendTimeout bounds each transport send. Zero or less disables the bound.
func WithSendTimeout(d time.Duration) Option {
	return func(c *Context) { c.sendTimeout = d }
}

// Context is a signal tree connected to peers.
//
// All methods are safe for concurrent use. One mutex guards the tree, the
// registry and the callback table.
type Context struct {
	mu sync.Mutex

	tr       transport.Adapter
	localID  string
	tree     *model.Tree
	registry *subscription.Registry

	// callback is the default slot used by listener 0 and by listeners
	// registered without their own function.
	callback     Callback
	listeners    map[uint64]Callback
	nextListener uint64

	peers     map[string]struct{}
	helloSent bool
	closed    bool

	state       atomic.Uint32
	seq         atomic.Uint32
	lastDropped atomic.Uint64

	// runCtx is canceled by Close to wake a blocked ProcessEvents.
	runCtx context.Context
	cancel context.CancelFunc

	autoPublish bool
	sendTimeout time.Duration
	logger      *slog.Logger
	plog        log.Logger
	metrics     *metrics.Collector
}

// New creates an empty Context on tr. The transport stays owned by the
// caller and is not closed by Close.
func New(tr transport.Adapter, opts ...Option) *Context {
	c := &Context{
		tr:          tr,
		localID:     tr.LocalID(),
		tree:        model.NewTree(),
		registry:    subscription.NewRegistry(),
		listeners:   make(map[uint64]Callback),
		peers:       make(map[string]struct{}),
		sendTimeout: DefaultSendTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.runCtx, c.cancel = context.WithCancel(context.Background())
	return c
}

// LocalID returns the transport token of this Context.
func (c *Context) LocalID() string { return c.localID }

// Load replaces the tree with entries. On failure the previous tree is
// kept and a *model.LoadError is returned. Subscriptions to paths that no
// longer exist are dropped; peers are told about local ones.
func (c *Context) Load(entries []model.Entry) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if err := c.tree.Load(entries); err != nil {
		c.mu.Unlock()
		return err
	}
	before := c.registry.LocalPaths()
	pruned := c.registry.Prune(c.tree.Exists)
	var gone []string
	for _, p := range before {
		if !c.registry.HasLocal(p) {
			gone = append(gone, p)
		}
	}
	signals := c.tree.Len()
	c.syncGauges()
	c.mu.Unlock()

	c.metrics.SetSignals(signals)
	log.Emit(c.plog, log.Event{
		LocalID:  c.localID,
		Layer:    log.LayerContext,
		Category: log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityCatalog,
			NewState: "LOADED",
			Reason:   fmt.Sprintf("%d signals", signals),
		},
	})
	c.debugLog("catalog loaded", "signals", signals, "prunedSubscriptions", pruned)

	if len(gone) > 0 {
		return c.broadcastInterest(wire.KindUnsubscribe, gone)
	}
	return nil
}

// LoadFile reads a CSV or YAML catalog and loads it.
func (c *Context) LoadFile(path string) error {
	entries, err := catalog.LoadFile(path)
	if err != nil {
		return err
	}
	return c.Load(entries)
}

// Signal resolves a dotted path.
func (c *Context) Signal(path string) (model.Signal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return model.Signal{}, ErrClosed
	}
	return c.tree.Lookup(path)
}

// SignalByID resolves a numeric signal id.
func (c *Context) SignalByID(id uint32) (model.Signal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return model.Signal{}, ErrClosed
	}
	return c.tree.LookupID(id)
}

// Info returns the metadata of sig.
func (c *Context) Info(sig model.Signal) (model.Info, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tree.Info(sig)
}

// Roots returns the top-level signals.
func (c *Context) Roots() []model.Signal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tree.Roots()
}

// Children returns the direct children of sig.
func (c *Context) Children(sig model.Signal) ([]model.Signal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tree.Children(sig)
}

// Parent returns the parent of sig; ok is false for a root.
func (c *Context) Parent(sig model.Signal) (parent model.Signal, ok bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tree.Parent(sig)
}

// Len returns the number of nodes in the tree.
func (c *Context) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tree.Len()
}

// Walk calls fn for sig and its descendants in depth-first order. The set
// of nodes is taken before the first call and fn runs without the lock.
func (c *Context) Walk(sig model.Signal, fn func(model.Signal) error) error {
	c.mu.Lock()
	var nodes []model.Signal
	err := c.tree.Walk(sig, func(s model.Signal) error {
		nodes = append(nodes, s)
		return nil
	})
	c.mu.Unlock()
	if err != nil {
		return err
	}
	for _, s := range nodes {
		if err := fn(s); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the current value of sig.
func (c *Context) Get(sig model.Signal) (model.Value, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tree.Get(sig)
}

// Set stores v in sig. With auto-publish the signal is published
// afterwards.
func (c *Context) Set(sig model.Signal, v model.Value) error {
	c.mu.Lock()
	err := c.tree.Set(sig, v)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	if c.autoPublish {
		return c.Publish(sig)
	}
	return nil
}

// SetString parses text in the type of sig and stores it.
func (c *Context) SetString(sig model.Signal, text string) error {
	c.mu.Lock()
	err := c.tree.SetString(sig, text)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	if c.autoPublish {
		return c.Publish(sig)
	}
	return nil
}

// SetCallback installs the default callback, replacing any earlier one.
// A nil cb clears it.
func (c *Context) SetCallback(cb Callback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callback = cb
}

// ProcessorState returns the event processor state.
func (c *Context) ProcessorState() State {
	return State(c.state.Load())
}

// Peers returns the number of peers currently known.
func (c *Context) Peers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.peers)
}

// Close tells peers the local interests are withdrawn, drops the tree and
// all subscriptions, and wakes a blocked ProcessEvents. Handles issued
// earlier become stale. Close is idempotent; the transport is not closed.
func (c *Context) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	paths := c.registry.LocalPaths()
	c.mu.Unlock()

	var err error
	if len(paths) > 0 {
		err = c.broadcastInterest(wire.KindUnsubscribe, paths)
	}

	c.mu.Lock()
	c.closed = true
	c.tree.Close()
	c.registry.ClearAll()
	c.listeners = make(map[uint64]Callback)
	c.callback = nil
	c.peers = make(map[string]struct{})
	c.mu.Unlock()

	c.cancel()
	return err
}

// syncGauges updates the registry and peer gauges. Caller holds c.mu.
func (c *Context) syncGauges() {
	if c.metrics == nil {
		return
	}
	local, remote := c.registry.Counts()
	c.metrics.SetSubscriptions(local, remote)
	c.metrics.SetPeers(len(c.peers))
}

func (c *Context) debugLog(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *Context) warnLog(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
