package vsd

import (
	"errors"
	"fmt"
	"time"

	"github.com/PDXostc/vehicle-signal-distribution/pkg/log"
	"github.com/PDXostc/vehicle-signal-distribution/pkg/model"
	"github.com/PDXostc/vehicle-signal-distribution/pkg/subscription"
	"github.com/PDXostc/vehicle-signal-distribution/pkg/transport"
	"github.com/PDXostc/vehicle-signal-distribution/pkg/wire"
)

// ProcessEvents waits for transport traffic and handles everything that
// arrived, in transport order.
//
// A timeout of 0 polls once. A positive timeout waits up to that long for
// at least one frame and returns 0 and a nil error if none came. A negative
// timeout waits until a frame arrives or the Context is closed.
//
// The count is the number of updates applied to the tree. Failures of
// individual frames and callbacks are joined into the returned error and
// do not stop the frames behind them.
func (c *Context) ProcessEvents(timeout time.Duration) (int, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0, ErrClosed
	}
	sendHello := !c.helloSent
	var interests []string
	if sendHello {
		c.helloSent = true
		interests = c.registry.LocalPaths()
	}
	c.mu.Unlock()

	var errs []error
	if sendHello {
		if err := c.send(transport.Broadcast, &wire.Message{Kind: wire.KindHello, Paths: interests}); err != nil {
			errs = append(errs, err)
		}
	}

	c.state.Store(uint32(StateWaiting))
	frames, err := c.tr.Pump(c.runCtx, timeout)
	c.state.Store(uint32(StateIdle))
	if err != nil {
		if c.runCtx.Err() != nil {
			return 0, ErrClosed
		}
		errs = append(errs, fmt.Errorf("pump: %w", err))
		return 0, errors.Join(errs...)
	}
	c.countDropped()
	if len(frames) == 0 {
		return 0, errors.Join(errs...)
	}

	start := time.Now()
	applied := 0
	for _, f := range frames {
		n, err := c.handleFrame(f)
		applied += n
		if err != nil {
			errs = append(errs, err)
		}
	}
	c.metrics.ObserveBatch(time.Since(start))
	return applied, errors.Join(errs...)
}

func (c *Context) handleFrame(f transport.Frame) (int, error) {
	switch f.Kind {
	case transport.FramePeerJoined:
		return 0, c.peerJoined(f.Peer)
	case transport.FramePeerGone:
		c.peerGone(f.Peer)
		return 0, nil
	case transport.FrameData:
		return c.handleMessage(f.Peer, f.Payload)
	default:
		c.warnLog("ignoring frame", "kind", f.Kind, "peer", f.Peer)
		return 0, nil
	}
}

func (c *Context) peerJoined(peer string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.peers[peer] = struct{}{}
	interests := c.registry.LocalPaths()
	c.syncGauges()
	c.mu.Unlock()

	c.peerState(peer, "JOINED")
	return c.reply(peer, &wire.Message{Kind: wire.KindHello, Paths: interests})
}

func (c *Context) peerGone(peer string) {
	c.mu.Lock()
	delete(c.peers, peer)
	dropped := c.registry.DropPeer(peer)
	c.syncGauges()
	c.mu.Unlock()

	c.peerState(peer, "GONE")
	c.debugLog("peer gone", "peer", peer, "subscriptions", dropped)
}

func (c *Context) peerState(peer, state string) {
	log.Emit(c.plog, log.Event{
		Peer:     peer,
		LocalID:  c.localID,
		Layer:    log.LayerContext,
		Category: log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityPeer,
			NewState: state,
		},
	})
	c.debugLog("peer state", "peer", peer, "state", state)
}

// reply sends an addressed message. A peer that vanished in the meantime
// is not an error; its departure arrives as a frame of its own.
func (c *Context) reply(peer string, msg *wire.Message) error {
	err := c.send(peer, msg)
	if errors.Is(err, transport.ErrUnknownPeer) {
		c.debugLog("reply to departed peer dropped", "peer", peer, "kind", msg.Kind)
		return nil
	}
	return err
}

func (c *Context) handleMessage(peer string, payload []byte) (int, error) {
	msg, err := wire.DecodeMessage(payload)
	if err != nil {
		c.metrics.UpdateRejected("decode")
		c.warnLog("dropping undecodable message", "peer", peer, "error", err)
		return 0, fmt.Errorf("message from %s: %w", peer, err)
	}
	c.metrics.MessageReceived(msg.Kind.String())
	if c.plog != nil {
		log.Emit(c.plog, c.messageEvent(log.DirectionIn, peer, msg))
	}
	c.debugLog("message received", "kind", msg.Kind, "peer", peer, "seq", msg.Seq)

	switch msg.Kind {
	case wire.KindUpdate:
		return c.applyUpdate(peer, msg.Update)
	case wire.KindSubscribe:
		return 0, c.remoteSubscribe(peer, msg.Paths)
	case wire.KindUnsubscribe:
		c.remoteUnsubscribe(peer, msg.Paths)
		return 0, nil
	case wire.KindHello:
		err := c.remoteSubscribe(peer, msg.Paths)
		c.mu.Lock()
		interests := c.registry.LocalPaths()
		c.mu.Unlock()
		if len(interests) > 0 {
			err = errors.Join(err, c.reply(peer, &wire.Message{Kind: wire.KindSubscribe, Paths: interests}))
		}
		return 0, err
	}
	return 0, nil
}

func (c *Context) remoteSubscribe(peer string, paths []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.peers[peer] = struct{}{}

	var errs []error
	for _, p := range paths {
		if _, _, err := c.registry.Subscribe(p, subscription.Remote(peer)); err != nil {
			errs = append(errs, fmt.Errorf("subscribe %q from %s: %w", p, peer, err))
		}
	}
	c.syncGauges()
	return errors.Join(errs...)
}

func (c *Context) remoteUnsubscribe(peer string, paths []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range paths {
		c.registry.Unsubscribe(p, subscription.Remote(peer))
	}
	c.syncGauges()
}

// applyUpdate writes an inbound value without going through Publish and
// runs the local callbacks that cover it.
func (c *Context) applyUpdate(peer string, u *wire.Update) (int, error) {
	v, err := u.Decode()
	if err != nil {
		c.metrics.UpdateRejected("decode")
		return 0, fmt.Errorf("update from %s: %w", peer, err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0, ErrClosed
	}
	c.peers[peer] = struct{}{}
	sig, err := c.resolve(u)
	if err != nil {
		c.mu.Unlock()
		c.metrics.UpdateRejected("not_found")
		c.warnLog("update for unknown signal", "peer", peer, "path", u.Path, "id", updateID(u))
		return 0, fmt.Errorf("update from %s: %w", peer, err)
	}
	if err := c.tree.Set(sig, v); err != nil {
		c.mu.Unlock()
		c.metrics.UpdateRejected(rejectReason(err))
		c.warnLog("update rejected", "peer", peer, "path", u.Path, "error", err)
		return 0, fmt.Errorf("update %s from %s: %w", u.Path, peer, err)
	}
	info, _ := c.tree.Info(sig)
	targets := c.callbacksFor(info.Path)
	c.mu.Unlock()

	c.metrics.UpdateApplied()
	upd := Update{ID: info.ID, HasID: info.HasID, Path: info.Path, Value: v, Peer: peer}
	var errs []error
	for _, cb := range targets {
		if err := invoke(cb, upd); err != nil {
			c.metrics.CallbackFailed()
			c.warnLog("callback failed", "path", upd.Path, "error", err)
			errs = append(errs, err)
		}
	}
	return 1, errors.Join(errs...)
}

// resolve finds the target of u by id, then by path. Caller holds c.mu.
func (c *Context) resolve(u *wire.Update) (model.Signal, error) {
	if u.ID != nil {
		sig, err := c.tree.LookupID(*u.ID)
		if err == nil || u.Path == "" {
			return sig, err
		}
	}
	return c.tree.Lookup(u.Path)
}

// callbacksFor returns the callbacks of the local listeners covering path,
// outermost subscription first. The default callback appears at most once.
// Caller holds c.mu.
func (c *Context) callbacksFor(path string) []Callback {
	var out []Callback
	usedDefault := false
	for _, s := range c.registry.Covering(path) {
		if s.Subscriber.IsRemote() {
			continue
		}
		if cb := c.listeners[s.Subscriber.Listener]; cb != nil {
			out = append(out, cb)
			continue
		}
		if !usedDefault && c.callback != nil {
			usedDefault = true
			out = append(out, c.callback)
		}
	}
	return out
}

func (c *Context) countDropped() {
	d, ok := c.tr.(interface{ Dropped() uint64 })
	if !ok {
		return
	}
	n := d.Dropped()
	if prev := c.lastDropped.Swap(n); n > prev {
		c.metrics.FramesDropped(n - prev)
		c.warnLog("receive queue overflowed", "dropped", n-prev)
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, model.ErrTypeMismatch):
		return "type_mismatch"
	case errors.Is(err, model.ErrOutOfRange):
		return "out_of_range"
	case errors.Is(err, model.ErrNotInEnum):
		return "not_in_enum"
	case errors.Is(err, model.ErrUnsupportedType):
		return "unsupported_type"
	default:
		return "invalid"
	}
}

func updateID(u *wire.Update) any {
	if u.ID == nil {
		return nil
	}
	return *u.ID
}
