package vsd

import (
	"context"
	"errors"
	"fmt"

	"github.com/PDXostc/vehicle-signal-distribution/pkg/log"
	"github.com/PDXostc/vehicle-signal-distribution/pkg/model"
	"github.com/PDXostc/vehicle-signal-distribution/pkg/subscription"
	"github.com/PDXostc/vehicle-signal-distribution/pkg/transport"
	"github.com/PDXostc/vehicle-signal-distribution/pkg/wire"
)

// Subscribe registers the default listener for sig and every node below
// it, including nodes added by a later Load. Subscribing twice is a no-op.
func (c *Context) Subscribe(sig model.Signal) error {
	_, err := c.subscribe(sig, false, nil)
	return err
}

// SubscribeFunc registers a new listener for sig with its own callback and
// returns the subscription id for Cancel. A nil cb falls back to the
// default callback.
func (c *Context) SubscribeFunc(sig model.Signal, cb Callback) (uint32, error) {
	return c.subscribe(sig, true, cb)
}

func (c *Context) subscribe(sig model.Signal, own bool, cb Callback) (uint32, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0, ErrClosed
	}
	path, err := c.tree.Path(sig)
	if err != nil {
		c.mu.Unlock()
		return 0, err
	}
	announce := !c.registry.HasLocal(path)

	var listener uint64
	if own {
		c.nextListener++
		listener = c.nextListener
	}
	s, created, err := c.registry.Subscribe(path, subscription.Local(listener))
	if err != nil {
		c.mu.Unlock()
		return 0, fmt.Errorf("subscribe %s: %w", path, err)
	}
	if own {
		c.listeners[listener] = cb
	}
	c.syncGauges()
	c.mu.Unlock()

	c.debugLog("subscribed", "path", path, "subscriptionID", s.ID, "listener", listener)
	if created && announce {
		return s.ID, c.broadcastInterest(wire.KindSubscribe, []string{path})
	}
	return s.ID, nil
}

// Unsubscribe removes the default listener's subscription to sig. Removing
// an absent subscription is not an error.
func (c *Context) Unsubscribe(sig model.Signal) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	path, err := c.tree.Path(sig)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	removed := c.registry.Unsubscribe(path, subscription.Local(0))
	withdraw := removed && !c.registry.HasLocal(path)
	c.syncGauges()
	c.mu.Unlock()

	if withdraw {
		return c.broadcastInterest(wire.KindUnsubscribe, []string{path})
	}
	return nil
}

// Cancel removes the subscription with the given id, as returned by
// SubscribeFunc.
func (c *Context) Cancel(id uint32) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	s, err := c.registry.Cancel(id)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("cancel %d: %w", id, err)
	}
	withdraw := false
	if !s.Subscriber.IsRemote() {
		if s.Subscriber.Listener != 0 {
			delete(c.listeners, s.Subscriber.Listener)
		}
		withdraw = !c.registry.HasLocal(s.Path)
	}
	c.syncGauges()
	c.mu.Unlock()

	if withdraw {
		return c.broadcastInterest(wire.KindUnsubscribe, []string{s.Path})
	}
	return nil
}

// Subscriptions returns the paths the local listeners are subscribed to.
func (c *Context) Subscriptions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.LocalPaths()
}

type outbound struct {
	update *wire.Update
	peers  []string
}

// Publish sends the current value of sig to every peer subscribed to it or
// to one of its ancestors. A branch publishes each descendant leaf that
// holds a value, depth-first in child insertion order. A leaf that was
// never assigned holds no value and is skipped, also when published on its
// own. Nothing is sent when no peer is interested.
func (c *Context) Publish(sig model.Signal) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	leaves, err := c.tree.Leaves(sig)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	var out []outbound
	for _, leaf := range leaves {
		v, err := c.tree.Get(leaf)
		if err != nil || !v.IsDefined() {
			continue
		}
		info, err := c.tree.Info(leaf)
		if err != nil {
			continue
		}
		var peers []string
		for _, s := range c.registry.Covering(info.Path) {
			if s.Subscriber.IsRemote() {
				peers = append(peers, s.Subscriber.Peer)
			}
		}
		if len(peers) == 0 {
			continue
		}
		out = append(out, outbound{
			update: wire.NewUpdate(info.ID, info.HasID, info.Path, v),
			peers:  peers,
		})
	}
	c.mu.Unlock()

	var errs []error
	for _, o := range out {
		for _, peer := range o.peers {
			msg := &wire.Message{Kind: wire.KindUpdate, Update: o.update}
			if err := c.send(peer, msg); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (c *Context) broadcastInterest(kind wire.Kind, paths []string) error {
	return c.send(transport.Broadcast, &wire.Message{Kind: kind, Paths: paths})
}

// send stamps, encodes and transmits msg to peer.
func (c *Context) send(peer string, msg *wire.Message) error {
	msg.Seq = c.seq.Add(1)
	data, err := wire.EncodeMessage(msg)
	if err != nil {
		return err
	}

	ctx := c.runCtx
	if c.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.sendTimeout)
		defer cancel()
	}
	if err := c.tr.Send(ctx, transport.Frame{Kind: transport.FrameData, Peer: peer, Payload: data}); err != nil {
		return fmt.Errorf("send %s to %s: %w", msg.Kind, peerLabel(peer), err)
	}

	c.metrics.MessageSent(msg.Kind.String())
	if c.plog != nil {
		log.Emit(c.plog, c.messageEvent(log.DirectionOut, peer, msg))
	}
	c.debugLog("message sent", "kind", msg.Kind, "peer", peerLabel(peer), "seq", msg.Seq)
	return nil
}

func (c *Context) messageEvent(dir log.Direction, peer string, msg *wire.Message) log.Event {
	me := &log.MessageEvent{
		Kind:  uint8(msg.Kind),
		Seq:   msg.Seq,
		Paths: msg.Paths,
	}
	if u := msg.Update; u != nil {
		typ := u.Type
		me.SignalID = u.ID
		me.Path = u.Path
		me.Type = &typ
		if v, err := u.Decode(); err == nil {
			me.Value = v.String()
		}
	}
	category := log.CategoryMessage
	if msg.Kind != wire.KindUpdate {
		category = log.CategoryControl
	}
	return log.Event{
		Peer:      peer,
		LocalID:   c.localID,
		Direction: dir,
		Layer:     log.LayerWire,
		Category:  category,
		Message:   me,
	}
}

func peerLabel(peer string) string {
	if peer == transport.Broadcast {
		return "*"
	}
	return peer
}
