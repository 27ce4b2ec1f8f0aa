// Package vsd is the host-facing signal distribution API.
//
// A Context owns a signal tree, a subscription registry and the callbacks
// of its local listeners, and exchanges updates with peers over a
// transport.Adapter supplied by the caller:
//
//	ep, _ := bus.Endpoint("dashboard")
//	c := vsd.New(ep, vsd.WithLogger(logger))
//	if err := c.LoadFile("vss.csv"); err != nil { ... }
//
//	speed, _ := c.Signal("Vehicle.Speed")
//	c.SubscribeFunc(speed, func(u vsd.Update) error {
//		fmt.Println(u.Path, u.Value)
//		return nil
//	})
//	for {
//		if _, err := c.ProcessEvents(-1); err != nil { ... }
//	}
//
// Only ProcessEvents blocks. Callbacks run on the goroutine that called
// ProcessEvents, after the Context lock is released, so they may call back
// into the Context. Updates applied from peers are never re-published.
//
// # Peer protocol
//
// Interest travels with the data. Subscribe announces the path to every
// peer; peers remember the announcing node as a remote subscriber and
// address their Publish traffic to it. A Hello carries the sender's local
// interests and is answered with the receiver's own, so nodes that start
// late or reconnect learn the interests already in place. A Hello is
// broadcast on the first ProcessEvents and sent to each peer the transport
// reports as joined. Peers reported gone lose their subscriptions.
package vsd
