// Package transport moves opaque frames between signal distribution peers.
//
// An Adapter sends frames to one peer or to all of them and hands received
// frames to the event processor through Pump. The processor never registers
// callbacks with the transport; everything inbound arrives as a Frame,
// including peer join and peer loss notifications.
//
// # Adapters
//
//   - Bus / Endpoint: in-process delivery, for tests and single-process use
//   - Node: TCP with optional TLS 1.3 and 4-byte length-prefix framing
//   - redisbus.Adapter: Redis pub/sub
//   - natsbus.Adapter: NATS subjects
//
// # Protocol Stack (Node)
//
//	┌────────────────────────────────┐
//	│      CBOR Messages (wire)      │
//	├────────────────────────────────┤
//	│   Length-Prefix Framing (4B)   │
//	├────────────────────────────────┤
//	│     TLS 1.3 (optional)         │
//	├────────────────────────────────┤
//	│           TCP                  │
//	└────────────────────────────────┘
//
// Each connection starts with an identification frame carrying the node ID,
// which becomes the peer token of every frame received on it.
package transport
