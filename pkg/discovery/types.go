package discovery

import (
	"errors"
	"net"
	"strconv"
	"time"
)

// Service constants.
const (
	ServiceType = "_vsd._tcp"
	Domain      = "local"

	// DefaultPort is the TCP port nodes listen on unless configured.
	DefaultPort = 7460

	// DefaultTTL is the DNS record TTL.
	DefaultTTL = 120 * time.Second

	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63
)

// TXT record keys.
const (
	TXTKeyID       = "id"
	TXTKeyCatalog  = "catalog"
	TXTKeyProtocol = "proto"
)

// Errors.
var (
	ErrMissingRequired     = errors.New("missing required TXT record")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 bytes")
	ErrProtocolMismatch    = errors.New("unsupported protocol version")
)

// NodeInfo is what a node advertises about itself.
type NodeInfo struct {
	ID      string
	Port    uint16
	Catalog string
}

// Peer is a node found on the network.
type Peer struct {
	InstanceName string
	Host         string
	Port         uint16
	Addresses    []string

	ID      string
	Catalog string
}

// Endpoints returns host:port strings for each known address.
func (p *Peer) Endpoints() []string {
	out := make([]string, 0, len(p.Addresses))
	for _, addr := range p.Addresses {
		out = append(out, net.JoinHostPort(addr, strconv.Itoa(int(p.Port))))
	}
	return out
}

// PeerEventKind says whether a peer appeared or went away.
type PeerEventKind uint8

const (
	PeerAdded PeerEventKind = iota
	PeerRemoved
)

// String returns the event kind name.
func (k PeerEventKind) String() string {
	switch k {
	case PeerAdded:
		return "ADDED"
	case PeerRemoved:
		return "REMOVED"
	default:
		return "UNKNOWN"
	}
}

// PeerEvent reports a change in the set of visible peers.
type PeerEvent struct {
	Kind PeerEventKind
	Peer Peer
}
