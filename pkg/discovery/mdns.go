package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// Config selects the interface and record TTL.
type Config struct {
	// Interface restricts mDNS to one network interface. Empty means all.
	Interface string

	TTL time.Duration

	Logger *slog.Logger
}

// DefaultConfig returns the default discovery configuration.
func DefaultConfig() Config {
	return Config{TTL: DefaultTTL}
}

func (c Config) interfaces() []net.Interface {
	if c.Interface == "" {
		return nil
	}
	iface, err := net.InterfaceByName(c.Interface)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

// Advertiser announces this node with mDNS.
type Advertiser struct {
	config Config

	mu     sync.Mutex
	server *zeroconf.Server
}

// NewAdvertiser creates an advertiser.
func NewAdvertiser(config Config) *Advertiser {
	return &Advertiser{config: config}
}

// Advertise starts announcing info, replacing any earlier announcement.
func (a *Advertiser) Advertise(info *NodeInfo) error {
	instance, err := InstanceName(info.ID)
	if err != nil {
		return err
	}
	port := int(info.Port)
	if port == 0 {
		port = DefaultPort
	}

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	server, err := zeroconf.Register(
		instance,
		ServiceType,
		Domain,
		port,
		TXTRecordsToStrings(EncodeNodeTXT(info)),
		a.config.interfaces(),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}
	a.server = server
	return nil
}

// Stop withdraws the announcement.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

// Browser watches for other nodes.
type Browser struct {
	config Config
}

// NewBrowser creates a browser.
func NewBrowser(config Config) *Browser {
	return &Browser{config: config}
}

// Browse reports nodes appearing and disappearing until ctx is done. Nodes
// with id equal to self are skipped.
func (b *Browser) Browse(ctx context.Context, self string) (<-chan PeerEvent, error) {
	out := make(chan PeerEvent)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	var opts []zeroconf.ClientOption
	if ifaces := b.config.interfaces(); ifaces != nil {
		opts = append(opts, zeroconf.SelectIfaces(ifaces))
	}

	go func() {
		defer close(out)
		peers := newPeerSet(self)
		for {
			var ev *PeerEvent
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				ev = peers.add(entryToPeer(entry))
			case entry, ok := <-removed:
				if !ok {
					removed = nil
					continue
				}
				ev = peers.remove(entry.Instance, entryAddresses(entry))
			case <-ctx.Done():
				return
			}
			if ev == nil {
				continue
			}
			select {
			case out <- *ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		if err := zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, opts...); err != nil && b.config.Logger != nil {
			b.config.Logger.Debug("mdns browse stopped", "error", err)
		}
	}()

	return out, nil
}

func entryAddresses(entry *zeroconf.ServiceEntry) []string {
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}
	return addrs
}

// entryToPeer converts a zeroconf entry; nil if its TXT records are invalid.
func entryToPeer(entry *zeroconf.ServiceEntry) *Peer {
	return newPeer(entry.Instance, entry.HostName, entry.Port, entry.Text, entryAddresses(entry))
}

func newPeer(instance, host string, port int, text, addrs []string) *Peer {
	info, err := DecodeNodeTXT(StringsToTXTRecords(text))
	if err != nil {
		return nil
	}
	return &Peer{
		InstanceName: instance,
		Host:         host,
		Port:         uint16(port),
		Addresses:    addrs,
		ID:           info.ID,
		Catalog:      info.Catalog,
	}
}

// peerSet aggregates per-interface sightings into one Peer per instance.
type peerSet struct {
	self  string
	peers map[string]*Peer
}

func newPeerSet(self string) *peerSet {
	return &peerSet{self: self, peers: make(map[string]*Peer)}
}

// add records a sighting and returns an event the first time a peer with an
// address is seen.
func (s *peerSet) add(p *Peer) *PeerEvent {
	if p == nil || p.ID == s.self {
		return nil
	}
	if existing, ok := s.peers[p.InstanceName]; ok {
		existing.Addresses = mergeAddresses(existing.Addresses, p.Addresses)
		return nil
	}
	if len(p.Addresses) == 0 {
		return nil
	}
	s.peers[p.InstanceName] = p
	return &PeerEvent{Kind: PeerAdded, Peer: *p}
}

// remove drops addresses and returns an event once none remain.
func (s *peerSet) remove(instance string, addrs []string) *PeerEvent {
	existing, ok := s.peers[instance]
	if !ok {
		return nil
	}
	existing.Addresses = removeAddresses(existing.Addresses, addrs)
	if len(existing.Addresses) > 0 {
		return nil
	}
	delete(s.peers, instance)
	return &PeerEvent{Kind: PeerRemoved, Peer: *existing}
}

// mergeAddresses adds new addresses to existing list, avoiding duplicates.
func mergeAddresses(existing, added []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}
	for _, addr := range added {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

func removeAddresses(addresses, gone []string) []string {
	drop := make(map[string]bool, len(gone))
	for _, addr := range gone {
		drop[addr] = true
	}
	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !drop[addr] {
			result = append(result, addr)
		}
	}
	return result
}
