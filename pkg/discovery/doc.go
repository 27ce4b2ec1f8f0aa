// Package discovery finds signal distribution nodes on the local network
// with mDNS/DNS-SD.
//
// Nodes advertise the service type _vsd._tcp. The instance name is the node
// id. TXT records carry:
//
//   - id: the node's transport token
//   - catalog: the catalog name the node loaded (optional)
//   - proto: the wire protocol version
//
// Browsing yields PeerEvents as nodes appear and disappear. Addresses seen
// on several interfaces are merged into one Peer.
package discovery
