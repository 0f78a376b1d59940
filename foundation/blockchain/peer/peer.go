// Package peer maintains the peer related information such as the set
// of know peers and their status.
package peer

import (
	"sort"
	"strings"
)

// Peer represents information about a Node in the network. The host is
// both the identity of the node and the address it is reached on.
type Peer struct {
	Host string `json:"host"`
}

// New contructs a new info value.
func New(host string) Peer {
	return Peer{
		Host: host,
	}
}

// Match validates if the specified host matches this node.
func (p Peer) Match(host string) bool {
	return p.Host == host
}

// String implements the fmt.Stringer interface.
func (p Peer) String() string {
	return p.Host
}

// =============================================================================

// PeerStatus represents information about the status
// of any given peer.
type PeerStatus struct {
	LatestBlockHash   string `json:"latest_block_hash"`
	LatestBlockNumber uint64 `json:"latest_block_number"`
	KnownPeers        []Peer `json:"known_peers"`
}

// =============================================================================

// PeerSet represents the fixed, ordered set of nodes taking part in the
// network, this node included. Every node must be configured with the same
// set. The set is sorted by host so the order doesn't depend on how the
// hosts were listed.
type PeerSet struct {
	peers []Peer
}

// NewPeerSet constructs the set from the list of hosts, dropping duplicates.
func NewPeerSet(hosts ...string) *PeerSet {
	unique := make(map[string]struct{}, len(hosts))
	names := make([]string, 0, len(hosts))
	for _, host := range hosts {
		if _, exists := unique[host]; exists {
			continue
		}
		unique[host] = struct{}{}
		names = append(names, host)
	}
	sort.Strings(names)

	peers := make([]Peer, len(names))
	for i, name := range names {
		peers[i] = New(name)
	}

	return &PeerSet{peers: peers}
}

// Len returns the number of nodes in the set.
func (ps *PeerSet) Len() int {
	return len(ps.peers)
}

// Contains reports if the host is part of the set.
func (ps *PeerSet) Contains(host string) bool {
	_, found := sort.Find(len(ps.peers), func(i int) int {
		return strings.Compare(host, ps.peers[i].Host)
	})
	return found
}

// Hosts returns the ordered list of hosts.
func (ps *PeerSet) Hosts() []string {
	hosts := make([]string, len(ps.peers))
	for i, peer := range ps.peers {
		hosts[i] = peer.Host
	}
	return hosts
}

// Copy returns the ordered list of known peers except the specified host.
func (ps *PeerSet) Copy(host string) []Peer {
	var peers []Peer
	for _, peer := range ps.peers {
		if !peer.Match(host) {
			peers = append(peers, peer)
		}
	}

	return peers
}

// FirstMiner returns the node that mines block 1.
func (ps *PeerSet) FirstMiner() (string, error) {
	return FirstMiner(ps.Hosts())
}

// NextMiner returns the node that mines the block after one mined by the
// specified host.
func (ps *PeerSet) NextMiner(previous string) (string, error) {
	return NextMiner(previous, ps.Hosts())
}

