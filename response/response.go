// Package response implements the BitTorrent tracker bencoded announce
// response (§4.3), encoded with github.com/anacrolix/torrent/bencode.
package response

import (
	"github.com/anacrolix/torrent/bencode"
)

// IntervalSeconds is the fixed announce interval advertised to clients
// (§4.3). It is never varied per-client or per-swarm.
const IntervalSeconds = 1800

// MaxPeersPerSwarmSide caps how many seeder/leecher peers are ever
// returned from a single swarm side (§4.3, §8 invariant 5).
const MaxPeersPerSwarmSide = 50

// PeerLen is the wire length in bytes of one compact peer identity.
const PeerLen = 6

// Encode produces the bencoded tracker response body:
//
//	d8:completei<S>e10:incompletei<L>e8:intervali1800e12:min intervali1800e5:peers<N*6>:<peer bytes>e
//
// seederPeers and leecherPeers are the raw concatenated 6-byte compact peer
// blobs, already truncated to at most MaxPeersPerSwarmSide entries each by
// the caller (the announce engine); Encode concatenates them
// seeders-then-leechers.
func Encode(complete, incomplete uint32, seederPeers, leecherPeers []byte) ([]byte, error) {
	peers := make([]byte, 0, len(seederPeers)+len(leecherPeers))
	peers = append(peers, seederPeers...)
	peers = append(peers, leecherPeers...)

	return bencode.Marshal(map[string]any{
		"complete":     complete,
		"incomplete":   incomplete,
		"interval":     IntervalSeconds,
		"min interval": IntervalSeconds,
		"peers":        peers,
	})
}

// TruncatePeers caps b (a concatenation of 6-byte peer identities) to at
// most MaxPeersPerSwarmSide entries.
func TruncatePeers(b []byte) []byte {
	max := MaxPeersPerSwarmSide * PeerLen
	if len(b) > max {
		return b[:max]
	}
	return b
}
