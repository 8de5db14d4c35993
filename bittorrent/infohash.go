// Package bittorrent implements the wire-level primitives of the tracker:
// info-hashes, compact peer addresses, percent-decoding, and the per-torrent
// store keys derived from an info-hash.
package bittorrent

import (
	"encoding/hex"
)

// InfoHashLen is the length in bytes of a valid info-hash. Only BitTorrent
// v1 (SHA-1) info-hashes are supported; anything else is a client error.
const InfoHashLen = 20

// InfoHash is the opaque 20-byte identifier of a torrent's metadata and the
// primary key of a swarm.
type InfoHash [InfoHashLen]byte

// ErrInvalidInfoHash is returned when a byte slice is not exactly
// InfoHashLen bytes long.
var ErrInvalidInfoHash = ClientError("Infohash is not 20 bytes")

// NewInfoHash copies b into an InfoHash, failing if b is not InfoHashLen
// bytes long.
func NewInfoHash(b []byte) (InfoHash, error) {
	var h InfoHash
	if len(b) != InfoHashLen {
		return h, ErrInvalidInfoHash
	}
	copy(h[:], b)
	return h, nil
}

// String implements fmt.Stringer, returning the base16 encoding of h.
func (h InfoHash) String() string {
	return hex.EncodeToString(h[:])
}

// key suffixes for the three per-torrent store keys (§4.1).
const (
	seedersSuffix  = "_seeders"
	leechersSuffix = "_leechers"
	cacheSuffix    = "_cache"
)

// SeedersKey returns the binary-safe store key of the seeders sorted set
// S(h): h ++ "_seeders".
func (h InfoHash) SeedersKey() []byte { return h.keyWithSuffix(seedersSuffix) }

// LeechersKey returns the binary-safe store key of the leechers sorted set
// L(h): h ++ "_leechers".
func (h InfoHash) LeechersKey() []byte { return h.keyWithSuffix(leechersSuffix) }

// CacheKey returns the binary-safe store key of the response cache C(h):
// h ++ "_cache".
func (h InfoHash) CacheKey() []byte { return h.keyWithSuffix(cacheSuffix) }

// HashKey returns the binary-safe key naming the info-hash's own hash
// entity (fields "seeders", "leechers", "downloaded"). It is simply the raw
// info-hash bytes.
func (h InfoHash) HashKey() []byte {
	b := make([]byte, InfoHashLen)
	copy(b, h[:])
	return b
}

func (h InfoHash) keyWithSuffix(suffix string) []byte {
	b := make([]byte, 0, InfoHashLen+len(suffix))
	b = append(b, h[:]...)
	b = append(b, suffix...)
	return b
}
