package bittorrent

import (
	"fmt"
	"net"
)

// PeerLen is the length in bytes of a compact peer identity: 4-byte IPv4
// address, big-endian, followed by a 2-byte big-endian port (§3, §4.1).
const PeerLen = 6

// ErrIPv4Only is returned when an address is not a 4-byte IPv4 address.
// IPv6 peers are rejected at ingress (Non-goal).
var ErrIPv4Only = ClientError("IPv6 not supported")

// PeerAddr is the 6-byte compact peer identity stored as the member of a
// swarm's seeders/leechers sorted set.
type PeerAddr [PeerLen]byte

// NewPeerAddr builds the compact peer identity ip_port(a.b.c.d, p) =
// [a, b, c, d, (p>>8)&0xff, p&0xff] (§4.1).
func NewPeerAddr(ip net.IP, port uint16) (PeerAddr, error) {
	var p PeerAddr
	v4 := ip.To4()
	if v4 == nil {
		return p, ErrIPv4Only
	}
	copy(p[:4], v4)
	p[4] = byte(port >> 8)
	p[5] = byte(port)
	return p, nil
}

// IP returns the IPv4 address portion of the peer identity.
func (p PeerAddr) IP() net.IP {
	ip := make(net.IP, net.IPv4len)
	copy(ip, p[:4])
	return ip
}

// Port returns the port portion of the peer identity.
func (p PeerAddr) Port() uint16 {
	return uint16(p[4])<<8 | uint16(p[5])
}

// Bytes returns the raw 6-byte wire representation.
func (p PeerAddr) Bytes() []byte {
	b := make([]byte, PeerLen)
	copy(b, p[:])
	return b
}

// String implements fmt.Stringer.
func (p PeerAddr) String() string {
	return fmt.Sprintf("%s:%d", p.IP().String(), p.Port())
}

// ParsePeerAddr reconstructs a PeerAddr from its raw 6-byte wire form, as
// returned by a ZRANGEBYSCORE reply.
func ParsePeerAddr(b []byte) (PeerAddr, error) {
	var p PeerAddr
	if len(b) != PeerLen {
		return p, fmt.Errorf("peer identity must be %d bytes, got %d", PeerLen, len(b))
	}
	copy(p[:], b)
	return p, nil
}
