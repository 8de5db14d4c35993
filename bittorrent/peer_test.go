package bittorrent

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPeerAddrEncoding(t *testing.T) {
	p, err := NewPeerAddr(net.IPv4(1, 2, 3, 4), 6881)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4, 0x1a, 0xe1}, p.Bytes())
	require.Equal(t, uint16(6881), p.Port())
	require.True(t, p.IP().Equal(net.IPv4(1, 2, 3, 4)))
}

func TestNewPeerAddrRejectsIPv6(t *testing.T) {
	_, err := NewPeerAddr(net.ParseIP("2001:db8::1"), 1)
	require.ErrorIs(t, err, ErrIPv4Only)
}

func TestPeerAddrBoundaryPorts(t *testing.T) {
	for _, port := range []uint16{0, 1, 65535} {
		p, err := NewPeerAddr(net.IPv4(10, 0, 0, 1), port)
		require.NoError(t, err)
		require.Equal(t, port, p.Port())
	}
}

func TestParsePeerAddrRoundTrip(t *testing.T) {
	p, err := NewPeerAddr(net.IPv4(192, 168, 1, 1), 443)
	require.NoError(t, err)

	got, err := ParsePeerAddr(p.Bytes())
	require.NoError(t, err)
	require.Equal(t, p, got)
}

func TestParsePeerAddrRejectsShortInput(t *testing.T) {
	_, err := ParsePeerAddr([]byte{1, 2, 3})
	require.Error(t, err)
}
