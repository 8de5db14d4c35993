package bittorrent

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewInfoHashLength(t *testing.T) {
	_, err := NewInfoHash(make([]byte, 19))
	require.ErrorIs(t, err, ErrInvalidInfoHash)

	_, err = NewInfoHash(make([]byte, 21))
	require.ErrorIs(t, err, ErrInvalidInfoHash)

	h, err := NewInfoHash(bytes.Repeat([]byte{0xAB}, 20))
	require.NoError(t, err)
	require.Equal(t, "abababababababababababababababababababab"[:40], h.String())
}

func TestInfoHashKeys(t *testing.T) {
	h, err := NewInfoHash(bytes.Repeat([]byte{0x01}, InfoHashLen))
	require.NoError(t, err)

	require.Equal(t, append(bytes.Repeat([]byte{0x01}, InfoHashLen), "_seeders"...), h.SeedersKey())
	require.Equal(t, append(bytes.Repeat([]byte{0x01}, InfoHashLen), "_leechers"...), h.LeechersKey())
	require.Equal(t, append(bytes.Repeat([]byte{0x01}, InfoHashLen), "_cache"...), h.CacheKey())
	require.Equal(t, bytes.Repeat([]byte{0x01}, InfoHashLen), h.HashKey())
}
