package bittorrent

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPercentDecode(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "plain", in: "hello", want: "hello"},
		{name: "escaped space", in: "a%20b", want: "a b"},
		{name: "plus not decoded", in: "a+b", want: "a+b"},
		{name: "binary byte", in: "%00%ff", want: "\x00\xff"},
		{name: "bad hex", in: "%zz", wantErr: true},
		{name: "truncated escape", in: "%4", wantErr: true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := PercentDecode([]byte(c.in))
			if c.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, c.want, string(got))
		})
	}
}

// percentEncodeAll escapes every byte as %XX; used only to build round-trip
// fixtures in this test.
func percentEncodeAll(b []byte) []byte {
	out := make([]byte, 0, len(b)*3)
	for _, c := range b {
		out = append(out, []byte(fmt.Sprintf("%%%02X", c))...)
	}
	return out
}

func TestPercentEncodeDecodeRoundTrip(t *testing.T) {
	samples := [][]byte{
		[]byte(""),
		[]byte("hello world"),
		{0, 1, 2, 3, 255, 254, 'a', 'Z', '%', '&', '='},
		make([]byte, 20), // a zeroed info-hash
	}
	for _, s := range samples {
		encoded := percentEncodeAll(s)
		decoded, err := PercentDecode(encoded)
		require.NoError(t, err)
		require.Equal(t, s, decoded)
	}
}

func TestEscapeBarePercent(t *testing.T) {
	// A bare '%' not followed by two hex digits is preserved as a literal
	// '%' once escaped and decoded (§4.1).
	escaped := EscapeBarePercent([]byte("100% done"))
	decoded, err := PercentDecode(escaped)
	require.NoError(t, err)
	require.Equal(t, "100% done", string(decoded))

	// A '%' that is already the start of a valid escape is left untouched
	// by EscapeBarePercent and decodes as that escape.
	escaped = EscapeBarePercent([]byte("%41"))
	decoded, err = PercentDecode(escaped)
	require.NoError(t, err)
	require.Equal(t, "A", string(decoded))
}
