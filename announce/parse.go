// Package announce implements the BitTorrent announce query parser (§4.2):
// it consumes a transport peer address and a raw, percent-encoded query
// string and produces a normalized bittorrent.Announce record.
package announce

import (
	"net"
	"strconv"

	"github.com/sot-tech/mochi-redis-tracker/bittorrent"
)

// ErrMissingPort is returned when the port parameter is absent or does not
// parse as a uint16 (§4.2).
var ErrMissingPort = bittorrent.ClientError("Failed to parse announce")

// rawParam is a percent-decoded key/value pair.
type rawParam struct {
	key, val []byte
}

// Parse consumes (clientIP, rawQuery) and produces a normalized Announce
// record, or a bittorrent.ClientError safe to surface to the caller
// verbatim (§4.2, §7).
//
// rawQuery is everything after '?'. The caller is responsible for the
// '%' -> "%25" pre-escape step (done once, at the HTTP edge; see
// bittorrent.EscapeBarePercent) before calling Parse.
func Parse(clientIP net.IP, rawQuery []byte) (bittorrent.Announce, error) {
	var a bittorrent.Announce

	params, err := splitParams(rawQuery)
	if err != nil {
		return a, err
	}

	var (
		infoHashSet bool
		portSet     bool
		port        uint16
		left        uint64
		leftSet     bool
		ipRaw       []byte
		ipSet       bool
		event       = bittorrent.None
	)

	for _, p := range params {
		switch string(p.key) {
		case "info_hash":
			h, err := bittorrent.NewInfoHash(p.val)
			if err != nil {
				return a, err
			}
			a.InfoHash = h
			infoHashSet = true
		case "peer_id":
			if len(p.val) == 20 {
				copy(a.PeerID[:], p.val)
			}
		case "port":
			v, err := strconv.ParseUint(string(p.val), 10, 16)
			if err != nil {
				return a, ErrMissingPort
			}
			port = uint16(v)
			portSet = true
		case "left":
			v, err := strconv.ParseUint(string(p.val), 10, 64)
			if err != nil {
				return a, bittorrent.ErrParseFailure
			}
			left = v
			leftSet = true
		case "event":
			event = bittorrent.ParseEvent(string(p.val))
		case "ip":
			ipRaw = p.val
			ipSet = true
		}
	}

	if !infoHashSet {
		return a, bittorrent.ErrInvalidInfoHash
	}
	if !portSet {
		return a, ErrMissingPort
	}

	// The last "ip" occurrence wins, same dedup rule as every other
	// parameter above; it is accepted only if it parses as IPv4, otherwise
	// silently falling back to the transport peer address (§4.2).
	ip := clientIP
	if ipSet {
		if parsed := net.ParseIP(string(ipRaw)); parsed != nil && parsed.To4() != nil {
			ip = parsed
		}
	}

	peerAddr, err := bittorrent.NewPeerAddr(ip, port)
	if err != nil {
		return a, bittorrent.ErrParseFailure
	}

	a.PeerAddr = peerAddr
	a.Event = event
	// missing `left` => treated as non-zero (leecher), §8 boundary behavior
	a.IsSeeding = leftSet && left == 0

	return a, nil
}

// splitParams splits rawQuery on '&', then each pair on the first '=',
// percent-decoding key and value as bytes. Duplicate keys: last occurrence
// wins, since later entries overwrite earlier assignments in Parse's loop.
func splitParams(rawQuery []byte) ([]rawParam, error) {
	var params []rawParam
	for _, pair := range splitByte(rawQuery, '&') {
		if len(pair) == 0 {
			continue
		}
		key, val, _ := cutByte(pair, '=')
		dk, err := bittorrent.PercentDecode(key)
		if err != nil {
			return nil, bittorrent.ErrParseFailure
		}
		dv, err := bittorrent.PercentDecode(val)
		if err != nil {
			return nil, bittorrent.ErrParseFailure
		}
		params = append(params, rawParam{key: dk, val: dv})
	}
	return params, nil
}

// splitByte splits b on every occurrence of sep, like bytes.Split with a
// single-byte separator: the results are subslices of b.
func splitByte(b []byte, sep byte) [][]byte {
	var out [][]byte
	start := 0
	for i := 0; i < len(b); i++ {
		if b[i] == sep {
			out = append(out, b[start:i])
			start = i + 1
		}
	}
	out = append(out, b[start:])
	return out
}

// cutByte splits b on the first occurrence of sep.
func cutByte(b []byte, sep byte) (before, after []byte, found bool) {
	for i := 0; i < len(b); i++ {
		if b[i] == sep {
			return b[:i], b[i+1:], true
		}
	}
	return b, nil, false
}
