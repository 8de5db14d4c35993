package bittorrent

// ClientError represents an error that is safe to expose to the client
// verbatim over the BitTorrent protocol.
type ClientError string

// Error implements the error interface for ClientError.
func (c ClientError) Error() string { return string(c) }

// Sentinel client-visible errors (§4.2, §6).
const (
	// ErrParseFailure is returned when the raw query cannot be decoded at
	// all (bad percent-encoding, malformed port, ...).
	ErrParseFailure = ClientError("Failed to parse announce")
	// ErrIPv6NotSupported is returned when the transport peer address is
	// IPv6; rejected at ingress before the parser runs (Non-goal: IPv6).
	ErrIPv6NotSupported = ClientError("IPv6 not supported")
)
