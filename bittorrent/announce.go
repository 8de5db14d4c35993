package bittorrent

// Event is the client-reported lifecycle event of an announce (§3, §4.4).
type Event uint8

const (
	// None is the default event: a periodic refresh announce.
	None Event = iota
	// Started marks a peer's first announce for a torrent. Treated
	// identically to None throughout the engine (§9, open question #3).
	Started
	// Completed marks a peer transitioning from leecher to seeder.
	Completed
	// Stopped marks a peer leaving the swarm.
	Stopped
)

// String implements fmt.Stringer.
func (e Event) String() string {
	switch e {
	case Started:
		return "started"
	case Completed:
		return "completed"
	case Stopped:
		return "stopped"
	default:
		return "none"
	}
}

// ParseEvent maps the wire representation of the event parameter. Anything
// unrecognized, including an absent parameter, maps to None (§4.2).
func ParseEvent(s string) Event {
	switch s {
	case "started":
		return Started
	case "completed":
		return Completed
	case "stopped":
		return Stopped
	default:
		return None
	}
}

// Announce is the normalized result of parsing an announce request (§3).
type Announce struct {
	InfoHash  InfoHash
	PeerID    [20]byte // accepted, not stored
	PeerAddr  PeerAddr
	Event     Event
	IsSeeding bool
}
