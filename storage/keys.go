package storage

// Global keys (§3), independent of any single info-hash.
const (
	// TorrentsKey is the sorted set of every swarm ever touched: score is
	// last-touched ms, member is the raw info-hash bytes.
	TorrentsKey = "TORRENTS"

	CounterAnnounces        = "ANNOUNCE_COUNT"
	CounterCacheHits        = "CACHE_HIT_ANNOUNCE_COUNT"
	CounterNoChange         = "NOCHANGE_ANNOUNCE_COUNT"
	CounterReqDurationTotal = "REQ_DURATION_TOTAL_MS"
)

// Hash field names on the per-info-hash hash entity (§3).
const (
	FieldSeeders    = "seeders"
	FieldLeechers   = "leechers"
	FieldDownloaded = "downloaded"
)
