package storage

import (
	"context"
	"time"

	"github.com/sot-tech/mochi-redis-tracker/bittorrent"
)

// WriteBack is the set of typed pipeline operations the announce engine
// accumulates during Phase A and submits in Phase B (§4.4, §4.5). *Store
// produces pipeline-backed implementations; storage/redistest produces
// in-memory fakes for tests, so the engine never imports the redis client
// directly.
type WriteBack interface {
	PutSeeder(h bittorrent.InfoHash, peer bittorrent.PeerAddr, now time.Time)
	PutLeecher(h bittorrent.InfoHash, peer bittorrent.PeerAddr, now time.Time)
	DeleteSeeder(h bittorrent.InfoHash, peer bittorrent.PeerAddr)
	DeleteLeecher(h bittorrent.InfoHash, peer bittorrent.PeerAddr)
	IncrDownloaded(h bittorrent.InfoHash)
	IncrField(h bittorrent.InfoHash, field string, delta int)
	DeleteCache(h bittorrent.InfoHash)
	SetCache(h bittorrent.InfoHash, body []byte, ttl time.Duration)
	TouchTorrents(h bittorrent.InfoHash, now time.Time)
	IncrAnnounceCount()
	IncrCacheHitCount()
	IncrNoChangeCount()
	AddReqDurationMs(ms int64)
}

// Backend is everything the announce engine needs from a store
// implementation. *Store implements it against real Redis;
// storage/redistest.Fake implements it in memory for tests.
type Backend interface {
	ReadPresenceAndCache(ctx context.Context, h bittorrent.InfoHash, peer bittorrent.PeerAddr) (PhaseARead, error)
	ReadLiveMembers(ctx context.Context, h bittorrent.InfoHash, now time.Time, limit int64) (seeders, leechers [][]byte, err error)
	NewWriteBack(ctx context.Context) WriteBack
	Submit(ctx context.Context, wb WriteBack) error
	Ping(ctx context.Context) error
	CacheTTL() time.Duration
	PeerLifetime() time.Duration
}

var (
	_ Backend = (*Store)(nil)
)
