// Package engine implements the announce engine (§4.4): the two-phase
// per-request swarm-membership state machine, cache coherence, and
// response-body selection sitting between the HTTP frontend and the
// storage adapter.
package engine

import (
	"context"
	"math/rand"
	"time"

	"github.com/sot-tech/mochi-redis-tracker/bittorrent"
	"github.com/sot-tech/mochi-redis-tracker/response"
	"github.com/sot-tech/mochi-redis-tracker/storage"
)

// Config bounds the detached Phase B queue (§5, §9 "Detached write-back").
type Config struct {
	// QueueSize is the many-to-one diode's ring buffer capacity; under
	// sustained overload the oldest unread job is dropped rather than
	// blocking an announce.
	QueueSize int
	// Workers is the number of goroutines draining the diode.
	Workers int
}

// DefaultConfig matches a lightly loaded single-process deployment.
var DefaultConfig = Config{QueueSize: 4096, Workers: 4}

// Engine runs the per-announce state machine against a storage.Backend,
// detaching all write-back I/O onto a bounded queue (§5, §9).
type Engine struct {
	store storage.Backend
	queue *writebackQueue
}

// New constructs an Engine over store, starting its Phase B worker pool.
func New(store storage.Backend, cfg Config) *Engine {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig.QueueSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig.Workers
	}
	return &Engine{store: store, queue: newWritebackQueue(cfg.QueueSize, cfg.Workers)}
}

// Close stops the Phase B worker pool. Any job still queued is dropped.
func (e *Engine) Close() { e.queue.stop() }

// ErrStore is a bittorrent.ClientError-free marker of a Phase A store
// failure; the frontend maps it to a generic 500 without leaking the
// underlying cause (§7).
type ErrStore struct{ Cause error }

func (e *ErrStore) Error() string { return "store error: " + e.Cause.Error() }
func (e *ErrStore) Unwrap() error { return e.Cause }

// Announce runs one full announce (§4.4): Phase A synchronously, then
// detaches Phase B before returning the bencoded response body.
func (e *Engine) Announce(ctx context.Context, a bittorrent.Announce) ([]byte, error) {
	start := time.Now()
	h := a.InfoHash

	presence, err := e.store.ReadPresenceAndCache(ctx, h, a.PeerAddr)
	if err != nil {
		return nil, &ErrStore{Cause: err}
	}

	now := time.Now()
	wb := e.store.NewWriteBack(context.Background())

	var seedDelta, leechDelta int

	switch {
	case a.Event == bittorrent.Stopped:
		switch {
		case bool(presence.SeederPresence):
			wb.DeleteSeeder(h, a.PeerAddr)
			seedDelta = -1
		case bool(presence.LeecherPresence):
			wb.DeleteLeecher(h, a.PeerAddr)
			leechDelta = -1
		}
	case a.IsSeeding:
		wb.PutSeeder(h, a.PeerAddr, now)
		if !bool(presence.SeederPresence) {
			seedDelta = 1
		}
		if a.Event == bittorrent.Completed && bool(presence.LeecherPresence) {
			wb.DeleteLeecher(h, a.PeerAddr)
			leechDelta = -1
			wb.IncrDownloaded(h)
		}
	default:
		wb.PutLeecher(h, a.PeerAddr, now)
		if !bool(presence.LeecherPresence) {
			leechDelta = 1
		}
	}

	wb.TouchTorrents(h, now)

	body, err := e.buildResponseBody(ctx, h, presence, seedDelta, leechDelta, wb)
	if err != nil {
		return nil, &ErrStore{Cause: err}
	}

	if seedDelta != 0 || leechDelta != 0 {
		wb.DeleteCache(h)
		if seedDelta != 0 {
			wb.IncrField(h, storage.FieldSeeders, seedDelta)
		}
		if leechDelta != 0 {
			wb.IncrField(h, storage.FieldLeechers, leechDelta)
		}
	} else {
		wb.SetCache(h, body, e.store.CacheTTL())
		wb.IncrNoChangeCount()
	}

	wb.IncrAnnounceCount()
	wb.AddReqDurationMs(time.Since(start).Milliseconds())

	job := &writebackJob{
		submit: func() error { return e.store.Submit(context.Background(), wb) },
		nowMs:  now.UnixMilli(),
		seedD:  seedDelta,
		leechD: leechDelta,
	}
	e.queue.push(job)

	return body, nil
}

// buildResponseBody selects the cache-hit or cache-miss path (§4.4
// "Response body selection"). On a cache hit it also bumps the cache-hit
// counter on wb; on a miss it issues the second Phase A read and encodes a
// fresh body.
func (e *Engine) buildResponseBody(ctx context.Context, h bittorrent.InfoHash, presence storage.PhaseARead, seedDelta, leechDelta int, wb storage.WriteBack) ([]byte, error) {
	if len(presence.Cached) > 0 {
		wb.IncrCacheHitCount()
		return presence.Cached, nil
	}

	seeders, leechers, err := e.store.ReadLiveMembers(ctx, h, time.Now(), response.MaxPeersPerSwarmSide)
	if err != nil {
		return nil, err
	}

	shuffleLeechers(leechers)

	seederBytes := response.TruncatePeers(flattenPeers(seeders))
	leecherBytes := response.TruncatePeers(flattenPeers(leechers))

	complete := deltaCount(len(seeders), seedDelta)
	incomplete := deltaCount(len(leechers), leechDelta)

	return response.Encode(complete, incomplete, seederBytes, leecherBytes)
}

// deltaCount applies delta to a live count, per §4.4: "counts
// len(seeders_live)+seed_Δ and len(leechers_live)+leech_Δ". Clamped at
// zero; delta is always in {-1, 0, 1} per the event table so this never
// masks a real discrepancy.
func deltaCount(live, delta int) uint32 {
	n := live + delta
	if n < 0 {
		n = 0
	}
	return uint32(n)
}

// flattenPeers concatenates a slice of raw 6-byte peer blobs into one
// contiguous buffer, the shape response.Encode expects.
func flattenPeers(peers [][]byte) []byte {
	out := make([]byte, 0, len(peers)*response.PeerLen)
	for _, p := range peers {
		out = append(out, p...)
	}
	return out
}

// shuffleLeechers randomizes the leecher slice in place before it's
// returned to the client, so older leechers also get a chance to be
// selected by new peers. Seeders are never shuffled.
func shuffleLeechers(leechers [][]byte) {
	rand.Shuffle(len(leechers), func(i, j int) {
		leechers[i], leechers[j] = leechers[j], leechers[i]
	})
}
