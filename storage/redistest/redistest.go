// Package redistest provides an in-memory storage.Backend double for tests
// and benchmarks of the announce engine, so engine tests never need a real
// Redis instance. Its peer maps are sharded by xxhash of the info-hash,
// against the fixed Redis-shaped data model storage.Backend describes
// rather than a generic peer-storage interface.
package redistest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/sot-tech/mochi-redis-tracker/bittorrent"
	"github.com/sot-tech/mochi-redis-tracker/storage"
)

const shardCount = 32

type member struct {
	peer  bittorrent.PeerAddr
	score int64 // ms
}

type shard struct {
	mu       sync.Mutex
	seeders  map[bittorrent.InfoHash]map[bittorrent.PeerAddr]int64
	leechers map[bittorrent.InfoHash]map[bittorrent.PeerAddr]int64
	cache    map[bittorrent.InfoHash][]byte
	fields   map[bittorrent.InfoHash]map[string]int64
}

func newShard() *shard {
	return &shard{
		seeders:  make(map[bittorrent.InfoHash]map[bittorrent.PeerAddr]int64),
		leechers: make(map[bittorrent.InfoHash]map[bittorrent.PeerAddr]int64),
		cache:    make(map[bittorrent.InfoHash][]byte),
		fields:   make(map[bittorrent.InfoHash]map[string]int64),
	}
}

// Fake is an in-memory storage.Backend. Zero value is not usable; use New.
type Fake struct {
	shards       [shardCount]*shard
	cacheTTL     time.Duration
	peerLifetime time.Duration

	mu       sync.Mutex
	counters map[string]int64
	torrents map[bittorrent.InfoHash]int64
}

var _ storage.Backend = (*Fake)(nil)

// New constructs a Fake with the given cache TTL and peer lifetime (the
// values storage.Config would otherwise supply).
func New(cacheTTL, peerLifetime time.Duration) *Fake {
	f := &Fake{
		cacheTTL:     cacheTTL,
		peerLifetime: peerLifetime,
		counters:     make(map[string]int64),
		torrents:     make(map[bittorrent.InfoHash]int64),
	}
	for i := range f.shards {
		f.shards[i] = newShard()
	}
	return f
}

func (f *Fake) shardFor(h bittorrent.InfoHash) *shard {
	return f.shards[xxhash.Sum64(h[:])%shardCount]
}

func (f *Fake) CacheTTL() time.Duration     { return f.cacheTTL }
func (f *Fake) PeerLifetime() time.Duration { return f.peerLifetime }

func (f *Fake) Ping(context.Context) error { return nil }

func (f *Fake) ReadPresenceAndCache(_ context.Context, h bittorrent.InfoHash, peer bittorrent.PeerAddr) (storage.PhaseARead, error) {
	s := f.shardFor(h)
	s.mu.Lock()
	defer s.mu.Unlock()

	var out storage.PhaseARead
	if _, ok := s.seeders[h][peer]; ok {
		out.SeederPresence = storage.Present
	}
	if _, ok := s.leechers[h][peer]; ok {
		out.LeecherPresence = storage.Present
	}
	if body, ok := s.cache[h]; ok && len(body) > 0 {
		out.Cached = append([]byte(nil), body...)
	}
	return out, nil
}

func (f *Fake) ReadLiveMembers(_ context.Context, h bittorrent.InfoHash, now time.Time, limit int64) (seeders, leechers [][]byte, err error) {
	s := f.shardFor(h)
	s.mu.Lock()
	defer s.mu.Unlock()

	minMs := now.Add(-f.peerLifetime).UnixMilli()
	maxMs := now.UnixMilli()

	seeders = liveMembers(s.seeders[h], minMs, maxMs, limit)
	leechers = liveMembers(s.leechers[h], minMs, maxMs, limit)
	return seeders, leechers, nil
}

func liveMembers(m map[bittorrent.PeerAddr]int64, minMs, maxMs, limit int64) [][]byte {
	var members []member
	for p, score := range m {
		if score >= minMs && score <= maxMs {
			members = append(members, member{peer: p, score: score})
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].score < members[j].score })
	if limit > 0 && int64(len(members)) > limit {
		members = members[:limit]
	}
	out := make([][]byte, len(members))
	for i, mm := range members {
		out[i] = mm.peer.Bytes()
	}
	return out
}

func (f *Fake) NewWriteBack(ctx context.Context) storage.WriteBack {
	return &fakeWriteBack{f: f, ctx: ctx}
}

func (f *Fake) Submit(ctx context.Context, wb storage.WriteBack) error {
	fw, ok := wb.(*fakeWriteBack)
	if !ok {
		return nil
	}
	for _, op := range fw.ops {
		op()
	}
	return nil
}

// fakeWriteBack records operations and applies them only on Submit, the
// same "queue then execute as one unit" shape as the real pipeline.
type fakeWriteBack struct {
	f   *Fake
	ctx context.Context
	ops []func()
}

var _ storage.WriteBack = (*fakeWriteBack)(nil)

func (w *fakeWriteBack) PutSeeder(h bittorrent.InfoHash, peer bittorrent.PeerAddr, now time.Time) {
	w.ops = append(w.ops, func() {
		s := w.f.shardFor(h)
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.seeders[h] == nil {
			s.seeders[h] = make(map[bittorrent.PeerAddr]int64)
		}
		s.seeders[h][peer] = now.UnixMilli()
	})
}

func (w *fakeWriteBack) PutLeecher(h bittorrent.InfoHash, peer bittorrent.PeerAddr, now time.Time) {
	w.ops = append(w.ops, func() {
		s := w.f.shardFor(h)
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.leechers[h] == nil {
			s.leechers[h] = make(map[bittorrent.PeerAddr]int64)
		}
		s.leechers[h][peer] = now.UnixMilli()
	})
}

func (w *fakeWriteBack) DeleteSeeder(h bittorrent.InfoHash, peer bittorrent.PeerAddr) {
	w.ops = append(w.ops, func() {
		s := w.f.shardFor(h)
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.seeders[h], peer)
	})
}

func (w *fakeWriteBack) DeleteLeecher(h bittorrent.InfoHash, peer bittorrent.PeerAddr) {
	w.ops = append(w.ops, func() {
		s := w.f.shardFor(h)
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.leechers[h], peer)
	})
}

func (w *fakeWriteBack) IncrDownloaded(h bittorrent.InfoHash) {
	w.IncrField(h, storage.FieldDownloaded, 1)
}

func (w *fakeWriteBack) IncrField(h bittorrent.InfoHash, field string, delta int) {
	w.ops = append(w.ops, func() {
		s := w.f.shardFor(h)
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.fields[h] == nil {
			s.fields[h] = make(map[string]int64)
		}
		s.fields[h][field] += int64(delta)
	})
}

func (w *fakeWriteBack) DeleteCache(h bittorrent.InfoHash) {
	w.ops = append(w.ops, func() {
		s := w.f.shardFor(h)
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.cache, h)
	})
}

func (w *fakeWriteBack) SetCache(h bittorrent.InfoHash, body []byte, _ time.Duration) {
	cp := append([]byte(nil), body...)
	w.ops = append(w.ops, func() {
		s := w.f.shardFor(h)
		s.mu.Lock()
		defer s.mu.Unlock()
		s.cache[h] = cp
	})
}

func (w *fakeWriteBack) TouchTorrents(h bittorrent.InfoHash, now time.Time) {
	w.ops = append(w.ops, func() {
		w.f.mu.Lock()
		defer w.f.mu.Unlock()
		w.f.torrents[h] = now.UnixMilli()
	})
}

func (w *fakeWriteBack) IncrAnnounceCount() { w.incrCounter(storage.CounterAnnounces, 1) }
func (w *fakeWriteBack) IncrCacheHitCount() { w.incrCounter(storage.CounterCacheHits, 1) }
func (w *fakeWriteBack) IncrNoChangeCount() { w.incrCounter(storage.CounterNoChange, 1) }
func (w *fakeWriteBack) AddReqDurationMs(ms int64) {
	w.incrCounter(storage.CounterReqDurationTotal, ms)
}

func (w *fakeWriteBack) incrCounter(name string, delta int64) {
	w.ops = append(w.ops, func() {
		w.f.mu.Lock()
		defer w.f.mu.Unlock()
		w.f.counters[name] += delta
	})
}

// Counter returns the current value of a global counter, for test
// assertions.
func (f *Fake) Counter(name string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counters[name]
}

// Field returns the current value of a hash field on h, for test
// assertions.
func (f *Fake) Field(h bittorrent.InfoHash, field string) int64 {
	s := f.shardFor(h)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fields[h][field]
}

// TorrentsScore returns the last-touched ms recorded for h in TORRENTS, and
// whether h has ever been touched.
func (f *Fake) TorrentsScore(h bittorrent.InfoHash) (int64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.torrents[h]
	return v, ok
}
