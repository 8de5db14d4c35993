package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sot-tech/mochi-redis-tracker/bittorrent"
)

// pipelineWriteBack accumulates the Phase B commands for one announce into a
// single pipeline, submitted as one round trip by Store.Submit (§4.4,
// §5). Method names (PutSeeder/DeleteSeeder/...) follow a swarm-interaction
// naming convention that builds a pipeline instead of calling a generic
// peer-storage interface synchronously.
type pipelineWriteBack struct {
	ctx  context.Context
	pipe redis.Pipeliner
}

var _ WriteBack = (*pipelineWriteBack)(nil)

// PutSeeder refreshes (or inserts) peer in S(h) with score now.
func (wb *pipelineWriteBack) PutSeeder(h bittorrent.InfoHash, peer bittorrent.PeerAddr, now time.Time) {
	wb.pipe.ZAdd(wb.ctx, string(h.SeedersKey()), redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: string(peer.Bytes()),
	})
}

// PutLeecher refreshes (or inserts) peer in L(h) with score now.
func (wb *pipelineWriteBack) PutLeecher(h bittorrent.InfoHash, peer bittorrent.PeerAddr, now time.Time) {
	wb.pipe.ZAdd(wb.ctx, string(h.LeechersKey()), redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: string(peer.Bytes()),
	})
}

// DeleteSeeder removes peer from S(h).
func (wb *pipelineWriteBack) DeleteSeeder(h bittorrent.InfoHash, peer bittorrent.PeerAddr) {
	wb.pipe.ZRem(wb.ctx, string(h.SeedersKey()), string(peer.Bytes()))
}

// DeleteLeecher removes peer from L(h).
func (wb *pipelineWriteBack) DeleteLeecher(h bittorrent.InfoHash, peer bittorrent.PeerAddr) {
	wb.pipe.ZRem(wb.ctx, string(h.LeechersKey()), string(peer.Bytes()))
}

// IncrDownloaded bumps the "downloaded" field on h's hash entity by 1
// (§3: incremented exactly on an explicit completed event).
func (wb *pipelineWriteBack) IncrDownloaded(h bittorrent.InfoHash) {
	wb.pipe.HIncrBy(wb.ctx, string(h.HashKey()), FieldDownloaded, 1)
}

// IncrField bumps one of the "seeders"/"leechers" hash fields by delta.
// Callers only invoke this for non-zero deltas (§4.4 cache coherence
// rule).
func (wb *pipelineWriteBack) IncrField(h bittorrent.InfoHash, field string, delta int) {
	wb.pipe.HIncrBy(wb.ctx, string(h.HashKey()), field, int64(delta))
}

// DeleteCache removes C(h), the required reaction to any non-zero
// seeder/leecher delta (§4.4 cache coherence, §8 invariant 4).
func (wb *pipelineWriteBack) DeleteCache(h bittorrent.InfoHash) {
	wb.pipe.Del(wb.ctx, string(h.CacheKey()))
}

// SetCache stores body as C(h) with the adapter's configured TTL. Safe to
// call even on a cache hit; SET is idempotent.
func (wb *pipelineWriteBack) SetCache(h bittorrent.InfoHash, body []byte, ttl time.Duration) {
	wb.pipe.Set(wb.ctx, string(h.CacheKey()), body, ttl)
}

// TouchTorrents unconditionally re-scores h in the global TORRENTS sorted
// set (§4.4: "The touch ZADD TORRENTS now h is always appended").
func (wb *pipelineWriteBack) TouchTorrents(h bittorrent.InfoHash, now time.Time) {
	wb.pipe.ZAdd(wb.ctx, TorrentsKey, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: string(h[:]),
	})
}

// IncrAnnounceCount bumps the global ANNOUNCE_COUNT counter.
func (wb *pipelineWriteBack) IncrAnnounceCount() {
	wb.pipe.Incr(wb.ctx, CounterAnnounces)
}

// IncrCacheHitCount bumps CACHE_HIT_ANNOUNCE_COUNT.
func (wb *pipelineWriteBack) IncrCacheHitCount() {
	wb.pipe.Incr(wb.ctx, CounterCacheHits)
}

// IncrNoChangeCount bumps NOCHANGE_ANNOUNCE_COUNT.
func (wb *pipelineWriteBack) IncrNoChangeCount() {
	wb.pipe.Incr(wb.ctx, CounterNoChange)
}

// AddReqDurationMs accumulates ms into REQ_DURATION_TOTAL_MS.
func (wb *pipelineWriteBack) AddReqDurationMs(ms int64) {
	wb.pipe.IncrBy(wb.ctx, CounterReqDurationTotal, ms)
}
