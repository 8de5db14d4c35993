// Package storage implements the §4.5 store adapter: a thin typed wrapper
// over pipelined Redis commands, with value decoding that keeps the
// announce engine free of nil checks (§9, "presence-as-a-tagged-variant").
package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/sot-tech/mochi-redis-tracker/bittorrent"
)

var logger = zerolog.Nop().With().Str("component", Name).Logger()

// SetLogger overrides the package-scoped logger; cmd/tracker wires this
// once at startup for every per-subsystem logger.
func SetLogger(l zerolog.Logger) { logger = l.With().Str("component", Name).Logger() }

// Presence is the tagged two-valued result of a ZSCORE probe: the engine
// never needs the score itself, only whether the member exists (§9).
type Presence bool

const (
	Absent  Presence = false
	Present Presence = true
)

// Store is the pipelined Redis adapter used by the announce engine.
type Store struct {
	client *redis.Client
	cfg    Config
}

// New dials a redis client per cfg and verifies connectivity with PING.
// A failure here is fatal at process startup (§7).
func New(cfg Config) (*Store, error) {
	cfg = cfg.Validate(logger)

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}

	return &Store{client: client, cfg: cfg}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.client.Close() }

// RedisClient exposes the underlying *redis.Client for the metrics
// exporter, which reads the global counter keys directly rather than
// through the WriteBack/Backend abstraction (it is observational, not
// part of the announce path, §9 "Global state").
func (s *Store) RedisClient() *redis.Client { return s.client }

// Ping backs the /healthz endpoint (§6).
func (s *Store) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }

// CacheTTL returns the configured TTL for C(h).
func (s *Store) CacheTTL() time.Duration { return s.cfg.CacheTTL }

// PeerLifetime returns the configured window for ZRANGEBYSCORE reads.
func (s *Store) PeerLifetime() time.Duration { return s.cfg.PeerLifetime }

// PhaseARead is the result of the Phase A synchronous pipelined read
// (§4.4): presence in each sorted set, plus any cached response body.
type PhaseARead struct {
	SeederPresence  Presence
	LeecherPresence Presence
	// Cached is the previously computed response body, or nil if C(h) was
	// absent or empty.
	Cached []byte
}

// ReadPresenceAndCache issues the first Phase A pipelined read:
//
//	ZSCORE S(h) ip_port
//	ZSCORE L(h) ip_port
//	GET C(h)
func (s *Store) ReadPresenceAndCache(ctx context.Context, h bittorrent.InfoHash, peer bittorrent.PeerAddr) (PhaseARead, error) {
	member := string(peer.Bytes())

	pipe := s.client.Pipeline()
	seederScore := pipe.ZScore(ctx, string(h.SeedersKey()), member)
	leecherScore := pipe.ZScore(ctx, string(h.LeechersKey()), member)
	cached := pipe.Get(ctx, string(h.CacheKey()))

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return PhaseARead{}, fmt.Errorf("phase A presence/cache read: %w", err)
	}

	var out PhaseARead
	out.SeederPresence = presenceOf(seederScore.Err())
	out.LeecherPresence = presenceOf(leecherScore.Err())

	if b, err := cached.Bytes(); err == nil && len(b) > 0 {
		out.Cached = b
	} else if err != nil && !errors.Is(err, redis.Nil) {
		return PhaseARead{}, fmt.Errorf("phase A cache read: %w", err)
	}

	return out, nil
}

// presenceOf decodes a ZSCORE reply's error: redis.Nil means the member is
// absent; any other nil error means present (the score value itself is
// discarded, per §4.4).
func presenceOf(err error) Presence {
	if errors.Is(err, redis.Nil) {
		return Absent
	}
	return Present
}

// ReadLiveMembers issues the second Phase A pipelined read, used only on a
// cache miss (§4.4):
//
//	ZRANGEBYSCORE S(h) (now-peerLifetime) now LIMIT 0 50
//	ZRANGEBYSCORE L(h) (now-peerLifetime) now LIMIT 0 50
func (s *Store) ReadLiveMembers(ctx context.Context, h bittorrent.InfoHash, now time.Time, limit int64) (seeders, leechers [][]byte, err error) {
	minMs := now.Add(-s.cfg.PeerLifetime).UnixMilli()
	maxMs := now.UnixMilli()
	by := &redis.ZRangeBy{
		Min:    strconv.FormatInt(minMs, 10),
		Max:    strconv.FormatInt(maxMs, 10),
		Offset: 0,
		Count:  limit,
	}

	pipe := s.client.Pipeline()
	seedersCmd := pipe.ZRangeByScore(ctx, string(h.SeedersKey()), by)
	leechersCmd := pipe.ZRangeByScore(ctx, string(h.LeechersKey()), by)

	if _, execErr := pipe.Exec(ctx); execErr != nil && !errors.Is(execErr, redis.Nil) {
		return nil, nil, fmt.Errorf("phase A live-member read: %w", execErr)
	}

	seeders = stringsToBytes(seedersCmd.Val())
	leechers = stringsToBytes(leechersCmd.Val())
	return seeders, leechers, nil
}

func stringsToBytes(ss []string) [][]byte {
	out := make([][]byte, len(ss))
	for i, s := range ss {
		out[i] = []byte(s)
	}
	return out
}

// Submit executes a write-back pipeline on one round trip (Phase B, §4.4,
// §5). It is the only method called off the request-handling goroutine.
func (s *Store) Submit(ctx context.Context, wb WriteBack) error {
	pw, ok := wb.(*pipelineWriteBack)
	if !ok || pw == nil || pw.pipe == nil {
		return nil
	}
	_, err := pw.pipe.Exec(ctx)
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// NewWriteBack starts a fresh write-back pipeline builder. ctx is retained
// only to queue commands (no network I/O happens until Store.Submit calls
// Exec); it is typically context.Background() since Phase B is detached
// from the request's own context (§5 cancellation rules).
func (s *Store) NewWriteBack(ctx context.Context) WriteBack {
	return &pipelineWriteBack{ctx: ctx, pipe: s.client.Pipeline()}
}
