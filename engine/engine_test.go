package engine

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sot-tech/mochi-redis-tracker/bittorrent"
	"github.com/sot-tech/mochi-redis-tracker/storage"
	"github.com/sot-tech/mochi-redis-tracker/storage/redistest"
)

func newTestEngine(t *testing.T) (*Engine, *redistest.Fake) {
	t.Helper()
	fake := redistest.New(30*time.Minute, 31*time.Minute)
	e := New(fake, Config{QueueSize: 64, Workers: 1})
	t.Cleanup(e.Close)
	return e, fake
}

func mustAnnounce(t *testing.T, infoHashByte byte, ip string, port uint16, event bittorrent.Event, isSeeding bool) bittorrent.Announce {
	t.Helper()
	var h bittorrent.InfoHash
	for i := range h {
		h[i] = infoHashByte
	}
	peer, err := bittorrent.NewPeerAddr(net.ParseIP(ip), port)
	require.NoError(t, err)
	return bittorrent.Announce{
		InfoHash:  h,
		PeerAddr:  peer,
		Event:     event,
		IsSeeding: isSeeding,
	}
}

// waitForSubmit gives the single Phase B worker a moment to drain the
// queued job; tests assert on fake's state afterward.
func waitForSubmit() { time.Sleep(20 * time.Millisecond) }

func TestAnnounce_FirstEverLeecher(t *testing.T) {
	e, fake := newTestEngine(t)
	a := mustAnnounce(t, 0xAA, "1.2.3.4", 6881, bittorrent.Started, false)

	body, err := e.Announce(context.Background(), a)
	require.NoError(t, err)
	assert.Contains(t, string(body), "incomplete")

	waitForSubmit()
	assert.EqualValues(t, 1, fake.Field(a.InfoHash, storage.FieldLeechers))
	assert.EqualValues(t, 1, fake.Counter(storage.CounterAnnounces))
	_, touched := fake.TorrentsScore(a.InfoHash)
	assert.True(t, touched)
}

func TestAnnounce_Completion(t *testing.T) {
	e, fake := newTestEngine(t)
	a := mustAnnounce(t, 0xBB, "1.2.3.4", 6881, bittorrent.None, false)
	_, err := e.Announce(context.Background(), a)
	require.NoError(t, err)
	waitForSubmit()

	completed := mustAnnounce(t, 0xBB, "1.2.3.4", 6881, bittorrent.Completed, true)
	body, err := e.Announce(context.Background(), completed)
	require.NoError(t, err)
	assert.NotEmpty(t, body)
	waitForSubmit()

	assert.EqualValues(t, 1, fake.Field(a.InfoHash, storage.FieldDownloaded))
	assert.EqualValues(t, 1, fake.Field(a.InfoHash, storage.FieldSeeders))
	assert.EqualValues(t, 0, fake.Field(a.InfoHash, storage.FieldLeechers))
}

func TestAnnounce_SteadyStateCacheHit(t *testing.T) {
	e, fake := newTestEngine(t)
	a := mustAnnounce(t, 0xCC, "5.6.7.8", 6881, bittorrent.None, true)

	_, err := e.Announce(context.Background(), a)
	require.NoError(t, err)
	waitForSubmit()

	// The first announce joins the swarm (non-zero delta, cache deleted);
	// the second is a no-change cache miss that populates C(h); the third
	// is served from the cache.
	_, err = e.Announce(context.Background(), a)
	require.NoError(t, err)
	waitForSubmit()

	_, err = e.Announce(context.Background(), a)
	require.NoError(t, err)
	waitForSubmit()

	assert.EqualValues(t, 1, fake.Counter(storage.CounterCacheHits))
	assert.EqualValues(t, 2, fake.Counter(storage.CounterNoChange))
}

func TestAnnounce_StopOnAbsentPeerIsNoOp(t *testing.T) {
	e, fake := newTestEngine(t)
	a := mustAnnounce(t, 0xDD, "9.9.9.9", 6881, bittorrent.Stopped, false)

	_, err := e.Announce(context.Background(), a)
	require.NoError(t, err)
	waitForSubmit()

	assert.EqualValues(t, 0, fake.Field(a.InfoHash, storage.FieldSeeders))
	assert.EqualValues(t, 0, fake.Field(a.InfoHash, storage.FieldLeechers))
}

func TestAnnounce_StopRemovesSeeder(t *testing.T) {
	e, fake := newTestEngine(t)
	a := mustAnnounce(t, 0xEE, "1.1.1.1", 6881, bittorrent.None, true)
	_, err := e.Announce(context.Background(), a)
	require.NoError(t, err)
	waitForSubmit()

	stop := mustAnnounce(t, 0xEE, "1.1.1.1", 6881, bittorrent.Stopped, true)
	_, err = e.Announce(context.Background(), stop)
	require.NoError(t, err)
	waitForSubmit()

	assert.EqualValues(t, 0, fake.Field(a.InfoHash, storage.FieldSeeders))
}
