package http

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/sot-tech/mochi-redis-tracker/engine"
	"github.com/sot-tech/mochi-redis-tracker/storage/redistest"
)

func newTestCtx(t *testing.T, remoteIP string, rawURL string) *fasthttp.RequestCtx {
	t.Helper()
	var req fasthttp.Request
	req.SetRequestURI(rawURL)

	var ctx fasthttp.RequestCtx
	ctx.Init(&req, &net.TCPAddr{IP: net.ParseIP(remoteIP), Port: 6881}, nil)
	return &ctx
}

func newTestFrontend(t *testing.T) (*Frontend, *redistest.Fake) {
	t.Helper()
	fake := redistest.New(30*time.Minute, 31*time.Minute)
	eng := engine.New(fake, engine.Config{QueueSize: 64, Workers: 1})
	t.Cleanup(eng.Close)
	f := New(Config{Addr: "127.0.0.1:0"}, fake, eng)
	return f, fake
}

func TestHandleAnnounce_Success(t *testing.T) {
	f, _ := newTestFrontend(t)
	ctx := newTestCtx(t, "1.2.3.4",
		"http://tracker.test/announce?info_hash="+percentHash(0xAA)+"&peer_id="+percentHash(0xBB)+"&port=6881&left=100&event=started")

	f.handleAnnounce(ctx)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), "incomplete")
}

func TestHandleAnnounce_IPv6Rejected(t *testing.T) {
	f, _ := newTestFrontend(t)
	ctx := newTestCtx(t, "::1", "http://tracker.test/announce?info_hash="+percentHash(0xAA)+"&port=6881")

	f.handleAnnounce(ctx)

	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), "IPv6")
}

func TestHandleAnnounce_MalformedInfoHash(t *testing.T) {
	f, _ := newTestFrontend(t)
	ctx := newTestCtx(t, "1.2.3.4", "http://tracker.test/announce?info_hash=%41%41%41&port=6881")

	f.handleAnnounce(ctx)

	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
}

func TestHandleHealthz_OK(t *testing.T) {
	f, _ := newTestFrontend(t)
	ctx := newTestCtx(t, "1.2.3.4", "http://tracker.test/healthz")

	f.handleHealthz(ctx)

	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, "OK", string(ctx.Response.Body()))
}

// percentHash returns a 20-byte info-hash (all bytes equal to b) percent-encoded.
func percentHash(b byte) string {
	out := make([]byte, 0, 60)
	for i := 0; i < 20; i++ {
		out = append(out, '%')
		out = append(out, hexDigit(b>>4), hexDigit(b&0xf))
	}
	return string(out)
}

func hexDigit(n byte) byte {
	if n < 10 {
		return '0' + n
	}
	return 'a' + (n - 10)
}
