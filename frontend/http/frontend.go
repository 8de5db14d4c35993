// Package http is the tracker's HTTP frontend (§6): a fasthttp server
// routed with fasthttp/router, listening on one or more SO_REUSEPORT
// sockets supervised by an errgroup, exposing GET /announce and
// GET /healthz. Keep-alive is disabled to free sockets quickly under
// tracker-style traffic (§5).
package http

import (
	"context"
	"fmt"
	"net"

	"github.com/fasthttp/router"
	"github.com/libp2p/go-reuseport"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
	"golang.org/x/sync/errgroup"

	"github.com/sot-tech/mochi-redis-tracker/engine"
	"github.com/sot-tech/mochi-redis-tracker/storage"
)

var logger = zerolog.Nop().With().Str("component", "http").Logger()

// SetLogger overrides the package-scoped logger.
func SetLogger(l zerolog.Logger) { logger = l.With().Str("component", "http").Logger() }

// Config configures the HTTP frontend's listen address(es).
type Config struct {
	// Addr is "host:port", e.g. "0.0.0.0:6969" (§6 CLI defaults).
	Addr string
	// Listeners is how many SO_REUSEPORT sockets to bind on Addr. Defaults
	// to 1 if unset; values above 1 let multiple OS threads each own an
	// accept loop without contending on one listener's accept mutex.
	Listeners int
}

// Frontend owns the fasthttp server(s) and the listeners bound to Addr.
type Frontend struct {
	cfg     Config
	server  *fasthttp.Server
	store   storage.Backend
	engine  *engine.Engine
}

// New builds a Frontend that serves announces through eng and answers
// /healthz by pinging store directly.
func New(cfg Config, store storage.Backend, eng *engine.Engine) *Frontend {
	if cfg.Listeners < 1 {
		cfg.Listeners = 1
	}

	f := &Frontend{cfg: cfg, store: store, engine: eng}

	r := router.New()
	r.GET("/announce", f.handleAnnounce)
	r.GET("/healthz", f.handleHealthz)

	f.server = &fasthttp.Server{
		Handler:          r.Handler,
		DisableKeepalive: true,
		Name:             "mochi-redis-tracker",
	}

	return f
}

// Run binds cfg.Listeners SO_REUSEPORT sockets on cfg.Addr and serves them
// concurrently, returning when any of them stops or ctx is cancelled
// (§5 "a pool of cooperatively scheduled tasks").
func (f *Frontend) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	listeners := make([]net.Listener, 0, f.cfg.Listeners)
	for i := 0; i < f.cfg.Listeners; i++ {
		ln, err := reuseport.Listen("tcp", f.cfg.Addr)
		if err != nil {
			for _, l := range listeners {
				_ = l.Close()
			}
			return fmt.Errorf("binding %s: %w", f.cfg.Addr, err)
		}
		listeners = append(listeners, ln)

		g.Go(func() error {
			if err := f.server.Serve(ln); err != nil {
				return fmt.Errorf("serving %s: %w", f.cfg.Addr, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return f.server.Shutdown()
	})

	return g.Wait()
}

// Shutdown gracefully stops the server, letting in-flight requests finish
// (Phase B has already been detached and outlives this call, §9).
func (f *Frontend) Shutdown() error {
	return f.server.Shutdown()
}
