// Command tracker runs the BitTorrent HTTP tracker: it wires the Redis
// store adapter, the announce engine, and the fasthttp frontend together,
// then waits for SIGINT/SIGTERM (§6, §7: fatal startup errors exit
// non-zero, clean shutdown exits 0).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/sot-tech/mochi-redis-tracker/config"
	"github.com/sot-tech/mochi-redis-tracker/engine"
	httpfrontend "github.com/sot-tech/mochi-redis-tracker/frontend/http"
	"github.com/sot-tech/mochi-redis-tracker/metrics"
	"github.com/sot-tech/mochi-redis-tracker/storage"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse configuration")
	}

	storage.SetLogger(logger)
	engine.SetLogger(logger)
	httpfrontend.SetLogger(logger)
	metrics.SetLogger(logger)

	store, err := storage.New(cfg.Store)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer store.Close()

	eng := engine.New(store, engine.Config{QueueSize: cfg.QueueSize, Workers: cfg.Workers})
	defer eng.Close()

	frontend := httpfrontend.New(httpfrontend.Config{
		Addr:      cfg.Addr(),
		Listeners: cfg.Listeners,
	}, store, eng)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr()).Int("listeners", cfg.Listeners).Msg("starting HTTP frontend")
		errCh <- frontend.Run(ctx)
	}()

	if cfg.MetricsAddr != "" {
		exporter := metrics.NewExporter(store.RedisClient(), 15*time.Second)
		mux := newMetricsMux(exporter)
		go runMetricsServer(ctx, logger, cfg.MetricsAddr, mux)
		go exporter.Run(ctx)
	} else {
		logger.Info().Msg("metrics disabled because of empty --metrics-addr")
	}

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down; received SIGINT/SIGTERM")
	case err := <-errCh:
		if err != nil {
			logger.Fatal().Err(err).Msg("HTTP frontend failed")
		}
	}

	if err := frontend.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("error shutting down HTTP frontend")
	}
}
