package main

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/sot-tech/mochi-redis-tracker/metrics"
)

func newMetricsMux(exporter *metrics.Exporter) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", exporter.Handler())
	return mux
}

// runMetricsServer serves mux on addr until ctx is cancelled. Failures
// here are logged, not fatal: metrics are observational (§9).
func runMetricsServer(ctx context.Context, logger zerolog.Logger, addr string, mux *http.ServeMux) {
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
	}
}
