// Package metrics exposes the tracker's Redis-resident counters (§3:
// ANNOUNCE_COUNT, CACHE_HIT_ANNOUNCE_COUNT, NOCHANGE_ANNOUNCE_COUNT,
// REQ_DURATION_TOTAL_MS) as Prometheus gauges, using package-level
// prometheus.NewGauge vars registered in an init(). This exporter is purely
// observational: the counters it reports remain authoritative only inside
// Redis, and a scrape never blocks or influences an announce.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var logger = zerolog.Nop().With().Str("component", "metrics").Logger()

// SetLogger overrides the package-scoped logger.
func SetLogger(l zerolog.Logger) { logger = l.With().Str("component", "metrics").Logger() }

func init() {
	prometheus.MustRegister(announceCount)
	prometheus.MustRegister(cacheHitCount)
	prometheus.MustRegister(noChangeCount)
	prometheus.MustRegister(reqDurationTotalMs)
	prometheus.MustRegister(scrapeErrors)
}

var announceCount = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "tracker_announce_count",
	Help: "Total announces served, mirrored from the store's ANNOUNCE_COUNT key",
})

var cacheHitCount = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "tracker_cache_hit_announce_count",
	Help: "Announces served from the response cache, mirrored from CACHE_HIT_ANNOUNCE_COUNT",
})

var noChangeCount = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "tracker_nochange_announce_count",
	Help: "Announces with no swarm membership change, mirrored from NOCHANGE_ANNOUNCE_COUNT",
})

var reqDurationTotalMs = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "tracker_req_duration_total_milliseconds",
	Help: "Cumulative announce handling time in ms, mirrored from REQ_DURATION_TOTAL_MS",
})

var scrapeErrors = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "tracker_metrics_scrape_errors_total",
	Help: "Failures reading counters from the store during a metrics refresh",
})

// counterSource is the minimal redis surface this package needs: reading
// the four global counter keys. *redis.Client satisfies it directly, so
// this package never depends on storage for its redis access.
type counterSource interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
}

const (
	keyAnnounceCount    = "ANNOUNCE_COUNT"
	keyCacheHits        = "CACHE_HIT_ANNOUNCE_COUNT"
	keyNoChange         = "NOCHANGE_ANNOUNCE_COUNT"
	keyReqDurationTotal = "REQ_DURATION_TOTAL_MS"
)

// Exporter periodically refreshes the gauges above from Redis and serves
// them on /metrics.
type Exporter struct {
	client   counterSource
	interval time.Duration
}

// NewExporter builds an Exporter polling client every interval.
func NewExporter(client *redis.Client, interval time.Duration) *Exporter {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Exporter{client: client, interval: interval}
}

// Handler returns the promhttp handler for /metrics.
func (e *Exporter) Handler() http.Handler { return promhttp.Handler() }

// Run refreshes the gauges every interval until ctx is cancelled.
func (e *Exporter) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.refresh(ctx)
		}
	}
}

func (e *Exporter) refresh(ctx context.Context) {
	vals, err := e.client.MGet(ctx, keyAnnounceCount, keyCacheHits, keyNoChange, keyReqDurationTotal).Result()
	if err != nil {
		scrapeErrors.Inc()
		logger.Warn().Err(err).Msg("metrics refresh failed")
		return
	}
	if len(vals) != 4 {
		return
	}
	setGaugeFromReply(announceCount, vals[0])
	setGaugeFromReply(cacheHitCount, vals[1])
	setGaugeFromReply(noChangeCount, vals[2])
	setGaugeFromReply(reqDurationTotalMs, vals[3])
}

func setGaugeFromReply(g prometheus.Gauge, v any) {
	s, ok := v.(string)
	if !ok {
		return
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		g.Set(n)
	}
}
