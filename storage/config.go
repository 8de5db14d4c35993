package storage

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Name is the name this peer store logs under.
const Name = "redis"

const (
	defaultAddr         = "127.0.0.1:6379"
	defaultCacheTTL     = 30 * time.Minute
	defaultPeerLifetime = 31 * time.Minute
	defaultDialTimeout  = 5 * time.Second
)

// Config holds the configuration of the redis-backed Store.
type Config struct {
	// Addr is the "host:port" of the redis instance.
	Addr string `cfg:"addr" yaml:"addr" mapstructure:"addr"`
	// Password, if non-empty, authenticates the connection.
	Password string `cfg:"password" yaml:"password" mapstructure:"password"`
	// DB selects the logical redis database.
	DB int `cfg:"db" yaml:"db" mapstructure:"db"`
	// CacheTTL is the TTL applied to C(h) (§3). Defaults to 30 minutes.
	CacheTTL time.Duration `cfg:"cache_ttl" yaml:"cache_ttl" mapstructure:"cache_ttl"`
	// PeerLifetime bounds how far back ZRANGEBYSCORE looks for live members
	// (§3: "within [now-31min, now]"). Defaults to 31 minutes.
	PeerLifetime time.Duration `cfg:"peer_lifetime" yaml:"peer_lifetime" mapstructure:"peer_lifetime"`
	// DialTimeout bounds the initial connection attempt.
	DialTimeout time.Duration `cfg:"dial_timeout" yaml:"dial_timeout" mapstructure:"dial_timeout"`
}

// MarshalZerologObject writes configuration fields into a zerolog event.
func (cfg Config) MarshalZerologObject(e *zerolog.Event) {
	e.Str("addr", cfg.Addr).
		Int("db", cfg.DB).
		Dur("cacheTTL", cfg.CacheTTL).
		Dur("peerLifetime", cfg.PeerLifetime).
		Dur("dialTimeout", cfg.DialTimeout)
}

// Validate sanity-checks values set in a config and returns a new config
// with defaults substituted for anything invalid. Only the Addr fallback
// is logged (at warn); the duration defaults are substituted silently.
func (cfg Config) Validate(logger zerolog.Logger) Config {
	validCfg := cfg
	validCfg.Addr = strings.TrimSpace(validCfg.Addr)
	if validCfg.Addr == "" {
		validCfg.Addr = defaultAddr
		logger.Warn().
			Str("name", "Addr").
			Str("provided", cfg.Addr).
			Str("default", validCfg.Addr).
			Msg("falling back to default configuration")
	}

	if validCfg.CacheTTL <= 0 {
		validCfg.CacheTTL = defaultCacheTTL
	}
	if validCfg.PeerLifetime <= 0 {
		validCfg.PeerLifetime = defaultPeerLifetime
	}
	if validCfg.DialTimeout <= 0 {
		validCfg.DialTimeout = defaultDialTimeout
	}

	return validCfg
}
