// Package config assembles the tracker's runtime configuration from CLI
// flags (the primary source, §6) with an optional YAML file decoded via
// mapstructure that fills in any setting whose flag was not set
// explicitly, extending storage.Config's tagged-struct
// convention (cfg/yaml/mapstructure tags) to the top-level process
// configuration.
package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/sot-tech/mochi-redis-tracker/storage"
)

const (
	defaultPort      = 6969
	defaultHost      = "0.0.0.0"
	defaultRedisAddr = "127.0.0.1:6379"
	defaultListeners = 1
	defaultQueueSize = 4096
	defaultWorkers   = 4
)

// Config is the tracker process's full runtime configuration (§6 CLI,
// plus the engine's queue bounds and the optional metrics exporter).
type Config struct {
	Host      string `yaml:"host" mapstructure:"host"`
	Port      uint16 `yaml:"port" mapstructure:"port"`
	Listeners int    `yaml:"listeners" mapstructure:"listeners"`

	RedisHost string `yaml:"redis_host" mapstructure:"redis_host"`

	QueueSize int `yaml:"queue_size" mapstructure:"queue_size"`
	Workers   int `yaml:"workers" mapstructure:"workers"`

	// MetricsAddr, if non-empty, starts a Prometheus /metrics server on
	// this address (optional domain-stack observability surface).
	MetricsAddr string `yaml:"metrics_addr" mapstructure:"metrics_addr"`

	Store storage.Config `yaml:"store" mapstructure:"store"`
}

// Addr renders the HTTP frontend's listen address.
func (c Config) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// Parse builds a Config from CLI flags (args, typically os.Args[1:]),
// optionally overlaid with a YAML file named by --config. Flags always
// win: any flag explicitly set on the command line overrides the
// corresponding YAML value.
func Parse(args []string) (Config, error) {
	fs := flag.NewFlagSet("mochi-redis-tracker", flag.ContinueOnError)

	port := fs.Uint("port", defaultPort, "HTTP listen port")
	host := fs.String("host", defaultHost, "HTTP listen host")
	listeners := fs.Int("listeners", defaultListeners, "number of SO_REUSEPORT listener sockets")
	redisHost := fs.String("redis-host", defaultRedisAddr, "redis host:port")
	queueSize := fs.Int("queue-size", defaultQueueSize, "phase B write-back queue capacity")
	workers := fs.Int("workers", defaultWorkers, "phase B write-back worker count")
	metricsAddr := fs.String("metrics-addr", "", "optional Prometheus /metrics listen address")
	configPath := fs.String("config", "", "optional YAML config file overlaid under the flags above")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Host:        *host,
		Port:        uint16(*port),
		Listeners:   *listeners,
		RedisHost:   *redisHost,
		QueueSize:   *queueSize,
		Workers:     *workers,
		MetricsAddr: *metricsAddr,
		Store:       storage.Config{Addr: *redisHost},
	}

	if *configPath != "" {
		overlaid, err := overlayYAML(*configPath, cfg, explicitFlags(fs))
		if err != nil {
			return Config{}, fmt.Errorf("loading %s: %w", *configPath, err)
		}
		cfg = overlaid
	}

	return cfg, nil
}

// explicitFlags returns the names of flags the user actually set on the
// command line, so overlayYAML knows which fields a YAML file may still
// fill in versus which must be left alone (flags win over file).
func explicitFlags(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// overlayYAML reads path as YAML into a generic map, decodes it onto a
// copy of base via mapstructure, then restores any field whose flag was
// explicitly set by the user (flags always win, §6).
func overlayYAML(path string, base Config, explicit map[string]bool) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("parsing yaml: %w", err)
	}

	merged := base
	if err := mapstructure.Decode(raw, &merged); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}

	if explicit["host"] {
		merged.Host = base.Host
	}
	if explicit["port"] {
		merged.Port = base.Port
	}
	if explicit["listeners"] {
		merged.Listeners = base.Listeners
	}
	if explicit["redis-host"] {
		merged.RedisHost = base.RedisHost
		merged.Store.Addr = base.RedisHost
	} else if merged.RedisHost != base.RedisHost {
		merged.Store.Addr = merged.RedisHost
	}
	if explicit["queue-size"] {
		merged.QueueSize = base.QueueSize
	}
	if explicit["workers"] {
		merged.Workers = base.Workers
	}
	if explicit["metrics-addr"] {
		merged.MetricsAddr = base.MetricsAddr
	}

	return merged, nil
}
