// Package connpool implements the connection-pool manager of spec.md
// §4.6: a process-wide, mutex-guarded configuration carrier applied to
// every *http.Transport the access.Manager hands out, grounded on
// github.com/nabbar/golib/httpcli/dns-mapper/transport.go's transport
// construction.
package connpool

import (
	"time"

	libval "github.com/go-playground/validator/v10"
)

var validate = libval.New()

// Config mirrors the per-host/total connection limits and pipelining
// knobs of §3's connection-pool config.
type Config struct {
	MaxConnsPerHost   int           `json:"max_conns_per_host" yaml:"max_conns_per_host" toml:"max_conns_per_host" mapstructure:"max_conns_per_host" validate:"gte=0"`
	MaxConnsTotal     int           `json:"max_conns_total" yaml:"max_conns_total" toml:"max_conns_total" mapstructure:"max_conns_total" validate:"gte=0"`
	MaxIdleSeconds    int           `json:"max_idle_seconds" yaml:"max_idle_seconds" toml:"max_idle_seconds" mapstructure:"max_idle_seconds" validate:"gte=0"`
	MaxLifetime       time.Duration `json:"max_lifetime" yaml:"max_lifetime" toml:"max_lifetime" mapstructure:"max_lifetime" validate:"gte=0"`
	Pipelining        bool          `json:"pipelining" yaml:"pipelining" toml:"pipelining" mapstructure:"pipelining"`
	HTTP2Multiplexing bool          `json:"http2_multiplexing" yaml:"http2_multiplexing" toml:"http2_multiplexing" mapstructure:"http2_multiplexing"`
	DNSCache          bool          `json:"dns_cache" yaml:"dns_cache" toml:"dns_cache" mapstructure:"dns_cache"`
	DNSCacheTTL       time.Duration `json:"dns_cache_ttl" yaml:"dns_cache_ttl" toml:"dns_cache_ttl" mapstructure:"dns_cache_ttl" validate:"gte=0"`
	Warmup            bool          `json:"warmup" yaml:"warmup" toml:"warmup" mapstructure:"warmup"`
}

// Validate reports whether the numeric fields form a sane
// configuration (all non-negative), per §4.6.
func (c Config) Validate() error {
	return validate.Struct(c)
}

// Conservative is the "2/10, no multiplexing" preset of §4.6.
func Conservative() Config {
	return Config{
		MaxConnsPerHost: 2,
		MaxConnsTotal:   10,
		MaxIdleSeconds:  30,
		MaxLifetime:     5 * time.Minute,
	}
}

// Aggressive is the "10/100, multiplexing, warmup" preset.
func Aggressive() Config {
	return Config{
		MaxConnsPerHost:   10,
		MaxConnsTotal:     100,
		MaxIdleSeconds:    90,
		MaxLifetime:       15 * time.Minute,
		HTTP2Multiplexing: true,
		Warmup:            true,
	}
}

// HTTP2Optimized is the "2/20, multiplexing on" preset.
func HTTP2Optimized() Config {
	return Config{
		MaxConnsPerHost:   2,
		MaxConnsTotal:     20,
		MaxIdleSeconds:    60,
		MaxLifetime:       10 * time.Minute,
		HTTP2Multiplexing: true,
	}
}
