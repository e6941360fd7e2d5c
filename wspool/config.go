// Package wspool implements the WebSocket connection pool of §4.12:
// per-URL lists of sessions with acquire/release, idle cleanup,
// optional keep-alive pings, and global/per-URL ceilings. Shape
// grounded on connpool.Manager's mutex-guarded bookkeeping style and
// momentics-hioload-ws/pool's generic object-pool acquire/release
// idiom, generalized here to track per-entry lifecycle metadata
// (createdAt/lastUsedAt/reuseCount) that a bare sync.Pool can't.
package wspool

import (
	"time"

	libval "github.com/go-playground/validator/v10"
)

var validate = libval.New()

// Config configures a Pool's ceilings and cleanup cadence.
type Config struct {
	MaxConnectionsGlobal int           `json:"max_connections_global" yaml:"max_connections_global" toml:"max_connections_global" mapstructure:"max_connections_global" validate:"gte=0"`
	MaxConnectionsPerURL int           `json:"max_connections_per_url" yaml:"max_connections_per_url" toml:"max_connections_per_url" mapstructure:"max_connections_per_url" validate:"gte=0"`
	MinIdleConnections   int           `json:"min_idle_connections" yaml:"min_idle_connections" toml:"min_idle_connections" mapstructure:"min_idle_connections" validate:"gte=0"`
	MaxIdleDuration      time.Duration `json:"max_idle_duration" yaml:"max_idle_duration" toml:"max_idle_duration" mapstructure:"max_idle_duration" validate:"gte=0"`
	CleanupInterval      time.Duration `json:"cleanup_interval" yaml:"cleanup_interval" toml:"cleanup_interval" mapstructure:"cleanup_interval" validate:"gte=0"`
	KeepAliveInterval    time.Duration `json:"keep_alive_interval" yaml:"keep_alive_interval" toml:"keep_alive_interval" mapstructure:"keep_alive_interval" validate:"gte=0"`
}

// Validate reports whether the ceilings and durations are sane.
func (c Config) Validate() error {
	return validate.Struct(c)
}

// DefaultConfig matches the source's conservative defaults: no global
// or per-URL ceiling, a sweep every 30s that closes sessions idle for
// more than 90s while always keeping at least 4 idle sessions per URL,
// no automatic keep-alive pings.
func DefaultConfig() Config {
	return Config{
		MaxConnectionsGlobal: 0,
		MaxConnectionsPerURL: 0,
		MinIdleConnections:   4,
		MaxIdleDuration:      90 * time.Second,
		CleanupInterval:      30 * time.Second,
		KeepAliveInterval:    0,
	}
}
