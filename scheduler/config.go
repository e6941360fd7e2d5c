// Package scheduler implements the priority scheduler of spec.md §4.7:
// six FIFO queues keyed by policy.Priority, global/per-host admission
// gates, and a bandwidth window. The FIFO queues are
// github.com/eapache/queue.Queue (the retrieval pack's only dedicated
// queue dependency, used by momentics-hioload-ws); the concurrency
// gate is golang.org/x/sync/semaphore.Weighted, grounded on
// caddyserver-caddy's dependency set. The bandwidth window is a
// per-second byte counter reset by a one-second ticker; a
// golang.org/x/time/rate.Limiter is also built when throttling is
// enabled, but admission does not consult it.
package scheduler

import libval "github.com/go-playground/validator/v10"

var validate = libval.New()

// Config configures a Scheduler's admission gates.
type Config struct {
	MaxConcurrentRequests int   `json:"max_concurrent_requests" yaml:"max_concurrent_requests" toml:"max_concurrent_requests" mapstructure:"max_concurrent_requests" validate:"gte=0"`
	MaxRequestsPerHost    int   `json:"max_requests_per_host" yaml:"max_requests_per_host" toml:"max_requests_per_host" mapstructure:"max_requests_per_host" validate:"gte=0"`
	MaxBandwidthBytesSec  int64 `json:"max_bandwidth_bytes_per_sec" yaml:"max_bandwidth_bytes_per_sec" toml:"max_bandwidth_bytes_per_sec" mapstructure:"max_bandwidth_bytes_per_sec" validate:"gte=0"`
	EnableThrottling      bool  `json:"enable_throttling" yaml:"enable_throttling" toml:"enable_throttling" mapstructure:"enable_throttling"`
}

// Validate reports whether the admission gate values are sane.
func (c Config) Validate() error {
	return validate.Struct(c)
}

// DefaultConfig matches §4.7's stated defaults: 6 concurrent, 2 per
// host, unlimited bandwidth.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentRequests: 6,
		MaxRequestsPerHost:    2,
		MaxBandwidthBytesSec:  0,
	}
}
