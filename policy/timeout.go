package policy

import "time"

// Timeout groups the connect/total/low-speed timeout knobs of §4.5
// step 3. reply.BuildClient applies Connect as the dial timeout and
// Total as the client timeout.
type Timeout struct {
	Connect time.Duration `json:"connect" yaml:"connect" toml:"connect" mapstructure:"connect"`
	Total   time.Duration `json:"total" yaml:"total" toml:"total" mapstructure:"total"`

	// LowSpeedLimit/LowSpeedTime describe a minimum rate of
	// LowSpeedLimit bytes/sec over LowSpeedTime. They are carried with
	// the request but not enforced: no transfer is aborted on them.
	LowSpeedLimit int64         `json:"low_speed_limit,omitempty" yaml:"low_speed_limit,omitempty" toml:"low_speed_limit,omitempty" mapstructure:"low_speed_limit,omitempty"`
	LowSpeedTime  time.Duration `json:"low_speed_time,omitempty" yaml:"low_speed_time,omitempty" toml:"low_speed_time,omitempty" mapstructure:"low_speed_time,omitempty"`
}

// DefaultTimeout mirrors common HTTP-client defaults: 10s to connect,
// 30s total.
func DefaultTimeout() Timeout {
	return Timeout{Connect: 10 * time.Second, Total: 30 * time.Second}
}
