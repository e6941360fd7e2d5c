package websocket

import (
	"fmt"
	"net/http"
	"time"

	libval "github.com/go-playground/validator/v10"

	"github.com/nabbar/netcore/policy"
)

var validate = libval.New()

// Config configures a Session's transport, compression, and
// reconnect behavior, per §3's session-state field list and §4.11.
type Config struct {
	SSL policy.SSL `json:"ssl" yaml:"ssl" toml:"ssl" mapstructure:"ssl"`

	// CompressionEnabled offers permessage-deflate during the
	// handshake; CompressionLevel maps to compress/flate's level
	// constants (flate.DefaultCompression if zero-value unset).
	CompressionEnabled bool `json:"compression_enabled" yaml:"compression_enabled" toml:"compression_enabled" mapstructure:"compression_enabled"`
	CompressionLevel   int  `json:"compression_level" yaml:"compression_level" toml:"compression_level" mapstructure:"compression_level" validate:"min=-2,max=9"`

	// NoAutoPong disables automatic pong replies to received pings;
	// the application must call Pong from an OnPingReceived handler.
	NoAutoPong bool `json:"no_auto_pong" yaml:"no_auto_pong" toml:"no_auto_pong" mapstructure:"no_auto_pong"`

	// MaxFramePayload bounds a single decoded frame's payload size;
	// zero means unbounded.
	MaxFramePayload int64 `json:"max_frame_payload" yaml:"max_frame_payload" toml:"max_frame_payload" mapstructure:"max_frame_payload" validate:"gte=0"`

	// PingInterval, when positive, sends an automatic ping on this
	// cadence while Connected.
	PingInterval time.Duration `json:"ping_interval" yaml:"ping_interval" toml:"ping_interval" mapstructure:"ping_interval" validate:"gte=0"`

	// HandshakeTimeout bounds the upgrade handshake; zero means no
	// timeout beyond the dialer's own defaults.
	HandshakeTimeout time.Duration `json:"handshake_timeout" yaml:"handshake_timeout" toml:"handshake_timeout" mapstructure:"handshake_timeout" validate:"gte=0"`

	// ExtraHeaders is merged into the Upgrade request (cookies, auth,
	// subprotocol negotiation).
	ExtraHeaders http.Header `json:"-" yaml:"-" toml:"-" mapstructure:"-"`

	// Reconnect governs auto-reconnect per §4.11; nil disables it
	// entirely (equivalent to NeverReconnect{}).
	Reconnect ReconnectPolicy `json:"-" yaml:"-" toml:"-" mapstructure:"-"`
}

// DefaultConfig returns a Config with compression enabled and the
// default exponential-backoff reconnect policy, matching the source's
// defaultConfig used throughout the scenario suite (§S6).
func DefaultConfig() Config {
	return Config{
		SSL:                policy.DefaultSSL(),
		CompressionEnabled: true,
		MaxFramePayload:    1 << 20,
		HandshakeTimeout:   10 * time.Second,
		Reconnect:          NewDefaultReconnectPolicy(),
	}
}

// Validate runs struct-tag validation the way policy's own config
// types do; SSL, ExtraHeaders and Reconnect are not checked.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("websocket: invalid config: %w", err)
	}
	return nil
}

func (c Config) reconnectPolicy() ReconnectPolicy {
	if c.Reconnect != nil {
		return c.Reconnect
	}
	return NeverReconnect{}
}
