// Package policy holds the small, immutable configuration value types
// shared by request.Request and reply.Reply: SSL, proxy, timeout,
// HTTP-version preference, priority and cache-policy. These mirror
// the SSL/proxy/timeout records described in spec.md §3 and are
// validated the way github.com/nabbar/golib/httpcli's Options struct
// validates itself, with github.com/go-playground/validator/v10.
package policy

import "fmt"

// SSL configures certificate verification and client authentication
// for a single request. Empty string fields mean "use system default"
// per §4.5 step 4.
type SSL struct {
	VerifyPeer bool   `json:"verify_peer" yaml:"verify_peer" toml:"verify_peer" mapstructure:"verify_peer"`
	VerifyHost bool   `json:"verify_host" yaml:"verify_host" toml:"verify_host" mapstructure:"verify_host"`
	CACertPath string `json:"ca_cert_path,omitempty" yaml:"ca_cert_path,omitempty" toml:"ca_cert_path,omitempty" mapstructure:"ca_cert_path,omitempty"`
	ClientCert string `json:"client_cert,omitempty" yaml:"client_cert,omitempty" toml:"client_cert,omitempty" mapstructure:"client_cert,omitempty"`
	ClientKey  string `json:"client_key,omitempty" yaml:"client_key,omitempty" toml:"client_key,omitempty" mapstructure:"client_key,omitempty"`
	KeyPass    string `json:"key_password,omitempty" yaml:"key_password,omitempty" toml:"key_password,omitempty" mapstructure:"key_password,omitempty"`
}

// DefaultSSL verifies both peer and host, the safe default.
func DefaultSSL() SSL {
	return SSL{VerifyPeer: true, VerifyHost: true}
}

// IsDefault reports whether s carries no overrides beyond the safe
// default returned by DefaultSSL.
func (s SSL) IsDefault() bool {
	return s == DefaultSSL()
}

// ValidateSSL rejects a client key given without its matching
// certificate, and vice versa; either alone makes tls.LoadX509KeyPair
// fail anyway, but this gives a clearer error earlier.
func ValidateSSL(s SSL) error {
	if (s.ClientCert == "") != (s.ClientKey == "") {
		return fmt.Errorf("policy: client_cert and client_key must be set together")
	}
	return nil
}
