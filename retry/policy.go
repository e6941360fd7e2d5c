// Package retry implements the retry policy engine of spec.md §4.8:
// shouldRetry/delayForAttempt with exponential backoff, classification
// against the errors.CodeError taxonomy.
package retry

import (
	"math"
	"time"

	libval "github.com/go-playground/validator/v10"

	liberr "github.com/nabbar/netcore/errors"
)

var validate = libval.New()

// Policy configures the retry engine for a single Request.
type Policy struct {
	// MaxRetries of 0 disables retries entirely.
	MaxRetries int `json:"max_retries" yaml:"max_retries" toml:"max_retries" mapstructure:"max_retries" validate:"gte=0"`

	InitialDelay time.Duration `json:"initial_delay" yaml:"initial_delay" toml:"initial_delay" mapstructure:"initial_delay" validate:"gte=0"`
	Multiplier   float64       `json:"multiplier" yaml:"multiplier" toml:"multiplier" mapstructure:"multiplier" validate:"gte=0"`
	MaxDelay     time.Duration `json:"max_delay" yaml:"max_delay" toml:"max_delay" mapstructure:"max_delay" validate:"gte=0"`

	// RetryableErrors is the set of codes eligible for a retry. A nil
	// set falls back to DefaultRetryable().
	RetryableErrors map[liberr.CodeError]struct{} `json:"-" yaml:"-" toml:"-" mapstructure:"-"`
}

// Validate reports whether the backoff parameters are sane.
func (p Policy) Validate() error {
	return validate.Struct(p)
}

// DefaultRetryable returns the default retryable set named in §4.8:
// connection-refused, connect timeout, host-not-found, and HTTP
// 408/500/502/503/504.
func DefaultRetryable() map[liberr.CodeError]struct{} {
	return map[liberr.CodeError]struct{}{
		liberr.ConnectionRefused:             {},
		liberr.ConnectionTimeout:             {},
		liberr.HostNotFound:                  {},
		liberr.CodeError(408):                {},
		liberr.CodeError(500):                {},
		liberr.CodeError(502):                {},
		liberr.CodeError(503):                {},
		liberr.CodeError(504):                {},
	}
}

// NoRetry is the default policy: retries disabled.
func NoRetry() Policy {
	return Policy{}
}

// Standard is the "standard" preset: 3 attempts, 1s base, 2.0x, 30s cap.
func Standard() Policy {
	return Policy{
		MaxRetries:   3,
		InitialDelay: time.Second,
		Multiplier:   2.0,
		MaxDelay:     30 * time.Second,
	}
}

// Aggressive is the "aggressive" preset: 5 attempts, 500ms base, 1.5x, 20s cap.
func Aggressive() Policy {
	return Policy{
		MaxRetries:   5,
		InitialDelay: 500 * time.Millisecond,
		Multiplier:   1.5,
		MaxDelay:     20 * time.Second,
	}
}

// IsEnabled reports whether this policy allows any retry at all.
func (p Policy) IsEnabled() bool {
	return p.MaxRetries > 0
}

func (p Policy) retryable() map[liberr.CodeError]struct{} {
	if p.RetryableErrors != nil {
		return p.RetryableErrors
	}
	return DefaultRetryable()
}

// ShouldRetry implements §4.8's shouldRetry: enabled, attempt within
// budget, and the error is in the retryable set. attempt is 1-based
// (the count of attempts made so far, including the one that just
// failed), matching testable property 6's "for every retry attempt n>=1".
func (p Policy) ShouldRetry(err liberr.CodeError, attempt int) bool {
	if !p.IsEnabled() {
		return false
	}
	if attempt > p.MaxRetries {
		return false
	}
	_, ok := p.retryable()[err]
	return ok
}

// DelayForAttempt implements §4.8's delayForAttempt:
// min(initialDelay * multiplier^n, maxDelay).
func (p Policy) DelayForAttempt(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	mult := p.Multiplier
	if mult <= 0 {
		mult = 1
	}

	scaled := float64(p.InitialDelay) * math.Pow(mult, float64(attempt))
	d := time.Duration(scaled)

	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	if d < 0 {
		// overflow guard: math.Pow can blow past time.Duration's range
		// for large attempt counts.
		return p.MaxDelay
	}
	return d
}
