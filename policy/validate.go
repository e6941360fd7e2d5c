package policy

import (
	"fmt"

	libval "github.com/go-playground/validator/v10"
)

var validate = libval.New()

// ValidateProxy rejects an enabled proxy without a host or a non-zero
// port (see Proxy.Valid) with a single descriptive error. Proxy has
// no validate tags, so the struct validator is not run.
func ValidateProxy(p Proxy) error {
	if !p.Valid() {
		return fmt.Errorf("policy: proxy type %v requires a host and a non-zero port", p.Type)
	}
	return nil
}

// ValidateTimeout rejects a negative timeout, which validator's
// built-in tags can't express on a time.Duration without a custom tag.
func ValidateTimeout(t Timeout) error {
	if t.Connect < 0 || t.Total < 0 || t.LowSpeedTime < 0 {
		return fmt.Errorf("policy: timeout values must be non-negative")
	}
	if err := validate.Struct(t); err != nil {
		return err
	}
	return nil
}
