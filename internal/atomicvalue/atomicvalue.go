// Package atomicvalue provides a generic atomic-swap holder for a
// single shared instance, grounded on the Load/Store/Swap shape of
// github.com/nabbar/golib/atomic's Value[T], trimmed to the subset
// the rest of this module actually needs (no default-load/store
// substitution, since none of our singletons treat a zero value as
// special).
package atomicvalue

import "sync/atomic"

// Value holds one *T behind sync/atomic.Value, the pattern
// nabbar-golib/httpcli/cli.go uses for its package-level DNS mapper
// singleton (dns = libatm.NewValue[htcdns.DNSMapper]()).
type Value[T any] struct {
	v atomic.Value
}

// New builds an empty Value; Load returns nil until the first Store.
func New[T any]() *Value[T] {
	return &Value[T]{}
}

// Load returns the current instance, or nil if none was ever stored.
func (h *Value[T]) Load() *T {
	v, _ := h.v.Load().(*T)
	return v
}

// Store replaces the current instance.
func (h *Value[T]) Store(p *T) {
	h.v.Store(p)
}

// Swap stores p and returns the previous instance, or nil if none was
// stored yet. Callers that own a closeable prior value use this to
// decide whether to close it, the way SetDefaultDNSMapper does.
func (h *Value[T]) Swap(p *T) *T {
	old, _ := h.v.Swap(p).(*T)
	return old
}
