package policy

// CachePolicy selects how a Reply's pre-execute cache check (§4.5)
// behaves.
type CachePolicy int

const (
	// OnlyNetwork skips the cache entirely.
	OnlyNetwork CachePolicy = iota
	// OnlyCache returns the cached entry or fails with NoCacheEntry.
	OnlyCache
	// PreferCache returns the cached entry if present and fresh,
	// otherwise falls through to the network.
	PreferCache
	// AlwaysCache returns the cached entry if present regardless of
	// freshness, otherwise falls through to the network.
	AlwaysCache
	// PreferNetwork issues the network request but falls back to any
	// stored entry, even if stale, on network failure.
	PreferNetwork
)

func (c CachePolicy) String() string {
	switch c {
	case OnlyNetwork:
		return "only-network"
	case OnlyCache:
		return "only-cache"
	case PreferCache:
		return "prefer-cache"
	case AlwaysCache:
		return "always-cache"
	case PreferNetwork:
		return "prefer-network"
	default:
		return "unknown"
	}
}
