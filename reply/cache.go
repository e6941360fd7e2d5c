package reply

import (
	"github.com/nabbar/netcore/cache"
	liberr "github.com/nabbar/netcore/errors"
	"github.com/nabbar/netcore/policy"
)

type cacheHit struct {
	data []byte
	meta cache.Metadata
	miss bool
}

// checkCache implements §4.5's pre-execute cache check. handled==true
// means runAttempt must stop and call finishFromCache instead of
// issuing the network request.
func (r *Reply) checkCache() (*cacheHit, bool) {
	if r.cache == nil {
		return nil, false
	}

	switch r.req.Cache() {
	case policy.OnlyCache:
		if data, ok := r.cache.Data(r.req.URL()); ok {
			meta, _ := r.cache.Metadata(r.req.URL())
			return &cacheHit{data: data, meta: meta}, true
		}
		return &cacheHit{miss: true}, true

	case policy.AlwaysCache:
		if data, ok := r.cache.Data(r.req.URL()); ok {
			meta, _ := r.cache.Metadata(r.req.URL())
			return &cacheHit{data: data, meta: meta}, true
		}
		return nil, false

	case policy.PreferCache:
		if data, ok := r.cache.Data(r.req.URL()); ok {
			meta, _ := r.cache.Metadata(r.req.URL())
			if meta.IsValid() {
				return &cacheHit{data: data, meta: meta}, true
			}
		}
		return nil, false

	default: // OnlyNetwork, PreferNetwork: both issue the network request
		return nil, false
	}
}

func (r *Reply) finishFromCache(hit *cacheHit) {
	if hit.miss {
		r.complete(liberr.NoCacheEntry, nil, 0)
		return
	}

	r.mu.Lock()
	r.body.Write(hit.data)
	r.statusCode = 200
	for k, v := range hit.meta.Headers {
		r.headers[k] = v
	}
	r.mu.Unlock()

	for _, cb := range r.onReadyRead {
		cb(r)
	}
	r.complete(liberr.NoError, nil, int64(len(hit.data)))
}

// fallBackToCacheOnFailure implements the PreferNetwork leg of §4.5:
// on a network failure, fall back to any stored entry even if stale.
func (r *Reply) fallBackToCacheOnFailure(code liberr.CodeError) bool {
	if code == liberr.NoError || r.cache == nil || r.req.Cache() != policy.PreferNetwork {
		return false
	}
	data, ok := r.cache.Data(r.req.URL())
	if !ok {
		return false
	}
	meta, _ := r.cache.Metadata(r.req.URL())

	r.mu.Lock()
	r.body.Reset()
	r.body.Write(data)
	r.statusCode = 200
	for k, v := range meta.Headers {
		r.headers[k] = v
	}
	r.mu.Unlock()

	r.complete(liberr.NoError, nil, int64(len(data)))
	return true
}

// writeToCacheIfEligible stores a successful response per §4.9's
// freshness rules, unless the policy is OnlyNetwork/OnlyCache.
func (r *Reply) writeToCacheIfEligible(req interface{ Cache() policy.CachePolicy }, body []byte, headers map[string]string) {
	if r.cache == nil {
		return
	}
	switch req.Cache() {
	case policy.OnlyNetwork, policy.OnlyCache:
		return
	}
	if r.errCode != liberr.NoError {
		return
	}

	fresh := cache.ParseFreshness(headers)
	if !fresh.Cacheable {
		return
	}

	_ = r.cache.Insert(r.req.URL(), body, cache.Metadata{
		URL:            r.req.URL(),
		ExpirationDate: fresh.Expires,
		Headers:        headers,
	})
}
