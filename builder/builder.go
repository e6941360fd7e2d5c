// Package builder implements the two request-construction surfaces of
// spec.md §4.2: a "flat" builder that finalizes with Build(), and a
// "fluent" builder that finalizes with SendGet/SendPost/...-style
// calls. Those calls return the built request.Request, which the
// caller hands to the matching access.Manager verb, since this
// package has no transport of its own — access.Manager owns
// dispatch. Both are grounded on
// github.com/nabbar/golib/httpcli/interface.go's chained-setter shape
// and both normalize into the same request.Request value
// (testable property 3).
package builder

import (
	"encoding/base64"
	"net/url"

	"github.com/nabbar/netcore/policy"
	"github.com/nabbar/netcore/request"
	"github.com/nabbar/netcore/retry"
)

// Flat accumulates configuration and only produces a request.Request
// when Build is called.
type Flat struct {
	url      string
	headers  []request.Header
	follow   *bool
	hasRange bool
	start    int64
	end      int64
	ssl      *policy.SSL
	proxy    *policy.Proxy
	timeout  *policy.Timeout
	version  *policy.Version
	retry    *retry.Policy
	priority *policy.Priority
	cache    *policy.CachePolicy
}

// NewFlat starts a flat builder targeting rawURL.
func NewFlat(rawURL string) *Flat {
	return &Flat{url: rawURL}
}

func (f *Flat) Header(name, value string) *Flat {
	f.headers = append(f.headers, request.Header{Name: name, Value: value})
	return f
}

func (f *Flat) AuthBearer(token string) *Flat {
	return f.Header("Authorization", "Bearer "+token)
}

func (f *Flat) AuthBasic(user, pass string) *Flat {
	return f.Header("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(user+":"+pass)))
}

func (f *Flat) ContentType(ct string) *Flat {
	return f.Header("Content-Type", ct)
}

func (f *Flat) AddParams(key, val string) *Flat {
	u, err := url.Parse(f.url)
	if err != nil {
		return f
	}
	q := u.Query()
	q.Set(key, val)
	u.RawQuery = q.Encode()
	f.url = u.String()
	return f
}

func (f *Flat) FollowRedirects(follow bool) *Flat {
	f.follow = &follow
	return f
}

func (f *Flat) Range(start, end int64) *Flat {
	f.hasRange = true
	f.start, f.end = start, end
	return f
}

func (f *Flat) SSL(s policy.SSL) *Flat         { f.ssl = &s; return f }
func (f *Flat) Proxy(p policy.Proxy) *Flat     { f.proxy = &p; return f }
func (f *Flat) Timeout(t policy.Timeout) *Flat { f.timeout = &t; return f }
func (f *Flat) Version(v policy.Version) *Flat { f.version = &v; return f }
func (f *Flat) Retry(p retry.Policy) *Flat     { f.retry = &p; return f }
func (f *Flat) Priority(p policy.Priority) *Flat {
	f.priority = &p
	return f
}
func (f *Flat) CachePolicy(c policy.CachePolicy) *Flat { f.cache = &c; return f }

// Build finalizes the accumulated configuration into a request.Request.
func (f *Flat) Build() (request.Request, error) {
	r := request.New(f.url)
	for _, h := range f.headers {
		r = r.WithHeader(h.Name, h.Value)
	}
	if f.follow != nil {
		r = r.WithFollowRedirects(*f.follow)
	}
	if f.hasRange {
		r = r.WithRange(f.start, f.end)
	}
	if f.ssl != nil {
		r = r.WithSSL(*f.ssl)
	}
	if f.proxy != nil {
		r = r.WithProxy(*f.proxy)
	}
	if f.timeout != nil {
		r = r.WithTimeout(*f.timeout)
	}
	if f.version != nil {
		r = r.WithVersion(*f.version)
	}
	if f.retry != nil {
		r = r.WithRetry(*f.retry)
	}
	if f.priority != nil {
		r = r.WithPriority(*f.priority)
	}
	if f.cache != nil {
		r = r.WithCachePolicy(*f.cache)
	}
	if err := r.Validate(); err != nil {
		return request.Request{}, err
	}
	return r, nil
}

// Fluent wraps the same accumulation as Flat but exposes the
// per-verb "send and finalize in one call" style of
// nabbar-golib/httpcli. Unlike Flat it always produces a Request the
// moment a Send* method is called.
type Fluent struct {
	f *Flat
}

// NewFluent starts a fluent builder targeting rawURL.
func NewFluent(rawURL string) *Fluent {
	return &Fluent{f: NewFlat(rawURL)}
}

func (c *Fluent) Header(name, value string) *Fluent { c.f.Header(name, value); return c }
func (c *Fluent) AuthBearer(token string) *Fluent    { c.f.AuthBearer(token); return c }
func (c *Fluent) AuthBasic(user, pass string) *Fluent {
	c.f.AuthBasic(user, pass)
	return c
}
func (c *Fluent) ContentType(ct string) *Fluent          { c.f.ContentType(ct); return c }
func (c *Fluent) AddParams(key, val string) *Fluent      { c.f.AddParams(key, val); return c }
func (c *Fluent) FollowRedirects(follow bool) *Fluent    { c.f.FollowRedirects(follow); return c }
func (c *Fluent) Range(start, end int64) *Fluent         { c.f.Range(start, end); return c }
func (c *Fluent) SSL(s policy.SSL) *Fluent               { c.f.SSL(s); return c }
func (c *Fluent) Proxy(p policy.Proxy) *Fluent           { c.f.Proxy(p); return c }
func (c *Fluent) Timeout(t policy.Timeout) *Fluent       { c.f.Timeout(t); return c }
func (c *Fluent) Version(v policy.Version) *Fluent       { c.f.Version(v); return c }
func (c *Fluent) Retry(p retry.Policy) *Fluent           { c.f.Retry(p); return c }
func (c *Fluent) Priority(p policy.Priority) *Fluent     { c.f.Priority(p); return c }
func (c *Fluent) CachePolicy(p policy.CachePolicy) *Fluent {
	c.f.CachePolicy(p)
	return c
}

// SendGet, SendPost, ... finalize the fluent chain into a Request; the
// verb itself is threaded through to access.Manager by the caller
// (access.Manager.Get(req), access.Manager.Post(req, body), ...) since
// this package has no transport dependency.
func (c *Fluent) SendGet() (request.Request, error)  { return c.f.Build() }
func (c *Fluent) SendPost() (request.Request, error) { return c.f.Build() }
func (c *Fluent) SendPut() (request.Request, error)  { return c.f.Build() }
func (c *Fluent) SendHead() (request.Request, error) { return c.f.Build() }
