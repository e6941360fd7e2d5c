// Package request implements the immutable, copy-on-write Request
// value type of spec.md §3, grounded on the Clone()/New() shape of
// github.com/nabbar/golib/httpcli's request struct.
package request

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"

	liberr "github.com/nabbar/netcore/errors"
	"github.com/nabbar/netcore/policy"
	"github.com/nabbar/netcore/retry"
)

// Header is a single raw name/value pair. Header names are compared
// case-insensitively on lookup, per §3, but the original casing is
// preserved for the wire.
type Header struct {
	Name  string
	Value string
}

// ByteRange is a byte range with inclusive Start and End, sent as
// "Range: bytes=Start-End". Validate rejects a range that is set but
// not Valid (Start>=0 && End>Start).
type ByteRange struct {
	Start int64
	End   int64
}

// Valid reports whether r describes a usable range per §3's invariant.
func (r ByteRange) Valid() bool {
	return r.Start >= 0 && r.End > r.Start
}

// data is the shared, never-mutated-after-construction payload behind
// a Request. Request itself is a thin handle around *data so that
// copying a Request is cheap; every With* method copies data (via
// clone) before changing it, per the copy-on-write guidance of §9
// DESIGN NOTES.
type data struct {
	url       string
	headers   []Header
	follow    bool
	hasRange  bool
	byteRange ByteRange
	ssl       policy.SSL
	proxy     policy.Proxy
	timeout   policy.Timeout
	version   policy.Version
	retry     retry.Policy
	priority  policy.Priority
	cache     policy.CachePolicy
}

// Request is an immutable configuration value. The zero Request is
// invalid (empty URL); use New to build one.
type Request struct {
	d *data
}

// New builds a Request for rawURL with sane defaults: redirects
// followed, default SSL verification, no retry, Normal priority,
// OnlyNetwork cache policy.
func New(rawURL string) Request {
	return Request{d: &data{
		url:      rawURL,
		follow:   true,
		ssl:      policy.DefaultSSL(),
		timeout:  policy.DefaultTimeout(),
		retry:    retry.NoRetry(),
		priority: policy.Normal,
		cache:    policy.OnlyNetwork,
	}}
}

// Validate enforces the §3 invariants: URL non-empty, header names
// non-empty, range valid when present.
func (r Request) Validate() liberr.Error {
	if r.d == nil || strings.TrimSpace(r.d.url) == "" {
		return liberr.InvalidRequest.Error(fmt.Errorf("request: url must not be empty"))
	}
	if _, err := url.Parse(r.d.url); err != nil {
		return liberr.InvalidRequest.Error(err)
	}
	for _, h := range r.d.headers {
		if strings.TrimSpace(h.Name) == "" {
			return liberr.InvalidRequest.Error(fmt.Errorf("request: header name must not be empty"))
		}
	}
	if r.d.hasRange && !r.d.byteRange.Valid() {
		return liberr.InvalidRequest.Error(fmt.Errorf("request: invalid byte range %+v", r.d.byteRange))
	}
	return nil
}

// clone returns a Request backed by a fresh *data copy, so the
// With* methods never mutate a shared instance.
func (r Request) clone() Request {
	if r.d == nil {
		return New("")
	}
	nd := *r.d
	nd.headers = append([]Header(nil), r.d.headers...)
	return Request{d: &nd}
}

func (r Request) URL() string {
	if r.d == nil {
		return ""
	}
	return r.d.url
}

func (r Request) Headers() []Header {
	if r.d == nil {
		return nil
	}
	out := make([]Header, len(r.d.headers))
	copy(out, r.d.headers)
	return out
}

// HeaderValue looks up a header case-insensitively, returning the
// first match.
func (r Request) HeaderValue(name string) (string, bool) {
	if r.d == nil {
		return "", false
	}
	for _, h := range r.d.headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

func (r Request) FollowRedirects() bool {
	return r.d == nil || r.d.follow
}

func (r Request) Range() (ByteRange, bool) {
	if r.d == nil {
		return ByteRange{}, false
	}
	return r.d.byteRange, r.d.hasRange
}

func (r Request) SSL() policy.SSL             { return r.dOr().ssl }
func (r Request) Proxy() policy.Proxy         { return r.dOr().proxy }
func (r Request) Timeout() policy.Timeout     { return r.dOr().timeout }
func (r Request) Version() policy.Version     { return r.dOr().version }
func (r Request) Retry() retry.Policy         { return r.dOr().retry }
func (r Request) Priority() policy.Priority   { return r.dOr().priority }
func (r Request) Cache() policy.CachePolicy   { return r.dOr().cache }

func (r Request) dOr() *data {
	if r.d == nil {
		return &data{}
	}
	return r.d
}

// WithHeader returns a copy of r with name/value appended. Per the
// builder equivalence property (testable property 3), this is the
// single primitive both builders funnel through.
func (r Request) WithHeader(name, value string) Request {
	n := r.clone()
	n.d.headers = append(n.d.headers, Header{Name: name, Value: value})
	return n
}

func (r Request) WithFollowRedirects(follow bool) Request {
	n := r.clone()
	n.d.follow = follow
	return n
}

func (r Request) WithRange(start, end int64) Request {
	n := r.clone()
	n.d.hasRange = true
	n.d.byteRange = ByteRange{Start: start, End: end}
	return n
}

func (r Request) WithSSL(s policy.SSL) Request {
	n := r.clone()
	n.d.ssl = s
	return n
}

func (r Request) WithProxy(p policy.Proxy) Request {
	n := r.clone()
	n.d.proxy = p
	return n
}

func (r Request) WithTimeout(t policy.Timeout) Request {
	n := r.clone()
	n.d.timeout = t
	return n
}

func (r Request) WithVersion(v policy.Version) Request {
	n := r.clone()
	n.d.version = v
	return n
}

func (r Request) WithRetry(p retry.Policy) Request {
	n := r.clone()
	n.d.retry = p
	return n
}

func (r Request) WithPriority(p policy.Priority) Request {
	n := r.clone()
	n.d.priority = p
	return n
}

func (r Request) WithCachePolicy(c policy.CachePolicy) Request {
	n := r.clone()
	n.d.cache = c
	return n
}

// Equivalent reports whether r and o carry the same configuration,
// used to test builder equivalence (testable property 3). Headers are
// compared in order, pair by pair; both builders append in call order,
// so the same sequence of calls yields equal header lists.
func (r Request) Equivalent(o Request) bool {
	a, b := r.dOr(), o.dOr()
	if a.url != b.url || a.follow != b.follow || a.hasRange != b.hasRange ||
		a.byteRange != b.byteRange || a.ssl != b.ssl || a.proxy != b.proxy ||
		a.timeout != b.timeout || a.version != b.version || a.priority != b.priority ||
		a.cache != b.cache {
		return false
	}
	if !reflect.DeepEqual(a.retry, b.retry) {
		return false
	}
	if len(a.headers) != len(b.headers) {
		return false
	}
	for i := range a.headers {
		if a.headers[i] != b.headers[i] {
			return false
		}
	}
	return true
}
