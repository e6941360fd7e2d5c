// Package handle wraps the construction of a single *http.Request,
// the Go analogue of spec.md §4.3's RAII easy-handle wrapper: a fresh
// header set is built for every attempt so nothing leaks across
// retries, grounded on github.com/nabbar/golib/httpcli/model.go's
// _MakeRequest.
package handle

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"

	liberr "github.com/nabbar/netcore/errors"
	"github.com/nabbar/netcore/request"
)

// Handle owns one *http.Request for the lifetime of a single attempt.
// It is not reused across retries: Reply calls New for every attempt,
// mirroring "the slist is rebuilt fresh for every Reply" in §4.3.
type Handle struct {
	req   *http.Request
	valid bool
}

// New builds a Handle for method/body against r, applying headers and
// the byte range the way §4.5 step 2 describes. body may be nil.
func New(ctx context.Context, method string, r request.Request, body io.Reader) (*Handle, liberr.Error) {
	if _, err := url.Parse(r.URL()); err != nil {
		return nil, liberr.InvalidRequest.Error(err)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.URL(), body)
	if err != nil {
		return nil, liberr.InvalidRequest.Error(err)
	}

	for _, h := range r.Headers() {
		req.Header.Add(h.Name, h.Value)
	}

	if rng, ok := r.Range(); ok {
		req.Header.Set("Range", rangeHeader(rng.Start, rng.End))
	}

	if !r.FollowRedirects() {
		// net/http has no per-request redirect toggle; it is applied
		// at the http.Client level by reply.BuildClient, which reads
		// r.FollowRedirects() itself.
	}

	return &Handle{req: req, valid: true}, nil
}

func rangeHeader(start, end int64) string {
	return "bytes=" + strconv.FormatInt(start, 10) + "-" + strconv.FormatInt(end, 10)
}

// Valid reports whether this handle was successfully allocated, the
// equivalent of a non-null easy-handle from curl_easy_init.
func (h *Handle) Valid() bool {
	return h != nil && h.valid
}

// Request returns the underlying *http.Request.
func (h *Handle) Request() *http.Request {
	if h == nil {
		return nil
	}
	return h.req
}

// Release frees this handle. *http.Request has no native resources to
// free, so this only exists so callers can `defer h.Release()` the
// way they would `defer easy.Close()` against a real easy-handle.
func (h *Handle) Release() {
	if h == nil {
		return
	}
	h.valid = false
	h.req = nil
}
