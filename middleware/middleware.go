// Package middleware implements the pre-send/post-receive hooks, the
// fan-out cancel token, and the transport-bypassing mock handler of
// spec.md §4.10, grounded on nabbar-golib/httpcli's Middleware
// interface shape (httpcli/interface.go) and its own request/response
// hook pattern.
package middleware

import "github.com/nabbar/netcore/request"

// Middleware runs in registration order around a Reply's execution:
// OnRequestPreSend may mutate the outgoing request; OnResponseReceived
// observes the final status/headers after completion, before the
// finished signal.
type Middleware interface {
	OnRequestPreSend(req request.Request) request.Request
	OnResponseReceived(statusCode int, headers map[string]string)
}

// Chain runs a fixed ordered list of Middleware, the shape
// access.Manager holds non-owning references to.
type Chain []Middleware

func (c Chain) RunPreSend(req request.Request) request.Request {
	for _, m := range c {
		req = m.OnRequestPreSend(req)
	}
	return req
}

func (c Chain) RunResponseReceived(statusCode int, headers map[string]string) {
	for _, m := range c {
		m.OnResponseReceived(statusCode, headers)
	}
}
