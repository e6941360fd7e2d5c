// Package errors defines the CodeError taxonomy shared across this
// module, adapted from github.com/nabbar/golib/errors: a numeric,
// HTTP-status-flavored error code with a registered message table and
// an Error type that keeps a chain of parent causes.
package errors

import (
	"fmt"
	"sync"
)

// CodeError is a numeric error code. Values 400-599 mirror HTTP status
// codes (property 9: isHttpError(fromHttpCode(x)) <-> 400<=x<600);
// values below 100 are reserved; values at or above TransportErrorBase
// wrap a net/tls error that has no direct taxonomy entry, mirroring
// the source's CurlErrorBase+n scheme.
type CodeError uint32

const (
	// NoError means the operation completed without error.
	NoError CodeError = 0

	firstConnectionError CodeError = 100 + iota
	ConnectionRefused
	ConnectionTimeout
	HostNotFound
	SslHandshakeFailed
	TooManyRedirects

	OperationCancelled
	InvalidRequest
	Unknown

	// NoCacheEntry is returned by the OnlyCache policy when nothing is cached.
	NoCacheEntry

	// RangeNotSatisfied is returned by the resumable downloader when the
	// server ignores the Range header on resume.
	RangeNotSatisfied

	// PoolLimitReached is returned when a WebSocket pool ceiling is hit.
	PoolLimitReached
)

var _ = firstConnectionError // keeps the iota block's first value documented

// TransportErrorBase is added to a wrapped net/tls error code that has
// no direct taxonomy entry.
const TransportErrorBase CodeError = 1000

// FromHTTPStatus maps an HTTP status code to its taxonomy entry: the
// taxonomy value equals the status number for 4xx/5xx, NoError
// otherwise.
func FromHTTPStatus(status int) CodeError {
	if status >= 400 && status < 600 {
		return CodeError(status)
	}
	return NoError
}

// IsHTTPError reports whether c came from a 4xx/5xx HTTP status.
func IsHTTPError(c CodeError) bool {
	return c >= 400 && c < 600
}

// IsTransportError reports whether c wraps a transport-layer error.
func IsTransportError(c CodeError) bool {
	return c >= TransportErrorBase
}

var (
	msgMu  sync.RWMutex
	msgFns = make(map[CodeError]func(CodeError) string)
)

// RegisterMessage registers a message function for code. It panics on
// collision, the way the teacher's RegisterIdFctMessage does.
func RegisterMessage(code CodeError, fn func(CodeError) string) {
	msgMu.Lock()
	defer msgMu.Unlock()

	if _, ok := msgFns[code]; ok {
		panic(fmt.Sprintf("errors: message collision for code %d", code))
	}
	msgFns[code] = fn
}

// Message returns the human-readable text for c.
func (c CodeError) Message() string {
	msgMu.RLock()
	fn, ok := msgFns[c]
	msgMu.RUnlock()

	if ok {
		if m := fn(c); m != "" {
			return m
		}
	}
	if IsHTTPError(c) {
		return fmt.Sprintf("http status error %d", c)
	}
	if IsTransportError(c) {
		return fmt.Sprintf("transport error %d", c-TransportErrorBase)
	}
	return "unknown error"
}

func (c CodeError) String() string {
	return fmt.Sprintf("%d", uint32(c))
}

// Error builds an Error value carrying this code and optional parents.
func (c CodeError) Error(parents ...error) Error {
	return New(c, parents...)
}

func init() {
	RegisterMessage(ConnectionRefused, func(CodeError) string { return "connection refused" })
	RegisterMessage(ConnectionTimeout, func(CodeError) string { return "connection timed out" })
	RegisterMessage(HostNotFound, func(CodeError) string { return "host not found" })
	RegisterMessage(SslHandshakeFailed, func(CodeError) string { return "ssl handshake failed" })
	RegisterMessage(TooManyRedirects, func(CodeError) string { return "too many redirects" })
	RegisterMessage(OperationCancelled, func(CodeError) string { return "operation cancelled" })
	RegisterMessage(InvalidRequest, func(CodeError) string { return "invalid request" })
	RegisterMessage(Unknown, func(CodeError) string { return "unknown error" })
	RegisterMessage(NoCacheEntry, func(CodeError) string { return "no cache entry for url" })
	RegisterMessage(RangeNotSatisfied, func(CodeError) string { return "range not satisfiable: server ignored Range header" })
	RegisterMessage(PoolLimitReached, func(CodeError) string { return "connection pool limit reached" })
}
