package errors

import (
	"errors"
	"strings"
)

// Error is the error type returned across every package boundary in
// this module. It carries a CodeError and a chain of parent causes,
// adapted from github.com/nabbar/golib/errors's Error interface.
type Error interface {
	error
	Code() CodeError
	Parents() []error
	AddParent(p ...error) Error
	HasParent() bool
	Unwrap() error
}

type wrapped struct {
	code    CodeError
	parents []error
}

// New builds an Error for code with the given parent causes.
func New(code CodeError, parents ...error) Error {
	w := &wrapped{code: code}
	for _, p := range parents {
		if p != nil {
			w.parents = append(w.parents, p)
		}
	}
	return w
}

// FromNetError maps a generic Go error (as returned by net/http's
// RoundTrip or net.Dial) into the taxonomy, falling back to
// TransportErrorBase.
func FromNetError(err error) Error {
	if err == nil {
		return nil
	}

	var netErr interface{ Timeout() bool }
	switch {
	case errors.As(err, &netErr) && netErr.Timeout():
		return New(ConnectionTimeout, err)
	case strings.Contains(err.Error(), "connection refused"):
		return New(ConnectionRefused, err)
	case strings.Contains(err.Error(), "no such host"):
		return New(HostNotFound, err)
	case strings.Contains(err.Error(), "tls") || strings.Contains(err.Error(), "x509") || strings.Contains(err.Error(), "certificate"):
		return New(SslHandshakeFailed, err)
	case strings.Contains(err.Error(), "stopped after") && strings.Contains(err.Error(), "redirect"):
		return New(TooManyRedirects, err)
	default:
		return New(TransportErrorBase, err)
	}
}

func (w *wrapped) Error() string {
	msg := w.code.Message()
	if len(w.parents) == 0 {
		return msg
	}

	parts := make([]string, 0, len(w.parents)+1)
	parts = append(parts, msg)
	for _, p := range w.parents {
		parts = append(parts, p.Error())
	}
	return strings.Join(parts, ": ")
}

func (w *wrapped) Code() CodeError { return w.code }

func (w *wrapped) Parents() []error {
	out := make([]error, len(w.parents))
	copy(out, w.parents)
	return out
}

func (w *wrapped) AddParent(p ...error) Error {
	for _, e := range p {
		if e != nil {
			w.parents = append(w.parents, e)
		}
	}
	return w
}

func (w *wrapped) HasParent() bool {
	return len(w.parents) > 0
}

// Unwrap returns the first parent, so errors.Is/errors.As can walk the
// chain with the standard library.
func (w *wrapped) Unwrap() error {
	if len(w.parents) == 0 {
		return nil
	}
	return w.parents[0]
}

// Is supports errors.Is(err, SomeCodeError) by comparing codes when
// the target is itself an Error.
func (w *wrapped) Is(target error) bool {
	if o, ok := target.(Error); ok {
		return o.Code() == w.code
	}
	return false
}
