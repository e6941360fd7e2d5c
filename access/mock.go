package access

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	liberr "github.com/nabbar/netcore/errors"
	"github.com/nabbar/netcore/middleware"
)

// mockRoundTripper is the transport-bypass leg of §4.10's canonical
// order (mock first, before cache/middleware/network): a *http.Client
// built with this as its Transport never touches the network.
type mockRoundTripper struct {
	resp  *middleware.MockResponse
	code  liberr.CodeError
	delay time.Duration
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	if m.resp != nil {
		header := make(http.Header, len(m.resp.Headers))
		for k, v := range m.resp.Headers {
			header.Set(k, v)
		}
		return &http.Response{
			StatusCode: m.resp.StatusCode,
			Header:     header,
			Body:       io.NopCloser(bytes.NewReader(m.resp.Body)),
			Request:    req,
		}, nil
	}

	if liberr.IsHTTPError(m.code) {
		return &http.Response{
			StatusCode: int(m.code),
			Header:     make(http.Header),
			Body:       io.NopCloser(bytes.NewReader(nil)),
			Request:    req,
		}, nil
	}

	if m.code == liberr.ConnectionTimeout {
		return nil, &mockTimeoutError{msg: "mocked: connection timed out"}
	}
	return nil, fmt.Errorf("access: mocked error: %s", mockErrorText(m.code))
}

// mockTimeoutError satisfies the interface{ Timeout() bool } that
// errors.FromNetError checks for, so a mocked ConnectionTimeout
// classifies the same way a real net.Error would.
type mockTimeoutError struct{ msg string }

func (e *mockTimeoutError) Error() string { return e.msg }
func (e *mockTimeoutError) Timeout() bool { return true }

// mockErrorText produces a message classifiable by errors.FromNetError
// for the taxonomy entries that have a recognizable substring match.
// Codes outside that set fall back to errors.TransportErrorBase, the
// same catch-all a real unmapped transport error would hit.
func mockErrorText(code liberr.CodeError) string {
	switch code {
	case liberr.ConnectionRefused:
		return "connection refused"
	case liberr.HostNotFound:
		return "no such host"
	case liberr.SslHandshakeFailed:
		return "tls: handshake failure"
	case liberr.TooManyRedirects:
		return "stopped after 10 redirects"
	default:
		return code.Message()
	}
}
