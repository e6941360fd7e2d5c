package middleware

import (
	"sync"
	"time"

	liberr "github.com/nabbar/netcore/errors"
)

// MockResponse is a synthesized outcome for a registered URL.
type MockResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

type mockEntry struct {
	resp *MockResponse
	err  liberr.CodeError
}

// MockHandler intercepts requests at the access manager before the
// transport path, per §4.10: a registered response or error is
// returned after an optional global delay instead of issuing the
// network request.
type MockHandler struct {
	mu      sync.RWMutex
	entries map[string]mockEntry
	delay   time.Duration
}

// NewMockHandler builds an empty handler with no global delay.
func NewMockHandler() *MockHandler {
	return &MockHandler{entries: make(map[string]mockEntry)}
}

// RegisterResponse makes url synthesize resp instead of hitting the
// network.
func (h *MockHandler) RegisterResponse(url string, resp MockResponse) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[url] = mockEntry{resp: &resp}
}

// RegisterError makes url synthesize a terminal error instead of
// hitting the network.
func (h *MockHandler) RegisterError(url string, code liberr.CodeError) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[url] = mockEntry{err: code}
}

// Unregister removes any mock for url.
func (h *MockHandler) Unregister(url string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.entries, url)
}

// SetGlobalDelay applies d before every synthesized outcome, mocking
// network latency.
func (h *MockHandler) SetGlobalDelay(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.delay = d
}

// Lookup returns the registered outcome for url, if any, and the
// configured global delay to apply before delivering it.
func (h *MockHandler) Lookup(url string) (resp *MockResponse, err liberr.CodeError, delay time.Duration, ok bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	e, found := h.entries[url]
	if !found {
		return nil, liberr.NoError, 0, false
	}
	return e.resp, e.err, h.delay, true
}
