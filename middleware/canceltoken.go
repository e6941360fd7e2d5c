package middleware

import (
	"sync"
	"time"
)

// Cancellable is the minimal surface a CancelToken fans cancellation
// out to. reply.Reply implements it.
type Cancellable interface {
	Cancel()
}

// CancelToken aggregates many Cancellable attachments and fans out
// Cancel() to every live one, per §4.10. Attach does not watch an
// attachment's completion: an entry stays registered until Detach is
// called with its handle or the token is cancelled.
type CancelToken struct {
	mu        sync.Mutex
	attached  map[int]Cancellable
	nextID    int
	cancelled bool
	timer     *time.Timer
}

// NewCancelToken builds an empty, live token.
func NewCancelToken() *CancelToken {
	return &CancelToken{attached: make(map[int]Cancellable)}
}

// Attach registers r and returns a handle for Detach. Attaching to an
// already-cancelled token cancels r immediately.
func (t *CancelToken) Attach(r Cancellable) int {
	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		r.Cancel()
		return -1
	}
	t.nextID++
	id := t.nextID
	t.attached[id] = r
	t.mu.Unlock()
	return id
}

// Detach removes a previously attached handle.
func (t *CancelToken) Detach(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.attached, id)
}

// Cancel fans out Cancel() to every currently attached entry, then
// marks the token cancelled. Idempotent.
func (t *CancelToken) Cancel() {
	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		return
	}
	t.cancelled = true
	targets := make([]Cancellable, 0, len(t.attached))
	for _, r := range t.attached {
		targets = append(targets, r)
	}
	t.attached = make(map[int]Cancellable)
	if t.timer != nil {
		t.timer.Stop()
	}
	t.mu.Unlock()

	for _, r := range targets {
		r.Cancel()
	}
}

// IsCancelled reports whether Cancel has already run.
func (t *CancelToken) IsCancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// SetAutoTimeout arranges for Cancel to run automatically after d,
// unless the token is cancelled sooner.
func (t *CancelToken) SetAutoTimeout(d time.Duration) {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(d, t.Cancel)
	t.mu.Unlock()
}
