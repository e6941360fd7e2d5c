// Package loop implements the multi-handle event loop of spec.md
// §4.4: an owning goroutine that tracks active Replies and drains
// completion/cross-thread-submission events, grounded on the
// run-loop/channel-dispatch shape of
// momentics-hioload-ws/server/scheduler.go, adapted from its socket
// ring buffer to a generic closure queue. A Loop is standalone:
// access.Manager does not create one, and the Replies it hands out
// are started without passing through a Loop.
package loop

import (
	"sync"

	"github.com/nabbar/netcore/reply"
)

type completion struct {
	r *reply.Reply
}

// Loop owns the goroutine that is the single point of truth for the
// set of active Replies, the Go analogue of §4.4's "owning thread".
// Submit and PostFunc are safe from any goroutine. Submit adds a
// Reply to active on the caller's goroutine and run() removes it when
// its completion event arrives; every access holds mu.
type Loop struct {
	mu     sync.Mutex
	active map[*reply.Reply]struct{}

	completions chan completion
	funcs       chan func()
	shutdown    chan struct{}
	wg          sync.WaitGroup
}

// New starts a Loop's owning goroutine. Close stops it.
func New() *Loop {
	l := &Loop{
		active:      make(map[*reply.Reply]struct{}),
		completions: make(chan completion, 64),
		funcs:       make(chan func(), 64),
		shutdown:    make(chan struct{}),
	}
	l.wg.Add(1)
	go l.run()
	return l
}

func (l *Loop) run() {
	defer l.wg.Done()
	for {
		select {
		case <-l.shutdown:
			return
		case c := <-l.completions:
			l.mu.Lock()
			delete(l.active, c.r)
			l.mu.Unlock()
		case fn := <-l.funcs:
			fn()
		}
	}
}

// Submit registers r as active and starts its HTTP round-trip on a
// worker goroutine, posting a completion event back to the loop when
// it finishes. The loop goroutine itself never blocks on I/O.
func (l *Loop) Submit(r *reply.Reply) {
	l.mu.Lock()
	l.active[r] = struct{}{}
	l.mu.Unlock()

	r.OnFinished(func(fr *reply.Reply) {
		select {
		case l.completions <- completion{r: fr}:
		case <-l.shutdown:
		}
	})

	r.Start()
}

// PostFunc marshals fn onto the loop's owning goroutine, the
// cross-thread submission mechanism of §4.4/§9.
func (l *Loop) PostFunc(fn func()) {
	select {
	case l.funcs <- fn:
	case <-l.shutdown:
	}
}

// ActiveCount reports how many Replies are currently tracked as
// in-flight by this loop.
func (l *Loop) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.active)
}

// Close stops the owning goroutine. Already-submitted Replies keep
// running to completion; their completion events are simply dropped.
func (l *Loop) Close() {
	close(l.shutdown)
	l.wg.Wait()
}
