package scheduler

import (
	"time"

	"github.com/nabbar/netcore/policy"
)

// Runnable is the minimal surface the scheduler needs from whatever it
// admits. reply.Reply implements it; tests use fakes.
type Runnable interface {
	// Start is invoked once the item is admitted. It must not block.
	Start()
	// Abort cancels an in-flight item, used by DeferRequest and
	// Cancel.
	Abort()
	// Dead reports whether the item is already finished/cancelled and
	// should be discarded without ever being admitted.
	Dead() bool
}

// Item is one scheduler admission ticket.
type Item struct {
	ID       uint64
	Host     string
	Priority policy.Priority
	Runnable Runnable

	enqueuedAt time.Time
	startedAt  time.Time
}
