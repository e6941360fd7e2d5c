package websocket

import (
	"fmt"
	"sync/atomic"
)

// CompressionStats tracks the raw/compressed byte counters §4.11
// requires, in both directions. All fields are updated atomically so
// a caller can read Snapshot concurrently with the session's own
// send/receive goroutines.
type CompressionStats struct {
	sentRaw       uint64
	sentCompr     uint64
	receivedRaw   uint64
	receivedCompr uint64
}

// Snapshot is a point-in-time copy of CompressionStats' counters.
type Snapshot struct {
	SentBytesRaw            uint64
	SentBytesCompressed     uint64
	ReceivedBytesRaw        uint64
	ReceivedBytesCompressed uint64
}

func (c *CompressionStats) addSent(raw, compressed int) {
	atomic.AddUint64(&c.sentRaw, uint64(raw))
	atomic.AddUint64(&c.sentCompr, uint64(compressed))
}

func (c *CompressionStats) addReceived(raw, compressed int) {
	atomic.AddUint64(&c.receivedRaw, uint64(raw))
	atomic.AddUint64(&c.receivedCompr, uint64(compressed))
}

// Snapshot returns the current counter values.
func (c *CompressionStats) Snapshot() Snapshot {
	return Snapshot{
		SentBytesRaw:            atomic.LoadUint64(&c.sentRaw),
		SentBytesCompressed:     atomic.LoadUint64(&c.sentCompr),
		ReceivedBytesRaw:        atomic.LoadUint64(&c.receivedRaw),
		ReceivedBytesCompressed: atomic.LoadUint64(&c.receivedCompr),
	}
}

// Summary formats the counters as a single human-readable line, for
// logging at session close.
func (s Snapshot) Summary() string {
	return fmt.Sprintf("sent %d/%d raw/compressed, received %d/%d raw/compressed",
		s.SentBytesRaw, s.SentBytesCompressed, s.ReceivedBytesRaw, s.ReceivedBytesCompressed)
}
