package scheduler

import (
	"sync"
	"time"

	"github.com/eapache/queue"
	"github.com/nabbar/netcore/policy"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Stats is a snapshot of the scheduler's counters, per §4.7.
type Stats struct {
	Pending           int
	Running           int
	Completed         uint64
	Cancelled         uint64
	TotalBytesRecv    uint64
	EMAResponseTimeMs float64
}

// Scheduler is the priority admission gate of §4.7: six FIFO queues
// keyed by policy.Priority (Critical bypasses them), a per-process and
// per-host concurrency gate, and an optional bandwidth window. Grounded
// on github.com/eapache/queue (the pack's only FIFO queue dependency,
// used by momentics-hioload-ws's send/receive rings) and on
// golang.org/x/sync/semaphore plus golang.org/x/time/rate, both present
// in caddyserver-caddy's go.mod.
type Scheduler struct {
	mu sync.Mutex

	cfg Config

	queues   map[policy.Priority]*queue.Queue
	running  map[uint64]*Item
	deferred map[uint64]*Item
	perHost  map[string]int

	sem     *semaphore.Weighted
	limiter *rate.Limiter

	bytesThisSecond int64
	stopTicker      chan struct{}

	nextID uint64

	completed  uint64
	cancelled  uint64
	totalBytes uint64
	emaRespMs  float64
}

const emaAlpha = 0.2

// New builds a Scheduler from cfg. A zero MaxConcurrentRequests/
// MaxRequestsPerHost is treated as "unlimited" for that gate.
func New(cfg Config) *Scheduler {
	s := &Scheduler{
		cfg:        cfg,
		queues:     make(map[policy.Priority]*queue.Queue, len(policy.Levels())),
		running:    make(map[uint64]*Item),
		deferred:   make(map[uint64]*Item),
		perHost:    make(map[string]int),
		stopTicker: make(chan struct{}),
	}
	for _, lvl := range policy.Levels() {
		s.queues[lvl] = queue.New()
	}
	if cfg.MaxConcurrentRequests > 0 {
		s.sem = semaphore.NewWeighted(int64(cfg.MaxConcurrentRequests))
	}
	if cfg.EnableThrottling && cfg.MaxBandwidthBytesSec > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.MaxBandwidthBytesSec), int(cfg.MaxBandwidthBytesSec))
		go s.tickBandwidthWindow()
	}
	return s
}

// Close stops the bandwidth reset ticker, if one was started.
func (s *Scheduler) Close() {
	select {
	case <-s.stopTicker:
	default:
		close(s.stopTicker)
	}
}

func (s *Scheduler) tickBandwidthWindow() {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-s.stopTicker:
			return
		case <-t.C:
			s.mu.Lock()
			s.bytesThisSecond = 0
			s.mu.Unlock()
			s.processQueue()
		}
	}
}

// Enqueue submits it for admission. Critical priority bypasses every
// queue and starts immediately, per §4.7.
func (s *Scheduler) Enqueue(it *Item) uint64 {
	s.mu.Lock()
	s.nextID++
	it.ID = s.nextID
	it.enqueuedAt = time.Now()

	if it.Priority == policy.Critical {
		s.running[it.ID] = it
		it.startedAt = it.enqueuedAt
		s.perHost[it.Host]++
		s.mu.Unlock()
		it.Runnable.Start()
		return it.ID
	}

	s.queues[it.Priority].Add(it)
	s.mu.Unlock()

	s.processQueue()
	return it.ID
}

// processQueue runs the admission algorithm of §4.7: high to low
// priority, admitting from the front of each queue until a gate
// blocks it.
func (s *Scheduler) processQueue() {
	s.mu.Lock()
	defer s.mu.Unlock()

	levels := policy.Levels()
	for i := len(levels) - 1; i >= 0; i-- {
		lvl := levels[i]
		q := s.queues[lvl]

		for q.Length() > 0 {
			head := q.Peek().(*Item)

			if head.Runnable.Dead() {
				q.Remove()
				continue
			}
			if s.sem != nil && !s.sem.TryAcquire(1) {
				return
			}
			if s.cfg.MaxRequestsPerHost > 0 && s.perHost[head.Host] >= s.cfg.MaxRequestsPerHost {
				if s.sem != nil {
					s.sem.Release(1)
				}
				break
			}
			if s.cfg.EnableThrottling && s.cfg.MaxBandwidthBytesSec > 0 &&
				s.bytesThisSecond >= s.cfg.MaxBandwidthBytesSec {
				if s.sem != nil {
					s.sem.Release(1)
				}
				return
			}

			q.Remove()
			head.startedAt = time.Now()
			s.running[head.ID] = head
			s.perHost[head.Host]++
			head.Runnable.Start()
		}
	}
}

// Complete marks id as finished and re-runs admission. nBytes is added
// to the scheduler's received-byte and bandwidth-window counters;
// durMs updates the response-time EMA.
func (s *Scheduler) Complete(id uint64, nBytes int64, durMs float64, cancelled bool) {
	s.mu.Lock()
	it, ok := s.running[id]
	if ok {
		delete(s.running, id)
		s.perHost[it.Host]--
		if s.perHost[it.Host] <= 0 {
			delete(s.perHost, it.Host)
		}
		if s.sem != nil && it.Priority != policy.Critical {
			s.sem.Release(1)
		}
	}
	if cancelled {
		s.cancelled++
	} else {
		s.completed++
	}
	s.totalBytes += uint64(nBytes)
	s.bytesThisSecond += nBytes
	if s.emaRespMs == 0 {
		s.emaRespMs = durMs
	} else {
		s.emaRespMs = emaAlpha*durMs + (1-emaAlpha)*s.emaRespMs
	}
	s.mu.Unlock()

	s.processQueue()
}

// DeferRequest aborts a running item's transfer and moves it to the
// deferred list, freeing its admission slot. The item waits there for
// UndeferRequest, which re-enqueues it at Normal priority; its
// original priority is not kept (§4.7).
func (s *Scheduler) DeferRequest(id uint64) bool {
	s.mu.Lock()
	it, ok := s.running[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.running, id)
	s.perHost[it.Host]--
	if s.perHost[it.Host] <= 0 {
		delete(s.perHost, it.Host)
	}
	if s.sem != nil && it.Priority != policy.Critical {
		s.sem.Release(1)
	}
	s.deferred[id] = it
	s.mu.Unlock()

	it.Runnable.Abort()
	s.processQueue()
	return true
}

// UndeferRequest re-enqueues a deferred item at Normal priority. The
// item's original priority is not recovered; this is the documented
// limitation of §4.7.
func (s *Scheduler) UndeferRequest(id uint64) bool {
	s.mu.Lock()
	it, ok := s.deferred[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.deferred, id)
	it.Priority = policy.Normal
	it.enqueuedAt = time.Now()
	s.queues[policy.Normal].Add(it)
	s.mu.Unlock()

	s.processQueue()
	return true
}

// Cancel aborts id unconditionally, whether pending or running.
func (s *Scheduler) Cancel(id uint64) bool {
	s.mu.Lock()
	if it, ok := s.running[id]; ok {
		delete(s.running, it.ID)
		s.perHost[it.Host]--
		if s.perHost[it.Host] <= 0 {
			delete(s.perHost, it.Host)
		}
		if s.sem != nil && it.Priority != policy.Critical {
			s.sem.Release(1)
		}
		s.mu.Unlock()
		it.Runnable.Abort()
		s.cancelMark()
		s.processQueue()
		return true
	}
	for _, lvl := range policy.Levels() {
		if removed := removeByID(s.queues[lvl], id); removed != nil {
			s.mu.Unlock()
			removed.Runnable.Abort()
			s.cancelMark()
			return true
		}
	}
	s.mu.Unlock()
	return false
}

func (s *Scheduler) cancelMark() {
	s.mu.Lock()
	s.cancelled++
	s.mu.Unlock()
}

// removeByID pops id out of q, preserving the relative order of the
// remaining items. Returns nil if not present.
func removeByID(q *queue.Queue, id uint64) *Item {
	n := q.Length()
	var found *Item
	for i := 0; i < n; i++ {
		it := q.Remove().(*Item)
		if it.ID == id {
			found = it
			continue
		}
		q.Add(it)
	}
	return found
}

// ChangePriority re-ranks a still-pending item. Once admitted, per
// §4.7, priority is frozen and this is a no-op returning false.
func (s *Scheduler) ChangePriority(id uint64, newPriority policy.Priority) bool {
	s.mu.Lock()
	for _, lvl := range policy.Levels() {
		if removed := removeByID(s.queues[lvl], id); removed != nil {
			removed.Priority = newPriority
			s.queues[newPriority].Add(removed)
			s.mu.Unlock()
			s.processQueue()
			return true
		}
	}
	s.mu.Unlock()
	return false
}

// Stats returns a snapshot of the scheduler's counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := 0
	for _, lvl := range policy.Levels() {
		pending += s.queues[lvl].Length()
	}
	return Stats{
		Pending:           pending,
		Running:           len(s.running),
		Completed:         s.completed,
		Cancelled:         s.cancelled,
		TotalBytesRecv:    s.totalBytes,
		EMAResponseTimeMs: s.emaRespMs,
	}
}
