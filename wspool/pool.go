package wspool

import (
	"context"
	"fmt"
	"sync"
	"time"

	liberr "github.com/nabbar/netcore/errors"
	"github.com/nabbar/netcore/logger"
	"github.com/nabbar/netcore/websocket"
)

// entry is one pooled socket's bookkeeping, per §4.12's
// {socket, inUse, createdAt, lastUsedAt, reuseCount} record.
type entry struct {
	session    *websocket.Session
	inUse      bool
	createdAt  time.Time
	lastUsedAt time.Time
	reuseCount int
}

// Stats is a snapshot of a Pool's acquire accounting.
type Stats struct {
	Hits   uint64
	Misses uint64
	Total  int
	PerURL map[string]int
}

// Pool is a per-URL cache of live WebSocket sessions, per §4.12.
type Pool struct {
	mu    sync.Mutex
	cfg   Config
	byURL map[string][]*entry
	byKey map[*websocket.Session]*entry
	total int

	hits   uint64
	misses uint64

	log *logger.Logger

	onPoolLimitReached []func(url string, err error)

	stopCleanup   chan struct{}
	stopKeepAlive chan struct{}
}

// New builds a Pool with cfg. Start must be called to run the idle
// cleanup (and optional keep-alive) timers.
func New(cfg Config) *Pool {
	return &Pool{
		cfg:   cfg,
		byURL: make(map[string][]*entry),
		byKey: make(map[*websocket.Session]*entry),
	}
}

// SetLogger attaches a logger for cleanup/ceiling diagnostics.
func (p *Pool) SetLogger(l *logger.Logger) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.log = l
}

// OnPoolLimitReached registers a callback fired whenever Acquire is
// rejected by a global or per-URL ceiling.
func (p *Pool) OnPoolLimitReached(cb func(url string, err error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onPoolLimitReached = append(p.onPoolLimitReached, cb)
}

// Start launches the idle-cleanup timer and, if configured, a
// keep-alive ping timer.
func (p *Pool) Start() {
	p.mu.Lock()
	interval := p.cfg.CleanupInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	p.stopCleanup = make(chan struct{})
	stop := p.stopCleanup
	keepAlive := p.cfg.KeepAliveInterval
	p.mu.Unlock()

	go p.cleanupLoop(interval, stop)

	if keepAlive > 0 {
		p.mu.Lock()
		p.stopKeepAlive = make(chan struct{})
		kaStop := p.stopKeepAlive
		p.mu.Unlock()
		go p.keepAliveLoop(keepAlive, kaStop)
	}
}

// Stop halts the background timers and closes every pooled session.
func (p *Pool) Stop() {
	p.mu.Lock()
	cleanupStop := p.stopCleanup
	keepAliveStop := p.stopKeepAlive
	sessions := make([]*websocket.Session, 0, len(p.byKey))
	for s := range p.byKey {
		sessions = append(sessions, s)
	}
	p.byURL = make(map[string][]*entry)
	p.byKey = make(map[*websocket.Session]*entry)
	p.total = 0
	p.mu.Unlock()

	if cleanupStop != nil {
		close(cleanupStop)
	}
	if keepAliveStop != nil {
		close(keepAliveStop)
	}
	for _, s := range sessions {
		_ = s.Close(1000, "pool shutdown")
	}
}

// Acquire returns an idle, Connected session for url if one exists;
// otherwise it opens a new one, subject to the global and per-URL
// ceilings (rejected attempts return liberr.PoolLimitReached and emit
// PoolLimitReached, per §4.12).
func (p *Pool) Acquire(ctx context.Context, url string, cfg websocket.Config) (*websocket.Session, error) {
	p.mu.Lock()
	for _, e := range p.byURL[url] {
		if !e.inUse && e.session.State() == websocket.Connected {
			e.inUse = true
			e.lastUsedAt = time.Now()
			e.reuseCount++
			p.hits++
			p.mu.Unlock()
			return e.session, nil
		}
	}
	p.misses++

	if p.cfg.MaxConnectionsPerURL > 0 && len(p.byURL[url]) >= p.cfg.MaxConnectionsPerURL {
		p.mu.Unlock()
		err := liberr.PoolLimitReached.Error(fmt.Errorf("wspool: per-url ceiling %d reached for %s", p.cfg.MaxConnectionsPerURL, url))
		p.emitLimitReached(url, err)
		return nil, err
	}
	if p.cfg.MaxConnectionsGlobal > 0 && p.total >= p.cfg.MaxConnectionsGlobal {
		p.mu.Unlock()
		err := liberr.PoolLimitReached.Error(fmt.Errorf("wspool: global ceiling %d reached", p.cfg.MaxConnectionsGlobal))
		p.emitLimitReached(url, err)
		return nil, err
	}
	p.mu.Unlock()

	s := websocket.New(url, cfg)
	if err := s.Open(ctx); err != nil {
		return nil, err
	}

	now := time.Now()
	e := &entry{session: s, inUse: true, createdAt: now, lastUsedAt: now}

	p.mu.Lock()
	p.byURL[url] = append(p.byURL[url], e)
	p.byKey[s] = e
	p.total++
	p.mu.Unlock()

	return s, nil
}

// Release returns s to the pool as idle, refreshing lastUsedAt.
func (p *Pool) Release(s *websocket.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.byKey[s]; ok {
		e.inUse = false
		e.lastUsedAt = time.Now()
	}
}

func (p *Pool) emitLimitReached(url string, err error) {
	p.mu.Lock()
	cbs := append([]func(string, error){}, p.onPoolLimitReached...)
	l := p.log
	p.mu.Unlock()

	if l != nil {
		l.Warn("wspool: connection limit reached", map[string]interface{}{"url": url, "error": err.Error()})
	}
	for _, cb := range cbs {
		cb(url, err)
	}
}

// Stats returns a snapshot of the pool's hit/miss accounting and
// current per-URL occupancy.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	perURL := make(map[string]int, len(p.byURL))
	for url, list := range p.byURL {
		perURL[url] = len(list)
	}
	return Stats{Hits: p.hits, Misses: p.misses, Total: p.total, PerURL: perURL}
}

func (p *Pool) cleanupLoop(interval time.Duration, stop chan struct{}) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			p.sweep()
		}
	}
}

// sweep closes idle sessions older than MaxIdleDuration, keeping at
// least MinIdleConnections alive per URL, per §4.12.
func (p *Pool) sweep() {
	maxIdle := p.cfg.MaxIdleDuration
	if maxIdle <= 0 {
		return
	}
	minIdle := p.cfg.MinIdleConnections

	p.mu.Lock()
	var toClose []*websocket.Session
	now := time.Now()

	for url, list := range p.byURL {
		idleCount := 0
		for _, e := range list {
			if !e.inUse {
				idleCount++
			}
		}

		kept := make([]*entry, 0, len(list))
		for _, e := range list {
			if !e.inUse && idleCount > minIdle && now.Sub(e.lastUsedAt) > maxIdle {
				toClose = append(toClose, e.session)
				delete(p.byKey, e.session)
				p.total--
				idleCount--
				continue
			}
			kept = append(kept, e)
		}
		p.byURL[url] = kept
	}
	p.mu.Unlock()

	for _, s := range toClose {
		_ = s.Close(1000, "idle timeout")
	}
}

func (p *Pool) keepAliveLoop(interval time.Duration, stop chan struct{}) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			p.pingIdle()
		}
	}
}

func (p *Pool) pingIdle() {
	p.mu.Lock()
	var sessions []*websocket.Session
	for s, e := range p.byKey {
		if !e.inUse {
			sessions = append(sessions, s)
		}
	}
	p.mu.Unlock()

	for _, s := range sessions {
		_ = s.Ping(nil)
	}
}
