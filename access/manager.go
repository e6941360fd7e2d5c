// Package access implements the Access Manager of spec.md §4.1: the
// process-configurable entry point that hands out preconfigured
// Replies for each HTTP verb plus a handful of convenience wrappers,
// grounded on github.com/nabbar/golib/httpcli/cli.go's package-level
// singleton-with-atomic-swap shape (DefaultDNSMapper/SetDefaultDNSMapper
// over libatm.NewValue[...]).
package access

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/nabbar/netcore/cache"
	"github.com/nabbar/netcore/connpool"
	"github.com/nabbar/netcore/internal/atomicvalue"
	"github.com/nabbar/netcore/logger"
	"github.com/nabbar/netcore/middleware"
	"github.com/nabbar/netcore/reply"
	"github.com/nabbar/netcore/request"
	"github.com/nabbar/netcore/scheduler"
)

// Config configures a Manager, per §4.1.
type Config struct {
	CookieJarPath    string
	CookieMode       CookieMode
	SchedulerEnabled bool
	SchedulerConfig  scheduler.Config
	Pool             connpool.Config
}

// Manager holds the process-configurable policies of §4.1: a cookie
// jar, a non-owning Cache/middleware chain/Logger/MockHandler, and an
// optional Scheduler. It never stores the Replies it hands back.
type Manager struct {
	mu  sync.Mutex
	cfg Config

	jar  *netscapeJar
	pool *connpool.Manager
	sch  *scheduler.Scheduler

	cache cache.Cache
	mw    middleware.Chain
	log   *logger.Logger
	mock  *middleware.MockHandler
}

// New builds a Manager from cfg, opening the cookie jar eagerly.
func New(cfg Config) (*Manager, error) {
	jar, err := newCookieJar(cfg.CookieJarPath, cfg.CookieMode)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:  cfg,
		jar:  jar,
		pool: connpool.New(cfg.Pool, nil),
	}
	if cfg.SchedulerEnabled {
		m.sch = scheduler.New(cfg.SchedulerConfig)
	}
	return m, nil
}

// SetCache wires in a non-owning Cache. Pass nil to disable caching.
func (m *Manager) SetCache(c cache.Cache) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = c
}

// SetMiddleware replaces the ordered middleware chain.
func (m *Manager) SetMiddleware(mw middleware.Chain) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mw = mw
}

// SetLogger wires in a non-owning Logger.
func (m *Manager) SetLogger(l *logger.Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log = l
}

// SetMockHandler wires in a non-owning MockHandler. Pass nil to
// disable mocking.
func (m *Manager) SetMockHandler(h *middleware.MockHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mock = h
}

// Scheduler returns the Manager's scheduler, or nil if
// Config.SchedulerEnabled was false.
func (m *Manager) Scheduler() *scheduler.Scheduler {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sch
}

// Pool returns the Manager's connection-pool manager.
func (m *Manager) Pool() *connpool.Manager {
	return m.pool
}

// Close persists the cookie jar if its mode allows writing and stops
// the scheduler's background ticker, if one was started.
func (m *Manager) Close() error {
	m.mu.Lock()
	jar, path, mode, sch := m.jar, m.cfg.CookieJarPath, m.cfg.CookieMode, m.sch
	m.mu.Unlock()

	if sch != nil {
		sch.Close()
	}
	if jar != nil && path != "" && mode.canWrite() {
		return jar.save(path)
	}
	return nil
}

// snapshot is a point-in-time copy of the Manager's non-owning
// collaborators, taken under the lock once per factory call so the
// rest of request construction can run lock-free.
type snapshot struct {
	cache cache.Cache
	mw    middleware.Chain
	log   *logger.Logger
	mock  *middleware.MockHandler
	pool  *connpool.Manager
	jar   http.CookieJar
	sch   *scheduler.Scheduler
}

func (m *Manager) snapshot() snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return snapshot{
		cache: m.cache,
		mw:    m.mw,
		log:   m.log,
		mock:  m.mock,
		pool:  m.pool,
		jar:   m.jar,
		sch:   m.sch,
	}
}

var defaultManager = atomicvalue.New[Manager]()

// DefaultManager returns the process-wide default Manager, building
// one from zero-value Config on first access.
func DefaultManager() *Manager {
	if defaultManager.Load() == nil {
		m, _ := New(Config{})
		defaultManager.Store(m)
	}
	return defaultManager.Load()
}

// SetDefaultManager replaces the process-wide default, closing
// (persisting/stopping) the previous one if there was one.
func SetDefaultManager(m *Manager) {
	if m == nil {
		return
	}
	if old := defaultManager.Swap(m); old != nil {
		_ = old.Close()
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// buildClientFor builds the *http.Client a single Reply will use: a
// mock-only client if req's URL has a registered mock (the §4.10
// canonical order's first check, ahead of cache/middleware/network),
// otherwise a transport client configured by reply.BuildClient.
func buildClientFor(snap snapshot, req request.Request) (*http.Client, error) {
	if snap.mock != nil {
		if resp, code, delay, ok := snap.mock.Lookup(req.URL()); ok {
			return &http.Client{
				Transport: &mockRoundTripper{resp: resp, code: code, delay: delay},
				Jar:       snap.jar,
				Timeout:   req.Timeout().Total,
			}, nil
		}
	}
	return reply.BuildClient(req, hostOf(req.URL()), snap.pool, snap.jar)
}
