package connpool

import (
	"net/http"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// Manager applies a Config to transports and tracks reuse accounting,
// the Go analogue of §4.6's connection pool manager. A single Manager
// is normally shared process-wide by an access.Manager.
type Manager struct {
	mu  sync.Mutex
	cfg Config

	totalRequests     uint64
	reusedConnections uint64

	log *logrus.Entry
}

// New builds a Manager with cfg and an optional logger (nil installs
// a fresh logger that discards all output).
func New(cfg Config, log *logrus.Entry) *Manager {
	if log == nil {
		l := logrus.New()
		l.SetOutput(discardWriter{})
		log = logrus.NewEntry(l)
	}
	return &Manager{cfg: cfg, log: log}
}

// ConfigureTransport applies MaxConnsPerHost/MaxConnsTotal/idle
// timeout/multiplexing to tr, per §4.6. MaxLifetime, Pipelining,
// DNSCache, DNSCacheTTL and Warmup are not applied to tr.
func (m *Manager) ConfigureTransport(tr *http.Transport, host string) {
	m.mu.Lock()
	cfg := m.cfg
	m.mu.Unlock()

	if cfg.MaxConnsPerHost > 0 {
		tr.MaxConnsPerHost = cfg.MaxConnsPerHost
		tr.MaxIdleConnsPerHost = cfg.MaxConnsPerHost
	}
	if cfg.MaxConnsTotal > 0 {
		tr.MaxIdleConns = cfg.MaxConnsTotal
	}
	if cfg.MaxIdleSeconds > 0 {
		tr.IdleConnTimeout = time.Duration(cfg.MaxIdleSeconds) * time.Second
	}
	tr.DisableKeepAlives = false
	tr.ForceAttemptHTTP2 = cfg.HTTP2Multiplexing

	m.log.WithField("host", host).Debug("connpool: transport configured")
}

// RecordRequestCompleted updates the reuse accounting for one
// completed request.
func (m *Manager) RecordRequestCompleted(wasReused bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalRequests++
	if wasReused {
		m.reusedConnections++
	}
}

// ReuseRate returns reusedConnections/totalRequests, 0 if no requests
// have completed yet.
func (m *Manager) ReuseRate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.totalRequests == 0 {
		return 0
	}
	return float64(m.reusedConnections) / float64(m.totalRequests)
}

// Stats is a snapshot of the pool's reuse accounting.
type Stats struct {
	TotalRequests     uint64
	ReusedConnections uint64
	ReuseRate         float64
}

func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	rate := 0.0
	if m.totalRequests > 0 {
		rate = float64(m.reusedConnections) / float64(m.totalRequests)
	}
	return Stats{
		TotalRequests:     m.totalRequests,
		ReusedConnections: m.reusedConnections,
		ReuseRate:         rate,
	}
}

// CloseIdleConnections forcibly flushes tr's idle socket cache.
func (m *Manager) CloseIdleConnections(tr *http.Transport) {
	tr.CloseIdleConnections()

	stats := m.Stats()
	m.log.WithField("requests_served", humanize.Comma(int64(stats.TotalRequests))).
		Debug("connpool: idle connections closed")
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
