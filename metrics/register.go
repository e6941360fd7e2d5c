package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nabbar/netcore/connpool"
	"github.com/nabbar/netcore/scheduler"
)

// RegisterCollector builds a Collector over pool and sch and registers
// it with reg, returning the Collector so callers can Unregister it
// later (e.g. on shutdown of a pooled websocket manager).
func RegisterCollector(reg prometheus.Registerer, pool *connpool.Manager, sch *scheduler.Scheduler) (*Collector, error) {
	c := NewCollector(pool, sch)
	if err := reg.Register(c); err != nil {
		return nil, err
	}
	return c, nil
}
