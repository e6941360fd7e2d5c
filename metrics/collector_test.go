package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/nabbar/netcore/connpool"
	"github.com/nabbar/netcore/metrics"
	"github.com/nabbar/netcore/scheduler"
)

func collectAll(t *testing.T, c *metrics.Collector) map[string]float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 16)
	c.Collect(ch)
	close(ch)

	out := map[string]float64{}
	for m := range ch {
		var pb dto.Metric
		require.NoError(t, m.Write(&pb))
		name := m.Desc().String()
		switch {
		case pb.Gauge != nil:
			out[name] = pb.Gauge.GetValue()
		}
	}
	return out
}

type idleRunnable struct{}

func (idleRunnable) Start()     {}
func (idleRunnable) Abort()     {}
func (idleRunnable) Dead() bool { return false }

func TestCollectorReportsPoolAndSchedulerStats(t *testing.T) {
	pool := connpool.New(connpool.Config{}, nil)
	pool.RecordRequestCompleted(true)
	pool.RecordRequestCompleted(false)

	sch := scheduler.New(scheduler.DefaultConfig())
	defer sch.Close()
	sch.Enqueue(&scheduler.Item{Host: "h1", Runnable: idleRunnable{}})

	c := metrics.NewCollector(pool, sch)

	descCh := make(chan *prometheus.Desc, 16)
	c.Describe(descCh)
	close(descCh)
	var descs int
	for range descCh {
		descs++
	}
	require.Equal(t, 8, descs)

	values := collectAll(t, c)
	require.Len(t, values, 8)
}

func TestCollectorSkipsNilSources(t *testing.T) {
	c := metrics.NewCollector(nil, nil)
	values := collectAll(t, c)
	require.Empty(t, values)
}
