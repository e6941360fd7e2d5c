// Package metrics exposes connpool and scheduler state as Prometheus
// gauges, grounded on caddyserver-caddy/metrics.go's
// github.com/prometheus/client_golang/prometheus usage (namespace/
// subsystem/name/help naming) adapted from its promauto counter-vec
// style to a pull-based prometheus.Collector, since reuse rate and
// queue depth are live state read at scrape time rather than counters
// incremented inline by request-handling code.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nabbar/netcore/connpool"
	"github.com/nabbar/netcore/scheduler"
)

const namespace = "netcore"

// Collector implements prometheus.Collector over a connpool.Manager
// and a scheduler.Scheduler, exposing the metrics named in
// SPEC_FULL.md's DOMAIN STACK table: reuse_rate, pending_requests,
// running_requests.
type Collector struct {
	pool *connpool.Manager
	sch  *scheduler.Scheduler

	reuseRate       *prometheus.Desc
	totalRequests   *prometheus.Desc
	pendingRequests *prometheus.Desc
	runningRequests *prometheus.Desc
	completedTotal  *prometheus.Desc
	cancelledTotal  *prometheus.Desc
	bytesRecvTotal  *prometheus.Desc
	avgResponseMs   *prometheus.Desc
}

// NewCollector builds a Collector over pool and sch. Either may be
// nil, in which case its metrics are simply not emitted.
func NewCollector(pool *connpool.Manager, sch *scheduler.Scheduler) *Collector {
	return &Collector{
		pool: pool,
		sch:  sch,
		reuseRate: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "connpool", "reuse_rate"),
			"Fraction of requests that reused a pooled connection.",
			nil, nil,
		),
		totalRequests: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "connpool", "requests_total"),
			"Total requests observed by the connection pool manager.",
			nil, nil,
		),
		pendingRequests: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "scheduler", "pending_requests"),
			"Requests queued by the scheduler, not yet admitted.",
			nil, nil,
		),
		runningRequests: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "scheduler", "running_requests"),
			"Requests currently admitted and executing.",
			nil, nil,
		),
		completedTotal: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "scheduler", "completed_total"),
			"Requests the scheduler has marked completed.",
			nil, nil,
		),
		cancelledTotal: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "scheduler", "cancelled_total"),
			"Requests the scheduler has marked cancelled.",
			nil, nil,
		),
		bytesRecvTotal: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "scheduler", "bytes_received_total"),
			"Total response bytes accounted by the scheduler.",
			nil, nil,
		),
		avgResponseMs: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "scheduler", "response_time_ms_ema"),
			"Exponential moving average of request response time in milliseconds.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.reuseRate
	ch <- c.totalRequests
	ch <- c.pendingRequests
	ch <- c.runningRequests
	ch <- c.completedTotal
	ch <- c.cancelledTotal
	ch <- c.bytesRecvTotal
	ch <- c.avgResponseMs
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.pool != nil {
		stats := c.pool.Stats()
		ch <- prometheus.MustNewConstMetric(c.reuseRate, prometheus.GaugeValue, stats.ReuseRate)
		ch <- prometheus.MustNewConstMetric(c.totalRequests, prometheus.GaugeValue, float64(stats.TotalRequests))
	}
	if c.sch != nil {
		stats := c.sch.Stats()
		ch <- prometheus.MustNewConstMetric(c.pendingRequests, prometheus.GaugeValue, float64(stats.Pending))
		ch <- prometheus.MustNewConstMetric(c.runningRequests, prometheus.GaugeValue, float64(stats.Running))
		ch <- prometheus.MustNewConstMetric(c.completedTotal, prometheus.GaugeValue, float64(stats.Completed))
		ch <- prometheus.MustNewConstMetric(c.cancelledTotal, prometheus.GaugeValue, float64(stats.Cancelled))
		ch <- prometheus.MustNewConstMetric(c.bytesRecvTotal, prometheus.GaugeValue, float64(stats.TotalBytesRecv))
		ch <- prometheus.MustNewConstMetric(c.avgResponseMs, prometheus.GaugeValue, stats.EMAResponseTimeMs)
	}
}
