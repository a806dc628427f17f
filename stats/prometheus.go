// Package stats adapts pool.Snapshot to Prometheus, the way
// internal/metrics registers its gauge/counter vecs upfront for the proxy
// to update as events happen.
package stats

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sinhashubham95/connpool/pool"
)

// PrometheusCollector publishes pool.Snapshots as Prometheus gauges; the
// cumulative connect/disconnect totals are gauges set to the snapshot's
// running counts. Construct one with NewPrometheusCollector and pass its Collect
// method to Pool.SetStatsCollector.
type PrometheusCollector struct {
	conns      *prometheus.GaugeVec
	pending    *prometheus.GaugeVec
	waiters    *prometheus.GaugeVec
	waitersAvg *prometheus.GaugeVec
	quota      *prometheus.GaugeVec
	capacity    prometheus.Gauge
	connects    *prometheus.GaugeVec
	disconnects *prometheus.GaugeVec
}

// NewPrometheusCollector registers the connpool metric vecs with reg. Pass
// prometheus.DefaultRegisterer to use the global registry, or a dedicated
// *prometheus.Registry in tests.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	factory := promauto.With(reg)
	return &PrometheusCollector{
		conns: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "connpool_block_conns",
			Help: "Number of live connections held by a block",
		}, []string{"dbname"}),
		pending: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "connpool_block_pending",
			Help: "Number of in-flight connects targeting a block",
		}, []string{"dbname"}),
		waiters: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "connpool_block_waiters",
			Help: "Number of acquirers currently suspended on a block",
		}, []string{"dbname"}),
		waitersAvg: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "connpool_block_waiters_avg",
			Help: "Rolling average of a block's waiter demand",
		}, []string{"dbname"}),
		quota: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "connpool_block_quota",
			Help: "Current calibrated quota for a block",
		}, []string{"dbname"}),
		capacity: factory.NewGauge(prometheus.GaugeOpts{
			Name: "connpool_capacity",
			Help: "Aggregate connections currently open or pending",
		}),
		connects: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "connpool_connects_total",
			Help: "Cumulative connect attempts, by result",
		}, []string{"result"}),
		disconnects: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "connpool_disconnects_total",
			Help: "Cumulative disconnects, by result",
		}, []string{"result"}),
	}
}

// Collect implements pool.StatsCollector. It never blocks: gauge
// updates are in-memory sets, so a slow scrape cannot stall the tick that
// published this snapshot.
func (c *PrometheusCollector) Collect(snap pool.Snapshot) {
	c.capacity.Set(float64(snap.Capacity))

	for _, b := range snap.Blocks {
		c.conns.WithLabelValues(b.Dbname).Set(float64(b.NConns))
		c.pending.WithLabelValues(b.Dbname).Set(float64(b.NPending))
		c.waiters.WithLabelValues(b.Dbname).Set(float64(b.NWaiters))
		c.waitersAvg.WithLabelValues(b.Dbname).Set(b.NWaitersAvg)
		c.quota.WithLabelValues(b.Dbname).Set(float64(b.Quota))
	}

	c.connects.WithLabelValues("success").Set(float64(snap.SuccessfulConnects))
	c.connects.WithLabelValues("failure").Set(float64(snap.FailedConnects))
	c.disconnects.WithLabelValues("success").Set(float64(snap.SuccessfulDisconnects))
	c.disconnects.WithLabelValues("failure").Set(float64(snap.FailedDisconnects))
}
