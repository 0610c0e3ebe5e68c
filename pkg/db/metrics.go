package db

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// poolStats is the subset of *pgxpool.Stat the collector exports.
type poolStats interface {
	TotalConns() int32
	IdleConns() int32
	AcquiredConns() int32
	MaxConns() int32
	AcquireCount() int64
	EmptyAcquireCount() int64
	CanceledAcquireCount() int64
	AcquireDuration() time.Duration
}

// poolMetric pairs a descriptor with the stat it reads.
type poolMetric struct {
	desc      *prometheus.Desc
	valueType prometheus.ValueType
	value     func(poolStats) float64
}

// PoolStatsCollector exports report-database pool statistics, read from the
// pool on every scrape.
type PoolStatsCollector struct {
	stats   func() poolStats
	metrics []poolMetric
}

// NewPoolStatsCollector creates a collector for pool. The serviceName label
// tells apart the commands (serve, watch) sharing a registry. A nil pool
// collects nothing.
func NewPoolStatsCollector(pool *pgxpool.Pool, namespace, serviceName string) *PoolStatsCollector {
	var stats func() poolStats
	if pool != nil {
		stats = func() poolStats { return pool.Stat() }
	}
	return newPoolStatsCollector(stats, namespace, serviceName)
}

func newPoolStatsCollector(stats func() poolStats, namespace, serviceName string) *PoolStatsCollector {
	labels := prometheus.Labels{"service": serviceName}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "db_pool", name), help, nil, labels)
	}

	return &PoolStatsCollector{
		stats: stats,
		metrics: []poolMetric{
			{desc("total_conns", "Connections currently open in the report pool"), prometheus.GaugeValue,
				func(s poolStats) float64 { return float64(s.TotalConns()) }},
			{desc("idle_conns", "Idle connections in the report pool"), prometheus.GaugeValue,
				func(s poolStats) float64 { return float64(s.IdleConns()) }},
			{desc("acquired_conns", "Connections in use by report queries"), prometheus.GaugeValue,
				func(s poolStats) float64 { return float64(s.AcquiredConns()) }},
			{desc("max_conns", "Maximum connections allowed in the report pool"), prometheus.GaugeValue,
				func(s poolStats) float64 { return float64(s.MaxConns()) }},
			{desc("acquires_total", "Connections acquired from the pool"), prometheus.CounterValue,
				func(s poolStats) float64 { return float64(s.AcquireCount()) }},
			{desc("empty_acquires_total", "Acquires that waited because the pool was exhausted"), prometheus.CounterValue,
				func(s poolStats) float64 { return float64(s.EmptyAcquireCount()) }},
			{desc("canceled_acquires_total", "Acquires abandoned because the request context ended"), prometheus.CounterValue,
				func(s poolStats) float64 { return float64(s.CanceledAcquireCount()) }},
			{desc("acquire_wait_seconds_total", "Time spent acquiring connections"), prometheus.CounterValue,
				func(s poolStats) float64 { return s.AcquireDuration().Seconds() }},
		},
	}
}

// Describe implements prometheus.Collector.
func (c *PoolStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.metrics {
		ch <- m.desc
	}
}

// Collect implements prometheus.Collector.
func (c *PoolStatsCollector) Collect(ch chan<- prometheus.Metric) {
	if c.stats == nil {
		return
	}
	stats := c.stats()
	for _, m := range c.metrics {
		ch <- prometheus.MustNewConstMetric(m.desc, m.valueType, m.value(stats))
	}
}

// RegisterPoolStatsCollector creates a pool stats collector and registers it
// with reg. Registering the same collector twice is not an error.
func RegisterPoolStatsCollector(pool *pgxpool.Pool, namespace, serviceName string, reg prometheus.Registerer) (*PoolStatsCollector, error) {
	collector := NewPoolStatsCollector(pool, namespace, serviceName)
	if err := reg.Register(collector); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			return nil, err
		}
	}
	return collector, nil
}
