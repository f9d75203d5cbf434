// File: control/collector.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Prometheus view of the statistics table.

package control

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every exported metric name.
const Namespace = "hioload_arena"

// Collector exports a Stats table as Prometheus gauges. Counters keep their
// value, averages export the current mean, the timer exports seconds.
type Collector struct {
	stats *Stats
	now   func() time.Time
	descs [NumEntries]*prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector builds a collector reading s. A nil clock means time.Now.
func NewCollector(s *Stats, now func() time.Time) *Collector {
	if now == nil {
		now = time.Now
	}
	c := &Collector{stats: s, now: now}
	for e := Entry(0); e < NumEntries; e++ {
		name := e.Name()
		if e.Kind() == KindTimer {
			name += "_seconds"
		}
		c.descs[e] = prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "", name),
			e.String(),
			nil, nil,
		)
	}
	return c
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.descs {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.stats.Snapshot(c.now())
	for _, v := range snap {
		var val float64
		switch v.Entry.Kind() {
		case KindCounter:
			val = float64(v.Counter)
		case KindAverage:
			val = float64(v.Average)
		case KindTimer:
			val = v.Elapsed.Seconds()
		}
		ch <- prometheus.MustNewConstMetric(c.descs[v.Entry], prometheus.GaugeValue, val)
	}
}
