// Package metrics implements component G: a read-only snapshot of
// queue lengths exposed as a Prometheus Collector, modeled on the
// gauge-per-resource collectors used throughout the retrieval pack
// (aistore's target stats, keda's scaler metrics) rather than a
// one-shot registered gauge updated on a timer.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Source is the read-only surface a Collector pulls from; *switchcore.Switch
// satisfies it without this package importing switchcore, keeping the
// dependency direction metrics -> (nothing domain-specific).
type Source interface {
	Lengths() map[string]int
}

// Collector adapts Source into a prometheus.Collector, scraped fresh
// on every collection rather than cached, since queue lengths mutate
// far faster than a typical scrape interval.
type Collector struct {
	source Source

	length *prometheus.Desc
	count  *prometheus.Desc
}

// NewCollector wraps source for registration with a
// prometheus.Registry.
func NewCollector(source Source) *Collector {
	return &Collector{
		source: source,
		length: prometheus.NewDesc(
			"qswitch_queue_length",
			"Current number of undelivered entries in a queue.",
			[]string{"queue"}, nil,
		),
		count: prometheus.NewDesc(
			"qswitch_queue_count",
			"Number of queues currently registered.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.length
	ch <- c.count
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	lengths := c.source.Lengths()
	ch <- prometheus.MustNewConstMetric(c.count, prometheus.GaugeValue, float64(len(lengths)))
	for name, length := range lengths {
		ch <- prometheus.MustNewConstMetric(c.length, prometheus.GaugeValue, float64(length), name)
	}
}
