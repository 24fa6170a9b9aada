package metric

import "github.com/prometheus/client_golang/prometheus"

// KeyspaceStats is a snapshot of store statistics.
type KeyspaceStats struct {
	Keys         int
	ExpiredLazy  uint64
	ExpiredSwept uint64
}

// KeyspaceCollector reads keyspace statistics at scrape time.
type KeyspaceCollector struct {
	stats func() KeyspaceStats

	keys    *prometheus.Desc
	expired *prometheus.Desc
}

// NewKeyspaceCollector creates a collector calling stats on every scrape.
func NewKeyspaceCollector(stats func() KeyspaceStats) *KeyspaceCollector {
	return &KeyspaceCollector{
		stats: stats,
		keys: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "keyspace", "keys"),
			"Number of stored keys, including expired keys not yet evicted",
			nil, nil,
		),
		expired: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "keyspace", "expired_keys_total"),
			"Total keys removed after their deadline passed",
			[]string{"path"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *KeyspaceCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.keys
	ch <- c.expired
}

// Collect implements prometheus.Collector.
func (c *KeyspaceCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.stats()
	ch <- prometheus.MustNewConstMetric(c.keys, prometheus.GaugeValue, float64(st.Keys))
	ch <- prometheus.MustNewConstMetric(c.expired, prometheus.CounterValue, float64(st.ExpiredLazy), "lazy")
	ch <- prometheus.MustNewConstMetric(c.expired, prometheus.CounterValue, float64(st.ExpiredSwept), "sweep")
}
