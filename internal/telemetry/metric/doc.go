// Package metric provides Prometheus metrics for respkv.
//
// It exposes metrics in Prometheus format for monitoring
// connections, command rates, latencies and the keyspace.
//
// Files:
//   - prometheus.go: Prometheus registry, recording helpers and HTTP handler
//   - collector.go: keyspace collector reading store statistics on scrape
package metric
