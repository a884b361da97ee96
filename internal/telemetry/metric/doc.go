// Package metric provides Prometheus metrics for the garagebook client.
//
//   - prometheus.go: the registry and the transport and cache metrics
//   - collector.go: a collector for session and store state
//
// A CLI process is short-lived, so metrics are not served over HTTP. They
// are written once at exit to a node_exporter textfile when configured.
package metric
