// Package metrics provides operational metrics collection.
//
// Metrics are registered on a caller-supplied Prometheus registry so each
// server (and each test) owns an isolated set, and are exposed in Prometheus
// text format by Handler.
//
// # Numbering
//
// The numbering metrics record, per operation and document category:
//   - Operation count by outcome (ok, conflict, malformed, error)
//   - Operation latency, including transaction retries
package metrics
