// Package metrics keeps the agent's self-metrics and renders them in the
// Prometheus text exposition format.
//
// Values are held as plain counters and gauges behind a mutex and converted
// to client_model MetricFamily values on every Gather, so the same families
// can be written with expfmt or inspected directly in tests.
//
// All methods are safe on a nil *Metrics, which lets components take an
// optional metrics sink without branching.
package metrics
