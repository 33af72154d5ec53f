// Package prometheus provides Prometheus collectors for linkauth metrics.
//
// [NewPrometheusExporter] accepts an [linkauth.Engine] and exposes an [http.Handler]
// that renders all linkauth counters and histograms in Prometheus text exposition format.
// Counter names are prefixed linkauth_*_total; the single histogram is
// linkauth_validate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate engine state.
package prometheus
