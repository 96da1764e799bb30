// Package metrics defines the sinks that record scheduling runs. Sinks like
// PromSink and InfluxSink live in infra/metrics and register themselves with
// the factory helpers here, which return a MultiSink automatically when
// several sinks are configured.
package metrics
