// Package metrics defines the sinks that observe roster generation. The
// engine reports every month outcome through MetricsSink; sinks that also
// implement RunRecorder or FairnessRecorder receive run summaries and the
// fairness ledger. Concrete sinks (Prometheus, InfluxDB) live in
// infra/metrics and register themselves with the factory so that several
// can be configured at once; NewMetricsSink then returns a MultiSink.
package metrics
