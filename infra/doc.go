// Package infra groups the adapters around the roster engine: zerolog
// logging, Prometheus and InfluxDB sinks, the SQLite run archive, the MQTT
// schedule publisher and Sentry reporting. Adapters implement interfaces
// from core and are wired together in app.
package infra
