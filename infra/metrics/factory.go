package metrics

import (
	"errors"

	"github.com/kilianp07/rota/core/factory"
	coremetrics "github.com/kilianp07/rota/core/metrics"
)

// Sink type names accepted in metrics.sinks.
const (
	SinkNop        = "nop"
	SinkPrometheus = "prometheus"
	SinkInflux     = "influx"
)

// influxConf is the conf block of an influx sink.
type influxConf struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

func newNopSink(map[string]any) (coremetrics.MetricsSink, error) {
	return coremetrics.NopSink{}, nil
}

// newPromSinkFromConf registers on the default registry; the listen
// address is metrics.prometheus_addr.
func newPromSinkFromConf(map[string]any) (coremetrics.MetricsSink, error) {
	return NewPromSink()
}

func newInfluxSinkFromConf(conf map[string]any) (coremetrics.MetricsSink, error) {
	var c influxConf
	if err := factory.Decode(conf, &c); err != nil {
		return nil, err
	}
	if c.URL == "" || c.Bucket == "" {
		return nil, errors.New("url and bucket are required")
	}
	return NewInfluxSinkWithFallback(c.URL, c.Token, c.Org, c.Bucket), nil
}

func init() {
	for name, f := range map[string]factory.Factory[coremetrics.MetricsSink]{
		SinkNop:        newNopSink,
		SinkPrometheus: newPromSinkFromConf,
		SinkInflux:     newInfluxSinkFromConf,
	} {
		_ = coremetrics.RegisterMetricsSink(name, f)
	}
}
