package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/techsched/core/factory"
	coremetrics "github.com/kilianp07/techsched/core/metrics"
)

// PromConfig is the conf block of a "prometheus" sink entry.
type PromConfig struct {
	// Namespace prefixes every metric name, e.g. "district_schedule_runs_total".
	Namespace string `json:"namespace"`
}

// InfluxConfig is the conf block of an "influx" sink entry.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

func init() {
	_ = coremetrics.RegisterMetricsSink("nop", func(map[string]any) (coremetrics.MetricsSink, error) {
		return coremetrics.NopSink{}, nil
	})
	_ = coremetrics.RegisterMetricsSink("prometheus", newPromFromConf)
	_ = coremetrics.RegisterMetricsSink("influx", newInfluxFromConf)
}

func newPromFromConf(conf map[string]any) (coremetrics.MetricsSink, error) {
	var c PromConfig
	if err := factory.Decode(conf, &c); err != nil {
		return nil, err
	}
	reg := prometheus.DefaultRegisterer
	if c.Namespace != "" {
		reg = prometheus.WrapRegistererWithPrefix(c.Namespace+"_", reg)
	}
	return NewPromSinkWithRegistry(reg)
}

func newInfluxFromConf(conf map[string]any) (coremetrics.MetricsSink, error) {
	var c InfluxConfig
	if err := factory.Decode(conf, &c); err != nil {
		return nil, err
	}
	if c.URL == "" {
		return nil, fmt.Errorf("influx: url is required")
	}
	if c.Bucket == "" {
		return nil, fmt.Errorf("influx: bucket is required")
	}
	return NewInfluxSinkWithFallback(c.URL, c.Token, c.Org, c.Bucket), nil
}
