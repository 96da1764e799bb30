package metrics

import "github.com/kilianp07/techsched/core/factory"

var sinkRegistry = factory.NewRegistry[MetricsSink]()

// RegisterMetricsSink makes a sink type available to the metrics.sinks
// configuration list.
func RegisterMetricsSink(name string, f factory.Factory[MetricsSink]) error {
	return sinkRegistry.Register(name, f)
}

// SinkTypes lists the registered sink types.
func SinkTypes() []string { return sinkRegistry.Types() }

// NewMetricsSink builds the sinks listed in the configuration. An empty list
// yields a NopSink and several entries are combined in a MultiSink. When an
// entry fails, the sinks already built are closed before returning.
func NewMetricsSink(cfgs []factory.ModuleConfig) (MetricsSink, error) {
	sinks, err := sinkRegistry.CreateAll(cfgs)
	if err != nil {
		closeSinks(sinks)
		return nil, err
	}
	switch len(sinks) {
	case 0:
		return NopSink{}, nil
	case 1:
		return sinks[0], nil
	}
	return NewMultiSink(sinks...), nil
}

func closeSinks(sinks []MetricsSink) {
	for _, s := range sinks {
		if c, ok := s.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
