// Package factory instantiates pluggable modules (metrics sinks and
// assignment publishers) from configuration lists. Each entry names a
// registered type and carries its raw settings, which the type's factory
// decodes with Decode before building the module.
//
//	sinks:
//	  - type: influx
//	    conf: {url: "http://influx:8086", bucket: schedules}
//
//	reg := factory.NewRegistry[metrics.MetricsSink]()
//	_ = reg.Register("influx", func(conf map[string]any) (metrics.MetricsSink, error) {
//	    var c struct{ URL string `json:"url"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return newInflux(c.URL), nil
//	})
//	all, err := reg.CreateAll(cfg.Metrics.Sinks)
package factory
