package notify

import (
	"errors"
	"fmt"
	"io"

	"github.com/kilianp07/techsched/core/factory"
	"github.com/kilianp07/techsched/infra/mqtt"
)

// Config lists the publishers that receive the assignments of every run.
//
//	notify:
//	  publishers:
//	    - type: mqtt
//	      conf: {broker: "tcp://broker:1883", topic_prefix: schools}
//	    - type: kafka
//	      conf: {brokers: ["kafka:9092"]}
type Config struct {
	Publishers []factory.ModuleConfig `json:"publishers"`
}

var publisherRegistry = factory.NewRegistry[Publisher]()

// checks validate a publisher's conf block without opening a connection.
var checks = map[string]func(map[string]any) error{
	"mqtt":  func(conf map[string]any) error { _, err := decodeMQTT(conf); return err },
	"kafka": func(conf map[string]any) error { _, err := decodeKafka(conf); return err },
}

func init() {
	_ = RegisterPublisher("nop", func(map[string]any) (Publisher, error) {
		return NopPublisher{}, nil
	})
	_ = RegisterPublisher("mqtt", func(conf map[string]any) (Publisher, error) {
		cfg, err := decodeMQTT(conf)
		if err != nil {
			return nil, err
		}
		return NewMQTTPublisher(cfg)
	})
	_ = RegisterPublisher("kafka", func(conf map[string]any) (Publisher, error) {
		cfg, err := decodeKafka(conf)
		if err != nil {
			return nil, err
		}
		return NewKafkaPublisher(cfg), nil
	})
}

// RegisterPublisher makes a publisher type available to notify.publishers.
func RegisterPublisher(name string, f factory.Factory[Publisher]) error {
	return publisherRegistry.Register(name, f)
}

// PublisherTypes lists the registered publisher types.
func PublisherTypes() []string { return publisherRegistry.Types() }

// Validate checks that every entry names a known type and that the built-in
// types carry a usable conf block.
func (c Config) Validate() error {
	for i, p := range c.Publishers {
		if !publisherRegistry.Known(p.Type) {
			return fmt.Errorf("publisher %d: unknown type %q (known: %v)", i, p.Type, PublisherTypes())
		}
		if check, ok := checks[p.Type]; ok {
			if err := check(p.Conf); err != nil {
				return fmt.Errorf("publisher %d (%s): %w", i, p.Type, err)
			}
		}
	}
	return nil
}

func decodeMQTT(conf map[string]any) (mqtt.Config, error) {
	var cfg mqtt.Config
	if err := factory.Decode(conf, &cfg); err != nil {
		return cfg, err
	}
	cfg.Enabled = true
	cfg.SetDefaults()
	return cfg, cfg.Validate()
}

func decodeKafka(conf map[string]any) (KafkaConfig, error) {
	var cfg KafkaConfig
	if err := factory.Decode(conf, &cfg); err != nil {
		return cfg, err
	}
	cfg.SetDefaults()
	return cfg, cfg.Validate()
}

// Build creates the configured publishers. The returned close function
// releases every publisher holding a connection. If one entry fails, the
// publishers already connected are closed.
func Build(cfg Config) (Publisher, func() error, error) {
	pubs, err := publisherRegistry.CreateAll(cfg.Publishers)
	closeAll := func() error {
		var errs []error
		for _, p := range pubs {
			if c, ok := p.(io.Closer); ok {
				errs = append(errs, c.Close())
			}
		}
		return errors.Join(errs...)
	}
	if err != nil {
		_ = closeAll()
		return nil, nil, err
	}
	switch len(pubs) {
	case 0:
		return NopPublisher{}, closeAll, nil
	case 1:
		return pubs[0], closeAll, nil
	}
	return NewMultiPublisher(pubs...), closeAll, nil
}
