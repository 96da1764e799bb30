package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/segmentio/kafka-go"

	"github.com/kilianp07/techsched/core/scheduler"
)

// KafkaConfig configures the Kafka assignment publisher.
type KafkaConfig struct {
	Brokers []string `json:"brokers"`
	Topic   string   `json:"topic"`
}

// SetDefaults applies sane defaults.
func (c *KafkaConfig) SetDefaults() {
	if c.Topic == "" {
		c.Topic = "technician-assignments"
	}
}

// Validate checks mandatory fields.
func (c KafkaConfig) Validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("kafka: at least one broker is required")
	}
	for _, b := range c.Brokers {
		if strings.TrimSpace(b) == "" {
			return fmt.Errorf("kafka: empty broker address")
		}
	}
	return nil
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one record per technician keyed by technician id,
// so a technician's assignments stay ordered within a partition.
type KafkaPublisher struct {
	w messageWriter
}

// NewKafkaPublisher creates a publisher writing to cfg.Topic.
func NewKafkaPublisher(cfg KafkaConfig) *KafkaPublisher {
	cfg.SetDefaults()
	return &KafkaPublisher{w: &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}}
}

// PublishAssignments implements Publisher.
func (p *KafkaPublisher) PublishAssignments(ctx context.Context, res scheduler.Result) error {
	msgs := Messages(res)
	if len(msgs) == 0 {
		return nil
	}
	records := make([]kafka.Message, 0, len(msgs))
	for _, m := range msgs {
		b, err := json.Marshal(m)
		if err != nil {
			return err
		}
		records = append(records, kafka.Message{
			Key:   []byte(strconv.Itoa(m.TechnicianID)),
			Value: b,
			Time:  m.GeneratedAt,
			Headers: []kafka.Header{
				{Key: "run_id", Value: []byte(m.RunID)},
			},
		})
	}
	if err := p.w.WriteMessages(ctx, records...); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error { return p.w.Close() }
