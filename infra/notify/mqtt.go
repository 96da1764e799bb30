package notify

import (
	"context"
	"fmt"

	"github.com/kilianp07/techsched/core/scheduler"
	"github.com/kilianp07/techsched/infra/mqtt"
)

// AssignmentQoSKey selects the QoS entry used for assignment messages.
const AssignmentQoSKey = "assignment"

type jsonPublisher interface {
	PublishJSON(ctx context.Context, topic, kind string, v any) error
}

// MQTTPublisher publishes each technician's route on its own topic.
type MQTTPublisher struct {
	client jsonPublisher
	prefix string
}

// NewMQTTPublisher connects to the broker described by cfg.
func NewMQTTPublisher(cfg mqtt.Config) (*MQTTPublisher, error) {
	cfg.SetDefaults()
	cli, err := mqtt.NewPahoClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return &MQTTPublisher{client: cli, prefix: cfg.TopicPrefix}, nil
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() error {
	if d, ok := p.client.(interface{ Disconnect() }); ok {
		d.Disconnect()
	}
	return nil
}

// AssignmentTopic returns the topic for a technician's assignments.
func AssignmentTopic(prefix string, technicianID int) string {
	return fmt.Sprintf("%s/technician/%d/assignment", prefix, technicianID)
}

// PublishAssignments implements Publisher. It stops at the first failure.
func (p *MQTTPublisher) PublishAssignments(ctx context.Context, res scheduler.Result) error {
	for _, msg := range Messages(res) {
		if err := p.client.PublishJSON(ctx, AssignmentTopic(p.prefix, msg.TechnicianID), AssignmentQoSKey, msg); err != nil {
			return fmt.Errorf("technician %d: %w", msg.TechnicianID, err)
		}
	}
	return nil
}
