package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/techsched/core/events"
	"github.com/kilianp07/techsched/core/factory"
	"github.com/kilianp07/techsched/core/model"
	"github.com/kilianp07/techsched/core/scheduler"
	"github.com/kilianp07/techsched/infra/logger"
	"github.com/kilianp07/techsched/internal/eventbus"
)

func sampleResult() scheduler.Result {
	return scheduler.Result{
		RunID:       "run-1",
		GeneratedAt: time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC),
		Technicians: 2,
		Scheduled:   true,
		Assignments: []scheduler.TechnicianAssignment{
			{
				TechnicianID: 1,
				Regions:      []string{"North"},
				TotalScore:   10000,
				TotalFaults:  2,
				Schools: []scheduler.AssignedSchool{{
					SchoolMetrics: scheduler.SchoolMetrics{SchoolName: "Asif", Region: "North", HasUrgent: true, PriorityScore: 10000, FaultCount: 2},
					Faults:        []model.Fault{{ID: "3"}, {ID: "5"}},
				}},
			},
			{TechnicianID: 2, Regions: []string{}},
		},
	}
}

func TestMessages(t *testing.T) {
	msgs := Messages(sampleResult())
	require.Len(t, msgs, 2)
	assert.Equal(t, "run-1", msgs[0].RunID)
	require.Len(t, msgs[0].Stops, 1)
	assert.Equal(t, []string{"3", "5"}, msgs[0].Stops[0].FaultIDs)
	assert.True(t, msgs[0].Stops[0].Urgent)
	assert.Empty(t, msgs[1].Stops)

	assert.Nil(t, Messages(scheduler.Result{Scheduled: false}))
}

type recordingJSON struct {
	topics []string
	kinds  []string
	fail   map[string]error
}

func (r *recordingJSON) PublishJSON(_ context.Context, topic, kind string, _ any) error {
	if err := r.fail[topic]; err != nil {
		return err
	}
	r.topics = append(r.topics, topic)
	r.kinds = append(r.kinds, kind)
	return nil
}

func TestMQTTPublisher(t *testing.T) {
	rec := &recordingJSON{}
	p := &MQTTPublisher{client: rec, prefix: "schools"}
	require.NoError(t, p.PublishAssignments(context.Background(), sampleResult()))
	assert.Equal(t, []string{"schools/technician/1/assignment", "schools/technician/2/assignment"}, rec.topics)
	assert.Equal(t, AssignmentQoSKey, rec.kinds[0])

	rec = &recordingJSON{fail: map[string]error{"schools/technician/1/assignment": errors.New("offline")}}
	p = &MQTTPublisher{client: rec, prefix: "schools"}
	err := p.PublishAssignments(context.Background(), sampleResult())
	assert.ErrorContains(t, err, "technician 1")
	assert.Empty(t, rec.topics)
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisher(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{w: w}
	require.NoError(t, p.PublishAssignments(context.Background(), sampleResult()))
	require.Len(t, w.msgs, 2)
	assert.Equal(t, "1", string(w.msgs[0].Key))
	assert.Equal(t, "run_id", w.msgs[0].Headers[0].Key)

	var msg AssignmentMessage
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &msg))
	assert.Equal(t, 1, msg.TechnicianID)
	assert.Equal(t, "Asif", msg.Stops[0].SchoolName)

	require.NoError(t, p.PublishAssignments(context.Background(), scheduler.Result{}))
	assert.Len(t, w.msgs, 2, "nothing published for empty runs")

	w.err = errors.New("leader not available")
	assert.Error(t, p.PublishAssignments(context.Background(), sampleResult()))
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaConfigValidate(t *testing.T) {
	cfg := KafkaConfig{}
	cfg.SetDefaults()
	assert.Equal(t, "technician-assignments", cfg.Topic)
	assert.Error(t, cfg.Validate())
	cfg.Brokers = []string{" "}
	assert.Error(t, cfg.Validate())
	cfg.Brokers = []string{"localhost:9092"}
	assert.NoError(t, cfg.Validate())
}

func TestMultiPublisherJoinsErrors(t *testing.T) {
	ok := NewMockPublisher()
	bad := &MockPublisher{Err: errors.New("down")}
	m := NewMultiPublisher(bad, ok)
	err := m.PublishAssignments(context.Background(), sampleResult())
	assert.ErrorContains(t, err, "down")
	assert.Len(t, ok.Published(), 2, "healthy publishers still receive the run")
	assert.Equal(t, 2, m.Len())
}

func TestBuildWithoutPublishers(t *testing.T) {
	pub, closeFn, err := Build(Config{})
	require.NoError(t, err)
	assert.IsType(t, NopPublisher{}, pub)
	assert.NoError(t, closeFn())
}

func TestBuildKafkaFromConf(t *testing.T) {
	pub, closeFn, err := Build(Config{Publishers: []factory.ModuleConfig{{
		Type: "kafka",
		Conf: map[string]any{"brokers": []any{"localhost:9092"}, "topic": "routes"},
	}}})
	require.NoError(t, err)
	kp, ok := pub.(*KafkaPublisher)
	require.True(t, ok, "got %T", pub)
	w, ok := kp.w.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "routes", w.Topic)
	assert.NoError(t, closeFn())
}

type closingPublisher struct {
	NopPublisher
	closed *atomic.Bool
}

func (c closingPublisher) Close() error {
	c.closed.Store(true)
	return nil
}

func TestBuildClosesPublishersOnFailure(t *testing.T) {
	var closed atomic.Bool
	_ = RegisterPublisher("closing", func(map[string]any) (Publisher, error) {
		return closingPublisher{closed: &closed}, nil
	})

	pub, closeFn, err := Build(Config{Publishers: []factory.ModuleConfig{{Type: "closing"}, {Type: "nop"}}})
	require.NoError(t, err)
	m, ok := pub.(*MultiPublisher)
	require.True(t, ok, "got %T", pub)
	assert.Equal(t, 2, m.Len())
	require.NoError(t, closeFn())
	assert.True(t, closed.Load())

	closed.Store(false)
	_, _, err = Build(Config{Publishers: []factory.ModuleConfig{
		{Type: "closing"},
		{Type: "mqtt", Conf: map[string]any{"broker": "tcp://localhost:1883", "qos": map[string]any{"assignment": 3}}},
	}})
	assert.ErrorContains(t, err, "module 1 (mqtt)")
	assert.True(t, closed.Load(), "publishers built before the failure are closed")
}

func TestConfigValidate(t *testing.T) {
	valid := Config{Publishers: []factory.ModuleConfig{
		{Type: "mqtt", Conf: map[string]any{"broker": "tcp://localhost:1883", "qos": map[string]any{"assignment": "1"}}},
		{Type: "kafka", Conf: map[string]any{"brokers": []any{"localhost:9092"}}},
		{Type: "nop"},
	}}
	assert.NoError(t, valid.Validate())

	cases := map[string]factory.ModuleConfig{
		"unknown type":  {Type: "smtp"},
		"mqtt broker":   {Type: "mqtt", Conf: map[string]any{"topic_prefix": "schools"}},
		"mqtt qos":      {Type: "mqtt", Conf: map[string]any{"broker": "tcp://b:1883", "qos": map[string]any{"assignment": 5}}},
		"kafka brokers": {Type: "kafka"},
	}
	for name, pc := range cases {
		t.Run(name, func(t *testing.T) {
			err := Config{Publishers: []factory.ModuleConfig{pc}}.Validate()
			assert.ErrorContains(t, err, "publisher 0")
		})
	}
	assert.Contains(t, PublisherTypes(), "mqtt")
	assert.Contains(t, PublisherTypes(), "kafka")
}

func TestMQTTPublisherClose(t *testing.T) {
	p := &MQTTPublisher{client: &recordingJSON{}, prefix: "schools"}
	assert.NoError(t, p.Close(), "clients without a connection are left alone")
}

type blockingPublisher struct {
	mu   sync.Mutex
	runs []string
}

func (b *blockingPublisher) PublishAssignments(_ context.Context, res scheduler.Result) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.runs = append(b.runs, res.RunID)
	return nil
}

func (b *blockingPublisher) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.runs)
}

func TestStartForwarder(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()
	pub := &blockingPublisher{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartForwarder(ctx, bus, pub, logger.NopLogger{})
	require.Eventually(t, func() bool { return bus.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	bus.Publish(events.ScheduleCompleted{Result: scheduler.Result{RunID: "empty"}})
	bus.Publish(events.ScheduleCompleted{Err: errors.New("boom")})
	bus.Publish(events.ScheduleCompleted{Result: sampleResult()})

	require.Eventually(t, func() bool { return pub.count() == 1 }, time.Second, 5*time.Millisecond)
	pub.mu.Lock()
	assert.Equal(t, []string{"run-1"}, pub.runs)
	pub.mu.Unlock()
}
