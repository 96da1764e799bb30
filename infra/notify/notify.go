// Package notify delivers technician assignments to field devices and
// downstream systems once a scheduling run completes.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kilianp07/techsched/core/scheduler"
)

// Publisher sends the assignments of a completed run.
type Publisher interface {
	PublishAssignments(ctx context.Context, res scheduler.Result) error
}

// Stop is one school visit in a technician's route.
type Stop struct {
	SchoolName    string   `json:"school_name"`
	Region        string   `json:"region"`
	PriorityScore float64  `json:"priority_score"`
	Urgent        bool     `json:"urgent"`
	FaultIDs      []string `json:"fault_ids"`
}

// AssignmentMessage is the payload delivered to a single technician.
type AssignmentMessage struct {
	RunID        string    `json:"run_id"`
	TechnicianID int       `json:"technician_id"`
	GeneratedAt  time.Time `json:"generated_at"`
	Regions      []string  `json:"regions"`
	Stops        []Stop    `json:"stops"`
	TotalScore   float64   `json:"total_score"`
	TotalFaults  int       `json:"total_faults"`
}

// Messages builds one message per technician. A run with nothing to
// schedule produces no messages; idle technicians get an empty route.
func Messages(res scheduler.Result) []AssignmentMessage {
	if res.NothingToSchedule() {
		return nil
	}
	out := make([]AssignmentMessage, 0, len(res.Assignments))
	for _, a := range res.Assignments {
		msg := AssignmentMessage{
			RunID:        res.RunID,
			TechnicianID: a.TechnicianID,
			GeneratedAt:  res.GeneratedAt,
			Regions:      a.Regions,
			Stops:        make([]Stop, 0, len(a.Schools)),
			TotalScore:   a.TotalScore,
			TotalFaults:  a.TotalFaults,
		}
		for _, s := range a.Schools {
			ids := make([]string, 0, len(s.Faults))
			for _, f := range s.Faults {
				ids = append(ids, f.ID)
			}
			msg.Stops = append(msg.Stops, Stop{
				SchoolName:    s.SchoolName,
				Region:        s.Region,
				PriorityScore: s.PriorityScore,
				Urgent:        s.HasUrgent,
				FaultIDs:      ids,
			})
		}
		out = append(out, msg)
	}
	return out
}

// MultiPublisher fans out to several publishers. Every publisher is tried;
// failures are joined.
type MultiPublisher struct {
	pubs []Publisher
}

// NewMultiPublisher returns a Publisher forwarding to all pubs.
func NewMultiPublisher(pubs ...Publisher) *MultiPublisher {
	return &MultiPublisher{pubs: pubs}
}

// PublishAssignments implements Publisher.
func (m *MultiPublisher) PublishAssignments(ctx context.Context, res scheduler.Result) error {
	var errs []error
	for _, p := range m.pubs {
		if err := p.PublishAssignments(ctx, res); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of wrapped publishers.
func (m *MultiPublisher) Len() int { return len(m.pubs) }

// NopPublisher discards assignments.
type NopPublisher struct{}

// PublishAssignments implements Publisher.
func (NopPublisher) PublishAssignments(context.Context, scheduler.Result) error { return nil }

// MockPublisher records published messages, used in tests.
type MockPublisher struct {
	mu       sync.Mutex
	Messages []AssignmentMessage
	Runs     []string
	Err      error
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher { return &MockPublisher{} }

// PublishAssignments records the run or returns the configured error.
func (m *MockPublisher) PublishAssignments(_ context.Context, res scheduler.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Runs = append(m.Runs, res.RunID)
	m.Messages = append(m.Messages, Messages(res)...)
	return nil
}

// Published returns a copy of the recorded messages.
func (m *MockPublisher) Published() []AssignmentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]AssignmentMessage, len(m.Messages))
	copy(out, m.Messages)
	return out
}
