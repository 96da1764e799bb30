// Package store persists fault reports in SQLite and supplies the open
// faults the scheduler works on.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kilianp07/techsched/core/model"
)

var (
	// ErrFaultNotFound is returned when no fault has the requested id.
	ErrFaultNotFound = errors.New("fault not found")
	// ErrInvalidFault is returned when a new fault report is incomplete.
	ErrInvalidFault = errors.New("invalid fault report")
)

// NewFault is a fault report as submitted by a student.
type NewFault struct {
	StudentID   string          `json:"student_id"`
	LockerID    string          `json:"locker_id,omitempty"`
	Type        model.FaultType `json:"fault_type"`
	BooksStuck  bool            `json:"books_stuck"`
	Description string          `json:"description,omitempty"`
}

// Validate checks the required report fields.
func (n NewFault) Validate() error {
	if strings.TrimSpace(n.StudentID) == "" {
		return fmt.Errorf("%w: student_id is required", ErrInvalidFault)
	}
	if strings.TrimSpace(string(n.Type)) == "" {
		return fmt.Errorf("%w: fault_type is required", ErrInvalidFault)
	}
	return nil
}

// Fault derives the stored record: severity comes from the fault type and
// books stuck in a locker makes the report urgent.
func (n NewFault) Fault(now time.Time) model.Fault {
	return model.Fault{
		StudentID:   strings.TrimSpace(n.StudentID),
		LockerID:    n.LockerID,
		Type:        n.Type,
		Severity:    n.Type.Severity(),
		BooksStuck:  n.BooksStuck,
		IsUrgent:    n.BooksStuck || n.Type == model.FaultBooksStuck,
		Status:      model.StatusOpen,
		Description: n.Description,
		CreatedAt:   now,
	}
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Status    model.Status
	StudentID string
}

// StatusChange describes an applied status transition.
type StatusChange struct {
	Fault model.Fault
	From  model.Status
}

// FaultStore is the persistence contract used by the service and API layers.
type FaultStore interface {
	Create(ctx context.Context, n NewFault) (model.Fault, error)
	Get(ctx context.Context, id string) (model.Fault, error)
	List(ctx context.Context, f Filter) ([]model.Fault, error)
	ListOpen(ctx context.Context) ([]model.Fault, error)
	UpdateStatus(ctx context.Context, id string, to model.Status, technician string) (StatusChange, error)
	Delete(ctx context.Context, id string) error
	Close() error
}
