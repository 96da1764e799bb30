package model

import (
	"errors"
	"fmt"
	"time"
)

// Status is the lifecycle state of a fault.
type Status string

const (
	StatusOpen       Status = "Open"
	StatusInProgress Status = "InProgress"
	StatusResolved   Status = "Resolved"
	StatusClosed     Status = "Closed"
)

var (
	// ErrInvalidTransition is returned when a status change is not allowed.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrUnknownStatus is returned when parsing an unrecognised status value.
	ErrUnknownStatus = errors.New("unknown status")
)

// ParseStatus converts s to a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return Status(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// Terminal reports whether the status ends the repair work on a fault.
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusClosed
}

var transitions = map[Status][]Status{
	StatusOpen:       {StatusInProgress, StatusResolved},
	StatusInProgress: {StatusResolved, StatusOpen},
	StatusResolved:   {StatusClosed, StatusOpen},
	StatusClosed:     {StatusOpen},
}

// CanTransition reports whether a fault may move from one status to another.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TransitionOptions carries the optional data attached to a status change.
type TransitionOptions struct {
	Technician string
	Now        time.Time
}

// Transition returns a copy of f moved to the target status. The input fault
// is never modified.
func Transition(f Fault, to Status, opts TransitionOptions) (Fault, error) {
	if _, err := ParseStatus(string(to)); err != nil {
		return f, err
	}
	if !CanTransition(f.Status, to) {
		return f, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, f.Status, to)
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	out := f
	if f.ResolvedAt != nil {
		ts := *f.ResolvedAt
		out.ResolvedAt = &ts
	}
	out.Status = to
	switch to {
	case StatusInProgress:
		if opts.Technician != "" {
			out.AssignedTechnician = opts.Technician
		}
	case StatusResolved, StatusClosed:
		if out.ResolvedAt == nil {
			out.ResolvedAt = &now
		}
	case StatusOpen:
		out.ResolvedAt = nil
		if f.Status.Terminal() {
			out.AssignedTechnician = ""
		}
	}
	return out, nil
}
