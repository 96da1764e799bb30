package model

import (
	"fmt"
	"time"
)

// UnknownSchool is used when a fault's reporter cannot be matched to a school.
const UnknownSchool = "Unknown"

// FaultType identifies the category of a reported fault.
type FaultType string

const (
	FaultLockMalfunction FaultType = "lock_malfunction"
	FaultBooksStuck      FaultType = "books_stuck"
	FaultCodeNotWorking  FaultType = "code_not_working"
	FaultDoorDamage      FaultType = "door_damage"
	FaultLostKey         FaultType = "lost_key"
	FaultOther           FaultType = "other"
)

// MinSeverity and MaxSeverity bound the severity scale; 5 is the most severe.
const (
	MinSeverity = 1
	MaxSeverity = 5
)

var severities = map[FaultType]int{
	FaultLockMalfunction: 5,
	FaultBooksStuck:      4,
	FaultCodeNotWorking:  4,
	FaultDoorDamage:      3,
	FaultLostKey:         2,
	FaultOther:           1,
}

// Severity returns the fixed severity for the fault type. Unknown types map to
// the lowest severity.
func (t FaultType) Severity() int {
	if s, ok := severities[t]; ok {
		return s
	}
	return MinSeverity
}

// Known reports whether t is one of the enumerated fault types.
func (t FaultType) Known() bool {
	_, ok := severities[t]
	return ok
}

// FaultTypes lists the enumerated fault types from most to least severe.
func FaultTypes() []FaultType {
	return []FaultType{
		FaultLockMalfunction,
		FaultBooksStuck,
		FaultCodeNotWorking,
		FaultDoorDamage,
		FaultLostKey,
		FaultOther,
	}
}

// Fault is a reported equipment malfunction tied to a student and a school.
type Fault struct {
	ID                 string     `json:"id"`
	StudentID          string     `json:"student_id"`
	StudentName        string     `json:"student_name,omitempty"`
	LockerID           string     `json:"locker_id,omitempty"`
	SchoolName         string     `json:"school_name"`
	Region             string     `json:"region"`
	Type               FaultType  `json:"fault_type"`
	Severity           int        `json:"severity"`
	BooksStuck         bool       `json:"books_stuck"`
	IsUrgent           bool       `json:"is_urgent"`
	IsRecurring        bool       `json:"is_recurring"`
	Status             Status     `json:"status"`
	Description        string     `json:"description,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	ResolvedAt         *time.Time `json:"resolved_at,omitempty"`
	AssignedTechnician string     `json:"assigned_technician,omitempty"`
}

// Validate checks the fields the scheduler relies on.
func (f Fault) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("fault id is required")
	}
	if f.Severity < MinSeverity || f.Severity > MaxSeverity {
		return fmt.Errorf("fault %s: severity %d out of range [%d,%d]", f.ID, f.Severity, MinSeverity, MaxSeverity)
	}
	return nil
}

// AgeDays returns the fractional number of days between CreatedAt and now.
func (f Fault) AgeDays(now time.Time) float64 {
	return now.Sub(f.CreatedAt).Hours() / 24
}
