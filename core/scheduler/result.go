package scheduler

import (
	"time"

	"github.com/kilianp07/techsched/core/model"
)

// AssignedSchool is a school in a technician's route with its open faults.
type AssignedSchool struct {
	SchoolMetrics
	Faults []model.Fault `json:"faults"`
}

// TechnicianAssignment is the work handed to one technician.
type TechnicianAssignment struct {
	TechnicianID int              `json:"technician_id"`
	Schools      []AssignedSchool `json:"schools"`
	Regions      []string         `json:"regions"`
	TotalScore   float64          `json:"total_score"`
	TotalFaults  int              `json:"total_faults"`
}

// Faults returns every fault assigned to the technician in route order.
func (a TechnicianAssignment) Faults() []model.Fault {
	var out []model.Fault
	for _, s := range a.Schools {
		out = append(out, s.Faults...)
	}
	return out
}

// Result is the outcome of one scheduling run.
type Result struct {
	RunID       string                 `json:"run_id"`
	GeneratedAt time.Time              `json:"generated_at"`
	Technicians int                    `json:"num_technicians"`
	Scheduled   bool                   `json:"scheduled"`
	Message     string                 `json:"message,omitempty"`
	Assignments []TechnicianAssignment `json:"assignments"`
}

// NothingToSchedule reports whether the run found no open faults.
func (r Result) NothingToSchedule() bool { return !r.Scheduled }

// TotalFaults returns the number of faults across all assignments.
func (r Result) TotalFaults() int {
	n := 0
	for _, a := range r.Assignments {
		n += a.TotalFaults
	}
	return n
}

// FormatAssignments flattens cluster buckets into technician summaries.
// faults maps a school name to its open faults.
func FormatAssignments(buckets []Bucket, faults map[string][]model.Fault) []TechnicianAssignment {
	out := make([]TechnicianAssignment, len(buckets))
	for i, b := range buckets {
		a := TechnicianAssignment{
			TechnicianID: b.TechnicianID,
			Schools:      make([]AssignedSchool, 0, len(b.Schools)),
			Regions:      make([]string, 0, len(b.Rounds)),
		}
		for _, r := range b.Rounds {
			a.Regions = append(a.Regions, r.Region)
		}
		for _, s := range b.Schools {
			fs := make([]model.Fault, len(faults[s.SchoolName]))
			copy(fs, faults[s.SchoolName])
			a.Schools = append(a.Schools, AssignedSchool{SchoolMetrics: s, Faults: fs})
			a.TotalScore += s.PriorityScore
			a.TotalFaults += s.FaultCount
		}
		out[i] = a
	}
	return out
}
