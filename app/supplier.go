package app

import (
	"context"

	"github.com/kilianp07/techsched/core/model"
	"github.com/kilianp07/techsched/core/region"
)

// FaultLister returns the open faults waiting for a technician.
type FaultLister interface {
	ListOpen(ctx context.Context) ([]model.Fault, error)
}

// StudentLookup resolves a reporter's directory record.
type StudentLookup interface {
	Lookup(id string) (model.Student, bool)
}

// Supplier builds the scheduler input: open faults carrying the reporter's
// school and the school's region.
type Supplier struct {
	Faults   FaultLister
	Students StudentLookup
	Regions  region.Resolver
}

// OpenFaults returns the enriched open faults.
func (s Supplier) OpenFaults(ctx context.Context) ([]model.Fault, error) {
	faults, err := s.Faults.ListOpen(ctx)
	if err != nil {
		return nil, err
	}
	for i := range faults {
		faults[i] = s.Enrich(faults[i])
	}
	return faults, nil
}

// Enrich fills the student name, school and region of f. Reporters missing
// from the directory belong to the Unknown school.
func (s Supplier) Enrich(f model.Fault) model.Fault {
	f.SchoolName = model.UnknownSchool
	f.StudentName = model.UnknownSchool
	if s.Students != nil {
		if st, ok := s.Students.Lookup(f.StudentID); ok {
			f.StudentName = st.FullName()
			f.SchoolName = st.School()
		}
	}
	f.Region = region.Unknown
	if s.Regions != nil {
		f.Region = s.Regions.Region(f.SchoolName)
	}
	return f
}
