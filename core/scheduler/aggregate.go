package scheduler

import (
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/techsched/core/model"
	"github.com/kilianp07/techsched/core/region"
)

var (
	// ErrMissingCreatedAt is returned when a fault has no creation time.
	ErrMissingCreatedAt = errors.New("fault has no created_at")
	// ErrInvalidFault is returned for faults the scheduler cannot score.
	ErrInvalidFault = errors.New("invalid fault")
)

// SchoolMetrics summarises the open faults of one school.
type SchoolMetrics struct {
	SchoolName    string  `json:"school_name"`
	Region        string  `json:"region"`
	FaultCount    int     `json:"fault_count"`
	AvgSeverity   float64 `json:"avg_severity"`
	MaxAgeDays    float64 `json:"max_age_days"`
	HasRecurring  bool    `json:"has_recurring"`
	HasUrgent     bool    `json:"has_urgent"`
	PriorityScore float64 `json:"priority_score"`
	// RegionConflicts lists regions seen on this school's faults that differ
	// from Region. A non-empty list points at inconsistent upstream data.
	RegionConflicts []string `json:"region_conflicts,omitempty"`
}

type schoolGroup struct {
	metrics    SchoolMetrics
	faults     []model.Fault
	severities []float64
	ages       []float64
}

// Aggregate groups faults by school and computes per-school metrics. Schools
// are returned in the order they are first seen. now is the single reference
// instant used for every age computation.
func Aggregate(faults []model.Fault, now time.Time) ([]SchoolMetrics, error) {
	groups, err := aggregate(faults, now)
	if err != nil {
		return nil, err
	}
	out := make([]SchoolMetrics, len(groups))
	for i, g := range groups {
		out[i] = g.metrics
	}
	return out, nil
}

func aggregate(faults []model.Fault, now time.Time) ([]*schoolGroup, error) {
	if err := validateFaults(faults); err != nil {
		return nil, err
	}
	index := make(map[string]*schoolGroup)
	var order []*schoolGroup
	for _, f := range faults {
		school := f.SchoolName
		if school == "" {
			school = model.UnknownSchool
		}
		reg := f.Region
		if reg == "" {
			reg = region.Unknown
		}
		g, ok := index[school]
		if !ok {
			g = &schoolGroup{metrics: SchoolMetrics{SchoolName: school, Region: reg}}
			index[school] = g
			order = append(order, g)
		}
		if reg != g.metrics.Region && !contains(g.metrics.RegionConflicts, reg) {
			g.metrics.RegionConflicts = append(g.metrics.RegionConflicts, reg)
		}
		g.faults = append(g.faults, f)
		g.severities = append(g.severities, float64(f.Severity))
		g.ages = append(g.ages, f.AgeDays(now))
		g.metrics.HasRecurring = g.metrics.HasRecurring || f.IsRecurring
		g.metrics.HasUrgent = g.metrics.HasUrgent || f.IsUrgent
	}
	for _, g := range order {
		g.metrics.FaultCount = len(g.faults)
		g.metrics.AvgSeverity = stat.Mean(g.severities, nil)
		g.metrics.MaxAgeDays = floats.Max(g.ages)
	}
	return order, nil
}

func validateFaults(faults []model.Fault) error {
	seen := make(map[string]struct{}, len(faults))
	for _, f := range faults {
		if f.CreatedAt.IsZero() {
			return fmt.Errorf("%w: fault %s", ErrMissingCreatedAt, f.ID)
		}
		if err := f.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidFault, err)
		}
		if _, dup := seen[f.ID]; dup {
			return fmt.Errorf("%w: duplicate fault id %s", ErrInvalidFault, f.ID)
		}
		seen[f.ID] = struct{}{}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
