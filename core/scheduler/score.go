package scheduler

import "math"

// Triage policy constants. Changing any of them changes the deployed
// ranking of schools.
const (
	WeightFaultCount = 0.35
	WeightSeverity   = 0.25
	WeightAge        = 0.25
	WeightRecurrence = 0.15

	// MaxFaultCount caps the open fault count before weighting.
	MaxFaultCount = 5
	// MinAgeDays and MaxAgeDays clamp the age of the oldest fault.
	MinAgeDays = 1.0
	MaxAgeDays = 5.0
	// RecurringValue and NonRecurringValue are the recurrence inputs.
	RecurringValue    = 5.0
	NonRecurringValue = 1.0

	// UrgentScore replaces the base score of any school with an urgent
	// fault. It is above every attainable base score.
	UrgentScore = 10000.0
)

// Normalized holds the clamped inputs of the score formula.
type Normalized struct {
	FaultCount float64 // N' in [0,5]
	Severity   float64 // U, average severity
	Age        float64 // T' in [1,5]
	Recurrence float64 // R' in {1,5}
}

// Normalize clamps the metrics into the ranges used by the score formula.
func Normalize(m SchoolMetrics) Normalized {
	n := Normalized{
		FaultCount: math.Min(float64(m.FaultCount), MaxFaultCount),
		Severity:   m.AvgSeverity,
		Age:        math.Min(math.Max(m.MaxAgeDays, MinAgeDays), MaxAgeDays),
		Recurrence: NonRecurringValue,
	}
	if n.FaultCount < 0 {
		n.FaultCount = 0
	}
	if m.HasRecurring {
		n.Recurrence = RecurringValue
	}
	return n
}

// BaseScore applies the weighted formula without the urgency override.
func BaseScore(m SchoolMetrics) float64 {
	n := Normalize(m)
	return WeightFaultCount*n.FaultCount +
		WeightSeverity*n.Severity +
		WeightAge*n.Age +
		WeightRecurrence*n.Recurrence
}

// Score returns the priority score of a school. Urgent schools always get
// UrgentScore.
func Score(m SchoolMetrics) float64 {
	if m.HasUrgent {
		return UrgentScore
	}
	return BaseScore(m)
}

// ScoreAll returns a copy of schools with PriorityScore set.
func ScoreAll(schools []SchoolMetrics) []SchoolMetrics {
	out := make([]SchoolMetrics, len(schools))
	for i, m := range schools {
		m.PriorityScore = Score(m)
		out[i] = m
	}
	return out
}
