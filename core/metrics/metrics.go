package metrics

import "time"

// ScheduleRunEvent summarises one scheduling run.
type ScheduleRunEvent struct {
	RunID       string
	Technicians int
	Schools     int
	Faults      int
	Urgent      int
	Scheduled   bool
	Err         string
	Duration    time.Duration
	Time        time.Time
}

// Outcome labels the run for metric dimensions.
func (e ScheduleRunEvent) Outcome() string {
	switch {
	case e.Err != "":
		return "error"
	case !e.Scheduled:
		return "nothing_to_schedule"
	default:
		return "scheduled"
	}
}

// MetricsSink records scheduling runs for observability purposes.
type MetricsSink interface {
	RecordScheduleRun(ev ScheduleRunEvent) error
}

// TechnicianLoad is the workload handed to one technician in a run.
type TechnicianLoad struct {
	RunID        string
	TechnicianID int
	Schools      int
	Faults       int
	Score        float64
	Regions      []string
	Time         time.Time
}

// TechnicianLoadRecorder records per-technician workloads.
type TechnicianLoadRecorder interface {
	RecordTechnicianLoad(loads []TechnicianLoad) error
}

// FaultTransitionEvent records a fault status change.
type FaultTransitionEvent struct {
	FaultID    string
	From       string
	To         string
	Technician string
	Time       time.Time
}

// FaultTransitionRecorder records fault status changes.
type FaultTransitionRecorder interface {
	RecordFaultTransition(ev FaultTransitionEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordScheduleRun(ScheduleRunEvent) error         { return nil }
func (NopSink) RecordTechnicianLoad([]TechnicianLoad) error      { return nil }
func (NopSink) RecordFaultTransition(FaultTransitionEvent) error { return nil }
