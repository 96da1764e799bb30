package events

import (
	"time"

	"github.com/kilianp07/techsched/core/model"
	"github.com/kilianp07/techsched/core/scheduler"
)

// ScheduleCompleted is published after every scheduling run. Err is set when
// the run failed, in which case Result is the zero value.
type ScheduleCompleted struct {
	Result   scheduler.Result
	Duration time.Duration
	Err      error
}

// FaultReported is published when a new fault is stored.
type FaultReported struct {
	Fault model.Fault
}

// FaultTransitioned is published when a fault changes status.
type FaultTransitioned struct {
	FaultID    string
	From       model.Status
	To         model.Status
	Technician string
	Time       time.Time
}
