package metrics

import (
	"context"
	"time"

	"github.com/kilianp07/techsched/core/events"
	coremetrics "github.com/kilianp07/techsched/core/metrics"
	"github.com/kilianp07/techsched/core/monitoring"
	"github.com/kilianp07/techsched/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for events.
// It stops when the context is canceled or the bus is closed, after
// recording the events still buffered. The returned channel is closed on exit.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		defer monitoring.Recover()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				record(sink, ev)
			}
		}
	}()
	return done
}

func record(sink coremetrics.MetricsSink, ev eventbus.Event) {
	switch e := ev.(type) {
	case events.ScheduleCompleted:
		run, loads := RunMetrics(e)
		_ = sink.RecordScheduleRun(run)
		if r, ok := sink.(coremetrics.TechnicianLoadRecorder); ok && len(loads) > 0 {
			_ = r.RecordTechnicianLoad(loads)
		}
	case events.FaultTransitioned:
		if r, ok := sink.(coremetrics.FaultTransitionRecorder); ok {
			ts := e.Time
			if ts.IsZero() {
				ts = time.Now()
			}
			_ = r.RecordFaultTransition(coremetrics.FaultTransitionEvent{
				FaultID:    e.FaultID,
				From:       string(e.From),
				To:         string(e.To),
				Technician: e.Technician,
				Time:       ts,
			})
		}
	}
}

// RunMetrics converts a completed run into the run summary and per-technician loads.
func RunMetrics(e events.ScheduleCompleted) (coremetrics.ScheduleRunEvent, []coremetrics.TechnicianLoad) {
	res := e.Result
	ts := res.GeneratedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	run := coremetrics.ScheduleRunEvent{
		RunID:       res.RunID,
		Technicians: res.Technicians,
		Scheduled:   res.Scheduled,
		Duration:    e.Duration,
		Time:        ts,
	}
	if e.Err != nil {
		run.Err = e.Err.Error()
	}
	loads := make([]coremetrics.TechnicianLoad, 0, len(res.Assignments))
	for _, a := range res.Assignments {
		run.Schools += len(a.Schools)
		run.Faults += a.TotalFaults
		for _, s := range a.Schools {
			if s.HasUrgent {
				run.Urgent++
			}
		}
		loads = append(loads, coremetrics.TechnicianLoad{
			RunID:        res.RunID,
			TechnicianID: a.TechnicianID,
			Schools:      len(a.Schools),
			Faults:       a.TotalFaults,
			Score:        a.TotalScore,
			Regions:      a.Regions,
			Time:         ts,
		})
	}
	return run, loads
}
