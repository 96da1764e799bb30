package metrics

import (
	"errors"
	"testing"
)

type recordSink struct {
	count int
	fail  bool
}

func (r *recordSink) RecordScheduleRun(ScheduleRunEvent) error {
	r.count++
	if r.fail {
		return errors.New("boom")
	}
	return nil
}

func (r *recordSink) RecordTechnicianLoad([]TechnicianLoad) error {
	r.count++
	return nil
}

type runOnlySink struct{ runs int }

func (r *runOnlySink) RecordScheduleRun(ScheduleRunEvent) error {
	r.runs++
	return nil
}

// TestMultiSink ensures events are forwarded to all sinks.
func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	s3 := &runOnlySink{}
	m := NewMultiSink(s1, s2, s3)
	if err := m.RecordScheduleRun(ScheduleRunEvent{}); err != nil {
		t.Fatalf("record run: %v", err)
	}
	if err := m.RecordTechnicianLoad(nil); err != nil {
		t.Fatalf("record load: %v", err)
	}
	if err := m.RecordFaultTransition(FaultTransitionEvent{}); err != nil {
		t.Fatalf("record transition: %v", err)
	}
	if s1.count != 2 || s2.count != 2 || s3.runs != 1 {
		t.Fatalf("events not forwarded: %d %d %d", s1.count, s2.count, s3.runs)
	}
}

func TestMultiSinkStopsOnError(t *testing.T) {
	s1 := &recordSink{fail: true}
	s2 := &recordSink{}
	if err := NewMultiSink(s1, s2).RecordScheduleRun(ScheduleRunEvent{}); err == nil {
		t.Fatal("expected error")
	}
	if s2.count != 0 {
		t.Fatalf("second sink should not be called")
	}
}

func TestScheduleRunOutcome(t *testing.T) {
	cases := map[string]ScheduleRunEvent{
		"scheduled":           {Scheduled: true},
		"nothing_to_schedule": {},
		"error":               {Err: "bad", Scheduled: true},
	}
	for want, ev := range cases {
		if got := ev.Outcome(); got != want {
			t.Errorf("expected %s got %s", want, got)
		}
	}
}
