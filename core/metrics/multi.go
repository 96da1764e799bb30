package metrics

// MultiSink fans out events to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordScheduleRun forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordScheduleRun(ev ScheduleRunEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordScheduleRun(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordTechnicianLoad forwards loads to sinks implementing TechnicianLoadRecorder.
func (m *MultiSink) RecordTechnicianLoad(loads []TechnicianLoad) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(TechnicianLoadRecorder); ok {
			if err := rec.RecordTechnicianLoad(loads); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordFaultTransition forwards status changes to sinks implementing FaultTransitionRecorder.
func (m *MultiSink) RecordFaultTransition(ev FaultTransitionEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(FaultTransitionRecorder); ok {
			if err := rec.RecordFaultTransition(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close releases every wrapped sink that holds a connection.
func (m *MultiSink) Close() { closeSinks(m.Sinks) }
