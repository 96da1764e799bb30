package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	coremetrics "github.com/kilianp07/techsched/core/metrics"
	"github.com/kilianp07/techsched/infra/logger"
)

// PromSink records scheduling runs in Prometheus metrics.
type PromSink struct {
	runs        *prometheus.CounterVec
	duration    prometheus.Histogram
	faults      prometheus.Gauge
	schools     prometheus.Gauge
	urgent      prometheus.Gauge
	techFaults  *prometheus.GaugeVec
	techScore   *prometheus.GaugeVec
	techRegions *prometheus.GaugeVec
	transitions *prometheus.CounterVec
}

// NewPromSink registers scheduling metrics on the default Prometheus registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schedule_runs_total",
			Help: "Total number of scheduling runs by outcome",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "schedule_run_duration_seconds",
			Help:    "Time spent computing technician assignments",
			Buckets: prometheus.DefBuckets,
		}),
		faults: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "schedule_open_faults",
			Help: "Open faults scheduled in the last run",
		}),
		schools: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "schedule_schools",
			Help: "Schools scheduled in the last run",
		}),
		urgent: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "schedule_urgent_schools",
			Help: "Schools with at least one urgent fault in the last run",
		}),
		techFaults: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "technician_assigned_faults",
			Help: "Faults assigned to each technician in the last run",
		}, []string{"technician"}),
		techScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "technician_assigned_score",
			Help: "Sum of school priority scores assigned to each technician in the last run",
		}, []string{"technician"}),
		techRegions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "technician_assigned_regions",
			Help: "Regions assigned to each technician in the last run",
		}, []string{"technician"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fault_transitions_total",
			Help: "Fault status changes",
		}, []string{"from", "to"}),
	}
	var err error
	if s.runs, err = register(reg, s.runs); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, s.duration); err != nil {
		return nil, err
	}
	if s.faults, err = register(reg, s.faults); err != nil {
		return nil, err
	}
	if s.schools, err = register(reg, s.schools); err != nil {
		return nil, err
	}
	if s.urgent, err = register(reg, s.urgent); err != nil {
		return nil, err
	}
	if s.techFaults, err = register(reg, s.techFaults); err != nil {
		return nil, err
	}
	if s.techScore, err = register(reg, s.techScore); err != nil {
		return nil, err
	}
	if s.techRegions, err = register(reg, s.techRegions); err != nil {
		return nil, err
	}
	if s.transitions, err = register(reg, s.transitions); err != nil {
		return nil, err
	}
	return s, nil
}

// register adds c to reg, reusing an already registered collector of the same name.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordScheduleRun updates the run counters and last-run gauges.
func (s *PromSink) RecordScheduleRun(ev coremetrics.ScheduleRunEvent) error {
	s.runs.WithLabelValues(ev.Outcome()).Inc()
	if ev.Err != "" {
		return nil
	}
	s.duration.Observe(ev.Duration.Seconds())
	s.faults.Set(float64(ev.Faults))
	s.schools.Set(float64(ev.Schools))
	s.urgent.Set(float64(ev.Urgent))
	return nil
}

// RecordTechnicianLoad sets the per-technician gauges. Technicians absent
// from the run are removed.
func (s *PromSink) RecordTechnicianLoad(loads []coremetrics.TechnicianLoad) error {
	s.techFaults.Reset()
	s.techScore.Reset()
	s.techRegions.Reset()
	for _, l := range loads {
		id := strconv.Itoa(l.TechnicianID)
		s.techFaults.WithLabelValues(id).Set(float64(l.Faults))
		s.techScore.WithLabelValues(id).Set(l.Score)
		s.techRegions.WithLabelValues(id).Set(float64(len(l.Regions)))
	}
	return nil
}

// RecordFaultTransition counts status changes.
func (s *PromSink) RecordFaultTransition(ev coremetrics.FaultTransitionEvent) error {
	s.transitions.WithLabelValues(ev.From, ev.To).Inc()
	return nil
}

// StartPromServer starts an HTTP server exposing Prometheus metrics on the
// given address and shuts it down when ctx is cancelled.
func StartPromServer(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.New("prom-server").Errorf("prom server shutdown: %v", err)
		}
		cancel()
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
