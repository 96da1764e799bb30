package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/techsched/config"
	"github.com/kilianp07/techsched/core/events"
	coremetrics "github.com/kilianp07/techsched/core/metrics"
	"github.com/kilianp07/techsched/core/model"
	"github.com/kilianp07/techsched/core/monitoring"
	"github.com/kilianp07/techsched/core/scheduler"
	"github.com/kilianp07/techsched/infra/directory"
	"github.com/kilianp07/techsched/infra/logger"
	"github.com/kilianp07/techsched/infra/metrics"
	inframon "github.com/kilianp07/techsched/infra/monitoring"
	"github.com/kilianp07/techsched/infra/notify"
	"github.com/kilianp07/techsched/infra/runlog"
	"github.com/kilianp07/techsched/infra/store"
	"github.com/kilianp07/techsched/internal/eventbus"
)

// Service wires the fault store, the student directory and the scheduler,
// and fans run results out to metrics sinks and assignment publishers.
type Service struct {
	Store     store.FaultStore
	Directory *directory.Cache
	Supplier  Supplier
	Scheduler *scheduler.Scheduler
	Sink      coremetrics.MetricsSink
	Publisher notify.Publisher
	RunLog    runlog.Store

	bus       *eventbus.Bus
	log       logger.Logger
	cfg       *config.Config
	closers   []func() error
	started   bool
	consumers []<-chan struct{}
	clock     func() time.Time
}

// EventBuffer is the per-consumer capacity of the service event bus. A
// consumer that falls further behind misses events and a warning is logged.
const EventBuffer = 128

// drainTimeout bounds how long Close waits for bus consumers to finish the
// events already queued.
const drainTimeout = 5 * time.Second

// Deps are the collaborators of a Service.
type Deps struct {
	Store     store.FaultStore
	Directory directory.Directory
	Regions   config.RegionsConfig
	Sink      coremetrics.MetricsSink
	Publisher notify.Publisher
	RunLog    runlog.Store
}

// New builds a Service from the configuration, connecting to every
// configured backend. The student cache is loaded before New returns.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	logger.SetLevel(cfg.Logging.Level)
	var closers []func() error
	fail := func(err error) (*Service, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
		return nil, err
	}

	st, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return fail(fmt.Errorf("fault store: %w", err))
	}
	closers = append(closers, st.Close)

	var dir directory.Directory = directory.StaticDirectory(cfg.Directory.Students)
	if cfg.Directory.DSN != "" {
		pg, err := directory.NewPostgresDirectory(ctx, cfg.Directory.DSN)
		if err != nil {
			return fail(fmt.Errorf("student directory: %w", err))
		}
		closers = append(closers, func() error { pg.Close(); return nil })
		dir = pg
	}

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return fail(fmt.Errorf("metrics sink: %w", err))
	}
	if c, ok := sink.(interface{ Close() }); ok {
		closers = append(closers, func() error { c.Close(); return nil })
	}

	pub, closePub, err := notify.Build(cfg.Notify)
	if err != nil {
		return fail(fmt.Errorf("publishers: %w", err))
	}
	closers = append(closers, closePub)

	runs, err := runlog.New(cfg.RunLog)
	if err != nil {
		return fail(fmt.Errorf("run log: %w", err))
	}
	if runs != nil {
		closers = append(closers, runs.Close)
	}

	flush, err := inframon.Setup(cfg.Sentry)
	if err != nil {
		return fail(fmt.Errorf("sentry: %w", err))
	}
	closers = append(closers, func() error { flush(); return nil })

	svc, err := NewWithDeps(cfg, Deps{
		Store:     st,
		Directory: dir,
		Regions:   cfg.Regions,
		Sink:      sink,
		Publisher: pub,
		RunLog:    runs,
	})
	if err != nil {
		return fail(err)
	}
	svc.closers = closers
	if err := svc.Directory.Refresh(ctx); err != nil {
		return fail(fmt.Errorf("load students: %w", err))
	}
	return svc, nil
}

// NewWithDeps builds a Service around existing collaborators. The student
// cache starts empty.
func NewWithDeps(cfg *config.Config, d Deps) (*Service, error) {
	if d.Store == nil {
		return nil, errors.New("fault store is required")
	}
	if d.Directory == nil {
		d.Directory = directory.StaticDirectory(nil)
	}
	if d.Sink == nil {
		d.Sink = coremetrics.NopSink{}
	}
	if d.Publisher == nil {
		d.Publisher = notify.NopPublisher{}
	}
	table, err := d.Regions.Table()
	if err != nil {
		return nil, err
	}
	log := logger.New("service")
	bus := eventbus.NewWithBuffer(EventBuffer)
	bus.OnDrop(func(e eventbus.Event) {
		log.Warnf("event bus consumer full, dropped %T (%d dropped so far)", e, bus.Dropped())
	})
	cache := directory.NewCache(d.Directory, logger.New("directory-cache"))
	return &Service{
		Store:     d.Store,
		Directory: cache,
		Supplier:  Supplier{Faults: d.Store, Students: cache, Regions: table},
		Scheduler: scheduler.New(cfg.Scheduler, logger.New("scheduler")),
		Sink:      d.Sink,
		Publisher: d.Publisher,
		RunLog:    d.RunLog,
		bus:       bus,
		log:       log,
		cfg:       cfg,
		clock:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// Bus exposes the service event bus.
func (s *Service) Bus() *eventbus.Bus { return s.bus }

// DefaultTechnicians is used when a caller does not say how many technicians
// are available.
func (s *Service) DefaultTechnicians() int { return s.Scheduler.Config.DefaultTechnicians }

// Schedule assigns the current open faults to technicians.
func (s *Service) Schedule(ctx context.Context, technicians int) (scheduler.Result, error) {
	start := time.Now()
	faults, err := s.Supplier.OpenFaults(ctx)
	if err != nil {
		err = fmt.Errorf("load open faults: %w", err)
		monitoring.CaptureException(err, map[string]string{"component": "scheduler"})
		s.bus.Publish(events.ScheduleCompleted{Duration: time.Since(start), Err: err})
		return scheduler.Result{}, err
	}
	res, err := s.Scheduler.Schedule(faults, technicians)
	s.bus.Publish(events.ScheduleCompleted{Result: res, Duration: time.Since(start), Err: err})
	if err != nil {
		return scheduler.Result{}, err
	}
	return res, nil
}

// ReportFault stores a new fault and returns it enriched with the reporter's
// school.
func (s *Service) ReportFault(ctx context.Context, n store.NewFault) (model.Fault, error) {
	f, err := s.Store.Create(ctx, n)
	if err != nil {
		return model.Fault{}, err
	}
	f = s.Supplier.Enrich(f)
	s.bus.Publish(events.FaultReported{Fault: f})
	return f, nil
}

// Faults lists stored faults enriched with the reporter's school.
func (s *Service) Faults(ctx context.Context, flt store.Filter) ([]model.Fault, error) {
	faults, err := s.Store.List(ctx, flt)
	if err != nil {
		return nil, err
	}
	for i := range faults {
		faults[i] = s.Supplier.Enrich(faults[i])
	}
	return faults, nil
}

// TransitionFault moves a fault to another status.
func (s *Service) TransitionFault(ctx context.Context, id string, to model.Status, technician string) (model.Fault, error) {
	ch, err := s.Store.UpdateStatus(ctx, id, to, technician)
	if err != nil {
		return model.Fault{}, err
	}
	if ch.From != ch.Fault.Status {
		s.bus.Publish(events.FaultTransitioned{
			FaultID:    id,
			From:       ch.From,
			To:         ch.Fault.Status,
			Technician: ch.Fault.AssignedTechnician,
			Time:       s.clock(),
		})
	}
	return s.Supplier.Enrich(ch.Fault), nil
}

// DeleteFault removes a fault.
func (s *Service) DeleteFault(ctx context.Context, id string) error {
	return s.Store.Delete(ctx, id)
}

// Students returns the cached student directory.
func (s *Service) Students(ctx context.Context) ([]model.Student, error) {
	return s.Directory.Students(ctx)
}

// Start attaches the metrics collector, the assignment forwarder and the run
// recorder to the event bus. It is idempotent.
func (s *Service) Start(ctx context.Context) {
	if s.started {
		return
	}
	s.started = true
	s.consumers = append(s.consumers,
		metrics.StartEventCollector(ctx, s.bus, s.Sink),
		notify.StartForwarder(ctx, s.bus, s.Publisher, logger.New("notifier")),
	)
	if s.RunLog != nil {
		s.consumers = append(s.consumers, runlog.StartRecorder(ctx, s.bus, s.RunLog, logger.New("runlog")))
	}
}

// Runs returns past scheduling runs matching q.
func (s *Service) Runs(ctx context.Context, q runlog.Query) ([]runlog.Record, error) {
	if s.RunLog == nil {
		return nil, runlog.ErrDisabled
	}
	return s.RunLog.Query(ctx, q)
}

// Close stops the event bus, waits for the consumers to handle the events
// already queued, then releases the backends.
func (s *Service) Close() error {
	s.bus.Close()
	timeout := time.After(drainTimeout)
drain:
	for _, done := range s.consumers {
		select {
		case <-done:
		case <-timeout:
			s.log.Warnf("event consumers still busy after %s, closing anyway", drainTimeout)
			break drain
		}
	}
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}
