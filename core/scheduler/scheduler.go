package scheduler

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/techsched/core/logger"
	"github.com/kilianp07/techsched/core/model"
)

// NothingToScheduleMessage is set on results produced from an empty snapshot.
const NothingToScheduleMessage = "no open faults"

// Scheduler assigns schools with open faults to technicians. It holds no
// state between runs and is safe for concurrent use.
type Scheduler struct {
	Config Config
	// Clock returns the reference instant of a run. It is called once per run.
	Clock func() time.Time
	// NewRunID generates run identifiers.
	NewRunID func() string
	Log      logger.Logger
}

// New returns a Scheduler using the wall clock and random run IDs.
func New(cfg Config, log logger.Logger) *Scheduler {
	cfg.SetDefaults()
	return &Scheduler{
		Config:   cfg,
		Clock:    func() time.Time { return time.Now().UTC() },
		NewRunID: uuid.NewString,
		Log:      log,
	}
}

// Schedule computes technician assignments for a snapshot of open faults.
// An empty snapshot yields a result with Scheduled set to false and no
// assignments.
func (s *Scheduler) Schedule(faults []model.Fault, technicians int) (Result, error) {
	if technicians < 1 {
		return Result{}, fmt.Errorf("%w: got %d", ErrInvalidTechnicianCount, technicians)
	}
	now := s.now()
	res := Result{RunID: s.runID(), GeneratedAt: now, Technicians: technicians}
	if len(faults) == 0 {
		res.Message = NothingToScheduleMessage
		s.infof("run %s: %s", res.RunID, NothingToScheduleMessage)
		return res, nil
	}

	snapshot := make([]model.Fault, len(faults))
	copy(snapshot, faults)
	groups, err := aggregate(snapshot, now)
	if err != nil {
		return Result{}, err
	}
	schools := make([]SchoolMetrics, len(groups))
	byName := make(map[string][]model.Fault, len(groups))
	for i, g := range groups {
		schools[i] = g.metrics
		byName[g.metrics.SchoolName] = g.faults
		if len(g.metrics.RegionConflicts) > 0 {
			s.warnf("school %q has faults in regions %v besides %q; using %q",
				g.metrics.SchoolName, g.metrics.RegionConflicts, g.metrics.Region, g.metrics.Region)
		}
	}
	schools = ScoreAll(schools)
	buckets, err := AssignClusters(schools, technicians, s.Config.TieBreak)
	if err != nil {
		return Result{}, err
	}
	res.Scheduled = true
	res.Assignments = FormatAssignments(buckets, byName)
	s.infof("run %s: %d faults across %d schools assigned to %d technicians",
		res.RunID, len(snapshot), len(schools), technicians)
	if s.Log != nil {
		for _, a := range res.Assignments {
			s.Log.Debugw("technician assignment", map[string]any{
				"run_id":     res.RunID,
				"technician": a.TechnicianID,
				"regions":    a.Regions,
				"schools":    len(a.Schools),
				"faults":     a.TotalFaults,
				"score":      a.TotalScore,
			})
		}
	}
	return res, nil
}

func (s *Scheduler) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock()
}

func (s *Scheduler) runID() string {
	if s.NewRunID == nil {
		return uuid.NewString()
	}
	return s.NewRunID()
}

func (s *Scheduler) infof(format string, args ...any) {
	if s.Log != nil {
		s.Log.Infof(format, args...)
	}
}

func (s *Scheduler) warnf(format string, args ...any) {
	if s.Log != nil {
		s.Log.Warnf(format, args...)
	}
}
