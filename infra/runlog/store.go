// Package runlog keeps a history of scheduling runs so past technician routes
// can be looked up after the fact.
package runlog

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/kilianp07/techsched/core/events"
)

// ErrDisabled is returned when run history is requested but not configured.
var ErrDisabled = errors.New("run history is disabled")

// Record captures one scheduling run and the routes it produced.
type Record struct {
	Timestamp   time.Time `json:"timestamp"`
	RunID       string    `json:"run_id"`
	Technicians int       `json:"num_technicians"`
	Scheduled   bool      `json:"scheduled"`
	Faults      int       `json:"total_faults"`
	DurationMS  float64   `json:"duration_ms"`
	Routes      []Route   `json:"routes,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Route is one technician's share of a run.
type Route struct {
	TechnicianID int      `json:"technician_id"`
	Schools      []string `json:"schools"`
	Regions      []string `json:"regions"`
	Score        float64  `json:"total_score"`
	Faults       int      `json:"total_faults"`
}

// Query defines filters for retrieving records. Zero fields match everything.
type Query struct {
	Start        time.Time
	End          time.Time
	School       string
	TechnicianID int
	Limit        int
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// FromEvent converts a completed run into a Record.
func FromEvent(e events.ScheduleCompleted) Record {
	res := e.Result
	rec := Record{
		Timestamp:   res.GeneratedAt,
		RunID:       res.RunID,
		Technicians: res.Technicians,
		Scheduled:   res.Scheduled,
		Faults:      res.TotalFaults(),
		DurationMS:  float64(e.Duration) / float64(time.Millisecond),
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if e.Err != nil {
		rec.Error = e.Err.Error()
	}
	for _, a := range res.Assignments {
		r := Route{
			TechnicianID: a.TechnicianID,
			Schools:      make([]string, 0, len(a.Schools)),
			Regions:      a.Regions,
			Score:        a.TotalScore,
			Faults:       a.TotalFaults,
		}
		for _, s := range a.Schools {
			r.Schools = append(r.Schools, s.SchoolName)
		}
		rec.Routes = append(rec.Routes, r)
	}
	return rec
}

// Matches reports whether rec passes the time, school and technician filters.
// Limit is applied by the stores.
func (q Query) Matches(rec Record) bool {
	if !q.Start.IsZero() && rec.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && rec.Timestamp.After(q.End) {
		return false
	}
	if q.School == "" && q.TechnicianID == 0 {
		return true
	}
	for _, r := range rec.Routes {
		if q.TechnicianID != 0 && r.TechnicianID != q.TechnicianID {
			continue
		}
		if q.School == "" || slices.Contains(r.Schools, q.School) {
			return true
		}
	}
	return false
}

// limit keeps the newest n records of a chronologically ordered slice.
func limit(recs []Record, n int) []Record {
	if n <= 0 || len(recs) <= n {
		return recs
	}
	return recs[len(recs)-n:]
}
