package scheduler

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/kilianp07/techsched/core/model"
)

var refNow = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func fault(id, school, region string, severity int, ageDays float64, urgent, recurring bool) model.Fault {
	return model.Fault{
		ID:          id,
		SchoolName:  school,
		Region:      region,
		Type:        model.FaultOther,
		Severity:    severity,
		IsUrgent:    urgent,
		IsRecurring: recurring,
		Status:      model.StatusOpen,
		CreatedAt:   refNow.Add(-time.Duration(ageDays * 24 * float64(time.Hour))),
	}
}

func fixedScheduler() *Scheduler {
	s := New(Config{}, nil)
	s.Clock = func() time.Time { return refNow }
	s.NewRunID = func() string { return "run-1" }
	return s
}

// randomFaults builds a reproducible snapshot spread over a few regions.
func randomFaults(seed int64, n int) []model.Fault {
	r := rand.New(rand.NewSource(seed))
	regions := []string{"North", "Center", "South", "Jerusalem", "Lowland", "Unknown"}
	out := make([]model.Fault, 0, n)
	for i := 0; i < n; i++ {
		// region derives from the school so every school has a single region
		idx := r.Intn(15)
		out = append(out, fault(
			fmt.Sprintf("f%03d", i),
			fmt.Sprintf("school-%02d", idx),
			regions[idx%len(regions)],
			1+r.Intn(5),
			r.Float64()*12,
			r.Intn(20) == 0,
			r.Intn(4) == 0,
		))
	}
	return out
}
