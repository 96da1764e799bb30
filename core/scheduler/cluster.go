package scheduler

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidTechnicianCount is returned when fewer than one technician is
// requested. The count is never coerced so misconfiguration stays visible.
var ErrInvalidTechnicianCount = errors.New("number of technicians must be at least 1")

// Round records one anchor pick: the anchor school, its region and every
// school of that region claimed in the same round.
type Round struct {
	Anchor  string   `json:"anchor"`
	Region  string   `json:"region"`
	Schools []string `json:"schools"`
}

// Bucket is the set of schools given to one technician.
type Bucket struct {
	TechnicianID int             `json:"technician_id"`
	Schools      []SchoolMetrics `json:"schools"`
	Rounds       []Round         `json:"rounds"`
}

// SortByPriority returns a copy of schools ordered by descending priority
// score. Equal scores are ordered according to tb.
func SortByPriority(schools []SchoolMetrics, tb TieBreak) []SchoolMetrics {
	out := make([]SchoolMetrics, len(schools))
	copy(out, schools)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PriorityScore != out[j].PriorityScore {
			return out[i].PriorityScore > out[j].PriorityScore
		}
		if tb == TieBreakInput {
			return false
		}
		return out[i].SchoolName < out[j].SchoolName
	})
	return out
}

// AssignClusters partitions scored schools among technicians 1..n.
//
// Each round picks the highest scoring unassigned school as anchor and gives
// the current technician every unassigned school in the anchor's region, in
// score order. The technician cursor then advances round-robin. A region is
// never split between technicians, so workloads follow region sizes.
func AssignClusters(schools []SchoolMetrics, technicians int, tb TieBreak) ([]Bucket, error) {
	if technicians < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTechnicianCount, technicians)
	}
	buckets := make([]Bucket, technicians)
	for i := range buckets {
		buckets[i].TechnicianID = i + 1
	}
	sorted := SortByPriority(schools, tb)
	assigned := make([]bool, len(sorted))
	remaining := len(sorted)
	cursor := 0
	next := 0
	for remaining > 0 {
		for assigned[next] {
			next++
		}
		anchor := sorted[next]
		round := Round{Anchor: anchor.SchoolName, Region: anchor.Region}
		b := &buckets[cursor]
		for i := next; i < len(sorted); i++ {
			if assigned[i] || sorted[i].Region != anchor.Region {
				continue
			}
			assigned[i] = true
			remaining--
			b.Schools = append(b.Schools, sorted[i])
			round.Schools = append(round.Schools, sorted[i].SchoolName)
		}
		b.Rounds = append(b.Rounds, round)
		cursor = (cursor + 1) % technicians
	}
	return buckets, nil
}
