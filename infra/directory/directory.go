// Package directory reads the student directory that maps fault reporters to
// schools. The directory is read-only; a Cache keeps a snapshot in memory so
// scheduling never waits on the remote database.
package directory

import (
	"context"

	"github.com/kilianp07/techsched/core/model"
)

// Directory lists every known student.
type Directory interface {
	Students(ctx context.Context) ([]model.Student, error)
}

// StaticDirectory serves a fixed student list, typically from configuration.
type StaticDirectory []model.Student

// Students returns a copy of the configured students.
func (d StaticDirectory) Students(context.Context) ([]model.Student, error) {
	out := make([]model.Student, len(d))
	copy(out, d)
	return out, nil
}
