package runlog

import (
	"context"
	"fmt"

	"github.com/kilianp07/techsched/core/events"
	"github.com/kilianp07/techsched/core/logger"
	"github.com/kilianp07/techsched/core/monitoring"
	"github.com/kilianp07/techsched/internal/eventbus"
)

// Config selects the run history backend. An empty Backend disables it.
type Config struct {
	Backend    string `json:"backend"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		return
	}
	if c.Path == "" {
		if c.Backend == "sqlite" {
			c.Path = "schedule_runs.db"
		} else {
			c.Path = "schedule_runs.jsonl"
		}
	}
	if c.Backend == "rotating" {
		if c.MaxSizeMB == 0 {
			c.MaxSizeMB = 10
		}
		if c.MaxBackups == 0 {
			c.MaxBackups = 5
		}
		if c.MaxAgeDays == 0 {
			c.MaxAgeDays = 30
		}
	}
}

// Validate checks the backend name.
func (c Config) Validate() error {
	switch c.Backend {
	case "", "jsonl", "rotating", "sqlite":
		return nil
	}
	return fmt.Errorf("unknown run log backend %q", c.Backend)
}

// New opens the configured store. It returns nil when the history is disabled.
func New(c Config) (Store, error) {
	switch c.Backend {
	case "":
		return nil, nil
	case "jsonl":
		return NewJSONLStore(c.Path)
	case "rotating":
		return NewRotatingJSONLStore(c.Path, c.MaxSizeMB, c.MaxBackups, c.MaxAgeDays)
	case "sqlite":
		return NewSQLiteStore(c.Path)
	}
	return nil, fmt.Errorf("unknown run log backend %q", c.Backend)
}

// StartRecorder appends every completed run published on the bus to store.
// It stops when ctx is cancelled or the bus is closed. The returned channel
// is closed on exit.
func StartRecorder(ctx context.Context, bus eventbus.EventBus, store Store, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || store == nil {
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
				e, ok := ev.(events.ScheduleCompleted)
				if !ok {
					continue
				}
				rec := FromEvent(e)
				if err := store.Append(ctx, rec); err != nil {
					log.Errorf("append run %s: %v", rec.RunID, err)
				}
			}
		}
	}()
	return done
}
