package notify

import (
	"context"

	"github.com/kilianp07/techsched/core/events"
	"github.com/kilianp07/techsched/core/logger"
	"github.com/kilianp07/techsched/core/monitoring"
	"github.com/kilianp07/techsched/internal/eventbus"
)

// StartForwarder subscribes to the bus and publishes the assignments of every
// successful run. It stops when ctx is cancelled or the bus is closed; the
// returned channel is closed once it has.
func StartForwarder(ctx context.Context, bus eventbus.EventBus, pub Publisher, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || pub == nil {
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
				if !ok || e.Err != nil || e.Result.NothingToSchedule() {
					continue
				}
				if err := pub.PublishAssignments(ctx, e.Result); err != nil {
					log.Errorf("publish assignments for run %s: %v", e.Result.RunID, err)
					monitoring.CaptureException(err, map[string]string{"component": "notifier", "run_id": e.Result.RunID})
					continue
				}
				log.Debugw("assignments published", map[string]any{
					"run_id":      e.Result.RunID,
					"technicians": len(e.Result.Assignments),
				})
			}
		}
	}()
	return done
}
