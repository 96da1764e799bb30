// Package events defines the events emitted on the event bus.
//
// Available event types:
//   - ScheduleCompleted: a scheduling run finished (successfully or not)
//   - FaultReported: a new fault was stored
//   - FaultTransitioned: a fault changed status
package events
