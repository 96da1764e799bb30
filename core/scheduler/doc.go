// Package scheduler turns a snapshot of open faults into technician
// assignments. Faults are aggregated per school, each school gets a priority
// score, and schools are handed out to technicians one region at a time in
// score order.
package scheduler
