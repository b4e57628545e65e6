// Package reminder is the reminder scheduling core.
//
// It owns the time normalizer, the lifecycle controller (create, fire,
// snooze, cancel, recurrence advance) and the recovery pass that re-arms
// timers from persisted state after a restart. Storage, timers and
// notification delivery are consumed through small interfaces defined here.
package reminder
