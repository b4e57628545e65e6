// Package scheduler owns the process's timers.
//
// Two kinds of triggers live here:
//   - one-shot reminder timers, keyed by reminder.TimerName and guarded by a
//     per-name version so a replaced timer never fires
//   - named cron/interval schedules (robfig/cron) for maintenance jobs
//
// Triggers only enqueue; execution happens in the task engine.
package scheduler
