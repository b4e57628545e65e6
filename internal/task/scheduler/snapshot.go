package scheduler

import (
	"sort"
	"time"
)

func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{Enabled: s.cfg.Enabled, Timezone: s.cfg.Timezone}
	if snap.Timezone == "" {
		loc := s.loc
		if loc == nil {
			loc = time.Local
		}
		snap.Timezone = loc.String()
	}
	for _, d := range s.defs {
		it := ScheduleInfo{Name: d.name, Spec: d.spec, Timeout: d.timeout}
		if s.c != nil && d.entryID != 0 {
			e := s.c.Entry(d.entryID)
			it.Next, it.Prev = e.Next, e.Prev
		}
		snap.Schedules = append(snap.Schedules, it)
	}
	eng := s.engine
	s.mu.Unlock()

	s.tmu.Lock()
	for name, t := range s.timers {
		snap.Timers = append(snap.Timers, TimerInfo{Name: name, ChatID: t.chatID, At: t.at})
	}
	s.tmu.Unlock()
	snap.Armed = len(snap.Timers)
	sort.Slice(snap.Timers, func(i, j int) bool { return snap.Timers[i].At.Before(snap.Timers[j].At) })

	if eng != nil {
		snap.Engine = eng.Snapshot()
	}
	return snap
}
