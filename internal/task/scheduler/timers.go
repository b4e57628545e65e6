package scheduler

import (
	"context"
	"time"

	"remindbot/internal/eventbus"
	"remindbot/internal/reminder"
	"remindbot/internal/task/engine"
	"remindbot/pkg/logx"
)

const defaultFireTimeout = 30 * time.Second

var _ reminder.Timers = (*Service)(nil)

// Arm schedules a one-shot fire for id at the given instant, replacing any
// timer already armed for it. An instant that is not in the future arms
// nothing and returns false.
func (s *Service) Arm(id, chatID int64, at time.Time) bool {
	delay := at.Sub(s.now())
	if delay <= 0 {
		return false
	}
	name := reminder.TimerName(id)

	s.tmu.Lock()
	if prev, ok := s.timers[name]; ok && prev.timer != nil {
		prev.timer.Stop()
	}
	s.verSeq++
	t := &armedTimer{id: id, chatID: chatID, at: at.UTC(), ver: s.verSeq}
	s.timers[name] = t
	if !s.stopped {
		s.startTimerWithDelayLocked(name, t, delay)
	}
	s.tmu.Unlock()

	s.log.Debug("timer armed", logx.String("name", name), logx.Time("at", at), logx.Duration("in", delay))
	eventbus.Emit(s.bus, "timer.armed", TimerInfo{Name: name, ChatID: chatID, At: t.at})
	return true
}

// Disarm stops the timer for id. It reports whether one was armed.
func (s *Service) Disarm(id int64) bool {
	name := reminder.TimerName(id)
	s.tmu.Lock()
	t, ok := s.timers[name]
	if ok {
		if t.timer != nil {
			t.timer.Stop()
		}
		delete(s.timers, name)
	}
	s.tmu.Unlock()
	if ok {
		s.log.Debug("timer disarmed", logx.String("name", name))
	}
	return ok
}

func (s *Service) Rearm(id, chatID int64, at time.Time) bool {
	s.Disarm(id)
	return s.Arm(id, chatID, at)
}

func (s *Service) Armed(id int64) bool {
	s.tmu.Lock()
	defer s.tmu.Unlock()
	_, ok := s.timers[reminder.TimerName(id)]
	return ok
}

func (s *Service) ArmedCount() int {
	s.tmu.Lock()
	defer s.tmu.Unlock()
	return len(s.timers)
}

// startTimerLocked restarts a kept definition; an instant that passed while
// stopped fires immediately.
func (s *Service) startTimerLocked(name string, t *armedTimer) {
	s.startTimerWithDelayLocked(name, t, max(t.at.Sub(s.now()), 0))
}

func (s *Service) startTimerWithDelayLocked(name string, t *armedTimer, delay time.Duration) {
	ver := t.ver
	t.timer = time.AfterFunc(delay, func() { s.expire(name, ver) })
}

// Firing reports whether a timer for id has expired and its fire has not
// finished yet. Reconcile uses it so an in-flight fire is not re-armed.
func (s *Service) Firing(id int64) bool {
	s.tmu.Lock()
	defer s.tmu.Unlock()
	_, ok := s.firing[id]
	return ok
}

// expire drops the entry before handing the fire off, so a fire that runs
// while a newer timer is armed can tell it is stale.
func (s *Service) expire(name string, ver uint64) {
	s.tmu.Lock()
	t, ok := s.timers[name]
	if !ok || t.ver != ver {
		s.tmu.Unlock()
		return
	}
	delete(s.timers, name)
	fire := s.fire
	if fire != nil {
		s.firing[t.id] = ver
	}
	s.tmu.Unlock()

	if fire == nil {
		s.log.Warn("timer expired without a fire handler", logx.String("name", name))
		return
	}
	s.submitFire(name, t.id, ver, fire)
}

func (s *Service) fireDone(id int64, ver uint64) {
	s.tmu.Lock()
	if s.firing[id] == ver {
		delete(s.firing, id)
	}
	s.tmu.Unlock()
}

// submitFire hands the fire to the engine. While the scheduler runs, an
// enqueue error or a drop inside the engine runs the fire on its own
// goroutine instead.
func (s *Service) submitFire(name string, id int64, ver uint64, fire FireFunc) {
	s.mu.Lock()
	timeout := s.cfg.FireTimeout
	s.mu.Unlock()
	if timeout <= 0 {
		timeout = defaultFireTimeout
	}
	run := func(ctx context.Context) error {
		defer s.fireDone(id, ver)
		return fire(ctx, id)
	}

	if s.engine == nil {
		go s.runDetached(name, timeout, run)
		return
	}
	err := s.engine.Enqueue(engine.Task{
		Name:    name,
		Timeout: timeout,
		Run:     func(ctx context.Context) error { return engine.NoRetry(run(ctx)) },
		Opt:     engine.TaskOptions{Overlap: engine.OverlapAllow, RetryMax: -1, NoStaleDrop: true},
		OnDrop: func() {
			s.tmu.Lock()
			stopped := s.stopped
			s.tmu.Unlock()
			if stopped {
				// Shutting down; recovery re-arms it on the next start if
				// it is still ahead.
				s.fireDone(id, ver)
				s.log.Warn("fire dropped at shutdown", logx.String("name", name))
				return
			}
			s.log.Warn("fire dropped by engine; running detached", logx.String("name", name))
			go s.runDetached(name, timeout, run)
		},
	})
	if err != nil {
		s.reportEnqueueError(name, err)
		go s.runDetached(name, timeout, run)
	}
}

func (s *Service) runDetached(name string, timeout time.Duration, run func(ctx context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("fire panicked", logx.String("name", name), logx.Any("panic", r))
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := run(ctx); err != nil {
		s.log.Warn("fire failed", logx.String("name", name), logx.Err(err))
	}
}
