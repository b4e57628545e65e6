package scheduler

import (
	"context"
	"strings"
	"time"

	"remindbot/internal/eventbus"
	"remindbot/internal/task/engine"
	"remindbot/pkg/logx"

	"github.com/robfig/cron/v3"
)

// New creates a scheduler. eng may be nil; fires then run on their own
// goroutine.
func New(cfg Config, eng *engine.Service, log logx.Logger, bus eventbus.Bus, opts ...Option) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{
		cfg:    cfg,
		log:    log,
		bus:    bus,
		engine: eng,
		now:    time.Now,
		// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
		parser:      cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		timers:      map[string]*armedTimer{},
		firing:      map[int64]uint64{},
		lastEnqWarn: map[string]time.Time{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SetFireHandler installs the callback for expired reminder timers.
func (s *Service) SetFireHandler(fn FireFunc) {
	s.tmu.Lock()
	s.fire = fn
	s.tmu.Unlock()
}

func (s *Service) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Enabled
}

// Apply swaps the config. A timezone or enabled change restarts cron.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.cfg
	s.cfg = cfg
	switch {
	case s.running && s.c == nil && cfg.Enabled:
		s.startCronLocked()
	case s.c != nil && !cfg.Enabled:
		<-s.c.Stop().Done()
		s.c = nil
		s.log.Info("cron disabled")
	case s.c != nil && strings.TrimSpace(prev.Timezone) != strings.TrimSpace(cfg.Timezone):
		s.restartLocked()
	}
}

// Start starts cron triggering and re-creates timers dropped by Stop.
func (s *Service) Start(ctx context.Context) {
	_ = ctx

	s.mu.Lock()
	s.running = true
	if s.c == nil && s.cfg.Enabled {
		s.startCronLocked()
	}
	s.mu.Unlock()

	s.tmu.Lock()
	if s.stopped {
		s.stopped = false
		for name, at := range s.timers {
			s.startTimerLocked(name, at)
		}
	}
	n := len(s.timers)
	s.tmu.Unlock()
	s.log.Info("scheduler started", logx.Int("armed", n))
}

// Stop stops cron and all runtime timers. Armed definitions remain so a
// later Start resumes them.
func (s *Service) Stop(ctx context.Context) {
	start := time.Now()

	s.mu.Lock()
	c := s.c
	s.c = nil
	s.running = false
	s.mu.Unlock()

	if c != nil {
		select {
		case <-c.Stop().Done():
		case <-ctx.Done():
		}
	}

	s.tmu.Lock()
	s.stopped = true
	for _, at := range s.timers {
		if at.timer != nil {
			at.timer.Stop()
			at.timer = nil
		}
	}
	s.tmu.Unlock()

	s.log.Info("scheduler stopped", logx.Duration("took", time.Since(start)))
}

func (s *Service) startCronLocked() {
	s.loc = s.loadLocationLocked()
	s.c = cron.New(cron.WithParser(s.parser), cron.WithLocation(s.loc))
	for i := range s.defs {
		if err := s.addCronLocked(&s.defs[i]); err != nil {
			s.log.Error("schedule register failed", logx.String("name", s.defs[i].name), logx.Err(err))
		}
	}
	s.c.Start()
	s.log.Info("cron started", logx.String("tz", s.loc.String()), logx.Int("schedules", len(s.defs)))
}

func (s *Service) restartLocked() {
	<-s.c.Stop().Done()
	s.startCronLocked()
}

func (s *Service) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone; falling back to Local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}
