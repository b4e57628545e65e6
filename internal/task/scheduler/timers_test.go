package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"remindbot/internal/task/engine"
	"remindbot/pkg/logx"
)

func newTestScheduler(t *testing.T, eng *engine.Service) (*Service, <-chan int64) {
	t.Helper()
	fired := make(chan int64, 16)
	s := New(Config{Enabled: true, Timezone: "UTC"}, eng, logx.Nop(), nil)
	s.SetFireHandler(func(_ context.Context, id int64) error {
		fired <- id
		return nil
	})
	s.Start(t.Context())
	t.Cleanup(func() { s.Stop(context.Background()) })
	return s, fired
}

func expectFire(t *testing.T, fired <-chan int64, want int64) {
	t.Helper()
	select {
	case got := <-fired:
		if got != want {
			t.Fatalf("fired id = %d, want %d", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timer for %d did not fire", want)
	}
}

func expectNoFire(t *testing.T, fired <-chan int64, wait time.Duration) {
	t.Helper()
	select {
	case got := <-fired:
		t.Fatalf("unexpected fire for %d", got)
	case <-time.After(wait):
	}
}

func TestArmFiresOnce(t *testing.T) {
	t.Parallel()
	s, fired := newTestScheduler(t, nil)

	if !s.Arm(7, 100, time.Now().Add(30*time.Millisecond)) {
		t.Fatal("Arm returned false for a future instant")
	}
	if !s.Armed(7) || s.ArmedCount() != 1 {
		t.Fatal("timer not reported as armed")
	}
	expectFire(t, fired, 7)
	if s.Armed(7) {
		t.Fatal("entry should be removed once the timer expires")
	}
	expectNoFire(t, fired, 100*time.Millisecond)
}

func TestArmPastInstantIsNoop(t *testing.T) {
	t.Parallel()
	s, fired := newTestScheduler(t, nil)

	for _, at := range []time.Time{time.Now(), time.Now().Add(-time.Hour)} {
		if s.Arm(1, 100, at) {
			t.Fatalf("Arm(%v) = true, want false", at)
		}
	}
	if s.ArmedCount() != 0 {
		t.Fatalf("ArmedCount = %d, want 0", s.ArmedCount())
	}
	expectNoFire(t, fired, 50*time.Millisecond)
}

func TestDisarmPreventsFire(t *testing.T) {
	t.Parallel()
	s, fired := newTestScheduler(t, nil)

	s.Arm(3, 100, time.Now().Add(40*time.Millisecond))
	if !s.Disarm(3) {
		t.Fatal("Disarm should report the armed timer")
	}
	if s.Disarm(3) {
		t.Fatal("second Disarm should be a no-op")
	}
	expectNoFire(t, fired, 120*time.Millisecond)
}

func TestRearmReplacesTimer(t *testing.T) {
	t.Parallel()
	s, fired := newTestScheduler(t, nil)

	start := time.Now()
	s.Arm(5, 100, start.Add(20*time.Millisecond))
	s.Rearm(5, 100, start.Add(150*time.Millisecond))
	if s.ArmedCount() != 1 {
		t.Fatalf("ArmedCount = %d, want 1", s.ArmedCount())
	}
	expectFire(t, fired, 5)
	if el := time.Since(start); el < 140*time.Millisecond {
		t.Fatalf("fired after %v, the replaced timer ran", el)
	}
	expectNoFire(t, fired, 50*time.Millisecond)
}

func TestInjectedClockDrivesDelay(t *testing.T) {
	t.Parallel()
	base := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	s := New(Config{}, nil, logx.Nop(), nil, WithClock(func() time.Time { return base }))

	if s.Arm(1, 1, base.Add(-time.Second)) {
		t.Fatal("instant before the injected now must not arm")
	}
	if !s.Arm(2, 1, base.Add(time.Hour)) {
		t.Fatal("instant after the injected now must arm")
	}
	s.Disarm(2)
}

func TestStopKeepsDefinitionsAndStartResumes(t *testing.T) {
	t.Parallel()
	s, fired := newTestScheduler(t, nil)

	s.Arm(9, 100, time.Now().Add(80*time.Millisecond))
	s.Stop(context.Background())
	if !s.Armed(9) {
		t.Fatal("Stop must keep the armed definition")
	}
	expectNoFire(t, fired, 120*time.Millisecond)

	// The instant passed while stopped, so it fires right away.
	s.Start(t.Context())
	expectFire(t, fired, 9)
}

func TestFireRunsOnEngine(t *testing.T) {
	t.Parallel()
	eng := engine.New(engine.Config{Enabled: true, Workers: 1, QueueSize: 4}, logx.Nop(), nil)
	eng.Start(t.Context())
	t.Cleanup(func() { eng.Stop(context.Background()) })

	s, fired := newTestScheduler(t, eng)
	s.Arm(11, 100, time.Now().Add(20*time.Millisecond))
	expectFire(t, fired, 11)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		for _, h := range eng.Snapshot().History {
			if h.Name == "reminder:11" && h.Error == "" {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("fire did not show up in the engine history")
}

func TestFireFallsBackWhenEngineDisabled(t *testing.T) {
	t.Parallel()
	eng := engine.New(engine.Config{Enabled: false}, logx.Nop(), nil)
	s, fired := newTestScheduler(t, eng)

	s.Arm(12, 100, time.Now().Add(10*time.Millisecond))
	expectFire(t, fired, 12)
}

func TestFireSurvivesStaleQueue(t *testing.T) {
	t.Parallel()
	eng := engine.New(engine.Config{Enabled: true, Workers: 1, QueueSize: 4, MaxQueueDelay: 50 * time.Millisecond}, logx.Nop(), nil)
	eng.Start(t.Context())
	t.Cleanup(func() { eng.Stop(context.Background()) })

	release := make(chan struct{})
	if err := eng.Enqueue(engine.Task{Name: "busy", Run: func(context.Context) error { <-release; return nil }}); err != nil {
		t.Fatal(err)
	}
	s, fired := newTestScheduler(t, eng)
	s.Arm(42, 100, time.Now().Add(20*time.Millisecond))
	time.Sleep(200 * time.Millisecond)
	close(release)

	expectFire(t, fired, 42)
}

func TestFireRunsDetachedWhenEngineStopped(t *testing.T) {
	t.Parallel()
	eng := engine.New(engine.Config{Enabled: true, Workers: 1, QueueSize: 4}, logx.Nop(), nil)
	s, fired := newTestScheduler(t, eng)

	// Enabled but never started: Enqueue reports ErrStopped.
	s.Arm(43, 100, time.Now().Add(10*time.Millisecond))
	expectFire(t, fired, 43)
}

func TestFiringCoversInFlightFire(t *testing.T) {
	t.Parallel()
	entered := make(chan struct{})
	release := make(chan struct{})
	s := New(Config{}, nil, logx.Nop(), nil)
	s.SetFireHandler(func(context.Context, int64) error {
		close(entered)
		<-release
		return nil
	})
	s.Start(t.Context())
	t.Cleanup(func() { s.Stop(context.Background()) })

	s.Arm(44, 100, time.Now().Add(10*time.Millisecond))
	<-entered
	if s.Armed(44) || !s.Firing(44) {
		t.Fatalf("Armed=%v Firing=%v, want false/true", s.Armed(44), s.Firing(44))
	}
	close(release)
	deadline := time.Now().Add(time.Second)
	for s.Firing(44) {
		if time.Now().After(deadline) {
			t.Fatal("Firing still set after the fire returned")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestAddScheduleRegistersAndRemoves(t *testing.T) {
	t.Parallel()
	s, _ := newTestScheduler(t, nil)
	var runs atomic.Int32
	job := func(context.Context) error { runs.Add(1); return nil }

	if err := s.AddSchedule("reminders.reconcile", "@every 10m", time.Minute, job); err != nil {
		t.Fatalf("AddSchedule: %v", err)
	}
	// Upsert by name.
	if err := s.AddSchedule("reminders.reconcile", "0 * * * *", time.Minute, job); err != nil {
		t.Fatalf("AddSchedule: %v", err)
	}
	snap := s.Snapshot()
	if len(snap.Schedules) != 1 || snap.Schedules[0].Spec != "0 * * * *" {
		t.Fatalf("schedules = %+v", snap.Schedules)
	}
	if snap.Schedules[0].Next.IsZero() {
		t.Fatal("running cron should report the next trigger")
	}
	if err := s.AddSchedule("bad", "61 * * * *", time.Minute, job); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
	if !s.Remove("reminders.reconcile") || s.Remove("reminders.reconcile") {
		t.Fatal("Remove should succeed once")
	}
	if runs.Load() != 0 {
		t.Fatal("job must not run at registration")
	}
}

func TestSnapshotListsTimers(t *testing.T) {
	t.Parallel()
	s, _ := newTestScheduler(t, nil)
	now := time.Now()
	s.Arm(2, 20, now.Add(2*time.Hour))
	s.Arm(1, 10, now.Add(time.Hour))

	snap := s.Snapshot()
	if snap.Armed != 2 || snap.Timezone != "UTC" {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.Timers[0].Name != "reminder:1" || snap.Timers[1].ChatID != 20 {
		t.Fatalf("timers not ordered by instant: %+v", snap.Timers)
	}
}
