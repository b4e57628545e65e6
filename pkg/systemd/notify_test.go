package systemd

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"remindbot/pkg/logx"
)

type recorder struct {
	mu     sync.Mutex
	states []string
}

func (r *recorder) notify(_ bool, state string) (bool, error) {
	r.mu.Lock()
	r.states = append(r.states, state)
	r.mu.Unlock()
	return true, nil
}

func (r *recorder) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.states...)
}

func TestStates(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	n := &Notifier{log: logx.Nop(), notify: rec.notify}
	n.Ready()
	n.Status("3 timers armed")
	n.Stopping()

	want := []string{"READY=1", "STATUS=3 timers armed", "STOPPING=1"}
	if diff := cmp.Diff(want, rec.got()); diff != "" {
		t.Errorf("states mismatch (-want +got):\n%s", diff)
	}
}

func TestWatchdog(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	n := &Notifier{log: logx.Nop(), notify: rec.notify, watchdog: 10 * time.Millisecond}
	ctx, cancel := context.WithTimeout(t.Context(), 75*time.Millisecond)
	defer cancel()
	if err := n.Watchdog(ctx, func() bool { return true }); err != nil {
		t.Fatal(err)
	}
	if len(rec.got()) < 2 {
		t.Fatalf("pings = %v", rec.got())
	}
}

func TestWatchdogDisabled(t *testing.T) {
	t.Parallel()
	n := &Notifier{log: logx.Nop(), notify: (&recorder{}).notify}
	done := make(chan struct{})
	go func() {
		_ = n.Watchdog(context.Background(), nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watchdog without interval should return immediately")
	}
}
