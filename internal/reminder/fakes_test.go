package reminder

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type memStore struct {
	mu     sync.Mutex
	seq    int64
	rows   map[int64]Reminder
	failOn string // operation name that returns errStore
}

var errStore = errors.New("store unavailable")

func newMemStore() *memStore { return &memStore{rows: map[int64]Reminder{}} }

func (m *memStore) Insert(_ context.Context, r Reminder) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn == "insert" {
		return 0, errStore
	}
	m.seq++
	r.ID = m.seq
	m.rows[r.ID] = r
	return r.ID, nil
}

func (m *memStore) Get(_ context.Context, id int64) (Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return Reminder{}, ErrNotFound
	}
	return r, nil
}

func (m *memStore) SetStatus(_ context.Context, id int64, st Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn == "status" {
		return errStore
	}
	r, ok := m.rows[id]
	if !ok {
		return ErrNotFound
	}
	r.Status = st
	m.rows[id] = r
	return nil
}

func (m *memStore) SetEventInstant(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn == "instant" {
		return errStore
	}
	r, ok := m.rows[id]
	if !ok {
		return ErrNotFound
	}
	r.EventAt = at.UTC()
	m.rows[id] = r
	return nil
}

func (m *memStore) ListUpcoming(_ context.Context, chatID int64, from time.Time, limit int) ([]Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Reminder
	for _, r := range m.rows {
		if r.ChatID == chatID && r.Status == StatusPending && !r.EventAt.Before(from) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventAt.Before(out[j].EventAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) ListPendingFuture(_ context.Context, from time.Time) ([]Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn == "list" {
		return nil, errStore
	}
	var out []Reminder
	for _, r := range m.rows {
		if r.Status == StatusPending && !r.EventAt.Before(from) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) put(r Reminder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID > m.seq {
		m.seq = r.ID
	}
	m.rows[r.ID] = r
}

// fakeTimers records armed instants. expire simulates the scheduler: it
// drops the entry and reports whether one existed.
type fakeTimers struct {
	mu     sync.Mutex
	now    func() time.Time
	armed  map[int64]time.Time
	firing map[int64]bool
	arms   int
}

func newFakeTimers(now func() time.Time) *fakeTimers {
	return &fakeTimers{now: now, armed: map[int64]time.Time{}, firing: map[int64]bool{}}
}

func (f *fakeTimers) Firing(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.firing[id]
}

// startFiring expires the timer for id and marks its fire in progress.
func (f *fakeTimers) startFiring(id int64) {
	f.expire(id)
	f.mu.Lock()
	f.firing[id] = true
	f.mu.Unlock()
}

func (f *fakeTimers) Arm(id, _ int64, at time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !at.After(f.now()) {
		return false
	}
	f.armed[id] = at
	f.arms++
	return true
}

func (f *fakeTimers) Disarm(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.armed[id]
	delete(f.armed, id)
	return ok
}

func (f *fakeTimers) Rearm(id, chatID int64, at time.Time) bool {
	f.Disarm(id)
	return f.Arm(id, chatID, at)
}

func (f *fakeTimers) Armed(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.armed[id]
	return ok
}

func (f *fakeTimers) at(id int64) (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	at, ok := f.armed[id]
	return at, ok
}

func (f *fakeTimers) expire(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.armed[id]
	delete(f.armed, id)
	return ok
}

func (f *fakeTimers) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.armed)
}

type recordingDispatcher struct {
	mu      sync.Mutex
	notices []Notice
	err     error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, n Notice) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notices = append(d.notices, n)
	return d.err
}

func (d *recordingDispatcher) kinds() []NoticeKind {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]NoticeKind, len(d.notices))
	for i, n := range d.notices {
		out[i] = n.Kind
	}
	return out
}
