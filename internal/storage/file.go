package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"remindbot/internal/reminder"
	"remindbot/pkg/logx"
)

const compactEvery = 500

// fileStore keeps reminders in memory and, unless it is the memory driver,
// persists them as:
//   - <prefix>.reminders.snapshot.json (periodic snapshot)
//   - <prefix>.reminders.journal.jsonl (append-only, one full record per write)
//
// The journal is compacted into the snapshot every compactEvery writes and
// on Close.
type fileStore struct {
	log logx.Logger

	mu     sync.Mutex
	rows   map[int64]reminder.Reminder
	nextID int64
	closed bool

	snapshotPath string
	journal      *os.File
	writes       int
}

type fileSnapshot struct {
	NextID    int64               `json:"next_id"`
	Reminders []reminder.Reminder `json:"reminders"`
}

func newMemory(log logx.Logger) *fileStore {
	return &fileStore{log: log, rows: map[int64]reminder.Reminder{}, nextID: 1}
}

func openFile(cfg Config, log logx.Logger) (*fileStore, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	dir := filepath.Dir(path)
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	prefix := filepath.Join(dir, base)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	s := newMemory(log)
	s.snapshotPath = prefix + ".reminders.snapshot.json"
	journalPath := prefix + ".reminders.journal.jsonl"

	if err := s.loadSnapshot(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if err := s.replayJournal(journalPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("replay journal: %w", err)
	}

	jf, err := os.OpenFile(journalPath, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}
	s.journal = jf
	log.Debug("file store opened", logx.String("prefix", prefix), logx.Int("reminders", len(s.rows)))
	return s, nil
}

func (s *fileStore) admit(r reminder.Reminder) {
	r.EventAt = r.EventAt.UTC()
	if err := r.Validate(); err != nil {
		s.log.Warn("skipping invalid stored reminder", logx.Err(err))
		return
	}
	s.rows[r.ID] = r
	if r.ID >= s.nextID {
		s.nextID = r.ID + 1
	}
}

func (s *fileStore) loadSnapshot() error {
	f, err := os.Open(s.snapshotPath)
	if err != nil {
		return err
	}
	defer f.Close()
	var snap fileSnapshot
	if err := json.NewDecoder(f).Decode(&snap); err != nil {
		return err
	}
	for _, r := range snap.Reminders {
		s.admit(r)
	}
	if snap.NextID > s.nextID {
		s.nextID = snap.NextID
	}
	return nil
}

func (s *fileStore) replayJournal(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		var r reminder.Reminder
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			// A torn last line after a crash is expected.
			s.log.Debug("skipping unreadable journal line", logx.Err(err))
			continue
		}
		s.admit(r)
	}
	return sc.Err()
}

// commitLocked journals r, then applies it to the in-memory rows. The
// journal is compacted only after the rows include r, so the snapshot never
// misses the write it replaces. Call with s.mu held.
func (s *fileStore) commitLocked(r reminder.Reminder) error {
	if s.journal != nil {
		if err := json.NewEncoder(s.journal).Encode(r); err != nil {
			return err
		}
	}
	s.rows[r.ID] = r
	if r.ID >= s.nextID {
		s.nextID = r.ID + 1
	}
	if s.journal == nil {
		return nil
	}
	s.writes++
	if s.writes%compactEvery == 0 {
		if err := s.compactLocked(); err != nil {
			s.log.Warn("journal compact failed", logx.Err(err))
		}
	}
	return nil
}

func (s *fileStore) compactLocked() error {
	if s.journal == nil {
		return nil
	}
	snap := fileSnapshot{NextID: s.nextID, Reminders: make([]reminder.Reminder, 0, len(s.rows))}
	for _, r := range s.rows {
		snap.Reminders = append(snap.Reminders, r)
	}
	sort.Slice(snap.Reminders, func(i, j int) bool { return snap.Reminders[i].ID < snap.Reminders[j].ID })

	tmp := s.snapshotPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(snap); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.snapshotPath); err != nil {
		return err
	}
	if err := s.journal.Truncate(0); err != nil {
		return err
	}
	_, err = s.journal.Seek(0, 2)
	return err
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.journal == nil {
		return nil
	}
	err := s.compactLocked()
	if cerr := s.journal.Close(); err == nil {
		err = cerr
	}
	s.journal = nil
	return err
}

func (s *fileStore) Insert(ctx context.Context, r reminder.Reminder) (int64, error) {
	_ = ctx
	r, err := prepareInsert(r)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	r.ID = s.nextID
	if err := s.commitLocked(r); err != nil {
		return 0, err
	}
	return r.ID, nil
}

func (s *fileStore) Get(ctx context.Context, id int64) (reminder.Reminder, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return reminder.Reminder{}, ErrClosed
	}
	r, ok := s.rows[id]
	if !ok {
		return reminder.Reminder{}, reminder.ErrNotFound
	}
	return r, nil
}

func (s *fileStore) update(id int64, fn func(*reminder.Reminder)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	r, ok := s.rows[id]
	if !ok {
		return reminder.ErrNotFound
	}
	fn(&r)
	return s.commitLocked(r)
}

func (s *fileStore) SetStatus(ctx context.Context, id int64, st reminder.Status) error {
	_ = ctx
	if err := checkStatus(st); err != nil {
		return err
	}
	return s.update(id, func(r *reminder.Reminder) { r.Status = st })
}

func (s *fileStore) SetEventInstant(ctx context.Context, id int64, at time.Time) error {
	_ = ctx
	if at.IsZero() {
		return errors.New("event instant required")
	}
	return s.update(id, func(r *reminder.Reminder) { r.EventAt = at.UTC() })
}

func (s *fileStore) ListUpcoming(ctx context.Context, chatID int64, from time.Time, limit int) ([]reminder.Reminder, error) {
	out, err := s.filter(ctx, func(r reminder.Reminder) bool { return r.ChatID == chatID }, from)
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EventAt.Equal(out[j].EventAt) {
			return out[i].EventAt.Before(out[j].EventAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fileStore) ListPendingFuture(ctx context.Context, from time.Time) ([]reminder.Reminder, error) {
	return s.filter(ctx, func(reminder.Reminder) bool { return true }, from)
}

func (s *fileStore) filter(ctx context.Context, keep func(reminder.Reminder) bool, from time.Time) ([]reminder.Reminder, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	var out []reminder.Reminder
	for _, r := range s.rows {
		if r.Status == reminder.StatusPending && !r.EventAt.Before(from) && keep(r) {
			out = append(out, r)
		}
	}
	return out, nil
}
