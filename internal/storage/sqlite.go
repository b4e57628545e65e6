package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"remindbot/internal/reminder"
	"remindbot/pkg/logx"
)

//go:embed migrations.sql
var sqliteSchema string

const reminderColumns = `id, chat_id, title, event_at, timezone, priority, category, recurrence, status`

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (*sqliteStore, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for sqlite driver")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection: SQLite serializes writers anyway and ":memory:" is
	// per-connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	for _, p := range []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds()),
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(p); err != nil {
			log.Debug("sqlite pragma failed", logx.String("pragma", p), logx.Err(err))
		}
	}

	if _, err := db.ExecContext(context.Background(), sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite migrate: %w", err)
	}
	log.Debug("sqlite store opened", logx.String("path", path))
	return &sqliteStore{db: db, log: log}, nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Insert(ctx context.Context, r reminder.Reminder) (int64, error) {
	r, err := prepareInsert(r)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders(chat_id, title, event_at, timezone, priority, category, recurrence, status)
		 VALUES(?,?,?,?,?,?,?,?)`,
		r.ChatID, r.Title, formatInstant(r.EventAt), r.Timezone,
		string(r.Priority), r.Category, string(r.Recurrence), string(r.Status),
	)
	if err != nil {
		return 0, fmt.Errorf("insert reminder: %w", err)
	}
	return res.LastInsertId()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLite(sc scanner) (reminder.Reminder, error) {
	var (
		rw      row
		eventAt string
	)
	if err := sc.Scan(&rw.ID, &rw.ChatID, &rw.Title, &eventAt, &rw.Timezone, &rw.Priority, &rw.Category, &rw.Recurrence, &rw.Status); err != nil {
		return reminder.Reminder{}, err
	}
	at, err := parseInstant(eventAt)
	if err != nil {
		return reminder.Reminder{}, fmt.Errorf("reminder %d: %w", rw.ID, err)
	}
	rw.EventAt = at
	return rw.decode()
}

func (s *sqliteStore) Get(ctx context.Context, id int64) (reminder.Reminder, error) {
	r, err := scanSQLite(s.db.QueryRowContext(ctx, `SELECT `+reminderColumns+` FROM reminders WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return reminder.Reminder{}, reminder.ErrNotFound
	}
	return r, err
}

func (s *sqliteStore) exec1(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return reminder.ErrNotFound
	}
	return nil
}

func (s *sqliteStore) SetStatus(ctx context.Context, id int64, st reminder.Status) error {
	if err := checkStatus(st); err != nil {
		return err
	}
	return s.exec1(ctx, `UPDATE reminders SET status = ? WHERE id = ?`, string(st), id)
}

func (s *sqliteStore) SetEventInstant(ctx context.Context, id int64, at time.Time) error {
	if at.IsZero() {
		return errors.New("event instant required")
	}
	return s.exec1(ctx, `UPDATE reminders SET event_at = ? WHERE id = ?`, formatInstant(at), id)
}

func (s *sqliteStore) ListUpcoming(ctx context.Context, chatID int64, from time.Time, limit int) ([]reminder.Reminder, error) {
	if limit <= 0 {
		limit = -1 // no limit in SQLite
	}
	return s.list(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE chat_id = ? AND status = 'pending' AND event_at >= ?
		 ORDER BY event_at ASC, id ASC
		 LIMIT ?`,
		chatID, formatInstant(from), limit)
}

func (s *sqliteStore) ListPendingFuture(ctx context.Context, from time.Time) ([]reminder.Reminder, error) {
	return s.list(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE status = 'pending' AND event_at >= ?`,
		formatInstant(from))
}

func (s *sqliteStore) list(ctx context.Context, query string, args ...any) ([]reminder.Reminder, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []reminder.Reminder
	for rows.Next() {
		r, err := scanSQLite(rows)
		if err != nil {
			s.log.Warn("skipping unreadable reminder row", logx.Err(err))
			continue
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
