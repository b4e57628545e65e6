package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	pgxMigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"remindbot/internal/reminder"
	"remindbot/pkg/logx"
)

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

type postgresStore struct {
	pool *pgxpool.Pool
	log  logx.Logger
}

func openPostgres(ctx context.Context, cfg Config, log logx.Logger) (*postgresStore, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("storage.dsn is required for postgres driver")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if err := migratePostgres(pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres migrate: %w", err)
	}
	log.Debug("postgres store opened")
	return &postgresStore{pool: pool, log: log}, nil
}

func migratePostgres(pool *pgxpool.Pool) (err error) {
	db := stdlib.OpenDBFromPool(pool)
	defer func() {
		if cerr := db.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	driver, err := pgxMigrate.WithInstance(db, &pgxMigrate.Config{})
	if err != nil {
		return err
	}
	src, err := iofs.New(postgresMigrations, "migrations/postgres")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		return err
	}
	defer func() {
		srcErr, dbErr := m.Close()
		err = errors.Join(err, srcErr, dbErr)
	}()

	if upErr := m.Up(); upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return upErr
	}
	return nil
}

func (s *postgresStore) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *postgresStore) Insert(ctx context.Context, r reminder.Reminder) (int64, error) {
	r, err := prepareInsert(r)
	if err != nil {
		return 0, err
	}
	var id int64
	err = s.pool.QueryRow(ctx,
		`INSERT INTO reminders (chat_id, title, event_at, timezone, priority, category, recurrence, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		r.ChatID, r.Title, r.EventAt, r.Timezone,
		string(r.Priority), r.Category, string(r.Recurrence), string(r.Status),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert reminder: %w", err)
	}
	return id, nil
}

func scanPostgres(sc pgx.Row) (reminder.Reminder, error) {
	var rw row
	if err := sc.Scan(&rw.ID, &rw.ChatID, &rw.Title, &rw.EventAt, &rw.Timezone, &rw.Priority, &rw.Category, &rw.Recurrence, &rw.Status); err != nil {
		return reminder.Reminder{}, err
	}
	return rw.decode()
}

func (s *postgresStore) Get(ctx context.Context, id int64) (reminder.Reminder, error) {
	r, err := scanPostgres(s.pool.QueryRow(ctx, `SELECT `+reminderColumns+` FROM reminders WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return reminder.Reminder{}, reminder.ErrNotFound
	}
	return r, err
}

func (s *postgresStore) exec1(ctx context.Context, query string, args ...any) error {
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return reminder.ErrNotFound
	}
	return nil
}

func (s *postgresStore) SetStatus(ctx context.Context, id int64, st reminder.Status) error {
	if err := checkStatus(st); err != nil {
		return err
	}
	return s.exec1(ctx, `UPDATE reminders SET status = $1 WHERE id = $2`, string(st), id)
}

func (s *postgresStore) SetEventInstant(ctx context.Context, id int64, at time.Time) error {
	if at.IsZero() {
		return errors.New("event instant required")
	}
	return s.exec1(ctx, `UPDATE reminders SET event_at = $1 WHERE id = $2`, at.UTC(), id)
}

func (s *postgresStore) ListUpcoming(ctx context.Context, chatID int64, from time.Time, limit int) ([]reminder.Reminder, error) {
	if limit <= 0 {
		return s.list(ctx,
			`SELECT `+reminderColumns+` FROM reminders
			 WHERE chat_id = $1 AND status = 'pending' AND event_at >= $2
			 ORDER BY event_at ASC, id ASC`,
			chatID, from.UTC())
	}
	return s.list(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE chat_id = $1 AND status = 'pending' AND event_at >= $2
		 ORDER BY event_at ASC, id ASC
		 LIMIT $3`,
		chatID, from.UTC(), limit)
}

func (s *postgresStore) ListPendingFuture(ctx context.Context, from time.Time) ([]reminder.Reminder, error) {
	return s.list(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE status = 'pending' AND event_at >= $1`,
		from.UTC())
}

func (s *postgresStore) list(ctx context.Context, query string, args ...any) ([]reminder.Reminder, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []reminder.Reminder
	for rows.Next() {
		r, err := scanPostgres(rows)
		if err != nil {
			s.log.Warn("skipping unreadable reminder row", logx.Err(err))
			continue
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
