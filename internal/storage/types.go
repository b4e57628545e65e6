package storage

import (
	"context"
	"errors"
	"time"

	"remindbot/internal/reminder"
)

var ErrClosed = errors.New("storage closed")

// Config configures storage.
type Config struct {
	Driver      string
	Path        string        // sqlite database file or file-driver prefix
	DSN         string        // postgres connection string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store is the reminder persistence contract.
type Store interface {
	Insert(ctx context.Context, r reminder.Reminder) (int64, error)
	// Get returns reminder.ErrNotFound for unknown ids.
	Get(ctx context.Context, id int64) (reminder.Reminder, error)
	SetStatus(ctx context.Context, id int64, st reminder.Status) error
	SetEventInstant(ctx context.Context, id int64, at time.Time) error
	// ListUpcoming returns pending reminders of one chat with EventAt >= from,
	// soonest first.
	ListUpcoming(ctx context.Context, chatID int64, from time.Time, limit int) ([]reminder.Reminder, error)
	// ListPendingFuture returns every pending reminder with EventAt >= from.
	ListPendingFuture(ctx context.Context, from time.Time) ([]reminder.Reminder, error)
	Close() error
}

var _ reminder.Store = Store(nil)
