package storage

import (
	"fmt"
	"time"

	"remindbot/internal/reminder"
)

// instantLayout is fixed width so text columns sort chronologically.
const instantLayout = "2006-01-02T15:04:05.000000000Z"

func formatInstant(t time.Time) string { return t.UTC().Format(instantLayout) }

func parseInstant(s string) (time.Time, error) {
	t, err := time.Parse(instantLayout, s)
	if err != nil {
		// Rows written by other tools may carry any RFC 3339 form.
		t, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("bad instant %q: %w", s, err)
		}
	}
	return t.UTC(), nil
}

// row is the driver-neutral shape of a stored reminder before validation.
type row struct {
	ID         int64
	ChatID     int64
	Title      string
	EventAt    time.Time
	Timezone   string
	Priority   string
	Category   string
	Recurrence string
	Status     string
}

func (r row) decode() (reminder.Reminder, error) {
	prio, err := reminder.ParsePriority(r.Priority)
	if err != nil {
		return reminder.Reminder{}, fmt.Errorf("reminder %d: %w", r.ID, err)
	}
	rec, err := reminder.ParseRecurrence(r.Recurrence)
	if err != nil {
		return reminder.Reminder{}, fmt.Errorf("reminder %d: %w", r.ID, err)
	}
	st, err := reminder.ParseStatus(r.Status)
	if err != nil {
		return reminder.Reminder{}, fmt.Errorf("reminder %d: %w", r.ID, err)
	}
	return reminder.Reminder{
		ID:         r.ID,
		ChatID:     r.ChatID,
		Title:      r.Title,
		EventAt:    r.EventAt.UTC(),
		Timezone:   r.Timezone,
		Priority:   prio,
		Category:   r.Category,
		Recurrence: rec,
		Status:     st,
	}, nil
}

// prepareInsert normalizes a record and validates it before any write.
func prepareInsert(r reminder.Reminder) (reminder.Reminder, error) {
	r.ID = 0
	r.EventAt = r.EventAt.UTC()
	if r.Status == "" {
		r.Status = reminder.StatusPending
	}
	if err := r.Validate(); err != nil {
		return reminder.Reminder{}, fmt.Errorf("insert: %w", err)
	}
	return r, nil
}

func checkStatus(st reminder.Status) error {
	_, err := reminder.ParseStatus(string(st))
	return err
}
