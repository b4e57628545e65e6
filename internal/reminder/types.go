package reminder

import (
	"fmt"
	"strings"
	"time"
)

// DefaultTitle replaces an empty title on create.
const DefaultTitle = "Reminder"

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityUrgent Priority = "urgent"
)

// ParsePriority accepts only the persisted spellings.
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(s); p {
	case PriorityLow, PriorityNormal, PriorityUrgent:
		return p, nil
	}
	return "", fmt.Errorf("unknown priority %q", s)
}

// priorityFromRequest maps client input; empty means normal.
func priorityFromRequest(s string) (Priority, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return PriorityNormal, nil
	}
	p, err := ParsePriority(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return p, nil
}

type Recurrence string

const (
	RecurrenceNone   Recurrence = "none"
	RecurrenceDaily  Recurrence = "daily"
	RecurrenceWeekly Recurrence = "weekly"
)

func ParseRecurrence(s string) (Recurrence, error) {
	switch r := Recurrence(s); r {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly:
		return r, nil
	}
	return "", fmt.Errorf("unknown recurrence %q", s)
}

// recurrenceFromRequest applies the creation table. Monthly and yearly are
// not supported and degrade to a one-time reminder.
func recurrenceFromRequest(s string) (Recurrence, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "once", "none":
		return RecurrenceNone, nil
	case "daily":
		return RecurrenceDaily, nil
	case "weekly":
		return RecurrenceWeekly, nil
	case "monthly", "yearly":
		return RecurrenceNone, nil
	}
	return "", fmt.Errorf("%w: unknown repeat %q", ErrInvalidRequest, s)
}

// Period is the advance applied on each fire; zero for none.
func (r Recurrence) Period() time.Duration {
	switch r {
	case RecurrenceDaily:
		return 24 * time.Hour
	case RecurrenceWeekly:
		return 7 * 24 * time.Hour
	}
	return 0
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusDone      Status = "done"
	StatusCancelled Status = "cancelled"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusDone, StatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

func (s Status) Terminal() bool { return s == StatusDone || s == StatusCancelled }

// Reminder is the persisted record. EventAt is always UTC.
type Reminder struct {
	ID         int64      `json:"id"`
	ChatID     int64      `json:"chat_id"`
	Title      string     `json:"title"`
	EventAt    time.Time  `json:"event_at"`
	Timezone   string     `json:"timezone,omitempty"`
	Priority   Priority   `json:"priority"`
	Category   string     `json:"category,omitempty"`
	Recurrence Recurrence `json:"recurrence"`
	Status     Status     `json:"status"`
}

// Validate checks the closed enumerations and the UTC invariant. Stores call
// it on every record they read or write.
func (r Reminder) Validate() error {
	if r.ChatID == 0 {
		return fmt.Errorf("reminder %d: chat id required", r.ID)
	}
	if r.EventAt.IsZero() {
		return fmt.Errorf("reminder %d: event instant required", r.ID)
	}
	if r.EventAt.Location() != time.UTC {
		return fmt.Errorf("reminder %d: event instant not UTC", r.ID)
	}
	if _, err := ParsePriority(string(r.Priority)); err != nil {
		return fmt.Errorf("reminder %d: %w", r.ID, err)
	}
	if _, err := ParseRecurrence(string(r.Recurrence)); err != nil {
		return fmt.Errorf("reminder %d: %w", r.ID, err)
	}
	if _, err := ParseStatus(string(r.Status)); err != nil {
		return fmt.Errorf("reminder %d: %w", r.ID, err)
	}
	return nil
}

// Location returns the reminder's display zone, UTC when unset or unknown.
func (r Reminder) Location() *time.Location {
	if loc, ok := resolveZone(r.Timezone); ok && loc != nil {
		return loc
	}
	return time.UTC
}

// TimerName is the scheduler key for a reminder's one-shot timer.
func TimerName(id int64) string { return fmt.Sprintf("reminder:%d", id) }
