package reminder

import (
	"context"
	"errors"
)

type NoticeKind string

const (
	// NoticeReminder is the regular notification for a due reminder.
	NoticeReminder NoticeKind = "reminder"
	// NoticeEmphasis is the extra notification sent for urgent reminders.
	NoticeEmphasis NoticeKind = "emphasis"
)

// Notice is what crosses the dispatch boundary: a snapshot of the reminder
// at fire time.
type Notice struct {
	Kind     NoticeKind `json:"kind"`
	Reminder Reminder   `json:"reminder"`
}

// Dispatcher delivers notices. Implementations own retries; the controller
// only logs a failure and moves on.
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notice) error
}

type DispatcherFunc func(ctx context.Context, n Notice) error

func (f DispatcherFunc) Dispatch(ctx context.Context, n Notice) error { return f(ctx, n) }

// MultiDispatcher fans a notice out to every sink and joins their errors.
type MultiDispatcher []Dispatcher

func (m MultiDispatcher) Dispatch(ctx context.Context, n Notice) error {
	var errs []error
	for _, d := range m {
		if d == nil {
			continue
		}
		if err := d.Dispatch(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
