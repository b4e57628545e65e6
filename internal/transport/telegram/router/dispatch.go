package router

import (
	"context"
	"errors"

	"remindbot/internal/reminder"
	kit "remindbot/internal/transport"
	"remindbot/pkg/tgui"
)

const notifyChannel = "reminder"

// Dispatch renders a due reminder and queues it on the notifier.
func (r *Router) Dispatch(ctx context.Context, n reminder.Notice) error {
	if r.notif == nil {
		return errors.New("router: no notifier")
	}
	rem := n.Reminder
	var (
		msg      tgui.Message
		priority int
	)
	switch n.Kind {
	case reminder.NoticeEmphasis:
		msg = tgui.New().HTML(tgui.B("Urgent: ") + tgui.Esc(rem.Title)).Build()
		priority = 9
	default:
		msg = r.renderNotice(rem)
		priority = noticePriority(rem.Priority)
	}
	return r.notif.Notify(ctx, kit.Notification{
		Channel:  notifyChannel,
		Priority: priority,
		Target:   kit.ChatTarget{ChatID: rem.ChatID},
		Text:     msg.Text,
		Options:  msg.Opt,
	})
}

func noticePriority(p reminder.Priority) int {
	switch p {
	case reminder.PriorityLow:
		return 3
	case reminder.PriorityUrgent:
		return 7
	}
	return 5
}
