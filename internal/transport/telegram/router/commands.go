package router

import (
	"context"
	"strconv"
	"strings"

	"remindbot/internal/reminder"
	kit "remindbot/internal/transport"
	"remindbot/pkg/logx"
	"remindbot/pkg/tgui"
)

type command struct {
	name  string
	usage string
	desc  string
}

var commands = []command{
	{"start", "/start", "Open the reminder app"},
	{"help", "/help", "Show commands"},
	{"list", "/list", "Upcoming reminders"},
	{"remind", "/remind <YYYY-MM-DD HH:MM> | <title>", "Create a reminder"},
	{"snooze", "/snooze <id> <minutes>", "Postpone a reminder"},
	{"cancel", "/cancel <id>", "Cancel a reminder"},
}

// Commands is the bot menu.
func Commands() []kit.BotCommand {
	out := make([]kit.BotCommand, 0, len(commands))
	for _, c := range commands {
		out = append(out, kit.BotCommand{Command: c.name, Description: c.desc})
	}
	return out
}

func (r *Router) routeMessage(ctx context.Context, req *Request, m *kit.Message) error {
	text := strings.TrimSpace(m.Text)
	if !strings.HasPrefix(text, "/") {
		return nil
	}
	head, rest, _ := strings.Cut(text, " ")
	name := strings.ToLower(strings.TrimPrefix(head, "/"))
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	rest = strings.TrimSpace(rest)
	req.Logger.Debug("command", logx.String("cmd", name))

	var msg tgui.Message
	switch name {
	case "start", "help":
		msg = r.renderHelp()
	case "list":
		msg = r.cmdList(ctx, m.ChatID)
	case "remind":
		msg = r.cmdRemind(ctx, m.ChatID, rest)
	case "snooze":
		msg = r.cmdSnooze(ctx, m.ChatID, rest)
	case "cancel":
		msg = r.cmdCancel(ctx, m.ChatID, rest)
	default:
		msg = plain("Unknown command. Try /help.")
	}
	_, err := msg.Send(ctx, r.adapter, kit.ChatTarget{ChatID: m.ChatID, ThreadID: m.ThreadID})
	return err
}

func (r *Router) cmdList(ctx context.Context, chatID int64) tgui.Message {
	list, err := r.rem.Upcoming(ctx, chatID, r.config().UpcomingLimit)
	if err != nil {
		return plain(errorText(err))
	}
	return renderList(list)
}

func (r *Router) cmdRemind(ctx context.Context, chatID int64, args string) tgui.Message {
	when, title, _ := strings.Cut(args, "|")
	when = strings.TrimSpace(when)
	if when == "" {
		return plain("Usage: /remind <YYYY-MM-DD HH:MM> | <title>")
	}
	cfg := r.config()
	rem, err := r.rem.Create(ctx, reminder.CreateRequest{
		ChatID:   chatID,
		Title:    strings.TrimSpace(title),
		DateTime: when,
		Timezone: cfg.DefaultTimezone,
	})
	if err != nil {
		return plain(errorText(err))
	}
	return r.renderCreated(rem)
}

func (r *Router) cmdSnooze(ctx context.Context, chatID int64, args string) tgui.Message {
	f := strings.Fields(args)
	if len(f) != 2 {
		return plain("Usage: /snooze <id> <minutes>")
	}
	id, err1 := strconv.ParseInt(f[0], 10, 64)
	minutes, err2 := strconv.Atoi(f[1])
	if err1 != nil || err2 != nil {
		return plain("Usage: /snooze <id> <minutes>")
	}
	rem, err := r.snooze(ctx, chatID, id, minutes)
	if err != nil {
		return plain(errorText(err))
	}
	return renderSnoozed(rem)
}

func (r *Router) cmdCancel(ctx context.Context, chatID int64, args string) tgui.Message {
	id, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil {
		return plain("Usage: /cancel <id>")
	}
	rem, err := r.cancel(ctx, chatID, id)
	if err != nil {
		return plain(errorText(err))
	}
	return renderCancelled(rem)
}

// owned loads a reminder and hides reminders of other chats.
func (r *Router) owned(ctx context.Context, chatID, id int64) error {
	rem, err := r.rem.Get(ctx, id)
	if err != nil {
		return err
	}
	if rem.ChatID != chatID {
		return reminder.ErrNotFound
	}
	return nil
}

func (r *Router) snooze(ctx context.Context, chatID, id int64, minutes int) (reminder.Reminder, error) {
	if err := r.owned(ctx, chatID, id); err != nil {
		return reminder.Reminder{}, err
	}
	return r.rem.Snooze(ctx, id, minutes)
}

func (r *Router) cancel(ctx context.Context, chatID, id int64) (reminder.Reminder, error) {
	if err := r.owned(ctx, chatID, id); err != nil {
		return reminder.Reminder{}, err
	}
	return r.rem.Cancel(ctx, id)
}
