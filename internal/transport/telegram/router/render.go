package router

import (
	"errors"
	"fmt"
	"strconv"

	"remindbot/internal/reminder"
	kit "remindbot/internal/transport"
	"remindbot/pkg/tgui"
)

const timeLayout = "Mon, 02 Jan 2006 15:04 MST"

func plain(text string) tgui.Message {
	return tgui.New().Line(text).Build()
}

func localTime(r reminder.Reminder) string {
	return r.EventAt.In(r.Location()).Format(timeLayout)
}

func repeatLabel(r reminder.Reminder) string {
	if r.Recurrence == reminder.RecurrenceNone {
		return ""
	}
	return string(r.Recurrence)
}

func (r *Router) renderHelp() tgui.Message {
	b := tgui.New().Title("⏰", "Reminder bot")
	if r.config().WebAppURL != "" {
		b.Line("Tap \"Open app\" below to create a reminder, or use a command:")
	} else {
		b.Line("Commands:")
	}
	for _, c := range commands {
		b.HTML(tgui.Code(c.usage) + " " + tgui.Esc(c.desc))
	}
	return b.WebApp("Open app", r.config().WebAppURL).Build()
}

// listTitleRunes keeps one list entry on a single phone line.
const listTitleRunes = 48

func renderList(list []reminder.Reminder) tgui.Message {
	if len(list) == 0 {
		return plain("No upcoming reminders.")
	}
	b := tgui.New().Title("📋", "Upcoming reminders")
	for _, rem := range list {
		line := tgui.Code("#"+strconv.FormatInt(rem.ID, 10)) + " " + tgui.Esc(localTime(rem)) + " " + tgui.B(tgui.TruncRunes(rem.Title, listTitleRunes))
		if l := repeatLabel(rem); l != "" {
			line += " " + tgui.I("("+l+")")
		}
		b.HTML(line)
	}
	return b.Build()
}

func (r *Router) renderCreated(rem reminder.Reminder) tgui.Message {
	cancel, _ := tgui.Data(callbackPrefix, "cancel", strconv.FormatInt(rem.ID, 10))
	return tgui.New().
		Title("✅", "Reminder set").
		KV("Title", rem.Title).
		KV("When", localTime(rem)).
		KV("Repeat", repeatLabel(rem)).
		KV("Category", rem.Category).
		KV("ID", strconv.FormatInt(rem.ID, 10)).
		Keyboard(tgui.NewKeyboard().Row(tgui.Btn("Cancel", cancel))).
		Build()
}

func renderSnoozed(rem reminder.Reminder) tgui.Message {
	return tgui.New().
		Title("😴", rem.Title).
		KV("Snoozed until", localTime(rem)).
		Build()
}

func renderCancelled(rem reminder.Reminder) tgui.Message {
	return tgui.New().
		Title("🚫", rem.Title).
		Line("Cancelled.").
		Build()
}

// renderNotice builds the message sent when a reminder fires. Snooze and
// cancel buttons only make sense while the reminder stays pending, which
// after a fire is the case for recurring reminders only.
func (r *Router) renderNotice(rem reminder.Reminder) tgui.Message {
	b := tgui.New().
		Title("⏰", rem.Title).
		Line(localTime(rem)).
		KV("Category", rem.Category).
		KV("Repeat", repeatLabel(rem))
	if rem.Recurrence == reminder.RecurrenceNone {
		return b.Build()
	}
	id := strconv.FormatInt(rem.ID, 10)
	var btns []kit.Button
	for _, m := range r.config().SnoozeChoices {
		data, err := tgui.Data(callbackPrefix, "snooze", id, strconv.Itoa(m))
		if err != nil {
			continue
		}
		btns = append(btns, tgui.Btn(fmt.Sprintf("+%d min", m), data))
	}
	kb := tgui.NewKeyboard().Row(btns...)
	if data, err := tgui.Data(callbackPrefix, "cancel", id); err == nil {
		kb.Row(tgui.Btn("Stop", data))
	}
	return b.Keyboard(kb).Build()
}

// errorText maps reminder errors to the text shown in chat.
func errorText(err error) string {
	switch {
	case errors.Is(err, reminder.ErrLeadTooEarly):
		return "Lead time is too early."
	case errors.Is(err, reminder.ErrTimeInPast):
		return "Time must be in the future."
	case errors.Is(err, reminder.ErrInvalidTimeFormat):
		return "Invalid date/time format. Use YYYY-MM-DD HH:MM."
	case errors.Is(err, reminder.ErrAlreadyFinalized):
		return "This reminder is already finished."
	case errors.Is(err, reminder.ErrNotFound):
		return "Reminder not found."
	case errors.Is(err, reminder.ErrInvalidRequest):
		return "Invalid request."
	}
	return "Something went wrong. Please try again."
}
