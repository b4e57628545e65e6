package router

import (
	"context"
	"strconv"

	"remindbot/internal/reminder"
	kit "remindbot/internal/transport"
	"remindbot/pkg/logx"
	"remindbot/pkg/tgui"
)

const callbackPrefix = "rem"

func (r *Router) routeCallback(ctx context.Context, req *Request, cb *kit.Callback) error {
	action, args, ok := tgui.ParseData(cb.Data, callbackPrefix)
	if !ok {
		return r.adapter.AnswerCallback(ctx, cb.ID, "")
	}
	req.Logger.Debug("callback", logx.String("cmd", action))

	var (
		rem reminder.Reminder
		err error
		ans string
	)
	switch {
	case action == "snooze" && len(args) == 2:
		id, e1 := strconv.ParseInt(args[0], 10, 64)
		minutes, e2 := strconv.Atoi(args[1])
		if e1 != nil || e2 != nil {
			err = reminder.ErrInvalidRequest
			break
		}
		rem, err = r.snooze(ctx, cb.ChatID, id, minutes)
		ans = "Snoozed for " + strconv.Itoa(minutes) + " min"
	case action == "cancel" && len(args) == 1:
		id, e := strconv.ParseInt(args[0], 10, 64)
		if e != nil {
			err = reminder.ErrInvalidRequest
			break
		}
		rem, err = r.cancel(ctx, cb.ChatID, id)
		ans = "Cancelled"
	default:
		err = reminder.ErrInvalidRequest
	}
	if err != nil {
		return r.adapter.AnswerCallback(ctx, cb.ID, errorText(err))
	}
	if aerr := r.adapter.AnswerCallback(ctx, cb.ID, ans); aerr != nil {
		req.Logger.Debug("answer callback failed", logx.Err(aerr))
	}

	var msg tgui.Message
	if action == "snooze" {
		msg = renderSnoozed(rem)
	} else {
		msg = renderCancelled(rem)
	}
	if cb.MessageID == 0 {
		return nil
	}
	return msg.Edit(ctx, r.adapter, kit.MessageRef{ChatID: cb.ChatID, ThreadID: cb.ThreadID, MessageID: cb.MessageID})
}
