package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"remindbot/internal/reminder"
	kit "remindbot/internal/transport"
	"remindbot/pkg/logx"
	"remindbot/pkg/tgui"
)

// webAppPayload is what the mini app submits. Unknown fields (the app also
// sends its own local id) are ignored.
type webAppPayload struct {
	Title       string  `json:"title"`
	DateTime    string  `json:"datetime"`
	Repeat      string  `json:"repeat"`
	Priority    string  `json:"priority"`
	Category    string  `json:"category"`
	LeadMinutes flexInt `json:"remind_before_minutes"`
	Timezone    string  `json:"timezone"`
}

// flexInt accepts 15, "15" and "".
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		*f = flexInt(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

func parseWebApp(chatID int64, data string) (reminder.CreateRequest, error) {
	var p webAppPayload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return reminder.CreateRequest{}, fmt.Errorf("%w: %v", reminder.ErrInvalidRequest, err)
	}
	return reminder.CreateRequest{
		ChatID:      chatID,
		Title:       p.Title,
		DateTime:    p.DateTime,
		Timezone:    p.Timezone,
		Priority:    p.Priority,
		Category:    p.Category,
		Repeat:      p.Repeat,
		LeadMinutes: int(p.LeadMinutes),
	}, nil
}

func (r *Router) routeWebApp(ctx context.Context, req *Request, m *kit.Message) error {
	var msg tgui.Message
	cr, err := parseWebApp(m.ChatID, m.WebAppData)
	if err == nil {
		if cr.Timezone == "" {
			cr.Timezone = r.config().DefaultTimezone
		}
		var rem reminder.Reminder
		rem, err = r.rem.Create(ctx, cr)
		if err == nil {
			req.Logger.Info("reminder created from web app", logx.Int64("id", rem.ID))
			msg = r.renderCreated(rem)
		}
	}
	if err != nil {
		req.Logger.Debug("web app payload rejected", logx.Err(err))
		msg = plain(errorText(err))
	}
	_, err = msg.Send(ctx, r.adapter, kit.ChatTarget{ChatID: m.ChatID, ThreadID: m.ThreadID})
	return err
}
