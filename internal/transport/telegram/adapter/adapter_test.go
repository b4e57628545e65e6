package adapter

import (
	"strings"
	"testing"

	kit "remindbot/internal/transport"

	"github.com/google/go-cmp/cmp"
	tele "gopkg.in/telebot.v4"
)

func TestWebAppUpdate(t *testing.T) {
	t.Parallel()
	m := &tele.Message{
		ID:         3,
		Chat:       &tele.Chat{ID: 42, Type: tele.ChatPrivate},
		Sender:     &tele.User{ID: 7, Username: "ana"},
		WebAppData: &tele.WebAppData{Data: `{"title":"Dentist"}`},
	}
	up, ok := webAppUpdate(m)
	if !ok {
		t.Fatal("webAppUpdate rejected a web app message")
	}
	want := kit.Update{Kind: kit.UpdateWebApp, Message: &kit.Message{
		ID: 3, ChatID: 42, FromID: 7, FromUsername: "ana", WebAppData: `{"title":"Dentist"}`,
	}}
	if diff := cmp.Diff(want, up); diff != "" {
		t.Fatalf("update (-want +got):\n%s", diff)
	}
	if _, ok := webAppUpdate(&tele.Message{Chat: &tele.Chat{ID: 1}}); ok {
		t.Fatal("message without web app data must be ignored")
	}
}

func TestMessageUpdateMarksGroups(t *testing.T) {
	t.Parallel()
	up, ok := messageUpdate(&tele.Message{ID: 1, Text: "/list", Chat: &tele.Chat{ID: -100, Type: tele.ChatSuperGroup}})
	if !ok || !up.Message.IsGroup || up.Message.Text != "/list" {
		t.Fatalf("update = %+v", up.Message)
	}
	if _, ok := messageUpdate(nil); ok {
		t.Fatal("nil message must be ignored")
	}
}

func TestCallbackUpdate(t *testing.T) {
	t.Parallel()
	cb := &tele.Callback{
		ID:      "cb1",
		Data:    "\frem:cancel:9",
		Sender:  &tele.User{ID: 5},
		Message: &tele.Message{ID: 11, Chat: &tele.Chat{ID: 42}},
	}
	up, ok := callbackUpdate(cb)
	if !ok {
		t.Fatal("callbackUpdate rejected a callback")
	}
	want := &kit.Callback{ID: "cb1", FromID: 5, ChatID: 42, MessageID: 11, Data: "rem:cancel:9"}
	if diff := cmp.Diff(want, up.Callback); diff != "" {
		t.Fatalf("callback (-want +got):\n%s", diff)
	}
}

func TestSendOptionsMarkup(t *testing.T) {
	t.Parallel()
	so := sendOptions(&kit.SendOptions{
		ParseMode: "HTML",
		Buttons:   [][]kit.Button{{{Text: "5m", Data: "rem:snooze:1:5"}, {Text: "Docs", URL: "https://example.org"}}},
	}, 4)
	if so.ThreadID != 4 || so.ReplyMarkup == nil || len(so.ReplyMarkup.InlineKeyboard[0]) != 2 {
		t.Fatalf("send options = %+v", so)
	}
	if btn := so.ReplyMarkup.InlineKeyboard[0][1]; btn.URL != "https://example.org" || btn.Data != "" {
		t.Fatalf("url button = %+v", btn)
	}

	so = sendOptions(&kit.SendOptions{WebAppButton: &kit.WebAppButton{Text: "Open", URL: "https://app.example.org"}}, 0)
	rb := so.ReplyMarkup.ReplyKeyboard[0][0]
	if rb.WebApp == nil || rb.WebApp.URL != "https://app.example.org" || !so.ReplyMarkup.ResizeKeyboard {
		t.Fatalf("web app keyboard = %+v", so.ReplyMarkup)
	}
	if sendOptions(&kit.SendOptions{}, 0).ReplyMarkup != nil {
		t.Fatal("no markup expected")
	}
}

func TestSplitTelegramText(t *testing.T) {
	t.Parallel()
	if got := splitTelegramText("short", 10, ""); len(got) != 1 {
		t.Fatalf("chunks = %q", got)
	}

	text := strings.Repeat("a", 8) + "\n" + strings.Repeat("b", 8)
	got := splitTelegramText(text, 10, "")
	if diff := cmp.Diff([]string{strings.Repeat("a", 8), strings.Repeat("b", 8)}, got); diff != "" {
		t.Fatalf("newline split (-want +got):\n%s", diff)
	}

	html := "abcdef<b>bold</b>"
	for _, c := range splitTelegramText(html, 8, "HTML") {
		if strings.Count(c, "<") != strings.Count(c, ">") {
			t.Fatalf("chunk %q cuts a tag", c)
		}
	}
}
