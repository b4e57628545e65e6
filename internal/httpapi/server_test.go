package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"remindbot/internal/reminder"
	"remindbot/internal/storage"
	"remindbot/pkg/logx"
)

var testNow = time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)

type fakeTimers struct {
	mu    sync.Mutex
	armed map[int64]bool
}

func (f *fakeTimers) Arm(id, _ int64, at time.Time) bool {
	if !at.After(testNow) {
		return false
	}
	f.mu.Lock()
	f.armed[id] = true
	f.mu.Unlock()
	return true
}

func (f *fakeTimers) Disarm(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	ok := f.armed[id]
	delete(f.armed, id)
	return ok
}

func (f *fakeTimers) Rearm(id, chatID int64, at time.Time) bool {
	f.Disarm(id)
	return f.Arm(id, chatID, at)
}

func (f *fakeTimers) Armed(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.armed[id]
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return newTestServerWith(t, Config{})
}

func newTestServerWith(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	st, err := storage.Open(storage.Config{Driver: "memory"}, logx.Nop())
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	svc := reminder.New(reminder.Config{}, st, &fakeTimers{armed: map[int64]bool{}}, logx.Nop(),
		reminder.WithClock(func() time.Time { return testNow }))
	ts := httptest.NewServer(New(cfg, svc, logx.Nop()).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, ts *httptest.Server, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(t.Context(), method, ts.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, respBody
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	resp, body := do(t, ts, http.MethodGet, "/healthz", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "ok") {
		t.Fatalf("healthz = %d %s", resp.StatusCode, body)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Fatal("missing request id header")
	}
}

func TestPprofMount(t *testing.T) {
	t.Parallel()
	off := newTestServer(t)
	if resp, _ := do(t, off, http.MethodGet, "/debug/pprof/", ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("pprof off = %d, want 404", resp.StatusCode)
	}
	on := newTestServerWith(t, Config{Pprof: true})
	resp, body := do(t, on, http.MethodGet, "/debug/pprof/cmdline", "")
	if resp.StatusCode != http.StatusOK || len(body) == 0 {
		t.Fatalf("pprof on = %d", resp.StatusCode)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	req, _ := http.NewRequestWithContext(t.Context(), http.MethodGet, ts.URL+"/api/reminders/999", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var eb errorBody
	if err := json.NewDecoder(resp.Body).Decode(&eb); err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusNotFound || eb.RequestID != "abc-123" {
		t.Fatalf("got %d %+v", resp.StatusCode, eb)
	}
}

func TestReminderLifecycle(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	resp, body := do(t, ts, http.MethodPost, "/api/reminders",
		`{"chat_id":7,"title":"Dentist","datetime":"2026-10-18T09:00","timezone":"UTC","repeat":"daily"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create = %d %s", resp.StatusCode, body)
	}
	var created reminder.Reminder
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatal(err)
	}
	if created.ID == 0 || created.Recurrence != reminder.RecurrenceDaily || !created.EventAt.Equal(time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("created = %+v", created)
	}
	path := "/api/reminders/" + strconv.FormatInt(created.ID, 10)

	if resp, body := do(t, ts, http.MethodGet, path, ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("get = %d %s", resp.StatusCode, body)
	}

	resp, body = do(t, ts, http.MethodGet, "/api/chats/7/reminders?limit=5", "")
	var list []reminder.Reminder
	if err := json.Unmarshal(body, &list); err != nil || resp.StatusCode != http.StatusOK || len(list) != 1 {
		t.Fatalf("list = %d %s (%v)", resp.StatusCode, body, err)
	}

	resp, body = do(t, ts, http.MethodPost, path+"/snooze", `{"minutes":15}`)
	var snoozed reminder.Reminder
	if err := json.Unmarshal(body, &snoozed); err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("snooze = %d %s", resp.StatusCode, body)
	}
	if !snoozed.EventAt.Equal(testNow.Add(15 * time.Minute)) {
		t.Fatalf("snoozed to %v", snoozed.EventAt)
	}

	if resp, body := do(t, ts, http.MethodPost, path+"/cancel", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel = %d %s", resp.StatusCode, body)
	}
	if resp, body := do(t, ts, http.MethodPost, path+"/cancel", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("second cancel = %d %s", resp.StatusCode, body)
	}
	if resp, _ := do(t, ts, http.MethodPost, path+"/snooze", `{"minutes":15}`); resp.StatusCode != http.StatusConflict {
		t.Fatalf("snooze after cancel = %d", resp.StatusCode)
	}

	resp, body = do(t, ts, http.MethodGet, "/api/chats/7/reminders", "")
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(body)) != "[]" {
		t.Fatalf("empty list = %d %s", resp.StatusCode, body)
	}
}

func TestErrorStatus(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"bad json", http.MethodPost, "/api/reminders", `{`, http.StatusBadRequest},
		{"bad time", http.MethodPost, "/api/reminders", `{"chat_id":1,"datetime":"soon"}`, http.StatusBadRequest},
		{"missing chat", http.MethodPost, "/api/reminders", `{"datetime":"2026-10-18T09:00"}`, http.StatusBadRequest},
		{"past", http.MethodPost, "/api/reminders", `{"chat_id":1,"datetime":"2026-10-17T09:00"}`, http.StatusUnprocessableEntity},
		{"lead too early", http.MethodPost, "/api/reminders", `{"chat_id":1,"datetime":"2026-10-17T10:05","remind_before_minutes":10}`, http.StatusUnprocessableEntity},
		{"bad id", http.MethodGet, "/api/reminders/abc", "", http.StatusBadRequest},
		{"unknown", http.MethodGet, "/api/reminders/42", "", http.StatusNotFound},
		{"snooze unknown", http.MethodPost, "/api/reminders/42/snooze", `{"minutes":5}`, http.StatusNotFound},
		{"snooze zero", http.MethodPost, "/api/reminders/42/snooze", `{"minutes":0}`, http.StatusBadRequest},
		{"cancel unknown", http.MethodPost, "/api/reminders/42/cancel", "", http.StatusNotFound},
		{"bad limit", http.MethodGet, "/api/chats/1/reminders?limit=x", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			resp, body := do(t, ts, tt.method, tt.path, tt.body)
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d (%s)", resp.StatusCode, tt.want, body)
			}
		})
	}
}
