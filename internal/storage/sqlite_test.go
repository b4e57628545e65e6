package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"remindbot/internal/reminder"
	"remindbot/pkg/logx"
)

func TestSQLiteRejectsUnknownEnumRows(t *testing.T) {
	t.Parallel()
	st, err := openSQLite(Config{Path: filepath.Join(t.TempDir(), "r.sqlite")}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	ctx := t.Context()

	good, err := st.Insert(ctx, sample(1, base))
	if err != nil {
		t.Fatal(err)
	}
	res, err := st.db.ExecContext(ctx,
		`INSERT INTO reminders(chat_id, title, event_at, priority, recurrence, status) VALUES(1, 'legacy', ?, 'normal', 'monthly', 'pending')`,
		formatInstant(base))
	if err != nil {
		t.Fatal(err)
	}
	bad, _ := res.LastInsertId()

	if _, err := st.Get(ctx, bad); err == nil || errors.Is(err, reminder.ErrNotFound) {
		t.Fatalf("Get(bad) err = %v, want decode error", err)
	}
	list, err := st.ListPendingFuture(ctx, base)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != good {
		t.Fatalf("list = %+v, want only the valid row", list)
	}
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "r.sqlite")
	st, err := openSQLite(Config{Path: path}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	id, err := st.Insert(t.Context(), sample(9, base))
	if err != nil {
		t.Fatal(err)
	}
	_ = st.Close()

	st2, err := openSQLite(Config{Path: path}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer st2.Close()
	got, err := st2.Get(t.Context(), id)
	if err != nil || got.ChatID != 9 || !got.EventAt.Equal(base) {
		t.Fatalf("got %+v, %v", got, err)
	}
}

func TestInstantFormatSortsLexically(t *testing.T) {
	t.Parallel()
	a := formatInstant(base)
	b := formatInstant(base.Add(1))
	c := formatInstant(base.Add(10 * 365 * 24 * 3600 * 1e9))
	if !(a < b && b < c) || len(a) != len(c) {
		t.Fatalf("%s %s %s", a, b, c)
	}
	got, err := parseInstant(a)
	if err != nil || !got.Equal(base) {
		t.Fatalf("parseInstant = %v, %v", got, err)
	}
	if _, err := parseInstant("yesterday"); err == nil {
		t.Fatal("expected error")
	}
}
