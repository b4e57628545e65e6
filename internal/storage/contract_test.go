package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"remindbot/internal/reminder"
	"remindbot/pkg/logx"
)

var base = time.Date(2030, 3, 10, 8, 0, 0, 0, time.UTC)

func sample(chatID int64, at time.Time) reminder.Reminder {
	return reminder.Reminder{
		ChatID:     chatID,
		Title:      "water plants",
		EventAt:    at,
		Timezone:   "Europe/Berlin",
		Priority:   reminder.PriorityNormal,
		Category:   "home",
		Recurrence: reminder.RecurrenceNone,
		Status:     reminder.StatusPending,
	}
}

// runContract exercises the Store contract against one driver.
func runContract(t *testing.T, open func(t *testing.T) Store) {
	t.Run("insert and get", func(t *testing.T) {
		st := open(t)
		ctx := t.Context()
		in := sample(1, base.Add(123456*time.Microsecond))
		in.Recurrence = reminder.RecurrenceWeekly
		in.Priority = reminder.PriorityUrgent
		id, err := st.Insert(ctx, in)
		if err != nil {
			t.Fatal(err)
		}
		if id <= 0 {
			t.Fatalf("id = %d", id)
		}
		got, err := st.Get(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		in.ID = id
		if diff := cmp.Diff(in, got); diff != "" {
			t.Fatalf("roundtrip mismatch (-want +got):\n%s", diff)
		}
		if got.EventAt.Location() != time.UTC {
			t.Fatalf("event instant not UTC: %v", got.EventAt.Location())
		}
	})

	t.Run("insert converts to UTC", func(t *testing.T) {
		st := open(t)
		ctx := t.Context()
		jakarta := time.FixedZone("WIB", 7*3600)
		in := sample(1, time.Date(2030, 3, 10, 15, 0, 0, 0, jakarta))
		id, err := st.Insert(ctx, in)
		if err != nil {
			t.Fatal(err)
		}
		got, _ := st.Get(ctx, id)
		if !got.EventAt.Equal(base) || got.EventAt.Location() != time.UTC {
			t.Fatalf("event at = %v", got.EventAt)
		}
	})

	t.Run("insert rejects invalid records", func(t *testing.T) {
		st := open(t)
		bad := sample(1, base)
		bad.Priority = "critical"
		if _, err := st.Insert(t.Context(), bad); err == nil {
			t.Fatal("expected error for unknown priority")
		}
		bad = sample(0, base)
		if _, err := st.Insert(t.Context(), bad); err == nil {
			t.Fatal("expected error for missing chat")
		}
	})

	t.Run("not found", func(t *testing.T) {
		st := open(t)
		ctx := t.Context()
		if _, err := st.Get(ctx, 4242); !errors.Is(err, reminder.ErrNotFound) {
			t.Fatalf("Get err = %v", err)
		}
		if err := st.SetStatus(ctx, 4242, reminder.StatusDone); !errors.Is(err, reminder.ErrNotFound) {
			t.Fatalf("SetStatus err = %v", err)
		}
		if err := st.SetEventInstant(ctx, 4242, base); !errors.Is(err, reminder.ErrNotFound) {
			t.Fatalf("SetEventInstant err = %v", err)
		}
	})

	t.Run("set status and instant", func(t *testing.T) {
		st := open(t)
		ctx := t.Context()
		id, err := st.Insert(ctx, sample(1, base))
		if err != nil {
			t.Fatal(err)
		}
		next := base.Add(7 * 24 * time.Hour)
		if err := st.SetEventInstant(ctx, id, next); err != nil {
			t.Fatal(err)
		}
		if err := st.SetStatus(ctx, id, reminder.StatusCancelled); err != nil {
			t.Fatal(err)
		}
		if err := st.SetStatus(ctx, id, "archived"); err == nil {
			t.Fatal("expected error for unknown status")
		}
		got, _ := st.Get(ctx, id)
		if !got.EventAt.Equal(next) || got.Status != reminder.StatusCancelled {
			t.Fatalf("got %+v", got)
		}
	})

	t.Run("list upcoming", func(t *testing.T) {
		st := open(t)
		ctx := t.Context()
		insert := func(r reminder.Reminder) int64 {
			t.Helper()
			id, err := st.Insert(ctx, r)
			if err != nil {
				t.Fatal(err)
			}
			return id
		}
		third := insert(sample(1, base.Add(3*time.Hour)))
		first := insert(sample(1, base.Add(1*time.Hour)))
		second := insert(sample(1, base.Add(2*time.Hour)))
		insert(sample(2, base.Add(30*time.Minute)))         // other chat
		insert(sample(1, base.Add(-time.Hour)))             // past
		done := insert(sample(1, base.Add(90*time.Minute))) // finalized below
		if err := st.SetStatus(ctx, done, reminder.StatusDone); err != nil {
			t.Fatal(err)
		}
		atFrom := insert(sample(1, base)) // EventAt == from is included

		got, err := st.ListUpcoming(ctx, 1, base, 10)
		if err != nil {
			t.Fatal(err)
		}
		ids := make([]int64, len(got))
		for i, r := range got {
			ids[i] = r.ID
		}
		if diff := cmp.Diff([]int64{atFrom, first, second, third}, ids); diff != "" {
			t.Fatalf("order (-want +got):\n%s", diff)
		}

		limited, err := st.ListUpcoming(ctx, 1, base, 2)
		if err != nil {
			t.Fatal(err)
		}
		if len(limited) != 2 || limited[1].ID != first {
			t.Fatalf("limited = %+v", limited)
		}
	})

	t.Run("list pending future", func(t *testing.T) {
		st := open(t)
		ctx := t.Context()
		a, _ := st.Insert(ctx, sample(1, base.Add(time.Hour)))
		b, _ := st.Insert(ctx, sample(2, base.Add(24*time.Hour)))
		_, _ = st.Insert(ctx, sample(3, base.Add(-time.Second)))
		c, _ := st.Insert(ctx, sample(4, base.Add(time.Hour)))
		if err := st.SetStatus(ctx, c, reminder.StatusCancelled); err != nil {
			t.Fatal(err)
		}
		got, err := st.ListPendingFuture(ctx, base)
		if err != nil {
			t.Fatal(err)
		}
		seen := map[int64]bool{}
		for _, r := range got {
			seen[r.ID] = true
		}
		if len(got) != 2 || !seen[a] || !seen[b] {
			t.Fatalf("pending future = %+v", got)
		}
	})
}

func TestMemoryStoreContract(t *testing.T) {
	t.Parallel()
	runContract(t, func(t *testing.T) Store {
		st, err := Open(Config{Driver: "memory"}, logx.Nop())
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { _ = st.Close() })
		return st
	})
}

func TestFileStoreContract(t *testing.T) {
	t.Parallel()
	runContract(t, func(t *testing.T) Store {
		st, err := Open(Config{Driver: "file", Path: t.TempDir() + "/remindbot.db"}, logx.Nop())
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { _ = st.Close() })
		return st
	})
}

func TestSQLiteStoreContract(t *testing.T) {
	t.Parallel()
	runContract(t, func(t *testing.T) Store {
		st, err := Open(Config{Driver: "sqlite", Path: t.TempDir() + "/remindbot.sqlite"}, logx.Nop())
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { _ = st.Close() })
		return st
	})
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "mongo"}, logx.Nop()); err == nil {
		t.Fatal("expected error")
	}
	if _, err := Open(Config{Driver: "file"}, logx.Nop()); err == nil {
		t.Fatal("expected error for missing path")
	}
	if _, err := Open(Config{Driver: "postgres"}, logx.Nop()); err == nil {
		t.Fatal("expected error for missing dsn")
	}
}
