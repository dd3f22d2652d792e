package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	logx "gotify2telegram/pkg/logx"
)

func openTestStore(t *testing.T, driver string) Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	st, err := Open(Config{Driver: driver, Path: path, BusyTimeout: time.Second}, logx.Nop())
	if err != nil {
		t.Fatalf("Open(%s): %v", driver, err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestDeadLetterRoundTrip(t *testing.T) {
	for _, driver := range []string{"file", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			st := openTestStore(t, driver)
			ctx := context.Background()
			base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

			for i := 0; i < 3; i++ {
				err := st.AppendDeadLetter(ctx, DeadLetter{
					At:         base.Add(time.Duration(i) * time.Minute),
					ReceivedAt: base,
					Method:     "text",
					Title:      fmt.Sprintf("msg-%d", i),
					Content:    "body",
					Reason:     "telegram sendMessage: Bad Request (code=400)",
					Replay:     i == 2,
				})
				if err != nil {
					t.Fatalf("AppendDeadLetter: %v", err)
				}
			}

			got, err := st.RecentDeadLetters(ctx, 2)
			if err != nil {
				t.Fatalf("RecentDeadLetters: %v", err)
			}
			if len(got) != 2 {
				t.Fatalf("len = %d, want 2", len(got))
			}
			if got[0].Title != "msg-2" || got[1].Title != "msg-1" {
				t.Fatalf("order = %s, %s; want newest first", got[0].Title, got[1].Title)
			}
			if !got[0].Replay || got[1].Replay {
				t.Fatalf("replay flags = %v, %v", got[0].Replay, got[1].Replay)
			}
			if !got[0].ReceivedAt.Equal(base) || got[0].Content != "body" {
				t.Fatalf("record = %+v", got[0])
			}
		})
	}
}

func TestOpenDisabled(t *testing.T) {
	for _, driver := range []string{"", "none"} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil || st != nil {
			t.Fatalf("Open(%q) = %v, %v; want nil, nil", driver, st, err)
		}
	}
	if _, err := Open(Config{Driver: "redis", Path: "x"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestFileStoreClosed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}
	if err := st.AppendDeadLetter(context.Background(), DeadLetter{Method: "text"}); err != ErrClosed {
		t.Fatalf("err = %v, want ErrClosed", err)
	}
}

func TestSQLitePrunesOldRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	st, err := Open(Config{Driver: "sqlite", Path: path, MaxEntries: 5}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	ctx := context.Background()
	for i := 0; i < 100; i++ {
		if err := st.AppendDeadLetter(ctx, DeadLetter{Method: "text", Title: fmt.Sprint(i)}); err != nil {
			t.Fatal(err)
		}
	}
	got, err := st.RecentDeadLetters(ctx, 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 5 || got[0].Title != "99" {
		t.Fatalf("after prune: %d rows, newest %q", len(got), got[0].Title)
	}
}
