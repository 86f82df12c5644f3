package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestOpenEmptyPathDisabled(t *testing.T) {
	st, err := Open("")
	if err != nil {
		t.Fatalf("Open(\"\") error: %v", err)
	}
	if st != nil {
		t.Fatalf("expected nil store for empty path")
	}
	// Nil store methods must be safe.
	if err := st.Append(context.Background(), Entry{Outcome: "success"}); err != nil {
		t.Fatalf("nil Append: %v", err)
	}
	if got, err := st.Recent(context.Background(), 10); err != nil || got != nil {
		t.Fatalf("nil Recent: %v %v", got, err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("nil Close: %v", err)
	}
}

func TestAppendAndRecent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		e := Entry{
			At:      base.Add(time.Duration(i) * time.Minute),
			Source:  "slack",
			Signals: i + 1,
			Outcome: "success",
			Message: "unread messages",
		}
		if err := st.Append(ctx, e); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	got, err := st.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent returned %d entries, want 2", len(got))
	}
	// Newest first.
	if got[0].Signals != 3 || got[1].Signals != 2 {
		t.Fatalf("unexpected order: %+v", got)
	}
	if !got[0].At.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("timestamp not preserved: %v", got[0].At)
	}
}

func TestReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := st.Append(context.Background(), Entry{Source: "mail", Signals: 1, Outcome: "failure", Message: "x"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	st.Close()

	st2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st2.Close()
	got, err := st2.Recent(context.Background(), 5)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 || got[0].Outcome != "failure" {
		t.Fatalf("entry not persisted: %+v", got)
	}
}
