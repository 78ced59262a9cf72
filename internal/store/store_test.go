package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"whence/internal/logging"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), ".whence", "journal.db"), logging.Nop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func entry(id, file string, start int, created time.Time) Entry {
	return Entry{
		ID:          id,
		Fingerprint: "fp-" + id,
		FilePath:    file,
		StartLine:   start,
		EndLine:     start + 2,
		Backend:     "anthropic",
		Intent:      "compute something",
		Analysis:    "pure function",
		Risk:        "low",
		Verdict:     "safe",
		CreatedAt:   created,
	}
}

func TestRecordAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"r1", "r2", "r3"} {
		if err := s.Record(ctx, entry(id, "calc.py", 5, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	entries, err := s.Recent(ctx, "", 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].ID != "r3" || entries[2].ID != "r1" {
		t.Errorf("wrong order: %s .. %s, want newest first", entries[0].ID, entries[2].ID)
	}
	if entries[0].Verdict != "safe" || entries[0].Fingerprint != "fp-r3" {
		t.Errorf("fields mangled: %+v", entries[0])
	}
}

func TestRecentFileFilter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_ = s.Record(ctx, entry("a", "calc.py", 5, now))
	_ = s.Record(ctx, entry("b", "main.py", 1, now.Add(time.Minute)))

	entries, err := s.Recent(ctx, "calc.py", 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "a" {
		t.Errorf("filter failed: %+v", entries)
	}
}

func TestRecentLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 30; i++ {
		_ = s.Record(ctx, entry(string(rune('a'+i)), "f.go", i+1, now.Add(time.Duration(i)*time.Second)))
	}

	entries, err := s.Recent(ctx, "", 5)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 5 {
		t.Errorf("limit ignored: %d entries", len(entries))
	}
}

func TestOpenCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", "journal.db")
	s, err := Open(path, logging.Nop())
	if err != nil {
		t.Fatalf("Open must create parents: %v", err)
	}
	_ = s.Close()
}
