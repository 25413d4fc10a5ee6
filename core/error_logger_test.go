package core

import (
	"fmt"
	"testing"
)

func TestErrorRing_OverwritesOldestAndReturnsNewestFirst(t *testing.T) {
	ring := NewErrorRing(3)
	for i := 1; i <= 5; i++ {
		ring.Record(LevelError, "test", fmt.Sprintf("failure %d", i), "", map[string]any{"i": i})
	}

	entries := ring.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Message != "failure 5" || entries[2].Message != "failure 3" {
		t.Fatalf("unexpected order: %q ... %q", entries[0].Message, entries[2].Message)
	}
	if entries[0].ID != 5 {
		t.Fatalf("expected id 5 for newest entry, got %d", entries[0].ID)
	}
	if entries[0].Context != `{"i":5}` {
		t.Fatalf("unexpected context %q", entries[0].Context)
	}
	if entries[0].Stack == "" {
		t.Fatalf("expected stack trace for ERROR entries")
	}

	ring.Clear()
	if got := len(ring.Entries()); got != 0 {
		t.Fatalf("expected empty ring after clear, got %d", got)
	}

	ring.Record(LevelWarn, "test", "again", "", nil)
	if got := ring.Entries(); len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("expected ids to restart after clear, got %+v", got)
	}
}

func TestErrorRing_WarnHasNoStack(t *testing.T) {
	ring := NewErrorRing(10)
	ring.Record(LevelWarn, "icons", "could not delete icon", "permission denied", nil)

	entries := ring.Entries()
	if len(entries) != 1 || entries[0].Stack != "" || entries[0].Level != LevelWarn {
		t.Fatalf("unexpected warn entry: %+v", entries)
	}
}
