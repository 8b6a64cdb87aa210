package purify

import (
	"fmt"
	"testing"
	"time"

	"github.com/hpungsan/winnow/internal/entry"
)

func TestLightweightExactDedup(t *testing.T) {
	l := newLightweight(quietLogger())

	entries := []entry.Entry{
		entry.New("editor", "first unique", time.Now()),
		entry.New("editor", "second unique", time.Now()),
		entry.New("editor", "first unique", time.Now()),
		entry.New("browser", "first unique", time.Now()), // other source, kept
	}

	retained, removed := l.Purify(entries)
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if len(retained) != 3 {
		t.Fatalf("retained = %d, want 3", len(retained))
	}
	if retained[0].Content != "first unique" || retained[1].Content != "second unique" {
		t.Error("surviving entries reordered")
	}
	if retained[2].Source != "browser" {
		t.Error("cross-source entry should survive")
	}
}

func TestLightweightSeedsFromOldEntries(t *testing.T) {
	l := newLightweight(quietLogger())
	l.recentCap = 3

	// Five entries, cap three: the first two are old, pass through untouched,
	// and seed the seen set. The recent duplicate of an old entry is caught.
	entries := []entry.Entry{
		entry.New("editor", "old entry one", time.Now()),
		entry.New("editor", "old entry two", time.Now()),
		entry.New("editor", "recent unique", time.Now()),
		entry.New("editor", "old entry one", time.Now()),
		entry.New("editor", "another recent", time.Now()),
	}

	retained, removed := l.Purify(entries)
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if len(retained) != 4 {
		t.Fatalf("retained = %d, want 4", len(retained))
	}
}

func TestLightweightOldDuplicatesUntouched(t *testing.T) {
	l := newLightweight(quietLogger())
	l.recentCap = 2

	// Duplicates entirely inside the old region are never touched.
	entries := []entry.Entry{
		entry.New("editor", "repeated old", time.Now()),
		entry.New("editor", "repeated old", time.Now()),
		entry.New("editor", "recent one", time.Now()),
		entry.New("editor", "recent two", time.Now()),
	}

	retained, removed := l.Purify(entries)
	if removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}
	if len(retained) != 4 {
		t.Errorf("retained = %d, want 4", len(retained))
	}
}

func TestLightweightBudgetKeepsRemainder(t *testing.T) {
	l := newLightweight(quietLogger())
	l.budget = -time.Second // already expired

	entries := make([]entry.Entry, 0, 10)
	for i := 0; i < 10; i++ {
		entries = append(entries, entry.New("editor", fmt.Sprintf("entry %d", i), time.Now()))
	}
	entries = append(entries, entry.New("editor", "entry 0", time.Now()))

	retained, removed := l.Purify(entries)
	if removed != 0 {
		t.Errorf("removed = %d, expired budget should keep everything", removed)
	}
	if len(retained) != len(entries) {
		t.Errorf("retained = %d, want all %d", len(retained), len(entries))
	}
}
