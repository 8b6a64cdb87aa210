package purify

import (
	"testing"
	"time"

	"github.com/hpungsan/winnow/internal/entry"
)

func ents(source string, contents ...string) []entry.Entry {
	out := make([]entry.Entry, 0, len(contents))
	for i, c := range contents {
		out = append(out, entry.New(source, c, time.Unix(int64(1700000000+i), 0)))
	}
	return out
}

func contents(entries []entry.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Content)
	}
	return out
}

func TestCollapsePrefixes(t *testing.T) {
	t.Run("literal prefix above ratio", func(t *testing.T) {
		retained, removed := CollapsePrefixes(ents("editor", "おはよ", "おはよう"))
		if removed != 1 {
			t.Fatalf("removed = %d, want 1", removed)
		}
		if len(retained) != 1 || retained[0].Content != "おはよう" {
			t.Errorf("retained = %v, want the longer form", contents(retained))
		}
	})

	t.Run("one keystroke away", func(t *testing.T) {
		// "helo" diverges from "hello" only at its last character.
		retained, removed := CollapsePrefixes(ents("editor", "helo", "hello"))
		if removed != 1 {
			t.Fatalf("removed = %d, want 1", removed)
		}
		if retained[0].Content != "hello" {
			t.Errorf("retained %q, want the longer form", retained[0].Content)
		}
	})

	t.Run("early divergence kept", func(t *testing.T) {
		retained, removed := CollapsePrefixes(ents("editor", "abcxyz", "abcdefghij"))
		if removed != 0 {
			t.Fatalf("removed = %d, want 0", removed)
		}
		if len(retained) != 2 {
			t.Errorf("retained %d entries, want 2", len(retained))
		}
	})

	t.Run("unrelated texts kept", func(t *testing.T) {
		_, removed := CollapsePrefixes(ents("editor", "apple pie recipe", "banana split order"))
		if removed != 0 {
			t.Errorf("removed = %d, want 0", removed)
		}
	})

	t.Run("empty content always dropped", func(t *testing.T) {
		retained, removed := CollapsePrefixes(ents("editor", "", "something real"))
		if removed != 1 {
			t.Fatalf("removed = %d, want 1", removed)
		}
		if len(retained) != 1 || retained[0].Content != "something real" {
			t.Errorf("retained = %v", contents(retained))
		}
	})

	t.Run("sources never compared", func(t *testing.T) {
		entries := append(ents("editor", "おはよ"), ents("browser", "おはよう")...)
		_, removed := CollapsePrefixes(entries)
		if removed != 0 {
			t.Errorf("removed = %d across sources, want 0", removed)
		}
	})

	t.Run("survivors keep original order", func(t *testing.T) {
		entries := ents("editor",
			"zzz final long entry",
			"helo",
			"hello",
			"aaa first long entry",
		)
		retained, removed := CollapsePrefixes(entries)
		if removed != 1 {
			t.Fatalf("removed = %d, want 1", removed)
		}
		want := []string{"zzz final long entry", "hello", "aaa first long entry"}
		got := contents(retained)
		if len(got) != len(want) {
			t.Fatalf("retained = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("retained[%d] = %q, want %q", i, got[i], want[i])
			}
		}
	})

	t.Run("chain of growing snapshots", func(t *testing.T) {
		retained, removed := CollapsePrefixes(ents("editor",
			"incremental",
			"incrementall",
			"incrementally",
		))
		if removed != 2 {
			t.Fatalf("removed = %d, want 2", removed)
		}
		if retained[0].Content != "incrementally" {
			t.Errorf("retained %q, want the longest form", retained[0].Content)
		}
	})
}
