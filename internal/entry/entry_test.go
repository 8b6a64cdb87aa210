package entry

import (
	"strings"
	"testing"
	"time"
)

func TestKeyIgnoresTime(t *testing.T) {
	t1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(48 * time.Hour)

	a := New("editor", "hello world", t1)
	b := New("editor", "hello world", t2)

	if a.Key() != b.Key() {
		t.Errorf("keys differ for same (source, content): %q vs %q", a.Key(), b.Key())
	}
	if !a.Equal(b) {
		t.Error("entries with same (source, content) should be equal regardless of time")
	}
}

func TestKeySeparatesSourceAndContent(t *testing.T) {
	a := New("ab", "c", time.Now())
	b := New("a", "bc", time.Now())

	if a.Key() == b.Key() {
		t.Error("keys collided across the source/content boundary")
	}
}

func TestRecordRoundTrip(t *testing.T) {
	e := New("browser", "こんにちは world", time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC))

	line, err := MarshalRecord(e)
	if err != nil {
		t.Fatalf("MarshalRecord failed: %v", err)
	}
	if strings.Contains(string(line), "\n") {
		t.Error("record must not contain a newline")
	}

	got, err := UnmarshalRecord(line)
	if err != nil {
		t.Fatalf("UnmarshalRecord failed: %v", err)
	}
	if got.Source != e.Source || got.Content != e.Content {
		t.Errorf("round trip changed identity: got (%q, %q)", got.Source, got.Content)
	}
	if !got.CapturedAt.Equal(e.CapturedAt) {
		t.Errorf("round trip changed time: got %v, want %v", got.CapturedAt, e.CapturedAt)
	}
}

func TestUnmarshalRecordEpochSeconds(t *testing.T) {
	tests := []struct {
		name string
		line string
		want time.Time
	}{
		{
			name: "integer epoch",
			line: `{"source":"a","content":"hi","capturedAt":1767225600}`,
			want: time.Unix(1767225600, 0).UTC(),
		},
		{
			name: "fractional epoch",
			line: `{"source":"a","content":"hi","capturedAt":1767225600.5}`,
			want: time.Unix(1767225600, int64(500*time.Millisecond)).UTC(),
		},
		{
			name: "missing timestamp",
			line: `{"source":"a","content":"hi"}`,
			want: time.Time{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := UnmarshalRecord([]byte(tt.line))
			if err != nil {
				t.Fatalf("UnmarshalRecord failed: %v", err)
			}
			if !e.CapturedAt.Equal(tt.want) {
				t.Errorf("CapturedAt = %v, want %v", e.CapturedAt, tt.want)
			}
		})
	}
}

func TestUnmarshalRecordMalformed(t *testing.T) {
	lines := []string{
		"not json at all",
		`{"capturedAt":"2026-01-01T00:00:00Z"}`,
		`{"source":"a","content":"hi","capturedAt":"yesterday"}`,
		`{"source":"a","content":"hi","capturedAt":[1,2]}`,
	}

	for _, line := range lines {
		if _, err := UnmarshalRecord([]byte(line)); err == nil {
			t.Errorf("expected error for %q, got nil", line)
		}
	}
}
