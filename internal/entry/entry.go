package entry

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// KeySeparator joins source and content into an identity key. Unit separator
// so that no printable content can collide across the boundary.
const KeySeparator = "\x1f"

// Entry is one captured text snippet with its provenance and capture time.
// Identity for deduplication is (Source, Content) only; CapturedAt is
// excluded from equality. Entries are immutable once created.
type Entry struct {
	Source     string    `json:"source"`
	Content    string    `json:"content"`
	CapturedAt time.Time `json:"capturedAt"`
}

// New creates an entry with the given capture time.
func New(source, content string, capturedAt time.Time) Entry {
	return Entry{Source: source, Content: content, CapturedAt: capturedAt}
}

// Key returns the deduplication identity of the entry.
func (e Entry) Key() string {
	return e.Source + KeySeparator + e.Content
}

// Equal reports whether two entries are the same for deduplication
// purposes. Capture time is deliberately ignored.
func (e Entry) Equal(other Entry) bool {
	return e.Source == other.Source && e.Content == other.Content
}

// record is the wire form of an entry: one JSON object per log line.
// capturedAt is written as RFC 3339 but tolerated as epoch seconds on read
// (older captures wrote numeric timestamps).
type record struct {
	Source     string          `json:"source"`
	Content    string          `json:"content"`
	CapturedAt json.RawMessage `json:"capturedAt"`
}

// MarshalRecord serializes the entry to a single log line (no trailing
// newline).
func MarshalRecord(e Entry) ([]byte, error) {
	return json.Marshal(struct {
		Source     string `json:"source"`
		Content    string `json:"content"`
		CapturedAt string `json:"capturedAt"`
	}{
		Source:     e.Source,
		Content:    e.Content,
		CapturedAt: e.CapturedAt.UTC().Format(time.RFC3339),
	})
}

// UnmarshalRecord parses a single log line into an entry.
func UnmarshalRecord(line []byte) (Entry, error) {
	var r record
	if err := json.Unmarshal(line, &r); err != nil {
		return Entry{}, err
	}
	if r.Source == "" && r.Content == "" {
		return Entry{}, fmt.Errorf("record has neither source nor content")
	}

	ts, err := parseTimestamp(r.CapturedAt)
	if err != nil {
		return Entry{}, err
	}

	return Entry{Source: r.Source, Content: r.Content, CapturedAt: ts}, nil
}

// parseTimestamp accepts RFC 3339 strings or epoch seconds (integer or
// fractional). A missing timestamp yields the zero time rather than an error.
func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid capturedAt %q: %w", s, err)
		}
		return t, nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		sec := int64(f)
		nsec := int64((f - float64(sec)) * float64(time.Second))
		return time.Unix(sec, nsec).UTC(), nil
	}

	return time.Time{}, fmt.Errorf("invalid capturedAt %s", strconv.Quote(string(raw)))
}
