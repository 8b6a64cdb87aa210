package purify

import (
	"strings"

	"github.com/hpungsan/winnow/internal/entry"
)

const (
	// collapseRatio is the minimum candidate/existing length ratio for a
	// literal prefix to be collapsed into its longer form.
	collapseRatio = 0.7

	// keystrokeRatio is the minimum matching-prefix/candidate ratio for the
	// "one keystroke away" rule.
	keystrokeRatio = 0.6
)

// CollapsePrefixes drops entries that are growing snapshots of a longer
// entry from the same source, catching in-progress captures that MinHash
// alone does not cleanly rank. Entries from different sources are never
// compared; empty-content entries are always discarded. Survivors keep their
// original relative order.
func CollapsePrefixes(entries []entry.Entry) ([]entry.Entry, int) {
	bySource := make(map[string][]int)
	for i, e := range entries {
		bySource[e.Source] = append(bySource[e.Source], i)
	}

	drop := make([]bool, len(entries))
	removed := 0

	for _, idxs := range bySource {
		ordered := byDescendingLength(entries, idxs)

		var kept []int
		for _, i := range ordered {
			content := entries[i].Content
			if content == "" {
				drop[i] = true
				removed++
				continue
			}

			collapsed := false
			for _, k := range kept {
				if collapsesInto(content, entries[k].Content) {
					collapsed = true
					break
				}
			}
			if collapsed {
				drop[i] = true
				removed++
				continue
			}
			kept = append(kept, i)
		}
	}

	retained := make([]entry.Entry, 0, len(entries)-removed)
	for i, e := range entries {
		if !drop[i] {
			retained = append(retained, e)
		}
	}
	return retained, removed
}

// byDescendingLength orders the given indices by descending content rune
// length, stable on original position for equal lengths.
func byDescendingLength(entries []entry.Entry, idxs []int) []int {
	ordered := make([]int, len(idxs))
	copy(ordered, idxs)

	// insertion sort; source partitions are small
	for i := 1; i < len(ordered); i++ {
		j := i
		for j > 0 && runeLen(entries[ordered[j]].Content) > runeLen(entries[ordered[j-1]].Content) {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
			j--
		}
	}
	return ordered
}

func runeLen(s string) int {
	return len([]rune(s))
}

// collapsesInto reports whether candidate is a growing snapshot of the
// longer-or-equal existing entry. Two rules:
//
//  1. existing literally starts with candidate and the length ratio is at
//     least 0.7;
//  2. all but the last character of the shorter text matches exactly and the
//     matching prefix covers at least 0.6 of the candidate with two or more
//     matching characters (an in-progress word missing or substituting its
//     final character).
func collapsesInto(candidate, existing string) bool {
	cr := []rune(candidate)
	er := []rune(existing)

	if strings.HasPrefix(existing, candidate) {
		if float64(len(cr))/float64(len(er)) >= collapseRatio {
			return true
		}
	}

	shorter := len(cr)
	if len(er) < shorter {
		shorter = len(er)
	}

	match := 0
	for match < shorter && cr[match] == er[match] {
		match++
	}

	if match >= shorter-1 && match >= 2 &&
		float64(match)/float64(len(cr)) >= keystrokeRatio {
		return true
	}

	return false
}
