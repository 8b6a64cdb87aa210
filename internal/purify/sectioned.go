package purify

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hpungsan/winnow/internal/entry"
	"github.com/hpungsan/winnow/internal/minhash"
)

// sectioned processes the entry list in contiguous windows sized from corpus
// size and available memory. The processed-identity set lives in the
// signature cache and is carried across the whole run, so exact duplicates
// are caught no matter how far apart they sit. The MinHash similarity search
// compares each entry against a capped list of recent same-source
// representatives that also carries across window boundaries; the window
// only bounds how much work happens between pauses. A brief pause between
// windows keeps the pass from monopolizing the CPU.
type sectioned struct {
	sectionSize int
	threshold   float64
	pause       time.Duration
	cache       *minhash.Cache
	reps        map[string][]entry.Entry
	repCap      int
	log         *logrus.Logger
}

func (s *sectioned) Name() string { return KindSectioned.String() }

func (s *sectioned) Purify(entries []entry.Entry) ([]entry.Entry, int) {
	retained := make([]entry.Entry, 0, len(entries))

	for start := 0; start < len(entries); start += s.sectionSize {
		end := start + s.sectionSize
		if end > len(entries) {
			end = len(entries)
		}
		retained = s.window(entries[start:end], retained)
		if end < len(entries) && s.pause > 0 {
			time.Sleep(s.pause)
		}
	}

	return retained, len(entries) - len(retained)
}

// window deduplicates one window into retained. Exact duplicates are dropped
// via the cache's seen set (which also answers for identities folded out of
// the signature cache); near-duplicates are dropped when similar to a recent
// retained entry from the same source. Sources are never compared against
// each other.
func (s *sectioned) window(window []entry.Entry, retained []entry.Entry) []entry.Entry {
	for _, e := range window {
		key := e.Key()
		if s.cache.Seen(key) {
			s.cache.Tick()
			continue
		}

		similar := false
		reps := s.reps[e.Source]
		for i := len(reps) - 1; i >= 0; i-- {
			prev := reps[i]
			if s.cache.IsSimilar(key, e.Content, prev.Key(), prev.Content, s.threshold) {
				similar = true
				break
			}
		}
		s.cache.Tick()
		if similar {
			continue
		}

		s.cache.MarkSeen(key)
		s.remember(e)
		retained = append(retained, e)
	}

	return retained
}

// remember adds a retained entry to its source's representative list,
// keeping only the most recent repCap entries so per-entry comparison work
// stays bounded.
func (s *sectioned) remember(e entry.Entry) {
	reps := append(s.reps[e.Source], e)
	if len(reps) > s.repCap {
		reps = reps[len(reps)-s.repCap:]
	}
	s.reps[e.Source] = reps
}

// seedReps rebuilds the representative lists from already-retained entries,
// used when resuming from a checkpoint.
func (s *sectioned) seedReps(entries []entry.Entry) {
	for _, e := range entries {
		s.remember(e)
	}
}
