package purify

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hpungsan/winnow/internal/entry"
)

// lightweight is the cheap strategy for small corpora: exact-match
// deduplication only, capped to the most recent entries, under a hard
// wall-clock budget. It never runs the similarity stage.
type lightweight struct {
	recentCap int
	budget    time.Duration
	log       *logrus.Logger
}

func newLightweight(log *logrus.Logger) *lightweight {
	return &lightweight{
		recentCap: lightweightRecentCap,
		budget:    lightweightBudget,
		log:       log,
	}
}

func (l *lightweight) Name() string { return KindLightweight.String() }

// Purify removes exact (source, content) duplicates among the most recent
// entries. Entries older than the cap pass through untouched but seed the
// seen set, so a fresh duplicate of an old entry is still caught. Exceeding
// the budget is an expected early termination: remaining entries are kept
// as-is and partial progress survives.
func (l *lightweight) Purify(entries []entry.Entry) ([]entry.Entry, int) {
	deadline := time.Now().Add(l.budget)

	cut := 0
	if len(entries) > l.recentCap {
		cut = len(entries) - l.recentCap
	}

	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries[:cut] {
		seen[e.Key()] = struct{}{}
	}

	retained := make([]entry.Entry, 0, len(entries))
	retained = append(retained, entries[:cut]...)

	removed := 0
	for i, e := range entries[cut:] {
		if time.Now().After(deadline) {
			l.log.WithFields(logrus.Fields{
				"processed": i,
				"remaining": len(entries) - cut - i,
			}).Info("lightweight budget exceeded, keeping partial result")
			retained = append(retained, entries[cut+i:]...)
			break
		}

		key := e.Key()
		if _, dup := seen[key]; dup {
			removed++
			continue
		}
		seen[key] = struct{}{}
		retained = append(retained, e)
	}

	return retained, removed
}
