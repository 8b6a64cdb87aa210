package purify

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hpungsan/winnow/internal/entry"
)

// progressive is sectioned purification that persists a checkpoint every few
// windows so a long run interrupted midway resumes instead of restarting.
type progressive struct {
	sectioned
	store *CheckpointStore
}

func (p *progressive) Name() string { return KindProgressive.String() }

func (p *progressive) Purify(entries []entry.Entry) ([]entry.Entry, int) {
	if len(entries) == 0 {
		p.store.Delete()
		return nil, 0
	}

	count, digest := fingerprint(entries)
	sections := (len(entries) + p.sectionSize - 1) / p.sectionSize
	startSection := 0
	retained := make([]entry.Entry, 0, len(entries))

	if cp := p.store.Load(); cp != nil {
		switch {
		case cp.LogCount != count || cp.LogDigest != digest:
			p.log.Warn("checkpoint refers to a different log snapshot, restarting")
			p.store.Delete()
		case cp.NextSection > sections:
			p.log.Warn("checkpoint section index out of range, restarting")
			p.store.Delete()
		default:
			startSection = cp.NextSection
			for _, key := range cp.SeenContent {
				p.cache.MarkSeen(key)
			}
			retained = append(retained, cp.Accumulated...)
			p.seedReps(cp.Accumulated)
			p.log.WithField("section", startSection).Info("resuming progressive purification")
		}
	}

	for w := startSection; w < sections; w++ {
		start := w * p.sectionSize
		end := start + p.sectionSize
		if end > len(entries) {
			end = len(entries)
		}
		retained = p.window(entries[start:end], retained)

		if (w+1)%checkpointEverySection == 0 && w+1 < sections {
			cp := &Checkpoint{
				NextSection: w + 1,
				SeenContent: p.cache.SeenKeys(),
				Accumulated: retained,
				LogCount:    count,
				LogDigest:   digest,
			}
			if err := p.store.Save(cp); err != nil {
				p.log.WithError(err).Warn("could not save checkpoint")
			}
		}

		if end < len(entries) && p.pause > 0 {
			time.Sleep(p.pause)
		}
	}

	p.store.Delete()

	p.log.WithFields(logrus.Fields{
		"sections": sections,
		"retained": len(retained),
	}).Debug("progressive purification complete")

	return retained, len(entries) - len(retained)
}
