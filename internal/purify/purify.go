package purify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hpungsan/winnow/internal/config"
	"github.com/hpungsan/winnow/internal/entry"
	"github.com/hpungsan/winnow/internal/errors"
	"github.com/hpungsan/winnow/internal/journal"
	"github.com/hpungsan/winnow/internal/minhash"
)

// Result summarizes one purification cycle.
type Result struct {
	Strategy string `json:"strategy"`
	Removed  int    `json:"removed"`
	Retained int    `json:"retained"`
	Rewrote  bool   `json:"rewrote"`
}

// Purifier owns the purification schedule: it loads the log, picks a
// strategy, runs the similarity and prefix-collapse passes, and funnels the
// retained set through the crash-safe rewrite protocol when anything was
// removed. The last-purify time lives here and is only mutated by Run, which
// the caller is expected to serialize (purification runs never overlap).
type Purifier struct {
	journal *journal.Journal
	baseDir string
	cfg     *config.Config
	log     *logrus.Logger

	mu         sync.Mutex
	lastPurify time.Time
}

// New creates a purifier over the given journal.
func New(j *journal.Journal, baseDir string, cfg *config.Config, log *logrus.Logger) *Purifier {
	if log == nil {
		log = logrus.New()
	}
	return &Purifier{
		journal: j,
		baseDir: baseDir,
		cfg:     cfg,
		log:     log,
	}
}

// LastPurify returns the wall-clock time of the last successful rewrite.
func (p *Purifier) LastPurify() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastPurify
}

// Run executes one purification cycle. With force set, rate limits are
// ignored and the strategy is chosen from corpus size alone.
func (p *Purifier) Run(ctx context.Context, force bool) (*Result, error) {
	if err := p.journal.Flush(); err != nil {
		return nil, err
	}

	entries, err := p.journal.Load()
	if err != nil {
		return nil, err
	}

	sinceLast := time.Since(p.LastPurify())
	if force {
		sinceLast = time.Duration(1<<62 - 1)
	}
	free := FreeMemory()

	kind := Plan(len(entries), sinceLast, free)
	if kind == KindSkip || len(entries) == 0 {
		return &Result{Strategy: KindSkip.String(), Retained: len(entries)}, nil
	}

	strategy := p.newStrategy(kind, len(entries), free)

	p.log.WithFields(logrus.Fields{
		"strategy": strategy.Name(),
		"entries":  len(entries),
	}).Info("purification started")

	retained, removed := strategy.Purify(entries)

	// The collapse pass is skipped by lightweight: it is exact-match only
	// under a hard budget.
	if kind != KindLightweight {
		collapsed, dropped := CollapsePrefixes(retained)
		retained = collapsed
		removed += dropped
	}

	result := &Result{
		Strategy: strategy.Name(),
		Removed:  removed,
		Retained: len(retained),
	}

	if removed == 0 {
		p.log.Debug("no duplicates found, log untouched")
		return result, nil
	}

	if len(retained) == 0 {
		p.log.Warn("purification removed every entry, refusing empty rewrite")
		return result, nil
	}

	if err := p.commit(entries, retained); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.lastPurify = time.Now()
	p.mu.Unlock()
	result.Rewrote = true

	p.log.WithFields(logrus.Fields{
		"strategy": strategy.Name(),
		"removed":  removed,
		"retained": len(retained),
	}).Info("purification complete")

	return result, nil
}

// commit swaps the retained set into the log while preserving entries
// flushed after the purification snapshot was loaded. Strategy work can take
// seconds, so under the mutation lock the log is reloaded and verified to
// still start with the snapshot; anything appended since survives the
// rewrite untouched at the end of the log. A log that no longer starts with
// the snapshot aborts the rewrite rather than destroying records derived
// from a different version.
func (p *Purifier) commit(snapshot, retained []entry.Entry) error {
	count, digest := fingerprint(snapshot)

	return p.journal.Mutate(func(logPath string) error {
		current, err := p.journal.Load()
		if err != nil {
			return err
		}
		if len(current) < count {
			return errors.NewRewriteFailed(fmt.Errorf("log shrank during purification"))
		}
		if c, d := fingerprint(current[:count]); c != count || d != digest {
			return errors.NewRewriteFailed(fmt.Errorf("log changed shape during purification"))
		}

		final := retained
		if tail := current[count:]; len(tail) > 0 {
			p.log.WithField("preserved", len(tail)).Debug("keeping entries flushed during purification")
			final = make([]entry.Entry, 0, len(retained)+len(tail))
			final = append(final, retained...)
			final = append(final, tail...)
		}

		return Rewrite(logPath, final, p.log)
	})
}

// Maintain runs purification cycles on an interval until ctx ends. Failures
// are logged and the loop continues; the capture path is never blocked by a
// failed cycle.
func (p *Purifier) Maintain(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.Run(ctx, false); err != nil {
				p.log.WithError(err).Warn("purification cycle failed")
			}
		}
	}
}

// newStrategy builds the strategy implementation for a kind.
func (p *Purifier) newStrategy(kind Kind, count int, free uint64) Strategy {
	switch kind {
	case KindLightweight:
		return newLightweight(p.log)
	case KindProgressive:
		return &progressive{
			sectioned: p.newSectioned(count, free),
			store:     NewCheckpointStore(p.baseDir, p.log),
		}
	default:
		s := p.newSectioned(count, free)
		return &s
	}
}

func (p *Purifier) newSectioned(count int, free uint64) sectioned {
	engine := minhash.New(p.cfg.HashCount, p.cfg.ShingleLen)
	cache, err := minhash.NewCache(engine, p.cfg.CacheSize, p.cfg.CacheFoldEvery)
	if err != nil {
		// Only reachable with a negative size, which NewCache guards.
		panic(err)
	}
	size := sectionSize(count, free, p.cfg.MinSectionSize, p.cfg.MaxSectionSize)
	return sectioned{
		sectionSize: size,
		threshold:   p.cfg.SimilarityThreshold,
		pause:       sectionPause,
		cache:       cache,
		reps:        make(map[string][]entry.Entry),
		repCap:      size,
		log:         p.log,
	}
}

// Entries loads the current deduplicated entry sequence for a downstream
// consumer. Read-only; buffered entries are flushed first so the caller sees
// everything accepted so far.
func (p *Purifier) Entries() ([]entry.Entry, error) {
	if err := p.journal.Flush(); err != nil {
		return nil, err
	}
	return p.journal.Load()
}
