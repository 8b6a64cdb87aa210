package purify

import (
	"time"

	"github.com/pbnjay/memory"

	"github.com/hpungsan/winnow/internal/entry"
)

// Kind identifies a purification strategy.
type Kind int

const (
	KindSkip Kind = iota
	KindLightweight
	KindSectioned
	KindProgressive
)

// String returns the strategy name.
func (k Kind) String() string {
	switch k {
	case KindLightweight:
		return "lightweight"
	case KindSectioned:
		return "sectioned"
	case KindProgressive:
		return "progressive"
	default:
		return "skip"
	}
}

// Strategy deduplicates an entry sequence. Implementations never reorder
// surviving entries; they only remove.
type Strategy interface {
	Name() string
	Purify(entries []entry.Entry) (retained []entry.Entry, removed int)
}

// FreeMemory probes available physical memory. Variable so tests can pin it.
var FreeMemory = memory.FreeMemory

// memoryConstrainedBytes is the free-memory floor below which mid-sized
// corpora fall back to the lightweight strategy and windows shrink.
const memoryConstrainedBytes = 512 << 20

const (
	smallCorpusSkipWindow  = time.Minute
	lightweightRateLimit   = 30 * time.Second
	progressiveRateLimit   = 30 * time.Minute
	smallCorpusMax         = 500
	midCorpusMax           = 2000
	largeCorpusMax         = 10000
	lightweightRecentCap   = 1000
	lightweightBudget      = 5 * time.Second
	sectionPause           = 10 * time.Millisecond
	checkpointEverySection = 5
)

// Plan selects a strategy from the corpus size, the time since the last
// successful purification, and available physical memory. Pure function; the
// caller supplies all three inputs.
func Plan(count int, sinceLast time.Duration, freeBytes uint64) Kind {
	switch {
	case count <= smallCorpusMax:
		if sinceLast < smallCorpusSkipWindow {
			return KindSkip
		}
		return KindLightweight
	case count <= midCorpusMax:
		if freeBytes < memoryConstrainedBytes {
			if sinceLast < lightweightRateLimit {
				return KindSkip
			}
			return KindLightweight
		}
		return KindSectioned
	case count <= largeCorpusMax:
		return KindSectioned
	default:
		if sinceLast < progressiveRateLimit {
			return KindSkip
		}
		return KindProgressive
	}
}

// sectionSize picks the window size for sectioned and progressive runs.
// Larger corpora and constrained memory yield smaller windows.
func sectionSize(count int, freeBytes uint64, minSize, maxSize int) int {
	if minSize <= 0 {
		minSize = 100
	}
	if maxSize < minSize {
		maxSize = minSize
	}

	size := maxSize
	if count > largeCorpusMax {
		size = (minSize + maxSize) / 2
	}
	if freeBytes < memoryConstrainedBytes {
		size /= 2
	}

	if size < minSize {
		size = minSize
	}
	if size > maxSize {
		size = maxSize
	}
	return size
}
