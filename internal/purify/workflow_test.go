package purify

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/winnow/internal/config"
	"github.com/hpungsan/winnow/internal/entry"
	"github.com/hpungsan/winnow/internal/journal"
)

// TestSectionedWorkflow drives the full capture-flush-purify-reload cycle at
// a corpus size that selects the sectioned strategy. Each source contributes
// one snippet plus a whitespace variant of it; the variant normalizes to the
// same text, so every removal is deterministic.
func TestSectionedWorkflow(t *testing.T) {
	orig := FreeMemory
	FreeMemory = func() uint64 { return 8 << 30 }
	defer func() { FreeMemory = orig }()

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.FlushIntervalSec = 3600
	log := quietLogger()
	j := journal.New(dir, cfg, log)
	p := New(j, dir, cfg, log)

	const pairs = 350
	now := time.Now()
	for i := 0; i < pairs; i++ {
		source := fmt.Sprintf("source-%d", i)
		content := fmt.Sprintf("captured text number %d", i)
		variant := strings.Replace(content, " text ", "  text ", 1)

		_, err := j.Append(
			entry.New(source, content, now.Add(time.Duration(i)*time.Second)),
			entry.New(source, variant, now.Add(time.Duration(i)*time.Second+time.Millisecond)),
		)
		require.NoError(t, err)
	}

	result, err := p.Run(context.Background(), true)
	require.NoError(t, err)

	require.Equal(t, "sectioned", result.Strategy)
	require.Equal(t, pairs, result.Removed)
	require.Equal(t, pairs, result.Retained)
	require.True(t, result.Rewrote)

	entries, err := j.Load()
	require.NoError(t, err)
	require.Len(t, entries, pairs)

	// Survivors are the first occurrences, in original order.
	require.Equal(t, "captured text number 0", entries[0].Content)
	require.Equal(t, fmt.Sprintf("captured text number %d", pairs-1), entries[pairs-1].Content)
	for _, e := range entries {
		require.NotContains(t, e.Content, "  ", "whitespace variant survived purification")
	}

	// A second forced cycle finds nothing left to remove.
	second, err := p.Run(context.Background(), true)
	require.NoError(t, err)
	require.Zero(t, second.Removed)
	require.False(t, second.Rewrote)
}
