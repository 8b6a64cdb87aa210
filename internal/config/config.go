package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds application configuration. All similarity and scheduling
// parameters are tunable here rather than hard-coded; the historical defaults
// live in DefaultConfig.
type Config struct {
	// HashCount is the number of independent MinHash functions (signature length).
	HashCount int `json:"hash_count"`

	// ShingleLen is the character n-gram length used for shingling.
	ShingleLen int `json:"shingle_len"`

	// SimilarityThreshold is the MinHash agreement fraction above which two
	// entries from the same source are treated as near-duplicates.
	SimilarityThreshold float64 `json:"similarity_threshold"`

	// MinSectionSize and MaxSectionSize bound the window size used by the
	// sectioned and progressive strategies.
	MinSectionSize int `json:"min_section_size"`
	MaxSectionSize int `json:"max_section_size"`

	// FlushThreshold is the buffered-entry count that triggers a journal flush.
	FlushThreshold int `json:"flush_threshold"`

	// FlushIntervalSec is the maximum seconds between journal flushes.
	FlushIntervalSec int `json:"flush_interval_sec"`

	// MinContentLen is the retention filter's minimum content length in runes.
	// Shorter entries are silently discarded at flush time.
	MinContentLen int `json:"min_content_len"`

	// DeniedSources lists sources whose entries are never persisted.
	DeniedSources []string `json:"denied_sources,omitempty"`

	// CacheSize bounds the content->signature cache used during purification.
	CacheSize int `json:"cache_size"`

	// CacheFoldEvery is how many processed entries pass between folding the
	// signature cache into the seen set and clearing it.
	CacheFoldEvery int `json:"cache_fold_every"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		HashCount:           20,
		ShingleLen:          3,
		SimilarityThreshold: 0.75,
		MinSectionSize:      100,
		MaxSectionSize:      500,
		FlushThreshold:      50,
		FlushIntervalSec:    30,
		MinContentLen:       3,
		CacheSize:           256,
		CacheFoldEvery:      100,
	}
}

// FlushInterval returns FlushIntervalSec as a duration.
func (c *Config) FlushInterval() time.Duration {
	return time.Duration(c.FlushIntervalSec) * time.Second
}

// SourceDenied reports whether a source is on the deny-list.
func (c *Config) SourceDenied(source string) bool {
	for _, s := range c.DeniedSources {
		if s == source {
			return true
		}
	}
	return false
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.winnow.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.HashCount = overlayInt(base.HashCount, overlay.HashCount)
	result.ShingleLen = overlayInt(base.ShingleLen, overlay.ShingleLen)
	result.MinSectionSize = overlayInt(base.MinSectionSize, overlay.MinSectionSize)
	result.MaxSectionSize = overlayInt(base.MaxSectionSize, overlay.MaxSectionSize)
	result.FlushThreshold = overlayInt(base.FlushThreshold, overlay.FlushThreshold)
	result.FlushIntervalSec = overlayInt(base.FlushIntervalSec, overlay.FlushIntervalSec)
	result.MinContentLen = overlayInt(base.MinContentLen, overlay.MinContentLen)
	result.CacheSize = overlayInt(base.CacheSize, overlay.CacheSize)
	result.CacheFoldEvery = overlayInt(base.CacheFoldEvery, overlay.CacheFoldEvery)

	result.SimilarityThreshold = overlay.SimilarityThreshold
	if result.SimilarityThreshold == 0 {
		result.SimilarityThreshold = base.SimilarityThreshold
	}

	result.DeniedSources = mergeStringSlice(base.DeniedSources, overlay.DeniedSources)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// overlayInt returns the overlay value if non-zero, else the base value.
func overlayInt(base, overlay int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
