package journal

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/hpungsan/winnow/internal/config"
	"github.com/hpungsan/winnow/internal/entry"
	"github.com/hpungsan/winnow/internal/errors"
	"github.com/hpungsan/winnow/internal/retry"
)

const (
	// LogFilename is the append-only corpus log inside the base directory.
	LogFilename = "log.jsonl"

	// MalformedFilename is the side-channel file collecting raw log lines
	// that failed to parse during a load.
	MalformedFilename = "malformed.jsonl"
)

// maxLineBytes bounds a single log line during scans.
const maxLineBytes = 1 << 20

// Journal is the durable, ordered, crash-tolerant append log. A single
// mutex serializes every file mutation (flushes and rewrites through
// Mutate), guaranteeing at most one in-flight mutation and a total order
// over log versions.
type Journal struct {
	mu            sync.Mutex
	baseDir       string
	cfg           *config.Config
	log           *logrus.Logger
	buffer        []entry.Entry
	lastPerSource map[string]string
	lastFlush     time.Time
	flushing      bool
}

// New creates a journal rooted at baseDir. The directory is created on the
// first flush if missing.
func New(baseDir string, cfg *config.Config, log *logrus.Logger) *Journal {
	if log == nil {
		log = logrus.New()
	}
	return &Journal{
		baseDir:       baseDir,
		cfg:           cfg,
		log:           log,
		lastPerSource: make(map[string]string),
		lastFlush:     time.Now(),
	}
}

// Path returns the log file path.
func (j *Journal) Path() string {
	return filepath.Join(j.baseDir, LogFilename)
}

// MalformedPath returns the side-channel diagnostics file path.
func (j *Journal) MalformedPath() string {
	return filepath.Join(j.baseDir, MalformedFilename)
}

// Append buffers entries for the next flush and returns how many were
// accepted. An entry whose content exactly matches the immediately preceding
// accepted entry for the same source is dropped here; the expensive
// similarity check happens later during purification. A flush is triggered
// when the buffer reaches the configured threshold or the flush interval has
// elapsed.
func (j *Journal) Append(entries ...entry.Entry) (int, error) {
	j.mu.Lock()
	accepted := 0
	for _, e := range entries {
		if last, ok := j.lastPerSource[e.Source]; ok && last == e.Content {
			continue
		}
		j.buffer = append(j.buffer, e)
		j.lastPerSource[e.Source] = e.Content
		accepted++
	}

	shouldFlush := len(j.buffer) >= j.cfg.FlushThreshold ||
		time.Since(j.lastFlush) >= j.cfg.FlushInterval()
	j.mu.Unlock()

	if shouldFlush {
		if err := j.Flush(); err != nil {
			return accepted, err
		}
	}
	return accepted, nil
}

// Flush writes buffered entries that pass the retention filter to the log.
// A flush already in progress suppresses re-entrant flushes; entries
// arriving during a flush remain buffered for the next cycle. On write
// failure the batch is requeued and prior persisted state is untouched.
func (j *Journal) Flush() error {
	j.mu.Lock()
	if j.flushing || len(j.buffer) == 0 {
		j.mu.Unlock()
		return nil
	}
	j.flushing = true
	batch := j.buffer
	j.buffer = nil
	j.mu.Unlock()

	err := j.writeBatch(batch)

	j.mu.Lock()
	j.flushing = false
	if err != nil {
		// Requeue ahead of anything buffered during the failed flush.
		j.buffer = append(batch, j.buffer...)
	} else {
		j.lastFlush = time.Now()
	}
	j.mu.Unlock()

	return err
}

// writeBatch appends retained records to the log file.
func (j *Journal) writeBatch(batch []entry.Entry) error {
	retained := make([]entry.Entry, 0, len(batch))
	dropped := 0
	for _, e := range batch {
		if j.cfg.SourceDenied(e.Source) || utf8.RuneCountInString(e.Content) < j.cfg.MinContentLen {
			dropped++
			continue
		}
		retained = append(retained, e)
	}
	if dropped > 0 {
		j.log.WithField("dropped", dropped).Debug("retention filter discarded entries")
	}
	if len(retained) == 0 {
		return nil
	}

	if err := os.MkdirAll(j.baseDir, 0o700); err != nil {
		return errors.NewIOFailed("create base dir", err)
	}

	f, err := os.OpenFile(j.Path(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return errors.NewIOFailed("open log", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, e := range retained {
		line, err := entry.MarshalRecord(e)
		if err != nil {
			return errors.NewInternal(err)
		}
		if _, err := w.Write(line); err != nil {
			return errors.NewIOFailed("write log", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return errors.NewIOFailed("write log", err)
		}
	}
	if err := w.Flush(); err != nil {
		return errors.NewIOFailed("write log", err)
	}
	if err := f.Sync(); err != nil {
		return errors.NewIOFailed("sync log", err)
	}

	j.log.WithFields(logrus.Fields{
		"written": len(retained),
		"dropped": dropped,
	}).Debug("journal flushed")

	return nil
}

// Run flushes the journal on the configured interval until ctx ends, then
// performs a final flush.
func (j *Journal) Run(ctx context.Context) {
	ticker := time.NewTicker(j.cfg.FlushInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := j.Flush(); err != nil {
				j.log.WithError(err).Warn("final flush failed")
			}
			return
		case <-ticker.C:
			if err := j.Flush(); err != nil {
				j.log.WithError(err).Warn("periodic flush failed")
			}
		}
	}
}

// Load reads the entire log, one record per line, in write order. Malformed
// lines are skipped, counted, and preserved raw in the side-channel file;
// they never abort the load. A missing log yields an empty sequence.
func (j *Journal) Load() ([]entry.Entry, error) {
	var data []byte
	err := retry.Do(func() error {
		var readErr error
		data, readErr = os.ReadFile(j.Path())
		if readErr != nil && os.IsNotExist(readErr) {
			data = nil
			return nil
		}
		return readErr
	})
	if err != nil {
		return nil, errors.NewIOFailed("read log", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var entries []entry.Entry
	var malformed [][]byte

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		e, err := entry.UnmarshalRecord(line)
		if err != nil {
			malformed = append(malformed, append([]byte(nil), line...))
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.NewIOFailed("scan log", err)
	}

	if len(malformed) > 0 {
		j.log.WithField("count", len(malformed)).Warn("skipped malformed log lines")
		j.writeMalformed(malformed)
	}

	return entries, nil
}

// writeMalformed appends unparseable raw lines to the diagnostics file.
// Best effort; a failure here must not fail the load.
func (j *Journal) writeMalformed(lines [][]byte) {
	f, err := os.OpenFile(j.MalformedPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		j.log.WithError(err).Warn("could not open malformed side channel")
		return
	}
	defer f.Close()

	for _, line := range lines {
		if _, err := fmt.Fprintf(f, "%s\n", line); err != nil {
			j.log.WithError(err).Warn("could not write malformed side channel")
			return
		}
	}
}

// Mutate runs fn while holding the file mutation lock, after flushing any
// buffered entries so fn sees a complete log. The purifier's rewrite
// protocol goes through here, keeping all log mutation on one serial
// context.
func (j *Journal) Mutate(fn func(logPath string) error) error {
	if err := j.Flush(); err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return fn(j.Path())
}

// Buffered returns the number of entries awaiting flush.
func (j *Journal) Buffered() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.buffer)
}
