package purify

import (
	"bufio"
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/hpungsan/winnow/internal/entry"
	"github.com/hpungsan/winnow/internal/errors"
	"github.com/hpungsan/winnow/internal/retry"
)

// Rewrite replaces the log's contents with the retained set without ever
// leaving the store corrupted or truncated:
//
//  1. copy the current log to a timestamped backup;
//  2. serialize every retained entry to a temporary file;
//  3. only if at least one record was written, delete the original, rename
//     the temp file into place, and delete the backup;
//  4. on any failure remove the temp file, leave the original untouched, and
//     restore from the backup if the original was already deleted.
//
// The original log is never the only casualty: a backup exists before
// anything is removed, and it stays on disk when the swap fails.
func Rewrite(logPath string, retained []entry.Entry, log *logrus.Logger) error {
	if len(retained) == 0 {
		// A zero-record rewrite would produce an empty store.
		return errors.NewRewriteFailed(fmt.Errorf("refusing to write an empty log"))
	}

	dir := filepath.Dir(logPath)
	backupPath := filepath.Join(dir, fmt.Sprintf("backup_%d.jsonl", time.Now().Unix()))

	if err := copyFile(logPath, backupPath); err != nil {
		if os.IsNotExist(err) {
			return errors.NewNotFound("corpus log")
		}
		return errors.NewRewriteFailed(fmt.Errorf("backup: %w", err))
	}

	tmpPath := filepath.Join(dir, fmt.Sprintf("log.%s.tmp", newULID()))
	written, err := writeRecords(tmpPath, retained)
	if err != nil || written == 0 {
		// Original untouched; the backup stays on disk for manual recovery.
		removeQuiet(tmpPath, log)
		if err == nil {
			err = fmt.Errorf("no records written")
		}
		return errors.NewRewriteFailed(err)
	}

	if err := removeRetry(logPath); err != nil {
		removeQuiet(tmpPath, log)
		return errors.NewRewriteFailed(fmt.Errorf("remove original: %w", err))
	}

	if err := renameFile(tmpPath, logPath); err != nil {
		// The original is gone; restore it from the backup, best effort.
		removeQuiet(tmpPath, log)
		if restoreErr := copyFile(backupPath, logPath); restoreErr != nil {
			log.WithError(restoreErr).Error("backup restore failed, backup left on disk")
			return errors.NewRewriteFailed(fmt.Errorf("swap: %v (restore also failed: %v)", err, restoreErr))
		}
		log.Warn("rewrite swap failed, original restored from backup")
		return errors.NewRewriteFailed(fmt.Errorf("swap: %w", err))
	}

	removeQuiet(backupPath, log)

	log.WithFields(logrus.Fields{
		"records": written,
	}).Debug("log rewritten")

	return nil
}

// renameFile swaps the temp file into place. Variable so tests can force
// the swap to fail.
var renameFile = os.Rename

// writeRecords serializes entries to path, one record per line with a
// trailing newline, fsynced before close. Returns the record count.
func writeRecords(path string, entries []entry.Entry) (int, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return 0, err
	}

	w := bufio.NewWriter(f)
	written := 0
	for _, e := range entries {
		line, err := entry.MarshalRecord(e)
		if err != nil {
			f.Close()
			return written, err
		}
		if _, err := w.Write(line); err != nil {
			f.Close()
			return written, err
		}
		if err := w.WriteByte('\n'); err != nil {
			f.Close()
			return written, err
		}
		written++
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return written, err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return written, err
	}
	return written, f.Close()
}

// copyFile copies src to dst, fsyncing dst.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// removeRetry removes a path with the idempotent-operation retry policy.
func removeRetry(path string) error {
	return retry.Do(func() error {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	})
}

// removeQuiet removes a path, logging instead of failing.
func removeQuiet(path string, log *logrus.Logger) {
	if err := removeRetry(path); err != nil {
		log.WithError(err).WithField("path", path).Warn("cleanup failed")
	}
}

// newULID returns a fresh ULID string for unique temp-file names.
func newULID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(rand.Reader, 0)).String()
}
