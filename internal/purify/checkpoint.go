package purify

import (
	"encoding/json"
	"hash/fnv"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/hpungsan/winnow/internal/entry"
	"github.com/hpungsan/winnow/internal/errors"
	"github.com/hpungsan/winnow/internal/retry"
)

// CheckpointFilename is the progressive strategy's resume state inside the
// base directory.
const CheckpointFilename = "checkpoint.json"

// Checkpoint is the persisted progress of a progressive purification run.
// LogCount and LogDigest fingerprint the log snapshot the checkpoint was
// taken from; a resume against a structurally different log discards the
// checkpoint instead of risking an inconsistent resume.
type Checkpoint struct {
	NextSection int           `json:"nextSectionIndex"`
	SeenContent []string      `json:"seenContent"`
	Accumulated []entry.Entry `json:"accumulatedUnique"`
	LogCount    int           `json:"logCount"`
	LogDigest   uint64        `json:"logDigest"`
}

// CheckpointStore reads and writes the checkpoint file.
type CheckpointStore struct {
	path string
	log  *logrus.Logger
}

// NewCheckpointStore creates a store rooted at baseDir.
func NewCheckpointStore(baseDir string, log *logrus.Logger) *CheckpointStore {
	if log == nil {
		log = logrus.New()
	}
	return &CheckpointStore{
		path: filepath.Join(baseDir, CheckpointFilename),
		log:  log,
	}
}

// Load returns the stored checkpoint, or nil when there is none. A corrupt
// checkpoint is treated as "no checkpoint found": it is logged, removed, and
// purification restarts from the beginning.
func (s *CheckpointStore) Load() *Checkpoint {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.WithError(err).Warn("checkpoint unreadable, restarting")
			s.Delete()
		}
		return nil
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		s.log.WithError(errors.NewCheckpointCorrupt(err.Error())).Warn("checkpoint corrupt, restarting")
		s.Delete()
		return nil
	}
	if cp.NextSection < 0 {
		s.log.WithError(errors.NewCheckpointCorrupt("negative section index")).Warn("checkpoint corrupt, restarting")
		s.Delete()
		return nil
	}

	return &cp
}

// Save persists the checkpoint atomically (temp file + rename).
func (s *CheckpointStore) Save(cp *Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// Delete removes the checkpoint file. Best effort with retries; removal is
// idempotent.
func (s *CheckpointStore) Delete() {
	err := retry.Do(func() error {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	})
	if err != nil {
		s.log.WithError(err).Warn("could not remove checkpoint")
	}
}

// fingerprint computes the (count, digest) pair identifying a log snapshot.
// The digest is FNV-1a over every entry identity key in order.
func fingerprint(entries []entry.Entry) (int, uint64) {
	h := fnv.New64a()
	for _, e := range entries {
		h.Write([]byte(e.Key()))
		h.Write([]byte{'\n'})
	}
	return len(entries), h.Sum64()
}
