// Package track persists which postings were seen in prior runs and
// classifies fetched postings as new or previously seen.
package track

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/seekwell/jobscout/internal/dedup"
	"github.com/seekwell/jobscout/internal/model"
)

const stateVersion = 1

// Fingerprint derives the stable cross-run identifier for a posting: the
// SHA-256 hex digest of its normalized URL.
func Fingerprint(p model.JobPosting) string {
	sum := sha256.Sum256([]byte(dedup.NormalizeURL(p.URL)))
	return hex.EncodeToString(sum[:])
}

// RunStats reports per-run classification counts.
type RunStats struct {
	New  int
	Seen int
}

type stateFile struct {
	Version int                  `json:"version"`
	Entries map[string]time.Time `json:"entries"`
}

// Tracker holds the seen-fingerprint set loaded from disk. Not safe for
// concurrent use; classification and commit run single-threaded after
// fetching finishes.
type Tracker struct {
	path    string
	entries map[string]time.Time
	logger  *zap.Logger
	now     func() time.Time
}

// Load reads the tracker state at path. A missing file starts empty; a
// corrupted file is logged and reset rather than failing the run.
func Load(path string, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracker{
		path:    path,
		entries: make(map[string]time.Time),
		logger:  logger,
		now:     time.Now,
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return t
	}
	if err != nil {
		logger.Warn("tracker state unreadable, starting fresh", zap.String("path", path), zap.Error(err))
		return t
	}

	var sf stateFile
	if err := json.Unmarshal(raw, &sf); err != nil {
		logger.Warn("tracker state corrupted, starting fresh", zap.String("path", path), zap.Error(err))
		return t
	}
	if sf.Entries != nil {
		t.entries = sf.Entries
	}
	return t
}

// Len returns the number of fingerprints on record.
func (t *Tracker) Len() int {
	return len(t.entries)
}

// Classify annotates each posting with IsNew based on the loaded state. It
// does not modify the state; only Commit does.
func (t *Tracker) Classify(postings []model.JobPosting) []model.JobPosting {
	out := make([]model.JobPosting, len(postings))
	for i, p := range postings {
		_, seen := t.entries[Fingerprint(p)]
		isNew := !seen
		p.IsNew = &isNew
		out[i] = p
	}
	return out
}

// Commit records the fingerprints of newly seen postings and persists the
// state atomically. Call only after a successful (non-cancelled,
// non-errored) run so interrupted runs re-surface their postings next time.
func (t *Tracker) Commit(postings []model.JobPosting) (RunStats, error) {
	var stats RunStats
	now := t.now().UTC()
	for _, p := range postings {
		fp := Fingerprint(p)
		if _, seen := t.entries[fp]; seen {
			stats.Seen++
			continue
		}
		t.entries[fp] = now
		stats.New++
	}

	if err := t.persist(); err != nil {
		return stats, fmt.Errorf("persist tracker state: %w", err)
	}
	return stats, nil
}

// persist writes the full state through a temp file and atomic rename so a
// crash mid-write never corrupts prior history.
func (t *Tracker) persist() error {
	buf, err := json.MarshalIndent(stateFile{Version: stateVersion, Entries: t.entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(t.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".tracker-*.json")
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state: %w", err)
	}
	if err := os.Rename(tmp.Name(), t.path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}
