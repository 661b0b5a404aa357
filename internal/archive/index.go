package archive

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gofrs/flock"

	setuperrors "github.com/spec-tools/claude-setup/internal/errors"
	"github.com/spec-tools/claude-setup/internal/logging"
	"github.com/spec-tools/claude-setup/pkg/fileutil"
)

// IndexVersion is the archive index schema version.
const IndexVersion = "1.0"

// Entry is the searchable projection of one archived spec's metadata inside
// the index document. Entries are keyed by ArchivePath: adding a duplicate
// replaces the existing entry in place.
type Entry struct {
	SpecName       string    `json:"specName"`
	OriginalPath   string    `json:"originalPath"`
	ArchivePath    string    `json:"archivePath"`
	CompletionDate time.Time `json:"completionDate"`
	ArchivalDate   time.Time `json:"archivalDate"`
	TotalTasks     int       `json:"totalTasks"`
	CompletedTasks int       `json:"completedTasks"`
}

// entryFromMetadata projects archive metadata into an index entry.
func entryFromMetadata(m Metadata) Entry {
	return Entry{
		SpecName:       m.SpecName,
		OriginalPath:   m.OriginalPath,
		ArchivePath:    m.ArchivePath,
		CompletionDate: m.CompletionDate,
		ArchivalDate:   m.ArchivalDate,
		TotalTasks:     m.TotalTasks,
		CompletedTasks: m.CompletedTasks,
	}
}

// Index is the persisted catalog of all archived specs, maintained so
// search and listing never re-scan the archive directory tree.
type Index struct {
	Version     string    `json:"version"`
	LastUpdated time.Time `json:"lastUpdated"`
	Archives    []Entry   `json:"archives"`
}

// IndexManager owns the index file exclusively. Mutations are persisted
// immediately; load-modify-save cycles hold an advisory lock on a sidecar
// .lock file.
type IndexManager struct {
	path   string
	lock   *flock.Flock
	logger *slog.Logger
	now    func() time.Time
}

// IndexOption configures an IndexManager.
type IndexOption func(*IndexManager)

// WithIndexLogger sets the manager's logger.
func WithIndexLogger(logger *slog.Logger) IndexOption {
	return func(m *IndexManager) {
		m.logger = logger
	}
}

// WithIndexClock overrides the manager's clock, for tests.
func WithIndexClock(now func() time.Time) IndexOption {
	return func(m *IndexManager) {
		m.now = now
	}
}

// NewIndexManager creates an IndexManager for the index file at path.
func NewIndexManager(path string, opts ...IndexOption) *IndexManager {
	m := &IndexManager{
		path:   path,
		lock:   flock.New(path + ".lock"),
		logger: logging.NewDiscard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Path returns the index file path this manager owns.
func (m *IndexManager) Path() string {
	return m.path
}

func (m *IndexManager) withLock(fn func() error) error {
	if err := m.lock.Lock(); err != nil {
		return errors.Wrap(setuperrors.ErrConcurrentAccess, err.Error())
	}
	defer func() {
		if unlockErr := m.lock.Unlock(); unlockErr != nil {
			m.logger.Warn("failed to release index lock", "error", unlockErr)
		}
	}()
	return fn()
}

// Get loads the index, creating and persisting an empty one if the file
// does not exist yet. A file that exists but does not parse is an
// ErrIndexCorrupted error; corruption is surfaced, never replaced.
func (m *IndexManager) Get() (Index, error) {
	var idx Index
	err := m.withLock(func() error {
		var err error
		idx, err = m.loadLocked()
		return err
	})
	return idx, err
}

func (m *IndexManager) loadLocked() (Index, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			idx := Index{
				Version:     IndexVersion,
				LastUpdated: m.now().UTC(),
				Archives:    []Entry{},
			}
			if err := m.saveLocked(&idx); err != nil {
				return Index{}, errors.Wrap(err, "creating empty index")
			}
			return idx, nil
		}
		return Index{}, errors.Wrap(err, "reading index file")
	}

	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return Index{}, errors.Wrapf(setuperrors.ErrIndexCorrupted,
			"index file %s is not valid JSON: %v", m.path, err)
	}
	if idx.Archives == nil {
		idx.Archives = []Entry{}
	}
	return idx, nil
}

func (m *IndexManager) saveLocked(idx *Index) error {
	idx.LastUpdated = m.now().UTC()
	if err := fileutil.AtomicWriteJSON(m.path, idx); err != nil {
		return errors.Wrap(err, "writing index file")
	}
	return nil
}

// Add upserts an entry for the given metadata, keyed by archive path.
// An existing entry for the same archive path is replaced in place; the
// index never holds two entries for one archive directory.
func (m *IndexManager) Add(metadata Metadata) error {
	return m.withLock(func() error {
		idx, err := m.loadLocked()
		if err != nil {
			return err
		}

		entry := entryFromMetadata(metadata)
		replaced := false
		for i := range idx.Archives {
			if idx.Archives[i].ArchivePath == entry.ArchivePath {
				idx.Archives[i] = entry
				replaced = true
				break
			}
		}
		if !replaced {
			idx.Archives = append(idx.Archives, entry)
		}

		return m.saveLocked(&idx)
	})
}

// Remove deletes the entry with the given archive path. It reports whether
// a removal occurred; the index is only rewritten when it did.
func (m *IndexManager) Remove(archivePath string) (bool, error) {
	removed := false
	err := m.withLock(func() error {
		idx, err := m.loadLocked()
		if err != nil {
			return err
		}

		for i := range idx.Archives {
			if idx.Archives[i].ArchivePath == archivePath {
				idx.Archives = append(idx.Archives[:i], idx.Archives[i+1:]...)
				removed = true
				break
			}
		}
		if !removed {
			return nil
		}

		return m.saveLocked(&idx)
	})
	return removed, err
}

// Search returns entries whose spec name contains query, case-insensitively.
func (m *IndexManager) Search(query string) ([]Entry, error) {
	idx, err := m.Get()
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]Entry, 0, len(idx.Archives))
	for _, entry := range idx.Archives {
		if strings.Contains(strings.ToLower(entry.SpecName), q) {
			out = append(out, entry)
		}
	}
	return out, nil
}

// All returns every entry sorted by archival date, newest first.
func (m *IndexManager) All() ([]Entry, error) {
	idx, err := m.Get()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, len(idx.Archives))
	copy(entries, idx.Archives)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ArchivalDate.After(entries[j].ArchivalDate)
	})
	return entries, nil
}

// BySpecName returns the entry with the exact spec name, or nil when absent.
func (m *IndexManager) BySpecName(name string) (*Entry, error) {
	idx, err := m.Get()
	if err != nil {
		return nil, err
	}
	for i := range idx.Archives {
		if idx.Archives[i].SpecName == name {
			entry := idx.Archives[i]
			return &entry, nil
		}
	}
	return nil, nil
}

// ByPath returns the entry with the exact archive path, or nil when absent.
func (m *IndexManager) ByPath(archivePath string) (*Entry, error) {
	idx, err := m.Get()
	if err != nil {
		return nil, err
	}
	for i := range idx.Archives {
		if idx.Archives[i].ArchivePath == archivePath {
			entry := idx.Archives[i]
			return &entry, nil
		}
	}
	return nil, nil
}

// IndexStats summarizes the index. The archive date extremes are nil when
// the index is empty.
type IndexStats struct {
	TotalArchives int
	TotalTasks    int
	OldestArchive *time.Time
	NewestArchive *time.Time
}

// Stats computes aggregate statistics over all entries.
func (m *IndexManager) Stats() (IndexStats, error) {
	idx, err := m.Get()
	if err != nil {
		return IndexStats{}, err
	}

	stats := IndexStats{TotalArchives: len(idx.Archives)}
	for _, entry := range idx.Archives {
		stats.TotalTasks += entry.TotalTasks
		date := entry.ArchivalDate
		if stats.OldestArchive == nil || date.Before(*stats.OldestArchive) {
			d := date
			stats.OldestArchive = &d
		}
		if stats.NewestArchive == nil || date.After(*stats.NewestArchive) {
			d := date
			stats.NewestArchive = &d
		}
	}
	return stats, nil
}

// RepairReport is the outcome of validating the index against disk state.
type RepairReport struct {
	IsValid  bool
	Repaired bool
	Issues   []string
}

// ValidateAndRepair checks that every indexed archive directory still
// exists on disk. Stale entries are pruned and reported. The report is
// IsValid=false, Repaired=true whenever at least one entry was pruned.
func (m *IndexManager) ValidateAndRepair() (RepairReport, error) {
	report := RepairReport{IsValid: true}
	err := m.withLock(func() error {
		idx, err := m.loadLocked()
		if err != nil {
			return err
		}

		kept := make([]Entry, 0, len(idx.Archives))
		for _, entry := range idx.Archives {
			if info, err := os.Stat(entry.ArchivePath); err != nil || !info.IsDir() {
				report.Issues = append(report.Issues,
					fmt.Sprintf("Archive directory not found: %s", entry.ArchivePath))
				continue
			}
			kept = append(kept, entry)
		}

		if len(kept) == len(idx.Archives) {
			return nil
		}

		report.IsValid = false
		report.Repaired = true
		idx.Archives = kept
		m.logger.Info("pruned stale index entries",
			"removed", len(report.Issues), "remaining", len(kept))
		return m.saveLocked(&idx)
	})
	if err != nil {
		return RepairReport{}, err
	}
	return report, nil
}
