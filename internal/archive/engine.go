package archive

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	setuperrors "github.com/spec-tools/claude-setup/internal/errors"
	"github.com/spec-tools/claude-setup/internal/logging"
	"github.com/spec-tools/claude-setup/internal/paths"
	"github.com/spec-tools/claude-setup/internal/task"
	"github.com/spec-tools/claude-setup/pkg/fileutil"
)

// DefaultQuietPeriod is how long tasks.md must be unmodified before a spec
// may be archived. Guards against archiving a spec that is still being edited.
const DefaultQuietPeriod = 5 * time.Minute

// phase labels the steps of one archival attempt. A failure during copying
// or metadata writing transitions to rolling-back before the attempt is
// reported as failed.
type phase string

const (
	phaseValidating       phase = "validating"
	phaseCopying          phase = "copying"
	phaseWritingMetadata  phase = "writing-metadata"
	phaseRemovingOriginal phase = "removing-original"
	phaseRollingBack      phase = "rolling-back"
)

// Engine performs the archival move: pre-flight safety validation, a
// permission- and timestamp-preserving copy into a dated destination under
// the archive root, a metadata sidecar, and removal of the original.
// Any failure before the original is removed rolls back the destination,
// leaving the filesystem as if the attempt never happened.
type Engine struct {
	archiveRoot string
	detector    *task.Detector
	logger      *slog.Logger
	now         func() time.Time
	quietPeriod time.Duration
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock overrides the engine's clock, for tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// WithQuietPeriod overrides the recent-edit guard window.
func WithQuietPeriod(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.quietPeriod = d
	}
}

// WithDetector sets the completion detector used for metadata task counts.
func WithDetector(d *task.Detector) EngineOption {
	return func(e *Engine) {
		e.detector = d
	}
}

// NewEngine creates an Engine that archives into archiveRoot.
func NewEngine(archiveRoot string, opts ...EngineOption) *Engine {
	e := &Engine{
		archiveRoot: archiveRoot,
		detector:    task.NewDetector(),
		logger:      logging.NewDiscard(),
		now:         time.Now,
		quietPeriod: DefaultQuietPeriod,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SafetyReport is the result of pre-flight archival validation.
// CanProceed currently mirrors IsSafe; it is kept as a separate field so a
// future override policy can diverge without changing the shape.
type SafetyReport struct {
	IsSafe     bool
	CanProceed bool
	Issues     []string
}

// CheckSafety validates that specPath can be archived: the directory exists,
// all required documents are present, and tasks.md has been quiet for at
// least the quiet period.
func (e *Engine) CheckSafety(specPath string) SafetyReport {
	var issues []string

	info, err := os.Stat(specPath)
	if err != nil || !info.IsDir() {
		issues = append(issues, fmt.Sprintf("spec directory does not exist: %s", specPath))
		return SafetyReport{Issues: issues}
	}

	for _, name := range paths.RequiredSpecFiles {
		if _, err := os.Stat(filepath.Join(specPath, name)); err != nil {
			issues = append(issues, fmt.Sprintf("missing required file: %s", name))
		}
	}

	if fi, err := os.Stat(filepath.Join(specPath, paths.TasksFileName)); err == nil {
		if age := e.now().Sub(fi.ModTime()); age < e.quietPeriod {
			issues = append(issues, fmt.Sprintf(
				"tasks.md was modified %s ago; waiting for the spec to settle (quiet period %s)",
				age.Round(time.Second), e.quietPeriod))
		}
	}

	safe := len(issues) == 0
	return SafetyReport{IsSafe: safe, CanProceed: safe, Issues: issues}
}

// Result reports one archival attempt. Failures are part of the result, not
// errors: callers batch-report them and the filesystem is guaranteed to be
// in the pre-attempt state whenever Success is false and the original had
// not yet been removed.
type Result struct {
	Success      bool
	OriginalPath string
	ArchivePath  string
	Timestamp    time.Time
	Error        string

	// Metadata is the record written into the archive, populated on success
	// so callers can register it with the index.
	Metadata *Metadata
}

// Archive moves the spec at specPath into the archive root.
//
// The attempt runs validating → copying → writing-metadata →
// removing-original. A failure in the copy or metadata step removes the
// partial destination and leaves the original untouched.
func (e *Engine) Archive(specPath string) Result {
	now := e.now()
	result := Result{OriginalPath: specPath, Timestamp: now}

	e.logger.Debug("archival attempt", "spec", specPath, "phase", phaseValidating)
	safety := e.CheckSafety(specPath)
	if !safety.CanProceed {
		result.Error = fmt.Sprintf("spec failed safety validation: %s; fix the validation issue and retry",
			strings.Join(safety.Issues, "; "))
		return result
	}

	completion, err := e.detector.CheckSpec(specPath)
	if err != nil {
		result.Error = fmt.Sprintf("reading task list: %v", err)
		return result
	}

	specName := filepath.Base(specPath)
	dest, err := e.archiveDestination(specName, now)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	e.logger.Debug("archival attempt", "spec", specPath, "phase", phaseCopying, "destination", dest)
	if err := fileutil.CopyTree(specPath, dest); err != nil {
		e.rollback(specPath, dest)
		result.Error = errors.Wrap(setuperrors.ErrCopyFailed, err.Error()).Error()
		return result
	}

	e.logger.Debug("archival attempt", "spec", specPath, "phase", phaseWritingMetadata)
	metadata := NewMetadata(SpecInfo{
		SpecName:       specName,
		OriginalPath:   specPath,
		ArchivePath:    dest,
		CompletionDate: completion.LastModified,
		TotalTasks:     completion.TotalTasks,
		CompletedTasks: completion.CompletedTasks,
	}, now)
	if err := fileutil.AtomicWriteJSON(filepath.Join(dest, paths.MetadataFileName), metadata); err != nil {
		e.rollback(specPath, dest)
		result.Error = errors.Wrap(setuperrors.ErrCopyFailed, err.Error()).Error()
		return result
	}

	e.logger.Debug("archival attempt", "spec", specPath, "phase", phaseRemovingOriginal)
	if err := os.RemoveAll(specPath); err != nil {
		// The archive copy is complete and kept; only the original removal
		// failed. Do not roll back a fully written archive.
		result.ArchivePath = dest
		result.Error = fmt.Sprintf("archive written but removing original failed: %v; check permissions", err)
		return result
	}

	e.logger.Info("spec archived", "spec", specName, "archive", dest,
		"tasks", completion.TotalTasks)

	result.Success = true
	result.ArchivePath = dest
	result.Metadata = &metadata
	return result
}

// Metadata rebuilds the metadata record the engine would write for specPath
// without touching disk, for dry runs.
func (e *Engine) Metadata(specPath string, now time.Time) (Metadata, error) {
	completion, err := e.detector.CheckSpec(specPath)
	if err != nil {
		return Metadata{}, err
	}
	return NewMetadata(SpecInfo{
		SpecName:       filepath.Base(specPath),
		OriginalPath:   specPath,
		CompletionDate: completion.LastModified,
		TotalTasks:     completion.TotalTasks,
		CompletedTasks: completion.CompletedTasks,
	}, now), nil
}

// archiveDestination computes a unique destination directory for a spec.
// The base form is <archiveRoot>/<YYYY-MM-DD>_<name>. A same-day collision
// appends the time of day (_150405); if that also exists, a counter is
// appended (_150405_2, _150405_3, ...). Deterministic and never reused.
func (e *Engine) archiveDestination(specName string, now time.Time) (string, error) {
	if err := os.MkdirAll(e.archiveRoot, 0o755); err != nil {
		return "", errors.Wrap(err, "creating archive root")
	}

	base := filepath.Join(e.archiveRoot, now.Format("2006-01-02")+"_"+specName)
	if _, err := os.Stat(base); os.IsNotExist(err) {
		return base, nil
	}

	timed := base + "_" + now.Format("150405")
	if _, err := os.Stat(timed); os.IsNotExist(err) {
		return timed, nil
	}

	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d", timed, i)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, nil
		}
	}
}

// rollback deletes a partially written destination after a failed attempt.
func (e *Engine) rollback(specPath, dest string) {
	e.logger.Warn("archival failed, rolling back", "spec", specPath,
		"phase", phaseRollingBack, "destination", dest)
	if err := os.RemoveAll(dest); err != nil {
		e.logger.Error("rollback failed; partial archive left behind",
			"destination", dest, "error", err)
	}
}
