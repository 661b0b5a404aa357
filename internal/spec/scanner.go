// Package spec discovers spec directories on disk and validates their
// structure ahead of archival.
package spec

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	setuperrors "github.com/spec-tools/claude-setup/internal/errors"
	"github.com/spec-tools/claude-setup/internal/logging"
	"github.com/spec-tools/claude-setup/internal/paths"
	"github.com/spec-tools/claude-setup/internal/task"
	"github.com/spec-tools/claude-setup/pkg/fileutil"
)

// minContentLength is the threshold below which a required document is
// considered suspiciously short. Short content is advisory, not blocking.
const minContentLength = 50

// Scanner enumerates and validates spec directories under a single specs
// root. The root is fixed at construction so multiple scanners can target
// different repositories without shared state.
type Scanner struct {
	specsRoot string
	detector  *task.Detector
	logger    *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the scanner's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		s.logger = logger
	}
}

// WithDetector sets the completion detector used to classify specs.
func WithDetector(d *task.Detector) Option {
	return func(s *Scanner) {
		s.detector = d
	}
}

// NewScanner creates a Scanner rooted at specsRoot.
func NewScanner(specsRoot string, opts ...Option) *Scanner {
	s := &Scanner{
		specsRoot: specsRoot,
		detector:  task.NewDetector(),
		logger:    logging.NewDiscard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the specs root this scanner operates on.
func (s *Scanner) Root() string {
	return s.specsRoot
}

// All returns every spec directory under the specs root, sorted
// lexicographically. A directory qualifies as a spec iff it directly
// contains a tasks.md file. The reserved archive directory is excluded.
//
// A missing specs root is an error, not an empty result.
func (s *Scanner) All() ([]string, error) {
	entries, err := os.ReadDir(s.specsRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(setuperrors.ErrSpecsRootNotFound, "%s", s.specsRoot)
		}
		return nil, errors.Wrap(err, "reading specs directory")
	}

	var specs []string
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == paths.ArchiveDirName {
			continue
		}
		specPath := filepath.Join(s.specsRoot, entry.Name())
		if _, err := os.Stat(filepath.Join(specPath, paths.TasksFileName)); err != nil {
			continue
		}
		specs = append(specs, specPath)
	}

	sort.Strings(specs)
	return specs, nil
}

// Completed returns specs whose task list is fully checked off.
// Specs whose tasks.md cannot be parsed are treated as incomplete.
func (s *Scanner) Completed() ([]string, error) {
	return s.partition(true)
}

// Incomplete returns specs with at least one unchecked or unparseable task list.
func (s *Scanner) Incomplete() ([]string, error) {
	return s.partition(false)
}

func (s *Scanner) partition(wantComplete bool) ([]string, error) {
	specs, err := s.All()
	if err != nil {
		return nil, err
	}

	var out []string
	for _, specPath := range specs {
		completion, err := s.detector.CheckSpec(specPath)
		complete := err == nil && completion.IsComplete
		if err != nil {
			s.logger.Debug("treating unparseable spec as incomplete",
				"spec", specPath, "error", err)
		}
		if complete == wantComplete {
			out = append(out, specPath)
		}
	}
	return out, nil
}

// ValidationResult reports structural validation of a single spec directory.
// Issues are blocking; warnings are advisory.
type ValidationResult struct {
	IsValid  bool
	Issues   []string
	Warnings []string
}

// Validate checks a spec directory's structure: the three required documents
// must exist and be non-empty, and tasks.md must pass format validation.
// Short content, unexpected extra entries, and a fully completed task list
// are advisory warnings.
func (s *Scanner) Validate(specPath string) ValidationResult {
	result := ValidationResult{IsValid: true}

	info, err := os.Stat(specPath)
	if err != nil || !info.IsDir() {
		result.IsValid = false
		result.Issues = append(result.Issues, fmt.Sprintf("spec directory does not exist: %s", specPath))
		return result
	}

	required := make(map[string]bool, len(paths.RequiredSpecFiles))
	for _, name := range paths.RequiredSpecFiles {
		required[name] = true
	}

	for _, name := range paths.RequiredSpecFiles {
		filePath := filepath.Join(specPath, name)
		fi, err := os.Stat(filePath)
		if err != nil {
			result.IsValid = false
			result.Issues = append(result.Issues, fmt.Sprintf("missing required file: %s", name))
			continue
		}
		if fi.Size() == 0 {
			result.IsValid = false
			result.Issues = append(result.Issues, fmt.Sprintf("required file is empty: %s", name))
			continue
		}
		if fi.Size() < minContentLength {
			result.Warnings = append(result.Warnings, fmt.Sprintf("file has very little content: %s", name))
		}
	}

	// Unexpected entries beyond the three required documents.
	entries, err := os.ReadDir(specPath)
	if err == nil {
		for _, entry := range entries {
			if !required[entry.Name()] {
				result.Warnings = append(result.Warnings, fmt.Sprintf("unexpected entry: %s", entry.Name()))
			}
		}
	}

	// Task list format and completion state.
	tasksPath := filepath.Join(specPath, paths.TasksFileName)
	if data, err := fileutil.ReadFileWithLimit(tasksPath); err == nil {
		content := string(data)
		format := s.detector.ValidateFormat(content)
		if !format.IsValid {
			result.IsValid = false
			result.Issues = append(result.Issues, format.Issues...)
		} else {
			// Non-blocking format notes (minority of malformed markers).
			result.Warnings = append(result.Warnings, format.Issues...)
			if s.detector.IsComplete(content) {
				result.Warnings = append(result.Warnings, "all tasks complete: spec is ready for archival")
			}
		}
	}

	return result
}

// ScanReport aggregates validation over all specs. Issues maps each spec
// path to its combined problem list; warnings carry a "WARNING: " prefix so
// they remain distinguishable after flattening.
type ScanReport struct {
	TotalSpecs   int
	ValidSpecs   int
	InvalidSpecs int
	Issues       map[string][]string
}

// ScanAll validates every spec under the root and aggregates the results.
func (s *Scanner) ScanAll() (ScanReport, error) {
	specs, err := s.All()
	if err != nil {
		return ScanReport{}, err
	}

	report := ScanReport{
		TotalSpecs: len(specs),
		Issues:     make(map[string][]string),
	}

	for _, specPath := range specs {
		result := s.Validate(specPath)
		if result.IsValid {
			report.ValidSpecs++
		} else {
			report.InvalidSpecs++
		}

		combined := make([]string, 0, len(result.Issues)+len(result.Warnings))
		combined = append(combined, result.Issues...)
		for _, w := range result.Warnings {
			combined = append(combined, "WARNING: "+w)
		}
		if len(combined) > 0 {
			report.Issues[specPath] = combined
		}
	}

	return report, nil
}

// ReadyForArchival returns completed specs that also pass structural
// validation, sorted lexicographically.
func (s *Scanner) ReadyForArchival() ([]string, error) {
	completed, err := s.Completed()
	if err != nil {
		return nil, err
	}

	var ready []string
	for _, specPath := range completed {
		if result := s.Validate(specPath); result.IsValid {
			ready = append(ready, specPath)
		} else {
			s.logger.Debug("completed spec failed validation",
				"spec", specPath, "issues", strings.Join(result.Issues, "; "))
		}
	}
	return ready, nil
}

// Stats summarizes the scanner's view of the specs root.
type Stats struct {
	Total            int
	Completed        int
	Incomplete       int
	Valid            int
	Invalid          int
	ReadyForArchival int
}

// Stats computes aggregate counts over all specs.
func (s *Scanner) Stats() (Stats, error) {
	specs, err := s.All()
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Total: len(specs)}
	for _, specPath := range specs {
		completion, err := s.detector.CheckSpec(specPath)
		complete := err == nil && completion.IsComplete
		if complete {
			stats.Completed++
		} else {
			stats.Incomplete++
		}

		if result := s.Validate(specPath); result.IsValid {
			stats.Valid++
			if complete {
				stats.ReadyForArchival++
			}
		} else {
			stats.Invalid++
		}
	}
	return stats, nil
}
