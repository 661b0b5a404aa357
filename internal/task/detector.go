// Package task parses task-list documents (tasks.md) and determines spec
// completion from their checkbox markers.
//
// Marker parsing is a line classifier rather than a single regex: each line
// is normalized, tokenized, and classified as a complete marker, an
// incomplete marker, a malformed marker, a marker missing its list dash, or
// plain text. Malformed markers ([y], [xx], ...) are never counted as either
// state; they are reported as format problems.
package task

import (
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	setuperrors "github.com/spec-tools/claude-setup/internal/errors"
	"github.com/spec-tools/claude-setup/internal/logging"
	"github.com/spec-tools/claude-setup/internal/paths"
	"github.com/spec-tools/claude-setup/pkg/fileutil"
)

// Detector inspects task-list documents for completion state.
type Detector struct {
	logger *slog.Logger
}

// NewDetector creates a Detector with a discard logger.
func NewDetector() *Detector {
	return &Detector{logger: logging.NewDiscard()}
}

// NewDetectorWithLogger creates a Detector with the given logger.
func NewDetectorWithLogger(logger *slog.Logger) *Detector {
	return &Detector{logger: logger}
}

// Completion describes the marker counts of a single spec's tasks.md.
type Completion struct {
	IsComplete     bool
	TotalTasks     int
	CompletedTasks int
	LastModified   time.Time
}

// FormatResult reports task-list format validation.
// Issues may be non-empty even when IsValid is true: a minority of malformed
// markers is flagged but does not invalidate the document.
type FormatResult struct {
	IsValid bool
	Issues  []string
}

// lineKind classifies a single normalized line of a task-list document.
type lineKind int

const (
	lineOther lineKind = iota
	lineComplete
	lineIncomplete
	lineMalformed
	lineNoDash
)

// markerCounts aggregates line classifications over a whole document.
type markerCounts struct {
	complete   int
	incomplete int
	malformed  int
	noDash     int
}

func (c markerCounts) valid() int {
	return c.complete + c.incomplete
}

// normalizeLineEndings folds \r\n and bare \r into \n so that documents with
// mixed line endings split cleanly.
func normalizeLineEndings(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.ReplaceAll(content, "\r", "\n")
}

// classifyLine classifies one line. Leading whitespace (spaces or tabs, any
// nesting depth) is insignificant.
func classifyLine(line string) lineKind {
	trimmed := strings.TrimLeft(line, " \t")

	switch {
	case strings.HasPrefix(trimmed, "- ["):
		return classifyBracket(trimmed[2:])
	case strings.HasPrefix(trimmed, "["):
		if isBracketToken(trimmed) {
			return lineNoDash
		}
		return lineOther
	case strings.HasPrefix(trimmed, "* [") || strings.HasPrefix(trimmed, "+ ["):
		// Marker on a non-dash bullet: marker-like, but not a valid task line.
		if isBracketToken(trimmed[2:]) {
			return lineNoDash
		}
		return lineOther
	default:
		return lineOther
	}
}

// classifyBracket classifies a token that starts with '['.
// "[x]" and "[X]" are complete, "[ ]" is incomplete, any other bracket pair
// near the line start is malformed.
func classifyBracket(token string) lineKind {
	if len(token) >= 3 && token[0] == '[' && token[2] == ']' {
		switch token[1] {
		case 'x', 'X':
			return lineComplete
		case ' ':
			return lineIncomplete
		default:
			return lineMalformed
		}
	}
	// "- [" with no closing bracket in marker position, "- [done]", etc.
	return lineMalformed
}

// isBracketToken reports whether token looks like a checkbox marker ("[c]...").
func isBracketToken(token string) bool {
	return len(token) >= 3 && token[0] == '[' && token[2] == ']'
}

// scan classifies every line of content and aggregates the counts.
func scan(content string) markerCounts {
	var counts markerCounts
	for _, line := range strings.Split(normalizeLineEndings(content), "\n") {
		switch classifyLine(line) {
		case lineComplete:
			counts.complete++
		case lineIncomplete:
			counts.incomplete++
		case lineMalformed:
			counts.malformed++
		case lineNoDash:
			counts.noDash++
		}
	}
	return counts
}

// IsComplete reports whether content describes a fully completed task list:
// at least one well-formed marker, and every well-formed marker checked off.
// An empty or marker-less document is never complete.
func (d *Detector) IsComplete(content string) bool {
	counts := scan(content)
	return counts.valid() > 0 && counts.incomplete == 0
}

// CheckSpec reads tasks.md under specPath and returns its completion state.
// A missing tasks.md is a validation error carrying the spec path.
func (d *Detector) CheckSpec(specPath string) (Completion, error) {
	tasksPath := filepath.Join(specPath, paths.TasksFileName)

	info, err := os.Stat(tasksPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Completion{}, setuperrors.NewSpecError(specPath,
				errors.Wrapf(setuperrors.ErrValidationFailed, "missing %s", paths.TasksFileName))
		}
		return Completion{}, setuperrors.NewSpecError(specPath, errors.Wrap(err, "stat tasks file"))
	}

	data, err := fileutil.ReadFileWithLimit(tasksPath)
	if err != nil {
		return Completion{}, setuperrors.NewSpecError(specPath, errors.Wrap(err, "reading tasks file"))
	}

	counts := scan(string(data))
	return Completion{
		IsComplete:     counts.valid() > 0 && counts.incomplete == 0,
		TotalTasks:     counts.valid(),
		CompletedTasks: counts.complete,
		LastModified:   info.ModTime(),
	}, nil
}

// ValidateFormat checks a task-list document for structural problems.
//
// The document is invalid when it is empty, contains no well-formed markers,
// has more malformed bracket tokens than well-formed markers, or contains
// marker-like tokens that are not dash list items.
func (d *Detector) ValidateFormat(content string) FormatResult {
	if strings.TrimSpace(content) == "" {
		return FormatResult{Issues: []string{"tasks file is empty"}}
	}

	counts := scan(content)
	result := FormatResult{IsValid: true}

	if counts.valid() == 0 {
		result.IsValid = false
		result.Issues = append(result.Issues, "no task markers found")
	}

	if counts.malformed > 0 {
		if counts.malformed > counts.valid() {
			result.IsValid = false
			result.Issues = append(result.Issues,
				"most task markers are malformed (expected \"- [ ]\" or \"- [x]\")")
		} else {
			result.Issues = append(result.Issues,
				"some task markers are malformed and were not counted")
		}
	}

	if counts.noDash > 0 {
		result.IsValid = false
		result.Issues = append(result.Issues,
			"task markers must be dash list items (\"- [ ]\", \"- [x]\")")
	}

	return result
}

// CompletionPercentage returns the spec's completion as a rounded percentage.
// A spec with no well-formed markers is 0% complete.
func (d *Detector) CompletionPercentage(specPath string) (int, error) {
	completion, err := d.CheckSpec(specPath)
	if err != nil {
		return 0, err
	}
	if completion.TotalTasks == 0 {
		return 0, nil
	}
	pct := float64(completion.CompletedTasks) / float64(completion.TotalTasks) * 100
	return int(math.Round(pct)), nil
}

// CompletedSpecs enumerates specsRoot (excluding the reserved archive
// directory) and returns the paths of specs whose tasks.md is fully complete.
// Specs whose tasks.md is missing or unreadable are skipped.
func (d *Detector) CompletedSpecs(specsRoot string) ([]string, error) {
	entries, err := os.ReadDir(specsRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(setuperrors.ErrSpecsRootNotFound, "%s", specsRoot)
		}
		return nil, errors.Wrap(err, "reading specs directory")
	}

	var completed []string
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == paths.ArchiveDirName {
			continue
		}
		specPath := filepath.Join(specsRoot, entry.Name())
		completion, err := d.CheckSpec(specPath)
		if err != nil {
			d.logger.Debug("skipping spec without readable tasks file",
				"spec", specPath, "error", err)
			continue
		}
		if completion.IsComplete {
			completed = append(completed, specPath)
		}
	}

	sort.Strings(completed)
	return completed, nil
}
