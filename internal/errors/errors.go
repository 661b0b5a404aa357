package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Exit codes for CLI applications.
const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess = 0

	// ExitUser indicates a user-related error (invalid input, configuration, etc.).
	ExitUser = 1

	// ExitSystem indicates a system-related error (I/O, permissions, etc.).
	ExitSystem = 2
)

// Sentinel errors for the archival subsystem's failure taxonomy.
var (
	// ErrValidationFailed indicates a spec or config failed structural or
	// semantic checks. Always recoverable: fix the reported issue and retry.
	ErrValidationFailed = errors.New("validation failed")

	// ErrCopyFailed indicates an I/O failure mid-copy. The partial archive
	// has already been rolled back when this surfaces.
	ErrCopyFailed = errors.New("copy failed")

	// ErrConfigInvalid indicates the archival configuration is invalid or
	// corrupted. Never silently coerced to defaults outside the explicit
	// legacy-migration path.
	ErrConfigInvalid = errors.New("invalid configuration")

	// ErrSpecNotFound indicates the spec directory does not exist.
	ErrSpecNotFound = errors.New("spec not found")

	// ErrSpecsRootNotFound indicates the specs root directory does not exist.
	ErrSpecsRootNotFound = errors.New("specs directory not found")

	// ErrArchiveExists indicates the archive destination is already occupied.
	ErrArchiveExists = errors.New("archive already exists")

	// ErrPermissionDenied indicates a filesystem permission failure.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrIncompleteSpec indicates a spec still has unchecked tasks.
	ErrIncompleteSpec = errors.New("spec is not complete")

	// ErrIndexCorrupted indicates the archive index file exists but cannot
	// be parsed. Corruption is surfaced, never papered over with an empty index.
	ErrIndexCorrupted = errors.New("archive index corrupted")

	// ErrConcurrentAccess is reserved for cross-process lock conflicts.
	ErrConcurrentAccess = errors.New("concurrent access")
)

// SpecError attaches the spec path to an underlying error so callers can
// report which spec failed without parsing the message.
type SpecError struct {
	SpecPath string
	Err      error
}

// NewSpecError wraps err with the spec path it relates to.
func NewSpecError(specPath string, err error) *SpecError {
	return &SpecError{SpecPath: specPath, Err: err}
}

func (e *SpecError) Error() string {
	return fmt.Sprintf("spec %s: %v", e.SpecPath, e.Err)
}

// Unwrap returns the underlying error, enabling errors.Is and errors.As
// to examine the error chain.
func (e *SpecError) Unwrap() error {
	return e.Err
}

// ExitError wraps an error with an exit code and optional suggestion for CLI
// applications. It implements the error interface and supports unwrapping.
type ExitError struct {
	// Err is the underlying error that caused the exit.
	Err error

	// Code is the exit code to return to the operating system.
	Code int

	// Suggestion is an optional actionable suggestion for the user.
	Suggestion string
}

// NewExitError creates an ExitError with the given underlying error and exit code.
func NewExitError(err error, code int) *ExitError {
	return &ExitError{
		Err:  err,
		Code: code,
	}
}

// NewUserError creates an ExitError with ExitUser code and a suggestion.
func NewUserError(err error, suggestion string) *ExitError {
	return &ExitError{
		Err:        err,
		Code:       ExitUser,
		Suggestion: suggestion,
	}
}

// NewSystemError creates an ExitError with ExitSystem code and a suggestion.
func NewSystemError(err error, suggestion string) *ExitError {
	return &ExitError{
		Err:        err,
		Code:       ExitSystem,
		Suggestion: suggestion,
	}
}

// Error returns the error message from the underlying error.
// If the underlying error is nil, it returns a generic message with the exit code.
func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ExitError) Unwrap() error {
	return e.Err
}
