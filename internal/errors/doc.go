// Package errors provides error handling conventions for the claude-setup CLI.
//
// This package defines sentinel errors for the archival subsystem's failure
// taxonomy, a SpecError type carrying the offending spec path, and an
// ExitError type for CLI exit code handling.
//
// # Sentinel Errors
//
// Sentinel errors allow callers to check for specific error conditions
// using [errors.Is]:
//
//	if errors.Is(err, setuperrors.ErrIndexCorrupted) {
//	    // surface corruption, never fall back to an empty index
//	}
//
// # Propagation Policy
//
// Validation-level problems (a spec failing structural checks, a config value
// out of range) are returned as structured results by the components so
// callers can batch-report them. Only true exceptional conditions, such as
// corrupted index or config JSON or permission failures on those files,
// travel as errors, wrapped with context via cockroachdb/errors and, where a
// spec is involved, a [SpecError].
package errors
