package config

import (
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	setuperrors "github.com/spec-tools/claude-setup/internal/errors"
	"github.com/spec-tools/claude-setup/internal/paths"
)

// Version is the configuration schema version written to disk.
const Version = "1.0"

// Notification levels controlling how verbosely archival reports its actions.
const (
	NotificationNone    = "none"
	NotificationMinimal = "minimal"
	NotificationVerbose = "verbose"
)

// DelayMinutes bounds. The delay is a policy hint consumed by an external
// scheduler; the engine itself never sleeps.
const (
	MinDelayMinutes = 0
	MaxDelayMinutes = 1440
)

// Config holds the archival subsystem's settings.
type Config struct {
	// Enabled controls whether automatic archival runs at all.
	Enabled bool `json:"enabled"`

	// DelayMinutes is how long a completed spec must sit before the external
	// scheduler archives it. Range [0, 1440].
	DelayMinutes int `json:"delayMinutes"`

	// ArchiveLocation is the archive root, relative to the repository root.
	ArchiveLocation string `json:"archiveLocation"`

	// NotificationLevel is one of none, minimal, verbose.
	NotificationLevel string `json:"notificationLevel"`

	// BackupEnabled controls whether the config file is backed up before
	// destructive changes.
	BackupEnabled bool `json:"backupEnabled"`
}

// Default returns the default archival configuration.
func Default() Config {
	return Config{
		Enabled:           true,
		DelayMinutes:      10,
		ArchiveLocation:   paths.DefaultArchiveLocation,
		NotificationLevel: NotificationMinimal,
		BackupEnabled:     true,
	}
}

// FieldError reports a validation failure for a single configuration field.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Validate checks cfg against the schema rules. It returns nil for a valid
// config, or an error (wrapping ErrConfigInvalid) naming the first offending
// field.
func Validate(cfg Config) error {
	if cfg.DelayMinutes < MinDelayMinutes || cfg.DelayMinutes > MaxDelayMinutes {
		return &FieldError{
			Field: "delayMinutes",
			Err: errors.Wrapf(setuperrors.ErrConfigInvalid,
				"must be between %d and %d, got %d", MinDelayMinutes, MaxDelayMinutes, cfg.DelayMinutes),
		}
	}

	if err := validateArchiveLocation(cfg.ArchiveLocation); err != nil {
		return &FieldError{Field: "archiveLocation", Err: err}
	}

	switch cfg.NotificationLevel {
	case NotificationNone, NotificationMinimal, NotificationVerbose:
	default:
		return &FieldError{
			Field: "notificationLevel",
			Err: errors.Wrapf(setuperrors.ErrConfigInvalid,
				"must be one of none, minimal, verbose; got %q", cfg.NotificationLevel),
		}
	}

	return nil
}

// validateArchiveLocation enforces that the archive root is a non-empty
// relative path that never escapes the repository.
func validateArchiveLocation(location string) error {
	if location == "" {
		return errors.Wrap(setuperrors.ErrConfigInvalid, "must not be empty")
	}
	if filepath.IsAbs(location) {
		return errors.Wrapf(setuperrors.ErrConfigInvalid, "must be relative, got %q", location)
	}
	for _, segment := range strings.Split(filepath.ToSlash(location), "/") {
		if segment == ".." {
			return errors.Wrapf(setuperrors.ErrConfigInvalid,
				"must not contain parent directory traversal, got %q", location)
		}
	}
	return nil
}
