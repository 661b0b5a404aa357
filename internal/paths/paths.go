// Package paths defines the well-known file and directory names of the
// archival subsystem and resolves them against a repository root.
package paths

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// AppName is the application name used for config file naming.
const AppName = "claude-setup"

// Well-known names within a target repository.
const (
	// SpecsDir is the directory holding spec directories, relative to the
	// repository root.
	SpecsDir = ".kiro/specs"

	// ArchiveDirName is the reserved subdirectory of the specs root that
	// holds archived specs. It is always excluded from scanning.
	ArchiveDirName = "archive"

	// DefaultArchiveLocation is the default archive root, relative to the
	// repository root.
	DefaultArchiveLocation = ".kiro/specs/archive"

	// ConfigFileName is the archival configuration file at the repository root.
	ConfigFileName = ".kiro-archival-config.json"

	// IndexFileName is the archive index file at the repository root.
	IndexFileName = ".archive-index.json"

	// MetadataFileName is the sidecar file written into each archived spec
	// directory.
	MetadataFileName = ".archive-metadata.json"
)

// Required documents of a spec directory, in reporting order.
var RequiredSpecFiles = []string{"requirements.md", "design.md", "tasks.md"}

// TasksFileName is the task-list document checked for completion markers.
const TasksFileName = "tasks.md"

// SpecsRoot returns the specs directory under the given repository root.
func SpecsRoot(repoRoot string) string {
	return filepath.Join(repoRoot, SpecsDir)
}

// ConfigFile returns the archival config file path under the repository root.
func ConfigFile(repoRoot string) string {
	return filepath.Join(repoRoot, ConfigFileName)
}

// IndexFile returns the archive index file path under the repository root.
func IndexFile(repoRoot string) string {
	return filepath.Join(repoRoot, IndexFileName)
}

// UserConfigDir returns the user-level configuration directory for
// claude-setup, used when a repository carries no config of its own.
// Follows the XDG base directory specification (~/.config/claude-setup).
func UserConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// UserConfigFile returns the user-level fallback config file path.
func UserConfigFile() string {
	return filepath.Join(UserConfigDir(), ConfigFileName)
}
