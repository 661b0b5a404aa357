package archive

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-tools/claude-setup/internal/logging"
)

var testNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

// newSpecDir creates a complete spec directory whose tasks.md has settled
// (mtime one hour in the past relative to testNow).
func newSpecDir(t *testing.T, root, name string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0755))

	docs := map[string]string{
		"requirements.md": "# Requirements\n\nWhat the feature must do.\n",
		"design.md":       "# Design\n\nHow the feature is built.\n",
		"tasks.md":        "- [x] Implement the feature\n- [x] Write the tests\n",
	}
	for name, content := range docs {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))
	}

	settled := testNow.Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "tasks.md"), settled, settled))
	return dir
}

func newTestEngine(t *testing.T, archiveRoot string) *Engine {
	t.Helper()
	return NewEngine(archiveRoot,
		WithLogger(logging.ForTest(t)),
		WithClock(func() time.Time { return testNow }))
}

func TestCheckSafety(t *testing.T) {
	root := t.TempDir()
	e := newTestEngine(t, filepath.Join(root, "archive"))

	t.Run("settled complete spec is safe", func(t *testing.T) {
		spec := newSpecDir(t, root, "safe-spec")
		report := e.CheckSafety(spec)
		assert.True(t, report.IsSafe)
		assert.True(t, report.CanProceed)
		assert.Empty(t, report.Issues)
	})

	t.Run("missing directory", func(t *testing.T) {
		report := e.CheckSafety(filepath.Join(root, "ghost"))
		assert.False(t, report.IsSafe)
		require.Len(t, report.Issues, 1)
		assert.Contains(t, report.Issues[0], "does not exist")
	})

	t.Run("missing required file", func(t *testing.T) {
		spec := newSpecDir(t, root, "no-design")
		require.NoError(t, os.Remove(filepath.Join(spec, "design.md")))
		report := e.CheckSafety(spec)
		assert.False(t, report.IsSafe)
		assert.Contains(t, report.Issues, "missing required file: design.md")
	})

	t.Run("recently edited tasks file", func(t *testing.T) {
		spec := newSpecDir(t, root, "still-editing")
		recent := testNow.Add(-time.Minute)
		require.NoError(t, os.Chtimes(filepath.Join(spec, "tasks.md"), recent, recent))

		report := e.CheckSafety(spec)
		assert.False(t, report.IsSafe)
		assert.False(t, report.CanProceed)
		require.Len(t, report.Issues, 1)
		assert.Contains(t, report.Issues[0], "quiet period")
	})
}

func TestArchive_Success(t *testing.T) {
	root := t.TempDir()
	archiveRoot := filepath.Join(root, "archive")
	e := newTestEngine(t, archiveRoot)

	spec := newSpecDir(t, root, "user-auth")
	tasksMtime := testNow.Add(-time.Hour)

	result := e.Archive(spec)
	require.True(t, result.Success, "archive failed: %s", result.Error)
	assert.Empty(t, result.Error)
	assert.Equal(t, spec, result.OriginalPath)
	assert.Equal(t, testNow, result.Timestamp)

	wantDest := filepath.Join(archiveRoot, "2026-03-14_user-auth")
	assert.Equal(t, wantDest, result.ArchivePath)

	// Original is gone, archive holds all documents.
	_, err := os.Stat(spec)
	assert.True(t, os.IsNotExist(err), "original spec directory must be removed")
	for _, name := range []string{"requirements.md", "design.md", "tasks.md"} {
		_, err := os.Stat(filepath.Join(wantDest, name))
		assert.NoError(t, err, "archived copy missing %s", name)
	}

	// Timestamps survive the copy.
	fi, err := os.Stat(filepath.Join(wantDest, "tasks.md"))
	require.NoError(t, err)
	assert.True(t, fi.ModTime().Equal(tasksMtime), "tasks.md mtime = %v, want %v", fi.ModTime(), tasksMtime)

	// Metadata sidecar matches the result.
	data, err := os.ReadFile(filepath.Join(wantDest, ".archive-metadata.json"))
	require.NoError(t, err)
	var meta Metadata
	require.NoError(t, json.Unmarshal(data, &meta))
	assert.Equal(t, "user-auth", meta.SpecName)
	assert.Equal(t, spec, meta.OriginalPath)
	assert.Equal(t, wantDest, meta.ArchivePath)
	assert.Equal(t, 2, meta.TotalTasks)
	assert.Equal(t, 2, meta.CompletedTasks)
	assert.Equal(t, MetadataVersion, meta.Version)

	require.NotNil(t, result.Metadata)
	assert.Equal(t, meta.SpecName, result.Metadata.SpecName)
	assert.Equal(t, meta.ArchivePath, result.Metadata.ArchivePath)
	assert.True(t, result.Metadata.ArchivalDate.Equal(meta.ArchivalDate))
	assert.True(t, result.Metadata.CompletionDate.Equal(tasksMtime))
}

func TestArchive_DestinationCollision(t *testing.T) {
	root := t.TempDir()
	archiveRoot := filepath.Join(root, "archive")
	e := newTestEngine(t, archiveRoot)

	base := filepath.Join(archiveRoot, "2026-03-14_payments")
	timed := base + "_092653"

	first := e.Archive(newSpecDir(t, root, "payments"))
	require.True(t, first.Success, first.Error)
	assert.Equal(t, base, first.ArchivePath)

	second := e.Archive(newSpecDir(t, root, "payments"))
	require.True(t, second.Success, second.Error)
	assert.Equal(t, timed, second.ArchivePath)

	third := e.Archive(newSpecDir(t, root, "payments"))
	require.True(t, third.Success, third.Error)
	assert.Equal(t, timed+"_2", third.ArchivePath)
}

func TestArchive_SafetyFailureLeavesOriginal(t *testing.T) {
	root := t.TempDir()
	archiveRoot := filepath.Join(root, "archive")
	e := newTestEngine(t, archiveRoot)

	spec := newSpecDir(t, root, "fresh-edits")
	recent := testNow.Add(-time.Second)
	require.NoError(t, os.Chtimes(filepath.Join(spec, "tasks.md"), recent, recent))

	result := e.Archive(spec)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "safety validation")
	assert.Contains(t, result.Error, "retry")
	assert.Empty(t, result.ArchivePath)
	assert.Nil(t, result.Metadata)

	// Nothing moved, nothing created.
	_, err := os.Stat(spec)
	assert.NoError(t, err, "original must be untouched")
	_, err = os.Stat(archiveRoot)
	assert.True(t, os.IsNotExist(err), "archive root must not be created for a rejected spec")
}

func TestArchive_DestinationFailureLeavesOriginal(t *testing.T) {
	root := t.TempDir()

	// A regular file where the archive root should be makes every write fail.
	archiveRoot := filepath.Join(root, "archive")
	require.NoError(t, os.WriteFile(archiveRoot, []byte("in the way"), 0600))

	e := newTestEngine(t, archiveRoot)
	spec := newSpecDir(t, root, "blocked")

	result := e.Archive(spec)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)

	_, err := os.Stat(spec)
	assert.NoError(t, err, "original must be untouched after a failed attempt")
	for _, name := range []string{"requirements.md", "design.md", "tasks.md"} {
		_, err := os.Stat(filepath.Join(spec, name))
		assert.NoError(t, err)
	}
}

func TestEngine_Metadata(t *testing.T) {
	root := t.TempDir()
	e := newTestEngine(t, filepath.Join(root, "archive"))
	spec := newSpecDir(t, root, "preview")

	meta, err := e.Metadata(spec, testNow)
	require.NoError(t, err)
	assert.Equal(t, "preview", meta.SpecName)
	assert.Equal(t, spec, meta.OriginalPath)
	assert.Empty(t, meta.ArchivePath)
	assert.Equal(t, 2, meta.TotalTasks)
	assert.Equal(t, 2, meta.CompletedTasks)
	assert.True(t, meta.ArchivalDate.Equal(testNow))

	// A dry run never touches disk.
	_, statErr := os.Stat(filepath.Join(root, "archive"))
	assert.True(t, os.IsNotExist(statErr))
}
