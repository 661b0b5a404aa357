package commands

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/spec-tools/claude-setup/internal/archive"
	"github.com/spec-tools/claude-setup/internal/config"
	setuperrors "github.com/spec-tools/claude-setup/internal/errors"
	"github.com/spec-tools/claude-setup/internal/logging"
	"github.com/spec-tools/claude-setup/internal/spec"
)

// dryRun holds the value of the --dry-run flag for archive run.
var dryRun bool

func init() {
	archiveRunCmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"report what would be archived without touching disk")

	archiveCmd.AddCommand(archiveRunCmd)
	archiveCmd.AddCommand(archiveListCmd)
	archiveCmd.AddCommand(archiveSearchCmd)
	archiveCmd.AddCommand(archiveStatsCmd)
	archiveCmd.AddCommand(archiveRepairCmd)
	rootCmd.AddCommand(archiveCmd)
}

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Archive completed specs and query the archive index",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var archiveRunCmd = &cobra.Command{
	Use:   "run [spec...]",
	Short: "Archive completed, valid specs",
	Long: `Archive specs whose task list is fully checked off and whose structure
passes validation. With no arguments every ready spec is archived; with
arguments only the named specs are attempted.

Each archived spec is copied (permissions and timestamps preserved) into
<archiveLocation>/<YYYY-MM-DD>_<name>, annotated with metadata, removed
from the specs directory, and recorded in the archive index. A failure
rolls back, leaving the original untouched.`,
	RunE: runArchive,
}

func runArchive(cmd *cobra.Command, args []string) error {
	cfgManager := config.NewManager(configPath(), config.WithLogger(log))
	cfg, err := cfgManager.Load()
	if err != nil {
		return setuperrors.NewUserError(err, "fix or remove "+cfgManager.Path())
	}

	if !cfg.Enabled {
		fmt.Fprintln(cmd.OutOrStdout(), "Archival is disabled (enabled=false in config).")
		return nil
	}

	notify := logging.LevelForNotification(cfg.NotificationLevel)

	scanner := spec.NewScanner(specsRoot(), spec.WithLogger(log))
	specs := make([]string, 0, len(args))
	if len(args) > 0 {
		for _, name := range args {
			specs = append(specs, filepath.Join(specsRoot(), name))
		}
	} else {
		specs, err = scanner.ReadyForArchival()
		if err != nil {
			return setuperrors.NewUserError(err, "run claude-setup from the repository root")
		}
	}

	if len(specs) == 0 {
		if notify <= slog.LevelInfo {
			fmt.Fprintln(cmd.OutOrStdout(), "No specs ready for archival.")
		}
		return nil
	}

	archiveRoot := cfg.ArchiveLocation
	if !filepath.IsAbs(archiveRoot) {
		archiveRoot = filepath.Join(repoRoot(), archiveRoot)
	}
	engine := archive.NewEngine(archiveRoot, archive.WithLogger(log))
	index := archive.NewIndexManager(indexPath(), archive.WithIndexLogger(log))

	if dryRun {
		for _, specPath := range specs {
			fmt.Fprintf(cmd.OutOrStdout(), "would archive %s\n", specPath)
			if meta, err := engine.Metadata(specPath, time.Now()); err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d/%d tasks complete\n",
					meta.SpecName, meta.CompletedTasks, meta.TotalTasks)
			}
		}
		return nil
	}

	failed := 0
	for _, specPath := range specs {
		result := engine.Archive(specPath)
		if !result.Success {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "FAILED %s: %s\n", specPath, result.Error)
			continue
		}

		if err := index.Add(*result.Metadata); err != nil {
			return setuperrors.NewSystemError(err, "check permissions on "+index.Path())
		}

		if notify <= slog.LevelInfo {
			fmt.Fprintf(cmd.OutOrStdout(), "archived %s -> %s\n", specPath, result.ArchivePath)
		}
		if notify <= slog.LevelDebug {
			fmt.Fprintf(cmd.OutOrStdout(), "  %d/%d tasks complete, archived at %s\n",
				result.Metadata.CompletedTasks, result.Metadata.TotalTasks,
				result.Metadata.ArchivalDate.Format("2006-01-02 15:04:05"))
		}
	}

	if notify <= slog.LevelInfo {
		fmt.Fprintf(cmd.OutOrStdout(), "%d archived, %d failed\n", len(specs)-failed, failed)
	}
	if failed > 0 {
		return setuperrors.NewExitError(
			errors.Newf("%d of %d archival attempts failed", failed, len(specs)),
			setuperrors.ExitUser)
	}
	return nil
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived specs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		index := archive.NewIndexManager(indexPath(), archive.WithIndexLogger(log))
		entries, err := index.All()
		if err != nil {
			return indexError(err, index.Path())
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No archived specs.")
			return nil
		}
		for _, entry := range entries {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  (%d tasks)\n",
				entry.ArchivalDate.Format("2006-01-02"), entry.SpecName, entry.TotalTasks)
		}
		return nil
	},
}

var archiveSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search archived specs by name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index := archive.NewIndexManager(indexPath(), archive.WithIndexLogger(log))
		entries, err := index.Search(args[0])
		if err != nil {
			return indexError(err, index.Path())
		}
		if len(entries) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No archives matching %q.\n", args[0])
			return nil
		}
		for _, entry := range entries {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", entry.SpecName, entry.ArchivePath)
		}
		return nil
	},
}

var archiveStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show archive statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		index := archive.NewIndexManager(indexPath(), archive.WithIndexLogger(log))
		stats, err := index.Stats()
		if err != nil {
			return indexError(err, index.Path())
		}
		fmt.Fprintf(cmd.OutOrStdout(), "archives: %d\n", stats.TotalArchives)
		fmt.Fprintf(cmd.OutOrStdout(), "tasks:    %d\n", stats.TotalTasks)
		if stats.OldestArchive != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "oldest:   %s\n", stats.OldestArchive.Format("2006-01-02"))
		}
		if stats.NewestArchive != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "newest:   %s\n", stats.NewestArchive.Format("2006-01-02"))
		}
		return nil
	},
}

var archiveRepairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Validate the archive index against disk and prune stale entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		index := archive.NewIndexManager(indexPath(), archive.WithIndexLogger(log))
		report, err := index.ValidateAndRepair()
		if err != nil {
			return indexError(err, index.Path())
		}
		for _, issue := range report.Issues {
			fmt.Fprintln(cmd.OutOrStdout(), issue)
		}
		if report.Repaired {
			fmt.Fprintf(cmd.OutOrStdout(), "index repaired: %d stale entries removed\n", len(report.Issues))
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "index is consistent with disk")
		}
		return nil
	},
}

// indexError classifies index failures for exit-code handling.
func indexError(err error, path string) error {
	if errors.Is(err, setuperrors.ErrIndexCorrupted) {
		return setuperrors.NewUserError(err, "repair or delete "+path)
	}
	return setuperrors.NewSystemError(err, "check permissions on "+path)
}
