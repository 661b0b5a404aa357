// Package commands implements the CLI commands for claude-setup.
package commands

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spec-tools/claude-setup/internal/errors"
	"github.com/spec-tools/claude-setup/internal/logging"
	"github.com/spec-tools/claude-setup/internal/paths"
)

// version is set at build time via ldflags.
// Default to a development version for local builds.
const version = "0.1.0"

// specsDirFlag holds the value of the --specs-dir flag.
var specsDirFlag string

// configFlag holds the value of the --config flag.
var configFlag string

// verbosity holds the count of -v flags.
var verbosity int

// quiet holds the value of the -q/--quiet flag.
var quiet bool

// logFormat holds the value of the --log-format flag.
var logFormat string

// logFile holds the path to the log file.
var logFile string

func init() {
	cobra.OnInitialize(initViper)

	rootCmd.PersistentFlags().StringVar(&specsDirFlag, "specs-dir", "",
		"specs directory (default \""+paths.SpecsDir+"\")")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "",
		"archival config file (default \""+paths.ConfigFileName+"\")")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v",
		"increase verbosity level (e.g., -v, -vv)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text",
		"log format: text, json")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"write logs to file in JSON format")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("claude-setup version {{.Version}}\n")

	// Silence errors and usage so we can control error output
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
}

// initViper wires environment overrides: CLAUDE_SETUP_SPECS_DIR and
// CLAUDE_SETUP_CONFIG take effect when the corresponding flag is unset.
func initViper() {
	viper.SetEnvPrefix("CLAUDE_SETUP")
	viper.AutomaticEnv()
	viper.SetDefault("specs_dir", paths.SpecsDir)
	viper.SetDefault("config", "")
}

var rootCmd = &cobra.Command{
	Use:   "claude-setup",
	Short: "Project scaffolding and spec archival for AI pair-programming workflows",
	Long: `claude-setup manages the spec lifecycle of repositories using an AI
pair-programming workflow: it finds spec directories (requirements.md,
design.md, tasks.md), detects when every task is checked off, and moves
completed specs into a dated archive with searchable metadata.

Completed specs are validated before anything moves; a failed archival
always leaves the original spec directory untouched.`,
	Example: `  # Archive every completed, valid spec
  claude-setup archive run

  # See which specs are ready
  claude-setup specs stats

  # Search the archive
  claude-setup archive search auth`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(cmd)
	},
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// log is the process-wide logger configured by setupLogging.
var log = logging.Default()

// setupLogging configures the default logger based on verbosity flags.
func setupLogging(cmd *cobra.Command) error {
	if quiet && verbosity > 0 {
		return errors.NewUserError(nil, "cannot use --quiet and --verbose together")
	}

	var level slog.Level
	if quiet {
		level = slog.LevelError
	} else {
		level = logging.LevelFromVerbosity(verbosity)
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var primaryHandler slog.Handler
	switch logging.Format(logFormat) {
	case logging.FormatJSON:
		primaryHandler = slog.NewJSONHandler(cmd.ErrOrStderr(), opts)
	default:
		primaryHandler = logging.NewHandler(cmd.ErrOrStderr(), opts)
	}

	handlers := []slog.Handler{primaryHandler}

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return errors.NewUserError(err, "failed to open log file")
		}
		// File output uses JSON format
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{
			Level: level,
		}))
	}

	var handler slog.Handler
	if len(handlers) > 1 {
		handler = logging.NewMultiHandler(handlers...)
	} else {
		handler = handlers[0]
	}

	log = slog.New(handler)
	slog.SetDefault(log)

	return nil
}

// repoRoot returns the repository root all relative paths resolve against.
func repoRoot() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// specsRoot resolves the specs directory from flag, environment, or default.
func specsRoot() string {
	dir := specsDirFlag
	if dir == "" {
		dir = viper.GetString("specs_dir")
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(repoRoot(), dir)
	}
	return dir
}

// configPath resolves the archival config file: the --config flag or
// CLAUDE_SETUP_CONFIG wins, then a repo-local file, then an existing
// user-level file under the XDG config home. When nothing exists yet the
// repo-local path is returned as the bootstrap target.
func configPath() string {
	if configFlag != "" {
		return configFlag
	}
	if env := viper.GetString("config"); env != "" {
		return env
	}
	local := paths.ConfigFile(repoRoot())
	if _, err := os.Stat(local); err == nil {
		return local
	}
	if user := paths.UserConfigFile(); user != "" {
		if _, err := os.Stat(user); err == nil {
			return user
		}
	}
	return local
}

// indexPath returns the archive index file path for this repository.
func indexPath() string {
	return paths.IndexFile(repoRoot())
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
