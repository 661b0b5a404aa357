package commands

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/spec-tools/claude-setup/internal/config"
	setuperrors "github.com/spec-tools/claude-setup/internal/errors"
	"github.com/spec-tools/claude-setup/internal/paths"
)

// showFormat holds the value of config show's --format flag.
var showFormat string

func init() {
	configShowCmd.Flags().StringVar(&showFormat, "format", "json",
		"output format: json, yaml")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configResetCmd)
	configCmd.AddCommand(configBackupCmd)
	configCmd.AddCommand(configRestoreCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the archival configuration",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager := config.NewManager(configPath(), config.WithLogger(log))
		cfg, err := manager.Load()
		if err != nil {
			return setuperrors.NewUserError(err, "fix or remove "+manager.Path())
		}

		var out []byte
		switch showFormat {
		case "yaml":
			out, err = yaml.Marshal(cfg)
		default:
			out, err = json.MarshalIndent(cfg, "", "  ")
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a single configuration setting",
	Long: `Change one setting and persist the result. Keys: enabled, delayMinutes,
archiveLocation, notificationLevel, backupEnabled. The merged config is
validated before anything is written.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager := config.NewManager(configPath(), config.WithLogger(log))
		if err := manager.UpdateSetting(args[0], coerceValue(args[1])); err != nil {
			return setuperrors.NewUserError(err, "run claude-setup config show")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s updated\n", args[0])
		return nil
	},
}

// coerceValue converts a CLI argument into the natural type for a setting:
// booleans and integers are recognized, everything else stays a string.
func coerceValue(raw string) any {
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	return raw
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the configuration to defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager := config.NewManager(configPath(), config.WithLogger(log))
		if err := manager.ResetToDefaults(); err != nil {
			return setuperrors.NewSystemError(err, "check permissions on "+manager.Path())
		}
		fmt.Fprintln(cmd.OutOrStdout(), "configuration reset to defaults")
		return nil
	},
}

var configBackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Write a timestamped backup of the configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager := config.NewManager(configPath(), config.WithLogger(log))
		backupPath, err := manager.Backup()
		if err != nil {
			return setuperrors.NewSystemError(err, "check permissions on "+manager.Path())
		}
		fmt.Fprintln(cmd.OutOrStdout(), backupPath)
		return nil
	},
}

var configRestoreCmd = &cobra.Command{
	Use:   "restore <backup-file>",
	Short: "Restore the configuration from a backup file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager := config.NewManager(configPath(), config.WithLogger(log))
		if err := manager.RestoreFromBackup(args[0]); err != nil {
			return setuperrors.NewUserError(err, "pass a backup written by claude-setup config backup")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "configuration restored")
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show which config file is in effect",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), configPath())
		fmt.Fprintf(cmd.OutOrStdout(), "repo-local default: %s\n", paths.ConfigFile(repoRoot()))
		fmt.Fprintf(cmd.OutOrStdout(), "user-level default: %s\n", paths.UserConfigFile())
	},
}
