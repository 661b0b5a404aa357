package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	setuperrors "github.com/spec-tools/claude-setup/internal/errors"
	"github.com/spec-tools/claude-setup/internal/spec"
)

// completedOnly and incompleteOnly filter specs list output.
var (
	completedOnly  bool
	incompleteOnly bool
)

func init() {
	specsListCmd.Flags().BoolVar(&completedOnly, "completed", false,
		"only specs whose task list is fully checked off")
	specsListCmd.Flags().BoolVar(&incompleteOnly, "incomplete", false,
		"only specs with unchecked tasks")

	specsCmd.AddCommand(specsListCmd)
	specsCmd.AddCommand(specsValidateCmd)
	specsCmd.AddCommand(specsStatsCmd)
	rootCmd.AddCommand(specsCmd)
}

var specsCmd = &cobra.Command{
	Use:   "specs",
	Short: "Inspect and validate spec directories",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var specsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List spec directories",
	RunE: func(cmd *cobra.Command, args []string) error {
		if completedOnly && incompleteOnly {
			return setuperrors.NewUserError(nil, "choose one of --completed or --incomplete")
		}

		scanner := spec.NewScanner(specsRoot(), spec.WithLogger(log))
		var (
			specs []string
			err   error
		)
		switch {
		case completedOnly:
			specs, err = scanner.Completed()
		case incompleteOnly:
			specs, err = scanner.Incomplete()
		default:
			specs, err = scanner.All()
		}
		if err != nil {
			return setuperrors.NewUserError(err, "run claude-setup from the repository root")
		}

		for _, specPath := range specs {
			fmt.Fprintln(cmd.OutOrStdout(), filepath.Base(specPath))
		}
		return nil
	},
}

var specsValidateCmd = &cobra.Command{
	Use:   "validate [spec]",
	Short: "Validate spec structure",
	Long: `Validate one spec, or every spec when no argument is given. Blocking
problems (missing or empty required files, malformed task lists) are
issues; short content, unexpected entries, and completed-and-ready specs
are warnings.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scanner := spec.NewScanner(specsRoot(), spec.WithLogger(log))

		if len(args) == 1 {
			result := scanner.Validate(filepath.Join(specsRoot(), args[0]))
			for _, issue := range result.Issues {
				fmt.Fprintln(cmd.OutOrStdout(), "ISSUE:", issue)
			}
			for _, warning := range result.Warnings {
				fmt.Fprintln(cmd.OutOrStdout(), "WARNING:", warning)
			}
			if !result.IsValid {
				return setuperrors.NewExitError(nil, setuperrors.ExitUser)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "spec is valid")
			return nil
		}

		report, err := scanner.ScanAll()
		if err != nil {
			return setuperrors.NewUserError(err, "run claude-setup from the repository root")
		}
		for specPath, problems := range report.Issues {
			fmt.Fprintln(cmd.OutOrStdout(), filepath.Base(specPath)+":")
			for _, problem := range problems {
				fmt.Fprintln(cmd.OutOrStdout(), "  "+problem)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d specs: %d valid, %d invalid\n",
			report.TotalSpecs, report.ValidSpecs, report.InvalidSpecs)
		if report.InvalidSpecs > 0 {
			return setuperrors.NewExitError(nil, setuperrors.ExitUser)
		}
		return nil
	},
}

var specsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate spec statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		scanner := spec.NewScanner(specsRoot(), spec.WithLogger(log))
		stats, err := scanner.Stats()
		if err != nil {
			return setuperrors.NewUserError(err, "run claude-setup from the repository root")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "total:      %d\n", stats.Total)
		fmt.Fprintf(cmd.OutOrStdout(), "completed:  %d\n", stats.Completed)
		fmt.Fprintf(cmd.OutOrStdout(), "incomplete: %d\n", stats.Incomplete)
		fmt.Fprintf(cmd.OutOrStdout(), "valid:      %d\n", stats.Valid)
		fmt.Fprintf(cmd.OutOrStdout(), "invalid:    %d\n", stats.Invalid)
		fmt.Fprintf(cmd.OutOrStdout(), "ready:      %d\n", stats.ReadyForArchival)
		return nil
	},
}
