package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/twitchdesk/twitchdesk-desktop/internal/apply"
	"github.com/twitchdesk/twitchdesk-desktop/internal/launch"
	"github.com/twitchdesk/twitchdesk-desktop/internal/output"
	"github.com/twitchdesk/twitchdesk-desktop/internal/types"
)

var (
	// Global flags
	outputFormat string
	configPath   string
	verbose      bool
	quiet        bool

	// Root-only flags
	skipUpdate bool
)

// Execute runs the binary. The launch mode is decided from the raw process
// arguments before cobra sees them: an apply-update helper never reaches the
// command tree.
func Execute(version, commit, date string) error {
	build = buildInfo{Version: version, Commit: commit, Date: date}
	return run(os.Args[1:])
}

func run(args []string) error {
	// The executable path is only a default for --target-exe here; failing to
	// resolve it must not turn a normal launch into an error.
	var self string
	if apply.HasApplyMarker(args) {
		self, _ = selfPath()
	}

	decision, err := launch.Decide(args, self)
	if decision.Mode == types.LaunchModeApply {
		if err == nil && decision.Invocation.TargetExe == "" {
			err = errors.New("target executable unknown")
		}
		return runApply(decision, err)
	}

	rootCmd := newRootCmd(args)
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func newRootCmd(rawArgs []string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "twitchdesk",
		Short: "TwitchDesk desktop application",
		Long: `TwitchDesk checks for a newer release on startup, installs it through a
short-lived helper process and relaunches itself with the same arguments.

Running without a subcommand starts the application. Arguments the updater
does not know are forwarded unchanged across an update restart.`,
		Version:      build.Version,
		SilenceUsage: true,
		Args:         cobra.ArbitraryArgs,
		// Application arguments are not ours to validate
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(cmd.Context(), rawArgs)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "Output format: text, json, yaml")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to updater config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (errors only)")

	rootCmd.Flags().BoolVar(&skipUpdate, "skip-update", false, "Skip the update check for this launch")

	// Add subcommands
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newUpdateCmd())
	rootCmd.AddCommand(newCacheCmd())
	rootCmd.AddCommand(newCompletionCmd())

	// Register completion function for output flag
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return output.Formats(), cobra.ShellCompDirectiveNoFileComp
	})

	return rootCmd
}

// newWriter returns an output writer for the --output flag
func newWriter(cmd *cobra.Command) (*output.Writer, error) {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	return output.NewWriter(cmd.OutOrStdout(), format), nil
}
