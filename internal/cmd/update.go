package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/twitchdesk/twitchdesk-desktop/internal/interactive"
	"github.com/twitchdesk/twitchdesk-desktop/internal/launch"
)

var errDevBuild = errors.New("development builds are not updated; stamp a release version with -ldflags \"-X main.version=X.Y.Z\"")

func newUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Check for and install TwitchDesk updates",
		Long: `Update queries the release feed for the latest TwitchDesk release.

Examples:
  twitchdesk update check             # Show whether a newer release exists
  twitchdesk update check -o json     # Machine-readable result
  twitchdesk update install           # Download, confirm and restart into it
  twitchdesk update install --yes     # Skip the confirmation prompt`,
	}

	cmd.AddCommand(newUpdateCheckCmd())
	cmd.AddCommand(newUpdateInstallCmd())

	return cmd
}

func newUpdateCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check whether a newer release is available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if launch.IsDevBuild(build.Version) {
				return errDevBuild
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			startup, err := newStartup(cfg, newLogger(cfg), nil)
			if err != nil {
				return err
			}
			startup.Reporter = nil

			result, err := startup.Check(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to check for updates: %w", err)
			}

			w, err := newWriter(cmd)
			if err != nil {
				return err
			}
			return w.Write(result)
		},
	}
}

func newUpdateInstallCmd() *cobra.Command {
	var assumeYes bool

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Download the latest release and restart into it",
		Long: `Install downloads the newest release into the update cache, starts the
update helper and exits. The helper replaces this installation and starts
TwitchDesk again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if launch.IsDevBuild(build.Version) {
				return errDevBuild
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			startup, err := newStartup(cfg, newLogger(cfg), nil)
			if err != nil {
				return err
			}
			startup.Reporter = nil

			result, err := startup.Check(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to check for updates: %w", err)
			}

			out := cmd.OutOrStdout()
			if result.Plan == nil {
				_, _ = fmt.Fprintln(out, result.String())
				return nil
			}

			ok, err := interactive.ConfirmInstall(interactive.NewPrompter(),
				result.CurrentVersion, result.LatestVersion, assumeYes, interactive.IsTerminal())
			if err != nil {
				return err
			}
			if !ok {
				_, _ = fmt.Fprintln(out, "Update cancelled.")
				return nil
			}

			_, _ = fmt.Fprintf(out, "Downloading %s...\n", result.AssetName)
			if err := startup.Stage(cmd.Context(), result.Plan); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(out, "✓ Downloaded")

			self, err := selfPath()
			if err != nil {
				return err
			}
			// The relaunched instance starts the application, not this command
			if err := startup.Handoff(self, nil, result.Plan); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(out, "Installing %s; TwitchDesk will restart when done.\n", result.LatestVersion)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Install without asking for confirmation")

	return cmd
}
