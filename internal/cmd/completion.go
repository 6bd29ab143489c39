package cmd

import (
	"github.com/spf13/cobra"
)

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: `Generate shell completion script for twitchdesk.

To load completions:

Bash:
  $ source <(twitchdesk completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ twitchdesk completion bash > /etc/bash_completion.d/twitchdesk
  # macOS:
  $ twitchdesk completion bash > $(brew --prefix)/etc/bash_completion.d/twitchdesk

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it.  You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ twitchdesk completion zsh > "${fpath[1]}/_twitchdesk"

  # You will need to start a new shell for this setup to take effect.

  # Oh My Zsh:
  $ mkdir -p ~/.oh-my-zsh/completions
  $ twitchdesk completion zsh > ~/.oh-my-zsh/completions/_twitchdesk

Fish:
  $ twitchdesk completion fish > ~/.config/fish/completions/twitchdesk.fish

PowerShell:
  PS> twitchdesk completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(cmd.OutOrStdout())
			case "zsh":
				return cmd.Root().GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
			}
			return nil
		},
	}
}
