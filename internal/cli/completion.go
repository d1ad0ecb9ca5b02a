package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/tally/internal/chain"
)

// completionCmd generates shell completion scripts.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion scripts for tally.

To load completions:

Bash:
  $ source <(tally completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ tally completion bash > /etc/bash_completion.d/tally
  # macOS:
  $ tally completion bash > $(brew --prefix)/etc/bash_completion.d/tally

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ tally completion zsh > "${fpath[1]}/_tally"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ tally completion fish | source

  # To load completions for each session, execute once:
  $ tally completion fish > ~/.config/fish/completions/tally.fish

PowerShell:
  PS> tally completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> tally completion powershell > tally.ps1
  # and source this file from your PowerShell profile.
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletion(w)
		case "zsh":
			return cmd.Root().GenZshCompletion(w)
		case "fish":
			return cmd.Root().GenFishCompletion(w, true)
		case "powershell":
			return cmd.Root().GenPowerShellCompletionWithDesc(w)
		}
		return nil
	},
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(completionCmd)
}

// completeChainKeys completes built-in chain keys. For comma-separated values
// only the last element is completed and keys already listed are skipped.
func completeChainKeys(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	prefix, partial := "", toComplete
	if i := strings.LastIndex(toComplete, ","); i >= 0 {
		prefix, partial = toComplete[:i+1], toComplete[i+1:]
	}

	chosen := make(map[string]bool)
	for _, key := range strings.Split(prefix, ",") {
		chosen[strings.ToLower(strings.TrimSpace(key))] = true
	}

	var out []string
	for _, key := range chain.DefaultRegistry().Keys() {
		if !chosen[key] && strings.HasPrefix(key, strings.ToLower(partial)) {
			out = append(out, prefix+key)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
}
