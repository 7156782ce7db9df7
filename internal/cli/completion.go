package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/guiyumin/socialdl/internal/core/platform"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion script for socialdl.

Bash:
  # Add to ~/.bashrc:
  source <(socialdl completion bash)

  # Or install to system:
  socialdl completion bash > /etc/bash_completion.d/socialdl

Zsh:
  # Add to ~/.zshrc:
  source <(socialdl completion zsh)

  # Or install to fpath:
  socialdl completion zsh > "${fpath[1]}/_socialdl"

Fish:
  socialdl completion fish > ~/.config/fish/completions/socialdl.fish

PowerShell:
  socialdl completion powershell >> $PROFILE
`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletion(os.Stdout)
		default:
			return cmd.Help()
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}

// registerExtractCompletions must run after the extract flags are defined
func registerExtractCompletions(cmd *cobra.Command) {
	cmd.ValidArgsFunction = completeURL
	_ = cmd.RegisterFlagCompletionFunc("platform", completePlatform)
	_ = cmd.RegisterFlagCompletionFunc("quality", completeQuality)
}

// completeURL suggests a scheme and the known hosts for the URL argument
func completeURL(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	var completions []string
	for _, tag := range platform.Tags() {
		for _, host := range platform.Hosts(tag) {
			u := "https://" + host + "/"
			if strings.HasPrefix(u, toComplete) {
				completions = append(completions, u)
			}
		}
	}
	return completions, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
}

func completePlatform(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var completions []string
	for _, tag := range platform.Tags() {
		if strings.HasPrefix(string(tag), toComplete) {
			completions = append(completions, string(tag)+"\t"+tag.DisplayName())
		}
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}

func completeQuality(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{"auto\tbest available, hd and sd", "hd\thigh definition", "sd\tstandard definition"}, cobra.ShellCompDirectiveNoFileComp
}
