package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/guiyumin/socialdl/internal/core/config"
	"github.com/guiyumin/socialdl/internal/core/version"
)

var configPath string

// errReported means the failure was already shown to the user
var errReported = errors.New("already reported")

var rootCmd = &cobra.Command{
	Use:   "socialdl [url]",
	Short: "Resolve direct media links from social media posts",
	Long: `socialdl resolves a TikTok, Instagram, Pinterest, Facebook, Likee,
YouTube or Twitter/X post URL into direct video, audio and image links.

Run it with a URL to resolve a single post, or start the HTTP API with
'socialdl serve'.`,
	Version:       version.Version,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return runExtract(args[0])
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: "+config.SavePath()+")")
	addExtractFlags(rootCmd)
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		}
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
