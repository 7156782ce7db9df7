package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/guiyumin/socialdl/internal/core/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create socialdl config file with default values",
	RunE: func(cmd *cobra.Command, args []string) error {
		if initForce {
			if err := config.Save(config.DefaultConfig()); err != nil {
				return err
			}
		} else if err := config.Init(); err != nil {
			return fmt.Errorf("%w (use --force to overwrite)", err)
		}

		color.New(color.FgGreen).Printf("Saved %s\n", config.SavePath())
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}
