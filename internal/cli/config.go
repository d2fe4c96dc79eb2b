package cli

import (
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults, the config file, VOICEMOOD_*
environment variables and flags have been applied. The output is valid
voicemood.yaml.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.File != "" {
			printInfo(cmd.ErrOrStderr(), "config file: %s", cfg.File)
		}
		return cfg.Write(cmd.OutOrStdout())
	},
}
