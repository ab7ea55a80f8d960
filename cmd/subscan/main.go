package main

import (
	"github.com/spf13/cobra"

	"subscan/internal/cli"
)

func newRootCmd() *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:           "subscan",
		Short:         "Find recurring subscriptions in a mailbox and report what they cost",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if envFile != "" {
				cli.LoadEnvFile(envFile)
			} else {
				cli.LoadEnvFile()
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Environment file to load (default .env)")

	rootCmd.AddCommand(newScanCmd(nil))
	rootCmd.AddCommand(newRulesCmd())
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		cli.Fatal(err)
	}
}
