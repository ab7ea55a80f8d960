package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"subscan/internal/extract"
)

func newRulesCmd() *cobra.Command {
	var rulesFile string

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Print the effective merchant rule table in evaluation order",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("rules") {
				rulesFile = os.Getenv("MERCHANT_RULES_FILE")
			}
			rules, err := extract.LoadRules(rulesFile)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(map[string][]extract.Rule{"rules": extract.NewResolver(rules).Rules()})
			if err != nil {
				return fmt.Errorf("encode rules: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().StringVar(&rulesFile, "rules", "", "YAML merchant rules file (env MERCHANT_RULES_FILE)")
	return cmd
}
