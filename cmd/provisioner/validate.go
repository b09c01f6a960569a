package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration without contacting the network",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if _, err := cfg.Provision(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Configuration is valid (network %s, operator %s)\n",
			cfg.Network.Name, cfg.Operator.AccountID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
