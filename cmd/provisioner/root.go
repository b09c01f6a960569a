package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	apperrors "github.com/chainsafe/ledger-provisioner/pkg/app/errors"
	"github.com/chainsafe/ledger-provisioner/pkg/config"
)

var rootCmd = &cobra.Command{
	Use:   "provisioner",
	Short: "Provisions test identities and token classes on a Hedera network",
	Long: `provisioner creates one sender/receiver pair per key scheme, issues a fungible
and a non-fungible token class for each sender and prints the resulting
credentials as a JSON report on stdout.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the code matching the failure category.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(apperrors.ExitCode(apperrors.CategoryOf(err)))
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to configuration file (optional, env vars take precedence)")
	rootCmd.PersistentFlags().String("network", "", "Network override (testnet, previewnet, mainnet, local)")
}

// loadConfig loads the configuration and applies command line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if network, _ := cmd.Flags().GetString("network"); network != "" {
		cfg.Network.Name = network
		if err := cfg.Validate(); err != nil {
			return nil, apperrors.ConfigError(err, "config validation failed")
		}
	}
	return cfg, nil
}
