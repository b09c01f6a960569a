package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chainsafe/ledger-provisioner/pkg/app/provisioner"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Provision identities and assets and print the report",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("parallel") {
			cfg.Parallel, _ = cmd.Flags().GetBool("parallel")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return provisioner.NewRunner(cfg, cmd.OutOrStdout()).Run(ctx)
	},
}

func init() {
	runCmd.Flags().Bool("parallel", false, "Provision the identity groups concurrently")
	rootCmd.AddCommand(runCmd)
	// A bare invocation provisions.
	rootCmd.RunE = runCmd.RunE
	rootCmd.Flags().AddFlagSet(runCmd.Flags())
}
