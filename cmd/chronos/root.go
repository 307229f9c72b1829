package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "chronos",
	Short: "chronos drives deterministic discrete-event simulations under a virtual clock.",
	Long: `chronos runs a built-in scenario to completion under the simulation core's
runtime façade, or explores its POR-reduced schedule space looking for every
distinct interleaving a fair scheduler could produce.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is not an error: CHRONOS_PCAP_DIR is optional
		// (packet capture stays off when it and --pcap-dir are both empty).
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("chronos: loading .env: %w", err)
		}
		return nil
	},
}

// Execute adds every child command to the root command and runs it.
func Execute() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(exploreCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(listCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
