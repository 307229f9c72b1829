package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the built-in scenario names run/explore/monitor accept.",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range scenarioNames() {
			fmt.Println(name)
		}
		return nil
	},
}
