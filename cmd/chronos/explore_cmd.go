package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/chronos/explore"
)

var (
	exploreSeed         uint64
	exploreMaxSchedules int
	exploreDBPath       string
)

var exploreCmd = &cobra.Command{
	Use:   "explore [scenario]",
	Short: "Enumerate a scenario's POR-reduced schedule space.",
	Long: `explore repeatedly runs a scenario, branching at every scheduling
choice point the partial-order-reduction coordinator reports as genuinely
ambiguous (two ready tasks that share a touched resource), and skipping
orderings it can prove are equivalent to one already explored. Use
"chronos list" to see available scenarios.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scenario, err := lookupScenario(args[0])
		if err != nil {
			return err
		}

		opts := []explore.Option{
			explore.WithSeed(exploreSeed),
			explore.WithMaxSchedules(exploreMaxSchedules),
		}

		if exploreDBPath != "" {
			store, err := explore.NewStore(exploreDBPath)
			if err != nil {
				return err
			}
			defer store.Close()
			opts = append(opts, explore.WithStore(store))
		}

		ex := explore.New(scenario, opts...)
		schedules, err := ex.Run()
		if err != nil {
			return fmt.Errorf("chronos: exploring %q: %w", args[0], err)
		}

		fmt.Printf("explored %d schedule(s) of %q\n", len(schedules), args[0])
		for _, s := range schedules {
			fmt.Printf("  #%d path=%v outcome=%s wall=%s\n", s.Index, s.Path, s.Outcome(), s.WallCost)
		}
		return nil
	},
}

func init() {
	exploreCmd.Flags().Uint64Var(&exploreSeed, "seed", 1, "RNG seed every explored run is constructed with")
	exploreCmd.Flags().IntVar(&exploreMaxSchedules, "max-schedules", 10000, "stop after exploring this many distinct schedules")
	exploreCmd.Flags().StringVar(&exploreDBPath, "db", "", "persist one row per schedule to this sqlite database (disabled if empty)")
}
