package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/sarchlab/chronos/core"
	"github.com/sarchlab/chronos/monitor"
)

var (
	monitorSeed        uint64
	monitorPort        int
	monitorOpenBrowser bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor [scenario]",
	Short: "Run a scenario under the HTTP introspection server, paused until resumed.",
	Long: `monitor starts a scenario's runtime paused and serves its task table,
ready queue depth, and timer wheel contents over HTTP until the process is
interrupted. Resume/pause the run itself through the server's API.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scenario, err := lookupScenario(args[0])
		if err != nil {
			return err
		}

		rt := core.NewRuntime(core.WithSeed(monitorSeed))
		rt.Pause()

		srv := monitor.NewServer(rt).WithPortNumber(monitorPort)
		addr, err := srv.Start()
		if err != nil {
			return fmt.Errorf("chronos: starting monitor: %w", err)
		}
		fmt.Fprintf(os.Stderr, "monitor listening on %s (paused; resume via the API)\n", addr)

		if monitorOpenBrowser {
			if err := browser.OpenURL(addr); err != nil {
				fmt.Fprintf(os.Stderr, "chronos: could not open browser: %v\n", err)
			}
		}

		scenario(rt)

		done := make(chan error, 1)
		go func() { done <- rt.Run() }()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-done:
			fmt.Printf("elapsed=%s\n", rt.Elapsed())
			return err
		case <-sig:
			fmt.Fprintln(os.Stderr, "chronos: interrupted, abandoning remaining tasks")
			return nil
		}
	},
}

func init() {
	monitorCmd.Flags().Uint64Var(&monitorSeed, "seed", 1, "RNG seed the runtime is constructed with")
	monitorCmd.Flags().IntVar(&monitorPort, "port", 0, "port to listen on (0 picks an ephemeral port)")
	monitorCmd.Flags().BoolVar(&monitorOpenBrowser, "open", false, "open the monitor URL in the default browser")
}
