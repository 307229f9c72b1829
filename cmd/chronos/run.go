package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/chronos/core"
	"github.com/sarchlab/chronos/monitor"
	"github.com/sarchlab/chronos/netsim"
)

var (
	runSeed        uint64
	runTrace       bool
	runSelfWake    int
	runWithMonitor bool
	runMonitorPort int
	runPCAPDir     string
)

var runCmd = &cobra.Command{
	Use:   "run [scenario]",
	Short: "Run a built-in scenario to completion under the runtime façade.",
	Long: `run spawns a scenario's initial tasks, drives macrosteps until no
primary task remains, and reports the elapsed virtual time and any error
the run aborted with. Use "chronos list" to see available scenarios.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scenario, err := lookupScenario(args[0])
		if err != nil {
			return err
		}

		opts := []core.Option{
			core.WithSeed(runSeed),
		}
		if runSelfWake > 0 {
			opts = append(opts, core.WithSelfWakeBudget(runSelfWake))
		}

		rt := core.NewRuntime(opts...)

		if runTrace {
			rt.AcceptHook(core.NewTraceHook(log.New(os.Stderr, "", 0)))
		}

		var srv *monitor.Server
		if runWithMonitor {
			srv = monitor.NewServer(rt).WithPortNumber(runMonitorPort)
			addr, err := srv.Start()
			if err != nil {
				return fmt.Errorf("chronos: starting monitor: %w", err)
			}
			fmt.Fprintf(os.Stderr, "monitor listening on %s\n", addr)
		}

		pcapDir := runPCAPDir
		if pcapDir == "" {
			pcapDir = os.Getenv("CHRONOS_PCAP_DIR")
		}
		pcap, err := netsim.OpenPCAPWriter(pcapDir, args[0]+".chpcap")
		if err != nil {
			return fmt.Errorf("chronos: opening pcap writer: %w", err)
		}
		defer pcap.Close()
		activePCAPWriter = pcap

		scenario(rt)

		runErr := rt.Run()

		fmt.Printf("elapsed=%s seed=%d\n", rt.Elapsed(), runSeed)
		if runErr != nil {
			return fmt.Errorf("chronos: run %q: %w", args[0], runErr)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().Uint64Var(&runSeed, "seed", 1, "RNG seed the runtime is constructed with")
	runCmd.Flags().BoolVar(&runTrace, "trace", false, "log one line per poll/advance event")
	runCmd.Flags().IntVar(&runSelfWake, "selfwake-budget", 0, "override the default self-wake budget (0 keeps the default)")
	runCmd.Flags().BoolVar(&runWithMonitor, "monitor", false, "start the HTTP introspection server for the duration of the run")
	runCmd.Flags().IntVar(&runMonitorPort, "monitor-port", 0, "port for --monitor (0 picks an ephemeral port)")
	runCmd.Flags().StringVar(&runPCAPDir, "pcap-dir", "", "capture delivered netsim packets to this directory (falls back to CHRONOS_PCAP_DIR, disabled if both are empty)")
}
