package main

import (
	"fmt"
	"sort"

	"github.com/sarchlab/chronos/core"
	"github.com/sarchlab/chronos/explore"
	"github.com/sarchlab/chronos/netsim"
	"github.com/sarchlab/chronos/queueing"
)

// activePCAPWriter is set by the run command before invoking a scenario
// that builds a netsim.Link, so the scenario can attach it as a hook
// without every scenario needing its own --pcap-dir plumbing. Left nil by
// explore/monitor, which never capture packets.
var activePCAPWriter *netsim.PCAPWriter

// scenarios is the built-in registry `run`/`explore` select from by name.
// chronos has no way to load arbitrary user Go code at runtime (there is
// no scripting layer over the simulation core, by design -- spec.md binds
// to no specific I/O runtime and the core is a library, not an
// interpreter), so the CLI demos the engine the same way akita's own
// examples/ping and examples/tickingping ship as runnable acceptance
// scenarios alongside the library they exercise.
var scenarios = map[string]explore.Scenario{
	"echo":       echoScenario,
	"producer":   producerConsumerScenario,
	"broadcast":  broadcastScenario,
	"racy-queue": racyQueueScenario,
}

// scenarioNames returns every registered scenario name, sorted.
func scenarioNames() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupScenario(name string) (explore.Scenario, error) {
	s, ok := scenarios[name]
	if !ok {
		return nil, fmt.Errorf("chronos: unknown scenario %q (known: %v)", name, scenarioNames())
	}
	return s, nil
}

// echoScenario sends three packets, one at a time, across a lossy,
// jittered netsim.Link from a client socket to a server socket and back.
func echoScenario(rt *core.Runtime) {
	link := netsim.NewLink(rt, "echo-link", 0.1, core.Millisecond, 10*core.Millisecond)
	if activePCAPWriter != nil {
		link.AcceptHook(activePCAPWriter)
	}
	server := link.Bind("server")
	client := link.Bind("client")

	core.Spawn(rt, core.SpawnOptions{Primary: true, Name: "server", Group: "netsim-demo"},
		func(ctx *core.TaskContext) (struct{}, error) {
			for i := 0; i < 3; i++ {
				pkt := server.Recv(ctx)
				server.Send(ctx, pkt.Src, pkt.Payload)
			}
			return struct{}{}, nil
		})

	core.Spawn(rt, core.SpawnOptions{Primary: true, Name: "client", Group: "netsim-demo"},
		func(ctx *core.TaskContext) (struct{}, error) {
			for i := 0; i < 3; i++ {
				client.Send(ctx, "server", []byte{byte(i)})
				client.Recv(ctx)
			}
			return struct{}{}, nil
		})
}

// producerConsumerScenario bounces a handful of values through a
// capacity-1 queueing.Queue, forcing the producer to block on a full
// queue at least once.
func producerConsumerScenario(rt *core.Runtime) {
	q := queueing.NewQueue[int](rt, "work", 1)

	core.Spawn(rt, core.SpawnOptions{Primary: true, Name: "producer"},
		func(ctx *core.TaskContext) (struct{}, error) {
			for i := 0; i < 5; i++ {
				q.Push(ctx, i)
			}
			return struct{}{}, nil
		})

	core.Spawn(rt, core.SpawnOptions{Primary: true, Name: "consumer"},
		func(ctx *core.TaskContext) (struct{}, error) {
			for i := 0; i < 5; i++ {
				ctx.Sleep(core.Millisecond)
				q.Pop(ctx)
			}
			return struct{}{}, nil
		})
}

// broadcastScenario publishes three values on a queueing.Topic to two
// independent subscribers.
func broadcastScenario(rt *core.Runtime) {
	topic := queueing.NewTopic[int](rt, "announcements")

	core.Spawn(rt, core.SpawnOptions{Primary: true, Name: "publisher"},
		func(ctx *core.TaskContext) (struct{}, error) {
			for i := 0; i < 3; i++ {
				ctx.Sleep(core.Millisecond)
				topic.Publish(ctx, i)
			}
			return struct{}{}, nil
		})

	for _, name := range []string{"subscriber-a", "subscriber-b"} {
		sub := topic.Subscribe()
		core.Spawn(rt, core.SpawnOptions{Primary: true, Name: name},
			func(ctx *core.TaskContext) (struct{}, error) {
				for i := 0; i < 3; i++ {
					sub.Recv(ctx)
				}
				return struct{}{}, nil
			})
	}
}

// racyQueueScenario is the scenario the `explore` command's examples lean
// on: two independent producers pushing to one shared queue, the
// spec.md §8 scenario 6 setup where POR must explore both relative
// orderings.
func racyQueueScenario(rt *core.Runtime) {
	q := queueing.NewQueue[string](rt, "shared", 4)

	core.Spawn(rt, core.SpawnOptions{Primary: true, Name: "producer-a"},
		func(ctx *core.TaskContext) (struct{}, error) {
			q.Push(ctx, "a")
			return struct{}{}, nil
		})
	core.Spawn(rt, core.SpawnOptions{Primary: true, Name: "producer-b"},
		func(ctx *core.TaskContext) (struct{}, error) {
			q.Push(ctx, "b")
			return struct{}{}, nil
		})
}
