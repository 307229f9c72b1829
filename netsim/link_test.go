package netsim_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sarchlab/chronos/core"
	"github.com/sarchlab/chronos/netsim"
)

func TestSendDeliversAfterLatency(t *testing.T) {
	rt := core.NewRuntime(core.WithSeed(1))
	link := netsim.NewLink(rt, "lan", 0, 100*core.Millisecond, 100*core.Millisecond)

	a := link.Bind("a")
	b := link.Bind("b")

	var got netsim.Packet

	core.Spawn(rt, core.SpawnOptions{Primary: true, Name: "sender"},
		func(ctx *core.TaskContext) (struct{}, error) {
			a.Send(ctx, "b", []byte("hello"))
			return struct{}{}, nil
		})

	core.Spawn(rt, core.SpawnOptions{Primary: true, Name: "receiver"},
		func(ctx *core.TaskContext) (struct{}, error) {
			got = b.Recv(ctx)
			return struct{}{}, nil
		})

	require.NoError(t, rt.Run())
	require.Equal(t, "a", got.Src)
	require.Equal(t, []byte("hello"), got.Payload)
	require.Equal(t, core.Zero.Add(100*core.Millisecond), got.SentAt.Add(100*core.Millisecond))
	require.Equal(t, core.Zero.Add(100*core.Millisecond), rt.Now())
}

func TestLossProbabilityOneDropsEveryPacket(t *testing.T) {
	rt := core.NewRuntime(core.WithSeed(7))
	link := netsim.NewLink(rt, "lossy", 1, 0, 0)

	a := link.Bind("a")
	_ = link.Bind("b")

	core.Spawn(rt, core.SpawnOptions{Primary: true},
		func(ctx *core.TaskContext) (struct{}, error) {
			a.Send(ctx, "b", []byte("x"))
			return struct{}{}, nil
		})

	require.NoError(t, rt.Run())
}

func TestSendToUnboundAddressIsSilentlyDropped(t *testing.T) {
	rt := core.NewRuntime(core.WithSeed(1))
	link := netsim.NewLink(rt, "lan", 0, 0, 0)
	a := link.Bind("a")

	core.Spawn(rt, core.SpawnOptions{Primary: true},
		func(ctx *core.TaskContext) (struct{}, error) {
			a.Send(ctx, "nobody", []byte("x"))
			return struct{}{}, nil
		})

	require.NoError(t, rt.Run())
}
