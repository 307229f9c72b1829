package netsim_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sarchlab/chronos/core"
	"github.com/sarchlab/chronos/netsim"
)

func TestPCAPWriterRecordsDeliveredPackets(t *testing.T) {
	dir := t.TempDir()

	rt := core.NewRuntime(core.WithSeed(1))
	link := netsim.NewLink(rt, "lan", 0, 0, 0)

	w, err := netsim.OpenPCAPWriter(dir, "capture.chpcap")
	require.NoError(t, err)
	link.AcceptHook(w)

	a := link.Bind("a")
	b := link.Bind("b")

	core.Spawn(rt, core.SpawnOptions{Primary: true, Name: "sender"},
		func(ctx *core.TaskContext) (struct{}, error) {
			a.Send(ctx, "b", []byte("payload"))
			return struct{}{}, nil
		})
	core.Spawn(rt, core.SpawnOptions{Primary: true, Name: "receiver"},
		func(ctx *core.TaskContext) (struct{}, error) {
			b.Recv(ctx)
			return struct{}{}, nil
		})

	require.NoError(t, rt.Run())
	require.NoError(t, w.Close())

	info, err := os.Stat(filepath.Join(dir, "capture.chpcap"))
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestPCAPWriterWithEmptyDirIsANoOp(t *testing.T) {
	w, err := netsim.OpenPCAPWriter("", "unused.chpcap")
	require.NoError(t, err)
	require.NoError(t, w.Close())
}
