package queueing_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sarchlab/chronos/core"
	"github.com/sarchlab/chronos/queueing"
)

func TestQueuePushPopWithinCapacity(t *testing.T) {
	rt := core.NewRuntime(core.WithSeed(1))
	q := queueing.NewQueue[int](rt, "q", 2)

	core.Spawn(rt, core.SpawnOptions{Primary: true},
		func(ctx *core.TaskContext) (struct{}, error) {
			require.True(t, q.CanPush())
			q.Push(ctx, 1)
			q.Push(ctx, 2)
			require.False(t, q.CanPush())
			require.Equal(t, 2, q.Len())

			require.Equal(t, 1, q.Pop(ctx))
			require.Equal(t, 2, q.Pop(ctx))
			require.Equal(t, 0, q.Len())
			return struct{}{}, nil
		})

	require.NoError(t, rt.Run())
}

func TestQueuePushBlocksUntilRoom(t *testing.T) {
	rt := core.NewRuntime(core.WithSeed(1))
	q := queueing.NewQueue[int](rt, "q", 1)

	var observed []int

	core.Spawn(rt, core.SpawnOptions{Primary: true, Name: "producer"},
		func(ctx *core.TaskContext) (struct{}, error) {
			q.Push(ctx, 1)
			q.Push(ctx, 2) // blocks until the consumer makes room
			return struct{}{}, nil
		})

	core.Spawn(rt, core.SpawnOptions{Primary: true, Name: "consumer"},
		func(ctx *core.TaskContext) (struct{}, error) {
			ctx.Sleep(1 * core.Second)
			observed = append(observed, q.Pop(ctx))
			observed = append(observed, q.Pop(ctx))
			return struct{}{}, nil
		})

	require.NoError(t, rt.Run())
	require.Equal(t, []int{1, 2}, observed)
}

func TestQueueTryPushTryPop(t *testing.T) {
	rt := core.NewRuntime(core.WithSeed(1))
	q := queueing.NewQueue[string](rt, "q", 1)

	core.Spawn(rt, core.SpawnOptions{Primary: true},
		func(ctx *core.TaskContext) (struct{}, error) {
			_, ok := q.TryPop(ctx)
			require.False(t, ok)

			require.True(t, q.TryPush(ctx, "a"))
			require.False(t, q.TryPush(ctx, "b"))

			v, ok := q.TryPop(ctx)
			require.True(t, ok)
			require.Equal(t, "a", v)
			return struct{}{}, nil
		})

	require.NoError(t, rt.Run())
}

func TestQueueSharedResourceIsNotPermutable(t *testing.T) {
	rt := core.NewRuntime(core.WithSeed(1), core.WithPartialOrderReduction(true))
	q := queueing.NewQueue[int](rt, "q", 4)

	var a, b core.TaskID

	h1 := core.Spawn(rt, core.SpawnOptions{Primary: true},
		func(ctx *core.TaskContext) (struct{}, error) {
			a = ctx.TaskID()
			q.Push(ctx, 1)
			return struct{}{}, nil
		})
	h2 := core.Spawn(rt, core.SpawnOptions{Primary: true},
		func(ctx *core.TaskContext) (struct{}, error) {
			b = ctx.TaskID()
			q.Push(ctx, 2)
			return struct{}{}, nil
		})

	require.NoError(t, rt.Run())
	_, _ = h1.Wait()
	_, _ = h2.Wait()
	require.False(t, rt.Permutable(a, b))
}
