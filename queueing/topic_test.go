package queueing_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sarchlab/chronos/core"
	"github.com/sarchlab/chronos/queueing"
)

func TestTopicBroadcastsToAllSubscribers(t *testing.T) {
	rt := core.NewRuntime(core.WithSeed(1))
	topic := queueing.NewTopic[string](rt, "events")

	var first, second string

	sub1 := topic.Subscribe()
	sub2 := topic.Subscribe()

	core.Spawn(rt, core.SpawnOptions{Primary: true, Name: "publisher"},
		func(ctx *core.TaskContext) (struct{}, error) {
			topic.Publish(ctx, "hello")
			return struct{}{}, nil
		})

	core.Spawn(rt, core.SpawnOptions{Primary: true, Name: "sub1"},
		func(ctx *core.TaskContext) (struct{}, error) {
			first = sub1.Recv(ctx)
			return struct{}{}, nil
		})

	core.Spawn(rt, core.SpawnOptions{Primary: true, Name: "sub2"},
		func(ctx *core.TaskContext) (struct{}, error) {
			second = sub2.Recv(ctx)
			return struct{}{}, nil
		})

	require.NoError(t, rt.Run())
	require.Equal(t, "hello", first)
	require.Equal(t, "hello", second)
}

func TestTopicUnsubscribeStopsFutureDelivery(t *testing.T) {
	rt := core.NewRuntime(core.WithSeed(1))
	topic := queueing.NewTopic[int](rt, "nums")

	sub := topic.Subscribe()
	topic.Unsubscribe(sub)

	core.Spawn(rt, core.SpawnOptions{Primary: true},
		func(ctx *core.TaskContext) (struct{}, error) {
			topic.Publish(ctx, 42)
			return struct{}{}, nil
		})

	require.NoError(t, rt.Run())
	require.Equal(t, 0, sub.Len())
}
