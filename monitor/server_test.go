package monitor_test

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sarchlab/chronos/core"
	"github.com/sarchlab/chronos/monitor"
)

func TestServerServesNow(t *testing.T) {
	rt := core.NewRuntime(core.WithSeed(1))
	core.Spawn(rt, core.SpawnOptions{Primary: true, Name: "sleeper"},
		func(ctx *core.TaskContext) (struct{}, error) {
			ctx.Sleep(1 * core.Second)
			return struct{}{}, nil
		})

	srv := monitor.NewServer(rt)
	addr, err := srv.Start()
	require.NoError(t, err)
	defer srv.Close()

	resp, err := http.Get(addr + "/api/now")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var now map[string]int64
	require.NoError(t, json.Unmarshal(body, &now))
	require.Equal(t, int64(0), now["now_ns"])
}

func TestServerProgressBarLifecycle(t *testing.T) {
	rt := core.NewRuntime(core.WithSeed(1))
	srv := monitor.NewServer(rt)

	bar := srv.CreateProgressBar("exploration", 10)
	bar.IncrementInProgress(3)
	bar.MoveInProgressToFinished(2)

	require.Equal(t, uint64(1), bar.InProgress)
	require.Equal(t, uint64(2), bar.Finished)

	srv.CompleteProgressBar(bar)

	addr, err := srv.Start()
	require.NoError(t, err)
	defer srv.Close()

	resp, err := http.Get(addr + "/api/progress")
	require.NoError(t, err)
	defer resp.Body.Close()

	var bars []json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&bars))
	require.Empty(t, bars)

	time.Sleep(time.Millisecond) // let the listener goroutine settle before Close
}
