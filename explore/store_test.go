package explore_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sarchlab/chronos/explore"
)

func TestStorePersistsSchedules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedules.sqlite3")

	store, err := explore.NewStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Write(explore.Schedule{Index: 0, Seed: 1, WallCost: time.Millisecond}))
	require.NoError(t, store.Write(explore.Schedule{Index: 1, Seed: 1, WallCost: 2 * time.Millisecond}))

	n, err := store.Count()
	require.NoError(t, err)
	require.Equal(t, 2, n)

	require.NoError(t, store.Close())
}
