package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "schedview/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none"} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		require.NoError(t, err)
		assert.Nil(t, st)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	_, err := Open(Config{Driver: "bolt"}, logx.Nop())
	require.ErrorContains(t, err, "unknown storage driver")
}

func TestFileStoreAppendAndRecent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	require.NoError(t, err)
	defer st.Close()

	base := time.Now().Truncate(time.Millisecond)
	for i := 0; i < 5; i++ {
		err := st.AppendSnapshot(ctx, SnapshotRecord{
			At:        base.Add(time.Duration(i) * time.Second),
			Scheduler: "s",
			Status:    "started",
			JobsTotal: i,
		})
		require.NoError(t, err)
	}

	recent, err := st.RecentSnapshots(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	// Newest first.
	assert.Equal(t, 4, recent[0].JobsTotal)
	assert.Equal(t, 2, recent[2].JobsTotal)

	all, err := st.RecentSnapshots(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestFileStoreReloadsHistory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	require.NoError(t, err)
	require.NoError(t, st.AppendSnapshot(ctx, SnapshotRecord{Scheduler: "s", Status: "ready"}))
	require.NoError(t, st.Close())

	st, err = Open(Config{Driver: "file", Path: path}, logx.Nop())
	require.NoError(t, err)
	defer st.Close()

	recent, err := st.RecentSnapshots(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "ready", recent[0].Status)
}

func TestFileStoreRetention(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	st, err := Open(Config{Driver: "file", Path: path, KeepRecent: 3}, logx.Nop())
	require.NoError(t, err)
	defer st.Close()

	for i := 0; i < 10; i++ {
		require.NoError(t, st.AppendSnapshot(ctx, SnapshotRecord{
			Scheduler: "s",
			Status:    fmt.Sprintf("v%d", i),
		}))
	}
	recent, err := st.RecentSnapshots(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "v9", recent[0].Status)
	assert.Equal(t, "v7", recent[2].Status)
}
