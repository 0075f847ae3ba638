package monitor

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schedview/internal/engine"
	"schedview/internal/engine/cronengine"
	"schedview/internal/eventbus"
	"schedview/internal/snapshot"
	"schedview/internal/storage"
	logx "schedview/pkg/logx"
)

func newFixture(t *testing.T) (*Service, *cronengine.Service, <-chan eventbus.Event, storage.Store) {
	t.Helper()
	ctx := context.Background()

	eng := cronengine.New(cronengine.Config{Enabled: true, Name: "mon-test"}, logx.Nop(), nil)
	eng.RegisterHandler("noop", func(ctx context.Context) error { return nil })
	err := eng.AddJob(engine.JobDefinition{
		Key:  engine.JobKey{Name: "job", Group: "g"},
		Type: "noop",
	}, cronengine.TriggerSpec{Name: "t", Schedule: "5m"})
	require.NoError(t, err)
	t.Cleanup(func() { eng.Shutdown(ctx) })

	st, err := storage.Open(storage.Config{
		Driver: "file",
		Path:   filepath.Join(t.TempDir(), "store"),
	}, logx.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	bus := eventbus.New()
	events, unsub := bus.Subscribe(8)
	t.Cleanup(unsub)

	prov := snapshot.New(eng, logx.Nop())
	svc := New(Config{Enabled: true, RefreshPerMin: 1}, prov, logx.Nop(), bus, st)
	return svc, eng, events, st
}

func TestRefreshSummarizesAndArchives(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, eng, events, st := newFixture(t)
	eng.Start(ctx)

	snap, err := svc.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, snapshot.StatusStarted, snap.Status)

	sum, ok := svc.LastSummary()
	require.True(t, ok)
	assert.Equal(t, "mon-test", sum.Scheduler)
	assert.Equal(t, "started", sum.Status)
	assert.Equal(t, 1, sum.JobsTotal)
	assert.Equal(t, 1, sum.JobGroups)
	assert.Equal(t, 1, sum.Triggers)

	select {
	case ev := <-events:
		assert.Equal(t, EventSnapshotRefreshed, ev.Type)
		rec, ok := ev.Data.(storage.SnapshotRecord)
		require.True(t, ok)
		assert.Equal(t, sum, rec)
	default:
		t.Fatal("expected refresh event")
	}

	recent, err := st.RecentSnapshots(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "started", recent[0].Status)
}

func TestRefreshThrottled(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, _, _ := newFixture(t)

	_, err := svc.Refresh(ctx)
	require.NoError(t, err)

	// Budget is 1/min with burst 1; the second immediate call must throttle.
	_, err = svc.Refresh(ctx)
	assert.ErrorIs(t, err, ErrThrottled)

	// The previous summary survives a throttled call.
	_, ok := svc.LastSummary()
	assert.True(t, ok)
}

func TestApplyUpdatesLimiter(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, _, _ := newFixture(t)

	_, err := svc.Refresh(ctx)
	require.NoError(t, err)
	_, err = svc.Refresh(ctx)
	require.ErrorIs(t, err, ErrThrottled)

	// A much higher budget refills the limiter almost immediately.
	svc.Apply(Config{Enabled: true, RefreshPerMin: 60000})
	assert.Eventually(t, func() bool {
		_, err := svc.Refresh(ctx)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEnabledReflectsApply(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newFixture(t)
	assert.True(t, svc.Enabled())
	svc.Apply(Config{Enabled: false})
	assert.False(t, svc.Enabled())
}
