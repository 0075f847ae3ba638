package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schedview/internal/engine"
	logx "schedview/pkg/logx"
)

// fakeEngine is a canned-response engine. Zero values answer like an empty,
// running scheduler; tests override fields to shape the scenario.
type fakeEngine struct {
	shutdown bool
	started  bool
	meta     engine.Metadata

	jobGroups     []string
	triggerGroups []string
	keysByGroup   map[string][]engine.JobKey

	defs     map[engine.JobKey]*engine.JobDefinition
	triggers map[engine.JobKey][]engine.TriggerDefinition
	states   map[engine.TriggerKey]engine.TriggerState

	defErr   error // returned by JobDefinition for any key
	stateErr error
	groupErr error

	jobGroupCalls int
}

func (f *fakeEngine) IsShutdown(ctx context.Context) (bool, error) { return f.shutdown, nil }
func (f *fakeEngine) IsStarted(ctx context.Context) (bool, error)  { return f.started, nil }
func (f *fakeEngine) Metadata(ctx context.Context) (engine.Metadata, error) {
	return f.meta, nil
}

func (f *fakeEngine) JobGroupNames(ctx context.Context) ([]string, error) {
	f.jobGroupCalls++
	if f.groupErr != nil {
		return nil, f.groupErr
	}
	return f.jobGroups, nil
}

func (f *fakeEngine) TriggerGroupNames(ctx context.Context) ([]string, error) {
	return f.triggerGroups, nil
}

func (f *fakeEngine) AllJobKeys(ctx context.Context) ([]engine.JobKey, error) {
	var all []engine.JobKey
	for _, g := range f.jobGroups {
		all = append(all, f.keysByGroup[g]...)
	}
	return all, nil
}

func (f *fakeEngine) JobKeysInGroup(ctx context.Context, group string) ([]engine.JobKey, error) {
	return f.keysByGroup[group], nil
}

func (f *fakeEngine) JobDefinition(ctx context.Context, key engine.JobKey) (*engine.JobDefinition, error) {
	if f.defErr != nil {
		return nil, f.defErr
	}
	def, ok := f.defs[key]
	if !ok {
		return nil, engine.ErrNotFound
	}
	return def, nil
}

func (f *fakeEngine) TriggersOfJob(ctx context.Context, key engine.JobKey) ([]engine.TriggerDefinition, error) {
	return f.triggers[key], nil
}

func (f *fakeEngine) TriggerByKey(ctx context.Context, key engine.TriggerKey) (*engine.TriggerDefinition, error) {
	for _, defs := range f.triggers {
		for _, def := range defs {
			if def.Key == key {
				d := def
				return &d, nil
			}
		}
	}
	return nil, engine.ErrNotFound
}

func (f *fakeEngine) TriggerState(ctx context.Context, key engine.TriggerKey) (engine.TriggerState, error) {
	if f.stateErr != nil {
		return engine.TriggerStateNone, f.stateErr
	}
	return f.states[key], nil
}

func populatedEngine() *fakeEngine {
	jobA := engine.JobKey{Name: "invoice", Group: "billing"}
	jobB := engine.JobKey{Name: "cleanup", Group: "maintenance"}
	trA := engine.TriggerKey{Name: "invoice-cron", Group: "billing"}
	trB := engine.TriggerKey{Name: "cleanup-nightly", Group: "maintenance"}
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	since := start.Add(time.Hour)

	return &fakeEngine{
		started: true,
		meta: engine.Metadata{
			SchedulerName: "prod-sched",
			InstanceID:    "node-1",
			JobsExecuted:  42,
			RunningSince:  &since,
			EngineType:    "cronengine",
		},
		jobGroups:     []string{"billing", "maintenance"},
		triggerGroups: []string{"billing", "maintenance"},
		keysByGroup: map[string][]engine.JobKey{
			"billing":     {jobA},
			"maintenance": {jobB},
		},
		defs: map[engine.JobKey]*engine.JobDefinition{
			jobA: {
				Key:                           jobA,
				Description:                   "monthly invoicing",
				Type:                          "invoice-handler",
				Durable:                       true,
				ConcurrentExecutionDisallowed: true,
				Data:                          map[string]any{"retries": "3"},
			},
		},
		triggers: map[engine.JobKey][]engine.TriggerDefinition{
			jobA: {{
				Key:       trA,
				Schedule:  engine.CronSchedule{Expression: "0 0 1 * *"},
				StartTime: start,
			}},
			jobB: {{
				Key:       trB,
				Schedule:  engine.IntervalSchedule{Every: 24 * time.Hour, RepeatCount: -1},
				StartTime: start,
			}},
		},
		states: map[engine.TriggerKey]engine.TriggerState{
			trA: engine.TriggerStateNormal,
			trB: engine.TriggerStatePaused,
		},
	}
}

func TestSnapshotShutdownShortCircuits(t *testing.T) {
	t.Parallel()
	eng := populatedEngine()
	eng.shutdown = true
	p := New(eng, logx.Nop())

	snap, err := p.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusShutdown, snap.Status)
	// Metadata and job totals are still reported.
	assert.Equal(t, "prod-sched", snap.Name)
	assert.Equal(t, 42, snap.JobsExecuted)
	assert.Equal(t, 2, snap.JobsTotal)
	// Group sequences are empty, and no group queries were issued.
	assert.Empty(t, snap.JobGroups)
	assert.Empty(t, snap.TriggerGroups)
	assert.Zero(t, eng.jobGroupCalls)
}

func TestSnapshotEmptyScheduler(t *testing.T) {
	t.Parallel()
	eng := &fakeEngine{started: true}
	p := New(eng, logx.Nop())

	snap, err := p.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusEmpty, snap.Status)
	assert.Zero(t, snap.JobsTotal)
	assert.NotNil(t, snap.JobGroups)
	assert.Empty(t, snap.JobGroups)
}

func TestSnapshotReadyVersusStarted(t *testing.T) {
	t.Parallel()
	eng := populatedEngine()
	eng.started = false
	p := New(eng, logx.Nop())

	snap, err := p.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusReady, snap.Status)

	eng.started = true
	snap, err = p.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusStarted, snap.Status)
}

func TestSnapshotHierarchy(t *testing.T) {
	t.Parallel()
	p := New(populatedEngine(), logx.Nop())

	snap, err := p.Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, snap.JobsTotal)
	assert.Equal(t, []string{"billing", "maintenance"}, snap.TriggerGroups)
	require.Len(t, snap.JobGroups, 2)

	billing := snap.JobGroups[0]
	assert.Equal(t, "billing", billing.Name)
	require.Len(t, billing.Jobs, 1)
	require.Len(t, billing.Jobs[0].Triggers, 1)
	trig := billing.Jobs[0].Triggers[0]
	assert.Equal(t, "invoice-cron", trig.Name)
	assert.Equal(t, ActivityActive, trig.Status)
	assert.Equal(t, TriggerTypeCron, trig.Type)

	maintenance := snap.JobGroups[1]
	require.Len(t, maintenance.Jobs, 1)
	trig = maintenance.Jobs[0].Triggers[0]
	assert.Equal(t, ActivityPaused, trig.Status)
	assert.Equal(t, TriggerTypeInterval, trig.Type)

	assert.False(t, snap.TakenAt.IsZero())
	require.NotNil(t, snap.RunningSince)
}

func TestSnapshotPropagatesUnexpectedErrors(t *testing.T) {
	t.Parallel()
	boom := errors.New("store offline")

	eng := populatedEngine()
	eng.groupErr = boom
	_, err := New(eng, logx.Nop()).Snapshot(context.Background())
	assert.ErrorIs(t, err, boom)

	eng = populatedEngine()
	eng.stateErr = boom
	_, err = New(eng, logx.Nop()).Snapshot(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestJobDetailFull(t *testing.T) {
	t.Parallel()
	p := New(populatedEngine(), logx.Nop())

	detail, ok, err := p.JobDetail(context.Background(), "invoice", "billing")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, "invoice", detail.Name)
	assert.Equal(t, "billing", detail.Group)
	require.Len(t, detail.Triggers, 1)

	// Data map values survive verbatim.
	assert.Equal(t, map[string]any{"retries": "3"}, detail.DataMap)

	assert.Equal(t, map[string]string{
		PropDescription:          "monthly invoicing",
		PropFullName:             "billing.invoice",
		PropJobType:              "invoice-handler",
		PropDurable:              "true",
		PropConcurrentDisallowed: "true",
		PropPersistData:          "false",
		PropRequestsRecovery:     "false",
	}, detail.Properties)
}

func TestJobDetailSentinelOnUnavailableDefinition(t *testing.T) {
	t.Parallel()
	eng := populatedEngine()
	eng.defErr = engine.ErrDetailUnavailable
	p := New(eng, logx.Nop())

	detail, ok, err := p.JobDetail(context.Background(), "invoice", "billing")
	require.NoError(t, err)
	require.True(t, ok)

	// Basic data survives; maps degrade to the sentinel entry.
	assert.Equal(t, "invoice", detail.Name)
	require.Len(t, detail.Triggers, 1)
	assert.Equal(t, map[string]any{SentinelKey: DetailUnavailableMessage}, detail.DataMap)
	assert.Equal(t, map[string]string{SentinelKey: DetailUnavailableMessage}, detail.Properties)
}

func TestJobDetailAbsent(t *testing.T) {
	t.Parallel()
	eng := populatedEngine()
	p := New(eng, logx.Nop())

	_, ok, err := p.JobDetail(context.Background(), "ghost", "billing")
	require.NoError(t, err)
	assert.False(t, ok)

	eng.shutdown = true
	_, ok, err = p.JobDetail(context.Background(), "invoice", "billing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTriggerDetail(t *testing.T) {
	t.Parallel()
	eng := populatedEngine()
	p := New(eng, logx.Nop())

	trig, ok, err := p.TriggerDetail(context.Background(), "cleanup-nightly", "maintenance")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ActivityPaused, trig.Status)
	assert.Equal(t, TriggerTypeInterval, trig.Type)

	_, ok, err = p.TriggerDetail(context.Background(), "ghost", "maintenance")
	require.NoError(t, err)
	assert.False(t, ok)

	eng.shutdown = true
	_, ok, err = p.TriggerDetail(context.Background(), "cleanup-nightly", "maintenance")
	require.NoError(t, err)
	assert.False(t, ok)
}
