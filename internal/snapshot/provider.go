package snapshot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"schedview/internal/engine"
	logx "schedview/pkg/logx"
)

// Provider builds snapshots and detail views from an engine.
//
// A Provider holds no mutable state besides the injected engine handle and
// logger; every call assembles a fresh object graph, and concurrent calls
// are safe and independent.
type Provider struct {
	eng engine.Engine
	log logx.Logger
}

func New(eng engine.Engine, log logx.Logger) *Provider {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Provider{eng: eng, log: log}
}

// Snapshot assembles the full scheduler hierarchy.
//
// Liveness, engine metadata and the total job-key count are always queried
// first. If the engine is shut down, the group sequences are empty and no
// further queries are issued. Otherwise groups, jobs and triggers are
// assembled depth-first in the order the engine reports names/keys.
//
// No per-entity error isolation is applied here: if any query fails
// unexpectedly, the whole call fails and no partial hierarchy is returned.
func (p *Provider) Snapshot(ctx context.Context) (*SchedulerSnapshot, error) {
	shutdown, err := p.eng.IsShutdown(ctx)
	if err != nil {
		return nil, fmt.Errorf("query shutdown state: %w", err)
	}
	meta, err := p.eng.Metadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("query metadata: %w", err)
	}
	allKeys, err := p.eng.AllJobKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("query job keys: %w", err)
	}

	snap := &SchedulerSnapshot{
		Name:          meta.SchedulerName,
		InstanceID:    meta.InstanceID,
		Remote:        meta.Remote,
		EngineType:    meta.EngineType,
		JobsExecuted:  meta.JobsExecuted,
		JobsTotal:     len(allKeys),
		RunningSince:  meta.RunningSince,
		JobGroups:     []JobGroup{},
		TriggerGroups: []string{},
		TakenAt:       time.Now(),
	}

	if shutdown {
		snap.Status = SchedulerStatusOf(true, false, false)
		return snap, nil
	}

	groupNames, err := p.eng.JobGroupNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("query job group names: %w", err)
	}
	started, err := p.eng.IsStarted(ctx)
	if err != nil {
		return nil, fmt.Errorf("query started state: %w", err)
	}
	snap.Status = SchedulerStatusOf(false, len(groupNames) == 0, started)

	for _, group := range groupNames {
		keys, err := p.eng.JobKeysInGroup(ctx, group)
		if err != nil {
			return nil, fmt.Errorf("query jobs of group %q: %w", group, err)
		}
		jg := JobGroup{Name: group, Jobs: make([]Job, 0, len(keys))}
		for _, key := range keys {
			job, err := p.buildJob(ctx, key)
			if err != nil {
				return nil, err
			}
			jg.Jobs = append(jg.Jobs, job)
		}
		snap.JobGroups = append(snap.JobGroups, jg)
	}

	triggerGroups, err := p.eng.TriggerGroupNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("query trigger group names: %w", err)
	}
	if len(triggerGroups) > 0 {
		snap.TriggerGroups = triggerGroups
	}

	return snap, nil
}

// JobDetail returns the on-demand detail view of one job.
//
// ok is false when the engine is shut down or the job does not exist; both
// are absent results, not errors. The job's basic data (name, group,
// triggers) is gathered first and survives independently of the definition
// fetch, which is the single isolated step: if the engine cannot
// materialize the definition (common for remote deployments that cannot
// resolve the job's implementation type), the detail carries a sentinel
// entry instead and the call still succeeds.
func (p *Provider) JobDetail(ctx context.Context, name, group string) (*JobDetail, bool, error) {
	shutdown, err := p.eng.IsShutdown(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("query shutdown state: %w", err)
	}
	if shutdown {
		return nil, false, nil
	}

	key := engine.JobKey{Name: name, Group: group}
	triggers, err := p.buildTriggersOfJob(ctx, key)
	if err != nil {
		return nil, false, err
	}
	detail := &JobDetail{Name: name, Group: group, Triggers: triggers}

	def, err := p.eng.JobDefinition(ctx, key)
	switch {
	case errors.Is(err, engine.ErrNotFound):
		return nil, false, nil
	case err != nil:
		// Remote engines may be unable to materialize the definition.
		p.log.Warn("job definition unavailable",
			logx.String("job", key.String()), logx.Err(err))
		detail.DataMap = map[string]any{SentinelKey: DetailUnavailableMessage}
		detail.Properties = map[string]string{SentinelKey: DetailUnavailableMessage}
		return detail, true, nil
	}

	dataMap := make(map[string]any, len(def.Data))
	for k, v := range def.Data {
		dataMap[k] = v
	}
	detail.DataMap = dataMap
	detail.Properties = map[string]string{
		PropDescription:          def.Description,
		PropFullName:             def.Key.String(),
		PropJobType:              def.Type,
		PropDurable:              strconv.FormatBool(def.Durable),
		PropConcurrentDisallowed: strconv.FormatBool(def.ConcurrentExecutionDisallowed),
		PropPersistData:          strconv.FormatBool(def.PersistJobDataAfterExecution),
		PropRequestsRecovery:     strconv.FormatBool(def.RequestsRecovery),
	}
	return detail, true, nil
}

// TriggerDetail returns the full display data of one trigger, resolving its
// activity status. ok is false when the engine is shut down or the trigger
// does not exist.
func (p *Provider) TriggerDetail(ctx context.Context, name, group string) (*Trigger, bool, error) {
	shutdown, err := p.eng.IsShutdown(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("query shutdown state: %w", err)
	}
	if shutdown {
		return nil, false, nil
	}

	key := engine.TriggerKey{Name: name, Group: group}
	def, err := p.eng.TriggerByKey(ctx, key)
	if errors.Is(err, engine.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query trigger %q: %w", key.String(), err)
	}

	trig, err := p.buildTrigger(ctx, *def)
	if err != nil {
		return nil, false, err
	}
	return &trig, true, nil
}

func (p *Provider) buildJob(ctx context.Context, key engine.JobKey) (Job, error) {
	triggers, err := p.buildTriggersOfJob(ctx, key)
	if err != nil {
		return Job{}, err
	}
	return Job{Name: key.Name, Group: key.Group, Triggers: triggers}, nil
}

func (p *Provider) buildTriggersOfJob(ctx context.Context, key engine.JobKey) ([]Trigger, error) {
	defs, err := p.eng.TriggersOfJob(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("query triggers of job %q: %w", key.String(), err)
	}
	triggers := make([]Trigger, 0, len(defs))
	for _, def := range defs {
		trig, err := p.buildTrigger(ctx, def)
		if err != nil {
			return nil, err
		}
		triggers = append(triggers, trig)
	}
	return triggers, nil
}

func (p *Provider) buildTrigger(ctx context.Context, def engine.TriggerDefinition) (Trigger, error) {
	state, err := p.eng.TriggerState(ctx, def.Key)
	if err != nil {
		return Trigger{}, fmt.Errorf("query state of trigger %q: %w", def.Key.String(), err)
	}
	return Trigger{
		Name:      def.Key.Name,
		Group:     def.Key.Group,
		Status:    ActivityStatusOf(state),
		Type:      TriggerTypeOf(def.Schedule),
		StartTime: def.StartTime,
		EndTime:   def.EndTime,
		NextFire:  def.NextFire,
		PrevFire:  def.PrevFire,
	}, nil
}
