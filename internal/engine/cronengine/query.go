package cronengine

import (
	"context"
	"slices"
	"strings"
	"time"

	"schedview/internal/engine"
)

// Engine query surface. The embedded engine has no natural reporting order
// (its tables are maps), so every name/key sequence is returned sorted:
// groups lexicographically, keys by group then name.
//
// All methods answer from in-memory state and never block, so ctx is only
// checked for early cancellation.

var _ engine.Engine = (*Service)(nil)

func (s *Service) IsShutdown(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown, nil
}

func (s *Service) IsStarted(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c != nil, nil
}

func (s *Service) Metadata(ctx context.Context) (engine.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return engine.Metadata{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	name := strings.TrimSpace(s.cfg.Name)
	if name == "" {
		name = "schedview"
	}
	instance := strings.TrimSpace(s.cfg.InstanceID)
	if instance == "" {
		instance = "local"
	}
	var since *time.Time
	if s.startedAt != nil {
		t := *s.startedAt
		since = &t
	}
	return engine.Metadata{
		SchedulerName: name,
		InstanceID:    instance,
		Remote:        false,
		JobsExecuted:  int(s.executed.Load()),
		RunningSince:  since,
		EngineType:    "cronengine",
	}, nil
}

func (s *Service) JobGroupNames(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := map[string]struct{}{}
	var names []string
	for key := range s.jobs {
		if _, ok := seen[key.Group]; !ok {
			seen[key.Group] = struct{}{}
			names = append(names, key.Group)
		}
	}
	slices.Sort(names)
	return names, nil
}

func (s *Service) TriggerGroupNames(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := map[string]struct{}{}
	var names []string
	for _, rec := range s.jobs {
		for _, tr := range rec.triggers {
			if _, ok := seen[tr.key.Group]; !ok {
				seen[tr.key.Group] = struct{}{}
				names = append(names, tr.key.Group)
			}
		}
	}
	slices.Sort(names)
	return names, nil
}

func (s *Service) AllJobKeys(ctx context.Context) ([]engine.JobKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]engine.JobKey, 0, len(s.jobs))
	for key := range s.jobs {
		keys = append(keys, key)
	}
	sortJobKeys(keys)
	return keys, nil
}

func (s *Service) JobKeysInGroup(ctx context.Context, group string) ([]engine.JobKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []engine.JobKey
	for key := range s.jobs {
		if key.Group == group {
			keys = append(keys, key)
		}
	}
	sortJobKeys(keys)
	return keys, nil
}

// JobDefinition returns a deep-enough copy: callers may hold the definition
// across engine mutations, so the data map is cloned.
func (s *Service) JobDefinition(ctx context.Context, key engine.JobKey) (*engine.JobDefinition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.jobs[key]
	if !ok {
		return nil, engine.ErrNotFound
	}
	def := rec.def
	if rec.def.Data != nil {
		def.Data = make(map[string]any, len(rec.def.Data))
		for k, v := range rec.def.Data {
			def.Data[k] = v
		}
	}
	return &def, nil
}

func (s *Service) TriggersOfJob(ctx context.Context, key engine.JobKey) ([]engine.TriggerDefinition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.jobs[key]
	if !ok {
		// Unknown job reads as "no triggers", not an error.
		return []engine.TriggerDefinition{}, nil
	}
	defs := make([]engine.TriggerDefinition, 0, len(rec.triggers))
	for _, tr := range rec.triggers {
		defs = append(defs, s.triggerDefLocked(tr))
	}
	return defs, nil
}

func (s *Service) TriggerByKey(ctx context.Context, key engine.TriggerKey) (*engine.TriggerDefinition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tr := s.findTriggerLocked(key)
	if tr == nil {
		return nil, engine.ErrNotFound
	}
	def := s.triggerDefLocked(tr)
	return &def, nil
}

func (s *Service) TriggerState(ctx context.Context, key engine.TriggerKey) (engine.TriggerState, error) {
	if err := ctx.Err(); err != nil {
		return engine.TriggerStateNone, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tr := s.findTriggerLocked(key)
	switch {
	case tr == nil:
		return engine.TriggerStateNone, engine.ErrNotFound
	case tr.paused:
		return engine.TriggerStatePaused, nil
	case tr.complete:
		return engine.TriggerStateComplete, nil
	default:
		return engine.TriggerStateNormal, nil
	}
}

func (s *Service) triggerDefLocked(tr *triggerRecord) engine.TriggerDefinition {
	def := engine.TriggerDefinition{
		Key:       tr.key,
		Schedule:  tr.sched,
		StartTime: tr.start,
	}
	if tr.end != nil {
		t := *tr.end
		def.EndTime = &t
	}
	if tr.prevFire != nil {
		t := *tr.prevFire
		def.PrevFire = &t
	}
	if s.c != nil && tr.entryID != 0 {
		if next := s.c.Entry(tr.entryID).Next; !next.IsZero() {
			def.NextFire = &next
		}
	}
	return def
}

func sortJobKeys(keys []engine.JobKey) {
	slices.SortFunc(keys, func(a, b engine.JobKey) int {
		if c := strings.Compare(a.Group, b.Group); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
}
