package cronengine

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"schedview/internal/engine"
	"schedview/internal/eventbus"
	logx "schedview/pkg/logx"
)

// Event types published on the bus.
const (
	EventJobExecuted = "engine.job.executed"
	EventJobFailed   = "engine.job.failed"
)

// Service is the embedded scheduling engine. It owns the cron runner, the
// handler registry and the job/trigger tables, and exposes the read side of
// all of it through the engine.Engine methods in query.go.
type Service struct {
	mu sync.Mutex

	cfg Config
	log logx.Logger
	bus eventbus.Bus

	parser cron.Parser
	loc    *time.Location
	c      *cron.Cron // nil while not started

	handlers map[string]Handler
	jobs     map[engine.JobKey]*jobRecord

	runCtx    context.Context
	runCancel context.CancelFunc

	startedAt *time.Time
	shutdown  bool

	executed atomic.Int64
}

func New(cfg Config, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg: cfg,
		log: log,
		bus: bus,
		// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
		parser:   cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		handlers: map[string]Handler{},
		jobs:     map[engine.JobKey]*jobRecord{},
	}
}

// Enabled reports the current config flag. (Thread-safe; Apply() may run concurrently.)
func (s *Service) Enabled() bool {
	s.mu.Lock()
	en := s.cfg.Enabled
	s.mu.Unlock()
	return en
}

// RegisterHandler binds a handler name usable from job definitions.
// Registration after Start is allowed; handlers are resolved per fire.
func (s *Service) RegisterHandler(name string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[name] = h
}

func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldTZ := strings.TrimSpace(s.cfg.Timezone)
	newTZ := strings.TrimSpace(cfg.Timezone)
	s.cfg = cfg

	if s.c == nil || oldTZ == newTZ {
		return
	}
	// restart cron with new location and re-register triggers
	s.log.Info("timezone changed, restarting cron", logx.String("tz", newTZ))
	s.stopCronLocked()
	s.startCronLocked()
}

// AddJob registers (or replaces) a job and its triggers. The definition's
// Type must name a handler registered via RegisterHandler. Trigger schedules
// are validated here; a bad schedule rejects the whole job.
func (s *Service) AddJob(def engine.JobDefinition, specs ...TriggerSpec) error {
	if strings.TrimSpace(def.Key.Name) == "" {
		return fmt.Errorf("job name required")
	}
	if def.Key.Group == "" {
		def.Key.Group = "DEFAULT"
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown {
		return fmt.Errorf("engine is shut down")
	}
	if _, ok := s.handlers[def.Type]; !ok {
		return fmt.Errorf("unknown handler %q for job %s", def.Type, def.Key.String())
	}

	rec := &jobRecord{def: def, state: &runState{}}
	now := time.Now()
	for i, spec := range specs {
		ps, err := ParseSchedule(spec.Schedule)
		if err != nil {
			return fmt.Errorf("trigger %q of job %s: %w", spec.Name, def.Key.String(), err)
		}
		if _, err := s.parser.Parse(ps.CronSpec()); err != nil {
			return fmt.Errorf("trigger %q of job %s: %w", spec.Name, def.Key.String(), err)
		}
		name := spec.Name
		if name == "" {
			name = fmt.Sprintf("%s-%d", def.Key.Name, i)
		}
		group := spec.Group
		if group == "" {
			group = def.Key.Group
		}
		tr := &triggerRecord{
			key:    engine.TriggerKey{Name: name, Group: group},
			jobKey: def.Key,
			spec:   ps.CronSpec(),
			sched:  ps.Schedule(),
			start:  now,
			end:    spec.EndAt,
		}
		if tr.end != nil && !tr.end.After(now) {
			tr.complete = true
		}
		rec.triggers = append(rec.triggers, tr)
	}

	if old, ok := s.jobs[def.Key]; ok {
		s.removeEntriesLocked(old)
	}
	s.jobs[def.Key] = rec
	if s.c != nil {
		for _, tr := range rec.triggers {
			s.registerEntryLocked(tr)
		}
	}
	s.log.Debug("job registered",
		logx.String("job", def.Key.String()), logx.Int("triggers", len(rec.triggers)))
	return nil
}

// RemoveJob unregisters a job and all of its triggers. Returns false if the
// job was not registered.
func (s *Service) RemoveJob(key engine.JobKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[key]
	if !ok {
		return false
	}
	s.removeEntriesLocked(rec)
	delete(s.jobs, key)
	return true
}

// PauseTrigger suspends firing of one trigger. Returns engine.ErrNotFound
// for an unknown key. Pausing a completed trigger is a no-op.
func (s *Service) PauseTrigger(key engine.TriggerKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tr := s.findTriggerLocked(key)
	if tr == nil {
		return engine.ErrNotFound
	}
	if tr.paused || tr.complete {
		return nil
	}
	tr.paused = true
	s.dropEntryLocked(tr)
	return nil
}

// ResumeTrigger resumes a paused trigger.
func (s *Service) ResumeTrigger(key engine.TriggerKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tr := s.findTriggerLocked(key)
	if tr == nil {
		return engine.ErrNotFound
	}
	if !tr.paused {
		return nil
	}
	tr.paused = false
	if s.c != nil && !tr.complete {
		s.registerEntryLocked(tr)
	}
	return nil
}

// Start begins firing triggers. Idempotent; a no-op after Shutdown.
func (s *Service) Start(ctx context.Context) {
	_ = ctx // cron owns its own run loop; ctx is reserved for symmetry

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown {
		s.log.Warn("start requested after shutdown, ignored")
		return
	}
	if s.c != nil {
		return
	}
	s.runCtx, s.runCancel = context.WithCancel(context.Background())
	s.startCronLocked()
	now := time.Now()
	s.startedAt = &now
	s.log.Info("engine started",
		logx.String("tz", s.loc.String()), logx.Int("jobs", len(s.jobs)))
}

// Shutdown stops firing permanently. In-flight handlers get until ctx is
// done to finish.
func (s *Service) Shutdown(ctx context.Context) {
	start := time.Now()

	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return
	}
	s.shutdown = true
	c := s.c
	s.c = nil
	for _, rec := range s.jobs {
		for _, tr := range rec.triggers {
			tr.entryID = 0
		}
	}
	cancel := s.runCancel
	s.mu.Unlock()

	if c != nil {
		select {
		case <-c.Stop().Done():
		case <-ctx.Done():
			// best-effort
		}
	}
	if cancel != nil {
		cancel()
	}
	s.log.Info("engine shut down", logx.Duration("took", time.Since(start)))
}

func (s *Service) startCronLocked() {
	loc := s.loadLocationLocked()
	s.loc = loc
	s.c = cron.New(cron.WithParser(s.parser), cron.WithLocation(loc))
	for _, rec := range s.jobs {
		for _, tr := range rec.triggers {
			s.registerEntryLocked(tr)
		}
	}
	s.c.Start()
}

func (s *Service) stopCronLocked() {
	if s.c == nil {
		return
	}
	s.c.Stop()
	s.c = nil
	for _, rec := range s.jobs {
		for _, tr := range rec.triggers {
			tr.entryID = 0
		}
	}
}

func (s *Service) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone, using local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}

func (s *Service) registerEntryLocked(tr *triggerRecord) {
	if tr.paused || tr.complete {
		return
	}
	key := tr.key
	id, err := s.c.AddFunc(tr.spec, func() { s.fire(key) })
	if err != nil {
		// Spec was validated at AddJob; only a parser drift could land here.
		s.log.Error("register trigger", logx.String("trigger", key.String()), logx.Err(err))
		return
	}
	tr.entryID = id
}

func (s *Service) removeEntriesLocked(rec *jobRecord) {
	for _, tr := range rec.triggers {
		s.dropEntryLocked(tr)
	}
}

func (s *Service) dropEntryLocked(tr *triggerRecord) {
	if s.c != nil && tr.entryID != 0 {
		s.c.Remove(tr.entryID)
	}
	tr.entryID = 0
}

func (s *Service) findTriggerLocked(key engine.TriggerKey) *triggerRecord {
	for _, rec := range s.jobs {
		for _, tr := range rec.triggers {
			if tr.key == key {
				return tr
			}
		}
	}
	return nil
}

// fire runs one trigger occurrence. Runs on a cron goroutine.
func (s *Service) fire(key engine.TriggerKey) {
	s.mu.Lock()
	tr := s.findTriggerLocked(key)
	if tr == nil || tr.paused || tr.complete || s.shutdown {
		s.mu.Unlock()
		return
	}
	now := time.Now()
	if tr.end != nil && now.After(*tr.end) {
		tr.complete = true
		s.dropEntryLocked(tr)
		s.mu.Unlock()
		s.log.Info("trigger completed", logx.String("trigger", key.String()))
		return
	}
	tr.prevFire = &now
	rec := s.jobs[tr.jobKey]
	def := rec.def
	state := rec.state
	h := s.handlers[def.Type]
	ctx := s.runCtx
	s.mu.Unlock()

	if h == nil {
		s.log.Warn("no handler for job",
			logx.String("job", def.Key.String()), logx.String("handler", def.Type))
		return
	}
	if def.ConcurrentExecutionDisallowed && !state.tryAcquire() {
		s.log.Debug("skipped, previous run still in flight", logx.String("job", def.Key.String()))
		return
	}
	s.runJob(ctx, def, state, h)
}

func (s *Service) runJob(ctx context.Context, def engine.JobDefinition, state *runState, h Handler) {
	start := time.Now()
	defer func() {
		if def.ConcurrentExecutionDisallowed {
			state.release()
		}
		if r := recover(); r != nil {
			s.log.Error("job panicked",
				logx.String("job", def.Key.String()),
				logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())))
		}
	}()

	err := h(ctx)
	s.executed.Add(1)
	took := time.Since(start)
	if err != nil {
		s.log.Warn("job failed",
			logx.String("job", def.Key.String()), logx.Duration("took", took), logx.Err(err))
		s.publish(EventJobFailed, def.Key)
		return
	}
	s.log.Debug("job executed",
		logx.String("job", def.Key.String()), logx.Duration("took", took))
	s.publish(EventJobExecuted, def.Key)
}

func (s *Service) publish(typ string, key engine.JobKey) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Type: typ, Data: key.String()})
}
