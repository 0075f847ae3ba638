package cronengine

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"schedview/internal/engine"
)

// Config controls the embedded engine.
type Config struct {
	Enabled    bool
	Name       string // scheduler name reported in metadata
	InstanceID string
	Timezone   string // IANA TZ, e.g. "Asia/Jakarta"
}

// Handler executes a job's work. Handlers are registered by name and
// referenced from job definitions via JobDefinition.Type.
type Handler func(ctx context.Context) error

// TriggerSpec declares one trigger when registering a job.
type TriggerSpec struct {
	Name  string
	Group string

	// Schedule is a schedule string (cron, @every, duration, HH:MM).
	Schedule string

	// EndAt optionally bounds the trigger; once passed, the trigger
	// reports Complete and never fires again.
	EndAt *time.Time
}

// runState tracks whether a job is already in-flight, gating
// ConcurrentExecutionDisallowed jobs.
type runState struct {
	mu      sync.Mutex
	running bool
}

func (s *runState) tryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *runState) release() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

type jobRecord struct {
	def      engine.JobDefinition
	state    *runState
	triggers []*triggerRecord
}

type triggerRecord struct {
	key    engine.TriggerKey
	jobKey engine.JobKey

	spec  string // normalized cron spec ("@every 55s" or raw cron)
	sched engine.Schedule

	start time.Time
	end   *time.Time

	entryID  cron.EntryID // 0 while not registered (stopped/paused/complete)
	paused   bool
	complete bool

	prevFire *time.Time
}
