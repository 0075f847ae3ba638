// Package engine defines the read-only contract schedview uses to
// introspect a live job-scheduling engine.
//
// The engine itself (persistence, firing, misfire handling, clustering) is
// an external collaborator. Everything in this package is a query: nothing
// here mutates scheduler state, and callers must assume the engine keeps
// running (and mutating) concurrently with their reads.
package engine

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports that a queried entity does not exist. It is an
// expected outcome, not a failure; callers translate it to an absent result.
var ErrNotFound = errors.New("engine: entity not found")

// ErrDetailUnavailable reports that the engine cannot materialize a job's
// full definition (typically a remote deployment that cannot resolve the
// job's implementation type locally). Callers must catch and translate it,
// never propagate it.
var ErrDetailUnavailable = errors.New("engine: job definition not available")

// JobKey identifies a job within the engine. Group partitions the job
// namespace; (Name, Group) is unique.
type JobKey struct {
	Name  string
	Group string
}

// String returns the Quartz-style full name "group.name".
func (k JobKey) String() string { return k.Group + "." + k.Name }

// TriggerKey identifies a trigger within the engine.
type TriggerKey struct {
	Name  string
	Group string
}

func (k TriggerKey) String() string { return k.Group + "." + k.Name }

// TriggerState is the engine's raw trigger state. Display layers collapse
// this to a coarser activity status; new states may appear over time, so
// consumers must treat unknown values as "running normally".
type TriggerState int

const (
	TriggerStateNone TriggerState = iota
	TriggerStateNormal
	TriggerStatePaused
	TriggerStateComplete
	TriggerStateError
	TriggerStateBlocked
)

func (s TriggerState) String() string {
	switch s {
	case TriggerStateNone:
		return "none"
	case TriggerStateNormal:
		return "normal"
	case TriggerStatePaused:
		return "paused"
	case TriggerStateComplete:
		return "complete"
	case TriggerStateError:
		return "error"
	case TriggerStateBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// Metadata describes the engine instance as a whole.
type Metadata struct {
	SchedulerName string
	InstanceID    string
	Remote        bool
	JobsExecuted  int
	RunningSince  *time.Time // nil if the engine never started
	EngineType    string
}

// JobDefinition is a job's full definition. Data holds the job's data map
// verbatim (string keys, opaque values).
type JobDefinition struct {
	Key         JobKey
	Description string
	Type        string // job implementation tag (e.g. handler name, class name)

	Durable                       bool
	ConcurrentExecutionDisallowed bool
	PersistJobDataAfterExecution  bool
	RequestsRecovery              bool

	Data map[string]any
}

// TriggerDefinition is a trigger's full definition. Optional timestamps are
// nil when the engine has no value (e.g. a trigger that never fired).
type TriggerDefinition struct {
	Key      TriggerKey
	Schedule Schedule

	StartTime time.Time
	EndTime   *time.Time
	NextFire  *time.Time
	PrevFire  *time.Time
}

// Schedule describes how a trigger fires. The variants below cover the
// common engine trigger kinds; engines may return other implementations,
// which display layers must tolerate (they classify by type and fall back
// to a generic tag).
//
// IsSchedule is a marker method with no behavior. It is exported so engine
// adapters in other packages can contribute their own schedule kinds.
type Schedule interface {
	IsSchedule()
}

// CronSchedule fires on a cron expression.
type CronSchedule struct {
	Expression string
}

// IntervalSchedule fires at a fixed interval ("simple" trigger).
// RepeatCount < 0 means repeat forever.
type IntervalSchedule struct {
	Every       time.Duration
	RepeatCount int
}

// CalendarIntervalSchedule fires every N calendar units (respects DST and
// varying month lengths). Unit is e.g. "minute", "hour", "day", "month".
type CalendarIntervalSchedule struct {
	Every int
	Unit  string
}

// DailyTimeIntervalSchedule fires at a fixed interval within a daily time
// window. Times of day are "HH:MM" strings.
type DailyTimeIntervalSchedule struct {
	StartTimeOfDay string
	EndTimeOfDay   string
	Every          time.Duration
}

func (CronSchedule) IsSchedule()              {}
func (IntervalSchedule) IsSchedule()          {}
func (CalendarIntervalSchedule) IsSchedule()  {}
func (DailyTimeIntervalSchedule) IsSchedule() {}

// Engine is the read-only query surface of a job-scheduling engine.
//
// Semantics:
//   - Ordered results (group names, keys) are returned in the order the
//     engine reports them; implementations that cannot preserve a natural
//     order must document a stable sort instead.
//   - TriggersOfJob returns an empty sequence (not ErrNotFound) for an
//     unknown job.
//   - JobDefinition and TriggerByKey return ErrNotFound for missing keys;
//     JobDefinition may additionally fail with ErrDetailUnavailable.
//   - Every call may suspend on I/O for remote engines and must honor ctx.
type Engine interface {
	IsShutdown(ctx context.Context) (bool, error)
	IsStarted(ctx context.Context) (bool, error)
	Metadata(ctx context.Context) (Metadata, error)

	JobGroupNames(ctx context.Context) ([]string, error)
	TriggerGroupNames(ctx context.Context) ([]string, error)
	AllJobKeys(ctx context.Context) ([]JobKey, error)
	JobKeysInGroup(ctx context.Context, group string) ([]JobKey, error)

	JobDefinition(ctx context.Context, key JobKey) (*JobDefinition, error)
	TriggersOfJob(ctx context.Context, key JobKey) ([]TriggerDefinition, error)
	TriggerByKey(ctx context.Context, key TriggerKey) (*TriggerDefinition, error)
	TriggerState(ctx context.Context, key TriggerKey) (TriggerState, error)
}
