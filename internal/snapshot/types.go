package snapshot

import "time"

// SchedulerStatus is the derived, coarse display status of the engine as a
// whole.
type SchedulerStatus string

const (
	StatusShutdown SchedulerStatus = "shutdown"
	StatusEmpty    SchedulerStatus = "empty" // no job groups exist
	StatusStarted  SchedulerStatus = "started"
	StatusReady    SchedulerStatus = "ready" // initialized but not started
)

// ActivityStatus is the derived, coarse display status of a trigger.
type ActivityStatus string

const (
	ActivityActive   ActivityStatus = "active"
	ActivityPaused   ActivityStatus = "paused"
	ActivityComplete ActivityStatus = "complete"
)

// SchedulerSnapshot is the immutable hierarchical read model produced by one
// Provider.Snapshot() call. It is owned by the caller and never mutated or
// reused after construction.
//
// JobsTotal reflects the all-job-keys count taken during the same build; it
// may momentarily disagree with the sum of group job counts if the engine
// mutates between the two queries.
type SchedulerSnapshot struct {
	Name       string          `json:"name"`
	InstanceID string          `json:"instance_id"`
	Status     SchedulerStatus `json:"status"`
	Remote     bool            `json:"remote"`
	EngineType string          `json:"engine_type"`

	JobsExecuted int        `json:"jobs_executed"`
	JobsTotal    int        `json:"jobs_total"`
	RunningSince *time.Time `json:"running_since,omitempty"`

	JobGroups     []JobGroup `json:"job_groups"`
	TriggerGroups []string   `json:"trigger_groups"`

	TakenAt time.Time `json:"taken_at"`
}

// JobGroup is a named partition of jobs. Name is unique within a snapshot;
// Jobs keep the order the engine reported their keys.
type JobGroup struct {
	Name string `json:"name"`
	Jobs []Job  `json:"jobs"`
}

// Job is one job with its triggers. (Name, Group) is unique within a
// snapshot.
type Job struct {
	Name     string    `json:"name"`
	Group    string    `json:"group"`
	Triggers []Trigger `json:"triggers"`
}

// Trigger is the display view of one trigger. (Name, Group) is unique
// within a job. Optional timestamps are nil when the engine has no value.
type Trigger struct {
	Name   string         `json:"name"`
	Group  string         `json:"group"`
	Status ActivityStatus `json:"status"`
	Type   string         `json:"type"`

	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	NextFire  *time.Time `json:"next_fire,omitempty"`
	PrevFire  *time.Time `json:"prev_fire,omitempty"`
}

// JobDetail is the on-demand detail view of one job: the basic data (name,
// group, triggers) plus the job's data map and a fixed-key properties table.
//
// When the engine cannot materialize the job's definition, DataMap and
// Properties each carry a single sentinel entry under SentinelKey instead of
// real content; the basic data is still present.
type JobDetail struct {
	Name     string    `json:"name"`
	Group    string    `json:"group"`
	Triggers []Trigger `json:"triggers"`

	DataMap    map[string]any    `json:"data_map"`
	Properties map[string]string `json:"properties"`
}

// Fixed keys of JobDetail.Properties.
const (
	PropDescription          = "Description"
	PropFullName             = "Full name"
	PropJobType              = "Job type"
	PropDurable              = "Durable"
	PropConcurrentDisallowed = "ConcurrentExecutionDisallowed"
	PropPersistData          = "PersistJobDataAfterExecution"
	PropRequestsRecovery     = "RequestsRecovery"
)

// SentinelKey is the single key present in JobDetail.DataMap and
// JobDetail.Properties when the job's definition could not be obtained.
const SentinelKey = "Data"

// DetailUnavailableMessage is the sentinel value stored under SentinelKey.
// It signals "no detail for this engine deployment", as opposed to a job
// whose data map is legitimately empty.
const DetailUnavailableMessage = "Job details are not available for this engine deployment"
