package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (jsonl history)
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
	KeepRecent  int           // retained records; 0 means default (1000)
}

// SnapshotRecord is one archived snapshot summary.
// Keep it compact and schema-stable.
type SnapshotRecord struct {
	At           time.Time `json:"at"`
	Scheduler    string    `json:"scheduler"`
	Status       string    `json:"status"`
	JobsTotal    int       `json:"jobs_total"`
	JobsExecuted int       `json:"jobs_executed"`
	JobGroups    int       `json:"job_groups"`
	Triggers     int       `json:"triggers"`
}

const defaultKeepRecent = 1000

func (c Config) keepRecent() int {
	if c.KeepRecent > 0 {
		return c.KeepRecent
	}
	return defaultKeepRecent
}
