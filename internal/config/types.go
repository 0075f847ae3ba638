package config

// Config is the root configuration document.
//
// Configs may be JSON or YAML; both are decoded strictly, so unknown keys
// are rejected early instead of silently ignored.
type Config struct {
	Logging LoggingConfig `json:"logging"`
	Pprof   PprofConfig   `json:"pprof,omitempty"`

	// Engine configures the embedded scheduling engine and its jobs.
	Engine EngineConfig `json:"engine"`

	// Monitor controls the periodic snapshot refresh loop.
	Monitor *MonitorConfig `json:"monitor,omitempty"`

	// Storage enables the optional snapshot history archive.
	Storage *StorageConfig `json:"storage,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// EngineConfig controls the embedded engine.
type EngineConfig struct {
	Enabled    bool   `json:"enabled"`
	Name       string `json:"name,omitempty"`        // scheduler display name
	InstanceID string `json:"instance_id,omitempty"` // default "local"
	Timezone   string `json:"timezone,omitempty"`    // trigger timezone

	Jobs []JobConfig `json:"jobs,omitempty"`
}

// JobConfig declares one job registered at startup.
type JobConfig struct {
	Name        string `json:"name"`
	Group       string `json:"group,omitempty"` // default "DEFAULT"
	Description string `json:"description,omitempty"`

	// Handler names a registered handler implementation.
	Handler string `json:"handler"`

	Durable            bool `json:"durable,omitempty"`
	DisallowConcurrent bool `json:"disallow_concurrent,omitempty"`

	// Data is the job's data map, carried verbatim into detail views.
	Data map[string]any `json:"data,omitempty"`

	Triggers []TriggerConfig `json:"triggers"`
}

// TriggerConfig declares one trigger of a job.
type TriggerConfig struct {
	Name  string `json:"name,omitempty"`  // default "<job>-<idx>"
	Group string `json:"group,omitempty"` // default: job group

	// Schedule accepts cron ("*/5 * * * *", "@hourly"), durations ("55m")
	// or HH:MM intervals ("02:30"). See the engine docs for prefixes.
	Schedule string `json:"schedule"`

	// EndAfter stops the trigger this long after startup (Go duration).
	EndAfter string `json:"end_after,omitempty"`
}

// MonitorConfig controls the snapshot refresh loop.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type MonitorConfig struct {
	Enabled bool `json:"enabled"`

	// Interval between automatic refreshes. Default "30s".
	Interval string `json:"interval,omitempty"`

	// RefreshPerMin caps on-demand refreshes (manual plus automatic).
	// 0 keeps the default of 30.
	RefreshPerMin int `json:"refresh_per_min,omitempty"`
}

// StorageConfig controls the optional snapshot archive.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./schedview_store" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
	KeepRecent  int    `json:"keep_recent,omitempty"`
}

// PprofConfig controls the optional pprof HTTP server.
//
// Security note:
//   - Prefer binding to localhost (e.g. "127.0.0.1:6060").
//   - If you bind to a non-loopback address, set a token or explicitly allow_insecure.
type PprofConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"`   // default: "127.0.0.1:6060"
	Prefix        string `json:"prefix,omitempty"` // default: "/debug/pprof/"
	Token         string `json:"token,omitempty"`  // optional bearer token (do not log)
	AllowInsecure bool   `json:"allow_insecure,omitempty"`

	// Server timeouts (Go duration strings). WriteTimeout defaults to 0 (disabled)
	// so /profile (which can take 30s+) works reliably.
	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`
}
