package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate performs structural checks that don't need runtime collaborators.
// Handler existence is checked at registration time by the engine.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if _, err := ParseDurationField("storage.busy_timeout", storageBusyTimeout(cfg)); err != nil {
		return err
	}
	if cfg.Monitor != nil {
		if _, err := ParseDurationField("monitor.interval", cfg.Monitor.Interval); err != nil {
			return err
		}
		if cfg.Monitor.RefreshPerMin < 0 {
			return fmt.Errorf("monitor.refresh_per_min must be >= 0")
		}
	}
	if tz := strings.TrimSpace(cfg.Engine.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("engine.timezone: %w", err)
		}
	}

	seen := map[string]struct{}{}
	for i, job := range cfg.Engine.Jobs {
		if strings.TrimSpace(job.Name) == "" {
			return fmt.Errorf("engine.jobs[%d]: name is required", i)
		}
		if strings.TrimSpace(job.Handler) == "" {
			return fmt.Errorf("engine.jobs[%d] (%s): handler is required", i, job.Name)
		}
		group := job.Group
		if group == "" {
			group = "DEFAULT"
		}
		full := group + "." + job.Name
		if _, dup := seen[full]; dup {
			return fmt.Errorf("engine.jobs[%d]: duplicate job %s", i, full)
		}
		seen[full] = struct{}{}

		if len(job.Triggers) == 0 {
			return fmt.Errorf("engine.jobs[%d] (%s): at least one trigger is required", i, job.Name)
		}
		for j, tr := range job.Triggers {
			if strings.TrimSpace(tr.Schedule) == "" {
				return fmt.Errorf("engine.jobs[%d].triggers[%d]: schedule is required", i, j)
			}
			if _, err := ParseDurationField(
				fmt.Sprintf("engine.jobs[%d].triggers[%d].end_after", i, j), tr.EndAfter); err != nil {
				return err
			}
		}
	}
	return nil
}

func storageBusyTimeout(cfg *Config) string {
	if cfg.Storage == nil {
		return ""
	}
	return cfg.Storage.BusyTimeout
}
