package app

import (
	"fmt"
	"strings"
	"time"

	"schedview/internal/config"
	"schedview/internal/engine/cronengine"
	"schedview/internal/monitor"
	"schedview/internal/observability/pprof"
	"schedview/internal/storage"
)

// Mapping helpers translate the on-disk config into per-service configs,
// parsing duration strings along the way. They are also run from the config
// validator so a bad hot-reload is rejected before anything is applied.

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	path := strings.TrimSpace(sc.Path)

	switch driver {
	case "file":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=file")
		}
		return storage.Config{Driver: driver, Path: path, KeepRecent: sc.KeepRecent}, true, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=sqlite")
		}
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, false, err
		}
		return storage.Config{Driver: driver, Path: path, BusyTimeout: busy, KeepRecent: sc.KeepRecent}, true, nil
	default:
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

func mapEngineConfig(cfg *config.Config) cronengine.Config {
	if cfg == nil {
		return cronengine.Config{}
	}
	return cronengine.Config{
		Enabled:    cfg.Engine.Enabled,
		Name:       cfg.Engine.Name,
		InstanceID: cfg.Engine.InstanceID,
		Timezone:   cfg.Engine.Timezone,
	}
}

func mapMonitorConfig(cfg *config.Config) (monitor.Config, error) {
	if cfg == nil || cfg.Monitor == nil {
		return monitor.Config{}, nil
	}
	mc := cfg.Monitor
	interval, err := config.ParseDurationField("monitor.interval", mc.Interval)
	if err != nil {
		return monitor.Config{}, err
	}
	if mc.RefreshPerMin < 0 {
		return monitor.Config{}, fmt.Errorf("monitor.refresh_per_min must be >= 0")
	}
	return monitor.Config{
		Enabled:       mc.Enabled,
		Interval:      interval,
		RefreshPerMin: mc.RefreshPerMin,
	}, nil
}

func mapPprofConfig(cfg *config.Config) (pprof.Config, error) {
	if cfg == nil {
		return pprof.Config{}, nil
	}
	pc := cfg.Pprof
	read, err := config.ParseDurationField("pprof.read_timeout", pc.ReadTimeout)
	if err != nil {
		return pprof.Config{}, err
	}
	write, err := config.ParseDurationField("pprof.write_timeout", pc.WriteTimeout)
	if err != nil {
		return pprof.Config{}, err
	}
	idle, err := config.ParseDurationField("pprof.idle_timeout", pc.IdleTimeout)
	if err != nil {
		return pprof.Config{}, err
	}
	return pprof.Config{
		Enabled:       pc.Enabled,
		Addr:          pc.Addr,
		Prefix:        pc.Prefix,
		Token:         pc.Token,
		AllowInsecure: pc.AllowInsecure,
		ReadTimeout:   read,
		WriteTimeout:  write,
		IdleTimeout:   idle,
	}, nil
}
