// Package app wires configuration, the embedded engine, the snapshot
// provider, the monitor and the ambient services into one process.
package app

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"schedview/internal/config"
	"schedview/internal/engine"
	"schedview/internal/engine/cronengine"
	"schedview/internal/eventbus"
	"schedview/internal/monitor"
	"schedview/internal/observability/pprof"
	"schedview/internal/runtime/supervisor"
	"schedview/internal/snapshot"
	"schedview/internal/storage"
	logx "schedview/pkg/logx"
)

type App struct {
	cfgPath string

	cfgm *config.ConfigManager
	sup  *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store

	eng   *cronengine.Service
	prov  *snapshot.Provider
	mon   *monitor.Service
	pprof *pprof.Service

	// cfgJobs tracks the job keys registered from config, so a reload can
	// remove jobs that disappeared from the file.
	cfgJobs map[engine.JobKey]bool
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))

	bus := eventbus.New()

	// Storage (optional)
	var store storage.Store
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		store = st
		log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	eng := cronengine.New(mapEngineConfig(cfg), log.With(logx.String("comp", "engine")), bus)
	registerBuiltinHandlers(eng, log)

	prov := snapshot.New(eng, log.With(logx.String("comp", "snapshot")))

	monCfg, err := mapMonitorConfig(cfg)
	if err != nil {
		return nil, err
	}
	mon := monitor.New(monCfg, prov, log.With(logx.String("comp", "monitor")), bus, store)

	pprofCfg, err := mapPprofConfig(cfg)
	if err != nil {
		return nil, err
	}
	pprofSvc := pprof.New(pprofCfg, log.With(logx.String("comp", "pprof")))

	return &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		bus:     bus,
		store:   store,
		eng:     eng,
		prov:    prov,
		mon:     mon,
		pprof:   pprofSvc,
		cfgJobs: map[engine.JobKey]bool{},
	}, nil
}

// RegisterHandler exposes the engine's handler registry so embedders can add
// handlers before Start(). Config jobs referencing unregistered handlers are
// skipped with a warning.
func (a *App) RegisterHandler(name string, h cronengine.Handler) {
	a.eng.RegisterHandler(name, h)
}

// Provider returns the snapshot provider (the read surface of the app).
func (a *App) Provider() *snapshot.Provider { return a.prov }

// Monitor returns the refresh service.
func (a *App) Monitor() *monitor.Service { return a.mon }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	// transactional config reload: validate before commit/publish
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(c context.Context, cfg *config.Config) error {
		if err := config.Validate(cfg); err != nil {
			return err
		}
		if _, err := mapMonitorConfig(cfg); err != nil {
			return err
		}
		if _, err := mapPprofConfig(cfg); err != nil {
			return err
		}
		_, _, err := mapStorageConfig(cfg)
		return err
	})

	a.syncConfigJobs(a.cfgm.Get())

	if a.eng.Enabled() {
		a.eng.Start(a.sup.Context())
	}
	if a.mon.Enabled() {
		a.mon.Start(a.sup.Context())
	}
	if a.pprof.Enabled() {
		a.pprof.Start(a.sup.Context())
	}

	// Log bus events for observability/debug (components also subscribe themselves).
	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				// Keep this debug-level to avoid noise for busy schedulers.
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})

	// hot reload config fan-out
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config in the channel.
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				a.applyReload(c, lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started")
	return nil
}

func (a *App) applyReload(ctx context.Context, oldCfg, newCfg *config.Config) {
	sections, attrs := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Debug("config reload received, but no effective changes detected")
		return
	}
	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Debug("config change summary", fields...)

	if slices.Contains(sections, "storage") {
		a.log.Warn("storage config changed; restart required for changes to take effect")
	}

	// apply logging updates
	a.logs.Apply(logx.Config{
		Level:   newCfg.Logging.Level,
		Console: newCfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: newCfg.Logging.File.Enabled,
			Path:    newCfg.Logging.File.Path,
		},
	})

	// apply engine updates (timezone live; enable flag needs a restart since
	// engine shutdown is terminal)
	if oldCfg != nil && oldCfg.Engine.Enabled != newCfg.Engine.Enabled {
		a.log.Warn("engine.enabled changed; restart required for changes to take effect")
	}
	a.eng.Apply(mapEngineConfig(newCfg))
	a.syncConfigJobs(newCfg)

	// apply monitor updates (live)
	prevMonEnabled := a.mon.Enabled()
	monCfg, err := mapMonitorConfig(newCfg)
	if err != nil {
		a.log.Warn("invalid monitor config; keeping previous", logx.Err(err))
	} else {
		a.mon.Apply(monCfg)
		if prevMonEnabled && !monCfg.Enabled {
			a.log.Info("monitor disabled via config")
			stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			a.mon.Stop(stopCtx)
			cancel()
		} else if !prevMonEnabled && monCfg.Enabled {
			a.log.Info("monitor enabled via config")
			a.mon.Start(ctx)
		}
	}

	// apply pprof updates (live)
	ppc, err := mapPprofConfig(newCfg)
	if err != nil {
		a.log.Warn("invalid pprof config; keeping previous", logx.Err(err))
	} else {
		a.pprof.Reconfigure(ctx, ppc)
	}

	a.log.Info("config reloaded", fields...)
}

// syncConfigJobs registers the config's job list with the engine and removes
// config-registered jobs that are gone from the file. Jobs added through the
// API (RegisterHandler + AddJob by an embedder) are left alone.
func (a *App) syncConfigJobs(cfg *config.Config) {
	if cfg == nil {
		return
	}
	now := time.Now()
	seen := map[engine.JobKey]bool{}

	for _, jc := range cfg.Engine.Jobs {
		group := jc.Group
		if group == "" {
			group = "DEFAULT"
		}
		key := engine.JobKey{Name: jc.Name, Group: group}

		specs := make([]cronengine.TriggerSpec, 0, len(jc.Triggers))
		for i, tc := range jc.Triggers {
			spec := cronengine.TriggerSpec{
				Name:     tc.Name,
				Group:    tc.Group,
				Schedule: tc.Schedule,
			}
			if strings.TrimSpace(tc.EndAfter) != "" {
				d, err := config.ParseDurationField(
					fmt.Sprintf("engine.jobs.%s.triggers[%d].end_after", jc.Name, i), tc.EndAfter)
				if err != nil {
					// Validation catches this on reload; can only happen at first load.
					a.log.Warn("invalid trigger end_after; ignoring bound",
						logx.String("job", key.String()), logx.Err(err))
				} else if d > 0 {
					end := now.Add(d)
					spec.EndAt = &end
				}
			}
			specs = append(specs, spec)
		}

		err := a.eng.AddJob(engine.JobDefinition{
			Key:                           key,
			Description:                   jc.Description,
			Type:                          jc.Handler,
			Durable:                       jc.Durable,
			ConcurrentExecutionDisallowed: jc.DisallowConcurrent,
			Data:                          jc.Data,
		}, specs...)
		if err != nil {
			a.log.Warn("job skipped", logx.String("job", key.String()), logx.Err(err))
			continue
		}
		seen[key] = true
	}

	for key := range a.cfgJobs {
		if !seen[key] {
			if a.eng.RemoveJob(key) {
				a.log.Info("job removed via config", logx.String("job", key.String()))
			}
		}
	}
	a.cfgJobs = seen
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping")

	// Cancel the run context first so background loops start unwinding immediately.
	a.sup.Cancel()

	// Run a shutdown step with an upper bound so one component can't stall the whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		stepCtx := ctx
		var cancel context.CancelFunc
		if max > 0 {
			// respect the caller's deadline; never extend it
			if dl, ok := ctx.Deadline(); ok {
				if rem := time.Until(dl); rem < max {
					max = rem
				}
			}
			if max > 0 {
				stepCtx, cancel = context.WithTimeout(ctx, max)
				defer cancel()
			}
		}
		start := time.Now()
		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()
		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name), logx.Duration("elapsed", time.Since(start)))
		}
	}

	step("monitor", 2*time.Second, func(c context.Context) error { a.mon.Stop(c); return nil })
	step("engine", 3*time.Second, func(c context.Context) error { a.eng.Shutdown(c); return nil })
	step("pprof", time.Second, func(c context.Context) error { a.pprof.Stop(c); return nil })
	step("storage", time.Second, func(c context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})

	// Finally, wait for supervised goroutines (config watch/reload, event log).
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}

// registerBuiltinHandlers installs the handlers available to config-declared
// jobs out of the box.
func registerBuiltinHandlers(eng *cronengine.Service, log logx.Logger) {
	eng.RegisterHandler("noop", func(ctx context.Context) error { return nil })
	eng.RegisterHandler("heartbeat", func(ctx context.Context) error {
		log.Debug("heartbeat")
		return nil
	})
}
