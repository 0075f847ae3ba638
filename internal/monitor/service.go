// Package monitor drives periodic snapshot refreshes.
//
// It owns the only write path into the snapshot archive: every successful
// refresh (periodic or on-demand) is summarized, published on the event bus
// and appended to the store when one is configured. On-demand refreshes are
// rate limited so a misbehaving caller cannot hammer the engine.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"schedview/internal/eventbus"
	"schedview/internal/snapshot"
	"schedview/internal/storage"
	logx "schedview/pkg/logx"
)

// ErrThrottled reports that a refresh was rejected by the rate limiter.
var ErrThrottled = errors.New("monitor: refresh throttled")

// EventSnapshotRefreshed is published with a storage.SnapshotRecord payload.
const EventSnapshotRefreshed = "snapshot.refreshed"

type Config struct {
	Enabled       bool
	Interval      time.Duration // default 30s
	RefreshPerMin int           // default 30
}

const (
	defaultInterval      = 30 * time.Second
	defaultRefreshPerMin = 30
)

func (c Config) interval() time.Duration {
	if c.Interval > 0 {
		return c.Interval
	}
	return defaultInterval
}

func (c Config) refreshPerMin() int {
	if c.RefreshPerMin > 0 {
		return c.RefreshPerMin
	}
	return defaultRefreshPerMin
}

type Service struct {
	mu sync.Mutex

	cfg   Config
	prov  *snapshot.Provider
	log   logx.Logger
	bus   eventbus.Bus
	store storage.Store

	limiter *rate.Limiter

	last       *storage.SnapshotRecord
	lastStatus snapshot.SchedulerStatus

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg Config, prov *snapshot.Provider, log logx.Logger, bus eventbus.Bus, store storage.Store) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:     cfg,
		prov:    prov,
		log:     log,
		bus:     bus,
		store:   store,
		limiter: rate.NewLimiter(perMinute(cfg.refreshPerMin()), 1),
	}
}

func perMinute(n int) rate.Limit {
	return rate.Limit(float64(n) / 60.0)
}

// Enabled reports the current config flag. (Thread-safe; Apply() may run concurrently.)
func (s *Service) Enabled() bool {
	s.mu.Lock()
	en := s.cfg.Enabled
	s.mu.Unlock()
	return en
}

func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg.refreshPerMin() != s.cfg.refreshPerMin() {
		s.limiter.SetLimit(perMinute(cfg.refreshPerMin()))
	}
	s.cfg = cfg
	// A changed interval takes effect on the next loop turn.
}

// Start launches the refresh loop. Idempotent.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(loopCtx)
	s.log.Info("monitor started", logx.Duration("interval", s.currentInterval()))
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		// best-effort
	}
	s.log.Info("monitor stopped")
}

func (s *Service) loop(ctx context.Context) {
	defer s.wg.Done()
	timer := time.NewTimer(s.currentInterval())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if _, err := s.Refresh(ctx); err != nil && !errors.Is(err, ErrThrottled) {
				s.log.Warn("periodic refresh failed", logx.Err(err))
			}
			timer.Reset(s.currentInterval())
		}
	}
}

func (s *Service) currentInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.interval()
}

// Refresh takes a snapshot now. Returns ErrThrottled when the refresh budget
// is exhausted; the previous summary stays in place either way.
func (s *Service) Refresh(ctx context.Context) (*snapshot.SchedulerSnapshot, error) {
	if !s.limiter.Allow() {
		return nil, ErrThrottled
	}

	start := time.Now()
	snap, err := s.prov.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh snapshot: %w", err)
	}
	rec := summarize(snap)

	s.mu.Lock()
	prevStatus := s.lastStatus
	s.lastStatus = snap.Status
	s.last = &rec
	s.mu.Unlock()

	if prevStatus != "" && prevStatus != snap.Status {
		s.log.Info("scheduler status changed",
			logx.String("from", string(prevStatus)), logx.String("to", string(snap.Status)))
	}
	s.log.Debug("snapshot refreshed",
		logx.String("status", string(snap.Status)),
		logx.Int("jobs", snap.JobsTotal),
		logx.Duration("took", time.Since(start)))

	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: EventSnapshotRefreshed, Data: rec})
	}
	if s.store != nil {
		// Archival is best-effort; a full disk must not break refreshes.
		if err := s.store.AppendSnapshot(ctx, rec); err != nil {
			s.log.Warn("archive snapshot failed", logx.Err(err))
		}
	}
	return snap, nil
}

// LastSummary returns the most recent refresh summary, if any.
func (s *Service) LastSummary() (storage.SnapshotRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return storage.SnapshotRecord{}, false
	}
	return *s.last, true
}

func summarize(snap *snapshot.SchedulerSnapshot) storage.SnapshotRecord {
	triggers := 0
	for _, g := range snap.JobGroups {
		for _, j := range g.Jobs {
			triggers += len(j.Triggers)
		}
	}
	return storage.SnapshotRecord{
		At:           snap.TakenAt,
		Scheduler:    snap.Name,
		Status:       string(snap.Status),
		JobsTotal:    snap.JobsTotal,
		JobsExecuted: snap.JobsExecuted,
		JobGroups:    len(snap.JobGroups),
		Triggers:     triggers,
	}
}
