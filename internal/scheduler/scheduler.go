package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tpcgrp/p6ebs-sync/internal/config"
	apperrors "github.com/tpcgrp/p6ebs-sync/internal/errors"
	"github.com/tpcgrp/p6ebs-sync/internal/models"
)

// DefaultMinDelay is the delay before the first run of a type that never
// synced or whose interval already elapsed
const DefaultMinDelay = time.Second

// RunFunc executes one sync of an integration type
type RunFunc func(ctx context.Context, integrationType string) (*models.SyncResult, error)

// LastSyncFunc returns when a type last completed
type LastSyncFunc func(integrationType string) (time.Time, bool)

// NeededFunc reports whether a type has anything to sync
type NeededFunc func(integrationType string) bool

// Job is a run started outside the scheduler
type Job interface {
	Done() <-chan struct{}
	Result() (*models.SyncResult, error)
}

type entry struct {
	interval  time.Duration
	done      chan struct{}
	active    bool
	lastRun   *time.Time
	lastError string
}

// Scheduler keeps at most one recurring timer per integration type
type Scheduler struct {
	run      RunFunc
	lastSync LastSyncFunc
	needed   NeededFunc
	minDelay time.Duration
	logger   *logrus.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	entries map[string]*entry
}

// New creates a scheduler. lastSync may be nil.
func New(run RunFunc, lastSync LastSyncFunc, logger *logrus.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		run:      run,
		lastSync: lastSync,
		minDelay: DefaultMinDelay,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		entries:  make(map[string]*entry),
	}
}

// SetMinDelay changes the near-immediate delay used for overdue schedules
func (s *Scheduler) SetMinDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.minDelay = d
}

// SkipUnchanged makes timer firings skip types for which needed returns false.
// Tracked runs are never skipped.
func (s *Scheduler) SkipUnchanged(needed NeededFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.needed = needed
}

// ScheduleAll schedules every enabled integration type at its configured interval
func (s *Scheduler) ScheduleAll(cfg *config.IntegrationConfig) error {
	var firstErr error
	for _, t := range cfg.IntegrationTypes() {
		if !cfg.IsEnabled(t) {
			continue
		}
		if err := s.Schedule(t, cfg.IntervalFor(t)); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// InitialDelay returns how long to wait before the first run: almost nothing
// when the type never synced, otherwise what is left of the interval since
// the last sync, never less than the minimum delay
func (s *Scheduler) InitialDelay(integrationType string, interval time.Duration) time.Duration {
	s.mu.RLock()
	minDelay := s.minDelay
	s.mu.RUnlock()

	if s.lastSync == nil {
		return minDelay
	}
	last, ok := s.lastSync(integrationType)
	if !ok {
		return minDelay
	}
	remaining := interval - time.Since(last)
	if remaining < minDelay {
		return minDelay
	}
	return remaining
}

// Schedule starts a recurring run of integrationType, replacing any existing
// schedule for it. A non-positive interval marks the entry inactive and
// returns a scheduling error.
func (s *Scheduler) Schedule(integrationType string, interval time.Duration) error {
	logger := s.logger.WithFields(logrus.Fields{
		"integration_type": integrationType,
		"interval":         interval.String(),
	})

	if s.ctx.Err() != nil {
		return apperrors.NewSchedulingError("scheduler is shut down", nil)
	}

	delay := s.InitialDelay(integrationType, interval)

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, exists := s.entries[integrationType]; exists {
		s.stopLocked(old)
	}

	if interval <= 0 {
		err := apperrors.NewSchedulingError(fmt.Sprintf("invalid interval %s for %s", interval, integrationType), nil)
		s.entries[integrationType] = &entry{interval: interval, lastError: err.Error()}
		logger.WithError(err).Error("Failed to schedule integration")
		return err
	}

	e := &entry{interval: interval, done: make(chan struct{}), active: true}
	s.entries[integrationType] = e

	s.wg.Add(1)
	go s.loop(integrationType, e, delay)

	logger.WithField("initial_delay", delay.String()).Info("Scheduled integration")
	return nil
}

func (s *Scheduler) loop(integrationType string, e *entry, delay time.Duration) {
	defer s.wg.Done()

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-s.ctx.Done():
		return
	case <-e.done:
		return
	case <-timer.C:
		s.tick(integrationType)
	}

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-e.done:
			return
		case <-ticker.C:
			s.tick(integrationType)
		}
	}
}

func (s *Scheduler) tick(integrationType string) {
	s.mu.RLock()
	needed := s.needed
	s.mu.RUnlock()

	if needed != nil && !needed(integrationType) {
		s.logger.WithField("integration_type", integrationType).Debug("No changes since last sync, skipping run")
		return
	}
	s.fire(s.ctx, integrationType)
}

// fire runs the integration once. Errors and panics are recorded on the entry
// and never stop the schedule.
func (s *Scheduler) fire(ctx context.Context, integrationType string) (result *models.SyncResult, err error) {
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = apperrors.NewInternalError(fmt.Sprintf("run of %s panicked: %v", integrationType, r), nil)
		}
		s.record(integrationType, started, err)
	}()

	s.logger.WithField("integration_type", integrationType).Info("Running integration")
	return s.run(ctx, integrationType)
}

// Track records the outcome of a run started elsewhere, such as a manual run,
// on the schedule of its type once it finishes
func (s *Scheduler) Track(integrationType string, started time.Time, job Job) {
	if s.ctx.Err() != nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		select {
		case <-job.Done():
			_, err := job.Result()
			s.record(integrationType, started, err)
		case <-s.ctx.Done():
		}
	}()
}

// record stores the last run of a scheduled type. Unscheduled types are
// only logged.
func (s *Scheduler) record(integrationType string, started time.Time, err error) {
	s.mu.Lock()
	if e, ok := s.entries[integrationType]; ok {
		e.lastRun = &started
		e.lastError = ""
		if err != nil {
			e.lastError = err.Error()
		}
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.WithField("integration_type", integrationType).WithError(err).Error("Integration run failed")
	}
}

// Cancel stops the schedule of integrationType. Cancelling an unscheduled
// type is a no-op.
func (s *Scheduler) Cancel(integrationType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[integrationType]; ok {
		s.stopLocked(e)
		delete(s.entries, integrationType)
		s.logger.WithField("integration_type", integrationType).Info("Cancelled schedule")
	}
}

func (s *Scheduler) stopLocked(e *entry) {
	if e.active {
		close(e.done)
		e.active = false
	}
}

// Info returns the schedule of one type
func (s *Scheduler) Info(integrationType string) (models.ScheduleInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[integrationType]
	if !ok {
		return models.ScheduleInfo{}, false
	}
	return s.infoLocked(integrationType, e), true
}

// Schedules returns every schedule sorted by integration type
func (s *Scheduler) Schedules() []models.ScheduleInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ScheduleInfo, 0, len(s.entries))
	for t, e := range s.entries {
		out = append(out, s.infoLocked(t, e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IntegrationType < out[j].IntegrationType })
	return out
}

func (s *Scheduler) infoLocked(integrationType string, e *entry) models.ScheduleInfo {
	info := models.ScheduleInfo{
		IntegrationType: integrationType,
		IntervalHours:   e.interval.Hours(),
		Active:          e.active,
		LastError:       e.lastError,
	}

	var last *time.Time
	if e.lastRun != nil {
		t := *e.lastRun
		last = &t
	} else if s.lastSync != nil {
		if t, ok := s.lastSync(integrationType); ok {
			last = &t
		}
	}
	if last != nil {
		info.LastRun = last
		if e.active {
			next := last.Add(e.interval)
			info.NextRun = &next
		}
	}
	return info
}

// Shutdown stops every schedule and waits for running timers to exit
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.cancel()

	s.mu.Lock()
	for _, e := range s.entries {
		s.stopLocked(e)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
