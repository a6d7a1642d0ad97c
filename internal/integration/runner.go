package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/tpcgrp/p6ebs-sync/internal/batch"
	"github.com/tpcgrp/p6ebs-sync/internal/config"
	"github.com/tpcgrp/p6ebs-sync/internal/correlation"
	apperrors "github.com/tpcgrp/p6ebs-sync/internal/errors"
	"github.com/tpcgrp/p6ebs-sync/internal/lock"
	"github.com/tpcgrp/p6ebs-sync/internal/mapping"
	"github.com/tpcgrp/p6ebs-sync/internal/metrics"
	"github.com/tpcgrp/p6ebs-sync/internal/models"
	"github.com/tpcgrp/p6ebs-sync/internal/notify"
	"github.com/tpcgrp/p6ebs-sync/internal/reconcile"
	"github.com/tpcgrp/p6ebs-sync/internal/source"
	"github.com/tpcgrp/p6ebs-sync/internal/transform"
	"github.com/tpcgrp/p6ebs-sync/internal/validation"
)

// ErrCancelled is returned by a run stopped through Cancel
var ErrCancelled = errors.New("cancelled")

const (
	notifyTimeout   = 30 * time.Second
	handleRetention = time.Hour
)

// Deps are the collaborators of a Runner. Notifier and Metrics may be nil.
type Deps struct {
	Manager      *Manager
	Gate         *validation.Gate
	Locker       lock.Locker
	P6           source.EntitySource
	EBS          source.EntitySource
	Registry     *mapping.Registry
	Transformer  *transform.Service
	Correlations *correlation.Store
	Provider     *config.Provider
	Notifier     notify.Notifier
	Metrics      *metrics.SyncMetrics
	Config       *config.SyncConfig
	Logger       *logrus.Logger
}

// Runner executes sync sessions: validate, fetch, detect, resolve, commit, record
type Runner struct {
	Deps
	detector  *reconcile.Detector
	committer *reconcile.Committer

	mu      sync.Mutex
	flags   map[string]*atomic.Bool
	handles map[string]*Handle
	waiting map[string]bool
}

// NewRunner creates a runner. Write-back uses a worker pool sized by d.Config.
func NewRunner(d Deps) *Runner {
	processor := batch.NewProcessor(&d.Config.BatchConfig)
	return &Runner{
		Deps:      d,
		detector:  reconcile.NewDetector(d.Logger),
		committer: reconcile.NewCommitter(d.P6, d.EBS, processor, d.Correlations, d.Metrics, d.Logger),
		flags:     make(map[string]*atomic.Bool),
		handles:   make(map[string]*Handle),
		waiting:   make(map[string]bool),
	}
}

// Committer returns the committer used for write-back
func (r *Runner) Committer() *reconcile.Committer {
	return r.committer
}

// Run executes one session of integrationType and waits for it. A type that is
// already running is rejected with a SyncInProgressError.
func (r *Runner) Run(ctx context.Context, integrationType string) (*models.SyncResult, error) {
	flag, release, err := r.acquire(ctx, integrationType)
	if err != nil {
		return nil, err
	}
	defer release()
	return r.execute(ctx, integrationType, flag)
}

// Submit starts a session in the background. The busy check happens before
// Submit returns.
func (r *Runner) Submit(integrationType string) (*Handle, error) {
	flag, release, err := r.acquire(context.Background(), integrationType)
	if err != nil {
		return nil, err
	}

	h := &Handle{
		ID:              uuid.New().String(),
		IntegrationType: integrationType,
		StartedAt:       time.Now(),
		done:            make(chan struct{}),
		cancel:          func() { flag.Store(true) },
	}

	r.mu.Lock()
	for id, old := range r.handles {
		if old.finished() && time.Since(old.StartedAt) > handleRetention {
			delete(r.handles, id)
		}
	}
	r.handles[h.ID] = h
	r.mu.Unlock()

	go func() {
		ctx := batch.WithProgress(context.Background(), h.setProgress)
		result, err := r.execute(ctx, integrationType, flag)
		release()
		h.complete(result, err)
	}()
	return h, nil
}

// SyncNeeded reports whether integrationType has anything to do: it never
// synced, one of its entity types changed in either system since, or its
// last transfer left records waiting. Sources that cannot tell when they
// changed always need a sync.
func (r *Runner) SyncNeeded(integrationType string) bool {
	r.mu.Lock()
	waiting := r.waiting[integrationType]
	r.mu.Unlock()
	if waiting {
		return true
	}

	types := EntityTypes(integrationType)
	if t, ok := transfers[integrationType]; ok {
		types = append(types, t.entityType)
	}
	changedP6, ok := latestChange(r.P6, types)
	if !ok {
		return true
	}
	changedEBS, ok := latestChange(r.EBS, types)
	if !ok {
		return true
	}
	return r.Manager.IsSyncNeeded(integrationType, changedP6, changedEBS)
}

func latestChange(src source.EntitySource, entityTypes []string) (time.Time, bool) {
	var latest time.Time
	for _, entityType := range entityTypes {
		t, ok := source.LastChange(src, entityType)
		if !ok {
			return time.Time{}, false
		}
		if t.After(latest) {
			latest = t
		}
	}
	return latest, true
}

// Handle returns a submitted run by id
func (r *Runner) Handle(id string) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[id]
	return h, ok
}

// Cancel asks the running session of integrationType to stop at the next
// phase boundary. Writes already made are kept. Returns false when nothing runs.
func (r *Runner) Cancel(integrationType string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	flag, ok := r.flags[integrationType]
	if ok {
		flag.Store(true)
		r.Logger.WithField("integration_type", integrationType).Info("Cancellation requested")
	}
	return ok
}

// Active returns the integration types currently running
func (r *Runner) Active() []string {
	return r.Locker.Active()
}

func (r *Runner) acquire(ctx context.Context, integrationType string) (*atomic.Bool, func(), error) {
	release, err := r.Locker.TryAcquire(ctx, integrationType)
	if errors.Is(err, lock.ErrBusy) {
		r.Logger.WithField("integration_type", integrationType).Warn("Sync already in progress")
		return nil, nil, apperrors.NewSyncInProgressError(integrationType)
	}
	if err != nil {
		return nil, nil, apperrors.NewInternalError(fmt.Sprintf("acquire lock for %s", integrationType), err)
	}

	flag := &atomic.Bool{}
	r.mu.Lock()
	r.flags[integrationType] = flag
	r.mu.Unlock()
	r.Metrics.SetActive(len(r.Locker.Active()))

	return flag, func() {
		r.mu.Lock()
		if r.flags[integrationType] == flag {
			delete(r.flags, integrationType)
		}
		r.mu.Unlock()
		release()
		r.Metrics.SetActive(len(r.Locker.Active()))
	}, nil
}

func (r *Runner) execute(ctx context.Context, integrationType string, flag *atomic.Bool) (*models.SyncResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.Config.SessionTimeout)
	defer cancel()

	result := &models.SyncResult{IntegrationType: integrationType, StartTime: time.Now()}
	logger := r.Logger.WithField("integration_type", integrationType)

	report := r.Gate.Run(ctx, integrationType)
	result.Validation = report
	if report.HasBlocking() {
		result.Status = models.ResultStatusSkipped
		result.EndTime = time.Now()
		logger.WithFields(logrus.Fields{
			"blocking_issues": report.BlockingIssues,
			"warnings":        report.Warnings,
		}).Warn("Sync skipped: blocking validation issues")
		notify.Async(r.Notifier, notify.ValidationReport(report), notifyTimeout, r.Logger)
		r.Metrics.ObserveSession(integrationType, result.Status, result.EndTime.Sub(result.StartTime))
		return result, nil
	}

	types := EntityTypes(integrationType)
	session, err := r.Manager.Start(integrationType, map[string]string{"entity_types": strings.Join(types, ",")})
	if err != nil {
		return nil, err
	}
	result.SessionID = session.ID.String()
	logger = logger.WithField("session_id", session.ID)

	// one mapping snapshot for the whole session
	snapshot := r.Registry.Snapshot()
	policy := reconcile.PolicyFor(session.Direction, r.Provider.Get().MergePriority)

	type pair struct{ p6, ebs []models.EntityRecord }
	fetched := make(map[string]pair, len(types))
	for _, entityType := range types {
		p6, ebs, err := r.fetch(ctx, entityType)
		if apperrors.IsMappingGap(err) {
			logger.WithField("entity_type", entityType).Warn("No source query for entity type, skipping")
			continue
		}
		if err != nil {
			return r.fail(ctx, session, result, err)
		}
		fetched[entityType] = pair{p6: p6, ebs: ebs}
	}

	if flag.Load() {
		return r.cancelled(ctx, session, result)
	}

	var records []*models.DiscrepancyRecord
	for _, entityType := range types {
		f, ok := fetched[entityType]
		if !ok {
			continue
		}
		result.TotalEntities += len(f.p6) + len(f.ebs)
		found := r.detect(ctx, snapshot, entityType, f.p6, f.ebs)
		r.Metrics.ObserveDiscrepancies(entityType, models.Summarize(found))
		records = append(records, found...)
	}
	result.Discrepancies = models.Summarize(records)

	if flag.Load() {
		return r.cancelled(ctx, session, result)
	}

	r.resolve(logger, records, policy)

	if flag.Load() {
		return r.cancelled(ctx, session, result)
	}

	commit, err := r.committer.Commit(ctx, records)
	result.UpdatedEntities = commit.Applied
	result.FailedEntities = commit.Failed
	result.SkippedRecords = commit.Skipped
	if err != nil {
		return r.fail(ctx, session, result, err)
	}

	if t, ok := transfers[integrationType]; ok {
		if flag.Load() {
			return r.cancelled(ctx, session, result)
		}
		moved, err := t.run(r, ctx, session, logger)
		result.UpdatedEntities += moved.updated
		result.FailedEntities += moved.failed
		if err != nil {
			return r.fail(ctx, session, result, err)
		}
		r.mu.Lock()
		r.waiting[integrationType] = moved.waiting > 0
		r.mu.Unlock()
	}

	if err := r.Manager.Complete(ctx, session, map[string]interface{}{
		models.ResultTotalEntities:   result.TotalEntities,
		models.ResultUpdatedEntities: result.UpdatedEntities,
		models.ResultFailedEntities:  result.FailedEntities,
		models.ResultDiscrepancies:   len(records),
		models.ResultSkippedRecords:  result.SkippedRecords,
	}); err != nil {
		logger.WithError(err).Error("Failed to record completed session")
	}

	result.Status = models.ResultStatusCompleted
	result.EndTime = session.EndTime
	logger.WithFields(logrus.Fields{
		"total":   result.TotalEntities,
		"updated": result.UpdatedEntities,
		"failed":  result.FailedEntities,
		"skipped": result.SkippedRecords,
	}).Info("Sync completed")

	notify.Async(r.Notifier, notify.Success(result), notifyTimeout, r.Logger)
	r.Metrics.ObserveSession(integrationType, result.Status, result.EndTime.Sub(result.StartTime))
	return result, nil
}

func (r *Runner) fail(ctx context.Context, session *models.SyncSession, result *models.SyncResult, cause error) (*models.SyncResult, error) {
	if err := r.Manager.Fail(ctx, session, cause); err != nil {
		r.Logger.WithField("session_id", session.ID).WithError(err).Error("Failed to record failed session")
	}
	result.Status = models.ResultStatusFailed
	result.Error = cause.Error()
	result.EndTime = session.EndTime

	notify.Async(r.Notifier, notify.Failure(session.SyncType, cause.Error()), notifyTimeout, r.Logger)
	r.Metrics.ObserveSession(session.SyncType, result.Status, result.EndTime.Sub(result.StartTime))
	return result, cause
}

func (r *Runner) cancelled(ctx context.Context, session *models.SyncSession, result *models.SyncResult) (*models.SyncResult, error) {
	if err := r.Manager.Fail(ctx, session, ErrCancelled); err != nil {
		r.Logger.WithField("session_id", session.ID).WithError(err).Error("Failed to record cancelled session")
	}
	result.Status = models.ResultStatusCancelled
	result.Error = ErrCancelled.Error()
	result.EndTime = session.EndTime
	r.Metrics.ObserveSession(session.SyncType, result.Status, result.EndTime.Sub(result.StartTime))
	return result, ErrCancelled
}

// fetch reads one entity type from both systems concurrently. Errors are not
// retried and surface as connection errors.
func (r *Runner) fetch(ctx context.Context, entityType string) (p6, ebs []models.EntityRecord, err error) {
	fctx, cancel := context.WithTimeout(ctx, r.Config.FetchTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(fctx)
	g.Go(func() error {
		recs, err := r.P6.FetchEntities(gctx, entityType)
		if err != nil {
			return r.fetchError(models.SystemP6, entityType, err)
		}
		p6 = recs
		return nil
	})
	g.Go(func() error {
		recs, err := r.EBS.FetchEntities(gctx, entityType)
		if err != nil {
			return r.fetchError(models.SystemEBS, entityType, err)
		}
		ebs = recs
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return p6, ebs, nil
}

func (r *Runner) fetchError(system models.System, entityType string, err error) error {
	if apperrors.IsMappingGap(err) {
		return err
	}
	r.Metrics.IncFetchError(system)
	if apperrors.IsConnection(err) {
		return err
	}
	return apperrors.NewConnectionError(fmt.Sprintf("fetch %s from %s", entityType, system), err)
}

// detect normalises both sides, correlates by business key and compares.
// An entity type without a mapping yields no discrepancies.
func (r *Runner) detect(ctx context.Context, snapshot *mapping.Snapshot, entityType string, p6, ebs []models.EntityRecord) []*models.DiscrepancyRecord {
	logger := r.Logger.WithField("entity_type", entityType)
	b, ok := snapshot.Binding(entityType)
	if !ok {
		logger.Warn(apperrors.NewMappingGapError(entityType).Error())
		return nil
	}

	p6 = r.Transformer.NormalizeAll(entityType, p6)
	ebs = r.Transformer.NormalizeAll(entityType, ebs)

	correlated := b.BusinessKeyP6 != "" && b.BusinessKeyEBS != ""
	if correlated {
		if _, err := r.Correlations.MatchByBusinessKey(ctx, entityType, p6, ebs, b.BusinessKeyP6, b.BusinessKeyEBS); err != nil {
			logger.WithError(err).Warn("Failed to persist business key correlations")
		}
	}

	// Types with a business key only match through correlations. The rest
	// share ids across systems unless a correlation says otherwise.
	opts := reconcile.OptionsFromBinding(b)
	opts.TranslateA = func(id string) (string, bool) {
		if idEBS, ok := r.Correlations.LookupEBS(entityType, id); ok || correlated {
			return idEBS, ok
		}
		return id, true
	}
	found := r.detector.Detect(p6, ebs, opts.ExcludeIDs())

	logger.WithField("discrepancies", len(found)).Info("Detected discrepancies")
	return found
}

// resolve applies the automatic policy. Records for entities missing on one
// side are only resolved when the policy writes toward that side and the
// target can create entities; the rest stay Unresolved for the operator.
func (r *Runner) resolve(logger *logrus.Entry, records []*models.DiscrepancyRecord, policy models.Resolution) {
	canCreateP6 := source.CanCreate(r.P6)
	canCreateEBS := source.CanCreate(r.EBS)

	left := 0
	for _, rec := range records {
		switch rec.DiscrepancyType {
		case models.DiscrepancyMissingInEBS:
			if policy != models.ResolutionUseA || !canCreateEBS {
				left++
				continue
			}
		case models.DiscrepancyMissingInP6:
			if policy != models.ResolutionUseB || !canCreateP6 {
				left++
				continue
			}
		}
		if err := reconcile.ResolveAll(rec, policy); err != nil {
			logger.WithFields(logrus.Fields{
				"entity_type": rec.EntityType,
				"entity_id":   rec.EntityID,
			}).WithError(err).Warn("Failed to resolve discrepancy")
		}
	}
	if left > 0 {
		logger.WithField("unresolved", left).Info("Discrepancies left for manual resolution")
	}
}

// Compare fetches and compares one entity type without resolving or writing
func (r *Runner) Compare(ctx context.Context, entityType string) ([]*models.DiscrepancyRecord, error) {
	p6, ebs, err := r.fetch(ctx, entityType)
	if err != nil {
		return nil, err
	}
	return r.detect(ctx, r.Registry.Snapshot(), entityType, p6, ebs), nil
}

// Handle tracks a submitted run
type Handle struct {
	ID              string    `json:"id"`
	IntegrationType string    `json:"integration_type"`
	StartedAt       time.Time `json:"started_at"`

	done   chan struct{}
	cancel func()

	mu       sync.RWMutex
	result   *models.SyncResult
	err      error
	progress *models.BatchProgress
}

// Done is closed when the run finishes
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Result waits for the run and returns its outcome
func (h *Handle) Result() (*models.SyncResult, error) {
	<-h.done
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.result, h.err
}

// Status returns the result if the run finished, without waiting
func (h *Handle) Status() (*models.SyncResult, bool) {
	if !h.finished() {
		return nil, false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.result, true
}

// Progress returns the latest write-back progress. ok is false until the
// run reaches write-back.
func (h *Handle) Progress() (progress models.BatchProgress, ok bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.progress == nil {
		return models.BatchProgress{}, false
	}
	return *h.progress, true
}

func (h *Handle) setProgress(p models.BatchProgress) {
	h.mu.Lock()
	h.progress = &p
	h.mu.Unlock()
}

// Cancel requests cancellation at the next phase boundary
func (h *Handle) Cancel() {
	h.cancel()
}

func (h *Handle) finished() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

func (h *Handle) complete(result *models.SyncResult, err error) {
	h.mu.Lock()
	h.result = result
	h.err = err
	h.mu.Unlock()
	close(h.done)
}
