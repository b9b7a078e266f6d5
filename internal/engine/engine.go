// Package engine orchestrates the per-property, per-report-type
// snapshot-diff-apply cycle: fetch the current active records, diff them
// against today's report rows, apply the minimal set of inserts, updates,
// reactivations and soft transitions, and narrate the interesting ones
// through the event tracker.
package engine

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"leasing-sync/internal/models"
	"leasing-sync/internal/rows"
	"leasing-sync/internal/tracker"
)

// StaleUpdateCode is the internal sentinel property code used by the stale
// availability sweep, which crosses property boundaries. Report rendering
// filters it out of user-facing output.
const StaleUpdateCode = "STALE_UPDATE"

// defaultBatchSize bounds chunked writes to respect storage request limits.
const defaultBatchSize = 1000

// passState is the per-report-type pass state machine.
type passState int

const (
	passIdle passState = iota
	passFetching
	passDiffing
	passApplying
	passDone
	passFailed
)

func (s passState) String() string {
	switch s {
	case passFetching:
		return "fetching"
	case passDiffing:
		return "diffing"
	case passApplying:
		return "applying"
	case passDone:
		return "done"
	case passFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Engine runs one reconciliation pass over a parsed report batch. One engine
// serves one run; construct a fresh one per batch.
type Engine struct {
	db        *gorm.DB
	tracker   *tracker.Tracker
	log       *zap.Logger
	batchSize int

	run *models.SyncRun

	statusMu  sync.RWMutex
	statusMsg string
}

// New creates an engine for one run. The tracker is owned by the caller and
// accumulates this run's events; batchSize <= 0 falls back to the default.
func New(db *gorm.DB, tr *tracker.Tracker, log *zap.Logger, batchSize int) *Engine {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Engine{db: db, tracker: tr, log: log, batchSize: batchSize}
}

// Status returns the human-readable current-step message. There is no
// structured progress API; this string is the whole contract.
func (e *Engine) Status() string {
	e.statusMu.RLock()
	defer e.statusMu.RUnlock()
	return e.statusMsg
}

func (e *Engine) setStatus(msg string) {
	e.statusMu.Lock()
	e.statusMsg = msg
	e.statusMu.Unlock()
}

func (e *Engine) phase(pass string, s passState) {
	e.setStatus(fmt.Sprintf("%s: %s", pass, s))
}

// Run executes the full reconciliation cycle for one batch and persists the
// run record, events and summaries. Per-property failures become skip
// entries and do not abort the run; a driver-level failure marks the run
// failed and stops. Writes already applied before a failure stay applied.
func (e *Engine) Run(batchID string, batch *rows.Batch) (*models.SyncRun, error) {
	run := &models.SyncRun{BatchID: batchID, Status: models.RunStatusRunning}
	if err := e.db.Create(run).Error; err != nil {
		return nil, fmt.Errorf("create run record: %w", err)
	}
	e.run = run

	if batch == nil || batch.IsEmpty() {
		err := fmt.Errorf("report batch %s is empty", batchID)
		e.failRun(err)
		return run, err
	}

	codes := batch.PropertyCodes()
	if err := e.ensureProperties(codes); err != nil {
		e.failRun(err)
		return run, err
	}
	for _, code := range codes {
		e.tracker.InitProperty(code)
	}

	// Cross-report ordering: tenancies/residents feed leases, leases and
	// tenancy statuses feed availabilities, the stale sweep catches units
	// whose tenancy arrived in an unexpected file, notices can still flip
	// tenancies afterwards, and the overdue sweeps read the final state.
	forEachProperty(e, "tenancies", codes,
		groupRows(batch.Tenancies, func(r rows.TenancyRow) string { return r.PropertyCode }),
		e.reconcileTenancies)
	forEachProperty(e, "leases", codes,
		groupRows(batch.Leases, func(r rows.LeaseRow) string { return r.PropertyCode }),
		e.reconcileLeases)
	forEachProperty(e, "availabilities", codes,
		groupRows(batch.Availabilities, func(r rows.AvailabilityRow) string { return r.PropertyCode }),
		e.reconcileAvailabilities)

	e.setStatus("availabilities: stale sweep")
	if err := e.sweepStaleAvailabilities(); err != nil {
		e.log.Error("stale availability sweep failed", zap.Error(err))
		e.recordSkip(StaleUpdateCode, "stale_sweep", err.Error())
	}

	forEachProperty(e, "notices", codes,
		groupRows(batch.Notices, func(r rows.NoticeRow) string { return r.PropertyCode }),
		e.reconcileNotices)
	forEachProperty(e, "work_orders", codes,
		groupRows(batch.WorkOrders, func(r rows.WorkOrderRow) string { return r.PropertyCode }),
		e.reconcileWorkOrders)
	forEachProperty(e, "alerts", codes,
		groupRows(batch.Alerts, func(r rows.AlertRow) string { return r.PropertyCode }),
		e.reconcileAlerts)
	forEachProperty(e, "delinquencies", codes,
		groupRows(batch.Delinquencies, func(r rows.DelinquencyRow) string { return r.PropertyCode }),
		e.reconcileDelinquencies)

	e.setStatus("flags: overdue sweeps")
	if err := e.sweepOverdueFlags(); err != nil {
		e.log.Error("overdue flag sweep failed", zap.Error(err))
		e.recordSkip("", "flag_sweeps", err.Error())
	}

	e.setStatus("persisting run results")
	if err := e.persistResults(); err != nil {
		e.failRun(err)
		return run, err
	}

	e.setStatus("completed")
	e.log.Info("reconciliation run completed",
		zap.String("batch_id", batchID),
		zap.Int("properties", len(run.PropertiesProcessed)),
		zap.Int("events", len(e.tracker.Events())),
		zap.Int("skips", len(run.SkipReasons)))
	return run, nil
}

// forEachProperty runs one report-type pass property by property,
// sequentially, isolating failures to the property they occur in.
func forEachProperty[T any](e *Engine, pass string, codes []string, byProp map[string][]T, fn func(property string, rws []T) error) {
	for _, property := range codes {
		rws, ok := byProp[property]
		if !ok {
			continue
		}
		label := fmt.Sprintf("%s %s", pass, property)
		e.phase(label, passFetching)
		if err := fn(property, rws); err != nil {
			e.phase(label, passFailed)
			e.log.Error("property pass failed",
				zap.String("pass", pass),
				zap.String("property", property),
				zap.Error(err))
			e.recordSkip(property, pass, err.Error())
			continue
		}
		e.phase(label, passDone)
	}
}

// ensureProperties upserts Property rows for every code in the batch so the
// report allowlist is self-maintaining.
func (e *Engine) ensureProperties(codes []string) error {
	if len(codes) == 0 {
		return nil
	}
	props := make([]models.Property, 0, len(codes))
	for _, code := range codes {
		props = append(props, models.Property{Code: code, IsActive: true})
	}
	err := e.db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(props, e.batchSize).Error
	if err != nil {
		return fmt.Errorf("ensure properties: %w", err)
	}
	return nil
}

// persistResults writes the accumulated events and summaries and marks the
// run completed.
func (e *Engine) persistResults() error {
	events := e.tracker.Events()
	for i := range events {
		events[i].RunID = e.run.BatchID
	}
	if len(events) > 0 {
		if err := e.db.CreateInBatches(events, e.batchSize).Error; err != nil {
			return fmt.Errorf("persist events: %w", err)
		}
	}

	summaries := e.tracker.Summaries()
	processed := make([]string, 0, len(summaries))
	for code := range summaries {
		processed = append(processed, code)
	}
	sort.Strings(processed)

	e.run.PropertiesProcessed = processed
	e.run.Summary = summaries
	e.run.MarkCompleted()
	if err := e.db.Save(e.run).Error; err != nil {
		return fmt.Errorf("persist run record: %w", err)
	}
	return nil
}

func (e *Engine) failRun(cause error) {
	e.run.MarkFailed(cause)
	e.setStatus("failed: " + cause.Error())
	if err := e.db.Save(e.run).Error; err != nil {
		e.log.Error("failed to persist failed run", zap.String("batch_id", e.run.BatchID), zap.Error(err))
	}
}

// recordSkip attaches a skip reason to the run record. Skips are visibility,
// not failures.
func (e *Engine) recordSkip(property, pass, reason string) {
	entry := fmt.Sprintf("[%s] %s: %s", pass, property, reason)
	if property == "" {
		entry = fmt.Sprintf("[%s] %s", pass, reason)
	}
	e.run.SkipReasons = append(e.run.SkipReasons, entry)
}

// rowSkip records a single bad input row. The row is excluded, processing
// continues; never fatal.
func (e *Engine) rowSkip(property, pass, reason string) {
	e.log.Warn("skipping row",
		zap.String("pass", pass),
		zap.String("property", property),
		zap.String("reason", reason))
	e.recordSkip(property, pass, reason)
}

func groupRows[T any](rws []T, key func(T) string) map[string][]T {
	byKey := make(map[string][]T)
	for _, r := range rws {
		byKey[key(r)] = append(byKey[key(r)], r)
	}
	return byKey
}

// chunk splits ids into slices no larger than size, for bounded IN updates.
func chunk(ids []string, size int) [][]string {
	if size <= 0 {
		size = defaultBatchSize
	}
	var out [][]string
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}
