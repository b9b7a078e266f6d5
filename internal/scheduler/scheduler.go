// Package scheduler owns the daily reconciliation pipeline: read the import
// directory, run the engine, re-index search, and fire the completion
// webhook. One run at a time, whether cron-triggered or manual.
package scheduler

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"leasing-sync/internal/config"
	"leasing-sync/internal/engine"
	"leasing-sync/internal/ingest"
	"leasing-sync/internal/models"
	"leasing-sync/internal/notify"
	"leasing-sync/internal/search"
	"leasing-sync/internal/tracker"
)

// Scheduler handles scheduled reconciliation runs
type Scheduler struct {
	cron     *cron.Cron
	db       *gorm.DB
	config   *config.Config
	notifier *notify.Notifier
	searcher *search.SearchClient
	logger   *zap.Logger

	mu        sync.Mutex
	active    *engine.Engine
	isRunning bool
	cronUp    bool
}

// NewScheduler creates a new scheduler. searcher may be nil when search
// indexing is disabled.
func NewScheduler(db *gorm.DB, cfg *config.Config, notifier *notify.Notifier, searcher *search.SearchClient, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		db:       db,
		config:   cfg,
		notifier: notifier,
		searcher: searcher,
		logger:   logger,
	}
}

// Start starts the cron schedule when the daily run is enabled.
func (s *Scheduler) Start() error {
	if !s.config.Sync.DailyRunEnabled {
		s.logger.Info("daily run disabled in configuration")
		return nil
	}

	cronSpec := s.parseDailyRunTime(s.config.Sync.DailyRunTime)

	_, err := s.cron.AddFunc(cronSpec, func() {
		s.logger.Info("starting scheduled reconciliation run")
		if _, err := s.RunNow(); err != nil {
			s.logger.Error("scheduled run failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.cronUp = true
	s.logger.Info("scheduler started",
		zap.String("daily_run_time", s.config.Sync.DailyRunTime),
		zap.String("cron", cronSpec))
	return nil
}

// Stop stops the cron schedule. An in-flight run finishes on its own.
func (s *Scheduler) Stop() {
	if s.cronUp {
		s.cron.Stop()
		s.cronUp = false
		s.logger.Info("scheduler stopped")
	}
}

// ErrRunInProgress is returned when a trigger arrives while a run is active.
var ErrRunInProgress = fmt.Errorf("a reconciliation run is already in progress")

// IsRunning reports whether a run is currently executing.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// Status returns the current engine step message, or an idle marker.
func (s *Scheduler) Status() string {
	s.mu.Lock()
	eng := s.active
	running := s.isRunning
	s.mu.Unlock()

	if !running || eng == nil {
		return "idle"
	}
	return eng.Status()
}

// RunNow executes the full pipeline immediately. Only one run may execute
// at a time; concurrent triggers get ErrRunInProgress.
func (s *Scheduler) RunNow() (*models.SyncRun, error) {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil, ErrRunInProgress
	}
	s.isRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isRunning = false
		s.active = nil
		s.mu.Unlock()
	}()

	batchID := uuid.New().String()
	log := s.logger.With(zap.String("batch_id", batchID))

	reader := ingest.NewReader(s.config.Sync.ImportDir, log)
	batch, err := reader.LoadBatch()
	if err != nil {
		// A batch that cannot be read at all is still a run: persist it as
		// failed so the history shows what happened, and notify as usual.
		loadErr := fmt.Errorf("load report batch: %w", err)
		run := &models.SyncRun{BatchID: batchID, Status: models.RunStatusRunning}
		run.MarkFailed(loadErr)
		if dbErr := s.db.Create(run).Error; dbErr != nil {
			log.Error("failed to persist failed run", zap.Error(dbErr))
		}
		if nErr := s.notifier.NotifyRunCompleted(run.BatchID, string(run.Status)); nErr != nil {
			log.Warn("run completion webhook failed", zap.Error(nErr))
		}
		return run, loadErr
	}

	tr := tracker.New()
	eng := engine.New(s.db, tr, log, s.config.Sync.BatchSize)

	s.mu.Lock()
	s.active = eng
	s.mu.Unlock()

	run, runErr := eng.Run(batchID, batch)

	// Completion side effects fire for failed runs too; the webhook status
	// tells consumers which outcome they got.
	if run != nil {
		if err := s.notifier.NotifyRunCompleted(run.BatchID, string(run.Status)); err != nil {
			log.Warn("run completion webhook failed", zap.Error(err))
		}
	}

	if runErr != nil {
		return run, runErr
	}

	if s.searcher != nil {
		if err := s.reindexAvailabilities(); err != nil {
			log.Warn("search re-index failed", zap.Error(err))
		}
	}

	log.Info("reconciliation run completed")
	return run, nil
}

// reindexAvailabilities pushes the post-run availability set to search.
func (s *Scheduler) reindexAvailabilities() error {
	var availabilities []models.Availability
	if err := s.db.Find(&availabilities).Error; err != nil {
		return err
	}
	return s.searcher.IndexAvailabilities(availabilities)
}

// parseDailyRunTime converts HH:MM format to cron specification
// Example: "04:30" -> "30 4 * * *" (run at 4:30 AM every day)
func (s *Scheduler) parseDailyRunTime(timeStr string) string {
	var hour, minute int
	n, _ := fmt.Sscanf(timeStr, "%d:%d", &hour, &minute)
	if n == 2 && hour >= 0 && hour < 24 && minute >= 0 && minute < 60 {
		return fmt.Sprintf("%d %d * * *", minute, hour)
	}

	s.logger.Warn("failed to parse daily run time, using default 04:30",
		zap.String("value", timeStr))
	return "30 4 * * *"
}
