// Package cleanup physically purges aged reconciliation history: resolved
// unit flags, old run records and their events. Live operational data
// (tenancies, leases, availabilities) is never deleted, only transitioned.
package cleanup

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"leasing-sync/internal/models"
)

// Service handles physical deletion of aged history records
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService creates a new cleanup service
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Config holds configuration for cleanup operations
type Config struct {
	RetentionDays    int  // Days to keep resolved flags and completed runs (default: 90)
	MaxDeletionCount int  // Maximum number of records to delete in one pass (safety limit)
	DryRun           bool // If true, only report what would be deleted
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		RetentionDays:    90,
		MaxDeletionCount: 10000,
		DryRun:           false,
	}
}

// Result holds the result of a cleanup operation
type Result struct {
	FlagsDeleted  int       `json:"flags_deleted"`
	RunsDeleted   int       `json:"runs_deleted"`
	EventsDeleted int       `json:"events_deleted"`
	DryRun        bool      `json:"dry_run"`
	ExecutedAt    time.Time `json:"executed_at"`
	Errors        []string  `json:"errors,omitempty"`
}

// Purge deletes history records older than the retention window. Failed runs
// are kept regardless of age; they are the audit trail for bad batches.
func (s *Service) Purge(cfg Config) (*Result, error) {
	if cfg.RetentionDays <= 0 {
		return nil, fmt.Errorf("retention days must be positive, got %d", cfg.RetentionDays)
	}
	cutoff := time.Now().AddDate(0, 0, -cfg.RetentionDays)
	result := &Result{DryRun: cfg.DryRun, ExecutedAt: time.Now()}

	s.logger.Info("starting history cleanup",
		zap.Time("cutoff", cutoff),
		zap.Bool("dry_run", cfg.DryRun),
		zap.Int("max_deletions", cfg.MaxDeletionCount))

	n, err := s.purgeResolvedFlags(cutoff, cfg)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
	}
	result.FlagsDeleted = n

	runs, events, err := s.purgeOldRuns(cutoff, cfg)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
	}
	result.RunsDeleted = runs
	result.EventsDeleted = events

	s.logger.Info("history cleanup finished",
		zap.Int("flags", result.FlagsDeleted),
		zap.Int("runs", result.RunsDeleted),
		zap.Int("events", result.EventsDeleted),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}

func (s *Service) purgeResolvedFlags(cutoff time.Time, cfg Config) (int, error) {
	var flags []models.UnitFlag
	err := s.db.Where("resolved_at IS NOT NULL AND resolved_at < ?", cutoff).
		Limit(cfg.MaxDeletionCount).
		Find(&flags).Error
	if err != nil {
		return 0, fmt.Errorf("find expired flags: %w", err)
	}
	if len(flags) == 0 || cfg.DryRun {
		return len(flags), nil
	}

	ids := make([]uint, 0, len(flags))
	for _, f := range flags {
		ids = append(ids, f.ID)
	}
	if err := s.db.Delete(&models.UnitFlag{}, ids).Error; err != nil {
		return 0, fmt.Errorf("delete expired flags: %w", err)
	}
	return len(flags), nil
}

func (s *Service) purgeOldRuns(cutoff time.Time, cfg Config) (int, int, error) {
	var runs []models.SyncRun
	err := s.db.Where("status = ? AND completed_at IS NOT NULL AND completed_at < ?",
		models.RunStatusCompleted, cutoff).
		Limit(cfg.MaxDeletionCount).
		Find(&runs).Error
	if err != nil {
		return 0, 0, fmt.Errorf("find expired runs: %w", err)
	}
	if len(runs) == 0 {
		return 0, 0, nil
	}

	batchIDs := make([]string, 0, len(runs))
	for _, r := range runs {
		batchIDs = append(batchIDs, r.BatchID)
	}

	var eventCount int64
	if err := s.db.Model(&models.SolverEvent{}).Where("run_id IN ?", batchIDs).Count(&eventCount).Error; err != nil {
		return 0, 0, fmt.Errorf("count expired events: %w", err)
	}
	if cfg.DryRun {
		return len(runs), int(eventCount), nil
	}

	// events first so a failure never orphans them from a deleted run
	if err := s.db.Where("run_id IN ?", batchIDs).Delete(&models.SolverEvent{}).Error; err != nil {
		return 0, 0, fmt.Errorf("delete expired events: %w", err)
	}
	if err := s.db.Where("batch_id IN ?", batchIDs).Delete(&models.SyncRun{}).Error; err != nil {
		return 0, int(eventCount), fmt.Errorf("delete expired runs: %w", err)
	}
	return len(runs), int(eventCount), nil
}
