package scheduler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"leasing-sync/internal/config"
	"leasing-sync/internal/ingest"
	"leasing-sync/internal/models"
	"leasing-sync/internal/notify"
)

func newTestScheduler(t *testing.T, importDir string) (*Scheduler, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Property{},
		&models.Tenancy{},
		&models.Resident{},
		&models.Lease{},
		&models.Availability{},
		&models.UnitFlag{},
		&models.WorkOrder{},
		&models.UnitAlert{},
		&models.Delinquency{},
		&models.SolverEvent{},
		&models.SyncRun{},
	))

	cfg := config.DefaultConfig()
	cfg.Sync.ImportDir = importDir
	notifier := notify.NewNotifier(cfg.Notify, zap.NewNop())
	return NewScheduler(db, cfg, notifier, nil, zap.NewNop()), db
}

func TestRunNowPersistsFailedRunOnUnreadableBatch(t *testing.T) {
	dir := t.TempDir()
	// not a real workbook: the loader must refuse it rather than half-import
	require.NoError(t, os.WriteFile(filepath.Join(dir, ingest.FileResidents), []byte("not a spreadsheet"), 0o644))

	sched, db := newTestScheduler(t, dir)
	run, err := sched.RunNow()
	require.Error(t, err)
	require.NotNil(t, run)
	assert.Equal(t, models.RunStatusFailed, run.Status)

	// the failure is part of run history, not just a returned error
	var stored models.SyncRun
	require.NoError(t, db.Where("batch_id = ?", run.BatchID).First(&stored).Error)
	assert.Equal(t, models.RunStatusFailed, stored.Status)
	assert.Contains(t, stored.ErrorMessage, "load report batch")
	require.NotNil(t, stored.CompletedAt)

	// the guard releases after a failed run
	assert.False(t, sched.IsRunning())
}

func TestRunNowEmptyImportDirPersistsFailedRun(t *testing.T) {
	sched, db := newTestScheduler(t, t.TempDir())

	run, err := sched.RunNow()
	require.Error(t, err)
	require.NotNil(t, run)
	assert.Equal(t, models.RunStatusFailed, run.Status)

	var stored models.SyncRun
	require.NoError(t, db.Where("batch_id = ?", run.BatchID).First(&stored).Error)
	assert.Equal(t, models.RunStatusFailed, stored.Status)
	assert.NotEmpty(t, stored.ErrorMessage)
}
