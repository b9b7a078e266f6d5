package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"leasing-sync/internal/dates"
	"leasing-sync/internal/models"
	"leasing-sync/internal/rows"
	"leasing-sync/internal/tracker"
)

func setupTestDB(t *testing.T) *gorm.DB {
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
	return db
}

func newTestEngine(t *testing.T, db *gorm.DB) (*Engine, *tracker.Tracker) {
	tr := tracker.New()
	return New(db, tr, zap.NewNop(), 0), tr
}

func eventsOfType(events []models.SolverEvent, eventType string) []models.SolverEvent {
	var out []models.SolverEvent
	for _, ev := range events {
		if ev.EventType == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func daysFromToday(t *testing.T, n int) string {
	t.Helper()
	d, err := dates.AddDays(dates.Today(), n)
	require.NoError(t, err)
	return d
}

func TestRunEmptyBatchFails(t *testing.T) {
	db := setupTestDB(t)
	eng, _ := newTestEngine(t, db)

	run, err := eng.Run("batch-empty", &rows.Batch{})
	require.Error(t, err)
	require.NotNil(t, run)
	assert.Equal(t, models.RunStatusFailed, run.Status)

	// failure state is persisted, not just in memory
	var stored models.SyncRun
	require.NoError(t, db.Where("batch_id = ?", "batch-empty").First(&stored).Error)
	assert.Equal(t, models.RunStatusFailed, stored.Status)
	assert.NotEmpty(t, stored.ErrorMessage)
}

func TestRunNewTenancyAndLease(t *testing.T) {
	db := setupTestDB(t)
	eng, tr := newTestEngine(t, db)

	batch := &rows.Batch{
		Tenancies: []rows.TenancyRow{{
			TenancyID:    "t1",
			UnitID:       "u1",
			UnitName:     "101",
			PropertyCode: "BLVD",
			RawStatus:    "Current",
			MoveInDate:   "2025-01-15",
			ResidentName: "Jordan Reyes",
			Email:        "jordan@example.com",
			IsPrimary:    true,
		}},
		Leases: []rows.LeaseRow{{
			TenancyID:    "t1",
			PropertyCode: "BLVD",
			StartDate:    "2025-01-15",
			EndDate:      "2026-01-14",
			Rent:         1450,
			Deposit:      500,
		}},
	}

	run, err := eng.Run("batch-1", batch)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, []string{"BLVD"}, run.PropertiesProcessed)

	var tenancy models.Tenancy
	require.NoError(t, db.First(&tenancy, "id = ?", "t1").Error)
	assert.Equal(t, models.TenancyStatusCurrent, tenancy.Status)
	assert.Equal(t, "u1", tenancy.UnitID)

	var lease models.Lease
	require.NoError(t, db.First(&lease, "tenancy_id = ?", "t1").Error)
	assert.True(t, lease.IsActive)
	assert.Equal(t, 1450.0, lease.Rent)

	var resident models.Resident
	require.NoError(t, db.First(&resident, "tenancy_id = ?", "t1").Error)
	assert.Equal(t, "Jordan Reyes", resident.Name)
	assert.True(t, resident.IsPrimary)

	// the property allowlist maintains itself from the batch
	var prop models.Property
	require.NoError(t, db.First(&prop, "code = ?", "BLVD").Error)
	assert.True(t, prop.IsActive)

	s := tr.Summaries()["BLVD"]
	require.NotNil(t, s)
	assert.Equal(t, 1, s.NewTenancies)
	assert.Equal(t, 1, s.NewLeases)
	assert.Equal(t, 1, s.NewResidents)

	// events persisted and stamped with the batch id
	var stored []models.SolverEvent
	require.NoError(t, db.Where("run_id = ?", "batch-1").Find(&stored).Error)
	assert.Len(t, eventsOfType(stored, models.EventNewTenancy), 1)
	assert.Len(t, eventsOfType(stored, models.EventLeaseSigned), 1)
}

func TestBackToBackRenewal(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Create(&models.Tenancy{
		ID: "t1", UnitID: "u1", UnitName: "101", PropertyCode: "BLVD",
		Status: models.TenancyStatusCurrent, MoveInDate: "2024-01-01",
	}).Error)
	require.NoError(t, db.Create(&models.Lease{
		TenancyID: "t1", PropertyCode: "BLVD",
		StartDate: "2024-01-01", EndDate: "2025-01-01",
		Rent: 1000, Deposit: 500,
		Status: models.LeaseStatusCurrent, IsActive: true,
	}).Error)

	eng, tr := newTestEngine(t, db)
	batch := &rows.Batch{
		Leases: []rows.LeaseRow{{
			TenancyID:    "t1",
			PropertyCode: "BLVD",
			StartDate:    "2025-01-01",
			EndDate:      "2025-12-31",
			Rent:         1100,
			Deposit:      500,
		}},
	}

	run, err := eng.Run("batch-2", batch)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, run.Status)

	var leases []models.Lease
	require.NoError(t, db.Where("tenancy_id = ?", "t1").Order("id ASC").Find(&leases).Error)
	require.Len(t, leases, 2)

	old, successor := leases[0], leases[1]
	assert.False(t, old.IsActive)
	assert.Equal(t, models.LeaseStatusPast, old.Status)
	assert.True(t, successor.IsActive)
	assert.Equal(t, "2025-01-01", successor.StartDate)
	assert.Equal(t, 1100.0, successor.Rent)
	assert.Equal(t, 500.0, successor.Deposit, "successor inherits the deposit")

	renewals := eventsOfType(tr.Events(), models.EventLeaseRenewal)
	require.Len(t, renewals, 1)
	assert.Equal(t, 1000.0, renewals[0].Details["old_rent"])
	assert.Equal(t, 1100.0, renewals[0].Details["new_rent"])

	// a renewal is not also a price change or a lease change
	assert.Empty(t, eventsOfType(tr.Events(), models.EventPriceChange))
	assert.Equal(t, 1, tr.Summaries()["BLVD"].LeaseRenewals)
	assert.Equal(t, 0, tr.Summaries()["BLVD"].LeaseChanges)
}

func TestApplicantMissingBecomesCanceled(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Create(&models.Tenancy{
		ID: "t9", UnitID: "u9", UnitName: "901", PropertyCode: "BLVD",
		Status: models.TenancyStatusApplicant,
	}).Error)
	require.NoError(t, db.Create(&models.Availability{
		UnitID: "u9", UnitName: "901", PropertyCode: "BLVD",
		Status: models.AvailabilityStatusApplied, IsActive: true,
		FutureTenancyID: "t9", LeasingAgent: "Sam", MoveInDate: "2025-06-01",
		ScreeningResult: "pending",
	}).Error)

	eng, tr := newTestEngine(t, db)
	// today's residents report no longer carries t9
	batch := &rows.Batch{
		Tenancies: []rows.TenancyRow{{
			TenancyID: "t1", UnitID: "u1", PropertyCode: "BLVD",
			RawStatus: "Current", ResidentName: "Casey Lowe", IsPrimary: true,
		}},
	}

	_, err := eng.Run("batch-3", batch)
	require.NoError(t, err)

	var tenancy models.Tenancy
	require.NoError(t, db.First(&tenancy, "id = ?", "t9").Error)
	assert.Equal(t, models.TenancyStatusCanceled, tenancy.Status)

	var av models.Availability
	require.NoError(t, db.First(&av, "unit_id = ?", "u9").Error)
	assert.Equal(t, models.AvailabilityStatusAvailable, av.Status)
	assert.True(t, av.IsActive)
	assert.Empty(t, av.FutureTenancyID)
	assert.Empty(t, av.LeasingAgent)
	assert.Empty(t, av.MoveInDate)
	assert.Empty(t, av.ScreeningResult)

	canceled := eventsOfType(tr.Events(), models.EventApplicationCanceled)
	require.Len(t, canceled, 1)
	assert.Equal(t, "t9", canceled[0].TenancyID)
}

func TestCurrentMissingBecomesPast(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Create(&models.Tenancy{
		ID: "t2", UnitID: "u2", PropertyCode: "BLVD",
		Status: models.TenancyStatusCurrent,
	}).Error)
	require.NoError(t, db.Create(&models.Lease{
		TenancyID: "t2", PropertyCode: "BLVD",
		Status: models.LeaseStatusCurrent, IsActive: true,
	}).Error)

	eng, tr := newTestEngine(t, db)
	batch := &rows.Batch{
		Tenancies: []rows.TenancyRow{{
			TenancyID: "t3", UnitID: "u3", PropertyCode: "BLVD",
			RawStatus: "Current", ResidentName: "Avery Poole", IsPrimary: true,
		}},
	}

	_, err := eng.Run("batch-4", batch)
	require.NoError(t, err)

	var tenancy models.Tenancy
	require.NoError(t, db.First(&tenancy, "id = ?", "t2").Error)
	assert.Equal(t, models.TenancyStatusPast, tenancy.Status)

	// the attached lease retires with its tenancy
	var lease models.Lease
	require.NoError(t, db.First(&lease, "tenancy_id = ?", "t2").Error)
	assert.False(t, lease.IsActive)
	assert.Equal(t, models.LeaseStatusPast, lease.Status)

	assert.Len(t, eventsOfType(tr.Events(), models.EventMoveOutDetected), 1)
}

func TestNoticeAutoFix(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Create(&models.Tenancy{
		ID: "t5", UnitID: "u5", UnitName: "501", PropertyCode: "BLVD",
		Status: models.TenancyStatusCurrent,
	}).Error)

	moveOut := daysFromToday(t, 20)
	eng, tr := newTestEngine(t, db)
	batch := &rows.Batch{
		Notices: []rows.NoticeRow{{
			TenancyID:    "t5",
			UnitID:       "u5",
			PropertyCode: "BLVD",
			MoveOutDate:  moveOut,
		}},
	}

	_, err := eng.Run("batch-5", batch)
	require.NoError(t, err)

	var tenancy models.Tenancy
	require.NoError(t, db.First(&tenancy, "id = ?", "t5").Error)
	assert.Equal(t, models.TenancyStatusNotice, tenancy.Status)
	assert.Equal(t, moveOut, tenancy.MoveOutDate)

	assert.Equal(t, 1, tr.Summaries()["BLVD"].StatusAutoFixes)
	assert.Len(t, eventsOfType(tr.Events(), models.EventNoticeGiven), 1)
}

func TestNoticeUnknownTenancyIsSkipped(t *testing.T) {
	db := setupTestDB(t)
	eng, _ := newTestEngine(t, db)
	batch := &rows.Batch{
		Notices: []rows.NoticeRow{{
			TenancyID:    "ghost",
			PropertyCode: "BLVD",
			MoveOutDate:  "2026-01-01",
		}},
	}

	run, err := eng.Run("batch-6", batch)
	require.NoError(t, err, "a bad row never fails the run")
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	require.NotEmpty(t, run.SkipReasons)
	assert.Contains(t, run.SkipReasons[0], "ghost")
}

func TestMakereadyFlagRaisedOnceAndResolved(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Create(&models.Availability{
		UnitID: "u7", UnitName: "701", PropertyCode: "BLVD",
		Status: models.AvailabilityStatusAvailable, IsActive: true,
		MoveOutDate: daysFromToday(t, -10), MoveInInspection: false,
	}).Error)

	// something unrelated keeps the batch non-empty
	mkBatch := func() *rows.Batch {
		return &rows.Batch{
			Tenancies: []rows.TenancyRow{{
				TenancyID: "t1", UnitID: "u1", PropertyCode: "BLVD",
				RawStatus: "Current", ResidentName: "Kai Moreno", IsPrimary: true,
			}},
		}
	}

	eng1, tr1 := newTestEngine(t, db)
	_, err := eng1.Run("batch-7a", mkBatch())
	require.NoError(t, err)
	assert.Equal(t, 1, tr1.Summaries()["BLVD"].MakereadyFlags)

	var open []models.UnitFlag
	require.NoError(t, db.Where("flag_type = ? AND resolved_at IS NULL", models.FlagMakereadyOverdue).Find(&open).Error)
	require.Len(t, open, 1)
	assert.Equal(t, "u7", open[0].UnitID)

	// second run must not duplicate the open flag
	eng2, tr2 := newTestEngine(t, db)
	_, err = eng2.Run("batch-7b", mkBatch())
	require.NoError(t, err)
	assert.Equal(t, 0, tr2.Summaries()["BLVD"].MakereadyFlags)

	var all []models.UnitFlag
	require.NoError(t, db.Where("flag_type = ?", models.FlagMakereadyOverdue).Find(&all).Error)
	assert.Len(t, all, 1)

	// once the inspection lands, the next run resolves the flag
	require.NoError(t, db.Model(&models.Availability{}).
		Where("unit_id = ?", "u7").
		Update("move_in_inspection", true).Error)

	eng3, _ := newTestEngine(t, db)
	_, err = eng3.Run("batch-7c", mkBatch())
	require.NoError(t, err)

	var resolved models.UnitFlag
	require.NoError(t, db.First(&resolved, "unit_id = ? AND flag_type = ?", "u7", models.FlagMakereadyOverdue).Error)
	require.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, "overdue-sweep", resolved.ResolvedBy)
}

func TestBadDateRowIsSkippedNotTreatedAsMoveOut(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Create(&models.Tenancy{
		ID: "t6", UnitID: "u6", UnitName: "601", PropertyCode: "BLVD",
		Status: models.TenancyStatusCurrent, MoveInDate: "2024-03-01",
	}).Error)
	require.NoError(t, db.Create(&models.Lease{
		TenancyID: "t6", PropertyCode: "BLVD",
		Status: models.LeaseStatusCurrent, IsActive: true,
	}).Error)

	eng, _ := newTestEngine(t, db)
	// the tenancy IS in today's report, just with a garbage date cell
	batch := &rows.Batch{
		Tenancies: []rows.TenancyRow{{
			TenancyID: "t6", UnitID: "u6", PropertyCode: "BLVD",
			RawStatus: "Current", MoveOutDate: "sometime soon",
			ResidentName: "Rowan Ellis", IsPrimary: true,
		}},
	}

	run, err := eng.Run("batch-9", batch)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, run.Status)

	// skipped row, untouched entity: the reported id keeps the tenancy out
	// of missing-entity classification
	var tenancy models.Tenancy
	require.NoError(t, db.First(&tenancy, "id = ?", "t6").Error)
	assert.Equal(t, models.TenancyStatusCurrent, tenancy.Status)
	assert.Empty(t, tenancy.MoveOutDate)

	var lease models.Lease
	require.NoError(t, db.First(&lease, "tenancy_id = ?", "t6").Error)
	assert.True(t, lease.IsActive)
	assert.Equal(t, models.LeaseStatusCurrent, lease.Status)

	require.NotEmpty(t, run.SkipReasons)
	assert.Contains(t, run.SkipReasons[0], "bad move-out date")
}

func TestWorkOrderBadDateKeepsOrderActive(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Create(&models.WorkOrder{
		ExternalID: "wo1", UnitID: "u1", PropertyCode: "BLVD",
		Description: "leaking faucet", Status: "Open", IsActive: true,
	}).Error)

	eng, _ := newTestEngine(t, db)
	batch := &rows.Batch{
		WorkOrders: []rows.WorkOrderRow{{
			WorkOrderID: "wo1", UnitID: "u1", PropertyCode: "BLVD",
			Description: "leaking faucet", Status: "In Progress",
			OpenedDate: "last tuesday",
		}},
	}

	run, err := eng.Run("batch-10", batch)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, run.Status)

	var wo models.WorkOrder
	require.NoError(t, db.First(&wo, "external_id = ?", "wo1").Error)
	assert.True(t, wo.IsActive, "a reported order with a bad date is not a closed order")
	assert.Nil(t, wo.DeactivatedAt)
	assert.Equal(t, "Open", wo.Status, "the bad row updates nothing")

	require.NotEmpty(t, run.SkipReasons)
	assert.Contains(t, run.SkipReasons[0], "bad opened date")
}

func TestStaleSweepClearsApplicantFieldsOnDeniedLinkage(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Create(&models.Tenancy{
		ID: "t-d", UnitID: "u9", PropertyCode: "BLVD",
		Status: models.TenancyStatusDenied,
	}).Error)
	// the denial arrived outside the availability report, so the unit still
	// carries its applicant linkage and leasing fields
	require.NoError(t, db.Create(&models.Availability{
		UnitID: "u9", UnitName: "901", PropertyCode: "BLVD",
		Status: models.AvailabilityStatusApplied, IsActive: true,
		FutureTenancyID: "t-d", LeasingAgent: "Sam",
		MoveInDate: "2025-06-01", ScreeningResult: "pending",
	}).Error)

	eng, _ := newTestEngine(t, db)
	batch := &rows.Batch{
		Tenancies: []rows.TenancyRow{{
			TenancyID: "t1", UnitID: "u1", PropertyCode: "BLVD",
			RawStatus: "Current", ResidentName: "Drew Park", IsPrimary: true,
		}},
	}

	_, err := eng.Run("batch-11", batch)
	require.NoError(t, err)

	var av models.Availability
	require.NoError(t, db.First(&av, "unit_id = ?", "u9").Error)
	assert.Equal(t, models.AvailabilityStatusAvailable, av.Status)
	assert.True(t, av.IsActive)
	assert.Empty(t, av.FutureTenancyID)
	assert.Empty(t, av.LeasingAgent)
	assert.Empty(t, av.MoveInDate)
	assert.Empty(t, av.ScreeningResult)
}

func TestAvailabilityStatusFollowsGoverningTenancy(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Create(&models.Tenancy{
		ID: "t8", UnitID: "u8", PropertyCode: "BLVD",
		Status: models.TenancyStatusFuture, MoveInDate: daysFromToday(t, 14),
	}).Error)

	eng, _ := newTestEngine(t, db)
	rent := 1250.0
	batch := &rows.Batch{
		Availabilities: []rows.AvailabilityRow{{
			UnitID:       "u8",
			UnitName:     "801",
			PropertyCode: "BLVD",
			TenancyID:    "t8",
			OfferedRent:  &rent,
		}},
	}

	_, err := eng.Run("batch-8", batch)
	require.NoError(t, err)

	var av models.Availability
	require.NoError(t, db.First(&av, "unit_id = ?", "u8").Error)
	assert.Equal(t, models.AvailabilityStatusLeased, av.Status)
	assert.True(t, av.IsActive)
	assert.Equal(t, "t8", av.FutureTenancyID, "derivation links the unit to its future tenancy")
}
