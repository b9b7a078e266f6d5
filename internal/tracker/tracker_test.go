package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leasing-sync/internal/models"
)

func TestInitPropertyIdempotent(t *testing.T) {
	tr := New()

	s := tr.InitProperty("BLVD")
	s.NewTenancies = 3

	again := tr.InitProperty("BLVD")
	assert.Same(t, s, again)
	assert.Equal(t, 3, again.NewTenancies)
}

func TestPropertyIsolation(t *testing.T) {
	tr := New()

	tr.TrackNewTenancy("BLVD", map[string]interface{}{"tenancy_id": "t1", "unit_id": "u1"})
	tr.TrackNewTenancy("BLVD", map[string]interface{}{"tenancy_id": "t2", "unit_id": "u2"})
	tr.TrackNotice("PINE", map[string]interface{}{"tenancy_id": "t9", "unit_id": "u9"})

	assert.Equal(t, 2, tr.Summaries()["BLVD"].NewTenancies)
	assert.Equal(t, 0, tr.Summaries()["BLVD"].Notices)
	assert.Equal(t, 1, tr.Summaries()["PINE"].Notices)
	assert.Equal(t, 0, tr.Summaries()["PINE"].NewTenancies)

	require.Len(t, tr.Events(), 3)
	assert.Equal(t, models.EventNewTenancy, tr.Events()[0].EventType)
	assert.Equal(t, "t1", tr.Events()[0].TenancyID)
	assert.Equal(t, "u1", tr.Events()[0].UnitID)
	assert.Equal(t, "PINE", tr.Events()[2].PropertyCode)
}

func TestCounterOnlyOperationsEmitNoEvents(t *testing.T) {
	tr := New()

	tr.TrackTenancyUpdates("BLVD", 4)
	tr.TrackNewResidents("BLVD", 2)
	tr.TrackResidentUpdates("BLVD", 1)
	tr.TrackLeaseChanges("BLVD", 3)
	tr.TrackNewAvailabilities("BLVD", 5)
	tr.TrackAvailabilityChanges("BLVD", 6)
	tr.TrackStatusAutoFix("BLVD", 1)

	assert.Empty(t, tr.Events())
	s := tr.Summaries()["BLVD"]
	assert.Equal(t, 4, s.TenancyUpdates)
	assert.Equal(t, 2, s.NewResidents)
	assert.Equal(t, 1, s.ResidentUpdates)
	assert.Equal(t, 3, s.LeaseChanges)
	assert.Equal(t, 5, s.NewAvailabilities)
	assert.Equal(t, 6, s.AvailabilityChanges)
	assert.Equal(t, 1, s.StatusAutoFixes)
}

func TestMoveOutAndCancellationEmitEventsWithoutCounters(t *testing.T) {
	tr := New()

	tr.TrackMoveOutDetected("BLVD", map[string]interface{}{"tenancy_id": "t1"})
	tr.TrackApplicationCanceled("BLVD", map[string]interface{}{"tenancy_id": "t2"})

	require.Len(t, tr.Events(), 2)
	assert.Equal(t, models.EventMoveOutDetected, tr.Events()[0].EventType)
	assert.Equal(t, models.EventApplicationCanceled, tr.Events()[1].EventType)
}

func TestTrackFlagBucketRouting(t *testing.T) {
	tr := New()

	tr.TrackFlag("BLVD", models.FlagMakereadyOverdue, 2)
	tr.TrackFlag("BLVD", models.FlagApplicationOverdue, 1)
	tr.TrackFlag("BLVD", models.FlagTransferActive, 3)
	tr.TrackFlag("BLVD", "some_future_flag", 7)

	s := tr.Summaries()["BLVD"]
	assert.Equal(t, 2, s.MakereadyFlags)
	assert.Equal(t, 1, s.ApplicationFlags)
	assert.Equal(t, 3, s.TransferFlags)
	assert.Empty(t, tr.Events())
}

func TestResetPreservesIdentity(t *testing.T) {
	tr := New()
	tr.TrackNewTenancy("BLVD", map[string]interface{}{"tenancy_id": "t1"})
	require.NotEmpty(t, tr.Events())
	require.NotEmpty(t, tr.Summaries())

	before := tr
	tr.Reset()

	assert.Same(t, before, tr)
	assert.Empty(t, tr.Events())
	assert.Empty(t, tr.Summaries())

	// still usable after reset
	tr.TrackNotice("PINE", map[string]interface{}{"tenancy_id": "t2"})
	assert.Len(t, tr.Events(), 1)
	assert.Equal(t, 1, tr.Summaries()["PINE"].Notices)
}
