package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"leasing-sync/internal/models"
)

func TestMissing(t *testing.T) {
	active := []models.Tenancy{
		{ID: "t1", UnitID: "u1", Status: models.TenancyStatusCurrent},
		{ID: "t2", UnitID: "u2", Status: models.TenancyStatusNotice},
		{ID: "t3", UnitID: "u3", Status: models.TenancyStatusApplicant},
		{ID: "t4", UnitID: "u4", Status: models.TenancyStatusFuture},
		{ID: "t5", UnitID: "u5", Status: models.TenancyStatusEviction},
		{ID: "t6", UnitID: "u6", Status: models.TenancyStatusCurrent},
	}
	reported := map[string]struct{}{
		"t6": {},
	}

	result := Missing(reported, active)

	assert.Len(t, result.Missing, 5)
	assert.Equal(t, []string{"t1", "t2"}, result.ToPastIDs)
	assert.Equal(t, []string{"t3", "t4"}, result.ToCanceledIDs)
	assert.Equal(t, []string{"u3", "u4"}, result.AvailabilityResetUnitIDs)

	// eviction is surfaced but never auto-transitioned
	var missingIDs []string
	for _, m := range result.Missing {
		missingIDs = append(missingIDs, m.ID)
	}
	assert.Contains(t, missingIDs, "t5")
	assert.NotContains(t, result.ToPastIDs, "t5")
	assert.NotContains(t, result.ToCanceledIDs, "t5")
}

func TestMissingAllReported(t *testing.T) {
	active := []models.Tenancy{
		{ID: "t1", UnitID: "u1", Status: models.TenancyStatusCurrent},
	}
	result := Missing(map[string]struct{}{"t1": {}}, active)

	assert.Empty(t, result.Missing)
	assert.Empty(t, result.ToPastIDs)
	assert.Empty(t, result.ToCanceledIDs)
	assert.Empty(t, result.AvailabilityResetUnitIDs)
}
