package engine

import (
	"fmt"

	"leasing-sync/internal/classify"
	"leasing-sync/internal/models"
)

// sweepStaleAvailabilities re-derives every availability record after all
// tenancy-bearing reports have been applied. It catches units whose status
// never got updated because the triggering tenancy arrived in a different
// file than expected. Changes are tracked under the STALE_UPDATE sentinel,
// which never reaches user-facing reports.
func (e *Engine) sweepStaleAvailabilities() error {
	var avs []models.Availability
	if err := e.db.Find(&avs).Error; err != nil {
		return fmt.Errorf("fetch availabilities: %w", err)
	}

	fixed := 0
	for i := range avs {
		av := &avs[i]
		gov, err := e.governingTenancy(av.FutureTenancyID, av.UnitID)
		if err != nil {
			return err
		}
		der := classify.DeriveAvailability(gov)
		if av.Status == der.Status && av.IsActive == der.IsActive && av.FutureTenancyID == der.FutureTenancyID && !der.ClearApplicantFields {
			continue
		}
		av.Status = der.Status
		av.IsActive = der.IsActive
		av.FutureTenancyID = der.FutureTenancyID
		if der.ClearApplicantFields {
			av.ClearApplicantFields()
		}
		if err := e.db.Save(av).Error; err != nil {
			return fmt.Errorf("fix stale availability for unit %s: %w", av.UnitID, err)
		}
		fixed++
	}

	if fixed > 0 {
		e.tracker.TrackAvailabilityChanges(StaleUpdateCode, fixed)
	}
	return nil
}
