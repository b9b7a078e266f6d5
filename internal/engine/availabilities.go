package engine

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"leasing-sync/internal/classify"
	"leasing-sync/internal/models"
	"leasing-sync/internal/rows"
)

// reconcileAvailabilities diffs today's availability report against the
// per-unit marketing records of one property. Status never comes from the
// file: it is always re-derived from the governing tenancy.
func (e *Engine) reconcileAvailabilities(property string, rws []rows.AvailabilityRow) error {
	label := "availabilities " + property

	var existing []models.Availability
	if err := e.db.Where("property_code = ?", property).Find(&existing).Error; err != nil {
		return fmt.Errorf("fetch availabilities: %w", err)
	}
	byUnit := make(map[string]*models.Availability, len(existing))
	for i := range existing {
		byUnit[existing[i].UnitID] = &existing[i]
	}

	e.phase(label, passDiffing)
	var inserts []models.Availability
	changed := 0

	for _, r := range rws {
		if r.UnitID == "" {
			e.rowSkip(property, "availabilities", fmt.Sprintf("availability row missing unit id (unit %q)", r.UnitName))
			continue
		}
		availableDate, ok := parseRowDate(r.AvailableDate)
		if !ok {
			e.rowSkip(property, "availabilities", fmt.Sprintf("unit %s: bad available date %q", r.UnitID, r.AvailableDate))
			continue
		}
		moveIn, ok := parseRowDate(r.MoveInDate)
		if !ok {
			e.rowSkip(property, "availabilities", fmt.Sprintf("unit %s: bad move-in date %q", r.UnitID, r.MoveInDate))
			continue
		}
		moveOut, ok := parseRowDate(r.MoveOutDate)
		if !ok {
			e.rowSkip(property, "availabilities", fmt.Sprintf("unit %s: bad move-out date %q", r.UnitID, r.MoveOutDate))
			continue
		}

		gov, err := e.governingTenancy(r.TenancyID, r.UnitID)
		if err != nil {
			return err
		}
		der := classify.DeriveAvailability(gov)

		av, ok := byUnit[r.UnitID]
		if !ok {
			na := models.Availability{
				UnitID:           r.UnitID,
				UnitName:         r.UnitName,
				PropertyCode:     property,
				Status:           der.Status,
				IsActive:         der.IsActive,
				AvailableDate:    availableDate,
				MoveInDate:       moveIn,
				MoveOutDate:      moveOut,
				OfferedRent:      r.OfferedRent,
				Amenities:        r.Amenities,
				LeasingAgent:     r.LeasingAgent,
				FutureTenancyID:  der.FutureTenancyID,
				MoveInInspection: r.MoveInInspection,
				ScreeningResult:  r.ScreeningResult,
			}
			if der.ClearApplicantFields {
				na.ClearApplicantFields()
			}
			inserts = append(inserts, na)
			if der.Status == models.AvailabilityStatusApplied && gov != nil {
				e.trackApplication(property, &na, gov)
			}
			continue
		}

		newApplication := der.Status == models.AvailabilityStatusApplied && gov != nil &&
			av.FutureTenancyID != gov.ID

		if av.OfferedRent != nil && r.OfferedRent != nil && *av.OfferedRent != *r.OfferedRent {
			e.tracker.TrackPriceChange(property, map[string]interface{}{
				"unit_id":  av.UnitID,
				"unit":     av.UnitName,
				"old_rent": *av.OfferedRent,
				"new_rent": *r.OfferedRent,
			})
		}

		dirty := av.Status != der.Status || av.IsActive != der.IsActive ||
			av.FutureTenancyID != der.FutureTenancyID ||
			av.AvailableDate != availableDate || av.MoveInDate != moveIn || av.MoveOutDate != moveOut ||
			av.UnitName != r.UnitName || av.Amenities != r.Amenities || av.LeasingAgent != r.LeasingAgent ||
			av.MoveInInspection != r.MoveInInspection || av.ScreeningResult != r.ScreeningResult ||
			!rentEqual(av.OfferedRent, r.OfferedRent)
		if !dirty {
			continue
		}

		av.UnitName = r.UnitName
		av.Status = der.Status
		av.IsActive = der.IsActive
		av.FutureTenancyID = der.FutureTenancyID
		av.AvailableDate = availableDate
		av.MoveInDate = moveIn
		av.MoveOutDate = moveOut
		av.OfferedRent = r.OfferedRent
		av.Amenities = r.Amenities
		av.LeasingAgent = r.LeasingAgent
		av.MoveInInspection = r.MoveInInspection
		av.ScreeningResult = r.ScreeningResult
		if der.ClearApplicantFields {
			av.ClearApplicantFields()
		}
		if err := e.db.Save(av).Error; err != nil {
			return fmt.Errorf("update availability for unit %s: %w", av.UnitID, err)
		}
		changed++
		if newApplication {
			e.trackApplication(property, av, gov)
		}
	}

	e.phase(label, passApplying)
	if len(inserts) > 0 {
		if err := e.db.CreateInBatches(inserts, e.batchSize).Error; err != nil {
			return fmt.Errorf("insert availabilities: %w", err)
		}
		e.tracker.TrackNewAvailabilities(property, len(inserts))
	}
	if changed > 0 {
		e.tracker.TrackAvailabilityChanges(property, changed)
	}
	return nil
}

func (e *Engine) trackApplication(property string, av *models.Availability, gov *models.Tenancy) {
	e.tracker.TrackApplicationSaved(property, map[string]interface{}{
		"unit_id":    av.UnitID,
		"unit":       av.UnitName,
		"tenancy_id": gov.ID,
		"screening":  av.ScreeningResult,
	})
}

// governingTenancy resolves the tenancy that drives a unit's availability
// status. An explicit linkage wins even when that tenancy is terminal, so
// denied/canceled applications correctly clear the unit; otherwise the most
// recent effectively active tenancy on the unit governs, and a unit with
// neither derives the defaults row.
func (e *Engine) governingTenancy(tenancyID, unitID string) (*models.Tenancy, error) {
	if tenancyID != "" {
		var t models.Tenancy
		err := e.db.Where("id = ?", tenancyID).First(&t).Error
		if err == nil {
			return &t, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("fetch tenancy %s: %w", tenancyID, err)
		}
		// fall through: stale linkage, resolve by unit
	}

	var t models.Tenancy
	err := e.db.Where("unit_id = ? AND status IN ?", unitID, models.ActiveTenancyStatuses).
		Order("move_in_date DESC").
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve governing tenancy for unit %s: %w", unitID, err)
	}
	return &t, nil
}

func rentEqual(a, b *float64) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
