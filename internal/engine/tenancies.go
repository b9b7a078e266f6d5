package engine

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"leasing-sync/internal/classify"
	"leasing-sync/internal/dates"
	"leasing-sync/internal/models"
	"leasing-sync/internal/rows"
)

// reconcileTenancies diffs today's residents report against stored tenancies
// for one property. Primary-occupant rows drive the tenancy lifecycle
// (insert / update / reactivate / missing-entity transitions); every row
// drives the resident roster.
func (e *Engine) reconcileTenancies(property string, rws []rows.TenancyRow) error {
	label := "tenancies " + property

	var all []models.Tenancy
	if err := e.db.Where("property_code = ?", property).Find(&all).Error; err != nil {
		return fmt.Errorf("fetch tenancies: %w", err)
	}
	byID := make(map[string]*models.Tenancy, len(all))
	var active []models.Tenancy
	for i := range all {
		byID[all[i].ID] = &all[i]
		if all[i].IsEffectivelyActive() {
			active = append(active, all[i])
		}
	}

	e.phase(label, passDiffing)
	reported := make(map[string]struct{})
	var inserts []models.Tenancy
	updated := 0

	for _, r := range rws {
		if !r.IsPrimary {
			continue
		}
		if r.TenancyID == "" || r.UnitID == "" {
			e.rowSkip(property, "tenancies", fmt.Sprintf("missing tenancy/unit id (resident %q)", r.ResidentName))
			continue
		}
		// The id was reported, so the entity is present today even if the
		// rest of the row is bad; only the update is skipped, never the
		// existence. Otherwise one malformed cell would read as a move-out.
		reported[r.TenancyID] = struct{}{}

		moveIn, ok := parseRowDate(r.MoveInDate)
		if !ok {
			e.rowSkip(property, "tenancies", fmt.Sprintf("tenancy %s: bad move-in date %q", r.TenancyID, r.MoveInDate))
			continue
		}
		moveOut, ok := parseRowDate(r.MoveOutDate)
		if !ok {
			e.rowSkip(property, "tenancies", fmt.Sprintf("tenancy %s: bad move-out date %q", r.TenancyID, r.MoveOutDate))
			continue
		}

		status := classify.MapTenancyStatus(r.RawStatus)

		existing, ok := byID[r.TenancyID]
		if !ok {
			t := models.Tenancy{
				ID:           r.TenancyID,
				UnitID:       r.UnitID,
				UnitName:     r.UnitName,
				PropertyCode: property,
				Status:       status,
				MoveInDate:   moveIn,
				MoveOutDate:  moveOut,
			}
			inserts = append(inserts, t)
			e.tracker.TrackNewTenancy(property, map[string]interface{}{
				"tenancy_id": t.ID,
				"unit_id":    t.UnitID,
				"unit":       t.UnitName,
				"resident":   r.ResidentName,
				"status":     string(status),
				"move_in":    moveIn,
			})
			if err := e.checkTransfer(property, r, status); err != nil {
				return err
			}
			continue
		}

		// Existing record: update in place. A terminal tenancy reappearing
		// in the report reactivates through the same path, since status
		// always follows the source file.
		statusChanged := existing.Status != status
		if statusChanged || existing.UnitID != r.UnitID || existing.UnitName != r.UnitName ||
			existing.MoveInDate != moveIn || existing.MoveOutDate != moveOut {
			wasNotice := existing.Status == models.TenancyStatusNotice
			existing.Status = status
			existing.UnitID = r.UnitID
			existing.UnitName = r.UnitName
			existing.MoveInDate = moveIn
			existing.MoveOutDate = moveOut
			if err := e.db.Save(existing).Error; err != nil {
				return fmt.Errorf("update tenancy %s: %w", existing.ID, err)
			}
			updated++
			if statusChanged {
				if status == models.TenancyStatusNotice && !wasNotice {
					e.tracker.TrackNotice(property, map[string]interface{}{
						"tenancy_id": existing.ID,
						"unit_id":    existing.UnitID,
						"unit":       existing.UnitName,
						"move_out":   existing.MoveOutDate,
					})
				}
				if err := e.syncAvailabilityForTenancy(existing); err != nil {
					return err
				}
			}
		}
	}

	e.phase(label, passApplying)
	if len(inserts) > 0 {
		if err := e.db.CreateInBatches(inserts, e.batchSize).Error; err != nil {
			return fmt.Errorf("insert tenancies: %w", err)
		}
	}
	if updated > 0 {
		e.tracker.TrackTenancyUpdates(property, updated)
	}

	if err := e.applyMissingTenancies(property, reported, active); err != nil {
		return err
	}

	return e.reconcileResidents(property, rws, byID, inserts)
}

// applyMissingTenancies transitions tenancies that silently vanished from
// today's report: current/notice go to past (resident moved out upstream),
// applicant/future go to canceled and their unit's availability loses its
// applicant linkage. Everything else is logged and left alone.
func (e *Engine) applyMissingTenancies(property string, reported map[string]struct{}, active []models.Tenancy) error {
	result := classify.Missing(reported, active)

	missingByID := make(map[string]models.Tenancy, len(result.Missing))
	for _, t := range result.Missing {
		missingByID[t.ID] = t
	}

	if err := e.transitionTenancies(result.ToPastIDs, models.TenancyStatusPast); err != nil {
		return err
	}
	for _, id := range result.ToPastIDs {
		t := missingByID[id]
		e.tracker.TrackMoveOutDetected(property, map[string]interface{}{
			"tenancy_id":  id,
			"unit_id":     t.UnitID,
			"unit":        t.UnitName,
			"from_status": string(t.Status),
		})
	}

	if err := e.transitionTenancies(result.ToCanceledIDs, models.TenancyStatusCanceled); err != nil {
		return err
	}
	for _, id := range result.ToCanceledIDs {
		t := missingByID[id]
		e.tracker.TrackApplicationCanceled(property, map[string]interface{}{
			"tenancy_id":  id,
			"unit_id":     t.UnitID,
			"unit":        t.UnitName,
			"from_status": string(t.Status),
		})
	}

	// Re-derive availability for every transitioned unit; canceled pipeline
	// units additionally clear applicant fields via the derivation itself.
	for _, id := range append(append([]string{}, result.ToPastIDs...), result.ToCanceledIDs...) {
		t := missingByID[id]
		switch t.Status {
		case models.TenancyStatusCurrent, models.TenancyStatusNotice:
			t.Status = models.TenancyStatusPast
		default:
			t.Status = models.TenancyStatusCanceled
		}
		if err := e.syncAvailabilityForTenancy(&t); err != nil {
			return err
		}
	}

	transitioned := make(map[string]struct{}, len(result.ToPastIDs)+len(result.ToCanceledIDs))
	for _, id := range result.ToPastIDs {
		transitioned[id] = struct{}{}
	}
	for _, id := range result.ToCanceledIDs {
		transitioned[id] = struct{}{}
	}
	for _, t := range result.Missing {
		if _, ok := transitioned[t.ID]; !ok {
			e.log.Info("missing tenancy left untransitioned",
				zap.String("property", property),
				zap.String("tenancy_id", t.ID),
				zap.String("status", string(t.Status)))
		}
	}
	return nil
}

// transitionTenancies applies a status transition to the given ids in
// bounded chunks and retires any still-active leases attached to them.
func (e *Engine) transitionTenancies(ids []string, to models.TenancyStatus) error {
	for _, batch := range chunk(ids, e.batchSize) {
		if err := e.db.Model(&models.Tenancy{}).
			Where("id IN ?", batch).
			Update("status", to).Error; err != nil {
			return fmt.Errorf("transition tenancies to %s: %w", to, err)
		}
		if err := e.db.Model(&models.Lease{}).
			Where("tenancy_id IN ? AND is_active = ?", batch, true).
			Updates(map[string]interface{}{"is_active": false, "status": models.LeaseStatusPast}).Error; err != nil {
			return fmt.Errorf("retire leases: %w", err)
		}
	}
	return nil
}

// checkTransfer raises a transfer_active flag when a new pipeline tenancy's
// primary resident already holds a current tenancy in another unit of the
// same property.
func (e *Engine) checkTransfer(property string, r rows.TenancyRow, status models.TenancyStatus) error {
	if status != models.TenancyStatusFuture && status != models.TenancyStatusApplicant {
		return nil
	}
	if r.ResidentName == "" {
		return nil
	}
	var count int64
	err := e.db.Model(&models.Tenancy{}).
		Joins("JOIN residents ON residents.tenancy_id = tenancies.id").
		Where("tenancies.property_code = ? AND tenancies.status = ? AND tenancies.unit_id <> ?", property, models.TenancyStatusCurrent, r.UnitID).
		Where("residents.name = ? AND residents.is_primary = ?", r.ResidentName, true).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("transfer check for %q: %w", r.ResidentName, err)
	}
	if count == 0 {
		return nil
	}
	return e.raiseFlag(flagSpec{
		Property: property,
		UnitID:   r.UnitID,
		UnitName: r.UnitName,
		FlagType: models.FlagTransferActive,
		Severity: models.SeverityInfo,
		Title:    "Transfer in progress",
		Message:  fmt.Sprintf("%s is moving to unit %s while still current elsewhere", r.ResidentName, r.UnitName),
		Metadata: map[string]interface{}{"tenancy_id": r.TenancyID, "resident": r.ResidentName},
	})
}

// reconcileResidents upserts the resident roster from every report row,
// primary or not. Residents share the tenancy's lifecycle, so there is no
// separate missing-entity pass for them.
func (e *Engine) reconcileResidents(property string, rws []rows.TenancyRow, byID map[string]*models.Tenancy, inserted []models.Tenancy) error {
	known := make(map[string]struct{}, len(byID)+len(inserted))
	for id := range byID {
		known[id] = struct{}{}
	}
	for _, t := range inserted {
		known[t.ID] = struct{}{}
	}

	var existing []models.Resident
	if err := e.db.Where("property_code = ?", property).Find(&existing).Error; err != nil {
		return fmt.Errorf("fetch residents: %w", err)
	}
	byKey := make(map[string]*models.Resident, len(existing))
	for i := range existing {
		byKey[existing[i].TenancyID+"|"+existing[i].Name] = &existing[i]
	}

	var inserts []models.Resident
	updated := 0
	for _, r := range rws {
		if r.ResidentName == "" || r.TenancyID == "" {
			continue
		}
		if _, ok := known[r.TenancyID]; !ok {
			e.rowSkip(property, "residents", fmt.Sprintf("resident %q references unknown tenancy %s", r.ResidentName, r.TenancyID))
			continue
		}
		key := r.TenancyID + "|" + r.ResidentName
		res, ok := byKey[key]
		if !ok {
			inserts = append(inserts, models.Resident{
				TenancyID:    r.TenancyID,
				PropertyCode: property,
				Name:         r.ResidentName,
				Email:        r.Email,
				Phone:        r.Phone,
				IsPrimary:    r.IsPrimary,
			})
			continue
		}
		if res.Email != r.Email || res.Phone != r.Phone || res.IsPrimary != r.IsPrimary {
			res.Email = r.Email
			res.Phone = r.Phone
			res.IsPrimary = r.IsPrimary
			if err := e.db.Save(res).Error; err != nil {
				return fmt.Errorf("update resident %q: %w", r.ResidentName, err)
			}
			updated++
		}
	}

	if len(inserts) > 0 {
		if err := e.db.CreateInBatches(inserts, e.batchSize).Error; err != nil {
			return fmt.Errorf("insert residents: %w", err)
		}
		e.tracker.TrackNewResidents(property, len(inserts))
	}
	if updated > 0 {
		e.tracker.TrackResidentUpdates(property, updated)
	}
	return nil
}

// syncAvailabilityForTenancy re-derives the unit's availability from the
// tenancy that just changed. Derivation is the single source of truth for
// availability status; this is one of the two call sites (the other is the
// availability pass itself).
func (e *Engine) syncAvailabilityForTenancy(t *models.Tenancy) error {
	var av models.Availability
	err := e.db.Where("unit_id = ?", t.UnitID).Order("id DESC").First(&av).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil // unit has never appeared in an availability report
	}
	if err != nil {
		return fmt.Errorf("fetch availability for unit %s: %w", t.UnitID, err)
	}

	der := classify.DeriveAvailability(t)
	if av.Status == der.Status && av.IsActive == der.IsActive && av.FutureTenancyID == der.FutureTenancyID && !der.ClearApplicantFields {
		return nil
	}
	av.Status = der.Status
	av.IsActive = der.IsActive
	av.FutureTenancyID = der.FutureTenancyID
	if der.ClearApplicantFields {
		av.ClearApplicantFields()
	}
	if err := e.db.Save(&av).Error; err != nil {
		return fmt.Errorf("sync availability for unit %s: %w", t.UnitID, err)
	}
	e.tracker.TrackAvailabilityChanges(t.PropertyCode, 1)
	return nil
}

// parseRowDate normalizes an optional date field. Empty input is fine;
// non-empty input that fails to parse is bad data the caller must skip.
func parseRowDate(raw string) (string, bool) {
	if raw == "" {
		return "", true
	}
	parsed := dates.ParseFlexible(raw)
	if parsed == "" {
		return "", false
	}
	return parsed, true
}
