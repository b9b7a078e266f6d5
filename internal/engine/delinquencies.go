package engine

import (
	"fmt"

	"leasing-sync/internal/models"
	"leasing-sync/internal/rows"
)

// reconcileDelinquencies diffs the delinquency report. A balance change is
// material and updates the record in place; a household missing from the
// report paid up, so its record is soft-deactivated.
func (e *Engine) reconcileDelinquencies(property string, rws []rows.DelinquencyRow) error {
	label := "delinquencies " + property

	var active []models.Delinquency
	if err := e.db.Where("property_code = ? AND is_active = ?", property, true).Find(&active).Error; err != nil {
		return fmt.Errorf("fetch active delinquencies: %w", err)
	}
	byTenancy := make(map[string]*models.Delinquency, len(active))
	for i := range active {
		byTenancy[active[i].TenancyID] = &active[i]
	}

	e.phase(label, passDiffing)
	reported := make(map[string]struct{})
	var inserts []models.Delinquency

	for _, r := range rws {
		if r.TenancyID == "" {
			e.rowSkip(property, "delinquencies", fmt.Sprintf("delinquency missing tenancy id (resident %q)", r.ResidentName))
			continue
		}
		reported[r.TenancyID] = struct{}{}

		existing, ok := byTenancy[r.TenancyID]
		if !ok {
			inserts = append(inserts, models.Delinquency{
				TenancyID:    r.TenancyID,
				UnitID:       r.UnitID,
				PropertyCode: property,
				ResidentName: r.ResidentName,
				Balance:      r.Balance,
				DaysLate:     r.DaysLate,
				IsActive:     true,
			})
			continue
		}
		if existing.Balance == r.Balance && existing.DaysLate == r.DaysLate {
			continue
		}
		existing.Balance = r.Balance
		existing.DaysLate = r.DaysLate
		if err := e.db.Save(existing).Error; err != nil {
			return fmt.Errorf("update delinquency for tenancy %s: %w", r.TenancyID, err)
		}
	}

	e.phase(label, passApplying)
	if len(inserts) > 0 {
		if err := e.db.CreateInBatches(inserts, e.batchSize).Error; err != nil {
			return fmt.Errorf("insert delinquencies: %w", err)
		}
	}

	var missingIDs []string
	for tenancyID, d := range byTenancy {
		if _, ok := reported[tenancyID]; !ok {
			missingIDs = append(missingIDs, fmt.Sprint(d.ID))
		}
	}
	for _, batch := range chunk(missingIDs, e.batchSize) {
		if err := e.db.Model(&models.Delinquency{}).
			Where("id IN ?", batch).
			Update("is_active", false).Error; err != nil {
			return fmt.Errorf("deactivate delinquencies: %w", err)
		}
	}
	return nil
}
