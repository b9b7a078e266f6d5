package engine

import (
	"fmt"

	"leasing-sync/internal/models"
	"leasing-sync/internal/rows"
)

// reconcileAlerts diffs the alerts report. Alerts have no external id, so
// identity is the property|unit|description|resident composite; a row is
// either already known (no-op) or brand new, and anything no longer reported
// is soft-deactivated.
func (e *Engine) reconcileAlerts(property string, rws []rows.AlertRow) error {
	label := "alerts " + property

	var active []models.UnitAlert
	if err := e.db.Where("property_code = ? AND is_active = ?", property, true).Find(&active).Error; err != nil {
		return fmt.Errorf("fetch active alerts: %w", err)
	}
	byKey := make(map[string]*models.UnitAlert, len(active))
	for i := range active {
		byKey[active[i].NaturalKey()] = &active[i]
	}

	e.phase(label, passDiffing)
	reported := make(map[string]struct{})
	var inserts []models.UnitAlert

	for _, r := range rws {
		if r.UnitID == "" || r.Description == "" {
			e.rowSkip(property, "alerts", fmt.Sprintf("alert missing unit/description (resident %q)", r.ResidentName))
			continue
		}
		key := models.UnitAlertKey(property, r.UnitID, r.Description, r.ResidentName)
		if _, dup := reported[key]; dup {
			continue
		}
		reported[key] = struct{}{}
		if _, ok := byKey[key]; ok {
			continue
		}
		inserts = append(inserts, models.UnitAlert{
			UnitID:       r.UnitID,
			PropertyCode: property,
			Description:  r.Description,
			ResidentName: r.ResidentName,
			IsActive:     true,
		})
	}

	e.phase(label, passApplying)
	if len(inserts) > 0 {
		if err := e.db.CreateInBatches(inserts, e.batchSize).Error; err != nil {
			return fmt.Errorf("insert alerts: %w", err)
		}
	}

	var missingIDs []string
	for key, a := range byKey {
		if _, ok := reported[key]; !ok {
			missingIDs = append(missingIDs, fmt.Sprint(a.ID))
		}
	}
	for _, batch := range chunk(missingIDs, e.batchSize) {
		if err := e.db.Model(&models.UnitAlert{}).
			Where("id IN ?", batch).
			Update("is_active", false).Error; err != nil {
			return fmt.Errorf("deactivate alerts: %w", err)
		}
	}
	return nil
}
