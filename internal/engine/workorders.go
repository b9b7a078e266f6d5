package engine

import (
	"fmt"
	"time"

	"leasing-sync/internal/models"
	"leasing-sync/internal/rows"
)

// reconcileWorkOrders diffs the work-order report. Work orders carry an
// external id, so the lookup key is property|unit|workOrderID. An order
// missing from today's report was closed upstream: deactivate and timestamp.
func (e *Engine) reconcileWorkOrders(property string, rws []rows.WorkOrderRow) error {
	label := "work_orders " + property

	var active []models.WorkOrder
	if err := e.db.Where("property_code = ? AND is_active = ?", property, true).Find(&active).Error; err != nil {
		return fmt.Errorf("fetch active work orders: %w", err)
	}
	byKey := make(map[string]*models.WorkOrder, len(active))
	for i := range active {
		byKey[active[i].NaturalKey()] = &active[i]
	}

	e.phase(label, passDiffing)
	reported := make(map[string]struct{})
	var inserts []models.WorkOrder

	for _, r := range rws {
		if r.WorkOrderID == "" || r.UnitID == "" {
			e.rowSkip(property, "work_orders", fmt.Sprintf("work order missing id/unit (description %q)", r.Description))
			continue
		}
		// Mark the order as present before validating the rest of the row,
		// so a bad date skips the update without deactivating the order.
		key := models.WorkOrderKey(property, r.UnitID, r.WorkOrderID)
		reported[key] = struct{}{}

		opened, ok := parseRowDate(r.OpenedDate)
		if !ok {
			e.rowSkip(property, "work_orders", fmt.Sprintf("work order %s: bad opened date %q", r.WorkOrderID, r.OpenedDate))
			continue
		}

		existing, ok := byKey[key]
		if !ok {
			inserts = append(inserts, models.WorkOrder{
				ExternalID:   r.WorkOrderID,
				UnitID:       r.UnitID,
				PropertyCode: property,
				Description:  r.Description,
				Status:       r.Status,
				OpenedDate:   opened,
				IsActive:     true,
			})
			continue
		}
		if existing.Status == r.Status && existing.Description == r.Description {
			continue
		}
		existing.Status = r.Status
		existing.Description = r.Description
		if err := e.db.Save(existing).Error; err != nil {
			return fmt.Errorf("update work order %s: %w", existing.ExternalID, err)
		}
	}

	e.phase(label, passApplying)
	if len(inserts) > 0 {
		if err := e.db.CreateInBatches(inserts, e.batchSize).Error; err != nil {
			return fmt.Errorf("insert work orders: %w", err)
		}
	}

	var missingIDs []string
	now := time.Now()
	for key, wo := range byKey {
		if _, ok := reported[key]; !ok {
			missingIDs = append(missingIDs, fmt.Sprint(wo.ID))
		}
	}
	for _, batch := range chunk(missingIDs, e.batchSize) {
		if err := e.db.Model(&models.WorkOrder{}).
			Where("id IN ?", batch).
			Updates(map[string]interface{}{"is_active": false, "deactivated_at": now}).Error; err != nil {
			return fmt.Errorf("deactivate work orders: %w", err)
		}
	}
	return nil
}
