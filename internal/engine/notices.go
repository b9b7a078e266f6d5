package engine

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"leasing-sync/internal/models"
	"leasing-sync/internal/rows"
)

// reconcileNotices applies the notices report. The notices file is the most
// specific source for notice state, so a referenced tenancy that is not
// already on notice is force-updated to notice and counted as an auto-fix.
// This is deliberate "trust the most specific file" policy, not an error,
// and it is not cross-validated against move-out dates.
func (e *Engine) reconcileNotices(property string, rws []rows.NoticeRow) error {
	label := "notices " + property
	e.phase(label, passDiffing)

	for _, r := range rws {
		if r.TenancyID == "" {
			e.rowSkip(property, "notices", "notice row missing tenancy id")
			continue
		}
		moveOut, ok := parseRowDate(r.MoveOutDate)
		if !ok {
			e.rowSkip(property, "notices", fmt.Sprintf("tenancy %s: bad move-out date %q", r.TenancyID, r.MoveOutDate))
			continue
		}

		var tenancy models.Tenancy
		err := e.db.Where("id = ?", r.TenancyID).First(&tenancy).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			e.rowSkip(property, "notices", fmt.Sprintf("notice references unknown tenancy %s", r.TenancyID))
			continue
		}
		if err != nil {
			return fmt.Errorf("fetch tenancy %s: %w", r.TenancyID, err)
		}

		dirty := false
		if moveOut != "" && tenancy.MoveOutDate != moveOut {
			tenancy.MoveOutDate = moveOut
			dirty = true
		}

		autoFixed := tenancy.Status != models.TenancyStatusNotice
		if autoFixed {
			tenancy.Status = models.TenancyStatusNotice
			dirty = true
		}
		if dirty {
			if err := e.db.Save(&tenancy).Error; err != nil {
				return fmt.Errorf("update tenancy %s from notice: %w", tenancy.ID, err)
			}
		}
		if autoFixed {
			e.tracker.TrackStatusAutoFix(property, 1)
			e.tracker.TrackNotice(property, map[string]interface{}{
				"tenancy_id": tenancy.ID,
				"unit_id":    tenancy.UnitID,
				"unit":       tenancy.UnitName,
				"move_out":   tenancy.MoveOutDate,
			})
			if err := e.syncAvailabilityForTenancy(&tenancy); err != nil {
				return err
			}
		}
	}
	return nil
}
