package engine

import (
	"fmt"

	"leasing-sync/internal/classify"
	"leasing-sync/internal/models"
	"leasing-sync/internal/rows"
)

// reconcileLeases diffs today's rent roll against the active leases of one
// property. A row with no active lease inserts one; a row judged a renewal
// retires the old lease and inserts a successor; anything else is an
// in-place update with no history retained.
func (e *Engine) reconcileLeases(property string, rws []rows.LeaseRow) error {
	label := "leases " + property

	var activeLeases []models.Lease
	if err := e.db.Where("property_code = ? AND is_active = ?", property, true).Find(&activeLeases).Error; err != nil {
		return fmt.Errorf("fetch active leases: %w", err)
	}
	byTenancy := make(map[string]*models.Lease, len(activeLeases))
	for i := range activeLeases {
		byTenancy[activeLeases[i].TenancyID] = &activeLeases[i]
	}

	var tenancies []models.Tenancy
	if err := e.db.Where("property_code = ?", property).Find(&tenancies).Error; err != nil {
		return fmt.Errorf("fetch tenancies: %w", err)
	}
	tenancyByID := make(map[string]*models.Tenancy, len(tenancies))
	for i := range tenancies {
		tenancyByID[tenancies[i].ID] = &tenancies[i]
	}

	e.phase(label, passDiffing)
	var inserts []models.Lease
	changed := 0

	for _, r := range rws {
		if r.TenancyID == "" {
			e.rowSkip(property, "leases", "lease row missing tenancy id")
			continue
		}
		tenancy, ok := tenancyByID[r.TenancyID]
		if !ok {
			e.rowSkip(property, "leases", fmt.Sprintf("lease references unknown tenancy %s", r.TenancyID))
			continue
		}
		start, ok := parseRowDate(r.StartDate)
		if !ok {
			e.rowSkip(property, "leases", fmt.Sprintf("tenancy %s: bad lease start %q", r.TenancyID, r.StartDate))
			continue
		}
		end, ok := parseRowDate(r.EndDate)
		if !ok {
			e.rowSkip(property, "leases", fmt.Sprintf("tenancy %s: bad lease end %q", r.TenancyID, r.EndDate))
			continue
		}

		existing, ok := byTenancy[r.TenancyID]
		if !ok {
			inserts = append(inserts, models.Lease{
				TenancyID:    r.TenancyID,
				PropertyCode: property,
				StartDate:    start,
				EndDate:      end,
				Rent:         r.Rent,
				Deposit:      r.Deposit,
				Status:       leaseStatusFor(tenancy.Status),
				IsActive:     true,
			})
			e.tracker.TrackNewLease(property, map[string]interface{}{
				"tenancy_id": r.TenancyID,
				"unit_id":    tenancy.UnitID,
				"unit":       tenancy.UnitName,
				"start":      start,
				"end":        end,
				"rent":       r.Rent,
			})
			continue
		}

		if classify.IsRenewal(start, end, existing.StartDate, existing.EndDate) {
			old := *existing
			existing.Retire()
			if err := e.db.Save(existing).Error; err != nil {
				return fmt.Errorf("retire lease %d: %w", existing.ID, err)
			}
			// The successor inherits the deposit; dates and rent come from
			// the new term.
			successor := models.Lease{
				TenancyID:    r.TenancyID,
				PropertyCode: property,
				StartDate:    start,
				EndDate:      end,
				Rent:         r.Rent,
				Deposit:      old.Deposit,
				Status:       leaseStatusFor(tenancy.Status),
				IsActive:     true,
			}
			if err := e.db.Create(&successor).Error; err != nil {
				return fmt.Errorf("insert renewal lease for tenancy %s: %w", r.TenancyID, err)
			}
			e.tracker.TrackLeaseRenewal(property, map[string]interface{}{
				"tenancy_id": r.TenancyID,
				"unit_id":    tenancy.UnitID,
				"unit":       tenancy.UnitName,
				"old_start":  old.StartDate,
				"old_end":    old.EndDate,
				"new_start":  start,
				"new_end":    end,
				"old_rent":   old.Rent,
				"new_rent":   r.Rent,
			})
			continue
		}

		if existing.StartDate == start && existing.EndDate == end &&
			existing.Rent == r.Rent && existing.Deposit == r.Deposit {
			continue
		}
		if existing.Rent != r.Rent {
			e.tracker.TrackPriceChange(property, map[string]interface{}{
				"tenancy_id": r.TenancyID,
				"unit_id":    tenancy.UnitID,
				"unit":       tenancy.UnitName,
				"old_rent":   existing.Rent,
				"new_rent":   r.Rent,
			})
		}
		existing.StartDate = start
		existing.EndDate = end
		existing.Rent = r.Rent
		existing.Deposit = r.Deposit
		if err := e.db.Save(existing).Error; err != nil {
			return fmt.Errorf("update lease %d: %w", existing.ID, err)
		}
		changed++
	}

	e.phase(label, passApplying)
	if len(inserts) > 0 {
		if err := e.db.CreateInBatches(inserts, e.batchSize).Error; err != nil {
			return fmt.Errorf("insert leases: %w", err)
		}
	}
	if changed > 0 {
		e.tracker.TrackLeaseChanges(property, changed)
	}
	return nil
}

// leaseStatusFor mirrors the tenancy lifecycle onto a new lease row.
func leaseStatusFor(s models.TenancyStatus) models.LeaseStatus {
	switch s {
	case models.TenancyStatusNotice:
		return models.LeaseStatusNotice
	case models.TenancyStatusFuture:
		return models.LeaseStatusFuture
	case models.TenancyStatusEviction:
		return models.LeaseStatusEviction
	case models.TenancyStatusPast:
		return models.LeaseStatusPast
	default:
		return models.LeaseStatusCurrent
	}
}
