package engine

import (
	"fmt"

	"go.uber.org/zap"

	"leasing-sync/internal/dates"
	"leasing-sync/internal/models"
)

// Sweep thresholds in days.
const (
	moveOutOverdueDays     = 1
	makereadyOverdueDays   = 7
	applicationOverdueDays = 14
)

const flagResolver = "overdue-sweep"

type flagSpec struct {
	Property string
	UnitID   string
	UnitName string
	FlagType string
	Severity string
	Title    string
	Message  string
	Metadata map[string]interface{}
}

// sweepOverdueFlags runs last, over fully reconciled state: raises the
// overdue flags whose condition holds today and resolves the ones whose
// condition cleared.
func (e *Engine) sweepOverdueFlags() error {
	if err := e.sweepMoveOutOverdue(); err != nil {
		return err
	}
	if err := e.sweepMakereadyOverdue(); err != nil {
		return err
	}
	if err := e.sweepApplicationOverdue(); err != nil {
		return err
	}
	return e.resolveCompletedTransfers()
}

// resolveCompletedTransfers clears transfer flags once the destination unit
// no longer has a pipeline tenancy: the transfer either completed or fell
// through. Transfer flags are raised during the tenancy pass, not here.
func (e *Engine) resolveCompletedTransfers() error {
	var open []models.UnitFlag
	if err := e.db.Where("flag_type = ? AND resolved_at IS NULL", models.FlagTransferActive).Find(&open).Error; err != nil {
		return fmt.Errorf("fetch open transfer flags: %w", err)
	}
	for i := range open {
		var count int64
		err := e.db.Model(&models.Tenancy{}).
			Where("unit_id = ? AND status IN ?", open[i].UnitID,
				[]models.TenancyStatus{models.TenancyStatusFuture, models.TenancyStatusApplicant}).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("check pipeline tenancies for unit %s: %w", open[i].UnitID, err)
		}
		if count > 0 {
			continue
		}
		open[i].Resolve(flagResolver)
		if err := e.db.Save(&open[i]).Error; err != nil {
			return fmt.Errorf("resolve transfer flag %d: %w", open[i].ID, err)
		}
	}
	return nil
}

// sweepMoveOutOverdue flags notice/eviction tenancies whose move-out date
// has passed but whose status never transitioned.
func (e *Engine) sweepMoveOutOverdue() error {
	var tenancies []models.Tenancy
	err := e.db.Where("status IN ? AND move_out_date <> ''",
		[]models.TenancyStatus{models.TenancyStatusNotice, models.TenancyStatusEviction}).
		Find(&tenancies).Error
	if err != nil {
		return fmt.Errorf("fetch notice tenancies: %w", err)
	}

	triggering := make(map[string]struct{})
	for _, t := range tenancies {
		overdue, err := dates.DaysSince(t.MoveOutDate)
		if err != nil {
			e.log.Warn("unparseable move-out date in sweep",
				zap.String("tenancy_id", t.ID), zap.String("move_out", t.MoveOutDate))
			continue
		}
		if overdue < moveOutOverdueDays {
			continue
		}
		triggering[t.UnitID] = struct{}{}
		spec := flagSpec{
			Property: t.PropertyCode,
			UnitID:   t.UnitID,
			UnitName: t.UnitName,
			FlagType: models.FlagMoveOutOverdue,
			Severity: models.SeverityWarning,
			Title:    "Move-out overdue",
			Message:  fmt.Sprintf("Tenancy %s was due to move out on %s (%d days ago)", t.ID, dates.FormatForDisplay(t.MoveOutDate), overdue),
			Metadata: map[string]interface{}{"tenancy_id": t.ID, "move_out": t.MoveOutDate, "days_overdue": overdue},
		}
		if err := e.raiseFlag(spec); err != nil {
			return err
		}
	}
	return e.resolveFlags(models.FlagMoveOutOverdue, triggering)
}

// sweepMakereadyOverdue flags units still marketed as available a week or
// more after move-out without a move-in inspection.
func (e *Engine) sweepMakereadyOverdue() error {
	var avs []models.Availability
	err := e.db.Where("is_active = ? AND status = ? AND move_out_date <> '' AND move_in_inspection = ?",
		true, models.AvailabilityStatusAvailable, false).
		Find(&avs).Error
	if err != nil {
		return fmt.Errorf("fetch available units: %w", err)
	}

	triggering := make(map[string]struct{})
	for _, av := range avs {
		overdue, err := dates.DaysSince(av.MoveOutDate)
		if err != nil || overdue < makereadyOverdueDays {
			continue
		}
		triggering[av.UnitID] = struct{}{}
		spec := flagSpec{
			Property: av.PropertyCode,
			UnitID:   av.UnitID,
			UnitName: av.UnitName,
			FlagType: models.FlagMakereadyOverdue,
			Severity: models.SeverityWarning,
			Title:    "Makeready overdue",
			Message:  fmt.Sprintf("Unit %s vacant since %s with no move-in inspection", av.UnitName, dates.FormatForDisplay(av.MoveOutDate)),
			Metadata: map[string]interface{}{"move_out": av.MoveOutDate, "days_vacant": overdue},
		}
		if err := e.raiseFlag(spec); err != nil {
			return err
		}
	}
	return e.resolveFlags(models.FlagMakereadyOverdue, triggering)
}

// sweepApplicationOverdue flags applications sitting without a screening
// result past the threshold.
func (e *Engine) sweepApplicationOverdue() error {
	var avs []models.Availability
	err := e.db.Where("is_active = ? AND status = ? AND screening_result = '' AND available_date <> ''",
		true, models.AvailabilityStatusApplied).
		Find(&avs).Error
	if err != nil {
		return fmt.Errorf("fetch applied units: %w", err)
	}

	triggering := make(map[string]struct{})
	for _, av := range avs {
		pending, err := dates.DaysSince(av.AvailableDate)
		if err != nil || pending < applicationOverdueDays {
			continue
		}
		triggering[av.UnitID] = struct{}{}
		spec := flagSpec{
			Property: av.PropertyCode,
			UnitID:   av.UnitID,
			UnitName: av.UnitName,
			FlagType: models.FlagApplicationOverdue,
			Severity: models.SeverityWarning,
			Title:    "Application overdue",
			Message:  fmt.Sprintf("Application on unit %s has no screening result after %d days", av.UnitName, pending),
			Metadata: map[string]interface{}{"tenancy_id": av.FutureTenancyID, "days_pending": pending},
		}
		if err := e.raiseFlag(spec); err != nil {
			return err
		}
	}
	return e.resolveFlags(models.FlagApplicationOverdue, triggering)
}

// raiseFlag inserts a unit flag unless an unresolved one of the same type
// already exists on the unit. The existence check keeps flags from piling up
// across daily runs; an existing flag is a skip, not an error.
func (e *Engine) raiseFlag(spec flagSpec) error {
	var count int64
	err := e.db.Model(&models.UnitFlag{}).
		Where("unit_id = ? AND flag_type = ? AND resolved_at IS NULL", spec.UnitID, spec.FlagType).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("check existing %s flag for unit %s: %w", spec.FlagType, spec.UnitID, err)
	}
	if count > 0 {
		return nil
	}

	flag := models.UnitFlag{
		UnitID:       spec.UnitID,
		UnitName:     spec.UnitName,
		PropertyCode: spec.Property,
		FlagType:     spec.FlagType,
		Severity:     spec.Severity,
		Title:        spec.Title,
		Message:      spec.Message,
		Metadata:     spec.Metadata,
	}
	if err := e.db.Create(&flag).Error; err != nil {
		return fmt.Errorf("raise %s flag for unit %s: %w", spec.FlagType, spec.UnitID, err)
	}
	e.tracker.TrackFlag(spec.Property, spec.FlagType, 1)
	return nil
}

// resolveFlags timestamps unresolved flags of the given type whose unit no
// longer triggers the condition.
func (e *Engine) resolveFlags(flagType string, stillTriggering map[string]struct{}) error {
	var open []models.UnitFlag
	if err := e.db.Where("flag_type = ? AND resolved_at IS NULL", flagType).Find(&open).Error; err != nil {
		return fmt.Errorf("fetch open %s flags: %w", flagType, err)
	}
	for i := range open {
		if _, ok := stillTriggering[open[i].UnitID]; ok {
			continue
		}
		open[i].Resolve(flagResolver)
		if err := e.db.Save(&open[i]).Error; err != nil {
			return fmt.Errorf("resolve flag %d: %w", open[i].ID, err)
		}
	}
	return nil
}
