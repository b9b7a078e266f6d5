// Package tracker accumulates the business events and per-property summaries
// of exactly one reconciliation run. Pure in-memory state, no I/O, not
// thread-safe: the engine mutates it synchronously and persists the final
// state itself. A tracker is constructed per run and injected through the
// call chain, never held as a package singleton.
package tracker

import "leasing-sync/internal/models"

// Tracker is the per-run event and summary accumulator.
type Tracker struct {
	events    []models.SolverEvent
	summaries map[string]*models.PropertySummary
}

// New creates an empty tracker for one run.
func New() *Tracker {
	return &Tracker{
		summaries: make(map[string]*models.PropertySummary),
	}
}

// InitProperty ensures a summary exists for the property. Idempotent: an
// existing summary is never overwritten.
func (t *Tracker) InitProperty(code string) *models.PropertySummary {
	if s, ok := t.summaries[code]; ok {
		return s
	}
	s := &models.PropertySummary{}
	t.summaries[code] = s
	return s
}

func (t *Tracker) appendEvent(code, eventType string, details map[string]interface{}) {
	ev := models.SolverEvent{
		PropertyCode: code,
		EventType:    eventType,
		Details:      details,
	}
	if u, ok := details["unit_id"].(string); ok {
		ev.UnitID = u
	}
	if id, ok := details["tenancy_id"].(string); ok {
		ev.TenancyID = id
	}
	t.events = append(t.events, ev)
}

// TrackNewTenancy records a tenancy first seen in today's report.
func (t *Tracker) TrackNewTenancy(code string, details map[string]interface{}) {
	t.InitProperty(code).NewTenancies++
	t.appendEvent(code, models.EventNewTenancy, details)
}

// TrackNewLease records a lease first seen for a tenancy.
func (t *Tracker) TrackNewLease(code string, details map[string]interface{}) {
	s := t.InitProperty(code)
	s.NewLeases++
	t.appendEvent(code, models.EventLeaseSigned, details)
}

// TrackLeaseRenewal records a lease judged to be a successive term.
func (t *Tracker) TrackLeaseRenewal(code string, details map[string]interface{}) {
	t.InitProperty(code).LeaseRenewals++
	t.appendEvent(code, models.EventLeaseRenewal, details)
}

// TrackNotice records a notice-to-vacate.
func (t *Tracker) TrackNotice(code string, details map[string]interface{}) {
	t.InitProperty(code).Notices++
	t.appendEvent(code, models.EventNoticeGiven, details)
}

// TrackPriceChange records a rent change on an existing lease or listing.
func (t *Tracker) TrackPriceChange(code string, details map[string]interface{}) {
	t.InitProperty(code).PriceChanges++
	t.appendEvent(code, models.EventPriceChange, details)
}

// TrackApplicationSaved records a new rental application on a unit.
func (t *Tracker) TrackApplicationSaved(code string, details map[string]interface{}) {
	t.InitProperty(code).Applications++
	t.appendEvent(code, models.EventApplicationSaved, details)
}

// TrackMoveOutDetected records a tenancy silently dropped from the report
// and transitioned to past.
func (t *Tracker) TrackMoveOutDetected(code string, details map[string]interface{}) {
	t.InitProperty(code)
	t.appendEvent(code, models.EventMoveOutDetected, details)
}

// TrackApplicationCanceled records a pipeline tenancy dropped from the
// report and transitioned to canceled.
func (t *Tracker) TrackApplicationCanceled(code string, details map[string]interface{}) {
	t.InitProperty(code)
	t.appendEvent(code, models.EventApplicationCanceled, details)
}

// Counter-only operations below: bulk churn worth counting but not
// narrating, so no event is appended.

// TrackTenancyUpdates counts in-place tenancy updates.
func (t *Tracker) TrackTenancyUpdates(code string, n int) {
	t.InitProperty(code).TenancyUpdates += n
}

// TrackNewResidents counts residents first seen today.
func (t *Tracker) TrackNewResidents(code string, n int) {
	t.InitProperty(code).NewResidents += n
}

// TrackResidentUpdates counts in-place resident updates.
func (t *Tracker) TrackResidentUpdates(code string, n int) {
	t.InitProperty(code).ResidentUpdates += n
}

// TrackLeaseChanges counts in-place lease updates that are not renewals.
func (t *Tracker) TrackLeaseChanges(code string, n int) {
	t.InitProperty(code).LeaseChanges += n
}

// TrackNewAvailabilities counts units first seen in an availability report.
func (t *Tracker) TrackNewAvailabilities(code string, n int) {
	t.InitProperty(code).NewAvailabilities += n
}

// TrackAvailabilityChanges counts availability field/status updates.
func (t *Tracker) TrackAvailabilityChanges(code string, n int) {
	t.InitProperty(code).AvailabilityChanges += n
}

// TrackStatusAutoFix counts tenancies force-corrected by a more specific
// source file. Expected control flow, not an error.
func (t *Tracker) TrackStatusAutoFix(code string, n int) {
	t.InitProperty(code).StatusAutoFixes += n
}

// TrackFlag routes a raised-flag count to its summary bucket by exact flag
// type. Unrecognized types are silently ignored so new flag kinds can ship
// before the summary learns about them.
func (t *Tracker) TrackFlag(code, flagType string, count int) {
	s := t.InitProperty(code)
	switch flagType {
	case models.FlagMakereadyOverdue:
		s.MakereadyFlags += count
	case models.FlagApplicationOverdue:
		s.ApplicationFlags += count
	case models.FlagTransferActive:
		s.TransferFlags += count
	}
}

// Events returns the append-ordered event list.
func (t *Tracker) Events() []models.SolverEvent {
	return t.events
}

// Summaries returns the per-property summary map.
func (t *Tracker) Summaries() map[string]*models.PropertySummary {
	return t.summaries
}

// Reset clears events and summaries in place. Callers holding a reference to
// the tracker keep the same object.
func (t *Tracker) Reset() {
	t.events = t.events[:0]
	for code := range t.summaries {
		delete(t.summaries, code)
	}
}
