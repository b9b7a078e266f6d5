package classify

import "leasing-sync/internal/models"

// MissingResult is the outcome of classifying entities that disappeared from
// today's report.
type MissingResult struct {
	// Missing holds every active entity whose id was not reported today,
	// including ones that produce no transition (caller may log those).
	Missing []models.Tenancy
	// ToPastIDs are current/notice tenancies: the resident silently moved
	// out per the source system.
	ToPastIDs []string
	// ToCanceledIDs are applicant/future tenancies dropped from the
	// pipeline.
	ToCanceledIDs []string
	// AvailabilityResetUnitIDs are the units of canceled pipeline entries,
	// whose availability must be cleared of applicant linkage.
	AvailabilityResetUnitIDs []string
}

// Missing computes which active tenancies vanished from today's report and
// how each should transition. Runs once per property over the primary
// occupant set only.
func Missing(reportedIDs map[string]struct{}, active []models.Tenancy) MissingResult {
	var result MissingResult

	for _, t := range active {
		if _, ok := reportedIDs[t.ID]; ok {
			continue
		}
		result.Missing = append(result.Missing, t)

		switch t.Status {
		case models.TenancyStatusCurrent, models.TenancyStatusNotice:
			result.ToPastIDs = append(result.ToPastIDs, t.ID)
		case models.TenancyStatusApplicant, models.TenancyStatusFuture:
			result.ToCanceledIDs = append(result.ToCanceledIDs, t.ID)
			result.AvailabilityResetUnitIDs = append(result.AvailabilityResetUnitIDs, t.UnitID)
		}
		// other statuses: reported in Missing, no transition
	}

	return result
}
